package repository

import (
	"math"
	"slices"
	"strings"
	"time"

	repoerrors "wellbeing/internal/infrastructure/errors"
	"wellbeing/internal/types"
)

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func (r *SQLiteRepository) fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).In(r.location)
}

// parseDate parses a YYYY-MM-DD key as local midnight
func (r *SQLiteRepository) parseDate(op, date string) (time.Time, error) {
	t, err := time.ParseInLocation(types.DateLayout, date, r.location)
	if err != nil {
		return time.Time{}, repoerrors.HandleValidationError(op, "date", date, "expected YYYY-MM-DD")
	}
	return t, nil
}

// dayRange returns [midnight, next midnight) for date in the repository location
func (r *SQLiteRepository) dayRange(op, date string) (types.TimeRange, error) {
	start, err := r.parseDate(op, date)
	if err != nil {
		return types.TimeRange{}, err
	}
	return types.TimeRange{From: start, To: start.AddDate(0, 0, 1)}, nil
}

// percentage rounds part/total to two decimals
func percentage(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*10000) / 100
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// placeholders returns "?, ?, ?" for n arguments
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// Package sampler turns periodic window-state queries into an append-only event log.
package sampler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"wellbeing/internal/clock"
	repoerrors "wellbeing/internal/infrastructure/errors"
	"wellbeing/internal/infrastructure/logging"
	"wellbeing/internal/metrics"
	"wellbeing/internal/platform"
	"wellbeing/internal/types"
)

// EventAppender is the part of the event store the sampler writes to
type EventAppender interface {
	AppendEvent(ctx context.Context, event *types.Event) error
}

// Config controls sampling cadence
type Config struct {
	Interval   time.Duration
	Timeout    time.Duration
	DeviceType string
}

// Heartbeat is the sampler's self-reported state for diagnostics
type Heartbeat struct {
	LastAttempt         time.Time `json:"last_attempt"`
	LastSuccess         time.Time `json:"last_success"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	Recorded            int64     `json:"recorded"`
	Skipped             int64     `json:"skipped"`
}

// Sampler queries the window source once per tick and appends one event per successful query
type Sampler struct {
	source  platform.WindowSource
	store   EventAppender
	clock   clock.Clock
	cfg     Config
	logger  logging.Logger
	metrics *metrics.Metrics

	mu         sync.Mutex
	lastSample time.Time
	heartbeat  Heartbeat
}

// New creates a sampler. Zero config fields take the defaults: 10s interval,
// a timeout of one fifth of the interval, device type "desktop".
func New(source platform.WindowSource, store EventAppender, clk clock.Clock, cfg Config, logger logging.Logger, m *metrics.Metrics) *Sampler {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.Timeout <= 0 || cfg.Timeout >= cfg.Interval {
		cfg.Timeout = cfg.Interval / 5
	}
	if cfg.DeviceType == "" {
		cfg.DeviceType = types.DefaultDeviceType
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &Sampler{
		source:  source,
		store:   store,
		clock:   clk,
		cfg:     cfg,
		logger:  logging.With(logger, "component", "sampler"),
		metrics: m,
	}
}

// Name identifies the sampler task
func (s *Sampler) Name() string { return "sampler" }

// Interval returns the sampling interval
func (s *Sampler) Interval() time.Duration { return s.cfg.Interval }

// Tick samples once. A source failure or missing focus skips the tick and
// returns a SourceUnavailable error; a store failure returns the store error.
// Neither is fatal to the caller.
func (s *Sampler) Tick(ctx context.Context) (*types.Event, error) {
	now := s.clock.Now()

	start := time.Now()
	info, err := s.query(ctx)
	latency := time.Since(start)

	if err != nil {
		srcErr := repoerrors.SourceUnavailable("Sampler.Tick", err)
		s.recordFailure(now, srcErr)
		s.metrics.ObserveSample(metrics.SampleSkipped, latency, now)
		if errors.Is(err, platform.ErrNoFocus) {
			s.logger.Debug("No focused window, skipping tick")
		} else {
			s.logger.Warn("Window source unavailable, skipping tick", "error", err)
		}
		return nil, srcErr
	}

	event := s.buildEvent(now, info)
	if err := s.store.AppendEvent(ctx, event); err != nil {
		s.recordFailure(now, err)
		s.metrics.ObserveSample(metrics.SampleFailed, latency, now)
		logging.LogError(s.logger, err, "Sampler.AppendEvent", map[string]interface{}{"app_name": event.AppName})
		return nil, err
	}

	s.mu.Lock()
	s.lastSample = now
	s.heartbeat.LastAttempt = now
	s.heartbeat.LastSuccess = now
	s.heartbeat.LastError = ""
	s.heartbeat.ConsecutiveFailures = 0
	s.heartbeat.Recorded++
	s.mu.Unlock()

	s.metrics.ObserveSample(metrics.SampleRecorded, latency, now)
	s.logger.Debug("Sample recorded", "app_name", event.AppName, "duration_seconds", event.DurationSeconds)
	return event, nil
}

// Heartbeat returns a copy of the sampler state
func (s *Sampler) Heartbeat() Heartbeat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heartbeat
}

// query calls the source under the tick timeout. The call runs in its own
// goroutine so a source that ignores ctx still cannot block the tick.
func (s *Sampler) query(ctx context.Context) (*platform.WindowInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	type result struct {
		info *platform.WindowInfo
		err  error
	}
	done := make(chan result, 1)
	go func() {
		info, err := s.source.ActiveWindow(ctx)
		done <- result{info, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		if r.info == nil || strings.TrimSpace(r.info.AppName) == "" {
			return nil, platform.ErrNoFocus
		}
		return r.info, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Sampler) buildEvent(now time.Time, info *platform.WindowInfo) *types.Event {
	appName := strings.TrimSpace(info.AppName)
	canonical := CanonicalAppName(appName)

	process := strings.ToLower(strings.TrimSpace(info.ProcessName))
	if process == "" {
		process = canonical
	}

	title := strings.TrimSpace(info.WindowTitle)
	var website string
	if IsBrowser(canonical) {
		website = ExtractWebsite(title)
	}

	return &types.Event{
		Timestamp:       now,
		DeviceType:      s.cfg.DeviceType,
		AppName:         appName,
		WindowTitle:     title,
		ProcessName:     process,
		WebsiteURL:      website,
		DurationSeconds: s.duration(now),
	}
}

// duration is the elapsed time since the previous recorded sample when it
// lies in (0, 2*interval], and the interval otherwise. Whole seconds, at least 1.
func (s *Sampler) duration(now time.Time) int64 {
	s.mu.Lock()
	last := s.lastSample
	s.mu.Unlock()

	d := s.cfg.Interval
	if !last.IsZero() {
		if elapsed := now.Sub(last); elapsed > 0 && elapsed <= 2*s.cfg.Interval {
			d = elapsed
		}
	}
	return max(int64(d.Round(time.Second)/time.Second), 1)
}

func (s *Sampler) recordFailure(now time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heartbeat.LastAttempt = now
	s.heartbeat.LastError = err.Error()
	s.heartbeat.ConsecutiveFailures++
	s.heartbeat.Skipped++
}

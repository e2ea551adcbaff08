// Package categories resolves applications to categories from a reloadable rule table.
package categories

import (
	"sort"
	"strings"

	"wellbeing/internal/types"
)

// RuleSet is an immutable snapshot of category rules. One aggregation run
// resolves every group against the same RuleSet.
type RuleSet struct {
	exact      map[string]string
	rules      []types.CategoryRule
	categories []types.CategoryInfo
}

// NewRuleSet builds a snapshot from category definitions.
// Literals are case-folded; when one literal appears under several categories
// the lexicographically smallest category wins, not the one listed last, so
// the outcome does not depend on the order categories were loaded in.
func NewRuleSet(categories []types.CategoryInfo) *RuleSet {
	rs := &RuleSet{exact: make(map[string]string)}

	seen := make(map[types.CategoryRule]struct{})
	for _, c := range categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		info := types.CategoryInfo{Name: name, Color: c.Color, Description: c.Description, Apps: []string{}}
		for _, app := range c.Apps {
			literal := fold(app)
			if literal == "" {
				continue
			}
			rule := types.CategoryRule{Pattern: literal, Category: name}
			if _, dup := seen[rule]; dup {
				continue
			}
			seen[rule] = struct{}{}
			rs.rules = append(rs.rules, rule)
			info.Apps = append(info.Apps, literal)
		}
		sort.Strings(info.Apps)
		rs.categories = append(rs.categories, info)
	}

	sort.Slice(rs.rules, func(i, j int) bool {
		if rs.rules[i].Pattern != rs.rules[j].Pattern {
			return rs.rules[i].Pattern < rs.rules[j].Pattern
		}
		return rs.rules[i].Category < rs.rules[j].Category
	})
	sort.Slice(rs.categories, func(i, j int) bool {
		return rs.categories[i].Name < rs.categories[j].Name
	})

	for _, r := range rs.rules {
		if _, ok := rs.exact[r.Pattern]; !ok {
			rs.exact[r.Pattern] = r.Category
		}
	}
	return rs
}

// Resolve returns the category for an application:
//  1. exact case-insensitive match of appName
//  2. exact case-insensitive match of processName
//  3. first rule literal contained in either name, in rule order
//  4. Uncategorized
func (rs *RuleSet) Resolve(appName, processName string) string {
	category, _ := rs.Match(appName, processName)
	return category
}

// Match is Resolve that also reports whether a rule matched
func (rs *RuleSet) Match(appName, processName string) (string, bool) {
	if rs == nil {
		return types.UncategorizedCategory, false
	}

	app := fold(appName)
	proc := fold(processName)

	if app != "" {
		if c, ok := rs.exact[app]; ok {
			return c, true
		}
	}
	if proc != "" {
		if c, ok := rs.exact[proc]; ok {
			return c, true
		}
	}
	for _, r := range rs.rules {
		if (app != "" && strings.Contains(app, r.Pattern)) || (proc != "" && strings.Contains(proc, r.Pattern)) {
			return r.Category, true
		}
	}
	return types.UncategorizedCategory, false
}

// Rules returns the rules in precedence order
func (rs *RuleSet) Rules() []types.CategoryRule {
	if rs == nil {
		return nil
	}
	out := make([]types.CategoryRule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Categories returns the category definitions sorted by name
func (rs *RuleSet) Categories() []types.CategoryInfo {
	if rs == nil {
		return nil
	}
	out := make([]types.CategoryInfo, len(rs.categories))
	for i, c := range rs.categories {
		c.Apps = append([]string(nil), c.Apps...)
		out[i] = c
	}
	return out
}

// Len returns the number of rules
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

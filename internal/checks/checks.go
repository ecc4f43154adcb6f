// Package checks implements quality checks applied to translation units
// during sync. Checks are registered on an explicit Registry instance that
// callers pass by reference; there is no package-level global, so tests can
// assemble registries with exactly the checks they exercise.
package checks

import "strings"

// Unit is the read-only view of a translation unit a check runs against.
// Plural forms arrive as parallel slices; single-form units carry one
// element each.
type Unit struct {
	Sources    []string
	Targets    []string
	Context    string
	Fuzzy      bool
	Translated bool
}

// Check is one quality check. Target checks run only against translated,
// non-fuzzy units; source checks run against the source string regardless
// of translation state.
type Check interface {
	// Name is the stable identifier stored in check records.
	Name() string
	// Description is a short human-readable summary.
	Description() string
	// TargetCheck reports whether the check inspects targets. When false
	// the check is source-level and its failures are stored without a
	// language code.
	TargetCheck() bool
	// Failing reports whether the unit fails the check.
	Failing(u Unit) bool
}

// Registry holds an ordered set of checks. The zero value is usable.
type Registry struct {
	checks []Check
	byName map[string]Check
}

// NewRegistry returns a registry preloaded with the given checks.
func NewRegistry(cs ...Check) *Registry {
	r := &Registry{}
	for _, c := range cs {
		r.Register(c)
	}
	return r
}

// Default returns a registry with the builtin checks.
func Default() *Registry {
	return NewRegistry(SameCheck{}, EndSpaceCheck{}, BeginSpaceCheck{}, EndNewlineCheck{})
}

// Register appends a check. Re-registering a name replaces the earlier
// entry in place.
func (r *Registry) Register(c Check) {
	if r.byName == nil {
		r.byName = make(map[string]Check)
	}
	if _, ok := r.byName[c.Name()]; ok {
		for i, old := range r.checks {
			if old.Name() == c.Name() {
				r.checks[i] = c
				break
			}
		}
	} else {
		r.checks = append(r.checks, c)
	}
	r.byName[c.Name()] = c
}

// Get returns the named check, or nil when unknown.
func (r *Registry) Get(name string) Check {
	return r.byName[name]
}

// All returns the registered checks in registration order.
func (r *Registry) All() []Check {
	return r.checks
}

// Failing returns the names of target checks the unit currently fails.
// Fuzzy and untranslated units fail nothing; their stale rows are cleared
// by the caller.
func (r *Registry) Failing(u Unit) []string {
	if u.Fuzzy || !u.Translated {
		return nil
	}
	var out []string
	for _, c := range r.checks {
		if c.TargetCheck() && c.Failing(u) {
			out = append(out, c.Name())
		}
	}
	return out
}

// FailingSource returns the names of source checks the unit fails.
func (r *Registry) FailingSource(u Unit) []string {
	var out []string
	for _, c := range r.checks {
		if !c.TargetCheck() && c.Failing(u) {
			out = append(out, c.Name())
		}
	}
	return out
}

// SameCheck flags translations identical to their source.
type SameCheck struct{}

func (SameCheck) Name() string        { return "same" }
func (SameCheck) Description() string { return "Translation is identical to the source" }
func (SameCheck) TargetCheck() bool   { return true }

func (SameCheck) Failing(u Unit) bool {
	for i, src := range u.Sources {
		if i >= len(u.Targets) {
			return false
		}
		if u.Targets[i] != src {
			return false
		}
	}
	return len(u.Sources) > 0
}

// EndSpaceCheck flags targets whose trailing whitespace disagrees with the
// source.
type EndSpaceCheck struct{}

func (EndSpaceCheck) Name() string        { return "end_space" }
func (EndSpaceCheck) Description() string { return "Trailing space differs from the source" }
func (EndSpaceCheck) TargetCheck() bool   { return true }

func (EndSpaceCheck) Failing(u Unit) bool {
	return pairwiseDiffer(u, func(s string) bool {
		return strings.HasSuffix(s, " ")
	})
}

// BeginSpaceCheck flags targets whose leading whitespace disagrees with the
// source.
type BeginSpaceCheck struct{}

func (BeginSpaceCheck) Name() string        { return "begin_space" }
func (BeginSpaceCheck) Description() string { return "Leading space differs from the source" }
func (BeginSpaceCheck) TargetCheck() bool   { return true }

func (BeginSpaceCheck) Failing(u Unit) bool {
	return pairwiseDiffer(u, func(s string) bool {
		return strings.HasPrefix(s, " ")
	})
}

// EndNewlineCheck flags targets whose trailing newline disagrees with the
// source.
type EndNewlineCheck struct{}

func (EndNewlineCheck) Name() string        { return "end_newline" }
func (EndNewlineCheck) Description() string { return "Trailing newline differs from the source" }
func (EndNewlineCheck) TargetCheck() bool   { return true }

func (EndNewlineCheck) Failing(u Unit) bool {
	return pairwiseDiffer(u, func(s string) bool {
		return strings.HasSuffix(s, "\n")
	})
}

// pairwiseDiffer reports whether prop holds for a source form but not its
// target form, or the other way round, for any plural pair.
func pairwiseDiffer(u Unit, prop func(string) bool) bool {
	for i, src := range u.Sources {
		if i >= len(u.Targets) || u.Targets[i] == "" {
			continue
		}
		if prop(src) != prop(u.Targets[i]) {
			return true
		}
	}
	return false
}

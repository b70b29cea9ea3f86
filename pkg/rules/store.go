package rules

import (
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// SourceDefaults is the Snapshot source of the built-in rule set.
const SourceDefaults = "defaults"

// Snapshot is an immutable view of a rule set. Every Store mutation
// publishes a new Snapshot; readers holding an older one keep seeing a
// consistent rule list for as long as they need it.
//
// Rules returned by a Snapshot are shared and must not be modified.
type Snapshot struct {
	version    uint64
	source     string
	rules      []*Rule
	byCategory map[Category][]*Rule
}

func newSnapshot(version uint64, source string, rules []*Rule) *Snapshot {
	byCategory := make(map[Category][]*Rule)
	for _, r := range rules {
		byCategory[r.Category] = append(byCategory[r.Category], r)
	}
	return &Snapshot{
		version:    version,
		source:     source,
		rules:      rules,
		byCategory: byCategory,
	}
}

// Version increases by one with every published snapshot.
func (s *Snapshot) Version() uint64 {
	return s.version
}

// Source names where the rule set came from: a file path, a repository
// reference or SourceDefaults.
func (s *Snapshot) Source() string {
	return s.source
}

// Len returns the number of rules, enabled or not.
func (s *Snapshot) Len() int {
	return len(s.rules)
}

// Rules returns all rules in insertion order.
func (s *Snapshot) Rules() []*Rule {
	return slices.Clone(s.rules)
}

// Enabled returns the enabled rules in insertion order.
func (s *Snapshot) Enabled() []*Rule {
	out := make([]*Rule, 0, len(s.rules))
	for _, r := range s.rules {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out
}

// ByCategory returns all rules of a category, enabled and disabled, in
// insertion order.
func (s *Snapshot) ByCategory(c Category) []*Rule {
	return slices.Clone(s.byCategory[c])
}

// Get returns the first rule with the given ID.
func (s *Snapshot) Get(id string) (*Rule, bool) {
	for _, r := range s.rules {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}

// CategoryStatistics counts the rules of one category.
type CategoryStatistics struct {
	Total   int `json:"total" yaml:"total"`
	Enabled int `json:"enabled" yaml:"enabled"`
}

// Statistics summarizes a rule set for operational dashboards.
type Statistics struct {
	Version    uint64                          `json:"version" yaml:"version"`
	Source     string                          `json:"source" yaml:"source"`
	Total      int                             `json:"total" yaml:"total"`
	Enabled    int                             `json:"enabled" yaml:"enabled"`
	Disabled   int                             `json:"disabled" yaml:"disabled"`
	ByCategory map[Category]CategoryStatistics `json:"by_category" yaml:"by_category"`
}

// Statistics counts total, enabled and disabled rules, overall and per category.
func (s *Snapshot) Statistics() Statistics {
	st := Statistics{
		Version:    s.version,
		Source:     s.source,
		Total:      len(s.rules),
		ByCategory: make(map[Category]CategoryStatistics),
	}
	for _, r := range s.rules {
		cs := st.ByCategory[r.Category]
		cs.Total++
		if r.Enabled {
			st.Enabled++
			cs.Enabled++
		}
		st.ByCategory[r.Category] = cs
	}
	st.Disabled = st.Total - st.Enabled
	return st
}

// Store owns the process-wide rule set. Reads are lock-free: they load the
// current Snapshot. Writers (Load, LoadDefaults, Replace, Add, Remove) are
// serialized and publish a fresh Snapshot with an atomic swap, so
// evaluations in flight are never affected by a concurrent mutation.
type Store struct {
	current atomic.Pointer[Snapshot]

	// mu serializes writers
	mu sync.Mutex

	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a store holding the default rule set.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		logger: logger.With("component", "rules.store"),
		now:    time.Now,
	}
	s.current.Store(newSnapshot(1, SourceDefaults, DefaultRules()))
	return s
}

// NewStoreFromFile creates a store and loads path into it. The store is
// always usable: when the load fails it holds the default rule set and the
// *ConfigError is returned for the caller to report.
func NewStoreFromFile(path string, logger *slog.Logger) (*Store, error) {
	s := NewStore(logger)
	if err := s.Load(path); err != nil {
		return s, err
	}
	return s, nil
}

// Snapshot returns the current rule set.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// publish swaps in a new snapshot. Callers must hold s.mu.
func (s *Store) publish(source string, rules []*Rule) *Snapshot {
	next := newSnapshot(s.current.Load().version+1, source, rules)
	s.current.Store(next)
	return next
}

// Load replaces the rule set with the contents of a rule file. When the file
// is missing, malformed or contains an invalid record, the attempted load is
// discarded, the default rule set is installed instead and a *ConfigError
// describing the cause is returned. The store is never left empty.
func (s *Store) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rules, err := loadRules(path)
	if err != nil {
		s.publish(SourceDefaults, DefaultRules())
		s.logger.Warn("rule file rejected, falling back to default rules",
			"path", path,
			"error", err,
		)
		return err
	}

	snap := s.publish(path, rules)
	s.logger.Info("rules loaded",
		"path", path,
		"rule_count", snap.Len(),
		"version", snap.Version(),
	)
	return nil
}

func loadRules(path string) ([]*Rule, error) {
	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	rules, err := f.ToRules()
	if err != nil {
		return nil, &ConfigError{Path: path, Message: "schema validation failed", Cause: err}
	}
	return rules, nil
}

// LoadDefaults replaces the rule set with the built-in defaults.
func (s *Store) LoadDefaults() {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.publish(SourceDefaults, DefaultRules())
	s.logger.Info("default rules loaded", "rule_count", snap.Len(), "version", snap.Version())
}

// Replace installs an already decoded rule set. Every rule is validated
// first; on error the current rule set is kept.
func (s *Store) Replace(source string, rules []*Rule) error {
	next := make([]*Rule, 0, len(rules))
	errList := &ErrorList{}
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			errList.Add(err)
			continue
		}
		next = append(next, r.Clone())
	}
	if errList.HasErrors() {
		return errList
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.publish(source, next)
	return nil
}

// Add appends a copy of rule to the rule set. Rule IDs are not required to
// be unique; a duplicate is accepted and logged.
func (s *Store) Add(rule *Rule) error {
	if rule == nil {
		return errors.New("rule cannot be nil")
	}
	if err := rule.Validate(); err != nil {
		return err
	}

	added := rule.Clone()
	added.Kind = added.Kind.Normalize()
	now := s.now().UTC()
	if added.CreatedAt.IsZero() {
		added.CreatedAt = now
	}
	if added.UpdatedAt.IsZero() {
		added.UpdatedAt = added.CreatedAt
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	if _, dup := cur.Get(added.ID); dup {
		s.logger.Warn("rule id already present, keeping both", "rule_id", added.ID)
	}

	next := make([]*Rule, len(cur.rules), len(cur.rules)+1)
	copy(next, cur.rules)
	next = append(next, added)
	s.publish(cur.source, next)
	return nil
}

// Remove deletes the first rule with the given ID and reports whether a
// rule was removed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	idx := slices.IndexFunc(cur.rules, func(r *Rule) bool { return r.ID == id })
	if idx < 0 {
		return false
	}

	next := slices.Delete(slices.Clone(cur.rules), idx, idx+1)
	s.publish(cur.source, next)
	return true
}

// Get returns a copy of the first rule with the given ID or ErrRuleNotFound.
func (s *Store) Get(id string) (*Rule, error) {
	if r, ok := s.Snapshot().Get(id); ok {
		return r.Clone(), nil
	}
	return nil, ErrRuleNotFound
}

// Rules returns all rules of the current snapshot.
func (s *Store) Rules() []*Rule {
	return s.Snapshot().Rules()
}

// ByCategory returns the rules of a category from the current snapshot.
func (s *Store) ByCategory(c Category) []*Rule {
	return s.Snapshot().ByCategory(c)
}

// Statistics summarizes the current snapshot.
func (s *Store) Statistics() Statistics {
	return s.Snapshot().Statistics()
}

// Save writes the current rule set to path, tagged with SchemaVersion.
// Write failures are returned as *IOError.
func (s *Store) Save(path string) error {
	snap := s.Snapshot()
	if err := WriteFile(path, NewFile(snap.rules, s.now())); err != nil {
		return err
	}
	s.logger.Info("rules saved", "path", path, "rule_count", snap.Len())
	return nil
}

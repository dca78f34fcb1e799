// Package strategy decides whether an analyzed read may be cached and for how
// long. Every function here is pure: no I/O, deterministic given its inputs.
package strategy

import (
	"strings"
	"time"

	"github.com/prashanthpai/readcache/analysis"
)

// Config holds the caching policy. It is read-only after New.
type Config struct {
	Enabled                bool
	DefaultTTLSeconds      int
	CachePrimaryKeyLookups bool
	CacheSimpleWhere       bool
	// MaxJoinTables bounds the number of joined tables, not counting the
	// primary table.
	MaxJoinTables   int
	ExcludeKeywords []string
	ExcludeTables   []string
	TableTTLs       map[string]int
}

// DefaultConfig returns the policy used when none is supplied.
func DefaultConfig() Config {
	return Config{
		Enabled:                true,
		DefaultTTLSeconds:      300,
		CachePrimaryKeyLookups: true,
		CacheSimpleWhere:       true,
		MaxJoinTables:          2,
		ExcludeKeywords:        []string{"FOR UPDATE", "FOR SHARE", "NOW()", "RAND()", "RANDOM()", "UUID()"},
	}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "strategy config error in field " + e.Field + ": " + e.Message
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	if c.DefaultTTLSeconds <= 0 {
		return &ConfigError{Field: "DefaultTTLSeconds", Message: "must be greater than 0"}
	}
	if c.MaxJoinTables < 0 {
		return &ConfigError{Field: "MaxJoinTables", Message: "must be non-negative"}
	}
	for table, ttl := range c.TableTTLs {
		if ttl <= 0 {
			return &ConfigError{Field: "TableTTLs[" + table + "]", Message: "must be greater than 0"}
		}
	}
	for _, kw := range c.ExcludeKeywords {
		if strings.TrimSpace(kw) == "" {
			return &ConfigError{Field: "ExcludeKeywords", Message: "must not contain empty keywords"}
		}
	}
	return nil
}

// Strategy evaluates a Config against query analyses. Table names are
// matched case-insensitively.
type Strategy struct {
	enabled         bool
	defaultTTL      int
	pkLookups       bool
	simpleWhere     bool
	maxJoinTables   int
	excludeKeywords []string
	excludeTables   map[string]struct{}
	tableTTLs       map[string]int
}

// New builds a Strategy from a validated copy of cfg.
func New(cfg Config) (*Strategy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Strategy{
		enabled:       cfg.Enabled,
		defaultTTL:    cfg.DefaultTTLSeconds,
		pkLookups:     cfg.CachePrimaryKeyLookups,
		simpleWhere:   cfg.CacheSimpleWhere,
		maxJoinTables: cfg.MaxJoinTables,
		excludeTables: make(map[string]struct{}, len(cfg.ExcludeTables)),
		tableTTLs:     make(map[string]int, len(cfg.TableTTLs)),
	}
	for _, kw := range cfg.ExcludeKeywords {
		s.excludeKeywords = append(s.excludeKeywords, strings.ToLower(kw))
	}
	for _, t := range cfg.ExcludeTables {
		s.excludeTables[strings.ToLower(t)] = struct{}{}
	}
	for t, ttl := range cfg.TableTTLs {
		s.tableTTLs[strings.ToLower(t)] = ttl
	}

	return s, nil
}

// Must is like New but panics on an invalid config.
func Must(cfg Config) *Strategy {
	s, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return s
}

// ShouldCache reports whether the analyzed read may be served from and
// stored in cache.
func (s *Strategy) ShouldCache(a *analysis.QueryAnalysis) bool {
	if !s.enabled || a == nil {
		return false
	}
	if a.OperationType != analysis.OperationRead || a.CacheKey == nil {
		return false
	}

	tables := a.CacheKey.Tables
	// statements without a FROM clause are never cached
	if len(tables) == 0 {
		return false
	}
	for _, t := range tables {
		if _, ok := s.excludeTables[strings.ToLower(t.Table)]; ok {
			return false
		}
	}
	if len(tables) > s.maxJoinTables+1 {
		return false
	}

	switch a.CacheKey.Type {
	case analysis.KeyRowLookup:
		if s.pkLookups {
			return true
		}
	case analysis.KeySimpleWhere:
		if s.simpleWhere {
			return true
		}
	}

	switch a.CacheKey.Type {
	case analysis.KeySimpleWhere, analysis.KeyRowLookup, analysis.KeyTableScan:
		return true
	default:
		return false
	}
}

// TTLSeconds returns the default TTL lowered to the smallest configured TTL
// among the tables the query touches.
func (s *Strategy) TTLSeconds(a *analysis.QueryAnalysis) int {
	ttl := s.defaultTTL
	if a == nil || a.CacheKey == nil {
		return ttl
	}
	for _, t := range a.CacheKey.Tables {
		if tableTTL, ok := s.tableTTLs[strings.ToLower(t.Table)]; ok && tableTTL < ttl {
			ttl = tableTTL
		}
	}
	return ttl
}

// TTL is TTLSeconds as a time.Duration.
func (s *Strategy) TTL(a *analysis.QueryAnalysis) time.Duration {
	return time.Duration(s.TTLSeconds(a)) * time.Second
}

// PrimaryTable returns the FROM clause table of the query, or "".
func (s *Strategy) PrimaryTable(a *analysis.QueryAnalysis) string {
	if a == nil || a.CacheKey == nil || len(a.CacheKey.Tables) == 0 {
		return ""
	}
	return a.CacheKey.Tables[0].Table
}

// Excluded reports whether the statement text contains one of the excluded
// keywords (case-insensitive substring match). It lets callers veto a read
// before any remote round trip.
func (s *Strategy) Excluded(query string) bool {
	if len(s.excludeKeywords) == 0 {
		return false
	}
	q := strings.ToLower(query)
	for _, kw := range s.excludeKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

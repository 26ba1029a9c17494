package numerator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
)

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type cachedRange struct {
	current int64
	max     int64
}

// Service provides document numbering backed by the sys_sequences table.
type Service struct {
	querier Querier

	// cacheMu protects ranges
	cacheMu sync.Mutex
	// ranges stores active in-memory ranges per key (Cached strategy only)
	ranges map[string]*cachedRange
}

// New creates a new numerator service.
func New(querier Querier) *Service {
	return &Service{
		querier: querier,
		ranges:  make(map[string]*cachedRange),
	}
}

var _ Generator = (*Service)(nil)

// GetNextNumber generates the next document number.
// Pattern: PREFIX-YEAR-XXXXX (e.g., SR-2026-00001)
//
// Supports Strict (DB-level) and Cached (memory-level) strategies.
func (s *Service) GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error) {
	if s == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}

	if opts == nil {
		opts = DefaultOptions()
	}

	key := s.buildKey(cfg, period)
	var num int64
	var err error

	switch opts.Strategy {
	case StrategyCached:
		num, err = s.getNextCached(ctx, key, period, opts)
	case StrategyStrict:
		fallthrough
	default:
		num, err = s.getNextStrict(ctx, key, period, 1)
	}

	if err != nil {
		return "", err
	}

	return s.formatNumber(cfg, period, num), nil
}

// getNextStrict fetches the next number directly from DB using UPSERT + RETURNING.
// increment > 1 allocates a range ending at the returned value.
func (s *Service) getNextStrict(ctx context.Context, key string, period time.Time, increment int64) (int64, error) {
	var num int64
	err := s.querier.QueryRow(ctx, `
        INSERT INTO sys_sequences (sequence_type, year, current_val)
        VALUES ($1, $2, $3)
        ON CONFLICT (sequence_type, year) DO UPDATE SET current_val = sys_sequences.current_val + $3
        RETURNING current_val
    `, key, period.Year(), increment).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("next sequence value for %s: %w", key, err)
	}
	return num, nil
}

// getNextCached serves numbers from an in-memory range, allocating a new
// range from the DB when exhausted. Gaps may appear after restarts.
func (s *Service) getNextCached(ctx context.Context, key string, period time.Time, opts *Options) (int64, error) {
	rangeSize := opts.RangeSize
	if rangeSize <= 0 {
		rangeSize = 50
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	r, ok := s.ranges[key]
	if !ok || r.current >= r.max {
		upper, err := s.getNextStrict(ctx, key, period, rangeSize)
		if err != nil {
			return 0, err
		}
		r = &cachedRange{current: upper - rangeSize, max: upper}
		s.ranges[key] = r
	}

	r.current++
	return r.current, nil
}

// buildKey derives the sequence key from config and period.
func (s *Service) buildKey(cfg Config, period time.Time) string {
	switch cfg.ResetPeriod {
	case "month":
		return fmt.Sprintf("%s_%d_%02d", cfg.Prefix, period.Year(), period.Month())
	case "never":
		return cfg.Prefix
	default: // "year"
		return fmt.Sprintf("%s_%d", cfg.Prefix, period.Year())
	}
}

// formatNumber renders the final human-facing number.
func (s *Service) formatNumber(cfg Config, period time.Time, num int64) string {
	padWidth := cfg.PadWidth
	if padWidth <= 0 {
		padWidth = 5
	}

	if cfg.IncludeYear {
		return fmt.Sprintf("%s-%d-%0*d", cfg.Prefix, period.Year(), padWidth, num)
	}
	return fmt.Sprintf("%s-%0*d", cfg.Prefix, padWidth, num)
}

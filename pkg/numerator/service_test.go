package numerator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

// Mock objects
type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

type mockQuerier struct {
	mu           sync.Mutex
	currentValue int64
	lastIncr     int64
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	// args are (key, year, increment); simulate the UPSERT+RETURNING behavior.
	var increment int64 = 1
	if len(args) == 3 {
		if val, ok := args[2].(int64); ok {
			increment = val
		}
	}

	m.currentValue += increment
	m.lastIncr = increment

	return &mockRow{val: m.currentValue}
}

func TestGetNextNumber_Strict(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := DefaultConfig("SR")
	period := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	num, err := svc.GetNextNumber(ctx, cfg, nil, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "SR-2026-00001" {
		t.Errorf("expected SR-2026-00001, got %s", num)
	}

	num, err = svc.GetNextNumber(ctx, cfg, nil, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "SR-2026-00002" {
		t.Errorf("expected SR-2026-00002, got %s", num)
	}
}

func TestGetNextNumber_Cached(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := DefaultConfig("SR")
	period := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	opts := &Options{
		Strategy:  StrategyCached,
		RangeSize: 10,
	}

	// First call allocates 1..10 from the DB and hands out 1.
	num, err := svc.GetNextNumber(ctx, cfg, opts, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "SR-2026-00001" {
		t.Errorf("expected SR-2026-00001, got %s", num)
	}
	if q.lastIncr != 10 {
		t.Errorf("expected range allocation of 10, got %d", q.lastIncr)
	}

	// Next nine calls stay in memory.
	for i := 2; i <= 10; i++ {
		num, err = svc.GetNextNumber(ctx, cfg, opts, period)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if num != "SR-2026-00010" {
		t.Errorf("expected SR-2026-00010, got %s", num)
	}
	if q.currentValue != 10 {
		t.Errorf("expected a single DB allocation, current=%d", q.currentValue)
	}

	// Eleventh call allocates a new range.
	num, err = svc.GetNextNumber(ctx, cfg, opts, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "SR-2026-00011" {
		t.Errorf("expected SR-2026-00011, got %s", num)
	}
}

func TestFormatNumber_NoYear(t *testing.T) {
	svc := New(&mockQuerier{})
	cfg := Config{Prefix: "SR", IncludeYear: false, PadWidth: 3}
	got := svc.formatNumber(cfg, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 42)
	if got != "SR-042" {
		t.Errorf("expected SR-042, got %s", got)
	}
}

func TestBuildKey_ResetPeriods(t *testing.T) {
	svc := New(&mockQuerier{})
	period := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		reset string
		want  string
	}{
		{"year", "SR_2026"},
		{"month", "SR_2026_07"},
		{"never", "SR"},
	}
	for _, tc := range cases {
		cfg := Config{Prefix: "SR", ResetPeriod: tc.reset}
		if got := svc.buildKey(cfg, period); got != tc.want {
			t.Errorf("reset %q: expected %s, got %s", tc.reset, tc.want, got)
		}
	}
}

package trader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/spreadbot/internal/domain"
	"github.com/alanyoungcy/spreadbot/internal/notify"
)

// Stats accumulates run counters shared between the trading loop and the
// reporter. All methods are safe for concurrent use.
type Stats struct {
	mu        sync.Mutex
	startedAt time.Time

	cycles   int64
	skips    int64
	entries  int64
	exits    int64
	errors   int64
	deployed float64
	realized float64
}

// NewStats creates a Stats tracker starting now.
func NewStats() *Stats {
	return &Stats{startedAt: time.Now()}
}

// RecordCycle counts a completed decision cycle.
func (s *Stats) RecordCycle() {
	s.mu.Lock()
	s.cycles++
	s.mu.Unlock()
}

// RecordSkip counts a cycle skipped for an unusable order book.
func (s *Stats) RecordSkip() {
	s.mu.Lock()
	s.skips++
	s.mu.Unlock()
}

// RecordEntry counts an opened position and the notional deployed into it.
func (s *Stats) RecordEntry(notional float64) {
	s.mu.Lock()
	s.entries++
	s.deployed += notional
	s.mu.Unlock()
}

// RecordExit counts a closed position and its realized profit or loss.
func (s *Stats) RecordExit(pnl float64) {
	s.mu.Lock()
	s.exits++
	s.realized += pnl
	s.mu.Unlock()
}

// RecordError counts a failed cycle, entry, or exit attempt.
func (s *Stats) RecordError() {
	s.mu.Lock()
	s.errors++
	s.mu.Unlock()
}

// Reset zeroes the counters and starts a new reporting window.
func (s *Stats) Reset() {
	s.mu.Lock()
	s.startedAt = time.Now()
	s.cycles = 0
	s.skips = 0
	s.entries = 0
	s.exits = 0
	s.errors = 0
	s.deployed = 0
	s.realized = 0
	s.mu.Unlock()
}

// Snapshot is a point-in-time copy of the run counters.
type Snapshot struct {
	StartedAt   time.Time `json:"started_at"`
	GeneratedAt time.Time `json:"generated_at"`
	Cycles      int64     `json:"cycles"`
	Skips       int64     `json:"skips"`
	Entries     int64     `json:"entries"`
	Exits       int64     `json:"exits"`
	Errors      int64     `json:"errors"`
	Deployed    float64   `json:"deployed"`
	RealizedPnL float64   `json:"realized_pnl"`
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		StartedAt:   s.startedAt,
		GeneratedAt: time.Now(),
		Cycles:      s.cycles,
		Skips:       s.skips,
		Entries:     s.entries,
		Exits:       s.exits,
		Errors:      s.errors,
		Deployed:    s.deployed,
		RealizedPnL: s.realized,
	}
}

// ReportWriter archives a rendered report. Satisfied by the S3 blob writer.
type ReportWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Reporter periodically summarizes the run counters, notifies the configured
// channels and optionally archives the JSON report to object storage. Each
// report closes the window: counters restart from zero afterwards.
type Reporter struct {
	symbol   string
	interval time.Duration
	stats    *Stats
	notifier *notify.Notifier
	writer   ReportWriter
	bus      domain.EventBus
	logger   *slog.Logger
}

// NewReporter creates a Reporter. writer may be nil to skip archiving.
func NewReporter(symbol string, interval time.Duration, stats *Stats, notifier *notify.Notifier, writer ReportWriter, logger *slog.Logger) *Reporter {
	return &Reporter{
		symbol:   symbol,
		interval: interval,
		stats:    stats,
		notifier: notifier,
		writer:   writer,
		logger:   logger.With(slog.String("component", "reporter")),
	}
}

// WithEventBus wires the optional event bus so reports are mirrored to
// external consumers.
func (r *Reporter) WithEventBus(bus domain.EventBus) *Reporter {
	r.bus = bus
	return r
}

// Run emits a report every interval until ctx is cancelled. A final report is
// emitted on shutdown.
func (r *Reporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.emitFinal()
			return ctx.Err()
		case <-ticker.C:
			r.emit(ctx)
		}
	}
}

func (r *Reporter) emit(ctx context.Context) {
	snap := r.stats.Snapshot()
	r.stats.Reset()

	r.logger.InfoContext(ctx, "periodic report",
		slog.Int64("cycles", snap.Cycles),
		slog.Int64("entries", snap.Entries),
		slog.Int64("exits", snap.Exits),
		slog.Int64("errors", snap.Errors),
		slog.Float64("realized_pnl", snap.RealizedPnL))

	r.notifier.Notify(ctx, notify.EventReport, "Trading report",
		fmt.Sprintf("%s since %s: %d cycles, %d entries, %d exits, %d errors, P/L %+.2f",
			r.symbol, snap.StartedAt.Format(time.RFC3339),
			snap.Cycles, snap.Entries, snap.Exits, snap.Errors, snap.RealizedPnL))

	data, err := json.Marshal(snap)
	if err != nil {
		return
	}

	if r.bus != nil {
		if err := r.bus.Publish(ctx, "spreadbot:reports", data); err != nil {
			r.logger.WarnContext(ctx, "report publish failed",
				slog.String("error", err.Error()))
		}
	}

	if r.writer == nil {
		return
	}
	key := fmt.Sprintf("reports/%s/%s.json", r.symbol, snap.GeneratedAt.UTC().Format("2006-01-02T15-04-05"))
	if err := r.writer.Put(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		r.logger.WarnContext(ctx, "report archive failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
}

// emitFinal archives one last report on a fresh short-lived context.
func (r *Reporter) emitFinal() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	r.emit(ctx)
}

// Package trader runs the trading loop: one synchronous decision cycle per
// interval, applying the entry evaluator and the per-position exit machinery
// against fresh market data.
package trader

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/spreadbot/internal/book"
	"github.com/alanyoungcy/spreadbot/internal/domain"
	"github.com/alanyoungcy/spreadbot/internal/notify"
	"github.com/alanyoungcy/spreadbot/internal/pricing"
	"github.com/alanyoungcy/spreadbot/internal/strategy"
)

// errorBackoff is the extra pause after a failed cycle so a broken venue is
// not hammered at full cycle rate.
const errorBackoff = 5 * time.Second

// Config holds the loop parameters resolved from configuration.
type Config struct {
	Symbol         string
	BaseAsset      string
	QuoteAsset     string
	CycleInterval  time.Duration
	StatusInterval time.Duration
	Depth          int
	CandleInterval string
	CandleLimit    int

	Entry           strategy.EntryParams
	MinSellQuantity float64

	Ratchet          book.Ratchet
	CrossoverEnabled bool
	Crossover        strategy.CrossoverExit
}

// Trader owns the position book and drives the decision cycle. All trading
// state transitions happen on the single Run goroutine; the stats counters
// are the only state shared with the reporter.
type Trader struct {
	cfg      Config
	exchange domain.Exchange
	book     *book.PositionBook
	tracker  *strategy.CloseTracker
	eval     strategy.Evaluator
	notifier *notify.Notifier
	stats    *Stats
	logger   *slog.Logger

	// Optional collaborators; nil disables the concern.
	positions domain.PositionStore
	trades    domain.TradeStore
	candles   domain.CandleCache
	bus       domain.EventBus

	// Last observed market figures, refreshed each cycle for the status log.
	// Touched only by the Run goroutine.
	lastSpread   float64
	lastBestAsk  float64
	quoteBalance float64

	now   func() time.Time
	newID func() string
}

// New creates a Trader. The stats object is shared with the reporter.
func New(cfg Config, exchange domain.Exchange, policy strategy.EntryPolicy, notifier *notify.Notifier, stats *Stats, logger *slog.Logger) *Trader {
	return &Trader{
		cfg:      cfg,
		exchange: exchange,
		book:     book.NewPositionBook(),
		tracker:  strategy.NewCloseTracker(cfg.CandleLimit),
		eval: strategy.Evaluator{
			Policy: policy,
			Params: cfg.Entry,
		},
		notifier: notifier,
		stats:    stats,
		logger:   logger.With(slog.String("component", "trader")),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// WithStores wires optional persistence for positions and trades.
func (t *Trader) WithStores(positions domain.PositionStore, trades domain.TradeStore) *Trader {
	t.positions = positions
	t.trades = trades
	return t
}

// WithCache wires the optional candle cache.
func (t *Trader) WithCache(candles domain.CandleCache) *Trader {
	t.candles = candles
	return t
}

// WithEventBus wires the optional event bus.
func (t *Trader) WithEventBus(bus domain.EventBus) *Trader {
	t.bus = bus
	return t
}

// Book exposes the position book for status reporting.
func (t *Trader) Book() *book.PositionBook {
	return t.book
}

// Run executes the trading loop until ctx is cancelled. Cycle failures are
// reported and retried after a backoff; only cancellation ends the loop.
func (t *Trader) Run(ctx context.Context) error {
	if err := t.startup(ctx); err != nil {
		return err
	}

	t.notifier.NotifyAll(ctx, "Bot started",
		fmt.Sprintf("%s trading started (cycle %s)", t.cfg.Symbol, t.cfg.CycleInterval))
	defer t.shutdownNotice()

	lastStatus := t.now()
	for {
		if err := t.runCycle(ctx); err != nil {
			t.stats.RecordError()
			t.logger.ErrorContext(ctx, "cycle failed",
				slog.String("error", err.Error()))
			t.notifier.Notify(ctx, notify.EventError, "Cycle error", err.Error())

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(errorBackoff):
			}
		}

		if t.now().Sub(lastStatus) >= t.cfg.StatusInterval {
			t.logStatus(ctx)
			lastStatus = t.now()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.cfg.CycleInterval):
		}
	}
}

// startup warms the close tracker and reloads persisted positions.
func (t *Trader) startup(ctx context.Context) error {
	if t.candles != nil {
		if err := t.tracker.SeedFromCache(ctx, t.candles, t.cfg.Symbol); err != nil {
			t.logger.WarnContext(ctx, "candle cache seed failed, falling back to venue history",
				slog.String("error", err.Error()))
		}
	}
	if t.tracker.Len() < 2 {
		candles, err := t.exchange.FetchCandles(ctx, t.cfg.Symbol, t.cfg.CandleInterval, t.cfg.CandleLimit)
		if err != nil {
			return fmt.Errorf("trader: warm close history: %w", err)
		}
		closes := make([]float64, 0, len(candles))
		for _, c := range candles {
			closes = append(closes, c.Close)
		}
		t.tracker.Seed(closes)
	}

	if t.positions != nil {
		persisted, err := t.positions.ListOpen(ctx, t.cfg.Symbol)
		if err != nil {
			return fmt.Errorf("trader: reload positions: %w", err)
		}
		if len(persisted) > 0 {
			t.book.Load(persisted)
			t.logger.InfoContext(ctx, "restored persisted positions",
				slog.Int("count", len(persisted)))
		}
	}
	return nil
}

// shutdownNotice sends a best-effort shutdown notification on a fresh
// short-lived context, since the loop context is already cancelled.
func (t *Trader) shutdownNotice() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	t.notifier.NotifyAll(ctx, "Bot stopped",
		fmt.Sprintf("%s trading stopped, %d position(s) open", t.cfg.Symbol, t.book.Len()))
}

// runCycle performs one full decision cycle: fetch, entry check, exit pass.
func (t *Trader) runCycle(ctx context.Context) error {
	snap, err := t.exchange.FetchOrderBook(ctx, t.cfg.Symbol, t.cfg.Depth)
	if err != nil {
		return fmt.Errorf("trader: fetch order book: %w", err)
	}
	if !snap.Usable() {
		t.stats.RecordSkip()
		t.logger.DebugContext(ctx, "order book empty, skipping cycle")
		return nil
	}

	candles, err := t.exchange.FetchCandles(ctx, t.cfg.Symbol, t.cfg.CandleInterval, 1)
	if err != nil {
		return fmt.Errorf("trader: fetch latest candle: %w", err)
	}
	if len(candles) > 0 {
		t.trackClose(ctx, candles[len(candles)-1].Close)
	}

	balances, err := t.exchange.FetchBalances(ctx)
	if err != nil {
		return fmt.Errorf("trader: fetch balances: %w", err)
	}

	closes := t.tracker.Closes()
	t.quoteBalance = balances[t.cfg.QuoteAsset]

	if err := t.tryEntry(ctx, snap, balances[t.cfg.QuoteAsset], closes); err != nil {
		// Entry failures are reported but do not abort the exit pass.
		t.stats.RecordError()
		t.logger.ErrorContext(ctx, "entry failed", slog.String("error", err.Error()))
		t.notifier.Notify(ctx, notify.EventError, "Entry error", err.Error())
	}

	t.exitPass(ctx, snap, balances[t.cfg.BaseAsset], closes)

	t.stats.RecordCycle()
	return nil
}

// trackClose records the latest close in the tracker and, when wired, the
// candle cache. Cache failures only log.
func (t *Trader) trackClose(ctx context.Context, close float64) {
	t.tracker.Track(close)
	if t.candles != nil {
		if err := t.candles.AppendClose(ctx, t.cfg.Symbol, close, t.cfg.CandleLimit); err != nil {
			t.logger.WarnContext(ctx, "candle cache append failed",
				slog.String("error", err.Error()))
		}
	}
}

// tryEntry evaluates the entry gates and opens a position when they pass.
func (t *Trader) tryEntry(ctx context.Context, snap domain.OrderBookSnapshot, quoteBalance float64, closes []float64) error {
	d := t.eval.EvaluateEntry(snap, quoteBalance, closes)
	t.lastSpread = d.Spread
	t.lastBestAsk = d.BestAsk
	if !d.Enter {
		t.logger.DebugContext(ctx, "entry blocked",
			slog.String("reason", d.Reason),
			slog.Float64("spread", d.Spread))
		return nil
	}

	res, err := t.exchange.PlaceMarketBuy(ctx, t.cfg.Symbol, d.Quantity)
	if err != nil {
		return fmt.Errorf("market buy %f %s: %w", d.Quantity, t.cfg.Symbol, err)
	}

	// Prefer the venue's reported fill; fall back to the requested figures.
	entryPrice := d.BestAsk
	if res.AvgFillPrice > 0 {
		entryPrice = res.AvgFillPrice
	}
	quantity := d.Quantity
	if res.FilledQuantity > 0 {
		quantity = res.FilledQuantity
	}

	pos := domain.Position{
		ID:             t.newID(),
		Symbol:         t.cfg.Symbol,
		EntryPrice:     entryPrice,
		Quantity:       quantity,
		EntryPolicy:    t.eval.Policy.Name(),
		HighWaterPrice: entryPrice,
		OpenedAt:       t.now(),
	}
	if err := t.book.Open(pos); err != nil {
		return fmt.Errorf("open position %s: %w", pos.ID, err)
	}
	if t.positions != nil {
		if err := t.positions.Create(ctx, pos); err != nil {
			t.logger.WarnContext(ctx, "persist position failed",
				slog.String("position_id", pos.ID),
				slog.String("error", err.Error()))
		}
	}

	t.stats.RecordEntry(pos.Notional(entryPrice))
	t.logger.InfoContext(ctx, "position opened",
		slog.String("position_id", pos.ID),
		slog.Float64("entry_price", entryPrice),
		slog.Float64("quantity", quantity),
		slog.Float64("spread", d.Spread))
	t.notifier.Notify(ctx, notify.EventEntry, "Position opened",
		fmt.Sprintf("%s buy %.8g @ %.8g (spread %.5f)", t.cfg.Symbol, quantity, entryPrice, d.Spread))
	t.publishEvent(ctx, "position_opened", pos)
	return nil
}

// exitPass advances every open position through the exit machinery. The
// crossover check overrides the ratchet for the cycle in which it fires.
func (t *Trader) exitPass(ctx context.Context, snap domain.OrderBookSnapshot, baseBalance float64, closes []float64) {
	crossed := t.cfg.CrossoverEnabled && t.cfg.Crossover.ShouldExit(closes)

	for _, pos := range t.book.List() {
		// Coverage is evaluated per position against its own quantity.
		cov := pricing.CoverageBid(snap, pos.Quantity)

		if crossed {
			baseBalance -= t.closePosition(ctx, pos, cov.Price, baseBalance, domain.ExitReasonCrossover)
			continue
		}

		state := t.cfg.Ratchet.Advance(pos, cov.Price, t.now())
		t.persistRatchet(ctx, pos)

		switch state {
		case book.StateConfirmedExit:
			baseBalance -= t.closePosition(ctx, pos, cov.Price, baseBalance, domain.ExitReasonRatchet)
		case book.StateDrawdownPending:
			t.logger.DebugContext(ctx, "drawdown pending",
				slog.String("position_id", pos.ID),
				slog.Float64("coverage", cov.Price),
				slog.Float64("high_water", pos.HighWaterPrice))
		}
	}
}

// closePosition attempts to sell the full position. It returns the quantity
// actually sold so the caller can keep its view of the base balance current.
func (t *Trader) closePosition(ctx context.Context, pos *domain.Position, coverage, baseBalance float64, reason domain.ExitReason) float64 {
	if pos.Quantity < t.cfg.MinSellQuantity {
		t.logger.WarnContext(ctx, "position below minimum sellable size, retaining",
			slog.String("position_id", pos.ID),
			slog.Float64("quantity", pos.Quantity))
		return 0
	}
	if pos.Quantity > baseBalance {
		t.logger.WarnContext(ctx, "insufficient base balance for exit, retaining",
			slog.String("position_id", pos.ID),
			slog.Float64("quantity", pos.Quantity),
			slog.Float64("balance", baseBalance))
		return 0
	}

	if _, err := t.exchange.PlaceMarketSell(ctx, t.cfg.Symbol, pos.Quantity); err != nil {
		// Retain the position; confirmation must re-accumulate before the
		// next attempt.
		t.cfg.Ratchet.ClearTimer(pos)
		t.persistRatchet(ctx, pos)
		t.stats.RecordError()
		t.logger.ErrorContext(ctx, "market sell failed, retaining position",
			slog.String("position_id", pos.ID),
			slog.String("error", err.Error()))
		t.notifier.Notify(ctx, notify.EventError, "Exit error",
			fmt.Sprintf("%s sell %.8g failed: %v", t.cfg.Symbol, pos.Quantity, err))
		return 0
	}

	now := t.now()
	trade := domain.ClosedTrade{
		ID:         t.newID(),
		PositionID: pos.ID,
		Symbol:     pos.Symbol,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  coverage,
		Quantity:   pos.Quantity,
		PnL:        (coverage - pos.EntryPrice) * pos.Quantity,
		PnLPct:     (coverage - pos.EntryPrice) / pos.EntryPrice * 100,
		Reason:     reason,
		OpenedAt:   pos.OpenedAt,
		ClosedAt:   now,
	}

	if err := t.book.Remove(pos.ID); err != nil {
		t.logger.WarnContext(ctx, "remove closed position failed",
			slog.String("position_id", pos.ID),
			slog.String("error", err.Error()))
	}
	if t.positions != nil {
		if err := t.positions.Delete(ctx, pos.ID); err != nil {
			t.logger.WarnContext(ctx, "delete persisted position failed",
				slog.String("position_id", pos.ID),
				slog.String("error", err.Error()))
		}
	}
	if t.trades != nil {
		if err := t.trades.Insert(ctx, trade); err != nil {
			t.logger.WarnContext(ctx, "persist trade failed",
				slog.String("trade_id", trade.ID),
				slog.String("error", err.Error()))
		}
	}

	t.stats.RecordExit(trade.PnL)
	t.logger.InfoContext(ctx, "position closed",
		slog.String("position_id", pos.ID),
		slog.String("reason", string(reason)),
		slog.Float64("exit_price", coverage),
		slog.Float64("pnl", trade.PnL),
		slog.Float64("pnl_pct", trade.PnLPct))
	t.notifier.Notify(ctx, notify.EventExit, "Position closed",
		fmt.Sprintf("%s sell %.8g @ %.8g (%s, P/L %+.2f %s, %+.2f%%)",
			t.cfg.Symbol, trade.Quantity, coverage, reason, trade.PnL, t.cfg.QuoteAsset, trade.PnLPct))
	t.publishEvent(ctx, "position_closed", trade)
	return trade.Quantity
}

// persistRatchet mirrors the position's trailing-stop fields to the store
// when one is wired. Failures only log; memory remains authoritative.
func (t *Trader) persistRatchet(ctx context.Context, pos *domain.Position) {
	if t.positions == nil {
		return
	}
	if err := t.positions.UpdateRatchet(ctx, pos.ID, pos.HighWaterPrice, pos.PendingExitSince); err != nil {
		t.logger.WarnContext(ctx, "persist ratchet state failed",
			slog.String("position_id", pos.ID),
			slog.String("error", err.Error()))
	}
}

// publishEvent pushes a JSON event to the bus when one is wired.
func (t *Trader) publishEvent(ctx context.Context, event string, payload any) {
	if t.bus == nil {
		return
	}
	data, err := json.Marshal(map[string]any{
		"event":   event,
		"symbol":  t.cfg.Symbol,
		"payload": payload,
		"at":      t.now().UTC(),
	})
	if err != nil {
		return
	}
	if err := t.bus.Publish(ctx, "spreadbot:events", data); err != nil {
		t.logger.WarnContext(ctx, "event publish failed",
			slog.String("event", event),
			slog.String("error", err.Error()))
	}
}

// logStatus emits the periodic status block.
func (t *Trader) logStatus(ctx context.Context) {
	positions := t.book.List()
	t.logger.InfoContext(ctx, "status",
		slog.String("symbol", t.cfg.Symbol),
		slog.Float64("best_ask", t.lastBestAsk),
		slog.Float64("spread", t.lastSpread),
		slog.Float64("quote_balance", t.quoteBalance),
		slog.Int("open_positions", len(positions)),
		slog.Float64("committed_quantity", t.book.TotalQuantity()),
		slog.Int("tracked_closes", t.tracker.Len()))
	for _, pos := range positions {
		pending := ""
		if pos.PendingExitSince != nil {
			pending = pos.PendingExitSince.Format(time.RFC3339)
		}
		t.logger.InfoContext(ctx, "open position",
			slog.String("position_id", pos.ID),
			slog.Float64("entry_price", pos.EntryPrice),
			slog.Float64("quantity", pos.Quantity),
			slog.Float64("high_water", pos.HighWaterPrice),
			slog.String("pending_exit_since", pending))
	}
}

package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/spreadbot/internal/book"
	"github.com/alanyoungcy/spreadbot/internal/domain"
	"github.com/alanyoungcy/spreadbot/internal/exchange/binance"
	"github.com/alanyoungcy/spreadbot/internal/pricing"
	"github.com/alanyoungcy/spreadbot/internal/strategy"
	"github.com/alanyoungcy/spreadbot/internal/trader"
)

// TradeMode runs the trading loop and the periodic reporter until the context
// is cancelled.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode")

	policy, err := strategy.NewEntryPolicy(
		a.cfg.Entry.Policy,
		a.cfg.Entry.ShortPeriod,
		a.cfg.Entry.LongPeriod,
		a.cfg.Entry.Lookback,
		a.cfg.Entry.Sharpness,
	)
	if err != nil {
		return fmt.Errorf("trade mode: %w", err)
	}

	tcfg := trader.Config{
		Symbol:         a.cfg.Trading.Symbol,
		BaseAsset:      a.cfg.Trading.BaseAsset,
		QuoteAsset:     a.cfg.Trading.QuoteAsset,
		CycleInterval:  a.cfg.Trading.CycleInterval.Duration,
		StatusInterval: a.cfg.Trading.StatusInterval.Duration,
		Depth:          a.cfg.Trading.Depth,
		CandleInterval: a.cfg.Trading.CandleInterval,
		CandleLimit:    a.cfg.Trading.CandleLimit,
		Entry: strategy.EntryParams{
			SpreadThreshold: a.cfg.Entry.SpreadThreshold,
			MinNotional:     a.cfg.Entry.MinNotional,
			MaxBalanceRatio: a.cfg.Entry.MaxBalanceRatio,
		},
		MinSellQuantity: a.cfg.Exit.MinSellQuantity,
		Ratchet: book.Ratchet{
			Confirmation: a.cfg.Exit.ConfirmationPeriod.Duration,
			Precision:    a.cfg.Exit.PricePrecision,
		},
		CrossoverEnabled: a.cfg.Exit.CrossoverEnabled,
		Crossover: strategy.CrossoverExit{
			ShortPeriod:  a.cfg.Exit.CrossoverShort,
			MediumPeriod: a.cfg.Exit.CrossoverMedium,
		},
	}

	stats := trader.NewStats()
	tr := trader.New(tcfg, deps.Exchange, policy, deps.Notifier, stats, a.logger)
	if deps.PositionStore != nil {
		tr.WithStores(deps.PositionStore, deps.TradeStore)
	}
	if deps.CandleCache != nil {
		tr.WithCache(deps.CandleCache)
	}
	if deps.EventBus != nil {
		tr.WithEventBus(deps.EventBus)
	}

	reporter := trader.NewReporter(
		a.cfg.Trading.Symbol,
		a.cfg.Report.Interval.Duration,
		stats,
		deps.Notifier,
		deps.ReportWriter,
		a.logger,
	)
	if deps.EventBus != nil {
		reporter.WithEventBus(deps.EventBus)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return tr.Run(ctx)
	})
	g.Go(func() error {
		return reporter.Run(ctx)
	})
	return g.Wait()
}

// MonitorMode streams the order book over WebSocket and logs what the entry
// pricing would see. No orders are placed and no credentials are required.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode",
		slog.String("symbol", a.cfg.Trading.Symbol))

	g, ctx := errgroup.WithContext(ctx)

	stream := binance.NewDepthStream(
		a.cfg.Exchange.StreamURL,
		a.cfg.Trading.Symbol,
		a.cfg.Trading.Depth,
		a.logger,
	)
	stream.OnSnapshot(func(snap domain.OrderBookSnapshot) {
		if !snap.Usable() {
			return
		}
		bestAsk := snap.BestAsk()
		cov := pricing.CoverageBid(snap, bestAsk.Quantity)
		spread := pricing.Spread(bestAsk.Price, cov.Price)
		a.logger.InfoContext(ctx, "book update",
			slog.Float64("best_bid", snap.BestBid().Price),
			slog.Float64("best_ask", bestAsk.Price),
			slog.Float64("coverage_bid", cov.Price),
			slog.Float64("spread", spread),
			slog.Bool("below_threshold", spread < a.cfg.Entry.SpreadThreshold))
	})
	g.Go(func() error {
		return stream.Run(ctx)
	})

	// Mirror sibling-process trade events into the log when a bus is wired.
	if deps.EventBus != nil {
		g.Go(func() error {
			ch, err := deps.EventBus.Subscribe(ctx, "spreadbot:events")
			if err != nil {
				return fmt.Errorf("monitor mode: subscribe events: %w", err)
			}
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case msg, ok := <-ch:
					if !ok {
						return nil
					}
					a.logger.InfoContext(ctx, "trade event", slog.String("payload", string(msg)))
				}
			}
		})
	}

	return g.Wait()
}

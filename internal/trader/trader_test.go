package trader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/spreadbot/internal/book"
	"github.com/alanyoungcy/spreadbot/internal/domain"
	"github.com/alanyoungcy/spreadbot/internal/notify"
	"github.com/alanyoungcy/spreadbot/internal/strategy"
)

type fakeExchange struct {
	snapshot domain.OrderBookSnapshot
	candles  []domain.Candle
	balances map[string]float64

	buyErr  error
	sellErr error

	buyResult domain.OrderResult

	buys  []float64
	sells []float64
}

func (f *fakeExchange) FetchOrderBook(ctx context.Context, symbol string, depth int) (domain.OrderBookSnapshot, error) {
	return f.snapshot, nil
}

func (f *fakeExchange) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	if limit < len(f.candles) {
		return f.candles[len(f.candles)-limit:], nil
	}
	return f.candles, nil
}

func (f *fakeExchange) FetchBalances(ctx context.Context) (map[string]float64, error) {
	return f.balances, nil
}

func (f *fakeExchange) PlaceMarketBuy(ctx context.Context, symbol string, quantity float64) (domain.OrderResult, error) {
	if f.buyErr != nil {
		return domain.OrderResult{}, f.buyErr
	}
	f.buys = append(f.buys, quantity)
	return f.buyResult, nil
}

func (f *fakeExchange) PlaceMarketSell(ctx context.Context, symbol string, quantity float64) (domain.OrderResult, error) {
	if f.sellErr != nil {
		return domain.OrderResult{}, f.sellErr
	}
	f.sells = append(f.sells, quantity)
	return domain.OrderResult{OrderID: "sell-1", FilledQuantity: quantity}, nil
}

type fakePositionStore struct {
	created []domain.Position
	updated []string
	deleted []string
	open    []domain.Position
}

func (s *fakePositionStore) Create(ctx context.Context, pos domain.Position) error {
	s.created = append(s.created, pos)
	return nil
}

func (s *fakePositionStore) UpdateRatchet(ctx context.Context, id string, highWater float64, pendingSince *time.Time) error {
	s.updated = append(s.updated, id)
	return nil
}

func (s *fakePositionStore) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *fakePositionStore) ListOpen(ctx context.Context, symbol string) ([]domain.Position, error) {
	return s.open, nil
}

type fakeTradeStore struct {
	inserted []domain.ClosedTrade
}

func (s *fakeTradeStore) Insert(ctx context.Context, trade domain.ClosedTrade) error {
	s.inserted = append(s.inserted, trade)
	return nil
}

func (s *fakeTradeStore) ListRecent(ctx context.Context, symbol string, opts domain.ListOpts) ([]domain.ClosedTrade, error) {
	return s.inserted, nil
}

func (s *fakeTradeStore) SumPnL(ctx context.Context, symbol string, since time.Time) (float64, error) {
	var sum float64
	for _, t := range s.inserted {
		sum += t.PnL
	}
	return sum, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testConfig() Config {
	return Config{
		Symbol:          "BTCUSDT",
		BaseAsset:       "BTC",
		QuoteAsset:      "USDT",
		CycleInterval:   time.Second,
		StatusInterval:  10 * time.Second,
		Depth:           20,
		CandleInterval:  "1m",
		CandleLimit:     50,
		Entry:           strategy.EntryParams{SpreadThreshold: 0.001, MinNotional: 10, MaxBalanceRatio: 0.9},
		MinSellQuantity: 0.0001,
		Ratchet:         book.Ratchet{Confirmation: time.Minute, Precision: 2},
	}
}

func newTestTrader(cfg Config, ex *fakeExchange) *Trader {
	tr := New(cfg, ex, strategy.TickMomentum{}, notify.NewNotifier(nil, nil, testLogger()), NewStats(), testLogger())
	seq := 0
	tr.newID = func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}
	return tr
}

func tightSnapshot() domain.OrderBookSnapshot {
	return domain.OrderBookSnapshot{
		Symbol:    "BTCUSDT",
		Bids:      []domain.PriceLevel{{Price: 19.99, Quantity: 10}},
		Asks:      []domain.PriceLevel{{Price: 20, Quantity: 10}},
		FetchedAt: time.Now(),
	}
}

func TestRunCycleOpensPositionOnPassingGates(t *testing.T) {
	ex := &fakeExchange{
		snapshot:  tightSnapshot(),
		candles:   []domain.Candle{{Close: 11}},
		balances:  map[string]float64{"USDT": 100, "BTC": 0},
		buyResult: domain.OrderResult{OrderID: "buy-1", FilledQuantity: 4.5, AvgFillPrice: 20.01},
	}
	tr := newTestTrader(testConfig(), ex)
	tr.tracker.Seed([]float64{10})

	require.NoError(t, tr.runCycle(context.Background()))

	require.Len(t, ex.buys, 1)
	assert.InDelta(t, 4.5, ex.buys[0], 1e-9)

	positions := tr.book.List()
	require.Len(t, positions, 1)
	pos := positions[0]
	assert.Equal(t, "id-1", pos.ID)
	assert.InDelta(t, 20.01, pos.EntryPrice, 1e-9)
	assert.InDelta(t, 4.5, pos.Quantity, 1e-9)
	assert.InDelta(t, 20.01, pos.HighWaterPrice, 1e-9)
	assert.Equal(t, strategy.PolicyTickMomentum, pos.EntryPolicy)
}

func TestRunCycleFallsBackToRequestedFill(t *testing.T) {
	ex := &fakeExchange{
		snapshot: tightSnapshot(),
		candles:  []domain.Candle{{Close: 11}},
		balances: map[string]float64{"USDT": 100},
		// Venue reports neither a fill quantity nor a fill price.
		buyResult: domain.OrderResult{OrderID: "buy-1"},
	}
	tr := newTestTrader(testConfig(), ex)
	tr.tracker.Seed([]float64{10})

	require.NoError(t, tr.runCycle(context.Background()))

	positions := tr.book.List()
	require.Len(t, positions, 1)
	assert.InDelta(t, 20, positions[0].EntryPrice, 1e-9)
	assert.InDelta(t, 4.5, positions[0].Quantity, 1e-9)
}

func TestRunCycleSkipsEmptyBook(t *testing.T) {
	ex := &fakeExchange{
		snapshot: domain.OrderBookSnapshot{Symbol: "BTCUSDT"},
		candles:  []domain.Candle{{Close: 11}},
		balances: map[string]float64{"USDT": 100},
	}
	tr := newTestTrader(testConfig(), ex)

	require.NoError(t, tr.runCycle(context.Background()))
	assert.Empty(t, ex.buys)
	assert.Equal(t, 0, tr.book.Len())
}

func TestRunCycleBlockedMomentumDoesNotBuy(t *testing.T) {
	ex := &fakeExchange{
		snapshot: tightSnapshot(),
		candles:  []domain.Candle{{Close: 9}},
		balances: map[string]float64{"USDT": 100},
	}
	tr := newTestTrader(testConfig(), ex)
	tr.tracker.Seed([]float64{10})

	require.NoError(t, tr.runCycle(context.Background()))
	assert.Empty(t, ex.buys)
}

func TestExitPassConfirmsRatchetExit(t *testing.T) {
	ex := &fakeExchange{}
	tr := newTestTrader(testConfig(), ex)
	trades := &fakeTradeStore{}
	tr.WithStores(&fakePositionStore{}, trades)

	require.NoError(t, tr.book.Open(domain.Position{
		ID:             "pos-1",
		Symbol:         "BTCUSDT",
		EntryPrice:     18,
		Quantity:       1,
		HighWaterPrice: 20,
		OpenedAt:       time.Now(),
	}))

	// Coverage 19 is below the high-water mark of 20.
	snap := domain.OrderBookSnapshot{
		Symbol:    "BTCUSDT",
		Bids:      []domain.PriceLevel{{Price: 19, Quantity: 5}},
		Asks:      []domain.PriceLevel{{Price: 19.1, Quantity: 5}},
		FetchedAt: time.Now(),
	}

	t0 := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return t0 }
	tr.exitPass(context.Background(), snap, 5, nil)

	require.Empty(t, ex.sells, "drawdown must not sell before confirmation")
	pos, err := tr.book.Get("pos-1")
	require.NoError(t, err)
	require.NotNil(t, pos.PendingExitSince)

	tr.now = func() time.Time { return t0.Add(time.Minute) }
	tr.exitPass(context.Background(), snap, 5, nil)

	require.Len(t, ex.sells, 1)
	assert.Equal(t, 0, tr.book.Len())

	require.Len(t, trades.inserted, 1)
	trade := trades.inserted[0]
	assert.Equal(t, domain.ExitReasonRatchet, trade.Reason)
	assert.InDelta(t, 19, trade.ExitPrice, 1e-9)
	assert.InDelta(t, 1, trade.PnL, 1e-9)
}

func TestExitPassCrossoverTakesPrecedence(t *testing.T) {
	ex := &fakeExchange{}
	cfg := testConfig()
	cfg.CrossoverEnabled = true
	cfg.Crossover = strategy.CrossoverExit{ShortPeriod: 2, MediumPeriod: 4}
	tr := newTestTrader(cfg, ex)

	// Coverage 21 is above the mark: the ratchet alone would keep rising.
	require.NoError(t, tr.book.Open(domain.Position{
		ID:             "pos-1",
		Symbol:         "BTCUSDT",
		EntryPrice:     18,
		Quantity:       1,
		HighWaterPrice: 20,
		OpenedAt:       time.Now(),
	}))
	snap := domain.OrderBookSnapshot{
		Symbol:    "BTCUSDT",
		Bids:      []domain.PriceLevel{{Price: 21, Quantity: 5}},
		Asks:      []domain.PriceLevel{{Price: 21.1, Quantity: 5}},
		FetchedAt: time.Now(),
	}

	closes := []float64{10, 10, 10, 11, 6}
	tr.exitPass(context.Background(), snap, 5, closes)

	require.Len(t, ex.sells, 1)
	assert.Equal(t, 0, tr.book.Len())
}

func TestExitPassRetainsOnSellFailure(t *testing.T) {
	ex := &fakeExchange{sellErr: errors.New("gateway down")}
	tr := newTestTrader(testConfig(), ex)

	pending := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	require.NoError(t, tr.book.Open(domain.Position{
		ID:               "pos-1",
		Symbol:           "BTCUSDT",
		EntryPrice:       18,
		Quantity:         1,
		HighWaterPrice:   20,
		PendingExitSince: &pending,
		OpenedAt:         time.Now(),
	}))
	snap := domain.OrderBookSnapshot{
		Symbol:    "BTCUSDT",
		Bids:      []domain.PriceLevel{{Price: 19, Quantity: 5}},
		Asks:      []domain.PriceLevel{{Price: 19.1, Quantity: 5}},
		FetchedAt: time.Now(),
	}

	tr.now = func() time.Time { return pending.Add(2 * time.Minute) }
	tr.exitPass(context.Background(), snap, 5, nil)

	pos, err := tr.book.Get("pos-1")
	require.NoError(t, err)
	assert.Nil(t, pos.PendingExitSince, "failed sell must reset the confirmation timer")
	assert.Equal(t, 1, tr.book.Len())
}

func TestClosePositionGuards(t *testing.T) {
	snap := domain.OrderBookSnapshot{
		Symbol:    "BTCUSDT",
		Bids:      []domain.PriceLevel{{Price: 19, Quantity: 5}},
		Asks:      []domain.PriceLevel{{Price: 19.1, Quantity: 5}},
		FetchedAt: time.Now(),
	}
	pending := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	t.Run("dust below minimum sell size", func(t *testing.T) {
		ex := &fakeExchange{}
		tr := newTestTrader(testConfig(), ex)
		require.NoError(t, tr.book.Open(domain.Position{
			ID:               "pos-1",
			Symbol:           "BTCUSDT",
			EntryPrice:       18,
			Quantity:         0.00005,
			HighWaterPrice:   20,
			PendingExitSince: &pending,
			OpenedAt:         time.Now(),
		}))

		tr.now = func() time.Time { return pending.Add(2 * time.Minute) }
		tr.exitPass(context.Background(), snap, 5, nil)

		assert.Empty(t, ex.sells)
		assert.Equal(t, 1, tr.book.Len())
	})

	t.Run("insufficient base balance", func(t *testing.T) {
		ex := &fakeExchange{}
		tr := newTestTrader(testConfig(), ex)
		require.NoError(t, tr.book.Open(domain.Position{
			ID:               "pos-1",
			Symbol:           "BTCUSDT",
			EntryPrice:       18,
			Quantity:         2,
			HighWaterPrice:   20,
			PendingExitSince: &pending,
			OpenedAt:         time.Now(),
		}))

		tr.now = func() time.Time { return pending.Add(2 * time.Minute) }
		tr.exitPass(context.Background(), snap, 1, nil)

		assert.Empty(t, ex.sells)
		assert.Equal(t, 1, tr.book.Len())
	})
}

func TestStartupRestoresPersistedPositions(t *testing.T) {
	ex := &fakeExchange{
		candles: []domain.Candle{{Close: 10}, {Close: 11}, {Close: 12}},
	}
	tr := newTestTrader(testConfig(), ex)
	store := &fakePositionStore{
		open: []domain.Position{
			{ID: "pos-a", Symbol: "BTCUSDT", EntryPrice: 18, Quantity: 1, HighWaterPrice: 19, OpenedAt: time.Now()},
			{ID: "pos-b", Symbol: "BTCUSDT", EntryPrice: 17, Quantity: 2, HighWaterPrice: 17, OpenedAt: time.Now()},
		},
	}
	tr.WithStores(store, &fakeTradeStore{})

	require.NoError(t, tr.startup(context.Background()))

	assert.Equal(t, 2, tr.book.Len())
	assert.Equal(t, 3, tr.tracker.Len(), "close history warmed from venue candles")
}

func TestEntryPersistsPosition(t *testing.T) {
	ex := &fakeExchange{
		snapshot:  tightSnapshot(),
		candles:   []domain.Candle{{Close: 11}},
		balances:  map[string]float64{"USDT": 100},
		buyResult: domain.OrderResult{FilledQuantity: 4.5, AvgFillPrice: 20.01},
	}
	tr := newTestTrader(testConfig(), ex)
	store := &fakePositionStore{}
	tr.WithStores(store, &fakeTradeStore{})
	tr.tracker.Seed([]float64{10})

	require.NoError(t, tr.runCycle(context.Background()))

	require.Len(t, store.created, 1)
	assert.Equal(t, "id-1", store.created[0].ID)
}

func TestStatsSnapshot(t *testing.T) {
	s := NewStats()
	s.RecordCycle()
	s.RecordCycle()
	s.RecordSkip()
	s.RecordEntry(90)
	s.RecordExit(1.5)
	s.RecordExit(-0.5)
	s.RecordError()

	snap := s.Snapshot()
	assert.Equal(t, int64(2), snap.Cycles)
	assert.Equal(t, int64(1), snap.Skips)
	assert.Equal(t, int64(1), snap.Entries)
	assert.Equal(t, int64(2), snap.Exits)
	assert.Equal(t, int64(1), snap.Errors)
	assert.InDelta(t, 90, snap.Deployed, 1e-9)
	assert.InDelta(t, 1.0, snap.RealizedPnL, 1e-9)
}

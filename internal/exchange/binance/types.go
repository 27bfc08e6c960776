package binance

import (
	"fmt"
	"strconv"
	"time"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

// Venue error codes surfaced by order placement.
const (
	codeInsufficientBalance = -2010
	codeFilterFailure       = -1013
)

// apiError is the venue's JSON error envelope.
type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// apiDepth is the /api/v3/depth payload. Levels arrive as string pairs.
type apiDepth struct {
	LastUpdateID int64       `json:"lastUpdateId"`
	Bids         [][2]string `json:"bids"`
	Asks         [][2]string `json:"asks"`
}

func (d apiDepth) toSnapshot(symbol string, fetchedAt time.Time) (domain.OrderBookSnapshot, error) {
	bids, err := parseLevels(d.Bids)
	if err != nil {
		return domain.OrderBookSnapshot{}, fmt.Errorf("bids: %w", err)
	}
	asks, err := parseLevels(d.Asks)
	if err != nil {
		return domain.OrderBookSnapshot{}, fmt.Errorf("asks: %w", err)
	}
	return domain.OrderBookSnapshot{
		Symbol:    symbol,
		Bids:      bids,
		Asks:      asks,
		FetchedAt: fetchedAt,
	}, nil
}

func parseLevels(raw [][2]string) ([]domain.PriceLevel, error) {
	levels := make([]domain.PriceLevel, 0, len(raw))
	for _, pair := range raw {
		price, err := strconv.ParseFloat(pair[0], 64)
		if err != nil {
			return nil, fmt.Errorf("parse price %q: %w", pair[0], err)
		}
		qty, err := strconv.ParseFloat(pair[1], 64)
		if err != nil {
			return nil, fmt.Errorf("parse quantity %q: %w", pair[1], err)
		}
		levels = append(levels, domain.PriceLevel{Price: price, Quantity: qty})
	}
	return levels, nil
}

// klineToCandle converts one /api/v3/klines row. Rows are heterogenous
// arrays: open time as a number, OHLCV as strings.
func klineToCandle(row []any) (domain.Candle, error) {
	if len(row) < 6 {
		return domain.Candle{}, fmt.Errorf("kline row has %d fields, want at least 6", len(row))
	}

	openTimeMs, ok := row[0].(float64)
	if !ok {
		return domain.Candle{}, fmt.Errorf("kline open time has type %T", row[0])
	}

	vals := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		s, ok := row[i].(string)
		if !ok {
			return domain.Candle{}, fmt.Errorf("kline field %d has type %T", i, row[i])
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.Candle{}, fmt.Errorf("parse kline field %d %q: %w", i, s, err)
		}
		vals[i-1] = v
	}

	return domain.Candle{
		OpenTime: time.UnixMilli(int64(openTimeMs)).UTC(),
		Open:     vals[0],
		High:     vals[1],
		Low:      vals[2],
		Close:    vals[3],
		Volume:   vals[4],
	}, nil
}

// apiAccount is the /api/v3/account payload, reduced to balances.
type apiAccount struct {
	Balances []struct {
		Asset string `json:"asset"`
		Free  string `json:"free"`
	} `json:"balances"`
}

func (a apiAccount) toBalances() (map[string]float64, error) {
	out := make(map[string]float64, len(a.Balances))
	for _, b := range a.Balances {
		free, err := strconv.ParseFloat(b.Free, 64)
		if err != nil {
			return nil, fmt.Errorf("binance: parse balance for %s: %w", b.Asset, err)
		}
		out[b.Asset] = free
	}
	return out, nil
}

// apiOrderResponse is the FULL order response for /api/v3/order.
type apiOrderResponse struct {
	OrderID     int64  `json:"orderId"`
	ExecutedQty string `json:"executedQty"`
	Fills       []struct {
		Price string `json:"price"`
		Qty   string `json:"qty"`
	} `json:"fills"`
}

func (r apiOrderResponse) toOrderResult() (domain.OrderResult, error) {
	filled, err := strconv.ParseFloat(r.ExecutedQty, 64)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("binance: parse executed quantity: %w", err)
	}

	// Quantity-weighted fill price across partial fills; zero when the venue
	// reports no fills.
	var qtySum, notional float64
	for _, f := range r.Fills {
		price, err := strconv.ParseFloat(f.Price, 64)
		if err != nil {
			return domain.OrderResult{}, fmt.Errorf("binance: parse fill price: %w", err)
		}
		qty, err := strconv.ParseFloat(f.Qty, 64)
		if err != nil {
			return domain.OrderResult{}, fmt.Errorf("binance: parse fill quantity: %w", err)
		}
		qtySum += qty
		notional += price * qty
	}

	res := domain.OrderResult{
		OrderID:        strconv.FormatInt(r.OrderID, 10),
		FilledQuantity: filled,
	}
	if qtySum > 0 {
		res.AvgFillPrice = notional / qtySum
	}
	return res, nil
}

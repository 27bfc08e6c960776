package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

const (
	// DefaultStreamURL is the venue's production market-data stream root.
	DefaultStreamURL = "wss://stream.binance.com:9443"

	// pongWait is the time allowed between messages before the connection
	// is considered dead.
	pongWait = 3 * time.Minute

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// SnapshotHandler is called for every partial book depth message.
type SnapshotHandler func(domain.OrderBookSnapshot)

// DepthStream consumes the venue's partial book depth WebSocket stream and
// dispatches snapshots to a handler. It reconnects with exponential backoff
// until the context is cancelled.
type DepthStream struct {
	streamURL string
	symbol    string
	depth     int
	logger    *slog.Logger

	handlerMu sync.RWMutex
	handlers  []SnapshotHandler
}

// NewDepthStream creates a depth stream for the symbol. streamURL defaults to
// DefaultStreamURL when empty; depth selects the partial book size (the venue
// supports 5, 10 and 20 levels).
func NewDepthStream(streamURL, symbol string, depth int, logger *slog.Logger) *DepthStream {
	if streamURL == "" {
		streamURL = DefaultStreamURL
	}
	return &DepthStream{
		streamURL: streamURL,
		symbol:    symbol,
		depth:     depth,
		logger:    logger.With("component", "depth_stream"),
	}
}

// OnSnapshot registers a handler invoked for every depth message.
func (s *DepthStream) OnSnapshot(h SnapshotHandler) {
	s.handlerMu.Lock()
	defer s.handlerMu.Unlock()
	s.handlers = append(s.handlers, h)
}

// Run connects and consumes the stream until ctx is cancelled. Connection
// failures are logged and retried with exponential backoff.
func (s *DepthStream) Run(ctx context.Context) error {
	delay := reconnectDelay
	for {
		err := s.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn("stream disconnected, reconnecting",
			"error", err,
			"delay", delay.String())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// endpoint builds the single-stream URL, e.g.
// wss://stream.binance.com:9443/ws/btcusdt@depth20@100ms.
func (s *DepthStream) endpoint() string {
	return fmt.Sprintf("%s/ws/%s@depth%d@100ms", s.streamURL, strings.ToLower(s.symbol), s.depth)
}

func (s *DepthStream) consume(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}

	conn, _, err := dialer.DialContext(ctx, s.endpoint(), nil)
	if err != nil {
		return fmt.Errorf("binance: stream connect: %w", err)
	}
	defer conn.Close()

	// The venue pings the client; gorilla answers pongs automatically. Any
	// frame (data or ping) extends the read deadline.
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(10*time.Second))
	})

	// Close the connection when the context ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	s.logger.Info("stream connected", "symbol", s.symbol, "depth", s.depth)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("binance: stream read: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var api apiDepth
		if err := json.Unmarshal(msg, &api); err != nil {
			s.logger.Warn("skipping malformed depth message", "error", err)
			continue
		}
		snap, err := api.toSnapshot(s.symbol, time.Now())
		if err != nil {
			s.logger.Warn("skipping malformed depth message", "error", err)
			continue
		}
		s.dispatch(snap)
	}
}

func (s *DepthStream) dispatch(snap domain.OrderBookSnapshot) {
	s.handlerMu.RLock()
	defer s.handlerMu.RUnlock()
	for _, h := range s.handlers {
		h(snap)
	}
}

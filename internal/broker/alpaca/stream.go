package alpaca

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/domain"
	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/infra"
)

const (
	StreamURLPaper = "wss://paper-api.alpaca.markets/stream"
	maxRetries     = 10
	readTimeout    = 60 * time.Second
	pingInterval   = 30 * time.Second
)

// OrderUpdate is one trade-update event from the pooled account stream.
type OrderUpdate struct {
	OrderID string
	Status  domain.OrderStatus
}

// authRequest is the stream authentication frame.
type authRequest struct {
	Action string `json:"action"` // "auth"
	Key    string `json:"key"`
	Secret string `json:"secret"`
}

type listenRequest struct {
	Action string `json:"action"` // "listen"
	Data   struct {
		Streams []string `json:"streams"`
	} `json:"data"`
}

// streamMessage is the envelope for trade_updates events.
type streamMessage struct {
	Stream string `json:"stream"`
	Data   struct {
		Event string `json:"event"`
		Order struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"order"`
	} `json:"data"`
}

// StreamWorker maintains the trade-updates WebSocket for the pooled
// account and pushes order status changes to a callback. It lets the
// monitor react to fills without polling every submitted order.
type StreamWorker struct {
	url       string
	apiKey    string
	apiSecret string
	onUpdate  func(OrderUpdate)
	logger    *slog.Logger

	conn      *websocket.Conn
	mu        sync.RWMutex
	writeMu   sync.Mutex
	connected bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewStreamWorker creates a trade-updates stream worker.
func NewStreamWorker(cfg infra.BrokerConfig, onUpdate func(OrderUpdate)) *StreamWorker {
	url := cfg.StreamURL
	if url == "" {
		url = StreamURLPaper
	}
	return &StreamWorker{
		url:       url,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		onUpdate:  onUpdate,
		logger:    slog.Default().With("module", "alpaca_stream"),
	}
}

// Connect starts the WebSocket connection loop.
func (w *StreamWorker) Connect(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.connectionLoop(ctx)
	return nil
}

// Disconnect stops the worker and closes the connection.
func (w *StreamWorker) Disconnect() {
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Lock()
	if w.conn != nil {
		w.conn.Close()
	}
	w.mu.Unlock()
	w.wg.Wait()
}

// IsConnected reports whether the stream is currently up.
func (w *StreamWorker) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

func (w *StreamWorker) connectionLoop(ctx context.Context) {
	defer w.wg.Done()
	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.connect(ctx); err != nil {
			w.logger.Warn("stream connection failed", slog.Any("error", err), slog.Int("retry", retryCount))
			delay := infra.CalculateBackoff(retryCount)
			retryCount++
			if retryCount > maxRetries {
				retryCount = 0
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		} else {
			retryCount = 0
			w.readLoop(ctx)
		}
	}
}

func (w *StreamWorker) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return domain.NewBrokerError(domain.BrokerAlpaca, "stream_connect", err)
	}

	w.mu.Lock()
	w.conn = conn
	w.connected = true
	w.mu.Unlock()

	auth := authRequest{Action: "auth", Key: w.apiKey, Secret: w.apiSecret}
	if err := w.writeJSON(auth); err != nil {
		w.closeConn()
		return domain.NewBrokerError(domain.BrokerAlpaca, "stream_auth", err)
	}

	listen := listenRequest{Action: "listen"}
	listen.Data.Streams = []string{"trade_updates"}
	if err := w.writeJSON(listen); err != nil {
		w.closeConn()
		return domain.NewBrokerError(domain.BrokerAlpaca, "stream_listen", err)
	}

	w.logger.Info("trade-updates stream connected")
	return nil
}

func (w *StreamWorker) readLoop(ctx context.Context) {
	defer w.closeConn()

	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-pingTicker.C:
				w.writeMu.Lock()
				w.mu.RLock()
				conn := w.conn
				w.mu.RUnlock()
				if conn != nil {
					conn.WriteMessage(websocket.PingMessage, nil)
				}
				w.writeMu.Unlock()
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()
		if conn == nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			w.logger.Warn("stream read failed", slog.Any("error", err))
			return
		}

		var msg streamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Stream != "trade_updates" || msg.Data.Order.ID == "" {
			continue
		}

		if w.onUpdate != nil {
			w.onUpdate(OrderUpdate{
				OrderID: msg.Data.Order.ID,
				Status:  mapStatus(msg.Data.Order.Status),
			})
		}
	}
}

func (w *StreamWorker) writeJSON(v interface{}) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	w.mu.RLock()
	conn := w.conn
	w.mu.RUnlock()
	if conn == nil {
		return websocket.ErrCloseSent
	}
	return conn.WriteJSON(v)
}

func (w *StreamWorker) closeConn() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
	w.connected = false
}

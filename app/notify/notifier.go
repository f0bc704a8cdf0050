// Package notify sends best-effort status messages to a chat webhook.
//
// Delivery never blocks or fails the caller: messages are posted from a
// bounded worker pool and any error is logged and dropped.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// DeliveryIDHeader carries a unique id for every webhook post.
const DeliveryIDHeader = "X-Delivery-ID"

// Notifier sends a short text message somewhere. Implementations must
// return immediately and swallow their own failures.
type Notifier interface {
	Notify(ctx context.Context, text string)
}

// Nop discards every message. It is used when no webhook is configured.
type Nop struct{}

func (Nop) Notify(context.Context, string) {}

type Config struct {
	URL     string
	Timeout time.Duration
	Workers int
}

type message struct {
	Text string `json:"text"`
}

// Webhook posts {"text": ...} to a single URL.
type Webhook struct {
	url     string
	timeout time.Duration
	client  *http.Client
	pool    *ants.Pool
	logger  *zap.Logger
}

func NewWebhook(cfg Config, logger *zap.Logger) (*Webhook, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhook url is empty")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	w := &Webhook{
		url:     cfg.URL,
		timeout: cfg.Timeout,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger.Named("notify"),
	}

	pool, err := ants.NewPool(cfg.Workers,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(p interface{}) {
			w.logger.Error("webhook delivery panicked", zap.Any("panic", p))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create notifier pool: %w", err)
	}
	w.pool = pool

	return w, nil
}

// New returns a Webhook for cfg.URL, or Nop when the URL is empty.
// The returned close function waits for in-flight deliveries.
func New(cfg Config, logger *zap.Logger) (Notifier, func(), error) {
	if cfg.URL == "" {
		logger.Info("webhook url not configured, notifications disabled")
		return Nop{}, func() {}, nil
	}
	w, err := NewWebhook(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return w, w.Close, nil
}

// Notify queues text for delivery. Cancellation of ctx does not abort it.
func (w *Webhook) Notify(ctx context.Context, text string) {
	ctx = context.WithoutCancel(ctx)
	deliveryID := uuid.NewString()

	err := w.pool.Submit(func() {
		if err := w.send(ctx, deliveryID, text); err != nil {
			w.logger.Warn("webhook delivery failed",
				zap.String("delivery_id", deliveryID),
				zap.String("text", text),
				zap.Error(err))
			return
		}
		w.logger.Debug("webhook delivered", zap.String("delivery_id", deliveryID))
	})
	if err != nil {
		// ErrPoolOverload or ErrPoolClosed.
		w.logger.Warn("webhook delivery dropped",
			zap.String("delivery_id", deliveryID),
			zap.String("text", text),
			zap.Error(err))
	}
}

func (w *Webhook) send(ctx context.Context, deliveryID, text string) error {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	body, err := json.Marshal(message{Text: text})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(DeliveryIDHeader, deliveryID)

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook responded %s", resp.Status)
	}
	return nil
}

// Close waits for queued deliveries to finish, at most one timeout long.
func (w *Webhook) Close() {
	timeout := w.timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if err := w.pool.ReleaseTimeout(timeout); err != nil {
		w.logger.Warn("notifier closed with deliveries still running", zap.Error(err))
	}
}

// Package bus carries the inter-context message protocol over NATS.
// Pages and the coordinator are isolated execution contexts that share no
// memory; everything crosses this boundary as action-tagged JSON
// request/response pairs, plus one broadcast subject for the enabled
// toggle.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// SubjectPageRequest carries page-to-coordinator requests.
	SubjectPageRequest = "crosstalk.page.request"

	// SubjectToggle broadcasts enabled-flag changes to every open page.
	SubjectToggle = "crosstalk.toggle"
)

// TogglePayload is the broadcast body on SubjectToggle.
type TogglePayload struct {
	Enabled bool `json:"enabled"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

// Serve answers every page request with the handler's payload. The
// handler must always return a response; protocol errors travel inside
// the payload, never as dropped messages.
func (c *Client) Serve(handler func(ctx context.Context, data []byte) []byte) error {
	sub, err := c.conn.Subscribe(SubjectPageRequest, func(msg *nats.Msg) {
		resp := handler(context.Background(), msg.Data)
		if err := msg.Respond(resp); err != nil {
			c.logger.Warn("failed to respond to page request", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", SubjectPageRequest, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("serving page requests", "subject", SubjectPageRequest)
	return nil
}

// BroadcastToggle pushes the enabled flag to every connected page.
func (c *Client) BroadcastToggle(enabled bool) error {
	payload, err := json.Marshal(TogglePayload{Enabled: enabled})
	if err != nil {
		return fmt.Errorf("marshal toggle: %w", err)
	}
	return c.conn.Publish(SubjectToggle, payload)
}

// SubscribeToggle registers a callback for toggle broadcasts. Used by the
// page side; exposed on Client too so auxiliary processes can mirror the
// flag.
func (c *Client) SubscribeToggle(fn func(enabled bool)) error {
	sub, err := c.conn.Subscribe(SubjectToggle, func(msg *nats.Msg) {
		var p TogglePayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			c.logger.Warn("malformed toggle broadcast", "error", err)
			return
		}
		fn(p.Enabled)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", SubjectToggle, err)
	}
	c.subs = append(c.subs, sub)
	return nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}

package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/crosstalk-ai/crosstalk/internal/coordinator"
	"github.com/crosstalk-ai/crosstalk/internal/platform"
)

// Link is the page side of the protocol: it satisfies the adapter's
// Coordinator interface by marshalling each call into an action-tagged
// request and waiting for the coordinator's reply.
type Link struct {
	client  *Client
	timeout time.Duration
}

func NewLink(client *Client, timeout time.Duration) *Link {
	return &Link{client: client, timeout: timeout}
}

// ExtractContext reports one captured turn. The reply's fact count is the
// coordinator's business; the page only cares that delivery succeeded.
func (l *Link) ExtractContext(ctx context.Context, turn platform.Turn) error {
	resp, err := l.request(ctx, coordinator.Request{
		Action:  coordinator.ActionExtractContext,
		Message: &turn,
	})
	if err != nil {
		return err
	}

	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(resp, &body); err != nil {
		return fmt.Errorf("unmarshal extract response: %w", err)
	}
	if body.Error != "" {
		return fmt.Errorf("extract rejected: %s", body.Error)
	}
	if !body.Success {
		return fmt.Errorf("extract rejected")
	}
	return nil
}

// RelevantContext fetches injectable context strings for an outgoing
// message.
func (l *Link) RelevantContext(ctx context.Context, query string, origin platform.Platform) ([]string, error) {
	resp, err := l.request(ctx, coordinator.Request{
		Action:   coordinator.ActionGetRelevantContext,
		Query:    query,
		Platform: string(origin),
	})
	if err != nil {
		return nil, err
	}

	var body struct {
		Context []string `json:"context"`
		Error   string   `json:"error"`
	}
	if err := json.Unmarshal(resp, &body); err != nil {
		return nil, fmt.Errorf("unmarshal context response: %w", err)
	}
	if body.Error != "" {
		return nil, fmt.Errorf("context request rejected: %s", body.Error)
	}
	return body.Context, nil
}

// OnToggle subscribes the page to enabled-flag broadcasts.
func (l *Link) OnToggle(fn func(enabled bool)) error {
	return l.client.SubscribeToggle(fn)
}

func (l *Link) request(ctx context.Context, req coordinator.Request) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	msg, err := l.client.conn.RequestWithContext(ctx, SubjectPageRequest, payload)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", req.Action, err)
	}
	return msg.Data, nil
}

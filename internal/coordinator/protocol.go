package coordinator

import (
	"context"
	"encoding/json"

	"github.com/crosstalk-ai/crosstalk/internal/platform"
)

// Recognized actions of the inter-context protocol.
const (
	ActionExtractContext     = "extractContext"
	ActionGetRelevantContext = "getRelevantContext"
	ActionGetContextStats    = "getContextStats"
	ActionToggleExtension    = "toggleExtension"
	ActionClearAllContext    = "clearAllContext"
)

// Request is one action-tagged message from a page. Fields beyond Action
// are populated per action.
type Request struct {
	Action   string         `json:"action"`
	Message  *platform.Turn `json:"message,omitempty"`  // extractContext
	Query    string         `json:"query,omitempty"`    // getRelevantContext
	Platform string         `json:"platform,omitempty"` // getRelevantContext
	Enabled  *bool          `json:"enabled,omitempty"`  // toggleExtension
}

// HandleRequest dispatches one raw protocol message and always returns a
// JSON payload; errors cross this boundary as structured results, never
// as faults.
func (c *Coordinator) HandleRequest(ctx context.Context, data []byte) []byte {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return errorPayload("malformed request")
	}

	switch req.Action {
	case ActionExtractContext:
		return c.handleExtractContext(ctx, req)
	case ActionGetRelevantContext:
		return c.handleGetRelevantContext(ctx, req)
	case ActionGetContextStats:
		return marshal(c.GetStats(ctx))
	case ActionToggleExtension:
		return c.handleToggle(ctx, req)
	case ActionClearAllContext:
		if err := c.ClearAll(ctx); err != nil {
			return marshal(map[string]any{"success": false, "error": err.Error()})
		}
		return marshal(map[string]any{"success": true})
	default:
		return errorPayload("Unknown action")
	}
}

func (c *Coordinator) handleExtractContext(ctx context.Context, req Request) []byte {
	if req.Message == nil {
		return errorPayload("missing message")
	}
	if enabled, err := c.Enabled(ctx); err == nil && !enabled {
		return marshal(map[string]any{"success": false, "error": "capture disabled"})
	}

	result, err := c.CaptureTurn(ctx, *req.Message)
	if err != nil {
		return marshal(map[string]any{"success": false, "error": err.Error()})
	}

	resp := map[string]any{"success": true, "factsExtracted": result.FactsStored}
	if result.Fallback {
		resp["fallback"] = true
	}
	return marshal(resp)
}

func (c *Coordinator) handleGetRelevantContext(ctx context.Context, req Request) []byte {
	origin, err := platform.Parse(req.Platform)
	if err != nil {
		return errorPayload(err.Error())
	}
	if enabled, err := c.Enabled(ctx); err == nil && !enabled {
		return marshal(map[string]any{"context": []string{}})
	}

	items, err := c.RelevantContext(ctx, req.Query, origin)
	if err != nil {
		return errorPayload(err.Error())
	}
	if items == nil {
		items = []string{}
	}
	return marshal(map[string]any{"context": items})
}

func (c *Coordinator) handleToggle(ctx context.Context, req Request) []byte {
	if req.Enabled == nil {
		return errorPayload("missing enabled flag")
	}
	if err := c.SetEnabled(ctx, *req.Enabled); err != nil {
		return marshal(map[string]any{"success": false, "error": err.Error()})
	}
	return marshal(map[string]any{"success": true})
}

func errorPayload(msg string) []byte {
	return marshal(map[string]string{"error": msg})
}

func marshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// Only reachable with unmarshalable values, which none of the
		// response shapes are.
		return []byte(`{"error":"internal encoding failure"}`)
	}
	return data
}

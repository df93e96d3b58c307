package handlers

import (
	"context"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/quantfolio/quantfolio/internal/modules/selection"
	"github.com/quantfolio/quantfolio/internal/modules/solver"
)

// streamTimeout bounds one streamed selection run.
const streamTimeout = 5 * time.Minute

// StreamEvent is one message on the solve-progress stream.
type StreamEvent struct {
	Type     string            `json:"type"` // "progress", "result" or "error"
	Progress *solver.Progress  `json:"progress,omitempty"`
	Result   *selection.Result `json:"result,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// HandleStream handles GET /api/selection/stream. The client sends one
// selection request as the first message and receives progress events
// followed by a result or error event.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS is enforced by the router middleware
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to accept websocket connection")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	ctx, cancel := context.WithTimeout(r.Context(), streamTimeout)
	defer cancel()

	var req selection.Request
	if err := wsjson.Read(ctx, conn, &req); err != nil {
		h.log.Debug().Err(err).Msg("Failed to read stream request")
		conn.Close(websocket.StatusInvalidFramePayloadData, "invalid request")
		return
	}

	onProgress := func(p solver.Progress) {
		event := StreamEvent{Type: "progress", Progress: &p}
		if err := wsjson.Write(ctx, conn, event); err != nil {
			h.log.Debug().Err(err).Msg("Failed to write progress event")
		}
	}

	result, err := h.service.RunWithProgress(ctx, req, onProgress)
	if err != nil {
		h.log.Warn().Err(err).Msg("Streamed selection run failed")
		_ = wsjson.Write(ctx, conn, StreamEvent{Type: "error", Error: err.Error()})
		conn.Close(websocket.StatusNormalClosure, "run failed")
		return
	}

	if err := wsjson.Write(ctx, conn, StreamEvent{Type: "result", Result: result}); err != nil {
		h.log.Error().Err(err).Msg("Failed to write result event")
		return
	}

	conn.Close(websocket.StatusNormalClosure, "done")
}

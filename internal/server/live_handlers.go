package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/foundups/pqn-detector/internal/detector"
	"github.com/foundups/pqn-detector/internal/symbols"
)

// LiveHandlers streams detector runs over a websocket as they execute.
type LiveHandlers struct {
	log zerolog.Logger
}

// NewLiveHandlers creates the live-stream handlers.
func NewLiveHandlers(log zerolog.Logger) *LiveHandlers {
	return &LiveHandlers{
		log: log.With().Str("component", "live_handlers").Logger(),
	}
}

// RegisterRoutes registers the live streaming route.
func (h *LiveHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/runs/live", h.HandleLiveRun)
}

// liveMessage is one websocket frame: an event while the run is in
// progress, then a final summary frame.
type liveMessage struct {
	Type    string          `json:"type"` // "event" or "summary"
	Event   *detector.Event `json:"event,omitempty"`
	Summary *liveSummary    `json:"summary,omitempty"`
}

type liveSummary struct {
	Steps      int            `json:"steps"`
	Events     int            `json:"events"`
	FlagCounts map[string]int `json:"flag_counts"`
}

// HandleLiveRun upgrades to a websocket, executes a run from the first
// client frame, and pushes each flagged event as it happens. The client
// sends one JSON frame matching the POST /api/runs body, then reads until
// the summary frame. Closing the socket cancels the run.
// GET /api/runs/live
func (h *LiveHandlers) HandleLiveRun(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS is enforced by the router middleware
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "run aborted")

	ctx := r.Context()

	var req runRequest
	if err := wsjson.Read(ctx, conn, &req); err != nil {
		conn.Close(websocket.StatusInvalidFramePayloadData, "invalid run request")
		return
	}

	cfg := detector.DefaultConfig()
	if req.Config != nil {
		cfg = *req.Config
	}

	src, err := symbols.NewScriptSource(req.Script)
	if err != nil {
		conn.Close(websocket.StatusInvalidFramePayloadData, err.Error())
		return
	}
	drv, err := detector.New(cfg, h.log)
	if err != nil {
		conn.Close(websocket.StatusInvalidFramePayloadData, err.Error())
		return
	}

	h.log.Info().Str("script", req.Script).Msg("Live run started")

	var streamErr error
	result, err := drv.RunWithCallback(ctx, src, func(ev detector.Event) {
		if streamErr != nil {
			return
		}
		streamErr = wsjson.Write(ctx, conn, liveMessage{Type: "event", Event: &ev})
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Live run ended early")
		return
	}
	if streamErr != nil {
		h.log.Warn().Err(streamErr).Msg("Live stream write failed")
		return
	}

	summary := liveMessage{Type: "summary", Summary: &liveSummary{
		Steps:      result.Steps,
		Events:     len(result.Events),
		FlagCounts: result.FlagCounts,
	}}
	if err := wsjson.Write(ctx, conn, summary); err != nil {
		return
	}

	conn.Close(websocket.StatusNormalClosure, "run finished")
}

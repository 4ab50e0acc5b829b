package commands

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/timewarp/internal/observability"
	"github.com/Sumatoshi-tech/timewarp/pkg/plotpage"
	"github.com/Sumatoshi-tech/timewarp/pkg/scene"
	"github.com/Sumatoshi-tech/timewarp/pkg/snapshots"
	"github.com/Sumatoshi-tech/timewarp/pkg/viewer"
)

// Sentinel errors for request validation.
var (
	// ErrBadQuery is returned for a malformed query parameter.
	ErrBadQuery = errors.New("bad query parameter")
	// ErrNotLoaded is reported by /readyz until the timeline is loaded.
	ErrNotLoaded = errors.New("timeline not loaded")
)

// ServeDeps holds the dependencies of the HTTP viewer.
type ServeDeps struct {
	Session *viewer.Session
	Logger  *slog.Logger
	Tracer  trace.Tracer
	// Metrics serves /metrics when non-nil.
	Metrics http.Handler
	Theme   plotpage.Theme
}

// pointerRequest is the body of POST /api/pointer.
type pointerRequest struct {
	Index int    `json:"index"`
	Event string `json:"event"`
}

// pointerResponse is the reply of POST /api/pointer.
type pointerResponse struct {
	Event        string             `json:"event"`
	Hovered      *viewer.Tooltip    `json:"hovered,omitempty"`
	Selection    *scene.Selection   `json:"selection,omitempty"`
	Inspection   *viewer.Inspection `json:"inspection,omitempty"`
	InspectError string             `json:"inspect_error,omitempty"`
}

type viewerHandler struct {
	session *viewer.Session
	logger  *slog.Logger
	theme   plotpage.Theme
}

// NewServeHandler builds the HTTP viewer: the HTML page, a small JSON API and
// the diagnostics endpoints, wrapped in the tracing and access-log middleware.
func NewServeHandler(deps ServeDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tracer := deps.Tracer
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer("timewarp.serve")
	}

	h := &viewerHandler{session: deps.Session, logger: logger, theme: deps.Theme}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.index)
	mux.HandleFunc("GET /frame.html", h.page)
	mux.HandleFunc("GET /api/timeline", h.timeline)
	mux.HandleFunc("GET /api/frame", h.frame)
	mux.HandleFunc("GET /api/status", h.status)
	mux.HandleFunc("POST /api/pointer", h.pointer)
	mux.HandleFunc("POST /api/reset", h.reset)

	observability.RegisterDiagnostics(mux, deps.Metrics, func(_ context.Context) error {
		if !deps.Session.Loaded() {
			return ErrNotLoaded
		}

		return nil
	})

	return observability.HTTPMiddleware(tracer, logger, mux)
}

func (h *viewerHandler) index(rw http.ResponseWriter, hr *http.Request) {
	http.Redirect(rw, hr, "/frame.html", http.StatusFound)
}

func (h *viewerHandler) page(rw http.ResponseWriter, hr *http.Request) {
	frame, ok := h.render(rw, hr)
	if !ok {
		return
	}

	rw.Header().Set("Content-Type", "text/html; charset=utf-8")

	err := plotpage.RenderFrame(rw, frame, h.session.Status(), h.theme)
	if err != nil {
		h.logger.ErrorContext(hr.Context(), "render page failed", "error", err)
	}
}

func (h *viewerHandler) timeline(rw http.ResponseWriter, hr *http.Request) {
	commits := h.session.Commits()

	entries := make([]timelineEntry, len(commits))
	for i, c := range commits {
		entries[i] = timelineEntry{Index: i, ID: c.ID, Timestamp: c.Timestamp, Message: c.Message}
	}

	writeJSON(rw, hr, http.StatusOK, entries, h.logger)
}

func (h *viewerHandler) frame(rw http.ResponseWriter, hr *http.Request) {
	frame, ok := h.render(rw, hr)
	if !ok {
		return
	}

	writeJSON(rw, hr, http.StatusOK, frameReport{Status: h.session.Status(), Frame: frame}, h.logger)
}

func (h *viewerHandler) status(rw http.ResponseWriter, hr *http.Request) {
	writeJSON(rw, hr, http.StatusOK, h.session.Status(), h.logger)
}

func (h *viewerHandler) pointer(rw http.ResponseWriter, hr *http.Request) {
	var req pointerRequest

	err := json.NewDecoder(hr.Body).Decode(&req)
	if err != nil {
		writeError(rw, hr, http.StatusBadRequest, err, h.logger)

		return
	}

	event, err := scene.ParsePointerEvent(req.Event)
	if err != nil {
		writeError(rw, hr, http.StatusBadRequest, err, h.logger)

		return
	}

	resp := pointerResponse{Event: event.String()}

	sel, clicked := h.session.Pointer(hr.Context(), req.Index, event)

	if tip, ok := h.session.Hovered(); ok {
		resp.Hovered = &tip
	}

	if clicked {
		resp.Selection = &sel

		inspection, inspectErr := h.session.Inspect(hr.Context(), sel)
		if inspectErr != nil {
			resp.InspectError = inspectErr.Error()
		} else {
			resp.Inspection = &inspection
		}
	}

	writeJSON(rw, hr, http.StatusOK, resp, h.logger)
}

func (h *viewerHandler) reset(rw http.ResponseWriter, hr *http.Request) {
	h.session.ResetCamera()
	rw.WriteHeader(http.StatusNoContent)
}

// render applies the query to the session view and assembles a frame. A
// failed snapshot fetch still yields the stale frame; the status carries the
// error text.
func (h *viewerHandler) render(rw http.ResponseWriter, hr *http.Request) (scene.Frame, bool) {
	err := applyQuery(h.session, hr.URL.Query())
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, snapshots.ErrNotFound) {
			status = http.StatusNotFound
		}

		writeError(rw, hr, status, err, h.logger)

		return scene.Frame{}, false
	}

	frame, err := h.session.Render(hr.Context())
	if err != nil {
		h.logger.WarnContext(hr.Context(), "serving stale frame", "error", err)
	}

	return frame, true
}

// applyQuery maps query parameters onto the session view. Absent parameters
// keep the current value.
func applyQuery(session *viewer.Session, q url.Values) error {
	if id := q.Get("commit"); id != "" {
		err := session.SeekCommit(id)
		if err != nil {
			return err
		}
	}

	var (
		index     *int
		hotspot   *bool
		threshold *float64
		mode      scene.ColorMode
		ticks     int
	)

	if raw := q.Get("index"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return errors.Join(ErrBadQuery, err)
		}

		index = &v
	}

	if raw := q.Get("hotspot_only"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return errors.Join(ErrBadQuery, err)
		}

		hotspot = &v
	}

	if raw := q.Get("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return errors.Join(ErrBadQuery, err)
		}

		threshold = &v
	}

	if raw := q.Get("color_mode"); raw != "" {
		v, err := scene.ParseColorMode(raw)
		if err != nil {
			return err
		}

		mode = v
	}

	if raw := q.Get("tick"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return errors.Join(ErrBadQuery, err)
		}

		ticks = v
	}

	err := session.Update(func(view *scene.ViewState) {
		if index != nil {
			view.ActiveCommitIndex = *index
		}

		if hotspot != nil {
			view.HotspotOnly = *hotspot
		}

		if threshold != nil {
			view.Threshold = *threshold
		}

		if mode != "" {
			view.ColorMode = mode
		}

		if dirs, ok := q["dir"]; ok {
			view.SelectedDirectories = dirs
		}

		if globs, ok := q["include"]; ok {
			view.PathGlobs = globs
		}
	})
	if err != nil {
		return err
	}

	for range ticks {
		session.Tick()
	}

	return nil
}

func writeJSON(rw http.ResponseWriter, hr *http.Request, status int, value any, logger *slog.Logger) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)

	err := json.NewEncoder(rw).Encode(value)
	if err != nil {
		logger.WarnContext(hr.Context(), "write response failed", "error", err)
	}
}

func writeError(rw http.ResponseWriter, hr *http.Request, status int, err error, logger *slog.Logger) {
	writeJSON(rw, hr, status, map[string]string{"error": err.Error()}, logger)
}

package commands_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/timewarp/cmd/timewarp/commands"
	"github.com/Sumatoshi-tech/timewarp/pkg/plotpage"
	"github.com/Sumatoshi-tech/timewarp/pkg/scene"
	"github.com/Sumatoshi-tech/timewarp/pkg/snapshots"
	"github.com/Sumatoshi-tech/timewarp/pkg/viewer"
)

func newTestHandler(t *testing.T, load bool) (http.Handler, *viewer.Session) {
	t.Helper()

	src, err := snapshots.ParseFixture([]byte(fixtureYAML), nil)
	require.NoError(t, err)

	session, err := viewer.NewSession(viewer.Options{
		Source: src,
		View:   scene.ViewState{Threshold: 0.5, ColorMode: scene.ColorByChurn},
	})
	require.NoError(t, err)

	if load {
		require.NoError(t, session.Load(context.Background()))
	}

	return commands.NewServeHandler(commands.ServeDeps{Session: session, Theme: plotpage.ThemeLight}), session
}

func serve(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

type frameBody struct {
	Status viewer.Status `json:"status"`
	Frame  scene.Frame   `json:"frame"`
}

func TestServeHandler_IndexRedirects(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t, true)

	rec := serve(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/frame.html", rec.Header().Get("Location"))
}

func TestServeHandler_Page(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t, true)

	rec := serve(t, h, http.MethodGet, "/frame.html?index=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "2 / 3")
	assert.Contains(t, rec.Body.String(), "echarts-gl.min.js")
}

func TestServeHandler_FrameQuery(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t, true)

	rec := serve(t, h, http.MethodGet, "/api/frame?hotspot_only=true&threshold=0.5", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body frameBody

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Frame.UsedFallback)
	assert.Equal(t, 1, body.Frame.Shown)
	assert.Equal(t, 3, body.Frame.Total)
	require.Len(t, body.Frame.Items, 1)
	assert.Equal(t, "pkg/core/engine.go", body.Frame.Items[0].Record.Path)
	assert.NotNil(t, body.Frame.Items[0].Emissive)
	assert.Equal(t, "Showing 1 / 3 files • τ=0.50", body.Status.Summary)

	// Absent parameters keep the previous view.
	rec = serve(t, h, http.MethodGet, "/api/frame", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Frame.Shown)
}

func TestServeHandler_FrameErrors(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t, true)

	rec := serve(t, h, http.MethodGet, "/api/frame?threshold=high", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), commands.ErrBadQuery.Error())

	rec = serve(t, h, http.MethodGet, "/api/frame?color_mode=rainbow", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, h, http.MethodGet, "/api/frame?include=pkg/[a", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, h, http.MethodGet, "/api/frame?commit=deadbeef", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeHandler_Timeline(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t, true)

	rec := serve(t, h, http.MethodGet, "/api/timeline", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []map[string]any

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, "bbbbbbbbbb22", entries[1]["id"])
}

func TestServeHandler_PointerClick(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t, true)

	rec := serve(t, h, http.MethodGet, "/api/frame", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body frameBody

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	index := -1

	for i, item := range body.Frame.Items {
		if item.Record.Path == "main.go" {
			index = i
		}
	}

	require.GreaterOrEqual(t, index, 0)

	payload, err := json.Marshal(map[string]any{"index": index, "event": "click"})
	require.NoError(t, err)

	rec = serve(t, h, http.MethodPost, "/api/pointer", string(payload))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Event      string           `json:"event"`
		Selection  *scene.Selection `json:"selection"`
		Inspection *struct {
			Stats struct {
				Added int `json:"added"`
			} `json:"stats"`
		} `json:"inspection"`
	}

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Selection)
	assert.Equal(t, "main.go", resp.Selection.Path)
	assert.Equal(t, "aaaaaaaaaa11", resp.Selection.CommitID)
	require.NotNil(t, resp.Inspection)
	assert.Equal(t, 2, resp.Inspection.Stats.Added)
}

func TestServeHandler_PointerBadEvent(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t, true)

	rec := serve(t, h, http.MethodPost, "/api/pointer", `{"index":0,"event":"drag"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, h, http.MethodPost, "/api/pointer", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeHandler_Reset(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t, true)

	rec := serve(t, h, http.MethodPost, "/api/reset", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestServeHandler_Diagnostics(t *testing.T) {
	t.Parallel()

	h, session := newTestHandler(t, false)

	rec := serve(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, h, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	require.NoError(t, session.Load(context.Background()))

	rec = serve(t, h, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

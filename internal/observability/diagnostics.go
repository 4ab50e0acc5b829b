package observability

import (
	"net/http"
)

const (
	pathHealthz = "/healthz"
	pathReadyz  = "/readyz"
	pathMetrics = "/metrics"
)

// RegisterDiagnostics mounts /healthz, /readyz and, when metrics is non-nil,
// /metrics on mux.
func RegisterDiagnostics(mux *http.ServeMux, metrics http.Handler, checks ...ReadyCheck) {
	mux.Handle(pathHealthz, HealthHandler())
	mux.Handle(pathReadyz, ReadyHandler(checks...))

	if metrics != nil {
		mux.Handle(pathMetrics, metrics)
	}
}

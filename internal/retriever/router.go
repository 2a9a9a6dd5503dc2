package retriever

import (
	"net/http"
	"time"

	"github.com/sehxxnee/botbuilder/pkg/health"
	"github.com/sehxxnee/botbuilder/pkg/metrics"
	"github.com/sehxxnee/botbuilder/pkg/middleware"
)

// NewRouter assembles the service mux. Checker and metrics may be nil (in
// tests); requestTimeout <= 0 disables the timeout middleware.
func NewRouter(h *Handler, checker *health.Checker, m *metrics.Metrics, requestTimeout time.Duration) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/bots/{botID}/documents", h.EnqueueDocument)
	mux.HandleFunc("POST /api/v1/bots/{botID}/retrieve", h.Retrieve)
	mux.HandleFunc("GET /api/v1/jobs/{jobID}", h.JobStatus)
	mux.HandleFunc("GET /api/v1/dead-letters", h.DeadLetters)
	if checker != nil {
		mux.HandleFunc("GET /health/live", checker.LiveHandler())
		mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	}

	var handler http.Handler = mux
	if requestTimeout > 0 {
		handler = middleware.Timeout(requestTimeout)(handler)
	}
	if m != nil {
		handler = middleware.Metrics(m)(handler)
	}
	return handler
}

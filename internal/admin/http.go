// Package admin is a read-only HTTP diagnostics surface exposing topic
// and connection introspection. It runs alongside the TCP protocol
// server, not instead of it.
package admin

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mensah-dev/brokerd/internal/telemetry"
	"github.com/mensah-dev/brokerd/internal/topic"
)

// topicLister is the subset of *topic.Registry the diagnostics handlers
// need.
type topicLister interface {
	TopicList() []string
}

type topicsResponse struct {
	Topics []string `json:"topics"`
}

type healthResponse struct {
	Status            string `json:"status"`
	ActiveConnections int64  `json:"active_connections"`
}

// NewHTTPServer builds a *http.Server exposing GET /topics and GET
// /healthz against registry. It does not call ListenAndServe; the
// caller owns the server's lifecycle so it can be shut down alongside
// the rest of the process.
func NewHTTPServer(addr string, registry *topic.Registry) *http.Server {
	h := &handler{registry: registry}
	router := mux.NewRouter()
	router.HandleFunc("/topics", h.handleTopics).Methods(http.MethodGet)
	router.HandleFunc("/healthz", h.handleHealthz).Methods(http.MethodGet)
	return &http.Server{
		Addr:    addr,
		Handler: router,
	}
}

type handler struct {
	registry topicLister
}

func (h *handler) handleTopics(w http.ResponseWriter, r *http.Request) {
	res := topicsResponse{Topics: h.registry.TopicList()}
	writeJSON(w, res)
}

func (h *handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	res := healthResponse{
		Status:            "ok",
		ActiveConnections: telemetry.ActiveConnections(),
	}
	writeJSON(w, res)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

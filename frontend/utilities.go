package frontend

import (
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/paulasmuth/brokerd/utils"
)

type HeartbeatMessage struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

func NewUtilityAPIHandlers(startTime time.Time) *utilityAPIHandlers {
	return &utilityAPIHandlers{startTime: startTime}
}

type utilityAPIHandlers struct {
	startTime time.Time
}

// Handle serves the utility endpoints (heartbeat + profiling) on their own
// listener, separate from the data API.
func (uah *utilityAPIHandlers) Handle(url string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/heartbeat", uah.heartbeat)

	mux.HandleFunc("/pprof/", pprof.Index)
	mux.HandleFunc("/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/pprof/profile", pprof.Profile)
	mux.HandleFunc("/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/pprof/trace", pprof.Trace)
	mux.Handle("/pprof/heap", pprof.Handler("heap"))
	mux.Handle("/pprof/goroutine", pprof.Handler("goroutine"))

	return http.ListenAndServe(url, mux)
}

func (uah *utilityAPIHandlers) heartbeat(rw http.ResponseWriter, _ *http.Request) {
	writeJSON(rw, http.StatusOK, HeartbeatMessage{
		Status:  "alive",
		Version: utils.Version,
		Uptime:  time.Since(uah.startTime).String(),
	})
}

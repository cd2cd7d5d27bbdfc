package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pilotlight/switchboard/internal/scheduler"
)

// SchedulerStatusHandler reports whether auto-refresh is running.
func SchedulerStatusHandler(sched *scheduler.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"running":  sched.Running(),
			"interval": sched.Interval().String(),
		})
	}
}

// StartSchedulerHandler enables auto-refresh; an optional interval in the
// body changes the period first.
func StartSchedulerHandler(sched *scheduler.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Interval string `json:"interval"`
		}
		// Body is optional.
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Interval != "" {
			d, err := time.ParseDuration(req.Interval)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid interval"})
				return
			}
			sched.SetInterval(d)
		}
		sched.Start()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"running":  sched.Running(),
			"interval": sched.Interval().String(),
		})
	}
}

// StopSchedulerHandler disables auto-refresh. Idempotent.
func StopSchedulerHandler(sched *scheduler.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sched.Stop()
		writeJSON(w, http.StatusOK, map[string]interface{}{"running": sched.Running()})
	}
}

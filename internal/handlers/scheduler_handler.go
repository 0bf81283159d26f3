package handlers

import (
	"net/http"

	"github.com/ternarybob/margin/internal/services/scheduler"
)

// SchedulerHandler exposes the recurring-job status and manual triggers.
type SchedulerHandler struct {
	scheduler *scheduler.Service
}

func NewSchedulerHandler(schedulerService *scheduler.Service) *SchedulerHandler {
	return &SchedulerHandler{
		scheduler: schedulerService,
	}
}

// JobsHandler returns the status of all registered jobs.
func (h *SchedulerHandler) JobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"running": h.scheduler.IsRunning(),
		"jobs":    h.scheduler.GetAllJobStatuses(),
	})
}

// TriggerJobHandler runs a registered job immediately.
func (h *SchedulerHandler) TriggerJobHandler(w http.ResponseWriter, r *http.Request, name string) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if err := h.scheduler.TriggerJob(name); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteStarted(w, "Job triggered: "+name)
}

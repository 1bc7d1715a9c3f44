package handlers

import (
	"net/http"
	"sort"

	"github.com/gorilla/mux"

	"github.com/wonny/boardheat/internal/scheduler"
	"github.com/wonny/boardheat/pkg/logger"
)

// JobSource is the scheduler surface exposed over HTTP
type JobSource interface {
	GetJobStats() map[string]scheduler.JobStats
	RunJob(jobName string) error
}

// JobHandler handles scheduler endpoints
type JobHandler struct {
	jobs   JobSource
	logger *logger.Logger
}

// NewJobHandler creates a new job handler
func NewJobHandler(jobs JobSource, log *logger.Logger) *JobHandler {
	return &JobHandler{jobs: jobs, logger: log}
}

// ListJobs returns per-job run statistics
// GET /api/jobs
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	stats := h.jobs.GetJobStats()
	out := make([]scheduler.JobStats, 0, len(stats))
	for _, s := range stats {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobName < out[j].JobName })

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"jobs": out,
	})
}

// TriggerJob runs a job immediately in the background
// POST /api/jobs/{name}/run
func (h *JobHandler) TriggerJob(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := h.jobs.RunJob(name); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	h.logger.WithField("job", name).Info("Job triggered via API")
	respondJSON(w, http.StatusAccepted, map[string]string{
		"job":    name,
		"status": "triggered",
	})
}

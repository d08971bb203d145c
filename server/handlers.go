package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"LoudGate/cache"
	"LoudGate/config"
	"LoudGate/core/engine"
	"LoudGate/core/gate"
	"LoudGate/core/loudness"
	"LoudGate/core/render"
	"LoudGate/logger"
	"LoudGate/model"
	"LoudGate/repository"
	"LoudGate/storage"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// APIHandler 处理所有API请求
type APIHandler struct {
	jobs         repository.JobRepository
	gate         *gate.Gate
	measurer     *loudness.Measurer
	metricsCache *cache.MetricsCache
	runner       engine.Runner
	cfg          *config.Config
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(
	jobs repository.JobRepository,
	g *gate.Gate,
	measurer *loudness.Measurer,
	metricsCache *cache.MetricsCache,
	runner engine.Runner,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		jobs:         jobs,
		gate:         g,
		measurer:     measurer,
		metricsCache: metricsCache,
		runner:       runner,
		cfg:          cfg,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type masterRequest struct {
	InputPath  string   `json:"inputPath"`
	OutputPath string   `json:"outputPath"`
	CeilingDb  *float64 `json:"ceilingDb"`
	BitDepth   int      `json:"bitDepth"`
	SampleRate int      `json:"sampleRate"`
}

// HandleSubmitMaster accepts a mastering job and runs it asynchronously.
// Responds 202 with the queued job; poll GET /api/master/{id} for progress.
func (h *APIHandler) HandleSubmitMaster(w http.ResponseWriter, r *http.Request) {
	var req masterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.InputPath == "" {
		writeError(w, http.StatusBadRequest, "inputPath is required")
		return
	}
	if _, err := os.Stat(req.InputPath); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("input file not accessible: %v", err))
		return
	}

	ceiling := h.cfg.TruePeakCeiling
	if req.CeilingDb != nil {
		ceiling = *req.CeilingDb
	}
	bitDepth := req.BitDepth
	if bitDepth == 0 {
		bitDepth = int(render.Depth24)
	}
	if _, err := render.BitDepth(bitDepth).Codec(); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported bit depth %d", bitDepth))
		return
	}
	sampleRate := req.SampleRate
	if sampleRate == 0 {
		sampleRate = h.cfg.SampleRate
	}
	outputPath := req.OutputPath
	if outputPath == "" {
		base := filepath.Base(req.InputPath)
		outputPath = filepath.Join(h.cfg.OutboxDir, base[:len(base)-len(filepath.Ext(base))]+"_mastered.wav")
	}

	job := &model.MasterJob{
		ID:         uuid.New().String(),
		InputPath:  req.InputPath,
		OutputPath: outputPath,
		CeilingDb:  ceiling,
		BitDepth:   bitDepth,
		SampleRate: sampleRate,
		Status:     model.JobQueued,
	}
	if err := h.jobs.Create(job); err != nil {
		logger.Error("failed to create job", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	go h.runJob(job)

	writeJSON(w, http.StatusAccepted, job)
}

// runJob executes the gate in the background and records the outcome.
func (h *APIHandler) runJob(job *model.MasterJob) {
	ctx := context.Background()

	if err := h.jobs.MarkProcessing(job.ID); err != nil {
		logger.Error("failed to mark job processing",
			logger.String("jobId", job.ID), logger.ErrorField(err))
	}

	if err := os.MkdirAll(filepath.Dir(job.OutputPath), 0755); err != nil {
		h.failJob(job.ID, fmt.Sprintf("failed to create output directory: %v", err))
		return
	}

	result, err := h.gate.MakeReleaseReady(ctx, gate.Params{
		InputPath:   job.InputPath,
		OutputPath:  job.OutputPath,
		CeilingDb:   job.CeilingDb,
		BitDepth:    render.BitDepth(job.BitDepth),
		SampleRate:  job.SampleRate,
		MaxAttempts: h.cfg.MaxAttempts,
	})
	if err != nil {
		h.failJob(job.ID, err.Error())
		return
	}

	// Artifact upload is best-effort; a missing URL on a completed job just
	// means the file only exists locally.
	artifactURL := ""
	objectName := fmt.Sprintf("masters/%s/%s", job.ID, filepath.Base(job.OutputPath))
	if url, err := storage.UploadMaster(ctx, h.cfg, job.OutputPath, objectName); err != nil {
		logger.Warn("artifact upload failed",
			logger.String("jobId", job.ID), logger.ErrorField(err))
	} else {
		artifactURL = url
	}

	if err := h.jobs.Complete(job.ID, result, artifactURL); err != nil {
		logger.Error("failed to record job completion",
			logger.String("jobId", job.ID), logger.ErrorField(err))
		return
	}

	logger.Info("mastering job finished",
		logger.String("jobId", job.ID),
		logger.Bool("passes", result.Passes),
		logger.Float64("gainDb", result.GainDb),
		logger.Int("attempts", len(result.Attempts)))
}

func (h *APIHandler) failJob(id, errText string) {
	logger.Error("mastering job failed",
		logger.String("jobId", id), logger.String("error", errText))
	if err := h.jobs.Fail(id, errText); err != nil {
		logger.Error("failed to record job failure",
			logger.String("jobId", id), logger.ErrorField(err))
	}
}

// HandleGetJob returns one job by id.
func (h *APIHandler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	job, err := h.jobs.GetByID(id)
	if err != nil {
		logger.Error("failed to query job", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to query job")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// HandleListJobs returns the most recent jobs.
func (h *APIHandler) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	jobs, err := h.jobs.ListRecent(limit)
	if err != nil {
		logger.Error("failed to list jobs", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

type checkRequest struct {
	Path      string   `json:"path"`
	CeilingDb *float64 `json:"ceilingDb"`
}

// HandleCheck runs the one-shot compliance check, consulting the metrics
// cache before spawning an engine run.
func (h *APIHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	ceiling := h.cfg.TruePeakCeiling
	if req.CeilingDb != nil {
		ceiling = *req.CeilingDb
	}

	var metrics *loudness.Metrics
	if cached, ok := h.metricsCache.Get(r.Context(), req.Path); ok {
		metrics = cached
	} else {
		measured, err := h.measurer.Measure(r.Context(), req.Path)
		if err != nil {
			logger.Error("measurement failed", logger.ErrorField(err))
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		metrics = measured
		h.metricsCache.Put(r.Context(), req.Path, metrics)
	}

	writeJSON(w, http.StatusOK, gate.CheckResult{
		Passes:     metrics.TruePeakDb <= ceiling+gate.DefaultPeakEpsilonDb,
		Metrics:    *metrics,
		HeadroomDb: ceiling - metrics.TruePeakDb,
	})
}

// HandleEngineStatus reports whether the engine binary is available.
func (h *APIHandler) HandleEngineStatus(w http.ResponseWriter, r *http.Request) {
	available := engine.Probe(r.Context(), h.runner, h.cfg.FFmpegPath)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ffmpegPath": h.cfg.FFmpegPath,
		"available":  available,
	})
}

// HandleHealth is a liveness endpoint.
func (h *APIHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

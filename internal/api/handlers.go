package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Veraticus/autoprep/internal/common"
	"github.com/Veraticus/autoprep/internal/engine"
	"github.com/Veraticus/autoprep/internal/ingest"
	"github.com/Veraticus/autoprep/internal/model"
	"github.com/Veraticus/autoprep/internal/service"
)

// maxUploadBytes caps the multipart dataset upload size.
const maxUploadBytes = 64 << 20 // 64 MiB

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCreateRun ingests an uploaded dataset and runs the pipeline over it.
// Multipart form fields: "dataset" (the file, required), "policy"
// (fail-fast|continue, optional).
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		s.writeError(w, http.StatusServiceUnavailable, "pipeline runner not configured")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}

	file, header, err := r.FormFile("dataset")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing dataset file")
		return
	}
	defer func() { _ = file.Close() }()

	var dataset model.Dataset
	name := header.Filename
	switch {
	case strings.HasSuffix(strings.ToLower(name), ".ofx"), strings.HasSuffix(strings.ToLower(name), ".qfx"):
		dataset, err = ingest.ReadOFX(file, name)
	default:
		dataset, err = ingest.ReadCSV(file, name)
	}
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to ingest dataset: %v", err))
		return
	}

	cfg := engine.RunConfig{}
	if policy := r.FormValue("policy"); policy != "" {
		cfg.FailurePolicy = model.FailurePolicy(policy)
		if !cfg.FailurePolicy.Valid() {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown failure policy %q", policy))
			return
		}
	}

	run, err := s.runner.Run(r.Context(), dataset, cfg)
	if err != nil && run == nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// A failed run is still a complete record; surface it with its log.
	s.writeJSON(w, http.StatusCreated, run)
}

// handleListRuns lists stored runs. Query params: dataset, status, limit,
// offset.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		s.writeError(w, http.StatusServiceUnavailable, "run store not configured")
		return
	}

	filter := service.RunFilter{
		DatasetName: r.URL.Query().Get("dataset"),
		Status:      model.RunStatus(r.URL.Query().Get("status")),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		filter.Offset = offset
	}

	runs, err := s.storage.ListRuns(r.Context(), filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []model.PipelineRun{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// handleGetRun returns one stored run by ID.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		s.writeError(w, http.StatusServiceUnavailable, "run store not configured")
		return
	}

	id := chi.URLParam(r, "id")
	run, err := s.storage.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, fmt.Sprintf("run %q not found", id))
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

// handleListTransformers returns the transformer catalog.
func (s *Server) handleListTransformers(w http.ResponseWriter, _ *http.Request) {
	if s.registry == nil {
		s.writeError(w, http.StatusServiceUnavailable, "transformer registry not configured")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"transformers": s.registry.Specs()})
}

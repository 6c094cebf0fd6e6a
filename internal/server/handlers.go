package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/silabo/internal/models"
	"github.com/hyperjump/silabo/internal/storage"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	courses, err := s.repo.Count(ctx)
	if err != nil {
		s.logger.Error("status: count courses failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"courses":        courses,
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
	}
	if s.index != nil {
		if n, err := s.index.DocCount(); err == nil {
			resp["indexed"] = n
		}
	}
	if s.config != nil {
		periods := make([]string, 0, len(s.config.Periods))
		for k := range s.config.Periods {
			periods = append(periods, k)
		}
		sort.Strings(periods)
		resp["periods"] = periods
		resp["config"] = map[string]interface{}{
			"input_directories": s.config.Input.Directories,
			"json_dir":          s.config.Output.JSONDir,
			"database_path":     s.config.Storage.DatabasePath,
			"bleve_index_path":  s.config.Storage.BleveIndexPath,
			"workers":           s.config.Pipeline.Workers,
		}
		usage, err := storage.DiskUsage(s.config.Output.JSONDir, s.config.Storage.DatabasePath, s.config.Storage.BleveIndexPath)
		if err == nil {
			resp["disk_usage_bytes"] = storage.TotalBytes(usage)
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	var (
		courses []*models.CourseRecord
		err     error
	)
	if period := r.URL.Query().Get("period"); period != "" {
		courses, err = s.repo.FindByPeriod(r.Context(), period)
	} else {
		courses, err = s.repo.List(r.Context())
	}
	if err != nil {
		s.logger.Error("list courses failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"courses": courses, "total": len(courses)})
}

// handleGetCourse accepts a course key ("{course_id}_{nrc}") or a bare course id.
func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.repo.FindByKey(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		rec, err = s.repo.FindByID(r.Context(), id)
	}
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "course not found")
		return
	}
	if err != nil {
		s.logger.Error("get course failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		s.respondError(w, http.StatusNotImplemented, "search not enabled")
		return
	}
	q := r.URL.Query()
	query := models.SearchQuery{
		Query:  q.Get("q"),
		Period: q.Get("period"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		query.Limit = n
	}
	if v := q.Get("fuzzy"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "fuzzy must be a boolean")
			return
		}
		query.FuzzyEnabled = b
	}
	if query.Query == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.String("period", query.Period))
	resp, err := s.index.Search(r.Context(), &query)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type processRequest struct {
	Path string `json:"path"`
}

// handleProcess runs the pipeline on one syllabus, or on every syllabus under a directory.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if s.pipeline == nil {
		s.respondError(w, http.StatusNotImplemented, "processing not enabled")
		return
	}
	var req processRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	ctx := r.Context()
	info, err := os.Stat(req.Path)
	if err == nil && info.IsDir() {
		summary, err := s.pipeline.ProcessDirectory(ctx, req.Path)
		if err != nil {
			s.logger.Error("process directory failed", zap.String("path", req.Path), zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.respondJSON(w, http.StatusOK, summary)
		return
	}

	res := s.pipeline.ProcessFile(ctx, req.Path)
	if res.Failure != nil {
		s.respondJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	if !res.Skipped {
		if err := s.pipeline.RefreshOutputs(ctx); err != nil {
			s.logger.Warn("failed to refresh outputs", zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

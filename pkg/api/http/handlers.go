package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/aescanero/dagoflow/pkg/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CreateGraphResponse represents a graph creation response
type CreateGraphResponse struct {
	GraphID string `json:"graph_id"`
}

// RunRequest represents a run request on /api/v1/graphs/:id/runs
type RunRequest struct {
	InitialState domain.State `json:"initial_state"`
}

// LegacyRunRequest represents a run request on /graph/run
type LegacyRunRequest struct {
	GraphID      string       `json:"graph_id" binding:"required"`
	InitialState domain.State `json:"initial_state"`
}

// LegacyRunResponse represents the /graph/run response
type LegacyRunResponse struct {
	RunID       string             `json:"run_id"`
	FinalState  domain.State       `json:"final_state"`
	Log         []domain.LogEntry  `json:"log"`
	Termination domain.Termination `json:"termination"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	checks := gin.H{"orchestrator": "ok"}
	status := http.StatusOK
	health := "healthy"

	if s.pool != nil {
		if s.pool.Health().IsHealthy() {
			checks["workers"] = "ok"
		} else {
			checks["workers"] = "unhealthy"
			status = http.StatusServiceUnavailable
			health = "unhealthy"
		}
	}

	c.JSON(status, gin.H{
		"status":      health,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"active_runs": s.orchestrator.ActiveRuns(),
		"checks":      checks,
	})
}

// handleCreateGraph handles graph creation
func (s *Server) handleCreateGraph(c *gin.Context) {
	s.createGraph(c, http.StatusCreated, http.StatusBadRequest)
}

// handleLegacyCreateGraph registers a graph on /graph/create, which answers
// 200 and rejects malformed bodies with 422
func (s *Server) handleLegacyCreateGraph(c *gin.Context) {
	s.createGraph(c, http.StatusOK, http.StatusUnprocessableEntity)
}

func (s *Server) createGraph(c *gin.Context, created, invalid int) {
	var spec domain.GraphSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		s.invalidRequest(c, invalid, err)
		return
	}

	graphID, err := s.orchestrator.CreateGraph(c.Request.Context(), &spec)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(created, CreateGraphResponse{GraphID: graphID})
}

// handleListGraphs handles listing graphs
func (s *Server) handleListGraphs(c *gin.Context) {
	ids, err := s.orchestrator.ListGraphs(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"graphs": ids,
		"total":  len(ids),
	})
}

// handleGetGraph handles getting a graph definition
func (s *Server) handleGetGraph(c *gin.Context) {
	spec, err := s.orchestrator.GetGraph(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, spec)
}

// handleRunGraph starts a run. With ?async=true it answers 202 with the
// freshly created run; otherwise it waits for the run to finish.
func (s *Server) handleRunGraph(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		s.invalidRequest(c, http.StatusBadRequest, err)
		return
	}
	initial := req.InitialState
	if initial == nil {
		initial = domain.State{}
	}

	graphID := c.Param("id")

	if c.Query("async") == "true" {
		run, err := s.orchestrator.StartRun(c.Request.Context(), graphID, initial)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, run)
		return
	}

	run, err := s.orchestrator.RunGraph(c.Request.Context(), graphID, initial)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, run)
}

// handleListRuns handles listing runs, optionally filtered by graph_id
func (s *Server) handleListRuns(c *gin.Context) {
	runs, err := s.orchestrator.ListRuns(c.Request.Context(), c.Query("graph_id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"total": len(runs),
	})
}

// handleGetRun handles getting a run, finished or in flight
func (s *Server) handleGetRun(c *gin.Context) {
	run, err := s.orchestrator.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, run)
}

// handleGetWorkers reports the worker pool
func (s *Server) handleGetWorkers(c *gin.Context) {
	if s.pool == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrorDetail{
				Code:    "NOT_FOUND",
				Message: "worker pool not configured",
			},
		})
		return
	}

	statuses := s.pool.GetStatus()
	ids := make([]string, 0, len(statuses))
	for id := range statuses {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	workers := make([]gin.H, 0, len(ids))
	for _, id := range ids {
		workers = append(workers, gin.H{"id": id, "state": statuses[id]})
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":   s.pool.Health().GetStatus(),
		"workers": workers,
	})
}

// handleLegacyRun runs a graph synchronously
func (s *Server) handleLegacyRun(c *gin.Context) {
	var req LegacyRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.invalidRequest(c, http.StatusUnprocessableEntity, err)
		return
	}
	if req.InitialState == nil {
		req.InitialState = domain.State{}
	}

	run, err := s.orchestrator.RunGraph(c.Request.Context(), req.GraphID, req.InitialState)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, LegacyRunResponse{
		RunID:       run.RunID,
		FinalState:  run.State,
		Log:         run.Log,
		Termination: run.Termination,
	})
}

// handleLegacyState returns a run
func (s *Server) handleLegacyState(c *gin.Context) {
	run, err := s.orchestrator.GetRun(c.Request.Context(), c.Param("run_id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, run)
}

func (s *Server) invalidRequest(c *gin.Context, status int, err error) {
	s.logger.Debug("invalid request", zap.Error(err))
	c.JSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		},
	})
}

// respondError maps domain errors onto HTTP statuses
func (s *Server) respondError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"

	switch {
	case errors.Is(err, domain.ErrGraphNotFound), errors.Is(err, domain.ErrRunNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrInvalidGraph):
		status, code = http.StatusUnprocessableEntity, "INVALID_GRAPH"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusServiceUnavailable, "UNAVAILABLE"
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}

	c.JSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: err.Error(),
		},
	})
}

// Ingestion HTTP handlers.
//
// This file exposes the operational endpoints of the pipeline:
//   - POST /ingest  (run one fetch/clean/translate/classify/store pass)
//   - GET  /runs    (recent run history, newest first)
//
// POST /ingest executes the run synchronously; it is intended for manual
// triggering and for external schedulers, not for high-frequency callers.
// Steady-state ingestion runs through the dedicated ingest binary.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-sky-sentiment/internal/domain"
	"github.com/tbourn/go-sky-sentiment/internal/pipeline"
	"github.com/tbourn/go-sky-sentiment/internal/repo"
	"github.com/tbourn/go-sky-sentiment/internal/utils"
)

// IngestRequest is the JSON payload for triggering an ingestion run.
type IngestRequest struct {
	// Query overrides the configured default search term when non-empty.
	Query string `json:"query" example:"Macron"`
}

// ListRunsResponse contains recent ingestion runs.
type ListRunsResponse struct {
	Runs []domain.IngestRun `json:"runs"`
}

// IngestFailureResponse is the 502 payload for a run that failed mid-fetch:
// the standard error envelope plus the partial run report.
type IngestFailureResponse struct {
	ErrorResponse
	Report *pipeline.Report `json:"report"`
}

// Ingest godoc
// @ID          ingest
// @Summary     Trigger an ingestion run
// @Description Fetches, cleans, translates, classifies, and stores posts for
// @Description the query, then returns the run report. The run executes
// @Description synchronously.
// @Tags        Ingestion
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.IngestRequest  false  "Run options"
//
// @Success     200  {object}  pipeline.Report
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     502  {object}  handlers.IngestFailureResponse "Feed unavailable; includes the partial report"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /ingest [post]
func (h *Handlers) Ingest(c *gin.Context) {
	var req IngestRequest
	// The body is optional; only a malformed one is rejected.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "malformed request body")
			return
		}
	}
	query := req.Query
	if query == "" {
		query = h.defaultQuery
	}

	report, err := h.ingester.Run(c.Request.Context(), query)
	if err != nil {
		if errors.Is(err, pipeline.ErrFetchFailed) && report != nil {
			// A partial report still tells the caller what was stored.
			failWith(c, http.StatusBadGateway, ErrCodeIngestFailed, err.Error(), IngestFailureResponse{
				ErrorResponse: errorEnvelope(c, ErrCodeIngestFailed, err.Error()),
				Report:        report,
			})
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeIngestFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, report)
}

// ListRuns godoc
// @ID          listRuns
// @Summary     List recent ingestion runs
// @Description Returns the most recent run records, newest first.
// @Tags        Ingestion
// @Produce     json
//
// @Param       limit  query  int  false  "Maximum runs to return"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListRunsResponse
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /runs [get]
func (h *Handlers) ListRuns(c *gin.Context) {
	limit := utils.AtoiDefault(c.Query("limit"), 20)
	if limit > 100 {
		limit = 100
	}

	runs, err := repo.ListRuns(c.Request.Context(), h.db, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListRunsResponse{Runs: runs})
}

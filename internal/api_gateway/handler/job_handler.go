package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mediaforge/generation-ledger/internal/api_gateway/service"
	"github.com/mediaforge/generation-ledger/internal/domain/job"
)

// JobHandler handles HTTP requests for job records
type JobHandler struct {
	jobService service.JobService
	logger     *slog.Logger
}

// NewJobHandler creates a new job handler
func NewJobHandler(logger *slog.Logger, jobService service.JobService) *JobHandler {
	return &JobHandler{
		jobService: jobService,
		logger:     logger,
	}
}

// GetByID retrieves a job by its ID, returns 404 if not found
func (h *JobHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid job ID")
		return
	}

	j, err := h.jobService.GetJob(c.Request.Context(), id)
	if err != nil {
		var notFound job.ErrJobNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Job not found")
			return
		}
		h.logger.Error("Failed to get job", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapJobToResponse(j))
}

// GetByAccountID retrieves paginated job history for an account
func (h *JobHandler) GetByAccountID(c *gin.Context) {
	accountIDParam := c.Param("accountId")
	accountID, err := uuid.Parse(accountIDParam)
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	jobs, total, err := h.jobService.ListJobsByAccount(c.Request.Context(), accountID, pagination.Page, pagination.PerPage)
	if err != nil {
		h.logger.Error("Failed to list jobs", "account_id", accountIDParam, "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]JobResponse, 0, len(jobs))
	for _, j := range jobs {
		responses = append(responses, mapJobToResponse(j))
	}

	RespondWithPaginatedData(c, 200, responses, pagination.Page, pagination.PerPage, int(total))
}

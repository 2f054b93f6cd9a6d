package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/sumo-flow-backend/internal/models"
	"github.com/jengzang/sumo-flow-backend/internal/service"
	"github.com/jengzang/sumo-flow-backend/pkg/response"
)

// PipelineHandler handles HTTP requests for pipeline runs
type PipelineHandler struct {
	service *service.PipelineService
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(service *service.PipelineService) *PipelineHandler {
	return &PipelineHandler{service: service}
}

// StartRunRequest is the optional body of a run request. Params may carry
// threshold, range_start, range_end, edgedata_date, edgedata_slot and
// edgedata_duration; they apply to this run only.
type StartRunRequest struct {
	Params map[string]interface{} `json:"params"`
}

// StartRun starts an asynchronous pipeline run
// POST /api/v1/pipeline/runs
func (h *PipelineHandler) StartRun(c *gin.Context) {
	var req StartRunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}
	}
	if req.Params == nil {
		req.Params = map[string]interface{}{}
	}
	if user := c.GetString("user"); user != "" {
		req.Params["requested_by"] = user
	}

	run, err := h.service.StartRun(models.RunTriggerAPI, req.Params)
	if err != nil {
		fail(c, err)
		return
	}

	response.Accepted(c, run)
}

// GetRun retrieves a run by ID
// GET /api/v1/pipeline/runs/:id
func (h *PipelineHandler) GetRun(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid run ID")
		return
	}

	run, err := h.service.GetRun(id)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, run)
}

// ListRuns retrieves runs newest first
// GET /api/v1/pipeline/runs
func (h *PipelineHandler) ListRuns(c *gin.Context) {
	status := c.Query("status")
	limit, offset, ok := pageParams(c, "20")
	if !ok {
		return
	}

	runs, err := h.service.ListRuns(status, limit, offset)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"runs":   runs,
		"busy":   h.service.Busy(),
		"limit":  limit,
		"offset": offset,
	})
}

// pageParams reads limit and offset, answering 400 itself when malformed
func pageParams(c *gin.Context, defaultLimit string) (limit, offset int, ok bool) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", defaultLimit))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid limit parameter")
		return 0, 0, false
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid offset parameter")
		return 0, 0, false
	}
	return limit, offset, true
}

package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/sumo-flow-backend/internal/service"
	"github.com/jengzang/sumo-flow-backend/pkg/response"
)

// RoadNameHandler handles HTTP requests for the road name table
type RoadNameHandler struct {
	service *service.RoadNameService
}

// NewRoadNameHandler creates a new road name handler
func NewRoadNameHandler(service *service.RoadNameService) *RoadNameHandler {
	return &RoadNameHandler{service: service}
}

// List returns stored road names
// GET /api/v1/road-names?unresolved=true
func (h *RoadNameHandler) List(c *gin.Context) {
	unresolved, err := strconv.ParseBool(c.DefaultQuery("unresolved", "false"))
	if err != nil {
		response.BadRequest(c, "Invalid unresolved parameter")
		return
	}
	limit, offset, ok := pageParams(c, "100")
	if !ok {
		return
	}

	entries, err := h.service.List(unresolved, limit, offset)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	stats, err := h.service.Stats()
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"road_names": entries,
		"stats":      stats,
		"limit":      limit,
		"offset":     offset,
	})
}

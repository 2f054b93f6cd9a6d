package handler

import (
	"bytes"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/sumo-flow-backend/internal/service"
	"github.com/jengzang/sumo-flow-backend/internal/sumoxml"
	"github.com/jengzang/sumo-flow-backend/pkg/response"
)

// EdgeDataHandler serves edge data documents
type EdgeDataHandler struct {
	service *service.EdgeDataService
}

// NewEdgeDataHandler creates a new edge data handler
func NewEdgeDataHandler(service *service.EdgeDataService) *EdgeDataHandler {
	return &EdgeDataHandler{service: service}
}

// Get renders the edge data interval for a date and time slot
// GET /api/v1/edgedata?date=01/02/2024&slot=07:00-08:00
func (h *EdgeDataHandler) Get(c *gin.Context) {
	interval, err := h.service.Render(c.Query("date"), c.Query("slot"))
	if err != nil {
		fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := sumoxml.WriteEdgeData(&buf, interval); err != nil {
		response.InternalError(c, err.Error())
		return
	}
	response.XML(c, buf.Bytes())
}

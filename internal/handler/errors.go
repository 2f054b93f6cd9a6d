package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/sumo-flow-backend/internal/models"
	"github.com/jengzang/sumo-flow-backend/internal/repository"
	"github.com/jengzang/sumo-flow-backend/internal/service"
	"github.com/jengzang/sumo-flow-backend/pkg/response"
)

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	var (
		missing *models.MissingInputError
		format  *models.FormatError
		empty   *models.EmptyResultError
	)
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.As(err, &missing):
		return http.StatusNotFound
	case errors.Is(err, service.ErrRunInProgress):
		return http.StatusConflict
	case errors.As(err, &format):
		return http.StatusBadRequest
	case errors.As(err, &empty):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	response.Error(c, statusFor(err), err.Error())
}

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/workerbridge/errors"
)

// DataResponse is the success envelope.
type DataResponse struct {
	Data any `json:"data"`
}

// RespondWithError writes err as an error body with a matching status.
func RespondWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(errors.HTTPStatus(err), errors.HTTPBody(err))
}

// RespondOK sends a 200 response wrapping data.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}

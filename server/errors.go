package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hupe1980/agentstudio"
	"github.com/hupe1980/agentstudio/core"
	"github.com/hupe1980/agentstudio/execution"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func abort(c *gin.Context, status int, kind string, err error) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: kind, Message: err.Error(), Code: status})
}

// writeError maps domain errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrAgentNotFound),
		errors.Is(err, core.ErrWorkflowNotFound),
		errors.Is(err, execution.ErrNotFound):
		abort(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, agentstudio.ErrInvalidInput):
		abort(c, http.StatusBadRequest, "invalid_request", err)
	case errors.Is(err, agentstudio.ErrAgentNotDeployed),
		errors.Is(err, agentstudio.ErrAgentAlreadyDeployed),
		errors.Is(err, agentstudio.ErrAgentInUse),
		errors.Is(err, agentstudio.ErrWorkflowBusy),
		errors.Is(err, execution.ErrNotCancelable):
		abort(c, http.StatusBadRequest, "conflict", err)
	default:
		abort(c, http.StatusInternalServerError, "internal_error", err)
	}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		abort(c, http.StatusBadRequest, "invalid_request", errors.New(name+" must be an integer"))
		return 0, false
	}
	return id, true
}

type pageQuery struct {
	Skip  int `form:"skip" binding:"gte=0"`
	Limit int `form:"limit" binding:"gte=0,lte=1000"`
}

func listOptions(c *gin.Context) (core.ListOptions, bool) {
	q := pageQuery{Limit: 100}
	if err := c.ShouldBindQuery(&q); err != nil {
		abort(c, http.StatusBadRequest, "invalid_request", err)
		return core.ListOptions{}, false
	}
	return core.ListOptions{Skip: q.Skip, Limit: q.Limit}, true
}

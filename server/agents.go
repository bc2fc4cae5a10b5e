package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hupe1980/agentstudio"
	"github.com/hupe1980/agentstudio/core"
	"github.com/hupe1980/agentstudio/execution"
)

var errInvalidJSON = errors.New("request body is not valid JSON")

// ExecuteRequest is the body of the execute endpoints.
type ExecuteRequest struct {
	InputData map[string]any `json:"input_data"`
}

// bindExecuteRequest accepts an empty body as empty input.
func bindExecuteRequest(c *gin.Context) (ExecuteRequest, bool) {
	var req ExecuteRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, "invalid_request", err)
			return req, false
		}
	}
	if req.InputData == nil {
		req.InputData = map[string]any{}
	}
	return req, true
}

func createAgentHandler(studio *agentstudio.Studio) gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg := core.AgentConfig{
			Temperature: core.DefaultTemperature,
			MaxTokens:   core.DefaultMaxTokens,
		}
		if err := c.ShouldBindJSON(&cfg); err != nil {
			abort(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
		a, err := studio.CreateAgent(c.Request.Context(), cfg)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, a)
	}
}

func listAgentsHandler(studio *agentstudio.Studio) gin.HandlerFunc {
	return func(c *gin.Context) {
		opts, ok := listOptions(c)
		if !ok {
			return
		}
		agents, err := studio.ListAgents(c.Request.Context(), opts)
		if err != nil {
			writeError(c, err)
			return
		}
		if agents == nil {
			agents = []*core.AgentConfig{}
		}
		c.JSON(http.StatusOK, agents)
	}
}

func getAgentHandler(studio *agentstudio.Studio) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "agent_id")
		if !ok {
			return
		}
		a, err := studio.GetAgent(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, a)
	}
}

// updateAgentHandler merges the request body over the stored configuration,
// so fields absent from the body keep their values.
func updateAgentHandler(studio *agentstudio.Studio) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "agent_id")
		if !ok {
			return
		}
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			abort(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
		if !json.Valid(body) {
			abort(c, http.StatusBadRequest, "invalid_request", errInvalidJSON)
			return
		}

		var decodeErr error
		a, err := studio.UpdateAgent(c.Request.Context(), id, func(a *core.AgentConfig) {
			status, created := a.Status, a.CreatedAt
			decodeErr = json.Unmarshal(body, a)
			a.Status, a.CreatedAt = status, created
		})
		if decodeErr != nil {
			abort(c, http.StatusBadRequest, "invalid_request", decodeErr)
			return
		}
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, a)
	}
}

func deleteAgentHandler(studio *agentstudio.Studio) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "agent_id")
		if !ok {
			return
		}
		if err := studio.DeleteAgent(c.Request.Context(), id); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Agent deleted successfully"})
	}
}

func deployAgentHandler(studio *agentstudio.Studio) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "agent_id")
		if !ok {
			return
		}
		a, err := studio.DeployAgent(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, a)
	}
}

// executeAgentHandler answers 200 with the execution record, including
// failed runs. Clients read the record status.
func executeAgentHandler(studio *agentstudio.Studio) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "agent_id")
		if !ok {
			return
		}
		req, ok := bindExecuteRequest(c)
		if !ok {
			return
		}
		rec, err := studio.ExecuteAgent(c.Request.Context(), id, req.InputData)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

func listAgentExecutionsHandler(studio *agentstudio.Studio) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "agent_id")
		if !ok {
			return
		}
		opts, ok := listOptions(c)
		if !ok {
			return
		}
		recs, err := studio.ListAgentExecutions(c.Request.Context(), id, opts)
		if err != nil {
			writeError(c, err)
			return
		}
		writeRecords(c, recs)
	}
}

func listAgentRunsHandler(studio *agentstudio.Studio) gin.HandlerFunc {
	return func(c *gin.Context) {
		opts, ok := listOptions(c)
		if !ok {
			return
		}
		recs, err := studio.ListExecutions(c.Request.Context(), execution.Filter{
			Kind:        execution.KindAgent,
			ListOptions: opts,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		writeRecords(c, recs)
	}
}

func getExecutionHandler(studio *agentstudio.Studio) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := studio.GetExecution(c.Request.Context(), c.Param("execution_id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

func writeRecords(c *gin.Context, recs []*execution.Record) {
	if recs == nil {
		recs = []*execution.Record{}
	}
	c.JSON(http.StatusOK, recs)
}

package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hupe1980/agentstudio"
	"github.com/hupe1980/agentstudio/core"
)

// CreateWorkflowRequest is the body of POST /api/multi-agent-workflows.
type CreateWorkflowRequest struct {
	Name        string                  `json:"name" binding:"required,max=255"`
	Description string                  `json:"description"`
	Definition  core.WorkflowDefinition `json:"workflow_definition"`
}

// UpdateWorkflowRequest is the body of PUT /api/multi-agent-workflows/:id.
type UpdateWorkflowRequest struct {
	Name        *string                  `json:"name" binding:"omitempty,min=1,max=255"`
	Description *string                  `json:"description"`
	Definition  *core.WorkflowDefinition `json:"workflow_definition"`
	Status      *core.WorkflowStatus     `json:"status" binding:"omitempty,oneof=draft active archived"`
}

type deleteWorkflowQuery struct {
	Force bool `form:"force"`
}

func createWorkflowHandler(studio *agentstudio.Studio) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateWorkflowRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
		wf, err := studio.CreateWorkflow(c.Request.Context(), req.Name, req.Description, req.Definition)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, wf)
	}
}

func listWorkflowsHandler(studio *agentstudio.Studio) gin.HandlerFunc {
	return func(c *gin.Context) {
		opts, ok := listOptions(c)
		if !ok {
			return
		}
		wfs, err := studio.ListWorkflows(c.Request.Context(), opts)
		if err != nil {
			writeError(c, err)
			return
		}
		if wfs == nil {
			wfs = []*core.Workflow{}
		}
		c.JSON(http.StatusOK, wfs)
	}
}

func getWorkflowHandler(studio *agentstudio.Studio) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "workflow_id")
		if !ok {
			return
		}
		wf, err := studio.GetWorkflow(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, wf)
	}
}

func updateWorkflowHandler(studio *agentstudio.Studio) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "workflow_id")
		if !ok {
			return
		}
		var req UpdateWorkflowRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
		wf, err := studio.UpdateWorkflow(c.Request.Context(), id, agentstudio.WorkflowUpdate{
			Name:        req.Name,
			Description: req.Description,
			Definition:  req.Definition,
			Status:      req.Status,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, wf)
	}
}

func deleteWorkflowHandler(studio *agentstudio.Studio) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "workflow_id")
		if !ok {
			return
		}
		var q deleteWorkflowQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			abort(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
		wf, err := studio.GetWorkflow(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		if err := studio.DeleteWorkflow(c.Request.Context(), id, q.Force); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Workflow '%s' deleted successfully", wf.Name)})
	}
}

func executeWorkflowHandler(studio *agentstudio.Studio) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "workflow_id")
		if !ok {
			return
		}
		req, ok := bindExecuteRequest(c)
		if !ok {
			return
		}
		rec, err := studio.ExecuteWorkflow(c.Request.Context(), id, req.InputData)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

func listWorkflowExecutionsHandler(studio *agentstudio.Studio) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "workflow_id")
		if !ok {
			return
		}
		opts, ok := listOptions(c)
		if !ok {
			return
		}
		if _, err := studio.GetWorkflow(c.Request.Context(), id); err != nil {
			writeError(c, err)
			return
		}
		recs, err := studio.ListWorkflowExecutions(c.Request.Context(), id, opts)
		if err != nil {
			writeError(c, err)
			return
		}
		writeRecords(c, recs)
	}
}

func cancelExecutionHandler(studio *agentstudio.Studio) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "workflow_id")
		if !ok {
			return
		}
		executionID := c.Param("execution_id")
		rec, err := studio.CancelWorkflowExecution(c.Request.Context(), id, executionID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":   fmt.Sprintf("Execution %s canceled successfully", executionID),
			"execution": rec,
		})
	}
}

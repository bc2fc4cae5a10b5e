package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hupe1980/agentstudio"
	"github.com/hupe1980/agentstudio/tool"
)

// ExecuteToolRequest is the body of POST /api/v1/tools/execute.
type ExecuteToolRequest struct {
	ToolID     string         `json:"tool_id" binding:"required"`
	Parameters map[string]any `json:"parameters"`
	Config     tool.Config    `json:"config"`
}

type listToolsQuery struct {
	Category    string `form:"category"`
	EnabledOnly *bool  `form:"enabled_only"`
}

func listToolsHandler(studio *agentstudio.Studio) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q listToolsQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			abort(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
		enabledOnly := q.EnabledOnly == nil || *q.EnabledOnly
		tools := studio.ListTools(q.Category, enabledOnly)
		if tools == nil {
			tools = []tool.Descriptor{}
		}
		c.JSON(http.StatusOK, tools)
	}
}

func getToolHandler(studio *agentstudio.Studio) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("tool_id")
		d, ok := studio.GetTool(id)
		if !ok {
			abort(c, http.StatusNotFound, "not_found", fmt.Errorf("%w: %s", tool.ErrToolNotFound, id))
			return
		}
		c.JSON(http.StatusOK, d)
	}
}

// executeToolHandler always answers 200; tool failures are reported in the
// result body.
func executeToolHandler(studio *agentstudio.Studio) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ExecuteToolRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
		c.JSON(http.StatusOK, studio.ExecuteTool(c.Request.Context(), req.ToolID, req.Parameters, req.Config))
	}
}

func executeToolByPathHandler(studio *agentstudio.Studio) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Parameters map[string]any `json:"parameters"`
			Config     tool.Config    `json:"config"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
		c.JSON(http.StatusOK, studio.ExecuteTool(c.Request.Context(), c.Param("tool_id"), req.Parameters, req.Config))
	}
}

func toolDefinitionsHandler(studio *agentstudio.Studio) gin.HandlerFunc {
	return func(c *gin.Context) {
		var ids []string
		for _, id := range strings.Split(c.Query("tool_ids"), ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		c.JSON(http.StatusOK, gin.H{"tools": studio.ToolDefinitions(ids...)})
	}
}

func toolStatsHandler(studio *agentstudio.Studio) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, studio.ToolStats())
	}
}

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/paxoscn/avalon-sub003/internal/services"
	"github.com/paxoscn/avalon-sub003/pkg/models"
	"github.com/paxoscn/avalon-sub003/pkg/observability"
)

// ToolsAPI handles tool management endpoints
type ToolsAPI struct {
	toolService services.ToolsServiceInterface
	logger      observability.Logger
	metrics     observability.MetricsClient
}

// NewToolsAPI creates a new tools API handler
func NewToolsAPI(toolService services.ToolsServiceInterface, logger observability.Logger, metrics observability.MetricsClient) *ToolsAPI {
	return &ToolsAPI{
		toolService: toolService,
		logger:      logger,
		metrics:     metrics,
	}
}

// RegisterRoutes registers all tool API routes
func (api *ToolsAPI) RegisterRoutes(router *gin.RouterGroup) {
	tools := router.Group("/tools")
	{
		tools.GET("", api.ListTools)
		tools.POST("", api.CreateTool)
		tools.GET("/:toolId", api.GetTool)
		tools.DELETE("/:toolId", api.DeleteTool)

		// Versioning
		tools.PUT("/:toolId/config", api.SaveConfiguration)
		tools.GET("/:toolId/versions", api.ListVersions)
		tools.GET("/:toolId/versions/:version", api.GetVersion)
		tools.POST("/:toolId/rollback", api.Rollback)
	}
}

// ListTools lists all configured tools for the tenant
func (api *ToolsAPI) ListTools(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	status := c.Query("status")

	tools, err := api.toolService.ListTools(c.Request.Context(), tenantID, status)
	if err != nil {
		api.fail(c, "list", err, "Failed to list tools")
		return
	}
	if tools == nil {
		tools = []*models.Tool{}
	}
	c.JSON(http.StatusOK, gin.H{"tools": tools, "count": len(tools)})
}

// CreateTool registers a new tool with its initial configuration
func (api *ToolsAPI) CreateTool(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var req services.CreateToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tool, err := api.toolService.CreateTool(c.Request.Context(), tenantID, c.GetString("user_id"), req)
	if err != nil {
		api.fail(c, "create", err, "Failed to create tool")
		return
	}
	c.JSON(http.StatusCreated, tool)
}

// GetTool returns a single tool
func (api *ToolsAPI) GetTool(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	toolID := c.Param("toolId")

	tool, err := api.toolService.GetTool(c.Request.Context(), tenantID, toolID)
	if err != nil {
		api.fail(c, "get", err, "Failed to get tool")
		return
	}
	c.JSON(http.StatusOK, tool)
}

// DeleteTool removes a tool and its version history
func (api *ToolsAPI) DeleteTool(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	toolID := c.Param("toolId")

	if err := api.toolService.DeleteTool(c.Request.Context(), tenantID, c.GetString("user_id"), toolID); err != nil {
		api.fail(c, "delete", err, "Failed to delete tool")
		return
	}
	c.Status(http.StatusNoContent)
}

// SaveConfigurationRequest is the payload for freezing a new version
type SaveConfigurationRequest struct {
	Config    models.ToolConfigSnapshot `json:"config" binding:"required"`
	ChangeLog string                    `json:"change_log"`
}

// SaveConfiguration freezes the submitted configuration as a new version
func (api *ToolsAPI) SaveConfiguration(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	toolID := c.Param("toolId")

	var req SaveConfigurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	version, err := api.toolService.SaveConfiguration(
		c.Request.Context(), tenantID, toolID, c.GetString("user_id"), req.Config, req.ChangeLog)
	if err != nil {
		api.fail(c, "save_configuration", err, "Failed to save configuration")
		return
	}
	c.JSON(http.StatusCreated, version)
}

// ListVersions returns the full version history of a tool, newest first
func (api *ToolsAPI) ListVersions(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	toolID := c.Param("toolId")

	versions, err := api.toolService.ListVersions(c.Request.Context(), tenantID, toolID)
	if err != nil {
		api.fail(c, "list_versions", err, "Failed to list versions")
		return
	}
	if versions == nil {
		versions = []*models.ToolVersion{}
	}
	c.JSON(http.StatusOK, gin.H{"versions": versions, "count": len(versions)})
}

// GetVersion returns one version by number
func (api *ToolsAPI) GetVersion(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	toolID := c.Param("toolId")

	version, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid version number"})
		return
	}

	v, err := api.toolService.GetVersion(c.Request.Context(), tenantID, toolID, version)
	if err != nil {
		api.fail(c, "get_version", err, "Failed to get version")
		return
	}
	c.JSON(http.StatusOK, v)
}

// Rollback repoints the tool's current version at a prior version
func (api *ToolsAPI) Rollback(c *gin.Context) {
	start := time.Now()
	tenantID := c.GetString("tenant_id")
	toolID := c.Param("toolId")

	var req models.RollbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := api.toolService.Rollback(c.Request.Context(), tenantID, toolID, c.GetString("user_id"), req.Version)
	api.metrics.RecordAPIOperation("tools", "rollback", err == nil, time.Since(start).Seconds())
	if err != nil {
		api.fail(c, "rollback", err, "Failed to rollback version")
		return
	}
	c.Status(http.StatusNoContent)
}

// fail reduces an operation error to the single user-facing error string
// and the right status code.
func (api *ToolsAPI) fail(c *gin.Context, operation string, err error, fallback string) {
	status := http.StatusInternalServerError
	msg := fallback

	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
		msg = "tool not found"
	case errors.Is(err, models.ErrVersionNotFound):
		status = http.StatusNotFound
		msg = "version not found"
	case errors.Is(err, models.ErrAlreadyCurrent):
		status = http.StatusConflict
		msg = err.Error()
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
		msg = err.Error()
	case errors.Is(err, models.ErrTenantRequired):
		status = http.StatusBadRequest
		msg = err.Error()
	}

	api.logger.Error("Tool operation failed", map[string]interface{}{
		"operation": operation,
		"tenant_id": c.GetString("tenant_id"),
		"tool_id":   c.Param("toolId"),
		"error":     err.Error(),
	})
	api.metrics.IncrementCounterWithLabels("api.tools."+operation+".error", 1, map[string]string{
		"tenant_id": c.GetString("tenant_id"),
	})
	c.JSON(status, gin.H{"error": msg})
}

package rest

import (
	"context"
	"fmt"

	"github.com/paxoscn/avalon-sub003/pkg/models"
)

// ToolsClient provides methods for interacting with the Tools API
type ToolsClient struct {
	client *RESTClient
}

// NewToolsClient creates a new Tools API client
func NewToolsClient(client *RESTClient) *ToolsClient {
	return &ToolsClient{client: client}
}

// GetTool retrieves a tool by ID
func (c *ToolsClient) GetTool(ctx context.Context, toolID string) (*models.Tool, error) {
	path := fmt.Sprintf("/api/v1/tools/%s", toolID)

	var tool models.Tool
	if err := c.client.Get(ctx, path, &tool); err != nil {
		return nil, err
	}
	return &tool, nil
}

// GetToolVersions retrieves the full version history of a tool
func (c *ToolsClient) GetToolVersions(ctx context.Context, toolID string) ([]*models.ToolVersion, error) {
	path := fmt.Sprintf("/api/v1/tools/%s/versions", toolID)

	var response struct {
		Versions []*models.ToolVersion `json:"versions"`
	}
	if err := c.client.Get(ctx, path, &response); err != nil {
		return nil, err
	}
	return response.Versions, nil
}

// RollbackTool repoints the tool's current version at a prior version
func (c *ToolsClient) RollbackTool(ctx context.Context, toolID string, version int) error {
	path := fmt.Sprintf("/api/v1/tools/%s/rollback", toolID)

	return c.client.Post(ctx, path, models.RollbackRequest{Version: version}, nil)
}

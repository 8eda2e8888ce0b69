// Package services implements the business logic behind the REST API.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/paxoscn/avalon-sub003/pkg/common/cache"
	"github.com/paxoscn/avalon-sub003/pkg/models"
	"github.com/paxoscn/avalon-sub003/pkg/observability"
	"github.com/paxoscn/avalon-sub003/pkg/repository"
)

// ToolsServiceInterface defines the interface for tool operations
type ToolsServiceInterface interface {
	ListTools(ctx context.Context, tenantID, status string) ([]*models.Tool, error)
	GetTool(ctx context.Context, tenantID, toolID string) (*models.Tool, error)
	CreateTool(ctx context.Context, tenantID, actorID string, req CreateToolRequest) (*models.Tool, error)
	DeleteTool(ctx context.Context, tenantID, actorID, toolID string) error

	// Version operations
	SaveConfiguration(ctx context.Context, tenantID, toolID, actorID string, config models.ToolConfigSnapshot, changeLog string) (*models.ToolVersion, error)
	ListVersions(ctx context.Context, tenantID, toolID string) ([]*models.ToolVersion, error)
	GetVersion(ctx context.Context, tenantID, toolID string, version int) (*models.ToolVersion, error)
	Rollback(ctx context.Context, tenantID, toolID, actorID string, version int) error
}

// CreateToolRequest carries the fields needed to register a new tool
type CreateToolRequest struct {
	Name        string                    `json:"name" binding:"required"`
	DisplayName string                    `json:"display_name"`
	Description string                    `json:"description"`
	Config      models.ToolConfigSnapshot `json:"config"`
}

// configSchema validates a configuration snapshot document before it is
// frozen into a version.
const configSchema = `{
	"type": "object",
	"required": ["endpoint", "method"],
	"properties": {
		"endpoint": {"type": "string", "minLength": 1},
		"method": {"type": "string", "enum": ["GET", "POST", "PUT", "PATCH", "DELETE"]},
		"headers": {"type": "object", "additionalProperties": {"type": "string"}},
		"timeout_seconds": {"type": "integer", "minimum": 0},
		"parameters": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name", "type", "position"],
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"type": {"type": "string", "enum": ["string", "number", "integer", "boolean", "object", "array"]},
					"required": {"type": "boolean"},
					"position": {"type": "string", "enum": ["body", "header", "path", "query"]},
					"enum": {"type": "array", "items": {"type": "string"}}
				}
			}
		}
	}
}`

// ToolsService implements ToolsServiceInterface
type ToolsService struct {
	toolRepo    repository.ToolRepository
	versionRepo repository.ToolVersionRepository
	auditRepo   repository.AuditLogRepository
	cache       cache.Cache
	cacheTTL    time.Duration
	logger      observability.Logger
	metrics     observability.MetricsClient
	schema      *gojsonschema.Schema
}

// NewToolsService creates a new tools service
func NewToolsService(
	toolRepo repository.ToolRepository,
	versionRepo repository.ToolVersionRepository,
	auditRepo repository.AuditLogRepository,
	cacheClient cache.Cache,
	cacheTTL time.Duration,
	logger observability.Logger,
	metrics observability.MetricsClient,
) (*ToolsService, error) {
	if cacheClient == nil {
		cacheClient = cache.NewNoOpCache()
	}
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	if metrics == nil {
		metrics = observability.NewNoopMetricsClient()
	}
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(configSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile config schema: %w", err)
	}

	return &ToolsService{
		toolRepo:    toolRepo,
		versionRepo: versionRepo,
		auditRepo:   auditRepo,
		cache:       cacheClient,
		cacheTTL:    cacheTTL,
		logger:      logger,
		metrics:     metrics,
		schema:      schema,
	}, nil
}

// ListTools lists all tools for a tenant
func (s *ToolsService) ListTools(ctx context.Context, tenantID, status string) ([]*models.Tool, error) {
	if tenantID == "" {
		return nil, models.ErrTenantRequired
	}
	return s.toolRepo.List(ctx, tenantID, status)
}

// GetTool gets a tool by ID, read-through cached
func (s *ToolsService) GetTool(ctx context.Context, tenantID, toolID string) (*models.Tool, error) {
	if tenantID == "" {
		return nil, models.ErrTenantRequired
	}

	key := toolCacheKey(tenantID, toolID)
	var cached models.Tool
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		s.metrics.IncrementCounterWithLabels("tools.cache.hit", 1, map[string]string{"tenant_id": tenantID})
		return &cached, nil
	}

	tool, err := s.toolRepo.GetByID(ctx, tenantID, toolID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, tool, s.cacheTTL); err != nil {
		s.logger.Warn("Failed to cache tool", map[string]interface{}{
			"tool_id": toolID,
			"error":   err.Error(),
		})
	}
	return tool, nil
}

// CreateTool registers a new tool. The initial configuration is frozen
// as version 1.
func (s *ToolsService) CreateTool(ctx context.Context, tenantID, actorID string, req CreateToolRequest) (*models.Tool, error) {
	if tenantID == "" {
		return nil, models.ErrTenantRequired
	}
	req.Config.Normalize()
	if err := s.validateConfig(req.Config); err != nil {
		return nil, err
	}

	now := time.Now()
	tool := &models.Tool{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Config:      req.Config,
		Status:      models.ToolStatusActive,
		CreatedBy:   actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.toolRepo.Create(ctx, tool); err != nil {
		return nil, fmt.Errorf("failed to create tool: %w", err)
	}

	version, err := s.SaveConfiguration(ctx, tenantID, tool.ID, actorID, req.Config, "Initial configuration")
	if err != nil {
		return nil, err
	}
	tool.CurrentVersion = version.Version

	s.audit(ctx, tenantID, actorID, models.AuditActionToolCreated, tool.ID, map[string]interface{}{
		"name": tool.Name,
	})
	return tool, nil
}

// DeleteTool removes a tool and its history
func (s *ToolsService) DeleteTool(ctx context.Context, tenantID, actorID, toolID string) error {
	if tenantID == "" {
		return models.ErrTenantRequired
	}
	if err := s.toolRepo.Delete(ctx, tenantID, toolID); err != nil {
		return err
	}
	s.invalidate(ctx, tenantID, toolID)
	s.audit(ctx, tenantID, actorID, models.AuditActionToolDeleted, toolID, nil)
	return nil
}

// SaveConfiguration validates and freezes a new configuration version,
// making it current.
func (s *ToolsService) SaveConfiguration(ctx context.Context, tenantID, toolID, actorID string, config models.ToolConfigSnapshot, changeLog string) (*models.ToolVersion, error) {
	if tenantID == "" {
		return nil, models.ErrTenantRequired
	}
	config.Normalize()
	if err := s.validateConfig(config); err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "tools.save_configuration")
	defer span.End()

	version := &models.ToolVersion{
		ID:        uuid.New().String(),
		ToolID:    toolID,
		TenantID:  tenantID,
		Config:    config,
		ChangeLog: changeLog,
		CreatedBy: actorID,
		CreatedAt: time.Now(),
	}

	if err := s.versionRepo.CreateVersion(ctx, version); err != nil {
		return nil, err
	}

	s.invalidate(ctx, tenantID, toolID)
	s.audit(ctx, tenantID, actorID, models.AuditActionVersionCreated, toolID, map[string]interface{}{
		"version": version.Version,
	})
	s.metrics.IncrementCounterWithLabels("tools.version.created", 1, map[string]string{"tenant_id": tenantID})

	return version, nil
}

// ListVersions lists all versions of a tool, newest first
func (s *ToolsService) ListVersions(ctx context.Context, tenantID, toolID string) ([]*models.ToolVersion, error) {
	if tenantID == "" {
		return nil, models.ErrTenantRequired
	}

	key := versionsCacheKey(tenantID, toolID)
	var cached []*models.ToolVersion
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	versions, err := s.versionRepo.ListByTool(ctx, tenantID, toolID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, versions, s.cacheTTL); err != nil {
		s.logger.Warn("Failed to cache versions", map[string]interface{}{
			"tool_id": toolID,
			"error":   err.Error(),
		})
	}
	return versions, nil
}

// GetVersion retrieves a single version by number
func (s *ToolsService) GetVersion(ctx context.Context, tenantID, toolID string, version int) (*models.ToolVersion, error) {
	if tenantID == "" {
		return nil, models.ErrTenantRequired
	}
	return s.versionRepo.GetByToolAndVersion(ctx, tenantID, toolID, version)
}

// Rollback repoints the tool's current version at an existing prior
// version. History is never created or deleted.
func (s *ToolsService) Rollback(ctx context.Context, tenantID, toolID, actorID string, version int) error {
	if tenantID == "" {
		return models.ErrTenantRequired
	}

	ctx, span := observability.StartSpan(ctx, "tools.rollback")
	defer span.End()

	// Read through the repository, not the cache: the decision must be
	// made against the stored current version.
	tool, err := s.toolRepo.GetByID(ctx, tenantID, toolID)
	if err != nil {
		return err
	}
	if tool.CurrentVersion == version {
		return models.ErrAlreadyCurrent
	}

	if err := s.versionRepo.SetCurrentVersion(ctx, tenantID, toolID, version); err != nil {
		s.metrics.IncrementCounterWithLabels("tools.rollback.failure", 1, map[string]string{"tenant_id": tenantID})
		return err
	}

	s.invalidate(ctx, tenantID, toolID)
	s.audit(ctx, tenantID, actorID, models.AuditActionVersionRollback, toolID, map[string]interface{}{
		"from_version": tool.CurrentVersion,
		"to_version":   version,
	})
	s.metrics.IncrementCounterWithLabels("tools.rollback.success", 1, map[string]string{"tenant_id": tenantID})

	s.logger.Info("Tool rolled back", map[string]interface{}{
		"tenant_id":    tenantID,
		"tool_id":      toolID,
		"from_version": tool.CurrentVersion,
		"to_version":   version,
	})
	return nil
}

// validateConfig checks a snapshot against the config schema plus the
// semantic rules the schema cannot express.
func (s *ToolsService) validateConfig(config models.ToolConfigSnapshot) error {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(config))
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", models.ErrValidation, strings.Join(msgs, "; "))
	}

	seen := make(map[string]bool, len(config.Parameters))
	for _, p := range config.Parameters {
		if seen[p.Name] {
			return fmt.Errorf("%w: duplicate parameter %q", models.ErrValidation, p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

func (s *ToolsService) invalidate(ctx context.Context, tenantID, toolID string) {
	for _, key := range []string{toolCacheKey(tenantID, toolID), versionsCacheKey(tenantID, toolID)} {
		if err := s.cache.Delete(ctx, key); err != nil {
			s.logger.Warn("Failed to invalidate cache", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}
}

// audit writes an audit record. Failures are logged, not propagated;
// the mutation has already committed.
func (s *ToolsService) audit(ctx context.Context, tenantID, actorID, action, entityID string, detail map[string]interface{}) {
	if s.auditRepo == nil {
		return
	}
	var detailJSON json.RawMessage
	if detail != nil {
		if data, err := json.Marshal(detail); err == nil {
			detailJSON = data
		}
	}
	entry := &models.AuditLog{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		ActorID:    actorID,
		Action:     action,
		EntityType: "tool",
		EntityID:   entityID,
		Detail:     detailJSON,
		CreatedAt:  time.Now(),
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.logger.Error("Failed to write audit log", map[string]interface{}{
			"action": action,
			"error":  err.Error(),
		})
	}
}

func toolCacheKey(tenantID, toolID string) string {
	return fmt.Sprintf("tool:%s:%s", tenantID, toolID)
}

func versionsCacheKey(tenantID, toolID string) string {
	return fmt.Sprintf("tool_versions:%s:%s", tenantID, toolID)
}

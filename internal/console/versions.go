// Package console implements the version-management controller behind
// the admin UI's tool version page: load a tool with its history,
// present which version is current, and roll back to a prior version
// after confirmation.
package console

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/paxoscn/avalon-sub003/pkg/client/rest"
	"github.com/paxoscn/avalon-sub003/pkg/models"
	"github.com/paxoscn/avalon-sub003/pkg/observability"
)

// Fallback messages shown when the backend supplies no error string
const (
	loadFailedMessage     = "Failed to load versions"
	rollbackFailedMessage = "Failed to rollback version"
	emptyStateMessage     = "No versions recorded for this tool"
)

// Controller errors
var (
	// ErrRollbackInFlight is returned when a rollback is attempted while
	// another one is still pending
	ErrRollbackInFlight = errors.New("rollback already in progress")

	// ErrNotLoaded is returned when an action requires loaded state
	ErrNotLoaded = errors.New("versions not loaded")

	// ErrRollbackToCurrent is returned when the target version is
	// already current; the backend is not called
	ErrRollbackToCurrent = errors.New("cannot roll back to the current version")
)

// LoadState is the view's primary state machine
type LoadState string

// Load states: idle -> loading -> {error | loaded}
const (
	StateIdle    LoadState = "idle"
	StateLoading LoadState = "loading"
	StateError   LoadState = "error"
	StateLoaded  LoadState = "loaded"
)

// ToolsBackend is the backend contract the controller consumes.
// *rest.ToolsClient satisfies it.
type ToolsBackend interface {
	GetTool(ctx context.Context, toolID string) (*models.Tool, error)
	GetToolVersions(ctx context.Context, toolID string) ([]*models.ToolVersion, error)
	RollbackTool(ctx context.Context, toolID string, version int) error
}

// Confirmer asks the user to confirm a destructive action
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmerFunc adapts a function to the Confirmer interface
type ConfirmerFunc func(prompt string) bool

// Confirm implements Confirmer
func (f ConfirmerFunc) Confirm(prompt string) bool { return f(prompt) }

// VersionRow is the render model for one version history entry
type VersionRow struct {
	Version     int
	IsCurrent   bool
	CanRollback bool
	ChangeLog   string
	CreatedBy   string
	CreatedAt   time.Time
	Config      models.ToolConfigSnapshot
}

// VersionConsole drives the tool version page. All methods are safe for
// concurrent use; rendering reads and action triggers may interleave.
type VersionConsole struct {
	backend   ToolsBackend
	confirmer Confirmer
	logger    observability.Logger
	toolID    string

	mu          sync.Mutex
	state       LoadState
	tool        *models.Tool
	versions    []*models.ToolVersion
	loadError   string
	rollbackErr string
	notice      string
	rollingBack bool
}

// NewVersionConsole creates a controller for one tool's version page
func NewVersionConsole(backend ToolsBackend, confirmer Confirmer, logger observability.Logger, toolID string) *VersionConsole {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &VersionConsole{
		backend:   backend,
		confirmer: confirmer,
		logger:    logger,
		toolID:    toolID,
		state:     StateIdle,
	}
}

// Load fetches the tool and its version history concurrently and waits
// for both. Either fetch failing fails the whole load with a single
// error message; no version content is rendered in that case.
func (v *VersionConsole) Load(ctx context.Context) error {
	v.mu.Lock()
	v.state = StateLoading
	v.loadError = ""
	v.mu.Unlock()

	var tool *models.Tool
	var versions []*models.ToolVersion

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := v.backend.GetTool(gctx, v.toolID)
		if err != nil {
			return err
		}
		tool = t
		return nil
	})
	g.Go(func() error {
		vs, err := v.backend.GetToolVersions(gctx, v.toolID)
		if err != nil {
			return err
		}
		versions = vs
		return nil
	})

	if err := g.Wait(); err != nil {
		msg := backendMessage(err, loadFailedMessage)
		v.mu.Lock()
		v.state = StateError
		v.loadError = msg
		v.tool = nil
		v.versions = nil
		v.mu.Unlock()

		v.logger.Error("Failed to load tool versions", map[string]interface{}{
			"tool_id": v.toolID,
			"error":   err.Error(),
		})
		return err
	}

	v.mu.Lock()
	v.state = StateLoaded
	v.tool = tool
	v.versions = versions
	v.mu.Unlock()
	return nil
}

// Rollback asks for confirmation and, if granted, repoints the tool to
// the target version and reloads. A declined confirmation performs no
// backend call and leaves state unchanged. Only one rollback may be in
// flight at a time.
func (v *VersionConsole) Rollback(ctx context.Context, version int) error {
	v.mu.Lock()
	if v.state != StateLoaded {
		v.mu.Unlock()
		return ErrNotLoaded
	}
	if v.rollingBack {
		v.mu.Unlock()
		return ErrRollbackInFlight
	}
	if v.tool != nil && v.tool.CurrentVersion == version {
		v.mu.Unlock()
		return ErrRollbackToCurrent
	}
	v.mu.Unlock()

	prompt := fmt.Sprintf("Roll back %q to version %d?", v.toolID, version)
	if v.confirmer == nil || !v.confirmer.Confirm(prompt) {
		return nil
	}

	v.mu.Lock()
	if v.rollingBack {
		v.mu.Unlock()
		return ErrRollbackInFlight
	}
	v.rollingBack = true
	v.rollbackErr = ""
	v.notice = ""
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		v.rollingBack = false
		v.mu.Unlock()
	}()

	if err := v.backend.RollbackTool(ctx, v.toolID, version); err != nil {
		msg := backendMessage(err, rollbackFailedMessage)
		v.mu.Lock()
		v.rollbackErr = msg
		v.mu.Unlock()

		v.logger.Error("Rollback failed", map[string]interface{}{
			"tool_id": v.toolID,
			"version": version,
			"error":   err.Error(),
		})
		return err
	}

	v.mu.Lock()
	v.notice = fmt.Sprintf("Rolled back to version %d", version)
	v.mu.Unlock()

	// Reload so the new current version is reflected
	return v.Load(ctx)
}

// State returns the current load state
func (v *VersionConsole) State() LoadState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Tool returns the loaded tool, or nil before a successful load
func (v *VersionConsole) Tool() *models.Tool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.tool
}

// LoadError returns the single user-facing message of a failed load
func (v *VersionConsole) LoadError() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loadError
}

// RollbackError returns the message of the last failed rollback. Prior
// loaded content stays visible alongside it.
func (v *VersionConsole) RollbackError() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rollbackErr
}

// Notice returns the confirmation message of the last successful rollback
func (v *VersionConsole) Notice() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.notice
}

// RollbackInFlight reports whether a rollback is pending; the action is
// disabled while true.
func (v *VersionConsole) RollbackInFlight() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rollingBack
}

// EmptyState returns the explicit empty-state message when a load
// succeeded but the tool has no versions.
func (v *VersionConsole) EmptyState() (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == StateLoaded && len(v.versions) == 0 {
		return emptyStateMessage, true
	}
	return "", false
}

// Rows returns the render model in the exact order the backend returned
// the versions. The current version is tagged and is never offered a
// rollback action; a current_version that matches no row simply tags
// nothing.
func (v *VersionConsole) Rows() []VersionRow {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state != StateLoaded {
		return nil
	}

	rows := make([]VersionRow, 0, len(v.versions))
	for _, ver := range v.versions {
		isCurrent := v.tool != nil && ver.Version == v.tool.CurrentVersion
		rows = append(rows, VersionRow{
			Version:     ver.Version,
			IsCurrent:   isCurrent,
			CanRollback: !isCurrent,
			ChangeLog:   ver.ChangeLog,
			CreatedBy:   ver.CreatedBy,
			CreatedAt:   ver.CreatedAt,
			Config:      ver.Config,
		})
	}
	return rows
}

// backendMessage extracts the backend-provided error string, falling
// back to the operation's generic message.
func backendMessage(err error, fallback string) string {
	var apiErr *rest.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// Package dag runs the question pipeline: a fixed sequence of nodes threading
// an immutable PipelineState, each node returning a delta to merge.
package dag

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/models"
)

// ErrSkipped is returned by a node that did not run because an earlier stage
// already set an error.
var ErrSkipped = errors.New("node skipped")

// NodeExecutor defines the interface for pipeline node execution.
type NodeExecutor interface {
	// Name returns the node name (e.g., "GenerateSQL")
	Name() models.PipelineNodeName

	// Execute runs the node against state and returns the fields to change.
	// The returned delta is applied even when err is non-nil.
	Execute(ctx context.Context, state models.PipelineState) (models.PipelineDelta, error)
}

// BaseNode provides common functionality for all pipeline nodes.
type BaseNode struct {
	nodeName models.PipelineNodeName
	logger   *zap.Logger
}

// NewBaseNode creates a new base node.
func NewBaseNode(nodeName models.PipelineNodeName, logger *zap.Logger) *BaseNode {
	return &BaseNode{
		nodeName: nodeName,
		logger:   logger.Named(string(nodeName)),
	}
}

// Name returns the node name.
func (b *BaseNode) Name() models.PipelineNodeName {
	return b.nodeName
}

// Logger returns the node's logger.
func (b *BaseNode) Logger() *zap.Logger {
	return b.logger
}

// skipIfFailed returns ErrSkipped when state carries an error from an earlier
// stage.
func skipIfFailed(state models.PipelineState) error {
	if state.Error != models.ErrorKindNone {
		return ErrSkipped
	}
	return nil
}

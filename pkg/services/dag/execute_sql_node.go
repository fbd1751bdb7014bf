package dag

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/models"
	"github.com/ekaya-inc/ekaya-ask/pkg/sql"
)

// ExecuteSQLMethods runs SQL after re-validating it.
type ExecuteSQLMethods interface {
	Execute(ctx context.Context, query string, allowed *sql.AllowList) models.ExecutionResult
}

// ExecuteSQLNode runs the generated SQL.
type ExecuteSQLNode struct {
	*BaseNode
	executor ExecuteSQLMethods
}

// NewExecuteSQLNode creates a new execution node.
func NewExecuteSQLNode(executor ExecuteSQLMethods, logger *zap.Logger) *ExecuteSQLNode {
	return &ExecuteSQLNode{
		BaseNode: NewBaseNode(models.PipelineNodeExecuteSQL, logger),
		executor: executor,
	}
}

// Execute implements NodeExecutor. The executor validates state.SQL again; a
// generation-time validation is never trusted.
func (n *ExecuteSQLNode) Execute(ctx context.Context, state models.PipelineState) (models.PipelineDelta, error) {
	if err := skipIfFailed(state); err != nil {
		return models.PipelineDelta{}, err
	}

	result := n.executor.Execute(ctx, state.SQL, state.AllowedTables)

	delta := models.PipelineDelta{
		Columns: models.Ptr(result.Columns),
		Rows:    models.Ptr(result.Rows),
	}
	if result.Answer != "" {
		delta.Answer = models.Ptr(result.Answer)
	}
	if result.Error != models.ErrorKindNone {
		delta.Error = models.Ptr(result.Error)
	}

	n.Logger().Debug("Executed SQL",
		zap.Int("rows", len(result.Rows)),
		zap.String("error_kind", string(result.Error)))
	return delta, nil
}

package dag

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/models"
	"github.com/ekaya-inc/ekaya-ask/pkg/sql"
)

// GenerateSQLMethods produces validated SQL for a question.
type GenerateSQLMethods interface {
	Generate(ctx context.Context, question, schemaText string, allowed *sql.AllowList) models.GenerationResult
}

// GenerateSQLNode asks for SQL and records it with any diagnostic.
type GenerateSQLNode struct {
	*BaseNode
	generator GenerateSQLMethods
}

// NewGenerateSQLNode creates a new SQL generation node.
func NewGenerateSQLNode(generator GenerateSQLMethods, logger *zap.Logger) *GenerateSQLNode {
	return &GenerateSQLNode{
		BaseNode:  NewBaseNode(models.PipelineNodeGenerateSQL, logger),
		generator: generator,
	}
}

// Execute implements NodeExecutor.
func (n *GenerateSQLNode) Execute(ctx context.Context, state models.PipelineState) (models.PipelineDelta, error) {
	if err := skipIfFailed(state); err != nil {
		return models.PipelineDelta{}, err
	}

	result := n.generator.Generate(ctx, state.Question, state.SchemaText, state.AllowedTables)

	delta := models.PipelineDelta{
		SQL:      models.Ptr(result.SQL),
		SQLClean: models.Ptr(result.SQLClean),
	}
	if result.Error != models.ErrorKindNone {
		n.Logger().Info("SQL not accepted", zap.String("error_kind", string(result.Error)))
		delta.Answer = models.Ptr(result.Answer)
		delta.Error = models.Ptr(result.Error)
	}
	return delta, nil
}

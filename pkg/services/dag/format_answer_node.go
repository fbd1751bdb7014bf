package dag

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/models"
)

// FormatAnswerMethods writes the final answer.
type FormatAnswerMethods interface {
	Format(ctx context.Context, in models.FormatRequest) string
}

// FormatAnswerNode always runs, so every run ends with an answer: the
// formatted results or the diagnostic of the stage that stopped.
type FormatAnswerNode struct {
	*BaseNode
	formatter FormatAnswerMethods
}

// NewFormatAnswerNode creates a new formatting node.
func NewFormatAnswerNode(formatter FormatAnswerMethods, logger *zap.Logger) *FormatAnswerNode {
	return &FormatAnswerNode{
		BaseNode:  NewBaseNode(models.PipelineNodeFormatAnswer, logger),
		formatter: formatter,
	}
}

// Execute implements NodeExecutor.
func (n *FormatAnswerNode) Execute(ctx context.Context, state models.PipelineState) (models.PipelineDelta, error) {
	answer := n.formatter.Format(ctx, models.FormatRequest{
		Question:      state.Question,
		SQL:           state.SQL,
		Columns:       state.Columns,
		Rows:          state.Rows,
		PriorAnswer:   state.Answer,
		AllowedTables: state.AllowedTables,
		Error:         state.Error,
	})
	return models.PipelineDelta{Answer: models.Ptr(answer)}, nil
}

package dag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-ask/pkg/audit"
	"github.com/ekaya-inc/ekaya-ask/pkg/logging"
	"github.com/ekaya-inc/ekaya-ask/pkg/models"
)

// Pipeline runs Introspect, GenerateSQL, ExecuteSQL and FormatAnswer in that
// order. There is no branching and no retry at this level: each node decides
// from the state whether it has work to do.
type Pipeline struct {
	nodes  []NodeExecutor
	logger *zap.Logger
}

// NewPipeline wires the four stages in their fixed order.
func NewPipeline(
	introspector IntrospectMethods,
	generator GenerateSQLMethods,
	executor ExecuteSQLMethods,
	formatter FormatAnswerMethods,
	logger *zap.Logger,
) *Pipeline {
	return NewPipelineWithNodes(logger,
		NewIntrospectNode(introspector, logger),
		NewGenerateSQLNode(generator, logger),
		NewExecuteSQLNode(executor, logger),
		NewFormatAnswerNode(formatter, logger),
	)
}

// NewPipelineWithNodes builds a pipeline from explicit nodes.
func NewPipelineWithNodes(logger *zap.Logger, nodes ...NodeExecutor) *Pipeline {
	return &Pipeline{
		nodes:  nodes,
		logger: logger.Named("pipeline"),
	}
}

// Run answers question and returns the terminal state. The returned error is
// non-nil only for a fatal stage failure (catalog unavailable); the state is
// complete, with a diagnostic answer, in that case too.
func (p *Pipeline) Run(ctx context.Context, question string) (models.PipelineState, error) {
	state := models.NewPipelineState(question)
	if id := audit.RequestIDFromContext(ctx); id != uuid.Nil {
		state.RequestID = id
	} else {
		ctx = audit.WithRequestID(ctx, state.RequestID)
	}
	logger := p.logger.With(zap.String("request_id", state.RequestID.String()))

	var fatal error
	for _, node := range p.nodes {
		if err := ctx.Err(); err != nil {
			return state, fmt.Errorf("pipeline canceled before %s: %w", node.Name(), err)
		}

		start := time.Now()
		delta, err := node.Execute(ctx, state)
		state = state.Apply(delta)

		trace := models.StageTrace{
			Name:     node.Name(),
			Status:   models.StageStatusCompleted,
			Duration: time.Since(start),
		}
		switch {
		case errors.Is(err, ErrSkipped):
			trace.Status = models.StageStatusSkipped
		case err != nil:
			trace.Status = models.StageStatusFailed
			trace.Error = logging.SanitizeError(err)
			if state.Error.IsFatal() && fatal == nil {
				fatal = err
			}
			logger.Error("Pipeline stage failed",
				zap.String("node", string(node.Name())),
				zap.String("error", trace.Error))
		}
		state = state.WithTrace(trace)
	}

	if fatal != nil && !errors.Is(fatal, apperrors.ErrCatalogUnavailable) {
		fatal = fmt.Errorf("%w: %w", apperrors.ErrCatalogUnavailable, fatal)
	}

	logger.Info("Pipeline finished",
		zap.String("error_kind", string(state.Error)),
		zap.Int("rows", len(state.Rows)))
	return state, fatal
}

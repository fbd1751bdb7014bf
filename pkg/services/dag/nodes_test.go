package dag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/models"
)

func TestBaseNode(t *testing.T) {
	node := NewBaseNode(models.PipelineNodeGenerateSQL, zap.NewNop())

	assert.Equal(t, models.PipelineNodeGenerateSQL, node.Name())
	assert.NotNil(t, node.Logger())
}

func TestIntrospectNode_SetsSchemaAndAllowList(t *testing.T) {
	node := NewIntrospectNode(&fakeIntrospector{catalog: productCatalog()}, zap.NewNop())

	delta, err := node.Execute(context.Background(), models.NewPipelineState("q"))
	require.NoError(t, err)

	require.NotNil(t, delta.SchemaText)
	assert.Contains(t, *delta.SchemaText, "TABLE public.producto")
	assert.True(t, delta.AllowedTables.Contains("public.producto"))
	assert.Nil(t, delta.Error)
}

func TestIntrospectNode_Failure(t *testing.T) {
	node := NewIntrospectNode(&fakeIntrospector{err: errors.New("boom")}, zap.NewNop())

	delta, err := node.Execute(context.Background(), models.NewPipelineState("q"))
	require.Error(t, err)
	require.NotNil(t, delta.Error)
	assert.Equal(t, models.ErrorKindCatalogUnavailable, *delta.Error)
	require.NotNil(t, delta.Answer)
}

func TestNodesSkipAfterError(t *testing.T) {
	state := models.NewPipelineState("q").Apply(models.PipelineDelta{
		Error: models.Ptr(models.ErrorKindNotAnswerable),
	})

	generator := &fakeGenerator{}
	_, err := NewGenerateSQLNode(generator, zap.NewNop()).Execute(context.Background(), state)
	assert.ErrorIs(t, err, ErrSkipped)
	assert.Zero(t, generator.calls)

	executor := &fakeExecutor{}
	_, err = NewExecuteSQLNode(executor, zap.NewNop()).Execute(context.Background(), state)
	assert.ErrorIs(t, err, ErrSkipped)
	assert.Zero(t, executor.calls)

	formatter := &fakeFormatter{}
	_, err = NewFormatAnswerNode(formatter, zap.NewNop()).Execute(context.Background(), state)
	assert.NoError(t, err)
	assert.Equal(t, 1, formatter.calls)
}

func TestGenerateSQLNode_Diagnostic(t *testing.T) {
	generator := &fakeGenerator{result: models.GenerationResult{
		Answer: "The question cannot be answered from the available tables.",
		Error:  models.ErrorKindNotAnswerable,
	}}

	delta, err := NewGenerateSQLNode(generator, zap.NewNop()).Execute(context.Background(), models.NewPipelineState("q"))
	require.NoError(t, err)

	require.NotNil(t, delta.Error)
	assert.Equal(t, models.ErrorKindNotAnswerable, *delta.Error)
	assert.Equal(t, "The question cannot be answered from the available tables.", *delta.Answer)
}

func TestExecuteSQLNode_EmptyResultKeepsDiagnostic(t *testing.T) {
	executor := &fakeExecutor{result: models.ExecutionResult{
		Columns: []string{"id"},
		Rows:    []map[string]any{},
		Answer:  "No results. Diagnostics: table public.pedido has 0 rows",
	}}
	state := models.NewPipelineState("q").Apply(models.PipelineDelta{SQL: models.Ptr(`SELECT "id" FROM "public"."pedido"`)})

	delta, err := NewExecuteSQLNode(executor, zap.NewNop()).Execute(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, `SELECT "id" FROM "public"."pedido"`, executor.query)
	assert.Nil(t, delta.Error)
	assert.Equal(t, "No results. Diagnostics: table public.pedido has 0 rows", *delta.Answer)
}

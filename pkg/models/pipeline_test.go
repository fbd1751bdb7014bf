package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPipelineState_ApplyDoesNotMutateReceiver(t *testing.T) {
	start := NewPipelineState("top 5 products by price")
	start = start.WithTrace(StageTrace{Name: "introspect", Status: StageStatusCompleted})

	next := start.Apply(PipelineDelta{
		SQL:    Ptr(`SELECT 1`),
		Rows:   &[]map[string]any{{"n": 1}},
		Answer: Ptr("done"),
	}).WithTrace(StageTrace{Name: "generate_sql", Status: StageStatusCompleted})

	assert.Equal(t, "", start.SQL)
	assert.Empty(t, start.Rows)
	assert.Len(t, start.Trace, 1)

	assert.Equal(t, "SELECT 1", next.SQL)
	assert.Equal(t, []map[string]any{{"n": 1}}, next.Rows)
	assert.Equal(t, "done", next.Answer)
	assert.Len(t, next.Trace, 2)
	assert.Equal(t, start.RequestID, next.RequestID)
	assert.Equal(t, start.Question, next.Question)
}

func TestPipelineState_ApplyNilFieldsKeepValues(t *testing.T) {
	s := PipelineState{SQL: "SELECT 1", Answer: "prior", Error: ErrorKindUnknownTables}

	next := s.Apply(PipelineDelta{})

	assert.Equal(t, s, next)
}

func TestPipelineState_ApplyCanClearRows(t *testing.T) {
	s := PipelineState{Rows: []map[string]any{{"a": 1}}}

	next := s.Apply(PipelineDelta{Rows: &[]map[string]any{}})

	assert.NotNil(t, next.Rows)
	assert.Empty(t, next.Rows)
}

func TestNewPipelineState(t *testing.T) {
	s := NewPipelineState("q")

	assert.NotEqual(t, uuid.Nil, s.RequestID)
	assert.NotNil(t, s.Rows)
	assert.Equal(t, ErrorKindNone, s.Error)
}

func TestErrorKind_IsFatal(t *testing.T) {
	assert.True(t, ErrorKindCatalogUnavailable.IsFatal())
	assert.True(t, ErrorKindEmptyQuestion.IsFatal())
	assert.False(t, ErrorKindUnknownTables.IsFatal())
	assert.False(t, ErrorKindDatabaseError.IsFatal())
	assert.False(t, ErrorKindNone.IsFatal())
}

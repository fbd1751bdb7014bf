package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-ask/pkg/sql"
)

// ============================================================================
// Error kinds
// ============================================================================

// ErrorKind classifies why a pipeline run could not produce a normal answer.
// Everything except CatalogUnavailable is recoverable: the run continues and
// the diagnostic is carried in the answer.
type ErrorKind string

const (
	ErrorKindNone                  ErrorKind = ""
	ErrorKindEmptyQuestion         ErrorKind = "EMPTY_QUESTION"
	ErrorKindCatalogUnavailable    ErrorKind = "CATALOG_UNAVAILABLE"
	ErrorKindUnknownTables         ErrorKind = "UNKNOWN_TABLES"
	ErrorKindUnsafeStatement       ErrorKind = "UNSAFE_STATEMENT"
	ErrorKindNotAnswerable         ErrorKind = "NOT_ANSWERABLE"
	ErrorKindDatabaseError         ErrorKind = "DATABASE_ERROR"
	ErrorKindCompletionUnavailable ErrorKind = "COMPLETION_UNAVAILABLE"
)

// IsFatal returns true if the run must not generate or execute SQL.
func (k ErrorKind) IsFatal() bool {
	return k == ErrorKindEmptyQuestion || k == ErrorKindCatalogUnavailable
}

// ============================================================================
// Stage trace
// ============================================================================

// StageStatus is the outcome of one pipeline stage.
type StageStatus string

const (
	StageStatusCompleted StageStatus = "completed"
	StageStatusSkipped   StageStatus = "skipped"
	StageStatusFailed    StageStatus = "failed"
)

// PipelineNodeName names a stage of the question pipeline.
type PipelineNodeName string

const (
	PipelineNodeIntrospect   PipelineNodeName = "Introspect"
	PipelineNodeGenerateSQL  PipelineNodeName = "GenerateSQL"
	PipelineNodeExecuteSQL   PipelineNodeName = "ExecuteSQL"
	PipelineNodeFormatAnswer PipelineNodeName = "FormatAnswer"
)

// AllPipelineNodes returns all pipeline node names in execution order.
func AllPipelineNodes() []PipelineNodeName {
	return []PipelineNodeName{
		PipelineNodeIntrospect,
		PipelineNodeGenerateSQL,
		PipelineNodeExecuteSQL,
		PipelineNodeFormatAnswer,
	}
}

// StageTrace records how a stage ran.
type StageTrace struct {
	Name     PipelineNodeName `json:"name"`
	Status   StageStatus      `json:"status"`
	Duration time.Duration    `json:"duration_ns"`
	Error    string           `json:"error,omitempty"`
}

// ============================================================================
// Pipeline state
// ============================================================================

// PipelineState is the record threaded through the pipeline stages. Stages
// never modify it in place; they return a PipelineDelta and the orchestrator
// builds the next state with Apply.
type PipelineState struct {
	RequestID     uuid.UUID        `json:"request_id"`
	Question      string           `json:"question"`
	Catalog       *SchemaCatalog   `json:"-"`
	SchemaText    string           `json:"-"`
	AllowedTables *sql.AllowList   `json:"-"`
	SQL           string           `json:"sql"`
	SQLClean      string           `json:"sql_clean"`
	Columns       []string         `json:"columns"`
	Rows          []map[string]any `json:"rows"`
	Answer        string           `json:"answer"`
	Error         ErrorKind        `json:"error,omitempty"`
	Trace         []StageTrace     `json:"trace,omitempty"`
}

// NewPipelineState starts a run for question.
func NewPipelineState(question string) PipelineState {
	return PipelineState{
		RequestID: uuid.New(),
		Question:  question,
		Rows:      []map[string]any{},
	}
}

// PipelineDelta holds the fields a stage wants to set. A nil field leaves the
// current value in place.
type PipelineDelta struct {
	Catalog       *SchemaCatalog
	SchemaText    *string
	AllowedTables *sql.AllowList
	SQL           *string
	SQLClean      *string
	Columns       *[]string
	Rows          *[]map[string]any
	Answer        *string
	Error         *ErrorKind
}

// Apply returns a new state with the delta's set fields overwritten. The
// receiver is left unchanged.
func (s PipelineState) Apply(d PipelineDelta) PipelineState {
	next := s
	next.Trace = append([]StageTrace(nil), s.Trace...)

	if d.Catalog != nil {
		next.Catalog = d.Catalog
	}
	if d.SchemaText != nil {
		next.SchemaText = *d.SchemaText
	}
	if d.AllowedTables != nil {
		next.AllowedTables = d.AllowedTables
	}
	if d.SQL != nil {
		next.SQL = *d.SQL
	}
	if d.SQLClean != nil {
		next.SQLClean = *d.SQLClean
	}
	if d.Columns != nil {
		next.Columns = append([]string(nil), (*d.Columns)...)
	}
	if d.Rows != nil {
		next.Rows = append([]map[string]any{}, (*d.Rows)...)
	}
	if d.Answer != nil {
		next.Answer = *d.Answer
	}
	if d.Error != nil {
		next.Error = *d.Error
	}
	return next
}

// WithTrace returns a new state with t appended to the stage trace.
func (s PipelineState) WithTrace(t StageTrace) PipelineState {
	next := s
	next.Trace = append(append([]StageTrace(nil), s.Trace...), t)
	return next
}

// Ptr returns a pointer to v, for building deltas.
func Ptr[T any](v T) *T {
	return &v
}

// ============================================================================
// Stage results
// ============================================================================

// GenerationResult is the outcome of turning a question into SQL. When Error
// is set, Answer carries the diagnostic and the SQL must not be executed.
type GenerationResult struct {
	SQL      string    `json:"sql"`
	SQLClean string    `json:"sql_clean"`
	Answer   string    `json:"answer,omitempty"`
	Error    ErrorKind `json:"error,omitempty"`
}

// ExecutionResult is the outcome of running generated SQL. Failures are
// reported through Answer and Error, never as Go errors.
type ExecutionResult struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
	Answer  string           `json:"answer,omitempty"`
	Error   ErrorKind        `json:"error,omitempty"`
}

// FormatRequest is what the answer formatter sees of a finished run.
type FormatRequest struct {
	Question      string
	SQL           string
	Columns       []string
	Rows          []map[string]any
	PriorAnswer   string
	AllowedTables *sql.AllowList
	Error         ErrorKind
}

package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-ask/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-ask/pkg/audit"
	"github.com/ekaya-inc/ekaya-ask/pkg/config"
	"github.com/ekaya-inc/ekaya-ask/pkg/llm"
	"github.com/ekaya-inc/ekaya-ask/pkg/models"
	"github.com/ekaya-inc/ekaya-ask/pkg/services/dag"
	"github.com/ekaya-inc/ekaya-ask/pkg/sql"
)

// AskResult is the outcome of one question.
type AskResult struct {
	OK        bool                `json:"ok"`
	RequestID uuid.UUID           `json:"request_id"`
	Question  string              `json:"question"`
	SQL       string              `json:"sql"`
	SQLClean  string              `json:"sql_clean"`
	Answer    string              `json:"answer"`
	Columns   []string            `json:"columns"`
	Rows      []map[string]any    `json:"rows"`
	ErrorKind models.ErrorKind    `json:"error_kind,omitempty"`
	Trace     []models.StageTrace `json:"trace,omitempty"`
}

// AskService answers natural-language questions about the configured database.
type AskService interface {
	// Ask runs the pipeline for question. A blank question returns
	// apperrors.ErrEmptyQuestion without touching the database or the
	// completion service. A catalog failure returns the result (OK=false, with
	// a diagnostic answer) together with apperrors.ErrCatalogUnavailable.
	// Every other failure is reported in the result with OK=true.
	Ask(ctx context.Context, question string) (*AskResult, error)

	// Schema returns the current base-table catalog.
	Schema(ctx context.Context) (*models.SchemaCatalog, error)
}

type askService struct {
	introspector *SchemaIntrospector
	pipeline     *dag.Pipeline
	auditor      *audit.SecurityAuditor
	logger       *zap.Logger
}

var _ AskService = (*askService)(nil)

// NewAskService wires the pipeline over ds. completer may be nil, in which
// case generation reports COMPLETION_UNAVAILABLE and formatting falls back to
// a deterministic summary.
func NewAskService(ds datasource.Datasource, completer llm.Completer, cfg config.PipelineConfig, logger *zap.Logger) AskService {
	auditor := audit.NewSecurityAuditor(logger)
	introspector := NewSchemaIntrospector(ds, logger)

	pipeline := dag.NewPipeline(
		introspector,
		NewSQLGenerator(completer, ds.Dialect(), auditor, logger),
		NewSQLExecutor(ds, cfg.MaxRows, auditor, logger),
		NewResultFormatter(completer, cfg, logger),
		logger,
	)

	return &askService{
		introspector: introspector,
		pipeline:     pipeline,
		auditor:      auditor,
		logger:       logger.Named("ask"),
	}
}

func (s *askService) Ask(ctx context.Context, question string) (*AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return &AskResult{
			OK:        false,
			ErrorKind: models.ErrorKindEmptyQuestion,
			Rows:      []map[string]any{},
		}, apperrors.ErrEmptyQuestion
	}

	requestID := uuid.New()
	ctx = audit.WithRequestID(ctx, requestID)

	if check := sql.CheckForInjection("question", question); check != nil && check.IsSQLi {
		s.auditor.LogInjectionProbe(ctx, audit.InjectionProbeDetails{
			Question:    question,
			Fingerprint: check.Fingerprint,
		})
	}

	state, err := s.pipeline.Run(ctx, question)
	result := &AskResult{
		OK:        err == nil,
		RequestID: state.RequestID,
		Question:  state.Question,
		SQL:       state.SQL,
		SQLClean:  state.SQLClean,
		Answer:    state.Answer,
		Columns:   state.Columns,
		Rows:      state.Rows,
		ErrorKind: state.Error,
		Trace:     state.Trace,
	}
	if result.Rows == nil {
		result.Rows = []map[string]any{}
	}

	if err != nil {
		if !errors.Is(err, apperrors.ErrCatalogUnavailable) {
			s.logger.Warn("Question aborted", zap.String("request_id", requestID.String()), zap.Error(err))
		}
		return result, err
	}
	return result, nil
}

func (s *askService) Schema(ctx context.Context) (*models.SchemaCatalog, error) {
	catalog, _, err := s.introspector.Introspect(ctx)
	return catalog, err
}

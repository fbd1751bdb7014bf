package handlers

import (
	"context"

	"github.com/ekaya-inc/ekaya-ask/pkg/models"
	"github.com/ekaya-inc/ekaya-ask/pkg/services"
)

// mockAskService is a configurable AskService for handler tests.
type mockAskService struct {
	result    *services.AskResult
	err       error
	catalog   *models.SchemaCatalog
	schemaErr error
	questions []string
}

func (m *mockAskService) Ask(ctx context.Context, question string) (*services.AskResult, error) {
	m.questions = append(m.questions, question)
	return m.result, m.err
}

func (m *mockAskService) Schema(ctx context.Context) (*models.SchemaCatalog, error) {
	return m.catalog, m.schemaErr
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

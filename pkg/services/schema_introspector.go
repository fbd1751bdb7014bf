package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-ask/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-ask/pkg/logging"
	"github.com/ekaya-inc/ekaya-ask/pkg/models"
	"github.com/ekaya-inc/ekaya-ask/pkg/sql"
)

// SchemaIntrospector reads the base-table catalog and derives the allow-list
// from it. Nothing is cached: every call reads the catalog again.
type SchemaIntrospector struct {
	ds     datasource.Datasource
	logger *zap.Logger
}

// NewSchemaIntrospector creates an introspector over ds.
func NewSchemaIntrospector(ds datasource.Datasource, logger *zap.Logger) *SchemaIntrospector {
	return &SchemaIntrospector{
		ds:     ds,
		logger: logger.Named("introspector"),
	}
}

// Introspect returns the catalog and its allow-list. Any catalog read failure
// is reported as apperrors.ErrCatalogUnavailable wrapping the cause. An empty
// catalog is not an error.
func (s *SchemaIntrospector) Introspect(ctx context.Context) (*models.SchemaCatalog, *sql.AllowList, error) {
	columns, err := s.ds.ListColumns(ctx)
	if err != nil {
		s.logger.Error("Failed to read schema catalog", zap.String("error", logging.SanitizeError(err)))
		return nil, nil, fmt.Errorf("%w: %w", apperrors.ErrCatalogUnavailable, err)
	}

	catalog := models.NewSchemaCatalog(columns)
	allowed := catalog.AllowList()

	if allowed.Len() == 0 {
		s.logger.Warn("Schema catalog has no base tables")
	} else {
		s.logger.Debug("Read schema catalog",
			zap.Int("tables", allowed.Len()),
			zap.Int("columns", len(columns)))
	}

	return catalog, allowed, nil
}

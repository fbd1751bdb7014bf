package dag

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/models"
	"github.com/ekaya-inc/ekaya-ask/pkg/sql"
)

// IntrospectMethods reads the schema catalog.
// This interface allows the node to call service methods without causing import cycles.
type IntrospectMethods interface {
	Introspect(ctx context.Context) (*models.SchemaCatalog, *sql.AllowList, error)
}

// IntrospectNode reads the catalog and derives the schema text and allow-list.
// A failure here is fatal for the run.
type IntrospectNode struct {
	*BaseNode
	introspector IntrospectMethods
}

// NewIntrospectNode creates a new introspect node.
func NewIntrospectNode(introspector IntrospectMethods, logger *zap.Logger) *IntrospectNode {
	return &IntrospectNode{
		BaseNode:     NewBaseNode(models.PipelineNodeIntrospect, logger),
		introspector: introspector,
	}
}

// Execute runs introspection. On failure the delta carries the
// CATALOG_UNAVAILABLE diagnostic and the error is returned.
func (n *IntrospectNode) Execute(ctx context.Context, state models.PipelineState) (models.PipelineDelta, error) {
	catalog, allowed, err := n.introspector.Introspect(ctx)
	if err != nil {
		return models.PipelineDelta{
			Answer: models.Ptr("Cannot answer: the database schema could not be read."),
			Error:  models.Ptr(models.ErrorKindCatalogUnavailable),
		}, err
	}

	n.Logger().Debug("Catalog ready", zap.Int("tables", allowed.Len()))

	return models.PipelineDelta{
		Catalog:       catalog,
		SchemaText:    models.Ptr(catalog.Text()),
		AllowedTables: allowed,
	}, nil
}

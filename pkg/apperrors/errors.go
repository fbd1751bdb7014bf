package apperrors

import "errors"

var (
	ErrEmptyQuestion         = errors.New("question is empty")
	ErrCatalogUnavailable    = errors.New("schema catalog unavailable")
	ErrCompletionUnavailable = errors.New("completion service unavailable")
	ErrUnknownDatasource     = errors.New("unknown datasource type")
)

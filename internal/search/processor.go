package search

import (
	"github.com/hyperjump/pagewise/internal/docstore"
	"github.com/hyperjump/pagewise/internal/models"
)

// ProcessQuery validates and applies defaults to the library query.
func ProcessQuery(query *models.LibraryQuery, cfg Config) error {
	if query == nil {
		return &docstore.ValidationError{Field: "query", Reason: "must not be nil"}
	}
	if err := query.Validate(cfg.DefaultLimit, cfg.MaxLimit); err != nil {
		return &docstore.ValidationError{Field: "query", Reason: err.Error()}
	}
	return nil
}

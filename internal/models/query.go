package models

import (
	"fmt"
	"strings"
)

// LibraryQuery is a search across every stored document.
type LibraryQuery struct {
	Query           string  `json:"query"`
	Limit           int     `json:"limit,omitempty"`
	KeywordEnabled  bool    `json:"keyword_enabled,omitempty"`
	SemanticEnabled bool    `json:"semantic_enabled,omitempty"`
	FuzzyEnabled    bool    `json:"fuzzy_enabled,omitempty"`
	MinScore        float64 `json:"min_score,omitempty"`
}

// Validate ensures the query is non-empty and sets defaults.
// Limit is clamped to [1, maxLimit]; when neither search type is enabled both are.
func (q *LibraryQuery) Validate(defaultLimit, maxLimit int) error {
	if strings.TrimSpace(q.Query) == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if maxLimit > 0 && q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if !q.KeywordEnabled && !q.SemanticEnabled {
		q.KeywordEnabled = true
		q.SemanticEnabled = true
	}
	return nil
}

// PassageQuery is a search inside one document.
type PassageQuery struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// PageQuery asks about one page of a document.
type PageQuery struct {
	Page     int    `json:"page"`
	Question string `json:"question"`
}

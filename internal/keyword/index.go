// Package keyword provides full-text search over processed courses.
package keyword

import (
	"context"

	"github.com/hyperjump/silabo/internal/models"
)

// CourseIndex indexes course records by key and searches them.
type CourseIndex interface {
	Index(ctx context.Context, record *models.CourseRecord) error
	Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error)
	Delete(ctx context.Context, key string) error
	// DocCount returns the total number of courses in the index.
	DocCount() (uint64, error)
	Close() error
}

// fuzziness is the maximum edit distance of a fuzzy term match.
const fuzziness = 2

// Field boosts: a match in the course name or identifiers outranks one in the unit text.
const (
	nameBoost = 3.0
	idsBoost  = 3.0
)

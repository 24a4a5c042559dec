package document

import (
	"context"

	"github.com/numera/numera/internal/types"
)

// Repository defines the interface for document persistence operations.
// Headers and lines are append-only from the engine's perspective.
type Repository interface {
	// CreateWithLines inserts the header and its lines. Must be called
	// inside the same transaction that allocated the header's number.
	CreateWithLines(ctx context.Context, header *DocumentHeader, lines []*DocumentLine) error

	// Get retrieves a document header with its lines by ID
	Get(ctx context.Context, id string) (*DocumentHeader, error)

	// GetByNumber retrieves a document by its scope and allocated number
	GetByNumber(ctx context.Context, scope types.ScopeKey, number int64) (*DocumentHeader, error)

	// List retrieves document headers based on filter criteria
	List(ctx context.Context, filter *types.DocumentFilter) ([]*DocumentHeader, error)

	// Count returns the total count of documents based on filter criteria
	Count(ctx context.Context, filter *types.DocumentFilter) (int, error)
}

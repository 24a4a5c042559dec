package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/numera/numera/internal/domain/document"
	ierr "github.com/numera/numera/internal/errors"
	"github.com/numera/numera/internal/types"
)

var _ document.Repository = (*InMemoryDocumentStore)(nil)

// InMemoryDocumentStore emulates the document tables. Writes are staged on
// the surrounding transaction and only become readable after commit; the
// unique (scope_key, number) constraint is enforced the same way the real
// store's index would.
type InMemoryDocumentStore struct {
	mu        sync.RWMutex
	headers   map[string]*document.DocumentHeader
	byNumber  map[string]string // scope_key:number -> header id
	lines     map[string][]*document.DocumentLine
	createErr func(header *document.DocumentHeader) error
	creates   int
}

func NewInMemoryDocumentStore() *InMemoryDocumentStore {
	return &InMemoryDocumentStore{
		headers:  make(map[string]*document.DocumentHeader),
		byNumber: make(map[string]string),
		lines:    make(map[string][]*document.DocumentLine),
	}
}

// FailCreate installs a fault hook invoked inside CreateWithLines, after the
// number has been allocated by the caller's transaction. Used to prove the
// counter increment rolls back with the document.
func (s *InMemoryDocumentStore) FailCreate(fn func(header *document.DocumentHeader) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createErr = fn
}

// Creates reports how many create attempts reached the store.
func (s *InMemoryDocumentStore) Creates() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creates
}

func numberKey(scopeKey string, number int64) string {
	return fmt.Sprintf("%s:%d", scopeKey, number)
}

func (s *InMemoryDocumentStore) CreateWithLines(ctx context.Context, header *document.DocumentHeader, lines []*document.DocumentLine) error {
	tx := txFromContext(ctx)
	if tx == nil {
		return ierr.NewError("document creation requires a transaction").
			WithHint("internal misuse of the document store").
			Mark(ierr.ErrSystem)
	}

	s.mu.Lock()
	s.creates++
	createErr := s.createErr
	s.mu.Unlock()

	if createErr != nil {
		if err := createErr(header); err != nil {
			return err
		}
	}

	s.mu.RLock()
	_, idTaken := s.headers[header.ID]
	_, numberTaken := s.byNumber[numberKey(header.ScopeKey, header.Number)]
	s.mu.RUnlock()

	if idTaken || numberTaken {
		return ierr.NewError("duplicate document number").
			WithHint("a document with this number already exists in the scope").
			WithReportableDetails(map[string]any{
				"scope_key": header.ScopeKey,
				"number":    header.Number,
			}).
			Mark(ierr.ErrConstraintViolation)
	}

	headerCopy := *header
	lineCopies := make([]*document.DocumentLine, len(lines))
	for i, line := range lines {
		lineCopy := *line
		lineCopies[i] = &lineCopy
	}

	tx.stage(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.headers[headerCopy.ID] = &headerCopy
		s.byNumber[numberKey(headerCopy.ScopeKey, headerCopy.Number)] = headerCopy.ID
		s.lines[headerCopy.ID] = lineCopies
	}, nil)

	return nil
}

func (s *InMemoryDocumentStore) Get(ctx context.Context, id string) (*document.DocumentHeader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	header, ok := s.headers[id]
	if !ok {
		return nil, ierr.NewError("document not found").
			WithHintf("document %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}
	return s.withLines(header), nil
}

func (s *InMemoryDocumentStore) GetByNumber(ctx context.Context, scope types.ScopeKey, number int64) (*document.DocumentHeader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byNumber[numberKey(scope.Key(), number)]
	if !ok {
		return nil, ierr.NewError("document not found").
			WithHintf("no document numbered %d in scope %s", number, scope.Key()).
			Mark(ierr.ErrNotFound)
	}
	return s.withLines(s.headers[id]), nil
}

func (s *InMemoryDocumentStore) List(ctx context.Context, filter *types.DocumentFilter) ([]*document.DocumentHeader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.match(filter)
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].ScopeKey != matched[j].ScopeKey {
			return matched[i].ScopeKey < matched[j].ScopeKey
		}
		return matched[i].Number > matched[j].Number
	})

	offset := filter.GetOffset()
	if offset >= len(matched) {
		return []*document.DocumentHeader{}, nil
	}
	matched = matched[offset:]

	limit := filter.GetLimit()
	if limit < len(matched) {
		matched = matched[:limit]
	}

	result := make([]*document.DocumentHeader, len(matched))
	for i, header := range matched {
		result[i] = s.withLines(header)
	}
	return result, nil
}

func (s *InMemoryDocumentStore) Count(ctx context.Context, filter *types.DocumentFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.match(filter)), nil
}

func (s *InMemoryDocumentStore) match(filter *types.DocumentFilter) []*document.DocumentHeader {
	matched := make([]*document.DocumentHeader, 0, len(s.headers))
	for _, header := range s.headers {
		if filter != nil {
			if filter.Scope != nil && header.ScopeKey != filter.Scope.Key() {
				continue
			}
			if filter.DocStatus != "" && header.DocStatus != filter.DocStatus {
				continue
			}
		}
		matched = append(matched, header)
	}
	return matched
}

func (s *InMemoryDocumentStore) withLines(header *document.DocumentHeader) *document.DocumentHeader {
	headerCopy := *header
	headerCopy.Lines = s.lines[header.ID]
	return &headerCopy
}

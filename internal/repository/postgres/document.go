package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/numera/numera/internal/domain/document"
	ierr "github.com/numera/numera/internal/errors"
	"github.com/numera/numera/internal/logger"
	"github.com/numera/numera/internal/postgres"
	"github.com/numera/numera/internal/types"
)

type documentRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewDocumentRepository(db *postgres.DB, logger *logger.Logger) document.Repository {
	return &documentRepository{db: db, logger: logger}
}

const (
	insertHeader = `
	INSERT INTO document_headers (
		id, scope_key, branch_id, document_type, series_code, number,
		formatted_number, issued_at, doc_status, currency, total_amount,
		description, status, created_at, updated_at, created_by, updated_by
	) VALUES (
		:id, :scope_key, :branch_id, :document_type, :series_code, :number,
		:formatted_number, :issued_at, :doc_status, :currency, :total_amount,
		:description, :status, :created_at, :updated_at, :created_by, :updated_by
	)`

	insertLines = `
	INSERT INTO document_lines (
		id, header_id, line_order, description, quantity, unit_price,
		amount, side, status, created_at, updated_at, created_by, updated_by
	) VALUES (
		:id, :header_id, :line_order, :description, :quantity, :unit_price,
		:amount, :side, :status, :created_at, :updated_at, :created_by, :updated_by
	)`

	selectHeader = `
	SELECT id, scope_key, branch_id, document_type, series_code, number,
		formatted_number, issued_at, doc_status, currency, total_amount,
		description, status, created_at, updated_at, created_by, updated_by
	FROM document_headers`

	selectLines = `
	SELECT id, header_id, line_order, description, quantity, unit_price,
		amount, side, status, created_at, updated_at, created_by, updated_by
	FROM document_lines
	WHERE header_id = $1
	ORDER BY line_order ASC`
)

// CreateWithLines implements document.Repository. A unique violation on
// (scope_key, number) is the defense-in-depth constraint firing; it is
// classified ErrConstraintViolation and never retried.
func (r *documentRepository) CreateWithLines(ctx context.Context, header *document.DocumentHeader, lines []*document.DocumentLine) error {
	if _, ok := postgres.GetTx(ctx); !ok {
		return ierr.NewError("document creation outside a transaction").
			WithHint("header and lines must be created in the allocation transaction").
			Mark(ierr.ErrSystem)
	}

	q := r.db.GetQuerier(ctx)

	if _, err := q.NamedExec(insertHeader, header); err != nil {
		return postgres.ClassifyError(err)
	}

	if len(lines) > 0 {
		// sqlx expands the named exec into a multi-row VALUES insert
		if _, err := q.NamedExec(insertLines, lines); err != nil {
			return postgres.ClassifyError(err)
		}
	}

	r.logger.Debugw("inserted document",
		"document_id", header.ID,
		"scope", header.ScopeKey,
		"number", header.Number,
		"lines", len(lines),
	)

	return nil
}

func (r *documentRepository) Get(ctx context.Context, id string) (*document.DocumentHeader, error) {
	q := r.db.GetQuerier(ctx)

	var header document.DocumentHeader
	query := selectHeader + ` WHERE id = $1 AND status = $2`
	err := q.GetContext(ctx, &header, query, id, types.StatusPublished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ierr.NewError("document not found").
			WithHint("document not found").
			WithReportableDetails(map[string]any{"document_id": id}).
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return nil, postgres.ClassifyError(err)
	}

	if err := r.loadLines(ctx, &header); err != nil {
		return nil, err
	}
	return &header, nil
}

func (r *documentRepository) GetByNumber(ctx context.Context, scope types.ScopeKey, number int64) (*document.DocumentHeader, error) {
	q := r.db.GetQuerier(ctx)

	var header document.DocumentHeader
	query := selectHeader + ` WHERE scope_key = $1 AND number = $2 AND status = $3`
	err := q.GetContext(ctx, &header, query, scope.Key(), number, types.StatusPublished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ierr.NewError("document not found").
			WithHint("no document with this number in the series").
			WithReportableDetails(map[string]any{"scope": scope.Key(), "number": number}).
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return nil, postgres.ClassifyError(err)
	}

	if err := r.loadLines(ctx, &header); err != nil {
		return nil, err
	}
	return &header, nil
}

func (r *documentRepository) List(ctx context.Context, filter *types.DocumentFilter) ([]*document.DocumentHeader, error) {
	q := r.db.GetQuerier(ctx)

	query, args := buildListQuery(selectHeader, filter, false)

	headers := make([]*document.DocumentHeader, 0)
	if err := q.SelectContext(ctx, &headers, query, args...); err != nil {
		return nil, postgres.ClassifyError(err)
	}
	return headers, nil
}

func (r *documentRepository) Count(ctx context.Context, filter *types.DocumentFilter) (int, error) {
	q := r.db.GetQuerier(ctx)

	query, args := buildListQuery(`SELECT COUNT(*) FROM document_headers`, filter, true)

	var count int
	if err := q.GetContext(ctx, &count, query, args...); err != nil {
		return 0, postgres.ClassifyError(err)
	}
	return count, nil
}

func (r *documentRepository) loadLines(ctx context.Context, header *document.DocumentHeader) error {
	q := r.db.GetQuerier(ctx)

	lines := make([]*document.DocumentLine, 0)
	if err := q.SelectContext(ctx, &lines, selectLines, header.ID); err != nil {
		return postgres.ClassifyError(err)
	}
	header.Lines = lines
	return nil
}

func buildListQuery(base string, filter *types.DocumentFilter, count bool) (string, []interface{}) {
	query := base + ` WHERE status = $1`
	args := []interface{}{types.StatusPublished}

	if filter != nil && filter.Scope != nil {
		args = append(args, filter.Scope.Key())
		query += fmt.Sprintf(" AND scope_key = $%d", len(args))
	}
	if filter != nil && filter.DocStatus != "" {
		args = append(args, filter.DocStatus)
		query += fmt.Sprintf(" AND doc_status = $%d", len(args))
	}

	if count {
		return query, args
	}

	query += " ORDER BY number DESC"
	args = append(args, filter.GetLimit())
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, filter.GetOffset())
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	return query, args
}

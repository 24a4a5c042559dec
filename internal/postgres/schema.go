package postgres

import "context"

// Schema is the engine's DDL. Idempotent so migrations can be re-run.
//
// The unique index on (scope_key, number) is defense in depth: the counter
// row lock already serializes allocation, so this constraint firing means a
// bug in the locking discipline, not a user error.
const Schema = `
CREATE TABLE IF NOT EXISTS counters (
    scope_key    TEXT PRIMARY KEY,
    last_issued  BIGINT NOT NULL DEFAULT 0,
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS document_headers (
    id               TEXT PRIMARY KEY,
    scope_key        TEXT NOT NULL,
    branch_id        INTEGER NOT NULL,
    document_type    TEXT NOT NULL,
    series_code      TEXT NOT NULL DEFAULT '',
    number           BIGINT NOT NULL,
    formatted_number TEXT NOT NULL,
    issued_at        TIMESTAMPTZ NOT NULL,
    doc_status       TEXT NOT NULL,
    currency         TEXT NOT NULL,
    total_amount     NUMERIC(20,6) NOT NULL DEFAULT 0,
    description      TEXT NOT NULL DEFAULT '',
    status           TEXT NOT NULL DEFAULT 'published',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    created_by       TEXT NOT NULL DEFAULT '',
    updated_by       TEXT NOT NULL DEFAULT '',
    CONSTRAINT document_headers_scope_number_key UNIQUE (scope_key, number)
);

CREATE INDEX IF NOT EXISTS document_headers_scope_status_idx
    ON document_headers (scope_key, doc_status);

CREATE TABLE IF NOT EXISTS document_lines (
    id          TEXT PRIMARY KEY,
    header_id   TEXT NOT NULL REFERENCES document_headers (id),
    line_order  INTEGER NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    quantity    NUMERIC(20,6) NOT NULL DEFAULT 0,
    unit_price  NUMERIC(20,6) NOT NULL DEFAULT 0,
    amount      NUMERIC(20,6) NOT NULL DEFAULT 0,
    side        TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL DEFAULT 'published',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    created_by  TEXT NOT NULL DEFAULT '',
    updated_by  TEXT NOT NULL DEFAULT '',
    CONSTRAINT document_lines_header_order_key UNIQUE (header_id, line_order)
);
`

// Migrate applies the schema.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.DB.ExecContext(ctx, Schema); err != nil {
		return ClassifyError(err)
	}
	return nil
}

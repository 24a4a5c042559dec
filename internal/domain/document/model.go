package document

import (
	"time"

	"github.com/numera/numera/internal/types"
	"github.com/shopspring/decimal"
)

// DocumentHeader represents one committed business document. Number and
// FormattedNumber are stamped exactly once, inside the same transaction that
// allocated them, and are never mutated afterward. Voiding a document keeps
// its number.
type DocumentHeader struct {
	ID              string               `db:"id" json:"id"`
	ScopeKey        string               `db:"scope_key" json:"scope_key"`
	BranchID        int                  `db:"branch_id" json:"branch_id"`
	DocumentType    types.DocumentType   `db:"document_type" json:"document_type"`
	SeriesCode      string               `db:"series_code" json:"series_code,omitempty"`
	Number          int64                `db:"number" json:"number"`
	FormattedNumber string               `db:"formatted_number" json:"formatted_number"`
	IssuedAt        time.Time            `db:"issued_at" json:"issued_at"`
	DocStatus       types.DocumentStatus `db:"doc_status" json:"doc_status"`
	Currency        string               `db:"currency" json:"currency"`
	TotalAmount     decimal.Decimal      `db:"total_amount" json:"total_amount"`
	Description     string               `db:"description" json:"description,omitempty"`
	Lines           []*DocumentLine      `db:"-" json:"lines,omitempty"`
	types.BaseModel
}

// Scope reconstructs the header's scope key triple.
func (h *DocumentHeader) Scope() types.ScopeKey {
	return types.ScopeKey{
		BranchID:     h.BranchID,
		DocumentType: h.DocumentType,
		SeriesCode:   h.SeriesCode,
	}
}

// DocumentLine belongs to exactly one header and is created only as part of
// the header's creation transaction.
type DocumentLine struct {
	ID          string          `db:"id" json:"id"`
	HeaderID    string          `db:"header_id" json:"header_id"`
	LineOrder   int             `db:"line_order" json:"line_order"`
	Description string          `db:"description" json:"description,omitempty"`
	Quantity    decimal.Decimal `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Side        types.LineSide  `db:"side" json:"side,omitempty"`
	types.BaseModel
}

// HeaderDraft is the pre-computed, not-yet-numbered payload of a document.
// Business rules (pricing, taxes, stock) have already run by the time a
// draft reaches the engine.
type HeaderDraft struct {
	Scope       types.ScopeKey
	IssuedAt    time.Time
	Currency    string
	TotalAmount decimal.Decimal
	Description string
}

// LineDraft is one not-yet-persisted line of a draft, in caller order.
type LineDraft struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
	Side        types.LineSide
}

// ValidatedDocument is the assembler's output: a draft that passed every
// structural rule and may be handed to the coordinator.
type ValidatedDocument struct {
	Header HeaderDraft
	Lines  []LineDraft
}

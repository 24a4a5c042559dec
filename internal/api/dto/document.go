package dto

import (
	"time"

	"github.com/numera/numera/internal/domain/document"
	ierr "github.com/numera/numera/internal/errors"
	"github.com/numera/numera/internal/types"
	"github.com/numera/numera/internal/validator"
	"github.com/shopspring/decimal"
)

// CreateDocumentRequest carries a pre-computed document payload. Pricing,
// taxes and stock checks have already happened upstream; the engine only
// checks structural consistency before numbering and persisting.
type CreateDocumentRequest struct {
	BranchID     int                         `json:"branch_id" validate:"required,gt=0"`
	DocumentType types.DocumentType          `json:"document_type" validate:"required"`
	SeriesCode   string                      `json:"series_code,omitempty" validate:"omitempty,max=10"`
	IssuedAt     *time.Time                  `json:"issued_at,omitempty"`
	Currency     string                      `json:"currency" validate:"required,len=3"`
	TotalAmount  decimal.Decimal             `json:"total_amount"`
	Description  string                      `json:"description,omitempty" validate:"max=500"`
	Lines        []CreateDocumentLineRequest `json:"lines" validate:"dive"`
}

// CreateDocumentLineRequest is one line of the payload, in caller order.
type CreateDocumentLineRequest struct {
	Description string          `json:"description,omitempty" validate:"max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
	Side        types.LineSide  `json:"side,omitempty"`
}

func (r *CreateDocumentRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}

	if err := r.Scope().Validate(); err != nil {
		return err
	}

	for _, line := range r.Lines {
		if err := line.Side.Validate(); err != nil {
			return err
		}
	}

	if r.TotalAmount.IsNegative() {
		return ierr.NewError("total_amount must be non-negative").
			WithHint("total amount is negative").
			WithReportableDetails(map[string]any{"total_amount": r.TotalAmount.String()}).
			Mark(ierr.ErrValidation)
	}

	return nil
}

// Scope returns the numbering scope the request targets.
func (r *CreateDocumentRequest) Scope() types.ScopeKey {
	return types.ScopeKey{
		BranchID:     r.BranchID,
		DocumentType: r.DocumentType,
		SeriesCode:   r.SeriesCode,
	}
}

// ToDrafts converts the request into the assembler's input.
func (r *CreateDocumentRequest) ToDrafts() (document.HeaderDraft, []document.LineDraft) {
	issuedAt := time.Now().UTC()
	if r.IssuedAt != nil {
		issuedAt = r.IssuedAt.UTC()
	}

	header := document.HeaderDraft{
		Scope:       r.Scope(),
		IssuedAt:    issuedAt,
		Currency:    r.Currency,
		TotalAmount: r.TotalAmount,
		Description: r.Description,
	}

	lines := make([]document.LineDraft, len(r.Lines))
	for i, line := range r.Lines {
		lines[i] = document.LineDraft{
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Amount:      line.Amount,
			Side:        line.Side,
		}
	}

	return header, lines
}

// DocumentResponse is the success shape of CreateDocument and the read
// endpoints.
type DocumentResponse struct {
	*document.DocumentHeader
}

func NewDocumentResponse(header *document.DocumentHeader) *DocumentResponse {
	return &DocumentResponse{DocumentHeader: header}
}

// ListDocumentsResponse wraps a filtered listing with its total count.
type ListDocumentsResponse struct {
	Items  []*DocumentResponse `json:"items"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

// CounterResponse exposes a scope's counter state (read-only).
type CounterResponse struct {
	ScopeKey   string    `json:"scope_key"`
	LastIssued int64     `json:"last_issued"`
	UpdatedAt  time.Time `json:"updated_at"`
}

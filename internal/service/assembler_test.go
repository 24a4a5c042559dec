package service

import (
	"testing"
	"time"

	"github.com/numera/numera/internal/domain/document"
	"github.com/numera/numera/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type AssemblerSuite struct {
	suite.Suite
	assembler Assembler
}

func TestAssembler(t *testing.T) {
	suite.Run(t, new(AssemblerSuite))
}

func (s *AssemblerSuite) SetupTest() {
	s.assembler = NewAssembler()
}

func (s *AssemblerSuite) header(docType types.DocumentType, total string) document.HeaderDraft {
	return document.HeaderDraft{
		Scope: types.ScopeKey{
			BranchID:     1,
			DocumentType: docType,
		},
		IssuedAt:    time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		Currency:    "PEN",
		TotalAmount: decimal.RequireFromString(total),
	}
}

func (s *AssemblerSuite) line(qty, price, amount string) document.LineDraft {
	return document.LineDraft{
		Quantity:  decimal.RequireFromString(qty),
		UnitPrice: decimal.RequireFromString(price),
		Amount:    decimal.RequireFromString(amount),
	}
}

func (s *AssemblerSuite) ledgerLine(amount string, side types.LineSide) document.LineDraft {
	return document.LineDraft{
		Amount: decimal.RequireFromString(amount),
		Side:   side,
	}
}

func (s *AssemblerSuite) TestAssemble() {
	testCases := []struct {
		name          string
		header        document.HeaderDraft
		lines         []document.LineDraft
		expectedError bool
	}{
		{
			name:   "consistent_receipt",
			header: s.header(types.DocumentTypeReceipt, "59.00"),
			lines: []document.LineDraft{
				s.line("2", "12.50", "25.00"),
				s.line("4", "8.50", "34.00"),
			},
			expectedError: false,
		},
		{
			name:          "empty_line_set",
			header:        s.header(types.DocumentTypeReceipt, "0"),
			lines:         []document.LineDraft{},
			expectedError: true,
		},
		{
			name:   "negative_line_amount",
			header: s.header(types.DocumentTypeReceipt, "0"),
			lines: []document.LineDraft{
				s.line("1", "-10.00", "-10.00"),
			},
			expectedError: true,
		},
		{
			name:   "subtotal_mismatch",
			header: s.header(types.DocumentTypeReceipt, "30.00"),
			lines: []document.LineDraft{
				s.line("3", "10.00", "29.00"),
			},
			expectedError: true,
		},
		{
			name:   "balanced_ledger_entry",
			header: s.header(types.DocumentTypeLedger, "0"),
			lines: []document.LineDraft{
				s.ledgerLine("150.00", types.LineSideDebit),
				s.ledgerLine("100.00", types.LineSideCredit),
				s.ledgerLine("50.00", types.LineSideCredit),
			},
			expectedError: false,
		},
		{
			name:   "unbalanced_ledger_entry",
			header: s.header(types.DocumentTypeLedger, "0"),
			lines: []document.LineDraft{
				s.ledgerLine("150.00", types.LineSideDebit),
				s.ledgerLine("149.99", types.LineSideCredit),
			},
			expectedError: true,
		},
		{
			name:   "ledger_line_without_side",
			header: s.header(types.DocumentTypeLedger, "0"),
			lines: []document.LineDraft{
				s.ledgerLine("150.00", types.LineSideDebit),
				s.ledgerLine("150.00", types.LineSideNone),
			},
			expectedError: true,
		},
		{
			name:   "side_on_non_ledger_document",
			header: s.header(types.DocumentTypeReceipt, "10.00"),
			lines: []document.LineDraft{
				s.ledgerLine("10.00", types.LineSideDebit),
			},
			expectedError: true,
		},
		{
			name:   "header_total_off_by_one_cent",
			header: s.header(types.DocumentTypeReceipt, "100.00"),
			lines: []document.LineDraft{
				s.line("1", "99.99", "99.99"),
			},
			expectedError: true,
		},
		{
			name:   "header_total_matches_line_sum",
			header: s.header(types.DocumentTypeReceipt, "100.00"),
			lines: []document.LineDraft{
				s.line("1", "60.00", "60.00"),
				s.line("1", "40.00", "40.00"),
			},
			expectedError: false,
		},
		{
			name:   "zero_header_total_skips_total_check",
			header: s.header(types.DocumentTypeGuide, "0"),
			lines: []document.LineDraft{
				s.line("5", "0", "0"),
			},
			expectedError: false,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			validated, err := s.assembler.Assemble(tc.header, tc.lines)
			if tc.expectedError {
				s.Error(err)
				s.Nil(validated)
				return
			}
			s.NoError(err)
			s.NotNil(validated)
			s.Len(validated.Lines, len(tc.lines))
		})
	}
}

// A one-cent discrepancy introduced by per-line rounding is still a
// rejection, with a message that names the tolerance, not a bare mismatch.
func (s *AssemblerSuite) TestAssembleRoundingDiscrepancyMessage() {
	header := s.header(types.DocumentTypeReceipt, "100.00")
	lines := []document.LineDraft{
		s.line("1", "99.99", "99.99"),
	}

	_, err := s.assembler.Assemble(header, lines)
	s.Error(err)
	s.Contains(err.Error(), "rounding tolerance")
}

// Subtotals that only differ from quantity * unit price by sub-cent noise
// pass; a full cent does not.
func (s *AssemblerSuite) TestAssembleSubtotalTolerance() {
	header := s.header(types.DocumentTypeReceipt, "0")

	within := []document.LineDraft{
		s.line("3", "3.3333", "10.00"),
	}
	_, err := s.assembler.Assemble(header, within)
	s.NoError(err)

	beyond := []document.LineDraft{
		s.line("3", "3.3333", "10.01"),
	}
	_, err = s.assembler.Assemble(header, beyond)
	s.Error(err)
}

// Every violation in the payload is reported at once, not just the first.
func (s *AssemblerSuite) TestAssembleCollectsAllViolations() {
	header := s.header(types.DocumentTypeLedger, "0")
	lines := []document.LineDraft{
		s.ledgerLine("-10.00", types.LineSideNone),
		s.ledgerLine("25.00", types.LineSideDebit),
	}

	_, err := s.assembler.Assemble(header, lines)
	s.Error(err)
	s.Contains(err.Error(), "validation")
}

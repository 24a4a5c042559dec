package service

import (
	"fmt"

	"github.com/numera/numera/internal/domain/document"
	ierr "github.com/numera/numera/internal/errors"
	"github.com/numera/numera/internal/types"
	"github.com/shopspring/decimal"
)

// roundingTolerance is half a cent: the largest difference 2-decimal
// currency rounding can legitimately introduce per comparison.
var roundingTolerance = decimal.New(5, -3)

// oneCent distinguishes "off by a rounding step" from an outright mismatch
// in the violation message.
var oneCent = decimal.New(1, -2)

// Assembler validates that a header draft and its lines are structurally
// consistent. Pure: no I/O, no allocation, no storage. Validation runs
// before any transaction is opened so the lock-holding allocator is only
// reached once the cheap checks have passed.
type Assembler interface {
	Assemble(header document.HeaderDraft, lines []document.LineDraft) (*document.ValidatedDocument, error)
}

type assembler struct{}

func NewAssembler() Assembler {
	return &assembler{}
}

// Assemble collects every violation it finds, not just the first, so the
// caller can report all problems at once.
func (a *assembler) Assemble(header document.HeaderDraft, lines []document.LineDraft) (*document.ValidatedDocument, error) {
	violations := make([]string, 0)

	spec := header.Scope.DocumentType.Spec()

	if spec.RequiresLines && len(lines) == 0 {
		violations = append(violations, fmt.Sprintf("%s documents require at least one line", header.Scope.DocumentType))
	}

	lineSum := decimal.Zero
	debitSum := decimal.Zero
	creditSum := decimal.Zero

	for i, line := range lines {
		lineNo := i + 1

		if line.Amount.IsNegative() {
			violations = append(violations, fmt.Sprintf("line %d: amount %s is negative", lineNo, line.Amount))
		}

		// A declared subtotal must match quantity * unit price when both
		// are supplied; ledger legs carry only an amount and a side.
		if !line.Quantity.IsZero() || !line.UnitPrice.IsZero() {
			computed := line.Quantity.Mul(line.UnitPrice).Round(2)
			if diff := computed.Sub(line.Amount).Abs(); diff.GreaterThan(roundingTolerance) {
				violations = append(violations, subtotalViolation(lineNo, line.Amount, computed, diff))
			}
		}

		switch {
		case spec.Ledger && line.Side == types.LineSideNone:
			violations = append(violations, fmt.Sprintf("line %d: ledger lines must be flagged debit or credit", lineNo))
		case !spec.Ledger && line.Side != types.LineSideNone:
			violations = append(violations, fmt.Sprintf("line %d: only ledger documents may flag debit/credit", lineNo))
		}

		switch line.Side {
		case types.LineSideDebit:
			debitSum = debitSum.Add(line.Amount)
		case types.LineSideCredit:
			creditSum = creditSum.Add(line.Amount)
		}

		lineSum = lineSum.Add(line.Amount)
	}

	if spec.Ledger {
		// Ledger entries balance to the cent, zero tolerance.
		if !debitSum.Equal(creditSum) {
			violations = append(violations, fmt.Sprintf(
				"ledger entry does not balance: debits %s, credits %s", debitSum, creditSum))
		}
	} else if len(lines) > 0 && !header.TotalAmount.IsZero() {
		if diff := header.TotalAmount.Sub(lineSum).Abs(); diff.GreaterThan(roundingTolerance) {
			violations = append(violations, totalViolation(header.TotalAmount, lineSum, diff))
		}
	}

	if len(violations) > 0 {
		return nil, ierr.NewError("document failed validation").
			WithHint("document payload is structurally inconsistent").
			WithReportableDetails(map[string]any{"violations": violations}).
			Mark(ierr.ErrValidation)
	}

	return &document.ValidatedDocument{Header: header, Lines: lines}, nil
}

func subtotalViolation(lineNo int, declared, computed, diff decimal.Decimal) string {
	if diff.LessThanOrEqual(oneCent) {
		return fmt.Sprintf(
			"line %d: declared subtotal %s is off from computed %s by %s, more than the %s rounding tolerance",
			lineNo, declared, computed, diff, roundingTolerance)
	}
	return fmt.Sprintf(
		"line %d: declared subtotal %s does not match computed %s", lineNo, declared, computed)
}

func totalViolation(declared, lineSum, diff decimal.Decimal) string {
	if diff.LessThanOrEqual(oneCent) {
		return fmt.Sprintf(
			"header total %s is off from line sum %s by %s, more than the %s rounding tolerance",
			declared, lineSum, diff, roundingTolerance)
	}
	return fmt.Sprintf("header total %s does not match line sum %s", declared, lineSum)
}

package types

import (
	ierr "github.com/numera/numera/internal/errors"
)

// DocumentType identifies the kind of business document a numbering stream
// belongs to. The set is closed: every type carries its own series
// conventions and assembly rules.
type DocumentType string

const (
	// DocumentTypeQuote is a sales quotation (dated correlative, COT-YYMMDD-0001)
	DocumentTypeQuote DocumentType = "QUOTE"
	// DocumentTypeGuide is a shipment guide (plain zero-padded correlative)
	DocumentTypeGuide DocumentType = "GUIDE"
	// DocumentTypePurchase is a purchase liquidation
	DocumentTypePurchase DocumentType = "PURCHASE"
	// DocumentTypeReceipt is a sales receipt / electronic invoice correlative
	DocumentTypeReceipt DocumentType = "RECEIPT"
	// DocumentTypeLedger is a double-entry accounting entry
	DocumentTypeLedger DocumentType = "LEDGER"
)

func (t DocumentType) String() string {
	return string(t)
}

func (t DocumentType) Validate() error {
	allowed := []DocumentType{
		DocumentTypeQuote,
		DocumentTypeGuide,
		DocumentTypePurchase,
		DocumentTypeReceipt,
		DocumentTypeLedger,
	}
	for _, dt := range allowed {
		if t == dt {
			return nil
		}
	}
	return ierr.NewError("invalid document type").
		WithHint("invalid document type").
		WithReportableDetails(map[string]any{"document_type": t, "allowed": allowed}).
		Mark(ierr.ErrValidation)
}

// SeriesSpec describes how a document type formats its correlative and which
// structural rules its line set must satisfy.
type SeriesSpec struct {
	// PadWidth is the zero-pad width of the trailing counter
	PadWidth int
	// Prefix is prepended to the formatted number (empty when the series
	// code alone prefixes it)
	Prefix string
	// Dated inserts a YYMMDD component between prefix and counter
	Dated bool
	// RequiresLines rejects documents with an empty line set
	RequiresLines bool
	// Ledger enforces the debit/credit balance invariant on the line set
	Ledger bool
}

var seriesSpecs = map[DocumentType]SeriesSpec{
	DocumentTypeQuote:    {PadWidth: 4, Prefix: "COT", Dated: true, RequiresLines: true},
	DocumentTypeGuide:    {PadWidth: 8, RequiresLines: true},
	DocumentTypePurchase: {PadWidth: 8, RequiresLines: true},
	DocumentTypeReceipt:  {PadWidth: 8, RequiresLines: true},
	DocumentTypeLedger:   {PadWidth: 6, Prefix: "ASI", RequiresLines: true, Ledger: true},
}

// Spec returns the series conventions for the document type. Unknown types
// fall back to a plain 8-wide correlative.
func (t DocumentType) Spec() SeriesSpec {
	if spec, ok := seriesSpecs[t]; ok {
		return spec
	}
	return SeriesSpec{PadWidth: 8, RequiresLines: true}
}

package service

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/numera/numera/internal/api/dto"
	"github.com/numera/numera/internal/cache"
	"github.com/numera/numera/internal/domain/document"
	ierr "github.com/numera/numera/internal/errors"
	"github.com/numera/numera/internal/testutil"
	"github.com/numera/numera/internal/types"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/suite"
)

type DocumentServiceSuite struct {
	testutil.BaseServiceTestSuite
	service      DocumentService
	counterStore *testutil.InMemoryCounterStore
	docStore     *testutil.InMemoryDocumentStore
}

func TestDocumentService(t *testing.T) {
	suite.Run(t, new(DocumentServiceSuite))
}

func (s *DocumentServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	s.counterStore = s.GetStores().SequenceRepo.(*testutil.InMemoryCounterStore)
	s.docStore = s.GetStores().DocumentRepo.(*testutil.InMemoryDocumentStore)

	s.service = NewDocumentService(DocumentServiceParams{
		DB:        s.GetDB(),
		DocRepo:   s.docStore,
		SeqRepo:   s.counterStore,
		Assembler: NewAssembler(),
		Retry:     NewRetryPolicy(s.GetConfig(), s.GetLogger()),
		Cache:     cache.NewInMemoryCache(),
		Logger:    s.GetLogger(),
	})
}

func (s *DocumentServiceSuite) receiptRequest(branchID int) dto.CreateDocumentRequest {
	return dto.CreateDocumentRequest{
		BranchID:     branchID,
		DocumentType: types.DocumentTypeReceipt,
		Currency:     "PEN",
		TotalAmount:  decimal.RequireFromString("25.00"),
		Lines: []dto.CreateDocumentLineRequest{
			{
				Description: "thermal paper roll",
				Quantity:    decimal.RequireFromString("2"),
				UnitPrice:   decimal.RequireFromString("12.50"),
				Amount:      decimal.RequireFromString("25.00"),
			},
		},
	}
}

func (s *DocumentServiceSuite) ledgerRequest(branchID int) dto.CreateDocumentRequest {
	return dto.CreateDocumentRequest{
		BranchID:     branchID,
		DocumentType: types.DocumentTypeLedger,
		Currency:     "PEN",
		Lines: []dto.CreateDocumentLineRequest{
			{Description: "caja", Amount: decimal.RequireFromString("150.00"), Side: types.LineSideDebit},
			{Description: "ventas", Amount: decimal.RequireFromString("150.00"), Side: types.LineSideCredit},
		},
	}
}

func (s *DocumentServiceSuite) TestCreateDocumentAssignsSequentialNumbers() {
	for i := int64(1); i <= 3; i++ {
		resp, err := s.service.CreateDocument(s.GetContext(), s.receiptRequest(1))
		s.NoError(err)
		s.Equal(i, resp.Number)
		s.Equal(types.DocumentStatusActive, resp.DocStatus)
		s.NotEmpty(resp.ID)
		s.Len(resp.Lines, 1)
		s.Equal(1, resp.Lines[0].LineOrder)
	}

	counter, err := s.service.GetCounter(s.GetContext(), types.ScopeKey{
		BranchID:     1,
		DocumentType: types.DocumentTypeReceipt,
	})
	s.NoError(err)
	s.Equal(int64(3), counter.LastIssued)
}

func (s *DocumentServiceSuite) TestCreateDocumentFormatsNumberPerSeries() {
	resp, err := s.service.CreateDocument(s.GetContext(), s.receiptRequest(1))
	s.NoError(err)
	s.Equal("00000001", resp.FormattedNumber)

	ledger, err := s.service.CreateDocument(s.GetContext(), s.ledgerRequest(1))
	s.NoError(err)
	s.Equal("ASI-000001", ledger.FormattedNumber)

	issuedAt := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	quote := dto.CreateDocumentRequest{
		BranchID:     1,
		DocumentType: types.DocumentTypeQuote,
		IssuedAt:     &issuedAt,
		Currency:     "PEN",
		TotalAmount:  decimal.RequireFromString("10.00"),
		Lines: []dto.CreateDocumentLineRequest{
			{Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("10.00"), Amount: decimal.RequireFromString("10.00")},
		},
	}
	quoteResp, err := s.service.CreateDocument(s.GetContext(), quote)
	s.NoError(err)
	s.Equal("COT-260314-0001", quoteResp.FormattedNumber)
}

func (s *DocumentServiceSuite) TestScopesNumberIndependently() {
	branch1, err := s.service.CreateDocument(s.GetContext(), s.receiptRequest(1))
	s.NoError(err)
	branch2, err := s.service.CreateDocument(s.GetContext(), s.receiptRequest(2))
	s.NoError(err)
	ledger, err := s.service.CreateDocument(s.GetContext(), s.ledgerRequest(1))
	s.NoError(err)

	s.Equal(int64(1), branch1.Number)
	s.Equal(int64(1), branch2.Number)
	s.Equal(int64(1), ledger.Number)
}

// A payload that fails validation never reaches the allocator or the store,
// so rejections cannot burn numbers.
func (s *DocumentServiceSuite) TestRejectedPayloadConsumesNoNumber() {
	unbalanced := s.ledgerRequest(1)
	unbalanced.Lines[1].Amount = decimal.RequireFromString("149.99")

	_, err := s.service.CreateDocument(s.GetContext(), unbalanced)
	s.Error(err)
	s.True(ierr.IsValidation(err))
	s.Zero(s.counterStore.Calls())
	s.Zero(s.docStore.Creates())

	resp, err := s.service.CreateDocument(s.GetContext(), s.ledgerRequest(1))
	s.NoError(err)
	s.Equal(int64(1), resp.Number)
}

// If persisting the header fails, the transaction rolls back and takes the
// counter increment with it.
func (s *DocumentServiceSuite) TestFailedCreationRollsBackCounter() {
	s.docStore.FailCreate(func(header *document.DocumentHeader) error {
		return ierr.NewError("disk full").
			WithHint("could not save the document").
			Mark(ierr.ErrDatabase)
	})

	_, err := s.service.CreateDocument(s.GetContext(), s.receiptRequest(1))
	s.Error(err)

	scope := types.ScopeKey{BranchID: 1, DocumentType: types.DocumentTypeReceipt}
	_, err = s.service.GetCounter(s.GetContext(), scope)
	s.True(ierr.IsNotFound(err))

	s.docStore.FailCreate(nil)

	resp, err := s.service.CreateDocument(s.GetContext(), s.receiptRequest(1))
	s.NoError(err)
	s.Equal(int64(1), resp.Number)
}

func (s *DocumentServiceSuite) TestContentionIsRetriedThenSucceeds() {
	s.counterStore.FailNext(func(call int, scope types.ScopeKey) error {
		if call == 1 {
			return ierr.NewError("counter row is locked").
				WithHint("another document is being numbered in this scope, retry").
				Mark(ierr.ErrSequenceContention)
		}
		return nil
	})

	resp, err := s.service.CreateDocument(s.GetContext(), s.receiptRequest(1))
	s.NoError(err)
	s.Equal(int64(1), resp.Number)
	s.Equal(2, s.counterStore.Calls())
}

func (s *DocumentServiceSuite) TestContentionExhaustsAttempts() {
	s.counterStore.FailNext(func(call int, scope types.ScopeKey) error {
		return ierr.NewError("counter row is locked").
			WithHint("another document is being numbered in this scope, retry").
			Mark(ierr.ErrSequenceContention)
	})

	_, err := s.service.CreateDocument(s.GetContext(), s.receiptRequest(1))
	s.Error(err)
	s.True(ierr.IsRetryable(err) || ierr.IsTimeout(err))
	s.Equal(s.GetConfig().Numbering.MaxAttempts, s.counterStore.Calls())
}

// Store outages are not retried: the attempt count stays at one.
func (s *DocumentServiceSuite) TestStoreOutageIsNotRetried() {
	s.counterStore.FailNext(func(call int, scope types.ScopeKey) error {
		return ierr.NewError("connection refused").
			WithHint("the document store is unreachable").
			Mark(ierr.ErrStoreUnavailable)
	})

	_, err := s.service.CreateDocument(s.GetContext(), s.receiptRequest(1))
	s.Error(err)
	s.True(ierr.IsStoreUnavailable(err))
	s.Equal(1, s.counterStore.Calls())
}

// Fifty concurrent writers on one scope must come out with fifty distinct,
// gapless numbers.
func (s *DocumentServiceSuite) TestConcurrentCreationsGetUniqueNumbers() {
	const writers = 50
	s.counterStore.SetLockTimeout(5 * time.Second)

	var mu sync.Mutex
	numbers := make([]int64, 0, writers)

	var wg conc.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Go(func() {
			resp, err := s.service.CreateDocument(s.GetContext(), s.receiptRequest(1))
			s.NoError(err)
			if err != nil {
				return
			}
			mu.Lock()
			numbers = append(numbers, resp.Number)
			mu.Unlock()
		})
	}
	wg.Wait()

	s.Len(numbers, writers)
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	for i, n := range numbers {
		s.Equal(int64(i+1), n)
	}

	total, err := s.docStore.Count(s.GetContext(), &types.DocumentFilter{})
	s.NoError(err)
	s.Equal(writers, total)
}

func (s *DocumentServiceSuite) TestGetDocument() {
	created, err := s.service.CreateDocument(s.GetContext(), s.receiptRequest(1))
	s.NoError(err)

	fetched, err := s.service.GetDocument(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal(created.Number, fetched.Number)
	s.Equal(created.FormattedNumber, fetched.FormattedNumber)
	s.Len(fetched.Lines, 1)

	_, err = s.service.GetDocument(s.GetContext(), "doc_missing")
	s.True(ierr.IsNotFound(err))

	_, err = s.service.GetDocument(s.GetContext(), "")
	s.True(ierr.IsValidation(err))
}

func (s *DocumentServiceSuite) TestGetDocumentByNumber() {
	created, err := s.service.CreateDocument(s.GetContext(), s.receiptRequest(1))
	s.NoError(err)

	scope := types.ScopeKey{BranchID: 1, DocumentType: types.DocumentTypeReceipt}
	fetched, err := s.service.GetDocumentByNumber(s.GetContext(), scope, created.Number)
	s.NoError(err)
	s.Equal(created.ID, fetched.ID)

	_, err = s.service.GetDocumentByNumber(s.GetContext(), scope, 99)
	s.True(ierr.IsNotFound(err))

	_, err = s.service.GetDocumentByNumber(s.GetContext(), scope, 0)
	s.True(ierr.IsValidation(err))
}

func (s *DocumentServiceSuite) TestListDocuments() {
	for i := 0; i < 3; i++ {
		_, err := s.service.CreateDocument(s.GetContext(), s.receiptRequest(1))
		s.NoError(err)
	}
	_, err := s.service.CreateDocument(s.GetContext(), s.ledgerRequest(1))
	s.NoError(err)

	scope := types.ScopeKey{BranchID: 1, DocumentType: types.DocumentTypeReceipt}
	resp, err := s.service.ListDocuments(s.GetContext(), &types.DocumentFilter{Scope: &scope})
	s.NoError(err)
	s.Equal(3, resp.Total)
	s.Len(resp.Items, 3)
	s.Equal(int64(3), resp.Items[0].Number)

	all, err := s.service.ListDocuments(s.GetContext(), nil)
	s.NoError(err)
	s.Equal(4, all.Total)

	paged, err := s.service.ListDocuments(s.GetContext(), &types.DocumentFilter{Scope: &scope, Limit: 2, Offset: 2})
	s.NoError(err)
	s.Equal(3, paged.Total)
	s.Len(paged.Items, 1)
}

func (s *DocumentServiceSuite) TestGetCounterUnknownScope() {
	_, err := s.service.GetCounter(s.GetContext(), types.ScopeKey{
		BranchID:     9,
		DocumentType: types.DocumentTypeGuide,
	})
	s.True(ierr.IsNotFound(err))
}

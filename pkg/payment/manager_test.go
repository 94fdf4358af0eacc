package payment

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/YathinChandra64/siri-taste-craft-sub000/models"
	"github.com/YathinChandra64/siri-taste-craft-sub000/pkg/extract"
)

// memStore keeps records in a map and always hands out copies, so callers
// mutating a returned record cannot change the stored one without Save.
type memStore struct {
	mu     sync.Mutex
	nextID uint
	recs   map[uint]models.Payment
}

func newMemStore() *memStore {
	return &memStore{recs: map[uint]models.Payment{}}
}

func (s *memStore) Create(p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p.ID = s.nextID
	s.recs[p.ID] = *p
	return nil
}

func (s *memStore) Save(p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[p.ID] = *p
	return nil
}

func (s *memStore) FindByID(id uint) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	return &rec, nil
}

func (s *memStore) FindByOrder(orderID uint) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *models.Payment
	for id := range s.recs {
		rec := s.recs[id]
		if rec.OrderID == orderID && (best == nil || rec.ID > best.ID) {
			cp := rec
			best = &cp
		}
	}
	if best == nil {
		return nil, ErrPaymentNotFound
	}
	return best, nil
}

func (s *memStore) ReferenceInUse(ref string, excludeID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.recs {
		if rec.ID == excludeID {
			continue
		}
		st := Status(rec.Status)
		if st != StatusPendingVerification && st != StatusVerified {
			continue
		}
		if (rec.UTRNumber != nil && *rec.UTRNumber == ref) ||
			(rec.ManualReference != nil && *rec.ManualReference == ref) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) ListByStatus(status Status, limit int) ([]models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Payment
	for _, rec := range s.recs {
		if Status(rec.Status) == status {
			out = append(out, rec)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type memOrders struct {
	orders map[uint]models.Order
	marks  map[uint]string
}

func newMemOrders(orders ...models.Order) *memOrders {
	m := &memOrders{orders: map[uint]models.Order{}, marks: map[uint]string{}}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *memOrders) FindByID(id uint) (*models.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return &o, nil
}

func (m *memOrders) MarkPaymentStatus(orderID uint, paymentStatus string) error {
	m.marks[orderID] = paymentStatus
	return nil
}

type nopNotifier struct{}

func (nopNotifier) PaymentSubmitted(*models.Payment) {}
func (nopNotifier) PaymentOutcome(*models.Payment)   {}

// stubPipeline returns a canned extraction result instead of running OCR.
type stubPipeline struct {
	res   extract.Result
	conf  int
	err   error
	calls int
}

func (p *stubPipeline) Process(string) (extract.Result, int, error) {
	p.calls++
	return p.res, p.conf, p.err
}

func foundResult(ref string) extract.Result {
	return extract.Result{Found: true, Reference: ref, Confidence: 95, Format: extract.FormatStandard16}
}

func testSetup(pipe Pipeline) (*Manager, *memStore, *memOrders) {
	store := newMemStore()
	orders := newMemOrders(
		models.Order{ID: 1, UserID: 10, TotalAmount: 45000},
		models.Order{ID: 2, UserID: 11, TotalAmount: 90000},
	)
	mgr := NewManager(store, orders, pipe, nopNotifier{}, Config{})
	return mgr, store, orders
}

func TestSubmitDetectsReference(t *testing.T) {
	pipe := &stubPipeline{res: foundResult("abcd1234efgh5678"), conf: 82}
	mgr, store, orders := testSetup(pipe)

	rec, err := mgr.Submit(1, 10, "shot.png")
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if Status(rec.Status) != StatusPendingVerification {
		t.Fatalf("expected pending_verification, got %s", rec.Status)
	}
	if rec.UTRNumber == nil || *rec.UTRNumber != "ABCD1234EFGH5678" {
		t.Fatalf("reference must be stored upper-cased, got %v", rec.UTRNumber)
	}
	if rec.AttemptCount != 1 || rec.OCRConfidence != 82 || rec.Amount != 45000 {
		t.Fatalf("bad bookkeeping: %+v", rec)
	}
	if orders.marks[1] != OrderPaymentUnderReview {
		t.Fatalf("order must be marked under_review, got %q", orders.marks[1])
	}
	stored, _ := store.FindByOrder(1)
	if Status(stored.Status) != StatusPendingVerification {
		t.Fatalf("record not persisted: %s", stored.Status)
	}
}

func TestSubmitDetectionFailureIsRecorded(t *testing.T) {
	pipe := &stubPipeline{res: extract.Result{Reason: "no token passed reference validation"}, conf: 40}
	mgr, _, _ := testSetup(pipe)

	rec, err := mgr.Submit(1, 10, "shot.png")
	if err != nil {
		t.Fatalf("detection failure is not a submit error: %v", err)
	}
	if Status(rec.Status) != StatusDetectionFailed {
		t.Fatalf("expected utr_detection_failed, got %s", rec.Status)
	}
	if rec.DetectionFailedWhy == "" {
		t.Fatalf("diagnostic reason must be kept")
	}
}

func TestSubmitRejectsSecondActiveRecord(t *testing.T) {
	pipe := &stubPipeline{res: foundResult("ABCD1234EFGH5678")}
	mgr, _, _ := testSetup(pipe)

	if _, err := mgr.Submit(1, 10, "a.png"); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := mgr.Submit(1, 10, "b.png"); !errors.Is(err, ErrPaymentExists) {
		t.Fatalf("expected ErrPaymentExists, got %v", err)
	}
}

func TestSubmitOwnershipAndMissingOrder(t *testing.T) {
	pipe := &stubPipeline{res: foundResult("ABCD1234EFGH5678")}
	mgr, _, _ := testSetup(pipe)

	if _, err := mgr.Submit(1, 99, "a.png"); !errors.Is(err, ErrNotOrderOwner) {
		t.Fatalf("expected ErrNotOrderOwner, got %v", err)
	}
	if _, err := mgr.Submit(77, 10, "a.png"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestSubmitAllowedAfterExpiry(t *testing.T) {
	pipe := &stubPipeline{res: foundResult("ABCD1234EFGH5678")}
	mgr, store, _ := testSetup(pipe)

	first, err := mgr.Submit(1, 10, "a.png")
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	first.ExpiresAt = time.Now().Add(-time.Minute)
	if err := store.Save(first); err != nil {
		t.Fatalf("save: %v", err)
	}

	pipe.res = foundResult("ZZZZ1234YYYY5678")
	second, err := mgr.Submit(1, 10, "b.png")
	if err != nil {
		t.Fatalf("submit after expiry must create a fresh record: %v", err)
	}
	if second.ID == first.ID || second.AttemptCount != 1 {
		t.Fatalf("expected a new record with fresh attempts, got %+v", second)
	}
}

func TestResubmitConsumesOneAttempt(t *testing.T) {
	pipe := &stubPipeline{res: extract.Result{Reason: "blurry"}}
	mgr, _, _ := testSetup(pipe)

	if _, err := mgr.Submit(1, 10, "a.png"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	pipe.res = foundResult("ABCD1234EFGH5678")
	rec, err := mgr.Resubmit(1, "b.png")
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if rec.AttemptCount != 2 {
		t.Fatalf("expected attempt 2, got %d", rec.AttemptCount)
	}
	if Status(rec.Status) != StatusPendingVerification || rec.DetectionFailedWhy != "" {
		t.Fatalf("resubmit must reset detection state: %+v", rec)
	}
}

func TestResubmitRetryCeiling(t *testing.T) {
	pipe := &stubPipeline{res: extract.Result{Reason: "blurry"}}
	mgr, store, _ := testSetup(pipe)

	if _, err := mgr.Submit(1, 10, "a.png"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := mgr.Resubmit(1, "b.png"); err != nil {
		t.Fatalf("attempt 2: %v", err)
	}
	if _, err := mgr.Resubmit(1, "c.png"); err != nil {
		t.Fatalf("attempt 3: %v", err)
	}
	before, _ := store.FindByOrder(1)
	if _, err := mgr.Resubmit(1, "d.png"); !errors.Is(err, ErrRetryLimitExceeded) {
		t.Fatalf("expected ErrRetryLimitExceeded, got %v", err)
	}
	after, _ := store.FindByOrder(1)
	if after.AttemptCount != before.AttemptCount || after.ScreenshotPath != before.ScreenshotPath {
		t.Fatalf("record must be unchanged after the ceiling: %+v vs %+v", before, after)
	}
}

func TestResubmitIllegalFromPendingVerification(t *testing.T) {
	pipe := &stubPipeline{res: foundResult("ABCD1234EFGH5678")}
	mgr, _, _ := testSetup(pipe)

	if _, err := mgr.Submit(1, 10, "a.png"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := mgr.Resubmit(1, "b.png"); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
	}
}

func TestDuplicateReferenceAcrossOrders(t *testing.T) {
	pipe := &stubPipeline{res: foundResult("ABCD1234EFGH5678")}
	mgr, store, _ := testSetup(pipe)

	if _, err := mgr.Submit(1, 10, "a.png"); err != nil {
		t.Fatalf("submit order 1: %v", err)
	}
	if _, err := mgr.Submit(2, 11, "b.png"); !errors.Is(err, ErrDuplicateReference) {
		t.Fatalf("expected ErrDuplicateReference, got %v", err)
	}
	if _, err := store.FindByOrder(2); !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("no record may be created for the duplicate submission")
	}
}

func TestRejectedReferenceDoesNotBlockReuse(t *testing.T) {
	pipe := &stubPipeline{res: foundResult("ABCD1234EFGH5678")}
	mgr, store, _ := testSetup(pipe)

	first, err := mgr.Submit(1, 10, "a.png")
	if err != nil {
		t.Fatalf("submit order 1: %v", err)
	}
	first.Status = string(StatusRejected)
	if err := store.Save(first); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := mgr.Submit(2, 11, "b.png"); err != nil {
		t.Fatalf("rejected record must not block reuse: %v", err)
	}
}

func TestDuplicateOnResubmitLeavesRecordUnchanged(t *testing.T) {
	pipe := &stubPipeline{res: foundResult("ABCD1234EFGH5678")}
	mgr, store, _ := testSetup(pipe)

	if _, err := mgr.Submit(1, 10, "a.png"); err != nil {
		t.Fatalf("submit order 1: %v", err)
	}
	pipe.res = extract.Result{Reason: "blurry"}
	if _, err := mgr.Submit(2, 11, "b.png"); err != nil {
		t.Fatalf("submit order 2: %v", err)
	}
	before, _ := store.FindByOrder(2)

	pipe.res = foundResult("ABCD1234EFGH5678")
	if _, err := mgr.Resubmit(2, "c.png"); !errors.Is(err, ErrDuplicateReference) {
		t.Fatalf("expected ErrDuplicateReference, got %v", err)
	}
	after, _ := store.FindByOrder(2)
	if after.AttemptCount != before.AttemptCount || after.Status != before.Status {
		t.Fatalf("failed resubmit must not consume an attempt: %+v vs %+v", before, after)
	}
}

func TestSetManualReference(t *testing.T) {
	pipe := &stubPipeline{res: extract.Result{Reason: "blurry"}}
	mgr, _, _ := testSetup(pipe)

	if _, err := mgr.Submit(1, 10, "a.png"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := mgr.SetManualReference(1, "short"); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
	rec, err := mgr.SetManualReference(1, "  abcd1234efgh5678  ")
	if err != nil {
		t.Fatalf("manual reference: %v", err)
	}
	if Status(rec.Status) != StatusPendingVerification {
		t.Fatalf("expected pending_verification, got %s", rec.Status)
	}
	if rec.ManualReference == nil || *rec.ManualReference != "ABCD1234EFGH5678" {
		t.Fatalf("manual reference must be normalized, got %v", rec.ManualReference)
	}
	if Reference(rec) != "ABCD1234EFGH5678" {
		t.Fatalf("Reference must fall back to the manual entry")
	}
}

func TestSetManualReferenceOnlyAfterDetectionFailure(t *testing.T) {
	pipe := &stubPipeline{res: foundResult("ABCD1234EFGH5678")}
	mgr, _, _ := testSetup(pipe)

	if _, err := mgr.Submit(1, 10, "a.png"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := mgr.SetManualReference(1, "ZZZZ1234YYYY5678"); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
	}
}

func TestVerifyApprove(t *testing.T) {
	pipe := &stubPipeline{res: foundResult("ABCD1234EFGH5678")}
	mgr, _, orders := testSetup(pipe)

	rec, err := mgr.Submit(1, 10, "a.png")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	out, err := mgr.Verify(rec.ID, 5, ActionApprove, "matches bank statement")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if Status(out.Status) != StatusVerified || out.AdminDecision != "approved" {
		t.Fatalf("expected verified/approved, got %s/%s", out.Status, out.AdminDecision)
	}
	if out.VerifiedBy == nil || *out.VerifiedBy != 5 || out.VerifiedAt == nil {
		t.Fatalf("audit fields missing: %+v", out)
	}
	if orders.marks[1] != OrderPaymentPaid {
		t.Fatalf("order must be marked paid, got %q", orders.marks[1])
	}
}

func TestVerifyReject(t *testing.T) {
	pipe := &stubPipeline{res: foundResult("ABCD1234EFGH5678")}
	mgr, _, orders := testSetup(pipe)

	rec, err := mgr.Submit(1, 10, "a.png")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	out, err := mgr.Verify(rec.ID, 5, ActionReject, "amount mismatch")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if Status(out.Status) != StatusRejected || out.AdminDecision != "rejected" {
		t.Fatalf("expected rejected, got %s/%s", out.Status, out.AdminDecision)
	}
	if orders.marks[1] != OrderPaymentRejected {
		t.Fatalf("order must be marked rejected, got %q", orders.marks[1])
	}
}

func TestVerifyBlockedByExpiry(t *testing.T) {
	pipe := &stubPipeline{res: foundResult("ABCD1234EFGH5678")}
	mgr, store, _ := testSetup(pipe)

	rec, err := mgr.Submit(1, 10, "a.png")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	rec.ExpiresAt = time.Now().Add(-time.Minute)
	if err := store.Save(rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := mgr.Verify(rec.ID, 5, ActionApprove, ""); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expired record must not verify, got %v", err)
	}
	after, _ := store.FindByID(rec.ID)
	if Status(after.Status) != StatusExpired {
		t.Fatalf("expiry rewrite must persist, got %s", after.Status)
	}
}

func TestStatusLazyExpiry(t *testing.T) {
	pipe := &stubPipeline{res: foundResult("ABCD1234EFGH5678")}
	mgr, store, _ := testSetup(pipe)

	rec, err := mgr.Submit(1, 10, "a.png")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	rec.ExpiresAt = time.Now().Add(-time.Minute)
	if err := store.Save(rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	view, err := mgr.Status(1)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !view.HasPayment || !view.IsExpired || view.Status != string(StatusExpired) {
		t.Fatalf("expected expired view, got %+v", view)
	}
	// Second read is idempotent.
	again, err := mgr.Status(1)
	if err != nil || again.Status != string(StatusExpired) {
		t.Fatalf("expiry must be stable: %+v err=%v", again, err)
	}
}

func TestStatusWithoutPayment(t *testing.T) {
	pipe := &stubPipeline{}
	mgr, _, _ := testSetup(pipe)

	view, err := mgr.Status(1)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if view.HasPayment {
		t.Fatalf("expected empty view, got %+v", view)
	}
}

func TestParseAction(t *testing.T) {
	if a, ok := ParseAction("approve"); !ok || a != ActionApprove {
		t.Fatalf("approve should parse")
	}
	if _, ok := ParseAction("maybe"); ok {
		t.Fatalf("unknown action must not parse")
	}
}

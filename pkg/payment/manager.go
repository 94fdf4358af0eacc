// Package payment owns the payment-verification lifecycle: record creation
// from screenshot submissions, bounded resubmission, duplicate-reference
// enforcement, admin verification and time-based expiry.
package payment

import (
	"errors"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/YathinChandra64/siri-taste-craft-sub000/models"
	"github.com/YathinChandra64/siri-taste-craft-sub000/pkg/extract"
)

// Defaults for the retry ceiling and expiry window.
const (
	DefaultMaxAttempts  = 3
	DefaultExpiryWindow = 24 * time.Hour
)

// Pipeline turns a stored screenshot into ranked reference candidates plus
// the recognition engine's confidence. Implemented by ScreenshotPipeline;
// stubbed in tests.
type Pipeline interface {
	Process(screenshotPath string) (extract.Result, int, error)
}

// OrderStore is the external order collaborator: resolve an order and
// record its payment outcome. Catalog and pricing stay on the other side
// of this interface.
type OrderStore interface {
	FindByID(id uint) (*models.Order, error)
	MarkPaymentStatus(orderID uint, paymentStatus string) error
}

// Notifier dispatches fire-and-forget notifications. Implementations must
// swallow and log their own failures; a notification must never fail a
// payment transition.
type Notifier interface {
	PaymentSubmitted(p *models.Payment)
	PaymentOutcome(p *models.Payment)
}

// Order payment statuses written through the OrderStore.
const (
	OrderPaymentUnderReview = "under_review"
	OrderPaymentPaid        = "paid"
	OrderPaymentRejected    = "rejected"
)

// Action is an admin verification decision.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// ParseAction validates the admin verification action value.
func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionApprove, ActionReject:
		return Action(s), true
	}
	return "", false
}

// Config tunes the lifecycle manager. Zero values fall back to defaults.
type Config struct {
	MaxAttempts  int
	ExpiryWindow time.Duration
}

// Manager owns every PaymentRecord mutation. Collaborators only read
// or trigger transitions through its operations.
type Manager struct {
	store    Store
	orders   OrderStore
	pipeline Pipeline
	notify   Notifier
	cfg      Config

	mu         sync.Mutex
	orderLocks map[uint]*sync.Mutex
}

// NewManager wires the lifecycle manager.
func NewManager(store Store, orders OrderStore, pipeline Pipeline, notify Notifier, cfg Config) *Manager {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.ExpiryWindow <= 0 {
		cfg.ExpiryWindow = DefaultExpiryWindow
	}
	if notify == nil {
		notify = LogNotifier{}
	}
	return &Manager{
		store:      store,
		orders:     orders,
		pipeline:   pipeline,
		notify:     notify,
		cfg:        cfg,
		orderLocks: map[uint]*sync.Mutex{},
	}
}

// lockOrder serializes creation/resubmission/verification per order.
// Operations on different orders proceed in parallel.
func (m *Manager) lockOrder(orderID uint) func() {
	m.mu.Lock()
	l, ok := m.orderLocks[orderID]
	if !ok {
		l = &sync.Mutex{}
		m.orderLocks[orderID] = l
	}
	m.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Submit creates the payment record for an order's first screenshot
// submission. The amount is taken from the order itself.
func (m *Manager) Submit(orderID, userID uint, screenshotPath string) (*models.Payment, error) {
	unlock := m.lockOrder(orderID)
	defer unlock()

	order, err := m.orders.FindByID(orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrNotOrderOwner
	}

	if prev, err := m.store.FindByOrder(orderID); err == nil {
		m.refresh(prev)
		if Status(prev.Status) != StatusExpired {
			return nil, ErrPaymentExists
		}
	} else if !errors.Is(err, ErrPaymentNotFound) {
		return nil, err
	}

	now := time.Now()
	rec := &models.Payment{
		OrderID:        orderID,
		UserID:         userID,
		Amount:         order.TotalAmount,
		ScreenshotPath: screenshotPath,
		Status:         string(StatusSubmitted),
		AttemptCount:   1,
		SubmittedAt:    now,
		LastAttemptAt:  now,
		ExpiresAt:      now.Add(m.cfg.ExpiryWindow),
	}

	if err := m.runDetection(rec, screenshotPath); err != nil {
		return nil, err
	}
	if err := m.store.Create(rec); err != nil {
		return nil, err
	}
	if err := m.orders.MarkPaymentStatus(orderID, OrderPaymentUnderReview); err != nil {
		log.Printf("payment: order %d payment-status update failed: %v", orderID, err)
	}
	go m.notify.PaymentSubmitted(rec)
	return rec, nil
}

// Resubmit re-runs the pipeline with a new screenshot after a detection
// failure or a rejection, consuming one bounded-retry attempt.
func (m *Manager) Resubmit(orderID uint, screenshotPath string) (*models.Payment, error) {
	unlock := m.lockOrder(orderID)
	defer unlock()

	rec, err := m.store.FindByOrder(orderID)
	if err != nil {
		return nil, err
	}
	if m.refresh(rec) {
		_ = m.store.Save(rec)
	}
	if rec.AttemptCount >= m.cfg.MaxAttempts {
		return nil, ErrRetryLimitExceeded
	}
	st, err := transition(Status(rec.Status), StatusSubmitted)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	rec.Status = string(st)
	rec.ScreenshotPath = screenshotPath
	rec.UTRNumber = nil
	rec.ManualReference = nil
	rec.ExtractFormat = ""
	rec.DetectionFailedWhy = ""
	rec.VerifiedBy = nil
	rec.VerifiedAt = nil
	rec.VerificationNotes = ""
	rec.AdminDecision = ""
	rec.AttemptCount++
	rec.LastAttemptAt = now
	rec.ExpiresAt = now.Add(m.cfg.ExpiryWindow)

	if err := m.runDetection(rec, screenshotPath); err != nil {
		return nil, err
	}
	if err := m.store.Save(rec); err != nil {
		return nil, err
	}
	go m.notify.PaymentSubmitted(rec)
	return rec, nil
}

// runDetection executes the screenshot pipeline and advances rec to
// pending_verification or utr_detection_failed. The record is not
// persisted here; callers only save on success, so a duplicate reference
// or a pipeline failure leaves the stored record untouched.
func (m *Manager) runDetection(rec *models.Payment, screenshotPath string) error {
	res, ocrConf, err := m.pipeline.Process(screenshotPath)
	if err != nil {
		cleanupScreenshot(screenshotPath)
		return err
	}
	rec.OCRConfidence = ocrConf

	if !res.Found {
		st, terr := transition(Status(rec.Status), StatusDetectionFailed)
		if terr != nil {
			return terr
		}
		rec.Status = string(st)
		rec.DetectionFailedWhy = res.Reason
		return nil
	}

	ref := strings.ToUpper(strings.TrimSpace(res.Reference))
	used, err := m.store.ReferenceInUse(ref, rec.ID)
	if err != nil {
		return err
	}
	if used {
		cleanupScreenshot(screenshotPath)
		return ErrDuplicateReference
	}

	st, err := transition(Status(rec.Status), StatusUTRDetected)
	if err != nil {
		return err
	}
	rec.Status = string(st)
	rec.UTRNumber = &ref
	rec.ExtractFormat = string(res.Format)
	rec.ExtractConfidence = res.Confidence
	st, err = transition(Status(rec.Status), StatusPendingVerification)
	if err != nil {
		return err
	}
	rec.Status = string(st)
	return nil
}

// SetManualReference is the fallback for detection failures: the customer
// types the UTR printed on their payment app.
func (m *Manager) SetManualReference(orderID uint, ref string) (*models.Payment, error) {
	unlock := m.lockOrder(orderID)
	defer unlock()

	rec, err := m.store.FindByOrder(orderID)
	if err != nil {
		return nil, err
	}
	if m.refresh(rec) {
		_ = m.store.Save(rec)
	}

	ref = strings.ToUpper(strings.TrimSpace(ref))
	if !extract.ValidateCandidate(ref) {
		return nil, ErrInvalidReference
	}
	if Status(rec.Status) != StatusDetectionFailed {
		return nil, ErrInvalidStateTransition
	}
	used, err := m.store.ReferenceInUse(ref, rec.ID)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, ErrDuplicateReference
	}

	st, err := transition(Status(rec.Status), StatusPendingVerification)
	if err != nil {
		return nil, err
	}
	rec.Status = string(st)
	rec.ManualReference = &ref
	rec.DetectionFailedWhy = ""
	if err := m.store.Save(rec); err != nil {
		return nil, err
	}
	go m.notify.PaymentSubmitted(rec)
	return rec, nil
}

// Verify records an admin approve/reject decision. Only legal from
// pending_verification.
func (m *Manager) Verify(paymentID, adminID uint, action Action, notes string) (*models.Payment, error) {
	rec, err := m.store.FindByID(paymentID)
	if err != nil {
		return nil, err
	}
	unlock := m.lockOrder(rec.OrderID)
	defer unlock()

	// Re-read under the order lock; a concurrent resubmit may have moved it.
	rec, err = m.store.FindByID(paymentID)
	if err != nil {
		return nil, err
	}
	if m.refresh(rec) {
		_ = m.store.Save(rec)
	}

	target := StatusVerified
	decision := "approved"
	orderStatus := OrderPaymentPaid
	if action == ActionReject {
		target = StatusRejected
		decision = "rejected"
		orderStatus = OrderPaymentRejected
	}
	st, err := transition(Status(rec.Status), target)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	rec.Status = string(st)
	rec.VerifiedBy = &adminID
	rec.VerifiedAt = &now
	rec.VerificationNotes = notes
	rec.AdminDecision = decision
	if err := m.store.Save(rec); err != nil {
		return nil, err
	}

	if err := m.orders.MarkPaymentStatus(rec.OrderID, orderStatus); err != nil {
		log.Printf("payment: order %d payment-status update failed: %v", rec.OrderID, err)
	}
	if target == StatusRejected {
		cleanupScreenshot(rec.ScreenshotPath)
	}
	go m.notify.PaymentOutcome(rec)
	return rec, nil
}

// StatusView is the one read surface the rest of the system depends on.
type StatusView struct {
	HasPayment  bool       `json:"has_payment"`
	Status      string     `json:"status,omitempty"`
	Reference   string     `json:"reference,omitempty"`
	Amount      int64      `json:"amount,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
	Attempts    int        `json:"attempts,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	IsExpired   bool       `json:"is_expired"`
}

// Status returns the payment state for an order, lazily rewriting an
// overdue record to expired as a side effect of the read.
func (m *Manager) Status(orderID uint) (StatusView, error) {
	rec, err := m.store.FindByOrder(orderID)
	if errors.Is(err, ErrPaymentNotFound) {
		return StatusView{}, nil
	}
	if err != nil {
		return StatusView{}, err
	}
	if m.refresh(rec) {
		_ = m.store.Save(rec)
	}
	sub := rec.SubmittedAt
	exp := rec.ExpiresAt
	return StatusView{
		HasPayment:  true,
		Status:      rec.Status,
		Reference:   Reference(rec),
		Amount:      rec.Amount,
		SubmittedAt: &sub,
		VerifiedAt:  rec.VerifiedAt,
		Attempts:    rec.AttemptCount,
		ExpiresAt:   &exp,
		IsExpired:   Status(rec.Status) == StatusExpired,
	}, nil
}

// ListPending returns records awaiting admin verification.
func (m *Manager) ListPending(limit int) ([]models.Payment, error) {
	return m.store.ListByStatus(StatusPendingVerification, limit)
}

// refresh applies the lazy expiry check. Returns true when the status was
// rewritten; expired records are left alone, so the check is idempotent.
func (m *Manager) refresh(p *models.Payment) bool {
	if isTerminal(Status(p.Status)) {
		return false
	}
	if time.Now().After(p.ExpiresAt) {
		p.Status = string(StatusExpired)
		return true
	}
	return false
}

// Reference returns the accepted reference for a record: extracted first,
// manually entered fallback second.
func Reference(p *models.Payment) string {
	if p.UTRNumber != nil {
		return *p.UTRNumber
	}
	if p.ManualReference != nil {
		return *p.ManualReference
	}
	return ""
}

// cleanupScreenshot removes a dead screenshot file. Best effort only; a
// cleanup failure must never surface into the verification flow.
func cleanupScreenshot(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("payment: screenshot cleanup %s: %v", path, err)
	}
}

package payment

import (
	"log"

	"github.com/YathinChandra64/siri-taste-craft-sub000/models"
)

// LogNotifier is the fallback dispatcher used when no mail transport is
// configured. It only logs, which also makes it safe for tests.
type LogNotifier struct{}

func (LogNotifier) PaymentSubmitted(p *models.Payment) {
	log.Printf("notify: payment %d submitted for order %d status=%s ref=%q", p.ID, p.OrderID, p.Status, Reference(p))
}

func (LogNotifier) PaymentOutcome(p *models.Payment) {
	log.Printf("notify: payment %d for order %d decided: %s", p.ID, p.OrderID, p.AdminDecision)
}

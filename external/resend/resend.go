// Package resend dispatches payment notifications through the Resend HTTP
// API. Dispatch is fire and forget: every failure is logged and swallowed,
// never surfaced into the payment transition that triggered it.
package resend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/YathinChandra64/siri-taste-craft-sub000/models"
	"github.com/YathinChandra64/siri-taste-craft-sub000/pkg/payment"
)

type Mailer struct {
	apiKey     string
	from       string
	adminEmail string
	client     *http.Client
	baseURL    string

	// UserEmail resolves a customer's address; wired from the user store.
	UserEmail func(userID uint) (string, error)
}

// NewMailer builds the notifier from RESEND_API_KEY and NOTIFY_ADMIN_EMAIL.
func NewMailer(from string, userEmail func(uint) (string, error)) (*Mailer, error) {
	key := os.Getenv("RESEND_API_KEY")
	if key == "" {
		return nil, errors.New("RESEND_API_KEY not set")
	}
	return &Mailer{
		apiKey:     key,
		from:       from,
		adminEmail: os.Getenv("NOTIFY_ADMIN_EMAIL"),
		client:     &http.Client{Timeout: 5 * time.Second},
		baseURL:    "https://api.resend.com",
		UserEmail:  userEmail,
	}, nil
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// PaymentSubmitted tells the admin a submission is waiting for review.
func (m *Mailer) PaymentSubmitted(p *models.Payment) {
	if m.adminEmail == "" {
		return
	}
	subject := fmt.Sprintf("Payment submitted for order #%d", p.OrderID)
	html := fmt.Sprintf(
		`<p>Order #%d has a new payment submission.</p>
		<p>Status: %s<br>Reference: %s<br>Attempt: %d</p>`,
		p.OrderID, p.Status, payment.Reference(p), p.AttemptCount,
	)
	if err := m.send(m.adminEmail, subject, html); err != nil {
		log.Printf("resend: admin notification for payment %d failed: %v", p.ID, err)
	}
}

// PaymentOutcome tells the customer their payment was approved or rejected.
func (m *Mailer) PaymentOutcome(p *models.Payment) {
	to, err := m.UserEmail(p.UserID)
	if err != nil || to == "" {
		log.Printf("resend: no address for user %d (payment %d)", p.UserID, p.ID)
		return
	}
	subject := fmt.Sprintf("Your payment for order #%d was %s", p.OrderID, p.AdminDecision)
	html := fmt.Sprintf(
		`<p>Your payment for order #%d was <b>%s</b>.</p><p>%s</p>`,
		p.OrderID, p.AdminDecision, p.VerificationNotes,
	)
	if err := m.send(to, subject, html); err != nil {
		log.Printf("resend: outcome notification for payment %d failed: %v", p.ID, err)
	}
}

func (m *Mailer) send(to, subject, html string) error {
	body := sendRequest{From: m.from, To: []string{to}, Subject: subject, HTML: html}
	b, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPost, m.baseURL+"/emails", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("resend API status %d", resp.StatusCode)
	}
	return nil
}

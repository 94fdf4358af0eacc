package ocr

import (
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// referenceChars is the character set for payment-screenshot OCR. Covers
// transaction references, labels and amounts; excludes symbols Tesseract
// tends to hallucinate on busy UI chrome.
const referenceChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz.,:#/- "

// Result is the output of a recognition run.
type Result struct {
	Text       string
	Lines      []string // non-empty lines of Text, for keyword/context search
	Confidence int      // engine aggregate quality estimate, 0-100
}

// Engine wraps a single shared Tesseract client. The underlying runtime is
// not safe for simultaneous use, so every call is serialized through the
// engine mutex. The client is created lazily on first Recognize; Close is
// explicit and idempotent, and a closed engine re-initializes on next use.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewEngine returns an engine without paying the Tesseract startup cost.
func NewEngine() *Engine {
	return &Engine{}
}

// ensureClient initializes the shared client. Caller must hold e.mu.
func (e *Engine) ensureClient() error {
	if e.client != nil {
		return nil
	}
	client := gosseract.NewClient()
	if err := client.SetLanguage("eng"); err != nil {
		client.Close()
		return fmt.Errorf("%w: set language: %v", ErrRecognitionFailed, err)
	}
	// Transaction references are not dictionary words; stop Tesseract from
	// "correcting" them into English.
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")
	_ = client.SetWhitelist(referenceChars)
	e.client = client
	return nil
}

// Recognize runs OCR over a preprocessed image and returns the recognized
// text with the engine's aggregate confidence.
func (e *Engine) Recognize(img []byte) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureClient(); err != nil {
		return Result{}, err
	}
	if err := e.client.SetImageFromBytes(img); err != nil {
		return Result{}, fmt.Errorf("%w: set image: %v", ErrRecognitionFailed, err)
	}
	text, err := e.client.Text()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrRecognitionFailed, err)
	}

	conf := 0
	if boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD); err == nil && len(boxes) > 0 {
		var sum float64
		for _, b := range boxes {
			sum += b.Confidence
		}
		conf = int(sum / float64(len(boxes)))
		if conf < 0 {
			conf = 0
		}
		if conf > 100 {
			conf = 100
		}
	}

	return Result{Text: text, Lines: splitLines(text), Confidence: conf}, nil
}

// Close releases the Tesseract client. Safe to call repeatedly.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}

// splitLines breaks recognized text on line breaks, discarding empties.
func splitLines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

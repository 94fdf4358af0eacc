package ocr

import (
	"image/color"
	"os"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
)

func TestCloseIdempotent(t *testing.T) {
	e := NewEngine()
	if err := e.Close(); err != nil {
		t.Fatalf("close without init: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestSplitLines(t *testing.T) {
	lines := splitLines("Payment successful\n\n  UTR: ABC  \n")
	if len(lines) != 2 || lines[0] != "Payment successful" || lines[1] != "UTR: ABC" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
	if splitLines("") != nil {
		t.Fatalf("empty text yields no lines")
	}
}

// Requires a local Tesseract install with the eng language pack.
func TestRecognizeLive(t *testing.T) {
	if os.Getenv("OCR_LIVE_TEST") != "1" {
		t.Skip("set OCR_LIVE_TEST=1 to run against the local Tesseract")
	}
	img := imaging.New(600, 200, color.NRGBA{255, 255, 255, 255})
	raw, err := Preprocess(encodePNG(t, img))
	if err != nil {
		t.Fatalf("preprocess: %v", err)
	}

	e := NewEngine()
	defer e.Close()
	res, err := e.Recognize(raw)
	if err != nil {
		t.Fatalf("recognize blank image: %v", err)
	}
	if strings.TrimSpace(res.Text) != "" && len(res.Lines) == 0 {
		t.Fatalf("lines must mirror text: %+v", res)
	}

	// Engine must come back after an explicit Close.
	if err := e.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := e.Recognize(raw); err != nil {
		t.Fatalf("recognize after close must re-initialize: %v", err)
	}
}

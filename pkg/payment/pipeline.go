package payment

import (
	"fmt"
	"log"
	"os"

	"github.com/YathinChandra64/siri-taste-craft-sub000/pkg/extract"
	"github.com/YathinChandra64/siri-taste-craft-sub000/pkg/ocr"
)

// ScreenshotPipeline is the production pipeline: preprocess the stored
// screenshot, recognize text through the shared engine, extract reference
// candidates. Preprocessing and extraction are stateless; the engine
// serializes recognition internally.
type ScreenshotPipeline struct {
	Engine *ocr.Engine
}

func (p *ScreenshotPipeline) Process(screenshotPath string) (extract.Result, int, error) {
	raw, err := os.ReadFile(screenshotPath)
	if err != nil {
		return extract.Result{}, 0, fmt.Errorf("%w: read screenshot: %v", ocr.ErrPreprocessingFailed, err)
	}
	norm, err := ocr.Preprocess(raw)
	if err != nil {
		return extract.Result{}, 0, err
	}
	rec, err := p.Engine.Recognize(norm)
	if err != nil {
		return extract.Result{}, 0, err
	}
	res := extract.Extract(rec.Text)
	if res.Found {
		log.Printf("pipeline: %s reference=%s format=%s conf=%d ocrConf=%d", screenshotPath, res.Reference, res.Format, res.Confidence, rec.Confidence)
	} else {
		log.Printf("pipeline: %s no reference (%s) ocrConf=%d lines=%d", screenshotPath, res.Reason, rec.Confidence, len(rec.Lines))
	}
	return res, rec.Confidence, nil
}

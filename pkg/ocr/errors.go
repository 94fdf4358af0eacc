package ocr

import "errors"

// ErrPreprocessingFailed is returned when the screenshot cannot be decoded
// or normalized. Terminal for the submission; a new image is required.
var ErrPreprocessingFailed = errors.New("image preprocessing failed")

// ErrRecognitionFailed is returned when the recognition engine cannot be
// initialized or cannot analyze the image. Also terminal for the submission.
var ErrRecognitionFailed = errors.New("text recognition failed")

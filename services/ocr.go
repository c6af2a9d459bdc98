package services

import (
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"accord-ai/models"
)

const ocrLanguageLabel = "English + Hindi"

var ocrLanguages = []string{"eng", "hin"}

var imageMimes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/tiff": true,
}

var imageExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// recognizeImage runs OCR over an encoded image and returns the text with
// the mean word confidence in [0, 100]. Replaced in tests.
var recognizeImage = tesseractRecognize

func tesseractRecognize(data []byte) (string, float64, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(ocrLanguages...); err != nil {
		return "", 0, fmt.Errorf("set OCR languages: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", 0, fmt.Errorf("load image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", 0, err
	}
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		// the text is still usable without a score
		return text, 0, nil
	}
	return text, meanConfidence(boxes), nil
}

func meanConfidence(boxes []gosseract.BoundingBox) float64 {
	if len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return sum / float64(len(boxes))
}

func extractImage(data []byte) (*models.Extraction, error) {
	text, confidence, err := recognizeImage(data)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}
	return &models.Extraction{
		Text:       text,
		Type:       typeImage,
		Confidence: confidence,
		Language:   ocrLanguageLabel,
	}, nil
}

//go:build !ocr

// Package ocr audits erased page regions for text the eraser missed.
//
// This is the stub used when the "ocr" build tag is not set: New fails with
// ErrOCRNotEnabled. Rebuild with
//
//	go build -tags ocr
//
// to link Tesseract.
package ocr

// Enabled reports whether Tesseract was linked in.
const Enabled = false

// Client is the stub client.
type Client struct{}

// New fails with ErrOCRNotEnabled.
func New() (*Client, error) {
	return nil, ErrOCRNotEnabled
}

// Close is a no-op. It is safe on a nil client.
func (c *Client) Close() error {
	return nil
}

// RecognizeImage fails with ErrOCRNotEnabled.
func (c *Client) RecognizeImage(imageData []byte) (string, error) {
	return "", ErrOCRNotEnabled
}

// SetLanguage fails with ErrOCRNotEnabled.
func (c *Client) SetLanguage(lang string) error {
	return ErrOCRNotEnabled
}

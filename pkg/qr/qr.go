package qr

import (
	"errors"
	"net/url"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// ErrInvalidPayload is returned when the payload is empty or not an absolute URL.
var ErrInvalidPayload = errors.New("qr: invalid payload")

// Encoding parameters are fixed so the same payload always produces the same
// image bytes. Re-rendering a certificate must not change the QR visually.
const (
	imageSize     = 512
	recoveryLevel = qrcode.Medium
)

// Generate encodes a verification URL into a PNG image.
func Generate(verificationURL string) ([]byte, error) {
	if strings.TrimSpace(verificationURL) == "" {
		return nil, ErrInvalidPayload
	}
	u, err := url.Parse(verificationURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, ErrInvalidPayload
	}

	png, err := qrcode.Encode(verificationURL, recoveryLevel, imageSize)
	if err != nil {
		return nil, err
	}
	return png, nil
}

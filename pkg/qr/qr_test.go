package qr

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestGenerateProducesPNG(t *testing.T) {
	img, err := Generate("https://portal.example.com/certificate/verify/TRN-20250110-A1B2C3")

	assert.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngHeader), "output should be a PNG")
}

func TestGenerateIsDeterministic(t *testing.T) {
	payload := "https://portal.example.com/certificate/verify/TRN-20250110-A1B2C3"

	first, err := Generate(payload)
	assert.NoError(t, err)
	second, err := Generate(payload)
	assert.NoError(t, err)

	assert.True(t, bytes.Equal(first, second), "same payload must encode to identical bytes")
}

func TestGenerateRejectsBadPayloads(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"not a url",
		"/certificate/verify/TRN-1",
	}

	for _, payload := range cases {
		_, err := Generate(payload)
		assert.ErrorIs(t, err, ErrInvalidPayload, "payload %q", payload)
	}
}

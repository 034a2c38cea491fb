package ocr

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/despensaapp/despensa/internal/errors"
)

func TestTesseractRecognizerDefaults(t *testing.T) {
	r := NewTesseractRecognizer("", "", zap.NewNop()).(*tesseractRecognizer)
	assert.Equal(t, "tesseract", r.binaryPath)
	assert.Equal(t, "por", r.language)
}

func TestTesseractRecognizerMissingImage(t *testing.T) {
	r := NewTesseractRecognizer("tesseract", "por", zap.NewNop())
	_, err := r.ExtractText(context.Background(), "/nonexistent/receipt.jpg")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrImageProcessingFailed))
}

func TestZbarDecoderMissingImage(t *testing.T) {
	d := NewZbarDecoder("", zap.NewNop())
	_, err := d.DecodeQR(context.Background(), "/nonexistent/receipt.jpg")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrImageProcessingFailed))
}

func TestMockRecognizer(t *testing.T) {
	m := &MockRecognizer{Text: "Leite Integral\nR$ 4,50"}
	text, err := m.ExtractText(context.Background(), "any.jpg")
	require.NoError(t, err)
	assert.Equal(t, "Leite Integral\nR$ 4,50", text)
	assert.True(t, m.IsAvailable())
}

func TestMockDecoder(t *testing.T) {
	m := &MockDecoder{Err: errors.Wrap(nil, errors.ErrQRNotFound.Code, "no QR code found in image")}
	_, err := m.DecodeQR(context.Background(), "any.jpg")
	assert.True(t, stderrors.Is(err, errors.ErrQRNotFound))
}

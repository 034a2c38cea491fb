// Package ocr turns receipt photos into text and decodes the QR codes
// printed on them. Both capabilities shell out to system binaries so the
// service keeps no cgo dependency.
package ocr

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/despensaapp/despensa/internal/errors"
)

// Recognizer extracts printed text from a receipt image.
type Recognizer interface {
	ExtractText(ctx context.Context, imagePath string) (string, error)
	IsAvailable() bool
}

// tesseractRecognizer runs the tesseract binary against the image.
type tesseractRecognizer struct {
	binaryPath string
	language   string
	logger     *zap.Logger
}

// NewTesseractRecognizer builds a recognizer for the given binary and
// language pack. Brazilian receipts need "por".
func NewTesseractRecognizer(binaryPath, language string, logger *zap.Logger) Recognizer {
	if binaryPath == "" {
		binaryPath = "tesseract"
	}
	if language == "" {
		language = "por"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &tesseractRecognizer{
		binaryPath: binaryPath,
		language:   language,
		logger:     logger,
	}
}

// IsAvailable checks whether tesseract is installed.
func (t *tesseractRecognizer) IsAvailable() bool {
	_, err := exec.LookPath(t.binaryPath)
	return err == nil
}

// ExtractText runs tesseract over the image and returns the raw text.
func (t *tesseractRecognizer) ExtractText(ctx context.Context, imagePath string) (string, error) {
	if _, err := os.Stat(imagePath); os.IsNotExist(err) {
		return "", errors.Wrap(err, errors.ErrImageProcessingFailed.Code,
			fmt.Sprintf("image file not found: %s", imagePath))
	}

	tempOutput := imagePath + "_ocr"

	args := []string{
		imagePath,
		tempOutput,
		"-l", t.language,
		"--psm", "6", // receipts read as one uniform block of text
	}

	cmd := exec.CommandContext(ctx, t.binaryPath, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", errors.Wrap(err, errors.ErrImageProcessingFailed.Code,
			fmt.Sprintf("tesseract failed: %s", strings.TrimSpace(string(output))))
	}

	outputFile := tempOutput + ".txt"
	content, err := os.ReadFile(outputFile)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrImageProcessingFailed.Code, "failed to read OCR output")
	}
	os.Remove(outputFile)

	text := strings.TrimSpace(string(content))
	t.logger.Debug("ocr complete",
		zap.String("image", imagePath),
		zap.Int("chars", len(text)))

	return text, nil
}

// Decoder reads the QR code printed on a receipt image.
type Decoder interface {
	DecodeQR(ctx context.Context, imagePath string) (string, error)
	IsAvailable() bool
}

// zbarDecoder shells out to zbarimg.
type zbarDecoder struct {
	binaryPath string
	logger     *zap.Logger
}

// NewZbarDecoder builds a QR decoder backed by zbarimg.
func NewZbarDecoder(binaryPath string, logger *zap.Logger) Decoder {
	if binaryPath == "" {
		binaryPath = "zbarimg"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &zbarDecoder{binaryPath: binaryPath, logger: logger}
}

func (z *zbarDecoder) IsAvailable() bool {
	_, err := exec.LookPath(z.binaryPath)
	return err == nil
}

// DecodeQR returns the content of the first QR code found in the image.
func (z *zbarDecoder) DecodeQR(ctx context.Context, imagePath string) (string, error) {
	if _, err := os.Stat(imagePath); os.IsNotExist(err) {
		return "", errors.Wrap(err, errors.ErrImageProcessingFailed.Code,
			fmt.Sprintf("image file not found: %s", imagePath))
	}

	cmd := exec.CommandContext(ctx, z.binaryPath, "--raw", "-q", imagePath)
	output, err := cmd.Output()
	if err != nil {
		// zbarimg exits 4 when no barcode is present
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 4 {
			return "", errors.Wrap(err, errors.ErrQRNotFound.Code, "no QR code found in image")
		}
		return "", errors.Wrap(err, errors.ErrImageProcessingFailed.Code, "zbarimg failed")
	}

	content := strings.TrimSpace(string(output))
	if content == "" {
		return "", errors.Wrap(nil, errors.ErrQRNotFound.Code, "no QR code found in image")
	}

	// zbarimg prints one line per symbol; the receipt QR is the first
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		content = content[:idx]
	}

	return content, nil
}

// MockRecognizer returns canned text; used in tests and when tesseract is
// not installed.
type MockRecognizer struct {
	Text string
	Err  error
}

func (m *MockRecognizer) ExtractText(ctx context.Context, imagePath string) (string, error) {
	return m.Text, m.Err
}

func (m *MockRecognizer) IsAvailable() bool { return true }

// MockDecoder returns a canned QR payload.
type MockDecoder struct {
	Content string
	Err     error
}

func (m *MockDecoder) DecodeQR(ctx context.Context, imagePath string) (string, error) {
	return m.Content, m.Err
}

func (m *MockDecoder) IsAvailable() bool { return true }

package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := New("NFCE_001", "bad url")
	assert.Equal(t, "[NFCE_001] bad url", err.Error())

	wrapped := New("NFCE_002", "fetch failed", fmt.Errorf("connection refused"))
	assert.Contains(t, wrapped.Error(), "NFCE_002")
	assert.Contains(t, wrapped.Error(), "connection refused")
}

func TestAppError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("timeout")
	err := Wrap(cause, "NFCE_002", "fetch failed")
	assert.Equal(t, cause, stderrors.Unwrap(err))
}

func TestAppError_IsMatchesByCode(t *testing.T) {
	wrapped := Wrap(fmt.Errorf("dns failure"), ErrRemoteFetchFailed.Code, "sefaz unreachable")
	assert.True(t, stderrors.Is(wrapped, ErrRemoteFetchFailed))
	assert.False(t, stderrors.Is(wrapped, ErrInvalidReceiptURL))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, "NFCE_003", GetCode(ErrNoProductsFound))
	assert.Equal(t, "UNKNOWN", GetCode(fmt.Errorf("plain")))
}

func TestIsAppError(t *testing.T) {
	assert.True(t, IsAppError(ErrInvalidReceiptURL))
	assert.False(t, IsAppError(fmt.Errorf("plain")))
}

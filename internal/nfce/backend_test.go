package nfce

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/despensaapp/despensa/internal/errors"
	"github.com/despensaapp/despensa/internal/receipt"
)

func TestBackendConsult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/nfce/consult", r.URL.Path)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))

		var req consultRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://nfce.sefaz.ba.gov.br/consulta?p=1|2|3|4", req.QRCodeURL)

		json.NewEncoder(w).Encode(consultResponse{Products: []receipt.Product{
			{Name: "Leite Integral", Price: 4.50, Stock: 2, Category: "Alimentos"},
		}})
	}))
	defer server.Close()

	b := NewBackendClient(server.URL, 5*time.Second, zap.NewNop())
	products, err := b.Consult(context.Background(), "https://nfce.sefaz.ba.gov.br/consulta?p=1|2|3|4", "token-123")
	require.NoError(t, err)

	require.Len(t, products, 1)
	assert.Equal(t, "Leite Integral", products[0].Name)
	assert.Equal(t, 4.50, products[0].Price)
}

func TestBackendConsultNoProducts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(consultResponse{Message: "Nenhum produto encontrado na nota fiscal"})
	}))
	defer server.Close()

	b := NewBackendClient(server.URL, 5*time.Second, zap.NewNop())
	products, err := b.Consult(context.Background(), "https://nfce.sefaz.ba.gov.br/c?p=1|2|3|4", "t")
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestBackendConsultErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{
			name:    "missing route",
			status:  http.StatusNotFound,
			body:    `{"message":"Cannot POST /api/nfce/consult"}`,
			wantMsg: "endpoint not found",
		},
		{
			name:    "rejected credentials",
			status:  http.StatusUnauthorized,
			body:    `{"message":"invalid token"}`,
			wantMsg: "credentials",
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `{"message":"boom"}`,
			wantMsg: "status 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			b := NewBackendClient(server.URL, 5*time.Second, zap.NewNop())
			_, err := b.Consult(context.Background(), "https://nfce.sefaz.ba.gov.br/c?p=1|2|3|4", "t")
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.ErrRemoteFetchFailed))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestBackendConsultConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	b := NewBackendClient(server.URL, time.Second, zap.NewNop())
	_, err := b.Consult(context.Background(), "https://nfce.sefaz.ba.gov.br/c?p=1|2|3|4", "t")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrRemoteFetchFailed))
}

func TestServiceStrategySelection(t *testing.T) {
	t.Run("backend preferred when configured", func(t *testing.T) {
		called := false
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			json.NewEncoder(w).Encode(consultResponse{Products: []receipt.Product{{Name: "Café", Price: 12.00, Stock: 1}}})
		}))
		defer server.Close()

		svc := NewService(testClient(t), NewBackendClient(server.URL, time.Second, zap.NewNop()), zap.NewNop())
		products, normalized, err := svc.Consult(context.Background(), "nfce.sefaz.ba.gov.br/c?p=1|2|3|4", "t")
		require.NoError(t, err)

		assert.True(t, called)
		assert.Equal(t, "https://nfce.sefaz.ba.gov.br/c?p=1|2|3|4", normalized)
		require.Len(t, products, 1)
		assert.Equal(t, "Café", products[0].Name)
	})

	t.Run("invalid URL fails before any strategy runs", func(t *testing.T) {
		svc := NewService(testClient(t), nil, zap.NewNop())
		_, _, err := svc.Consult(context.Background(), "https://example.com/x?y=1", "")
		assert.True(t, stderrors.Is(err, errors.ErrInvalidReceiptURL))
	})
}

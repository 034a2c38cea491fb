package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/despensaapp/despensa/internal/store"
)

func TestFormatExpiringMessage(t *testing.T) {
	exp := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	products := []store.Product{
		{Name: "Iogurte Natural", ExpirationDate: &exp},
		{Name: "Sal Grosso"},
	}

	msg := FormatExpiringMessage(products)

	assert.Contains(t, msg, "Iogurte Natural")
	assert.Contains(t, msg, "15/09/2026")
	assert.Contains(t, msg, "Sal Grosso")
}

func TestLogNotifierEmptyList(t *testing.T) {
	n := &LogNotifier{}
	assert.NoError(t, n.NotifyExpiring(context.Background(), nil))
}

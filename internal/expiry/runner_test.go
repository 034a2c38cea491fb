package expiry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/despensaapp/despensa/internal/config"
	"github.com/despensaapp/despensa/internal/store"
)

type captureNotifier struct {
	products []store.Product
	calls    int
}

func (c *captureNotifier) NotifyExpiring(ctx context.Context, products []store.Product) error {
	c.calls++
	c.products = products
	return nil
}

func TestRunOnce(t *testing.T) {
	s, err := store.NewInMemory()
	require.NoError(t, err)
	defer s.Close()

	in3 := time.Now().AddDate(0, 0, 3)
	in30 := time.Now().AddDate(0, 0, 30)
	_, err = s.CreateProducts([]store.Product{
		{Name: "Iogurte", Price: 6.00, Stock: 1, ExpirationDate: &in3},
		{Name: "Azeite", Price: 30.00, Stock: 1, ExpirationDate: &in30},
	})
	require.NoError(t, err)

	notifier := &captureNotifier{}
	r := NewRunner(config.ExpiryConfig{DaysAhead: 7}, s, notifier, zap.NewNop())

	require.NoError(t, r.RunOnce(context.Background()))

	assert.Equal(t, 1, notifier.calls)
	require.Len(t, notifier.products, 1)
	assert.Equal(t, "Iogurte", notifier.products[0].Name)
}

func TestRunOnceNothingExpiring(t *testing.T) {
	s, err := store.NewInMemory()
	require.NoError(t, err)
	defer s.Close()

	notifier := &captureNotifier{}
	r := NewRunner(config.ExpiryConfig{DaysAhead: 7}, s, notifier, zap.NewNop())

	require.NoError(t, r.RunOnce(context.Background()))
	assert.Zero(t, notifier.calls, "no alert for an empty sweep")
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s, err := store.NewInMemory()
	require.NoError(t, err)
	defer s.Close()

	r := NewRunner(config.ExpiryConfig{Schedule: "not a schedule"}, s, &captureNotifier{}, zap.NewNop())
	assert.Error(t, r.Start())
}

func TestStartAndStop(t *testing.T) {
	s, err := store.NewInMemory()
	require.NoError(t, err)
	defer s.Close()

	r := NewRunner(config.ExpiryConfig{Schedule: "0 8 * * *"}, s, &captureNotifier{}, zap.NewNop())
	require.NoError(t, r.Start())
	assert.Error(t, r.Start(), "double start is rejected")
	r.Stop()
}

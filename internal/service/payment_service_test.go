package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"payment-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory PaymentStore with the same conditional
// transition semantics as the Postgres store.
type fakeStore struct {
	mu       sync.Mutex
	nextID   int64
	payments map[int64]*models.Payment
	byOrder  map[string]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		payments: make(map[int64]*models.Payment),
		byOrder:  make(map[string]int64),
	}
}

func (s *fakeStore) CreatePayment(_ context.Context, payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byOrder[payment.OrderID]; exists {
		return models.ErrDuplicatePayment
	}

	s.nextID++
	payment.ID = s.nextID
	stored := *payment
	s.payments[payment.ID] = &stored
	s.byOrder[payment.OrderID] = payment.ID
	return nil
}

func (s *fakeStore) GetPaymentByID(_ context.Context, id int64) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payment, ok := s.payments[id]
	if !ok {
		return nil, models.ErrPaymentNotFound
	}
	copy := *payment
	return &copy, nil
}

func (s *fakeStore) GetPaymentByOrderID(_ context.Context, orderID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byOrder[orderID]
	if !ok {
		return nil, models.ErrPaymentNotFound
	}
	copy := *s.payments[id]
	return &copy, nil
}

func (s *fakeStore) TransitionPaymentStatus(_ context.Context, id int64, from, to string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payment, ok := s.payments[id]
	if !ok {
		return nil, models.ErrPaymentNotFound
	}
	if payment.Status != from {
		return nil, models.ErrInvalidPaymentState
	}
	payment.Status = to
	copy := *payment
	return &copy, nil
}

func (s *fakeStore) CompletePayment(_ context.Context, id int64, paymentIntentID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payment, ok := s.payments[id]
	if !ok {
		return nil, models.ErrPaymentNotFound
	}
	if payment.Status != models.PaymentStatusProcessing {
		return nil, models.ErrInvalidPaymentState
	}
	payment.Status = models.PaymentStatusCompleted
	payment.StripePaymentIntentID = &paymentIntentID
	copy := *payment
	return &copy, nil
}

func (s *fakeStore) FailPayment(_ context.Context, id int64, errorMessage string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payment, ok := s.payments[id]
	if !ok {
		return nil, models.ErrPaymentNotFound
	}
	if payment.Status != models.PaymentStatusProcessing {
		return nil, models.ErrInvalidPaymentState
	}
	payment.Status = models.PaymentStatusFailed
	payment.ErrorMessage = &errorMessage
	copy := *payment
	return &copy, nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments)
}

// fakeGateway returns a canned result and counts charge attempts.
type fakeGateway struct {
	intentID string
	err      error
	calls    int
}

func (g *fakeGateway) Charge(_ context.Context, _ decimal.Decimal, _ string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return g.intentID, nil
}

// fakeCache records cached payments.
type fakeCache struct {
	payments map[string]*models.Payment
}

func newFakeCache() *fakeCache {
	return &fakeCache{payments: make(map[string]*models.Payment)}
}

func (c *fakeCache) SetPayment(_ context.Context, payment *models.Payment) error {
	copy := *payment
	c.payments[payment.OrderID] = &copy
	return nil
}

func (c *fakeCache) GetPayment(_ context.Context, orderID string) (*models.Payment, error) {
	return c.payments[orderID], nil
}

func TestCreatePayment(t *testing.T) {
	store := newFakeStore()
	svc := NewPaymentService(store, &fakeGateway{intentID: "pi_test"}, nil)
	ctx := context.Background()

	amount := decimal.RequireFromString("49.50")
	payment, err := svc.CreatePayment(ctx, "ord-1", amount)
	require.NoError(t, err)

	assert.NotZero(t, payment.ID)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, models.PaymentMethodStripe, payment.Method)

	found, err := svc.GetPaymentByOrderID(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, found.Status)
	assert.True(t, amount.Equal(found.Amount))
}

func TestCreatePaymentDuplicate(t *testing.T) {
	store := newFakeStore()
	svc := NewPaymentService(store, &fakeGateway{}, nil)
	ctx := context.Background()

	amount := decimal.RequireFromString("10.00")
	_, err := svc.CreatePayment(ctx, "ord-1", amount)
	require.NoError(t, err)

	_, err = svc.CreatePayment(ctx, "ord-1", amount)
	assert.ErrorIs(t, err, models.ErrDuplicatePayment)
	assert.Equal(t, 1, store.count())
}

func TestProcessPaymentCompleted(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{intentID: "pi_abc"}
	svc := NewPaymentService(store, gw, nil)
	ctx := context.Background()

	payment, err := svc.CreatePayment(ctx, "ord-1", decimal.RequireFromString("19.99"))
	require.NoError(t, err)

	payment, err = svc.ProcessPayment(ctx, payment.ID)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
	require.NotNil(t, payment.StripePaymentIntentID)
	assert.Equal(t, "pi_abc", *payment.StripePaymentIntentID)
	assert.Nil(t, payment.ErrorMessage)
	assert.Equal(t, 1, gw.calls)
}

func TestProcessPaymentFailed(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{err: assert.AnError}
	svc := NewPaymentService(store, gw, nil)
	ctx := context.Background()

	payment, err := svc.CreatePayment(ctx, "ord-1", decimal.RequireFromString("19.99"))
	require.NoError(t, err)

	// Gateway failure is a business outcome, not an error to the caller.
	payment, err = svc.ProcessPayment(ctx, payment.ID)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusFailed, payment.Status)
	require.NotNil(t, payment.ErrorMessage)
	assert.NotEmpty(t, *payment.ErrorMessage)
	assert.Nil(t, payment.StripePaymentIntentID)
}

func TestProcessPaymentTwice(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{intentID: "pi_abc"}
	svc := NewPaymentService(store, gw, nil)
	ctx := context.Background()

	payment, err := svc.CreatePayment(ctx, "ord-1", decimal.RequireFromString("5.00"))
	require.NoError(t, err)

	first, err := svc.ProcessPayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, first.Status)

	_, err = svc.ProcessPayment(ctx, payment.ID)
	assert.ErrorIs(t, err, models.ErrInvalidPaymentState)

	// The terminal outcome of the first attempt is untouched and the
	// customer was charged exactly once.
	stored, err := store.GetPaymentByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, stored.Status)
	assert.Equal(t, 1, gw.calls)
}

func TestProcessPaymentNotFound(t *testing.T) {
	svc := NewPaymentService(newFakeStore(), &fakeGateway{}, nil)

	_, err := svc.ProcessPayment(context.Background(), 42)
	assert.ErrorIs(t, err, models.ErrPaymentNotFound)
}

func TestProcessPaymentTruncatesErrorMessage(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{err: &longError{}}
	svc := NewPaymentService(store, gw, nil)
	ctx := context.Background()

	payment, err := svc.CreatePayment(ctx, "ord-1", decimal.RequireFromString("1.00"))
	require.NoError(t, err)

	payment, err = svc.ProcessPayment(ctx, payment.ID)
	require.NoError(t, err)

	require.NotNil(t, payment.ErrorMessage)
	assert.Len(t, *payment.ErrorMessage, models.MaxErrorMessageLength)
}

type longError struct{}

func (e *longError) Error() string {
	return strings.Repeat("x", models.MaxErrorMessageLength+500)
}

func TestGetPaymentByOrderIDNotFound(t *testing.T) {
	svc := NewPaymentService(newFakeStore(), &fakeGateway{}, nil)

	_, err := svc.GetPaymentByOrderID(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrPaymentNotFound)
}

func TestResolvedPaymentIsCached(t *testing.T) {
	store := newFakeStore()
	cache := newFakeCache()
	svc := NewPaymentService(store, &fakeGateway{intentID: "pi_abc"}, cache)
	ctx := context.Background()

	payment, err := svc.CreatePayment(ctx, "ord-1", decimal.RequireFromString("2.50"))
	require.NoError(t, err)

	// Pending payments never enter the cache.
	assert.Nil(t, cache.payments["ord-1"])

	_, err = svc.ProcessPayment(ctx, payment.ID)
	require.NoError(t, err)

	require.NotNil(t, cache.payments["ord-1"])
	assert.Equal(t, models.PaymentStatusCompleted, cache.payments["ord-1"].Status)

	found, err := svc.GetPaymentByOrderID(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, found.Status)
}

package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"payment-service/internal/models"

	"github.com/go-redis/redis/v8"
)

// Client caches resolved payments keyed by order id. Only terminal
// payments belong here; they never change, so entries are valid for their
// whole TTL.
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int, ttl time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb, ttl: ttl}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func paymentKey(orderID string) string {
	return fmt.Sprintf("payment:order:%s", orderID)
}

// SetPayment stores a payment under its order id with the configured TTL
func (c *Client) SetPayment(ctx context.Context, payment *models.Payment) error {
	data, err := json.Marshal(payment)
	if err != nil {
		return fmt.Errorf("failed to marshal payment: %w", err)
	}
	return c.rdb.Set(ctx, paymentKey(payment.OrderID), data, c.ttl).Err()
}

// GetPayment retrieves a cached payment by order id. A cache miss returns
// (nil, nil).
func (c *Client) GetPayment(ctx context.Context, orderID string) (*models.Payment, error) {
	data, err := c.rdb.Get(ctx, paymentKey(orderID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var payment models.Payment
	if err := json.Unmarshal(data, &payment); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached payment: %w", err)
	}
	return &payment, nil
}

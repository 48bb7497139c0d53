package gateway

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMinorUnits(t *testing.T) {
	cases := []struct {
		amount string
		want   int64
	}{
		{"19.99", 1999},
		{"0.00", 0},
		{"100", 10000},
		{"49.50", 4950},
		{"0.01", 1},
		{"1234567.89", 123456789},
	}

	for _, tc := range cases {
		amount, err := decimal.NewFromString(tc.amount)
		assert.NoError(t, err)
		assert.Equal(t, tc.want, MinorUnits(amount), "amount %s", tc.amount)
	}
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Reason: "card declined"}
	assert.Equal(t, "payment processing failed: card declined", err.Error())
}

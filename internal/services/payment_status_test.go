package services

import (
	"errors"
	"testing"

	"rentledger/internal/models"
	apperrors "rentledger/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeStatus(t *testing.T) {
	tests := []struct {
		name        string
		amount      string
		rent        string
		wantStatus  string
		wantBalance string
	}{
		{"exact payment", "1200", "1200", models.PaymentStatusFull, "0"},
		{"exact with different scale", "1200.00", "1200", models.PaymentStatusFull, "0"},
		{"partial payment", "500", "800", models.PaymentStatusPartial, "300"},
		{"nothing paid", "0", "800", models.PaymentStatusPartial, "800"},
		{"overpayment", "1600", "1500", models.PaymentStatusOverpaid, "-100"},
		{"cents", "999.99", "1000", models.PaymentStatusPartial, "0.01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeStatus(dec(tt.amount), dec(tt.rent))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.True(t, got.Balance.Equal(dec(tt.wantBalance)), "balance %s", got.Balance)
		})
	}
}

func TestComputeStatus_InvalidRent(t *testing.T) {
	for _, rent := range []string{"0", "-1"} {
		for _, amount := range []string{"0", "100", "-5"} {
			_, err := ComputeStatus(dec(amount), dec(rent))
			assert.True(t, errors.Is(err, apperrors.ErrInvalidRent), "rent=%s amount=%s", rent, amount)
		}
	}
}

func TestComputeStatus_InvalidAmount(t *testing.T) {
	_, err := ComputeStatus(dec("-0.01"), dec("100"))
	assert.True(t, errors.Is(err, apperrors.ErrInvalidAmount))
}

func TestComputeStatus_SignConvention(t *testing.T) {
	rents := []string{"1", "250.50", "1200", "99999.99"}
	for _, r := range rents {
		rent := dec(r)

		over, err := ComputeStatus(rent.Add(dec("10")), rent)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusOverpaid, over.Status)
		assert.True(t, over.Balance.Equal(dec("-10")))
		assert.True(t, over.Balance.IsNegative())

		under, err := ComputeStatus(rent.Div(dec("2")), rent)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPartial, under.Status)
		assert.True(t, under.Balance.Equal(rent.Sub(rent.Div(dec("2")))))
		assert.True(t, under.Balance.IsPositive())
	}
}

func TestComputeStatus_Idempotent(t *testing.T) {
	first, err := ComputeStatus(dec("500"), dec("800"))
	require.NoError(t, err)
	second, err := ComputeStatus(dec("500"), dec("800"))
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)
	assert.True(t, first.Balance.Equal(second.Balance))
}

func TestStatusResult_DueAndCredit(t *testing.T) {
	partial, _ := ComputeStatus(dec("500"), dec("800"))
	assert.True(t, partial.Due().Equal(dec("300")))
	assert.True(t, partial.Credit().IsZero())
	assert.False(t, partial.IsFullyPaid())
	assert.False(t, partial.HasCredit())

	over, _ := ComputeStatus(dec("1600"), dec("1500"))
	assert.True(t, over.Due().IsZero())
	assert.True(t, over.Credit().Equal(dec("100")))
	assert.True(t, over.IsFullyPaid())
	assert.True(t, over.HasCredit())

	full, _ := ComputeStatus(dec("1200"), dec("1200"))
	assert.True(t, full.IsFullyPaid())
	assert.False(t, full.HasCredit())
}

func TestComputeStatus_MoneyScale(t *testing.T) {
	// 金额列两位小数，多余位数会在入库时被舍入
	_, err := ComputeStatus(dec("799.999"), dec("800"))
	assert.True(t, errors.Is(err, apperrors.ErrInvalidAmount))

	_, err = ComputeStatus(dec("800"), dec("0.001"))
	assert.True(t, errors.Is(err, apperrors.ErrInvalidRent))

	_, err = ComputeStatus(dec("800"), dec("800.005"))
	assert.True(t, errors.Is(err, apperrors.ErrInvalidRent))

	result, err := ComputeStatus(dec("800.000"), dec("800"))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFull, result.Status)

	result, err = ComputeStatus(dec("799.99"), dec("800"))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPartial, result.Status)
	assert.True(t, result.Balance.Equal(dec("0.01")))
}

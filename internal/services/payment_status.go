package services

import (
	"fmt"

	"rentledger/internal/models"
	apperrors "rentledger/pkg/errors"

	"github.com/shopspring/decimal"
)

// StatusResult 一笔支付相对月租金的状态
//
// Balance 恒为 monthlyRent - amountPaid：正数为欠款，负数为多付的余额
type StatusResult struct {
	Status  string          `json:"status"`
	Balance decimal.Decimal `json:"balance"`
}

// ComputeStatus 根据实付金额和月租金计算支付状态与余额
//
// 纯函数，可用于提交前的预览
func ComputeStatus(amountPaid, monthlyRent decimal.Decimal) (StatusResult, error) {
	if !monthlyRent.IsPositive() || !models.FitsMoneyScale(monthlyRent) {
		return StatusResult{}, fmt.Errorf("%w: got %s", apperrors.ErrInvalidRent, monthlyRent.String())
	}
	// 超过两位小数的金额入库会被舍入，状态和余额将与存储值不符
	if amountPaid.IsNegative() || !models.FitsMoneyScale(amountPaid) {
		return StatusResult{}, fmt.Errorf("%w: got %s", apperrors.ErrInvalidAmount, amountPaid.String())
	}

	balance := monthlyRent.Sub(amountPaid)
	switch balance.Sign() {
	case 0:
		return StatusResult{Status: models.PaymentStatusFull, Balance: decimal.Zero}, nil
	case -1:
		return StatusResult{Status: models.PaymentStatusOverpaid, Balance: balance}, nil
	default:
		return StatusResult{Status: models.PaymentStatusPartial, Balance: balance}, nil
	}
}

// Due 尚欠金额，不会为负
func (r StatusResult) Due() decimal.Decimal {
	if r.Balance.IsPositive() {
		return r.Balance
	}
	return decimal.Zero
}

// Credit 多付金额，不会为负
func (r StatusResult) Credit() decimal.Decimal {
	if r.Balance.IsNegative() {
		return r.Balance.Neg()
	}
	return decimal.Zero
}

func (r StatusResult) IsFullyPaid() bool {
	return !r.Balance.IsPositive()
}

func (r StatusResult) HasCredit() bool {
	return r.Balance.IsNegative()
}

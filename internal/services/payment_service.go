package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rentledger/internal/models"
	"rentledger/internal/repository"
	apperrors "rentledger/pkg/errors"
	"rentledger/pkg/logger"
	"rentledger/pkg/queue"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

// RecordPaymentInput 登记支付参数
type RecordPaymentInput struct {
	PropertyID    uint
	UnitNumber    string
	Amount        decimal.Decimal
	PaymentMonth  time.Time
	PaymentDate   time.Time // 为空时取当前时间
	PaymentMethod string
	Notes         string
	Reference     string // 为空时生成 uuid
}

// PaymentPreview 提交前的支付预览，不落库
type PaymentPreview struct {
	PropertyID   uint            `json:"property_id"`
	UnitID       uint            `json:"unit_id"`
	UnitNumber   string          `json:"unit_number"`
	UnitOccupied bool            `json:"unit_occupied"`
	MonthlyRent  decimal.Decimal `json:"monthly_rent"`
	Amount       decimal.Decimal `json:"amount"`
	Status       string          `json:"status"`
	Balance      decimal.Decimal `json:"balance"`
	Due          decimal.Decimal `json:"due"`
	Credit       decimal.Decimal `json:"credit"`
	IsFullyPaid  bool            `json:"is_fully_paid"`
	HasCredit    bool            `json:"has_credit"`
}

// PaymentSummary 一组支付的收款统计
type PaymentSummary struct {
	PaymentCount          int             `json:"payment_count"`
	TotalCollected        decimal.Decimal `json:"total_collected"`
	ExpectedTotal         decimal.Decimal `json:"expected_total"`
	Outstanding           decimal.Decimal `json:"outstanding"`
	OverpaymentCredit     decimal.Decimal `json:"overpayment_credit"`
	CollectionRatePercent int             `json:"collection_rate_percent"`
}

// Summarize 汇总收款
//
// 多付金额不抵扣其他单元的欠款，Outstanding 不会为负；ExpectedTotal 为 0 时收款率为 0
func Summarize(payments []*models.Payment, expectedTotal decimal.Decimal) PaymentSummary {
	summary := PaymentSummary{
		PaymentCount:      len(payments),
		TotalCollected:    decimal.Zero,
		ExpectedTotal:     expectedTotal,
		OverpaymentCredit: decimal.Zero,
	}
	for _, p := range payments {
		summary.TotalCollected = summary.TotalCollected.Add(p.Amount)
		if p.Status == models.PaymentStatusOverpaid {
			summary.OverpaymentCredit = summary.OverpaymentCredit.Add(p.Balance.Abs())
		}
	}

	// 只把抵扣租金的部分计入已收
	applied := summary.TotalCollected.Sub(summary.OverpaymentCredit)
	summary.Outstanding = decimal.Max(decimal.Zero, expectedTotal.Sub(applied))
	summary.CollectionRatePercent = percentOf(summary.TotalCollected, expectedTotal)
	return summary
}

// percentOf 四舍五入到整数百分比，whole 不为正时返回 0
func percentOf(part, whole decimal.Decimal) int {
	if !whole.IsPositive() {
		return 0
	}
	return int(part.Div(whole).Mul(hundred).Round(0).IntPart())
}

// PaymentService 支付登记与查询
type PaymentService struct {
	store     repository.Store
	occupancy *OccupancyService
	publisher EventPublisher
	now       func() time.Time
}

func NewPaymentService(store repository.Store, occupancy *OccupancyService, publisher EventPublisher) *PaymentService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &PaymentService{
		store:     store,
		occupancy: occupancy,
		publisher: publisher,
		now:       time.Now,
	}
}

// RecordPayment 登记支付
//
// 状态和余额按单元当前租金计算并随记录一起保存，之后不再变更
func (s *PaymentService) RecordPayment(ctx context.Context, input RecordPaymentInput) (*models.Payment, error) {
	method := strings.ToUpper(strings.TrimSpace(input.PaymentMethod))
	if !models.ValidPaymentMethod(method) {
		return nil, fmt.Errorf("%w: got %q", apperrors.ErrInvalidPaymentMethod, input.PaymentMethod)
	}
	if input.Amount.IsNegative() || !models.FitsMoneyScale(input.Amount) {
		return nil, fmt.Errorf("%w: got %s", apperrors.ErrInvalidAmount, input.Amount.String())
	}
	if input.PaymentMonth.IsZero() {
		return nil, fmt.Errorf("%w: payment month is required", apperrors.ErrInvalidPeriod)
	}

	_, unit, err := s.occupancy.ResolveUnit(ctx, input.PropertyID, input.UnitNumber)
	if err != nil {
		return nil, err
	}
	if !unit.IsOccupied || unit.TenantID == nil {
		return nil, fmt.Errorf("%w: unit %s in property %d", apperrors.ErrUnitVacant, unit.UnitNumber, unit.PropertyID)
	}

	result, err := ComputeStatus(input.Amount, unit.MonthlyRent)
	if err != nil {
		return nil, err
	}

	paymentDate := input.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = s.now()
	}
	reference := strings.TrimSpace(input.Reference)
	if reference == "" {
		reference = uuid.NewString()
	}

	payment := &models.Payment{
		Reference:     reference,
		TenantID:      *unit.TenantID,
		PropertyID:    unit.PropertyID,
		UnitID:        unit.ID,
		UnitNumber:    unit.UnitNumber,
		Amount:        input.Amount,
		MonthlyRent:   unit.MonthlyRent,
		Balance:       result.Balance,
		Status:        result.Status,
		PaymentDate:   paymentDate,
		PaymentMonth:  models.PeriodStart(input.PaymentMonth),
		PaymentMethod: method,
		Notes:         strings.TrimSpace(input.Notes),
	}
	if err := s.store.Payments().Create(ctx, payment); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrDuplicateReference, reference)
		}
		return nil, err
	}

	logger.GetLogger().WithFields(logrus.Fields{
		"payment_id":    payment.ID,
		"property_id":   payment.PropertyID,
		"unit_id":       payment.UnitID,
		"status":        payment.Status,
		"balance":       payment.Balance.String(),
		"payment_month": payment.PaymentMonth.Format("2006-01"),
	}).Info("支付已登记")

	publishEvent(ctx, s.publisher, queue.Event{
		Type:       queue.EventPaymentRecorded,
		PropertyID: payment.PropertyID,
		UnitID:     payment.UnitID,
		Payload:    payment,
	})
	return payment, nil
}

// PreviewPayment 按单元当前租金预览支付状态
func (s *PaymentService) PreviewPayment(ctx context.Context, propertyID uint, unitNumber string, amount decimal.Decimal) (*PaymentPreview, error) {
	_, unit, err := s.occupancy.ResolveUnit(ctx, propertyID, unitNumber)
	if err != nil {
		return nil, err
	}
	result, err := ComputeStatus(amount, unit.MonthlyRent)
	if err != nil {
		return nil, err
	}

	return &PaymentPreview{
		PropertyID:   unit.PropertyID,
		UnitID:       unit.ID,
		UnitNumber:   unit.UnitNumber,
		UnitOccupied: unit.IsOccupied,
		MonthlyRent:  unit.MonthlyRent,
		Amount:       amount,
		Status:       result.Status,
		Balance:      result.Balance,
		Due:          result.Due(),
		Credit:       result.Credit(),
		IsFullyPaid:  result.IsFullyPaid(),
		HasCredit:    result.HasCredit(),
	}, nil
}

// GetByID 获取支付记录
func (s *PaymentService) GetByID(ctx context.Context, id uint) (*models.Payment, error) {
	return s.store.Payments().GetByID(ctx, id)
}

// ListByProperty 物业的支付记录，按支付日期倒序
func (s *PaymentService) ListByProperty(ctx context.Context, propertyID uint, offset, limit int) ([]*models.Payment, int64, error) {
	if _, err := s.store.Properties().GetByID(ctx, propertyID); err != nil {
		return nil, 0, err
	}
	return s.store.Payments().ListByProperty(ctx, propertyID, offset, limit)
}

// UnitHistory 单元的全部支付记录，按支付日期倒序
func (s *PaymentService) UnitHistory(ctx context.Context, propertyID, unitID uint) ([]*models.Payment, error) {
	unit, err := s.store.Units().GetByID(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if unit.PropertyID != propertyID {
		return nil, fmt.Errorf("%w: unit %d in property %d", apperrors.ErrUnitNotFound, unitID, propertyID)
	}
	return s.store.Payments().ListByUnit(ctx, unitID)
}

package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"rentledger/internal/models"
	"rentledger/internal/repository"
	apperrors "rentledger/pkg/errors"
	"rentledger/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var monthsPerYear = decimal.NewFromInt(12)

// MonthlyLineItem 月报明细
type MonthlyLineItem struct {
	PaymentID     uint            `json:"payment_id"`
	Reference     string          `json:"reference"`
	TenantID      uint            `json:"tenant_id"`
	PropertyID    uint            `json:"property_id"`
	UnitNumber    string          `json:"unit_number"`
	Amount        decimal.Decimal `json:"amount"`
	MonthlyRent   decimal.Decimal `json:"monthly_rent"`
	Balance       decimal.Decimal `json:"balance"`
	Status        string          `json:"status"`
	PaymentDate   time.Time       `json:"payment_date"`
	PaymentMethod string          `json:"payment_method"`
}

// MonthlyReport 月度收款报表
type MonthlyReport struct {
	Month          int               `json:"month"`
	Year           int               `json:"year"`
	PropertyID     *uint             `json:"property_id,omitempty"`
	TotalRevenue   decimal.Decimal   `json:"total_revenue"`
	TotalDue       decimal.Decimal   `json:"total_due"`
	CollectionRate int               `json:"collection_rate"`
	Summary        PaymentSummary    `json:"summary"`
	LineItems      []MonthlyLineItem `json:"line_items"`
}

// MonthRevenue 年报中的单月收入
type MonthRevenue struct {
	Month        int             `json:"month"`
	Revenue      decimal.Decimal `json:"revenue"`
	PaymentCount int             `json:"payment_count"`
}

// YearlyReport 年度收入报表
type YearlyReport struct {
	Year                  int             `json:"year"`
	PropertyID            *uint           `json:"property_id,omitempty"`
	TotalRevenue          decimal.Decimal `json:"total_revenue"`
	PaymentCount          int             `json:"payment_count"`
	MonthlyBreakdown      []MonthRevenue  `json:"monthly_breakdown"`
	AverageMonthlyRevenue decimal.Decimal `json:"average_monthly_revenue"`
}

func validatePeriod(month, year int) error {
	if year < 1 || year > 9999 {
		return fmt.Errorf("%w: year %d", apperrors.ErrInvalidPeriod, year)
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month %d", apperrors.ErrInvalidPeriod, month)
	}
	return nil
}

// inPeriod 按 payment_month 归属租期，不看 payment_date；month 为 0 时只比较年份
func inPeriod(p *models.Payment, month time.Month, year int) bool {
	period := p.PaymentMonth.UTC()
	return period.Year() == year && (month == 0 || period.Month() == month)
}

// BuildMonthlyReport 从支付集合生成月报，集合中不属于该月的记录会被忽略
func BuildMonthlyReport(payments []*models.Payment, month, year int, totalDue decimal.Decimal) *MonthlyReport {
	var selected []*models.Payment
	for _, p := range payments {
		if inPeriod(p, time.Month(month), year) {
			selected = append(selected, p)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].PaymentDate.Before(selected[j].PaymentDate)
	})

	summary := Summarize(selected, totalDue)
	report := &MonthlyReport{
		Month:          month,
		Year:           year,
		TotalRevenue:   summary.TotalCollected,
		TotalDue:       totalDue,
		CollectionRate: summary.CollectionRatePercent,
		Summary:        summary,
		LineItems:      make([]MonthlyLineItem, 0, len(selected)),
	}
	for _, p := range selected {
		report.LineItems = append(report.LineItems, MonthlyLineItem{
			PaymentID:     p.ID,
			Reference:     p.Reference,
			TenantID:      p.TenantID,
			PropertyID:    p.PropertyID,
			UnitNumber:    p.UnitNumber,
			Amount:        p.Amount,
			MonthlyRent:   p.MonthlyRent,
			Balance:       p.Balance,
			Status:        p.Status,
			PaymentDate:   p.PaymentDate,
			PaymentMethod: p.PaymentMethod,
		})
	}
	return report
}

// BuildYearlyReport 从支付集合生成年报
//
// 月均收入固定按 12 个月计算，不区分是否为完整年度
func BuildYearlyReport(payments []*models.Payment, year int) *YearlyReport {
	report := &YearlyReport{
		Year:             year,
		TotalRevenue:     decimal.Zero,
		MonthlyBreakdown: make([]MonthRevenue, 12),
	}
	for i := range report.MonthlyBreakdown {
		report.MonthlyBreakdown[i] = MonthRevenue{Month: i + 1, Revenue: decimal.Zero}
	}

	for _, p := range payments {
		if !inPeriod(p, 0, year) {
			continue
		}
		bucket := &report.MonthlyBreakdown[p.PaymentMonth.UTC().Month()-1]
		bucket.Revenue = bucket.Revenue.Add(p.Amount)
		bucket.PaymentCount++
		report.TotalRevenue = report.TotalRevenue.Add(p.Amount)
		report.PaymentCount++
	}

	report.AverageMonthlyRevenue = report.TotalRevenue.Div(monthsPerYear).Round(2)
	return report
}

// ReportService 按租期统计收款
type ReportService struct {
	store repository.Store
}

func NewReportService(store repository.Store) *ReportService {
	return &ReportService{store: store}
}

// MonthlyReport 月度报表
//
// TotalDue 使用报表生成时的出租情况估算，历史出租状态不做追溯
func (s *ReportService) MonthlyReport(ctx context.Context, propertyID *uint, month, year int) (*MonthlyReport, error) {
	if err := validatePeriod(month, year); err != nil {
		return nil, err
	}
	if propertyID != nil {
		if _, err := s.store.Properties().GetByID(ctx, *propertyID); err != nil {
			return nil, err
		}
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	payments, err := s.store.Payments().ListByPaymentMonth(ctx, propertyID, from, from.AddDate(0, 1, 0))
	if err != nil {
		return nil, err
	}

	totalDue, err := s.expectedRentFor(ctx, payments, propertyID)
	if err != nil {
		return nil, err
	}

	report := BuildMonthlyReport(payments, month, year, totalDue)
	report.PropertyID = propertyID

	logger.GetLogger().WithFields(logrus.Fields{
		"report":   "monthly",
		"period":   from.Format("2006-01"),
		"payments": len(report.LineItems),
	}).Debug("报表已生成")
	return report, nil
}

// YearlyReport 年度报表
func (s *ReportService) YearlyReport(ctx context.Context, propertyID *uint, year int) (*YearlyReport, error) {
	if err := validatePeriod(1, year); err != nil {
		return nil, err
	}
	if propertyID != nil {
		if _, err := s.store.Properties().GetByID(ctx, *propertyID); err != nil {
			return nil, err
		}
	}

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	payments, err := s.store.Payments().ListByPaymentMonth(ctx, propertyID, from, from.AddDate(1, 0, 0))
	if err != nil {
		return nil, err
	}

	report := BuildYearlyReport(payments, year)
	report.PropertyID = propertyID

	logger.GetLogger().WithFields(logrus.Fields{
		"report":   "yearly",
		"year":     year,
		"payments": report.PaymentCount,
	}).Debug("报表已生成")
	return report, nil
}

// expectedRentFor 支付集合涉及的物业（以及筛选的物业）当前应收月租合计
func (s *ReportService) expectedRentFor(ctx context.Context, payments []*models.Payment, propertyID *uint) (decimal.Decimal, error) {
	seen := make(map[uint]bool)
	var ids []uint
	add := func(id uint) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if propertyID != nil {
		add(*propertyID)
	}
	for _, p := range payments {
		add(p.PropertyID)
	}
	if len(ids) == 0 {
		return decimal.Zero, nil
	}

	properties, err := s.store.Properties().GetByIDs(ctx, ids)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, property := range properties {
		total = total.Add(ExpectedMonthlyRent(property))
	}
	return total, nil
}

package main

import (
	"context"
	"fmt"
	"time"

	"rentledger/internal/models"
	"rentledger/internal/repository"
	"rentledger/internal/router"
	"rentledger/internal/services"
	"rentledger/pkg/logger"

	"github.com/shopspring/decimal"
)

// seedData 初始化演示数据，库中已有物业时跳过
func seedData(ctx context.Context, store repository.Store, svc *router.Services) error {
	appLogger := logger.GetLogger()

	_, total, err := store.Properties().List(ctx, "", 0, 1)
	if err != nil {
		return fmt.Errorf("查询物业失败: %v", err)
	}
	if total > 0 {
		appLogger.Info("已存在物业数据，跳过演示数据初始化")
		return nil
	}

	appLogger.Info("Starting seed data initialization...")

	// 1. 创建演示物业
	property, err := svc.Properties.CreateProperty(ctx, services.CreatePropertyInput{
		Name:    "Sunrise Apartments",
		Address: "100 Harbor Road",
		Floors: []services.FloorInput{
			{FloorNumber: 1, Units: []services.UnitInput{
				{UnitNumber: "101", MonthlyRent: decimal.NewFromInt(800)},
				{UnitNumber: "102", MonthlyRent: decimal.NewFromInt(950)},
			}},
			{FloorNumber: 2, Units: []services.UnitInput{
				{UnitNumber: "201", MonthlyRent: decimal.NewFromInt(1200)},
				{UnitNumber: "202", MonthlyRent: decimal.NewFromInt(1500)},
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("创建演示物业失败: %v", err)
	}

	// 2. 入住两个单元
	now := time.Now().UTC()
	leaseStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -2, 0)
	tenants := []struct {
		unit, name, email string
	}{
		{"101", "Grace Hopper", "grace@example.com"},
		{"201", "Alan Turing", "alan@example.com"},
	}
	for _, t := range tenants {
		if _, err := svc.Occupancy.AssignTenant(ctx, services.AssignTenantInput{
			PropertyID:     property.ID,
			UnitNumber:     t.unit,
			Name:           t.name,
			Email:          t.email,
			PhoneNumber:    "555-0100",
			LeaseStartDate: leaseStart,
			LeaseEndDate:   leaseStart.AddDate(1, 0, 0),
		}); err != nil {
			return fmt.Errorf("创建演示租客失败: %v", err)
		}
	}

	// 3. 上个月的支付：一笔足额，一笔部分
	lastMonth := models.PeriodStart(now).AddDate(0, -1, 0)
	payments := []struct {
		unit   string
		amount int64
	}{
		{"101", 800},
		{"201", 1000},
	}
	for _, p := range payments {
		if _, err := svc.Payments.RecordPayment(ctx, services.RecordPaymentInput{
			PropertyID:    property.ID,
			UnitNumber:    p.unit,
			Amount:        decimal.NewFromInt(p.amount),
			PaymentMonth:  lastMonth,
			PaymentDate:   lastMonth.AddDate(0, 0, 4),
			PaymentMethod: models.PaymentMethodBankTransfer,
		}); err != nil {
			return fmt.Errorf("创建演示支付失败: %v", err)
		}
	}

	appLogger.Info("Seed data initialization completed successfully")
	return nil
}

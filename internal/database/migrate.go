package database

import (
	"fmt"

	"rentledger/internal/models"
	"rentledger/pkg/logger"
)

// 一个单元同一时间最多一个在租租客
const activeTenantIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_tenants_active_unit ON tenants (unit_id) WHERE status = 'active'`

// Migrate 建表并补充 AutoMigrate 表达不了的约束
func Migrate() error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting ledger schema migration...")

	// 按外键依赖顺序
	if err := DB.AutoMigrate(
		&models.Property{},
		&models.Floor{},
		&models.Unit{},
		&models.Tenant{},
		&models.Payment{},
	); err != nil {
		appLogger.Errorf("Ledger schema migration failed: %v", err)
		return err
	}

	if err := DB.Exec(activeTenantIndex).Error; err != nil {
		return fmt.Errorf("创建在租租客唯一索引失败: %v", err)
	}

	appLogger.Info("Ledger schema migration completed")
	return nil
}

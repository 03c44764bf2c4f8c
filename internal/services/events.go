package services

import (
	"context"

	"rentledger/internal/models"
	"rentledger/pkg/logger"
	"rentledger/pkg/queue"

	"github.com/sirupsen/logrus"
)

// EventPublisher 业务事件出口，由 queue.RedisPublisher 实现
type EventPublisher interface {
	Publish(ctx context.Context, event queue.Event) error
}

// NopPublisher 未启用 Redis 时使用
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.Event) error { return nil }

// TenancyEvent 入住/退租事件的内容，只带标识，不外发租客联系方式
type TenancyEvent struct {
	TenantID   uint   `json:"tenant_id"`
	PropertyID uint   `json:"property_id"`
	UnitID     uint   `json:"unit_id"`
	UnitNumber string `json:"unit_number"`
	Status     string `json:"status,omitempty"`
}

func tenancyEvent(unit *models.Unit, tenant *models.Tenant) TenancyEvent {
	event := TenancyEvent{PropertyID: unit.PropertyID, UnitID: unit.ID, UnitNumber: unit.UnitNumber}
	if tenant != nil {
		event.TenantID = tenant.ID
		event.Status = tenant.Status
	}
	return event
}

// publishEvent 尽力发布，失败只记日志，不影响已提交的写入
func publishEvent(ctx context.Context, publisher EventPublisher, event queue.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.GetLogger().WithFields(logrus.Fields{
			"event":       event.Type,
			"property_id": event.PropertyID,
			"unit_id":     event.UnitID,
		}).Warnf("发布事件失败: %v", err)
	}
}

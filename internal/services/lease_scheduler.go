package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rentledger/internal/repository"
	"rentledger/pkg/logger"

	"github.com/robfig/cron/v3"
)

// LeaseExpiryScheduler 定时结束已到期的租约
type LeaseExpiryScheduler struct {
	store     repository.Store
	occupancy *OccupancyService
	schedule  string
	cron      *cron.Cron
	mu        sync.Mutex
	running   bool
}

// NewLeaseExpiryScheduler schedule 为 cron 表达式，支持 @daily 等描述符
func NewLeaseExpiryScheduler(store repository.Store, occupancy *OccupancyService, schedule string) *LeaseExpiryScheduler {
	if schedule == "" {
		schedule = "@daily"
	}
	return &LeaseExpiryScheduler{
		store:     store,
		occupancy: occupancy,
		schedule:  schedule,
	}
}

// Start 启动调度器
func (s *LeaseExpiryScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("调度器已经在运行")
	}

	// 每次启动重新创建，避免重复注册任务
	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() {
		if _, err := s.RunOnce(context.Background(), time.Now()); err != nil {
			logger.GetLogger().Errorf("租约到期检查失败: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("无效的cron表达式 %s: %v", s.schedule, err)
	}

	s.cron = c
	s.cron.Start()
	s.running = true
	logger.GetLogger().Infof("租约到期调度器启动成功，cron: %s", s.schedule)
	return nil
}

// Stop 停止调度器，等待正在执行的任务结束
func (s *LeaseExpiryScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	logger.GetLogger().Info("停止租约到期调度器")
	<-s.cron.Stop().Done()
	s.running = false
}

// RunOnce 结束 now 之前到期的全部租约，返回成功退租的数量
//
// 单个租约失败只记日志，继续处理其余租约
func (s *LeaseExpiryScheduler) RunOnce(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.store.Tenants().ListExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("查询到期租约失败: %v", err)
	}

	ended := 0
	for _, tenant := range expired {
		if _, err := s.occupancy.EndTenancy(ctx, tenant.ID, now); err != nil {
			logger.GetLogger().Errorf("结束租客 %d 的租约失败: %v", tenant.ID, err)
			continue
		}
		ended++
	}

	if len(expired) > 0 {
		logger.GetLogger().Infof("租约到期检查完成，到期 %d 个，已退租 %d 个", len(expired), ended)
	}
	return ended, nil
}

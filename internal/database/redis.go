package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rentledger/pkg/config"
	"rentledger/pkg/queue"
)

var (
	publisherInstance *queue.RedisPublisher
	publisherOnce     sync.Once
)

// GetEventPublisher 获取Redis事件发布器的单例实例
func GetEventPublisher() *queue.RedisPublisher {
	publisherOnce.Do(func() {
		cfg := config.GetConfig()
		publisherInstance = queue.NewRedisPublisher(&queue.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
	})
	return publisherInstance
}

// ConnectRedis 创建发布器并测试连接
func ConnectRedis() (*queue.RedisPublisher, error) {
	publisher := GetEventPublisher()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := publisher.Ping(ctx); err != nil {
		return nil, fmt.Errorf("Redis连接失败: %v", err)
	}
	return publisher, nil
}

// CloseRedis 关闭Redis连接
func CloseRedis() error {
	if publisherInstance != nil {
		return publisherInstance.Close()
	}
	return nil
}

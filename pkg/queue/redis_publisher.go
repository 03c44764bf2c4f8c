package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// 事件类型
const (
	EventPaymentRecorded = "payment.recorded"
	EventTenantAssigned  = "tenant.assigned"
	EventUnitVacated     = "unit.vacated"
)

// 每个物业保留的最近事件条数
const recentLimit = 50

// Event 业务事件消息
type Event struct {
	Type       string      `json:"type"`
	PropertyID uint        `json:"property_id"`
	UnitID     uint        `json:"unit_id"`
	Payload    interface{} `json:"payload"`
	Created    int64       `json:"created"`
}

// Config Redis配置
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string
}

// RedisPublisher 基于 Redis Pub/Sub 的事件发布器
//
// 事件发布到 {prefix}:property:{id}，同时写入该物业的最近事件列表
type RedisPublisher struct {
	client *redis.Client
	prefix string
}

// NewRedisPublisher 创建Redis事件发布器
func NewRedisPublisher(config *Config) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	})

	prefix := config.Prefix
	if prefix == "" {
		prefix = "rentledger:events"
	}

	return &RedisPublisher{
		client: client,
		prefix: prefix,
	}
}

// Close 关闭Redis连接
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// Ping 测试Redis连接
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Publish 发布事件
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	if event.Created == 0 {
		event.Created = time.Now().Unix()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %v", err)
	}

	if err := p.client.Publish(ctx, p.ChannelFor(event.PropertyID), data).Err(); err != nil {
		return fmt.Errorf("发布事件失败: %v", err)
	}

	// 最近事件列表，供新连接回放
	recentKey := p.recentKey(event.PropertyID)
	pipe := p.client.TxPipeline()
	pipe.LPush(ctx, recentKey, data)
	pipe.LTrim(ctx, recentKey, 0, recentLimit-1)
	pipe.Expire(ctx, recentKey, 24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("记录最近事件失败: %v", err)
	}

	return nil
}

// Recent 最近 n 条事件，按时间从旧到新
func (p *RedisPublisher) Recent(ctx context.Context, propertyID uint, n int) ([]Event, error) {
	if n <= 0 || n > recentLimit {
		n = recentLimit
	}
	raw, err := p.client.LRange(ctx, p.recentKey(propertyID), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("读取最近事件失败: %v", err)
	}

	events := make([]Event, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		event, err := DecodeEvent([]byte(raw[i]))
		if err != nil {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// Subscribe 订阅单个物业的事件；propertyID 为 0 时订阅全部物业
func (p *RedisPublisher) Subscribe(ctx context.Context, propertyID uint) *redis.PubSub {
	if propertyID == 0 {
		return p.client.PSubscribe(ctx, p.prefix+":property:*")
	}
	return p.client.Subscribe(ctx, p.ChannelFor(propertyID))
}

// ChannelFor 物业事件频道名
func (p *RedisPublisher) ChannelFor(propertyID uint) string {
	return fmt.Sprintf("%s:property:%d", p.prefix, propertyID)
}

func (p *RedisPublisher) recentKey(propertyID uint) string {
	return fmt.Sprintf("%s:recent:%d", p.prefix, propertyID)
}

// DecodeEvent 解析频道中的事件消息
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return Event{}, fmt.Errorf("解析事件失败: %v", err)
	}
	if event.Type == "" {
		return Event{}, fmt.Errorf("事件缺少类型")
	}
	return event, nil
}

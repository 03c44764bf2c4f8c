package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"rentledger/pkg/logger"
	"rentledger/pkg/queue"
	"rentledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeTimeout = 10 * time.Second
	pongWait     = 300 * time.Second
	pingInterval = 60 * time.Second
	// 新连接回放的最近事件数
	replayCount = 20
)

// WebSocketHandler 把 Redis 中的支付/入住/退租事件推送给看板
type WebSocketHandler struct {
	upgrader  websocket.Upgrader
	publisher *queue.RedisPublisher
	log       *logrus.Logger
}

// NewWebSocketHandler allowedOrigins 与 CORS 配置一致
func NewWebSocketHandler(publisher *queue.RedisPublisher, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// 同源请求不带 Origin
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || matchOrigin(origin, allowed) {
						return true
					}
				}
				logger.GetLogger().Warnf("WebSocket连接被拒绝，非法Origin: %s", origin)
				return false
			},
			ReadBufferSize:  1024 * 4,
			WriteBufferSize: 1024 * 32,
		},
		publisher: publisher,
		log:       logger.GetLogger(),
	}
}

// PaymentEvents 订阅事件流，property_id 为空时接收全部物业
func (h *WebSocketHandler) PaymentEvents(c *gin.Context) {
	propertyID, ok := parseOptionalUintQuery(c, "property_id")
	if !ok {
		return
	}
	var id uint
	if propertyID != nil {
		id = *propertyID
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	h.log.WithField("property_id", id).Info("WebSocket connection established")
	h.stream(conn, id)
}

func (h *WebSocketHandler) stream(conn *websocket.Conn, propertyID uint) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubsub := h.publisher.Subscribe(ctx, propertyID)
	defer pubsub.Close()

	// 等待订阅成功
	if _, err := pubsub.Receive(ctx); err != nil {
		h.log.WithError(err).Error("Failed to subscribe to Redis channel")
		return
	}

	// 单个物业的连接先回放最近事件
	if propertyID != 0 {
		recent, err := h.publisher.Recent(ctx, propertyID, replayCount)
		if err != nil {
			h.log.WithError(err).Warn("Failed to load recent events")
		}
		for _, event := range recent {
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}

	go h.readPump(conn, cancel)

	ch := pubsub.Channel()
	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.log.WithError(err).Debug("Failed to send ping")
				return
			}

		case msg, ok := <-ch:
			if !ok {
				return
			}
			event, err := queue.DecodeEvent([]byte(msg.Payload))
			if err != nil {
				h.log.WithError(err).Warn("Failed to parse event message")
				continue
			}

			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(event); err != nil {
				h.log.WithError(err).Debug("Failed to send message to client")
				return
			}
		}
	}
}

// readPump 处理客户端消息（主要是ping/pong）
func (h *WebSocketHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.WithError(err).Error("WebSocket unexpected close")
			}
			return
		}
	}
}

// Unavailable 未启用 Redis 时的占位处理
func Unavailable(c *gin.Context) {
	response.Error(c, http.StatusServiceUnavailable, "事件推送未启用")
}

// matchOrigin 支持精确匹配和 *.example.com 形式的子域名通配
func matchOrigin(origin, allowed string) bool {
	if origin == allowed {
		return true
	}
	if !strings.HasPrefix(allowed, "*.") {
		return false
	}

	domain := allowed[2:]
	host := origin
	if idx := strings.Index(host, "://"); idx != -1 {
		host = host[idx+3:]
	}
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

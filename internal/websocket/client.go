package websocket

import (
	"errors"
	"sync"
	"time"

	"go-relief-hub/internal/interfaces"
	"go-relief-hub/pkg/config"
	"go-relief-hub/pkg/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var ErrClientClosed = errors.New("client connection closed")
var ErrSendBufferFull = errors.New("client send buffer full")

const (
	defaultWriteWait      = 10 * time.Second // 写超时
	defaultPongWait       = 60 * time.Second // 等待pong的最大时间
	defaultMaxMessageSize = 512              // 客户端只发送控制帧, 限制读取长度
)

// Client 是一个订阅通知流的连接; 服务端只向下推送文本消息
type Client struct {
	UserID  uint
	Conn    *websocket.Conn
	Send    chan []byte
	manager interfaces.ConnectionManager

	writeWait      time.Duration
	pongWait       time.Duration
	maxMessageSize int64

	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
}

func NewClient(userID uint, conn *websocket.Conn, manager interfaces.ConnectionManager) *Client {
	wsConfig := config.GlobalConfig.WebSocket
	c := &Client{
		UserID:         userID,
		Conn:           conn,
		Send:           make(chan []byte, 256),
		manager:        manager,
		writeWait:      defaultWriteWait,
		pongWait:       defaultPongWait,
		maxMessageSize: defaultMaxMessageSize,
	}
	if wsConfig.WriteWaitSeconds > 0 {
		c.writeWait = time.Duration(wsConfig.WriteWaitSeconds) * time.Second
	}
	if wsConfig.PongWaitSeconds > 0 {
		c.pongWait = time.Duration(wsConfig.PongWaitSeconds) * time.Second
	}
	if wsConfig.MaxMessageSize > 0 {
		c.maxMessageSize = int64(wsConfig.MaxMessageSize)
	}
	return c
}

func (c *Client) GetUserID() uint { return c.UserID }

// QueueBytes 非阻塞地放入发送缓冲
func (c *Client) QueueBytes(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.Send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close 关闭发送通道, WritePump随之退出; 可重复调用
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.Send)
		c.mu.Unlock()
	})
}

// ReadPump 只处理pong与关闭; 读到错误时注销连接
func (c *Client) ReadPump() {
	defer func() {
		c.manager.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.L.Warn("Unexpected websocket close", zap.Uint("userID", c.UserID), zap.Error(err))
			} else {
				logger.L.Debug("Websocket read finished", zap.Uint("userID", c.UserID), zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if !ok {
				// Send 通道已关闭
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.L.Warn("Failed to write notification", zap.Uint("userID", c.UserID), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.L.Debug("Failed to send ping", zap.Uint("userID", c.UserID), zap.Error(err))
				return
			}
		}
	}
}

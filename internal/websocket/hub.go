package websocket

import (
	"errors"
	"sync"
	"time"

	"go-relief-hub/internal/interfaces"
	"go-relief-hub/pkg/config"
	"go-relief-hub/pkg/logger"

	"go.uber.org/zap"
)

// Hub 是单节点的通知推送中心, 每个用户保留最新的一条连接
type Hub struct {
	clients   map[uint]interfaces.Client
	clientsMu sync.RWMutex
	broadcast chan []byte
	done      chan struct{}
	stopOnce  sync.Once

	retryCount    int
	retryInterval time.Duration
}

func NewHub() *Hub {
	wsConfig := config.GlobalConfig.WebSocket

	retryCount := wsConfig.MessageRetryCount
	if retryCount <= 0 {
		retryCount = 3
	}

	retryInterval := time.Duration(wsConfig.MessageRetryIntervalMs) * time.Millisecond
	if retryInterval <= 0 {
		retryInterval = 100 * time.Millisecond
	}

	broadcastBufferSize := wsConfig.BroadcastBufferSize
	if broadcastBufferSize <= 0 {
		broadcastBufferSize = 256
	}

	return &Hub{
		clients:       make(map[uint]interfaces.Client),
		broadcast:     make(chan []byte, broadcastBufferSize),
		done:          make(chan struct{}),
		retryCount:    retryCount,
		retryInterval: retryInterval,
	}
}

func (h *Hub) Register(client interfaces.Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	userID := client.GetUserID()
	if old, ok := h.clients[userID]; ok && old != client {
		old.Close()
	}
	h.clients[userID] = client
	logger.L.Info("Client registered", zap.Uint("userID", userID))
}

func (h *Hub) Unregister(client interfaces.Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	userID := client.GetUserID()
	if registered, ok := h.clients[userID]; ok && registered == client {
		delete(h.clients, userID)
		client.Close()
		logger.L.Info("Client unregistered", zap.Uint("userID", userID))
	}
}

func (h *Hub) Broadcast(data []byte) error {
	select {
	case h.broadcast <- data:
		return nil
	default:
		logger.L.Warn("Hub broadcast channel full, dropping notification")
		return errors.New("hub broadcast channel is full")
	}
}

func (h *Hub) SendToUser(userID uint, data []byte) (bool, error) {
	h.clientsMu.RLock()
	client, ok := h.clients[userID]
	h.clientsMu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := h.deliver(client, data); err != nil {
		return false, err
	}
	return true, nil
}

func (h *Hub) IsClientConnected(userID uint) bool {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// deliver 在发送缓冲满时重试, 仍失败则断开该连接
func (h *Hub) deliver(client interfaces.Client, data []byte) error {
	err := client.QueueBytes(data)
	for i := 0; errors.Is(err, ErrSendBufferFull) && i < h.retryCount; i++ {
		logger.L.Warn("Client send buffer full, retry attempt",
			zap.Uint("userID", client.GetUserID()),
			zap.Int("attempt", i+1))
		time.Sleep(h.retryInterval)
		err = client.QueueBytes(data)
	}
	if errors.Is(err, ErrSendBufferFull) {
		logger.L.Error("Client send buffer still full after retries, closing connection",
			zap.Uint("userID", client.GetUserID()),
			zap.Int("attempts", h.retryCount))
		h.Unregister(client)
	}
	return err
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return
		case data := <-h.broadcast:
			h.clientsMu.RLock()
			targets := make([]interfaces.Client, 0, len(h.clients))
			for _, c := range h.clients {
				targets = append(targets, c)
			}
			h.clientsMu.RUnlock()

			for _, c := range targets {
				if err := h.deliver(c, data); err != nil {
					logger.L.Debug("Broadcast skipped client", zap.Uint("userID", c.GetUserID()), zap.Error(err))
				}
			}
		}
	}
}

// Stop 结束Run循环并断开所有连接
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.clientsMu.Lock()
		for id, c := range h.clients {
			c.Close()
			delete(h.clients, id)
		}
		h.clientsMu.Unlock()
	})
}

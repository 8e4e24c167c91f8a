package api

import (
	"net/http"

	"go-relief-hub/internal/interfaces"
	internalws "go-relief-hub/internal/websocket"
	"go-relief-hub/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: 生产环境应该配置具体的域名
		return true // 允许所有来源
	},
}

// WSHandler 为登录用户建立通知推送连接, 客户端发来的消息被忽略
type WSHandler struct {
	hub interfaces.ConnectionManager
}

func NewWSHandler(hub interfaces.ConnectionManager) *WSHandler {
	return &WSHandler{hub: hub}
}

func (h *WSHandler) HandleConnection(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok || userID == 0 {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.L.Error("Failed to upgrade WebSocket connection", zap.Uint("userID", userID), zap.Error(err))
		return
	}
	logger.L.Info("WebSocket connection upgraded", zap.Uint("userID", userID))

	client := internalws.NewClient(userID, conn, h.hub)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

package interfaces

// 一条websocket连接, websocket.Client实现
type Client interface {
	GetUserID() uint
	QueueBytes(data []byte) error
	Close()
}

// ConnectionManager 维护在线用户并推送通知; websocket.Hub 与 websocket.KafkaHub 实现
type ConnectionManager interface {
	Register(client Client)
	Unregister(client Client)
	// 推送给所有在线用户
	Broadcast(data []byte) error
	// sent为false表示用户不在本节点在线
	SendToUser(userID uint, data []byte) (sent bool, err error)
	IsClientConnected(userID uint) bool
}

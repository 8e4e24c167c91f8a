package notify

import (
	"context"
	"sync"
)

type Delivery struct {
	To      Recipient
	Payload Payload
}

// MemoryNotifier 在内存中保存每条通知. 设置Err后, Notify记录投递后返回该错误
type MemoryNotifier struct {
	mu         sync.Mutex
	deliveries []Delivery
	Err        error
}

func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{}
}

func (n *MemoryNotifier) Notify(_ context.Context, to Recipient, p Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deliveries = append(n.deliveries, Delivery{To: to, Payload: p})
	return n.Err
}

func (n *MemoryNotifier) Deliveries() []Delivery {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Delivery, len(n.deliveries))
	copy(out, n.deliveries)
	return out
}

// To 返回发给r的投递记录
func (n *MemoryNotifier) To(r Recipient) []Delivery {
	var out []Delivery
	for _, d := range n.Deliveries() {
		if d.To == r {
			out = append(out, d)
		}
	}
	return out
}

func (n *MemoryNotifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deliveries = nil
}

package node

import (
	"net"
	"sync"
)

// Datagram is a payload waiting to be sent to To.
type Datagram struct {
	To      net.Addr
	Payload []byte
}

type outboxNode struct {
	next  *outboxNode
	value Datagram
}

// Outbox is a FIFO of datagrams the socket refused to take yet.
type Outbox struct {
	mu     sync.Mutex
	head   *outboxNode
	tail   *outboxNode
	length int
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

// Push appends a datagram at the tail.
func (o *Outbox) Push(to net.Addr, payload []byte) {
	node := &outboxNode{value: Datagram{To: to, Payload: payload}}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.tail == nil {
		o.head, o.tail = node, node
	} else {
		o.tail.next, o.tail = node, node
	}
	o.length++
}

// Peek returns the head without removing it.
func (o *Outbox) Peek() (Datagram, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.head == nil {
		return Datagram{}, false
	}
	return o.head.value, true
}

// Pop removes and returns the head.
func (o *Outbox) Pop() (Datagram, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.head == nil {
		return Datagram{}, false
	}
	node := o.head
	o.head = node.next
	if o.head == nil {
		o.tail = nil
	}
	node.next = nil
	o.length--
	return node.value, true
}

// Clear empties the outbox
func (o *Outbox) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.head, o.tail = nil, nil
	o.length = 0
}

// Len ...
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.length
}

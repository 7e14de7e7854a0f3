package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clay-wangzhi/kubepolaris-workloads/internal/models"
)

// EventName 存储/面板事件名
type EventName string

const (
	WorkloadPodsFetchedEvent EventName = "WorkloadPodsFetchedEvent"
	WorkloadsFoundEvent      EventName = "WorkloadsFoundEvent"
	DeploymentsFetchedEvent  EventName = "DeploymentsFetchedEvent"
	ReplicaSetsFetchedEvent  EventName = "ReplicaSetsFetchedEvent"
	DaemonSetsFetchedEvent   EventName = "DaemonSetsFetchedEvent"
	StatefulSetsFetchedEvent EventName = "StatefulSetsFetchedEvent"
	ServicesFetchedEvent     EventName = "ServicesFetchedEvent"
	FetchFailedEvent         EventName = "FetchFailedEvent"
	FilterChangedEvent       EventName = "FilterChangedEvent"
	SelectionChangedEvent    EventName = "SelectionChangedEvent"
)

// Event 推送给订阅者的事件
type Event struct {
	ID      string              `json:"id"`
	Name    EventName           `json:"name"`
	Kind    models.ResourceKind `json:"kind,omitempty"`
	Count   int                 `json:"count"`
	Error   string              `json:"error,omitempty"`
	Payload interface{}         `json:"payload,omitempty"`
	Time    time.Time           `json:"time"`
}

// NewEvent 创建带唯一 ID 的事件
func NewEvent(name EventName, kind models.ResourceKind) Event {
	return Event{
		ID:   uuid.NewString(),
		Name: name,
		Kind: kind,
		Time: time.Now(),
	}
}

// Handler 事件回调
type Handler func(Event)

type subscription struct {
	id string
	fn Handler
}

// allEvents 通配订阅使用的键
const allEvents EventName = "*"

// Emitter 按事件名分发的发布/订阅器，回调在 Emit 调用方的 goroutine 中按订阅顺序同步执行
type Emitter struct {
	mu   sync.RWMutex
	subs map[EventName][]subscription
}

// NewEmitter 创建事件分发器
func NewEmitter() *Emitter {
	return &Emitter{subs: make(map[EventName][]subscription)}
}

// Subscribe 订阅指定事件，返回取消订阅函数
func (e *Emitter) Subscribe(name EventName, fn Handler) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := uuid.NewString()
	e.subs[name] = append(e.subs[name], subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { e.unsubscribe(name, id) })
	}
}

// SubscribeAll 订阅全部事件
func (e *Emitter) SubscribeAll(fn Handler) func() {
	return e.Subscribe(allEvents, fn)
}

func (e *Emitter) unsubscribe(name EventName, id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	subs := e.subs[name]
	for i, s := range subs {
		if s.id == id {
			e.subs[name] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(e.subs[name]) == 0 {
		delete(e.subs, name)
	}
}

// Emit 分发事件
func (e *Emitter) Emit(ev Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	e.mu.RLock()
	handlers := make([]Handler, 0, len(e.subs[ev.Name])+len(e.subs[allEvents]))
	for _, s := range e.subs[ev.Name] {
		handlers = append(handlers, s.fn)
	}
	for _, s := range e.subs[allEvents] {
		handlers = append(handlers, s.fn)
	}
	e.mu.RUnlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

// SubscriberCount 当前订阅数量
func (e *Emitter) SubscriberCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n := 0
	for _, subs := range e.subs {
		n += len(subs)
	}
	return n
}

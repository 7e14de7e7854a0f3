package store

import (
	"sync"

	corev1 "k8s.io/api/core/v1"

	"github.com/clay-wangzhi/kubepolaris-workloads/internal/models"
)

// PodsState PodsStore 快照
type PodsState struct {
	Pods   []corev1.Pod
	Loaded bool
	Error  string
}

// PodsStore 缓存集群范围的 Pod 列表
type PodsStore struct {
	mu      sync.RWMutex
	state   PodsState
	emitter *Emitter
}

// NewPodsStore 创建 PodsStore
func NewPodsStore(emitter *Emitter) *PodsStore {
	return &PodsStore{emitter: emitter}
}

// Snapshot 返回当前状态快照
func (s *PodsStore) Snapshot() PodsState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetPods 写入 Pod 列表
func (s *PodsStore) SetPods(items []corev1.Pod) {
	s.mu.Lock()
	s.state = PodsState{Pods: items, Loaded: true}
	s.mu.Unlock()

	if s.emitter != nil {
		ev := NewEvent(WorkloadPodsFetchedEvent, models.KindPod)
		ev.Count = len(items)
		s.emitter.Emit(ev)
	}
}

// SetError 记录获取失败
func (s *PodsStore) SetError(err error) {
	s.mu.Lock()
	s.state.Loaded = true
	s.state.Error = err.Error()
	s.mu.Unlock()

	if s.emitter != nil {
		ev := NewEvent(FetchFailedEvent, models.KindPod)
		ev.Error = err.Error()
		s.emitter.Emit(ev)
	}
}

// ServicesState ServicesStore 快照
type ServicesState struct {
	Services []corev1.Service
	Loaded   bool
	Error    string
}

// ServicesStore 缓存 Service 列表
type ServicesStore struct {
	mu      sync.RWMutex
	state   ServicesState
	emitter *Emitter
}

// NewServicesStore 创建 ServicesStore
func NewServicesStore(emitter *Emitter) *ServicesStore {
	return &ServicesStore{emitter: emitter}
}

// Snapshot 返回当前状态快照
func (s *ServicesStore) Snapshot() ServicesState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetServices 写入 Service 列表
func (s *ServicesStore) SetServices(items []corev1.Service) {
	s.mu.Lock()
	s.state = ServicesState{Services: items, Loaded: true}
	s.mu.Unlock()

	if s.emitter != nil {
		ev := NewEvent(ServicesFetchedEvent, models.KindService)
		ev.Count = len(items)
		s.emitter.Emit(ev)
	}
}

// SetError 记录获取失败
func (s *ServicesStore) SetError(err error) {
	s.mu.Lock()
	s.state.Loaded = true
	s.state.Error = err.Error()
	s.mu.Unlock()

	if s.emitter != nil {
		ev := NewEvent(FetchFailedEvent, models.KindService)
		ev.Error = err.Error()
		s.emitter.Emit(ev)
	}
}

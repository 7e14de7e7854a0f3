package store

import (
	"sync"

	appsv1 "k8s.io/api/apps/v1"

	"github.com/clay-wangzhi/kubepolaris-workloads/internal/models"
)

// WorkloadsState WorkloadsStore 的只读快照
type WorkloadsState struct {
	Deployments  []appsv1.Deployment
	ReplicaSets  []appsv1.ReplicaSet
	DaemonSets   []appsv1.DaemonSet
	StatefulSets []appsv1.StatefulSet

	// Loaded 记录每类资源是否已完成过一次获取
	Loaded map[models.ResourceKind]bool
	// Errors 记录每类资源最近一次获取失败的原因
	Errors map[models.ResourceKind]string
}

// HasWorkloads 是否存在任意工作负载
func (s WorkloadsState) HasWorkloads() bool {
	return len(s.Deployments) > 0 || len(s.DaemonSets) > 0 || len(s.StatefulSets) > 0
}

// WorkloadsStore 缓存 Deployment/ReplicaSet/DaemonSet/StatefulSet 列表
// 写入方只替换整个切片，不修改已发布的切片内容，因此快照可以共享底层数组
type WorkloadsStore struct {
	mu      sync.RWMutex
	state   WorkloadsState
	emitter *Emitter
}

// NewWorkloadsStore 创建 WorkloadsStore
func NewWorkloadsStore(emitter *Emitter) *WorkloadsStore {
	return &WorkloadsStore{
		emitter: emitter,
		state: WorkloadsState{
			Loaded: make(map[models.ResourceKind]bool),
			Errors: make(map[models.ResourceKind]string),
		},
	}
}

// Snapshot 返回当前状态快照
func (s *WorkloadsStore) Snapshot() WorkloadsState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.state
	snap.Loaded = make(map[models.ResourceKind]bool, len(s.state.Loaded))
	for k, v := range s.state.Loaded {
		snap.Loaded[k] = v
	}
	snap.Errors = make(map[models.ResourceKind]string, len(s.state.Errors))
	for k, v := range s.state.Errors {
		snap.Errors[k] = v
	}
	return snap
}

// SetDeployments 写入 Deployment 列表
func (s *WorkloadsStore) SetDeployments(items []appsv1.Deployment) {
	s.update(models.KindDeployment, DeploymentsFetchedEvent, len(items), func(st *WorkloadsState) {
		st.Deployments = items
	})
}

// SetReplicaSets 写入 ReplicaSet 列表
func (s *WorkloadsStore) SetReplicaSets(items []appsv1.ReplicaSet) {
	s.update(models.KindReplicaSet, ReplicaSetsFetchedEvent, len(items), func(st *WorkloadsState) {
		st.ReplicaSets = items
	})
}

// SetDaemonSets 写入 DaemonSet 列表
func (s *WorkloadsStore) SetDaemonSets(items []appsv1.DaemonSet) {
	s.update(models.KindDaemonSet, DaemonSetsFetchedEvent, len(items), func(st *WorkloadsState) {
		st.DaemonSets = items
	})
}

// SetStatefulSets 写入 StatefulSet 列表
func (s *WorkloadsStore) SetStatefulSets(items []appsv1.StatefulSet) {
	s.update(models.KindStatefulSet, StatefulSetsFetchedEvent, len(items), func(st *WorkloadsState) {
		st.StatefulSets = items
	})
}

// SetError 记录获取失败，已缓存的数据保持不变
func (s *WorkloadsStore) SetError(kind models.ResourceKind, err error) {
	s.mu.Lock()
	s.state.Loaded[kind] = true
	s.state.Errors[kind] = err.Error()
	s.mu.Unlock()

	ev := NewEvent(FetchFailedEvent, kind)
	ev.Error = err.Error()
	s.emit(ev)
}

// LastError 返回某类资源最近一次失败原因
func (s *WorkloadsStore) LastError(kind models.ResourceKind) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Errors[kind]
}

func (s *WorkloadsStore) update(kind models.ResourceKind, name EventName, count int, fn func(*WorkloadsState)) {
	s.mu.Lock()
	fn(&s.state)
	s.state.Loaded[kind] = true
	delete(s.state.Errors, kind)
	found := s.state.HasWorkloads()
	s.mu.Unlock()

	ev := NewEvent(name, kind)
	ev.Count = count
	s.emit(ev)

	if found && kind != models.KindReplicaSet {
		s.emit(NewEvent(WorkloadsFoundEvent, kind))
	}
}

func (s *WorkloadsStore) emit(ev Event) {
	if s.emitter != nil {
		s.emitter.Emit(ev)
	}
}

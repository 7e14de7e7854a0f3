package store

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/clay-wangzhi/kubepolaris-workloads/internal/models"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) names() []EventName {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventName, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Name)
	}
	return out
}

func TestEmitter_SubscribeAndUnsubscribe(t *testing.T) {
	e := NewEmitter()
	var got []string

	unsubA := e.Subscribe(DeploymentsFetchedEvent, func(Event) { got = append(got, "a") })
	e.Subscribe(DeploymentsFetchedEvent, func(Event) { got = append(got, "b") })
	e.Subscribe(WorkloadPodsFetchedEvent, func(Event) { got = append(got, "pods") })

	e.Emit(NewEvent(DeploymentsFetchedEvent, models.KindDeployment))
	assert.Equal(t, []string{"a", "b"}, got)

	unsubA()
	unsubA()
	got = nil
	e.Emit(NewEvent(DeploymentsFetchedEvent, models.KindDeployment))
	assert.Equal(t, []string{"b"}, got)
	assert.Equal(t, 2, e.SubscriberCount())
}

func TestEmitter_SubscribeAll(t *testing.T) {
	e := NewEmitter()
	rec := &recorder{}
	e.SubscribeAll(rec.handle)

	e.Emit(Event{Name: FilterChangedEvent})
	e.Emit(Event{Name: SelectionChangedEvent})

	require.Len(t, rec.events, 2)
	assert.NotEmpty(t, rec.events[0].ID)
	assert.False(t, rec.events[0].Time.IsZero())
}

func TestWorkloadsStore_Events(t *testing.T) {
	e := NewEmitter()
	rec := &recorder{}
	e.SubscribeAll(rec.handle)
	s := NewWorkloadsStore(e)

	s.SetReplicaSets([]appsv1.ReplicaSet{{ObjectMeta: metav1.ObjectMeta{Name: "rs"}}})
	s.SetDeployments(nil)
	assert.Equal(t, []EventName{ReplicaSetsFetchedEvent, DeploymentsFetchedEvent}, rec.names())

	s.SetDaemonSets([]appsv1.DaemonSet{{ObjectMeta: metav1.ObjectMeta{Name: "ds"}}})
	names := rec.names()
	assert.Equal(t, []EventName{DaemonSetsFetchedEvent, WorkloadsFoundEvent}, names[2:])

	snap := s.Snapshot()
	assert.True(t, snap.HasWorkloads())
	assert.True(t, snap.Loaded[models.KindDeployment])
	assert.True(t, snap.Loaded[models.KindReplicaSet])
	assert.False(t, snap.Loaded[models.KindStatefulSet])
}

func TestWorkloadsStore_ErrorKeepsData(t *testing.T) {
	e := NewEmitter()
	rec := &recorder{}
	e.Subscribe(FetchFailedEvent, rec.handle)
	s := NewWorkloadsStore(e)

	s.SetDeployments([]appsv1.Deployment{{ObjectMeta: metav1.ObjectMeta{Name: "web"}}})
	s.SetError(models.KindDeployment, errors.New("forbidden"))

	snap := s.Snapshot()
	assert.Len(t, snap.Deployments, 1)
	assert.Equal(t, "forbidden", snap.Errors[models.KindDeployment])
	assert.Equal(t, "forbidden", s.LastError(models.KindDeployment))
	require.Len(t, rec.events, 1)
	assert.Equal(t, models.KindDeployment, rec.events[0].Kind)

	// 成功获取后清除错误
	s.SetDeployments(nil)
	assert.Empty(t, s.LastError(models.KindDeployment))
}

func TestWorkloadsStore_SnapshotIsolation(t *testing.T) {
	s := NewWorkloadsStore(nil)
	snap := s.Snapshot()
	snap.Loaded[models.KindPod] = true

	assert.False(t, s.Snapshot().Loaded[models.KindPod])
}

func TestPodsStore(t *testing.T) {
	e := NewEmitter()
	rec := &recorder{}
	e.SubscribeAll(rec.handle)
	s := NewPodsStore(e)

	assert.False(t, s.Snapshot().Loaded)
	s.SetPods([]corev1.Pod{{}, {}})
	assert.Len(t, s.Snapshot().Pods, 2)
	s.SetError(errors.New("timeout"))
	assert.Equal(t, "timeout", s.Snapshot().Error)
	assert.Len(t, s.Snapshot().Pods, 2)

	require.Len(t, rec.events, 2)
	assert.Equal(t, WorkloadPodsFetchedEvent, rec.events[0].Name)
	assert.Equal(t, 2, rec.events[0].Count)
	assert.Equal(t, FetchFailedEvent, rec.events[1].Name)
}

func TestServicesStore(t *testing.T) {
	s := NewServicesStore(NewEmitter())
	s.SetServices([]corev1.Service{{}})
	snap := s.Snapshot()
	assert.True(t, snap.Loaded)
	assert.Len(t, snap.Services, 1)
}

func TestWorkloadsStore_ConcurrentAccess(t *testing.T) {
	s := NewWorkloadsStore(NewEmitter())
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.SetDeployments([]appsv1.Deployment{{}})
		}()
		go func() {
			defer wg.Done()
			_ = s.Snapshot()
		}()
	}
	wg.Wait()
	assert.Len(t, s.Snapshot().Deployments, 1)
}

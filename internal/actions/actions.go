package actions

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/clay-wangzhi/kubepolaris-workloads/internal/k8s"
	"github.com/clay-wangzhi/kubepolaris-workloads/internal/models"
	"github.com/clay-wangzhi/kubepolaris-workloads/internal/store"
	"github.com/clay-wangzhi/kubepolaris-workloads/pkg/logger"
)

// WorkloadsActionsCreator 获取工作负载并写入 WorkloadsStore
type WorkloadsActionsCreator struct {
	svc   k8s.ResourceService
	store *store.WorkloadsStore
}

// NewWorkloadsActionsCreator 创建工作负载 action creator
func NewWorkloadsActionsCreator(svc k8s.ResourceService, s *store.WorkloadsStore) *WorkloadsActionsCreator {
	return &WorkloadsActionsCreator{svc: svc, store: s}
}

// GetDeployments 获取 Deployment 列表
func (a *WorkloadsActionsCreator) GetDeployments(ctx context.Context) error {
	start := time.Now()
	list, err := a.svc.GetDeployments(ctx, "")
	if err != nil {
		return a.fail(models.KindDeployment, err)
	}
	a.store.SetDeployments(list.Items)
	logger.Debug("获取Deployment完成: count=%d, cost=%s", len(list.Items), time.Since(start))
	return nil
}

// GetReplicaSets 获取 ReplicaSet 列表
func (a *WorkloadsActionsCreator) GetReplicaSets(ctx context.Context) error {
	start := time.Now()
	list, err := a.svc.GetReplicaSets(ctx, "")
	if err != nil {
		return a.fail(models.KindReplicaSet, err)
	}
	a.store.SetReplicaSets(list.Items)
	logger.Debug("获取ReplicaSet完成: count=%d, cost=%s", len(list.Items), time.Since(start))
	return nil
}

// GetDaemonSets 获取 DaemonSet 列表
func (a *WorkloadsActionsCreator) GetDaemonSets(ctx context.Context) error {
	start := time.Now()
	list, err := a.svc.GetDaemonSets(ctx, "")
	if err != nil {
		return a.fail(models.KindDaemonSet, err)
	}
	a.store.SetDaemonSets(list.Items)
	logger.Debug("获取DaemonSet完成: count=%d, cost=%s", len(list.Items), time.Since(start))
	return nil
}

// GetStatefulSets 获取 StatefulSet 列表
func (a *WorkloadsActionsCreator) GetStatefulSets(ctx context.Context) error {
	start := time.Now()
	list, err := a.svc.GetStatefulSets(ctx, "")
	if err != nil {
		return a.fail(models.KindStatefulSet, err)
	}
	a.store.SetStatefulSets(list.Items)
	logger.Debug("获取StatefulSet完成: count=%d, cost=%s", len(list.Items), time.Since(start))
	return nil
}

// FetchAll 并发获取全部工作负载；单个失败不会取消其他请求，返回第一个错误
func (a *WorkloadsActionsCreator) FetchAll(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return a.GetDeployments(ctx) })
	g.Go(func() error { return a.GetReplicaSets(ctx) })
	g.Go(func() error { return a.GetDaemonSets(ctx) })
	g.Go(func() error { return a.GetStatefulSets(ctx) })
	return g.Wait()
}

func (a *WorkloadsActionsCreator) fail(kind models.ResourceKind, err error) error {
	logger.Error("获取工作负载失败", "kind", kind, "error", err)
	a.store.SetError(kind, err)
	return fmt.Errorf("获取 %s 失败: %w", kind, err)
}

// PodsActionsCreator 获取 Pod 并写入 PodsStore
type PodsActionsCreator struct {
	svc   k8s.ResourceService
	store *store.PodsStore
}

// NewPodsActionsCreator 创建 Pod action creator
func NewPodsActionsCreator(svc k8s.ResourceService, s *store.PodsStore) *PodsActionsCreator {
	return &PodsActionsCreator{svc: svc, store: s}
}

// GetPods 获取 Pod 列表，labelSelector 为空时获取全部
func (a *PodsActionsCreator) GetPods(ctx context.Context, labelSelector string) error {
	list, err := a.svc.GetPods(ctx, labelSelector)
	if err != nil {
		logger.Error("获取Pod失败", "selector", labelSelector, "error", err)
		a.store.SetError(err)
		return fmt.Errorf("获取 %s 失败: %w", models.KindPod, err)
	}
	a.store.SetPods(list.Items)
	logger.Debug("获取Pod完成: selector=%q, count=%d", labelSelector, len(list.Items))
	return nil
}

// ServicesActionsCreator 获取 Service 并写入 ServicesStore
type ServicesActionsCreator struct {
	svc   k8s.ResourceService
	store *store.ServicesStore
}

// NewServicesActionsCreator 创建 Service action creator
func NewServicesActionsCreator(svc k8s.ResourceService, s *store.ServicesStore) *ServicesActionsCreator {
	return &ServicesActionsCreator{svc: svc, store: s}
}

// GetServices 获取 Service 列表
func (a *ServicesActionsCreator) GetServices(ctx context.Context, labelSelector string) error {
	list, err := a.svc.GetServices(ctx, labelSelector)
	if err != nil {
		logger.Error("获取Service失败", "selector", labelSelector, "error", err)
		a.store.SetError(err)
		return fmt.Errorf("获取 %s 失败: %w", models.KindService, err)
	}
	a.store.SetServices(list.Items)
	return nil
}

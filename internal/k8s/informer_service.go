package k8s

import (
	"context"
	"fmt"
	"sort"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// informerService 从本地 Informer 缓存读取资源（不触发远端 List）
type informerService struct {
	mgr         *ClusterInformerManager
	rt          *ClusterRuntime
	syncTimeout time.Duration
}

var _ ResourceService = (*informerService)(nil)

func (s *informerService) ready(ctx context.Context) error {
	timeout := s.syncTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if !s.mgr.waitForSync(wctx, s.rt) {
		return fmt.Errorf("informer 缓存尚未就绪")
	}
	return nil
}

func (s *informerService) GetPods(ctx context.Context, labelSelector string) (*corev1.PodList, error) {
	sel, err := ParseSelector(labelSelector)
	if err != nil {
		return nil, err
	}
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	items, err := s.rt.factory.Core().V1().Pods().Lister().List(sel)
	if err != nil {
		return nil, fmt.Errorf("读取缓存 pods 失败: %w", err)
	}
	sortByNamespaceName(items)
	list := &corev1.PodList{Items: make([]corev1.Pod, 0, len(items))}
	for _, it := range items {
		list.Items = append(list.Items, *it)
	}
	return list, nil
}

func (s *informerService) GetDeployments(ctx context.Context, labelSelector string) (*appsv1.DeploymentList, error) {
	sel, err := ParseSelector(labelSelector)
	if err != nil {
		return nil, err
	}
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	items, err := s.rt.factory.Apps().V1().Deployments().Lister().List(sel)
	if err != nil {
		return nil, fmt.Errorf("读取缓存 deployments 失败: %w", err)
	}
	sortByNamespaceName(items)
	list := &appsv1.DeploymentList{Items: make([]appsv1.Deployment, 0, len(items))}
	for _, it := range items {
		list.Items = append(list.Items, *it)
	}
	return list, nil
}

func (s *informerService) GetReplicaSets(ctx context.Context, labelSelector string) (*appsv1.ReplicaSetList, error) {
	sel, err := ParseSelector(labelSelector)
	if err != nil {
		return nil, err
	}
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	items, err := s.rt.factory.Apps().V1().ReplicaSets().Lister().List(sel)
	if err != nil {
		return nil, fmt.Errorf("读取缓存 replicasets 失败: %w", err)
	}
	sortByNamespaceName(items)
	list := &appsv1.ReplicaSetList{Items: make([]appsv1.ReplicaSet, 0, len(items))}
	for _, it := range items {
		list.Items = append(list.Items, *it)
	}
	return list, nil
}

func (s *informerService) GetServices(ctx context.Context, labelSelector string) (*corev1.ServiceList, error) {
	sel, err := ParseSelector(labelSelector)
	if err != nil {
		return nil, err
	}
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	items, err := s.rt.factory.Core().V1().Services().Lister().List(sel)
	if err != nil {
		return nil, fmt.Errorf("读取缓存 services 失败: %w", err)
	}
	sortByNamespaceName(items)
	list := &corev1.ServiceList{Items: make([]corev1.Service, 0, len(items))}
	for _, it := range items {
		list.Items = append(list.Items, *it)
	}
	return list, nil
}

func (s *informerService) GetDaemonSets(ctx context.Context, labelSelector string) (*appsv1.DaemonSetList, error) {
	sel, err := ParseSelector(labelSelector)
	if err != nil {
		return nil, err
	}
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	items, err := s.rt.factory.Apps().V1().DaemonSets().Lister().List(sel)
	if err != nil {
		return nil, fmt.Errorf("读取缓存 daemonsets 失败: %w", err)
	}
	sortByNamespaceName(items)
	list := &appsv1.DaemonSetList{Items: make([]appsv1.DaemonSet, 0, len(items))}
	for _, it := range items {
		list.Items = append(list.Items, *it)
	}
	return list, nil
}

func (s *informerService) GetStatefulSets(ctx context.Context, labelSelector string) (*appsv1.StatefulSetList, error) {
	sel, err := ParseSelector(labelSelector)
	if err != nil {
		return nil, err
	}
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	items, err := s.rt.factory.Apps().V1().StatefulSets().Lister().List(sel)
	if err != nil {
		return nil, fmt.Errorf("读取缓存 statefulsets 失败: %w", err)
	}
	sortByNamespaceName(items)
	list := &appsv1.StatefulSetList{Items: make([]appsv1.StatefulSet, 0, len(items))}
	for _, it := range items {
		list.Items = append(list.Items, *it)
	}
	return list, nil
}

// sortByNamespaceName 按命名空间、名称排序；lister 返回缓存 map 顺序，API Server 的 List 按此顺序返回
func sortByNamespaceName[T metav1.Object](items []T) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].GetNamespace() != items[j].GetNamespace() {
			return items[i].GetNamespace() < items[j].GetNamespace()
		}
		return items[i].GetName() < items[j].GetName()
	})
}

package k8s

import (
	"context"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/client-go/kubernetes"
)

// ResourceService 面板读取 Kubernetes 资源的统一接口
// labelSelector 为空表示不过滤
type ResourceService interface {
	GetPods(ctx context.Context, labelSelector string) (*corev1.PodList, error)
	GetDeployments(ctx context.Context, labelSelector string) (*appsv1.DeploymentList, error)
	GetReplicaSets(ctx context.Context, labelSelector string) (*appsv1.ReplicaSetList, error)
	GetServices(ctx context.Context, labelSelector string) (*corev1.ServiceList, error)
	GetDaemonSets(ctx context.Context, labelSelector string) (*appsv1.DaemonSetList, error)
	GetStatefulSets(ctx context.Context, labelSelector string) (*appsv1.StatefulSetList, error)
}

// ParseSelector 解析 label 选择器，空字符串返回 labels.Everything()
func ParseSelector(labelSelector string) (labels.Selector, error) {
	if labelSelector == "" {
		return labels.Everything(), nil
	}
	sel, err := labels.Parse(labelSelector)
	if err != nil {
		return nil, fmt.Errorf("无效的 label 选择器 %q: %w", labelSelector, err)
	}
	return sel, nil
}

// ClientService 直接调用 API Server 的实现
type ClientService struct {
	clientset kubernetes.Interface
	namespace string
}

var _ ResourceService = (*ClientService)(nil)

// NewClientService 创建直连实现，namespace 为空表示所有命名空间
func NewClientService(clientset kubernetes.Interface, namespace string) *ClientService {
	return &ClientService{clientset: clientset, namespace: namespace}
}

func (s *ClientService) listOptions(labelSelector string) (metav1.ListOptions, error) {
	if _, err := ParseSelector(labelSelector); err != nil {
		return metav1.ListOptions{}, err
	}
	return metav1.ListOptions{LabelSelector: labelSelector}, nil
}

// GetPods 获取 Pod 列表
func (s *ClientService) GetPods(ctx context.Context, labelSelector string) (*corev1.PodList, error) {
	opts, err := s.listOptions(labelSelector)
	if err != nil {
		return nil, err
	}
	list, err := s.clientset.CoreV1().Pods(s.namespace).List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("获取Pod列表失败: %w", err)
	}
	return list, nil
}

// GetDeployments 获取 Deployment 列表
func (s *ClientService) GetDeployments(ctx context.Context, labelSelector string) (*appsv1.DeploymentList, error) {
	opts, err := s.listOptions(labelSelector)
	if err != nil {
		return nil, err
	}
	list, err := s.clientset.AppsV1().Deployments(s.namespace).List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("获取Deployment列表失败: %w", err)
	}
	return list, nil
}

// GetReplicaSets 获取 ReplicaSet 列表
func (s *ClientService) GetReplicaSets(ctx context.Context, labelSelector string) (*appsv1.ReplicaSetList, error) {
	opts, err := s.listOptions(labelSelector)
	if err != nil {
		return nil, err
	}
	list, err := s.clientset.AppsV1().ReplicaSets(s.namespace).List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("获取ReplicaSet列表失败: %w", err)
	}
	return list, nil
}

// GetServices 获取 Service 列表
func (s *ClientService) GetServices(ctx context.Context, labelSelector string) (*corev1.ServiceList, error) {
	opts, err := s.listOptions(labelSelector)
	if err != nil {
		return nil, err
	}
	list, err := s.clientset.CoreV1().Services(s.namespace).List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("获取Service列表失败: %w", err)
	}
	return list, nil
}

// GetDaemonSets 获取 DaemonSet 列表
func (s *ClientService) GetDaemonSets(ctx context.Context, labelSelector string) (*appsv1.DaemonSetList, error) {
	opts, err := s.listOptions(labelSelector)
	if err != nil {
		return nil, err
	}
	list, err := s.clientset.AppsV1().DaemonSets(s.namespace).List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("获取DaemonSet列表失败: %w", err)
	}
	return list, nil
}

// GetStatefulSets 获取 StatefulSet 列表
func (s *ClientService) GetStatefulSets(ctx context.Context, labelSelector string) (*appsv1.StatefulSetList, error) {
	opts, err := s.listOptions(labelSelector)
	if err != nil {
		return nil, err
	}
	list, err := s.clientset.AppsV1().StatefulSets(s.namespace).List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("获取StatefulSet列表失败: %w", err)
	}
	return list, nil
}

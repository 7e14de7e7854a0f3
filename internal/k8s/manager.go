package k8s

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/clay-wangzhi/kubepolaris-workloads/internal/models"
	"github.com/clay-wangzhi/kubepolaris-workloads/internal/services"
	"github.com/clay-wangzhi/kubepolaris-workloads/pkg/logger"

	"k8s.io/client-go/informers"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/cache"
)

// ClientFactory 根据集群记录创建 clientset
type ClientFactory func(cluster *models.Cluster) (kubernetes.Interface, error)

// DefaultClientFactory 复用 services 中的认证/容错逻辑
func DefaultClientFactory(cluster *models.Cluster) (kubernetes.Interface, error) {
	kc, err := services.NewK8sClientForCluster(cluster)
	if err != nil {
		return nil, err
	}
	return kc.GetClientset(), nil
}

// ClusterRuntime 单个集群的 informer 运行时
type ClusterRuntime struct {
	clientset kubernetes.Interface
	factory   informers.SharedInformerFactory
	namespace string

	synced   atomic.Bool
	syncedCh chan struct{}

	stopCh   chan struct{}
	stopOnce sync.Once
}

// Clientset 返回集群 clientset
func (rt *ClusterRuntime) Clientset() kubernetes.Interface {
	return rt.clientset
}

func (rt *ClusterRuntime) stop() {
	rt.stopOnce.Do(func() {
		close(rt.stopCh)
	})
}

// watchSync 每个运行时只启动一次，同步完成后关闭 syncedCh；停止时随 stopCh 退出
func (rt *ClusterRuntime) watchSync() {
	if cache.WaitForCacheSync(rt.stopCh, rt.syncedFuncs()...) {
		rt.synced.Store(true)
		close(rt.syncedCh)
	}
}

func (rt *ClusterRuntime) syncedFuncs() []cache.InformerSynced {
	return []cache.InformerSynced{
		rt.factory.Core().V1().Pods().Informer().HasSynced,
		rt.factory.Core().V1().Services().Informer().HasSynced,
		rt.factory.Apps().V1().Deployments().Informer().HasSynced,
		rt.factory.Apps().V1().ReplicaSets().Informer().HasSynced,
		rt.factory.Apps().V1().StatefulSets().Informer().HasSynced,
		rt.factory.Apps().V1().DaemonSets().Informer().HasSynced,
	}
}

// ClusterInformerManager 统一管理各集群的 Informer 生命周期与缓存访问
type ClusterInformerManager struct {
	mu            sync.RWMutex
	clusters      map[uint]*ClusterRuntime
	clientFactory ClientFactory
}

// NewClusterInformerManager 创建管理器，clientFactory 为空时使用默认实现
func NewClusterInformerManager(clientFactory ClientFactory) *ClusterInformerManager {
	if clientFactory == nil {
		clientFactory = DefaultClientFactory
	}
	return &ClusterInformerManager{
		clusters:      make(map[uint]*ClusterRuntime),
		clientFactory: clientFactory,
	}
}

// EnsureForCluster 确保指定集群的 informer 已创建并启动
func (m *ClusterInformerManager) EnsureForCluster(cluster *models.Cluster) (*ClusterRuntime, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rt, ok := m.clusters[cluster.ID]; ok {
		return rt, nil
	}

	clientset, err := m.clientFactory(cluster)
	if err != nil {
		return nil, fmt.Errorf("为集群创建客户端失败: %w", err)
	}

	// resync 为 0 表示关闭周期性全量 Resync，降低压力
	factory := informers.NewSharedInformerFactoryWithOptions(clientset, 0, informers.WithNamespace(cluster.Namespace))

	rt := &ClusterRuntime{
		clientset: clientset,
		factory:   factory,
		namespace: cluster.Namespace,
		syncedCh:  make(chan struct{}),
		stopCh:    make(chan struct{}),
	}

	// 预创建面板需要的 informer
	_ = factory.Core().V1().Pods().Informer()
	_ = factory.Core().V1().Services().Informer()
	_ = factory.Apps().V1().Deployments().Informer()
	_ = factory.Apps().V1().ReplicaSets().Informer()
	_ = factory.Apps().V1().StatefulSets().Informer()
	_ = factory.Apps().V1().DaemonSets().Informer()

	factory.Start(rt.stopCh)
	go rt.watchSync()

	m.clusters[cluster.ID] = rt
	logger.Info("集群 informer 已启动", "clusterID", cluster.ID, "namespace", cluster.Namespace)
	return rt, nil
}

// waitForSync 等待本集群的缓存同步就绪
func (m *ClusterInformerManager) waitForSync(ctx context.Context, rt *ClusterRuntime) bool {
	if rt.synced.Load() {
		return true
	}
	select {
	case <-rt.syncedCh:
		return true
	case <-rt.stopCh:
		return false
	case <-ctx.Done():
		return false
	}
}

// EnsureAndWait 确保指定集群的 informer 启动并等待缓存同步
func (m *ClusterInformerManager) EnsureAndWait(ctx context.Context, cluster *models.Cluster, timeout time.Duration) (*ClusterRuntime, error) {
	rt, err := m.EnsureForCluster(cluster)
	if err != nil {
		return nil, err
	}
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if !m.waitForSync(wctx, rt) {
		return nil, fmt.Errorf("informer 缓存尚未就绪")
	}
	return rt, nil
}

// Resources 返回基于 informer 缓存的 ResourceService
func (m *ClusterInformerManager) Resources(cluster *models.Cluster, syncTimeout time.Duration) (ResourceService, error) {
	rt, err := m.EnsureForCluster(cluster)
	if err != nil {
		return nil, err
	}
	return &informerService{mgr: m, rt: rt, syncTimeout: syncTimeout}, nil
}

// StopForCluster 停止指定集群的 informer（删除集群时调用）
func (m *ClusterInformerManager) StopForCluster(clusterID uint) {
	m.mu.Lock()
	rt, ok := m.clusters[clusterID]
	if ok {
		delete(m.clusters, clusterID)
	}
	m.mu.Unlock()

	if ok && rt != nil {
		rt.stop()
		logger.Info("集群 informer 已停止", "clusterID", clusterID)
	}
}

// Stop 关闭所有集群的 informer（应用退出时调用）
func (m *ClusterInformerManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, rt := range m.clusters {
		rt.stop()
		delete(m.clusters, id)
	}
}

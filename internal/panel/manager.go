package panel

import (
	"context"
	"fmt"
	"sync"

	"github.com/clay-wangzhi/kubepolaris-workloads/internal/config"
	"github.com/clay-wangzhi/kubepolaris-workloads/internal/k8s"
	"github.com/clay-wangzhi/kubepolaris-workloads/internal/models"
	"github.com/clay-wangzhi/kubepolaris-workloads/pkg/logger"
)

// ClusterGetter 集群注册表查询
type ClusterGetter interface {
	GetCluster(id uint) (*models.Cluster, error)
}

type entry struct {
	panel  *Panel
	cancel context.CancelFunc
}

// Manager 按集群 ID 缓存面板，首次访问时创建
type Manager struct {
	mu     sync.Mutex
	panels map[uint]*entry

	clusters      ClusterGetter
	informers     *k8s.ClusterInformerManager
	clientFactory k8s.ClientFactory
	cfg           *config.Config
}

// NewManager 创建面板管理器，clientFactory 为空时使用默认实现
func NewManager(clusters ClusterGetter, informers *k8s.ClusterInformerManager, clientFactory k8s.ClientFactory, cfg *config.Config) *Manager {
	if clientFactory == nil {
		clientFactory = k8s.DefaultClientFactory
	}
	return &Manager{
		panels:        make(map[uint]*entry),
		clusters:      clusters,
		informers:     informers,
		clientFactory: clientFactory,
		cfg:           cfg,
	}
}

// Get 返回集群的面板，不存在时创建
func (m *Manager) Get(clusterID uint) (*Panel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.panels[clusterID]; ok {
		return e.panel, nil
	}

	cluster, err := m.clusters.GetCluster(clusterID)
	if err != nil {
		return nil, err
	}

	svc, err := m.resources(cluster)
	if err != nil {
		return nil, err
	}

	p := New(cluster.ID, svc, Options{
		DocsURL:        m.cfg.Panel.DocsURL,
		RequestTimeout: m.cfg.K8s.RequestTimeout,
	})
	ctx, cancel := context.WithCancel(context.Background())
	if m.cfg.Panel.RefreshInterval > 0 {
		go p.AutoRefresh(ctx, m.cfg.Panel.RefreshInterval)
	}
	m.panels[clusterID] = &entry{panel: p, cancel: cancel}

	logger.Info("创建工作负载面板: cluster=%s, informer=%v", cluster.Name, m.cfg.K8s.UseInformer)
	return p, nil
}

func (m *Manager) resources(cluster *models.Cluster) (k8s.ResourceService, error) {
	scoped := *cluster
	if scoped.Namespace == "" {
		scoped.Namespace = m.cfg.K8s.DefaultNamespace
	}

	if m.cfg.K8s.UseInformer && m.informers != nil {
		return m.informers.Resources(&scoped, m.cfg.K8s.SyncTimeout)
	}

	clientset, err := m.clientFactory(&scoped)
	if err != nil {
		return nil, fmt.Errorf("为集群创建客户端失败: %w", err)
	}
	return k8s.NewClientService(clientset, scoped.Namespace), nil
}

// Remove 丢弃集群面板并停止其 informer
func (m *Manager) Remove(clusterID uint) {
	m.mu.Lock()
	e, ok := m.panels[clusterID]
	delete(m.panels, clusterID)
	m.mu.Unlock()

	if ok {
		e.cancel()
	}
	if m.informers != nil {
		m.informers.StopForCluster(clusterID)
	}
}

// Stop 关闭全部面板（应用退出时调用）
func (m *Manager) Stop() {
	m.mu.Lock()
	for id, e := range m.panels {
		e.cancel()
		delete(m.panels, id)
	}
	m.mu.Unlock()

	if m.informers != nil {
		m.informers.Stop()
	}
}

package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/clay-wangzhi/kubepolaris-workloads/internal/models"
	"github.com/clay-wangzhi/kubepolaris-workloads/pkg/logger"

	"gorm.io/gorm"
)

// ErrClusterNotFound 集群不存在
var ErrClusterNotFound = errors.New("集群不存在")

// ClusterService 集群服务
type ClusterService struct {
	db *gorm.DB
}

// NewClusterService 创建集群服务
func NewClusterService(db *gorm.DB) *ClusterService {
	return &ClusterService{db: db}
}

// CreateCluster 创建集群
func (s *ClusterService) CreateCluster(cluster *models.Cluster) error {
	if cluster.Name == "" {
		return fmt.Errorf("集群名称不能为空")
	}
	if cluster.KubeconfigEnc == "" && (cluster.APIServer == "" || cluster.SATokenEnc == "") {
		return fmt.Errorf("需要提供 kubeconfig 或 APIServer+Token")
	}

	now := time.Now()
	cluster.CreatedAt = now
	cluster.UpdatedAt = now
	if cluster.Status == "" {
		cluster.Status = models.ClusterStatusUnknown
	}

	if err := s.db.Create(cluster).Error; err != nil {
		logger.Error("创建集群失败", "error", err)
		return fmt.Errorf("创建集群失败: %w", err)
	}

	logger.Info("集群创建成功", "id", cluster.ID, "name", cluster.Name)
	return nil
}

// GetCluster 获取单个集群
func (s *ClusterService) GetCluster(id uint) (*models.Cluster, error) {
	var cluster models.Cluster
	if err := s.db.First(&cluster, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrClusterNotFound, id)
		}
		return nil, fmt.Errorf("获取集群失败: %w", err)
	}
	return &cluster, nil
}

// GetAllClusters 获取所有集群
func (s *ClusterService) GetAllClusters() ([]*models.Cluster, error) {
	var clusters []*models.Cluster
	if err := s.db.Find(&clusters).Error; err != nil {
		logger.Error("获取集群列表失败", "error", err)
		return nil, fmt.Errorf("获取集群列表失败: %w", err)
	}
	return clusters, nil
}

// UpdateClusterStatus 更新集群状态
func (s *ClusterService) UpdateClusterStatus(id uint, status string, version string) error {
	result := s.db.Model(&models.Cluster{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     status,
		"version":    version,
		"updated_at": time.Now(),
	})

	if result.Error != nil {
		return fmt.Errorf("更新集群状态失败: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrClusterNotFound, id)
	}

	return nil
}

// DeleteCluster 删除集群
func (s *ClusterService) DeleteCluster(id uint) error {
	result := s.db.Unscoped().Delete(&models.Cluster{}, id)
	if result.Error != nil {
		return fmt.Errorf("删除集群失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrClusterNotFound, id)
	}

	logger.Info("集群删除成功", "id", id)
	return nil
}

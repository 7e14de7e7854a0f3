package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/clay-wangzhi/kubepolaris-workloads/internal/models"
	"github.com/clay-wangzhi/kubepolaris-workloads/internal/panel"
	"github.com/clay-wangzhi/kubepolaris-workloads/internal/services"
	"github.com/clay-wangzhi/kubepolaris-workloads/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ClusterProbe 测试集群连接，返回版本与 API Server 地址
type ClusterProbe func(cluster *models.Cluster) (version string, apiServer string, err error)

// DefaultClusterProbe 通过 discovery 获取集群版本
func DefaultClusterProbe(cluster *models.Cluster) (string, string, error) {
	kc, err := services.NewK8sClientForCluster(cluster)
	if err != nil {
		return "", "", err
	}
	version, err := kc.ServerVersion()
	if err != nil {
		return "", "", err
	}
	apiServer := cluster.APIServer
	if apiServer == "" && kc.GetRestConfig() != nil {
		apiServer = kc.GetRestConfig().Host
	}
	return version, apiServer, nil
}

// ClusterHandler 集群处理器
type ClusterHandler struct {
	clusterService *services.ClusterService
	panels         *panel.Manager
	probe          ClusterProbe
}

// NewClusterHandler 创建集群处理器，probe 为空时使用默认实现
func NewClusterHandler(clusterService *services.ClusterService, panels *panel.Manager, probe ClusterProbe) *ClusterHandler {
	if probe == nil {
		probe = DefaultClusterProbe
	}
	return &ClusterHandler{
		clusterService: clusterService,
		panels:         panels,
		probe:          probe,
	}
}

// parseClusterID 解析路径中的集群ID，失败时直接写入 400 响应
func parseClusterID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("clusterID"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的集群ID",
			"data":    nil,
		})
		return 0, false
	}
	return uint(id), true
}

func clusterData(cluster *models.Cluster) gin.H {
	return gin.H{
		"id":        cluster.ID,
		"name":      cluster.Name,
		"apiServer": cluster.APIServer,
		"namespace": cluster.Namespace,
		"version":   cluster.Version,
		"status":    cluster.Status,
		"createdAt": cluster.CreatedAt.Format("2006-01-02T15:04:05Z"),
		"updatedAt": cluster.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// GetClusters 获取集群列表
func (h *ClusterHandler) GetClusters(c *gin.Context) {
	clusters, err := h.clusterService.GetAllClusters()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "获取集群列表失败: " + err.Error(),
			"data":    nil,
		})
		return
	}

	items := make([]gin.H, 0, len(clusters))
	for _, cluster := range clusters {
		items = append(items, clusterData(cluster))
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "获取成功",
		"data": gin.H{
			"items": items,
			"total": len(items),
		},
	})
}

// ImportCluster 导入集群
func (h *ClusterHandler) ImportCluster(c *gin.Context) {
	var req struct {
		Name       string `json:"name" binding:"required"`
		ApiServer  string `json:"apiServer"`
		Kubeconfig string `json:"kubeconfig"`
		Token      string `json:"token"`
		CaCert     string `json:"caCert"`
		Namespace  string `json:"namespace"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "请求参数错误: " + err.Error(),
			"data":    nil,
		})
		return
	}

	logger.Info("导入集群: %s, API Server: %s", req.Name, req.ApiServer)

	if req.Kubeconfig == "" && (req.ApiServer == "" || req.Token == "") {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "请提供kubeconfig或者API Server地址和访问令牌",
			"data":    nil,
		})
		return
	}

	cluster := &models.Cluster{
		Name:          req.Name,
		APIServer:     req.ApiServer,
		KubeconfigEnc: req.Kubeconfig,
		SATokenEnc:    req.Token,
		CAEnc:         req.CaCert,
		Namespace:     req.Namespace,
	}

	version, apiServer, err := h.probe(cluster)
	if err != nil {
		logger.Error("连接测试失败", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": fmt.Sprintf("连接测试失败: %v", err),
			"data":    nil,
		})
		return
	}
	cluster.Version = version
	cluster.APIServer = apiServer
	cluster.Status = models.ClusterStatusConnected

	if err := h.clusterService.CreateCluster(cluster); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "保存集群信息失败: " + err.Error(),
			"data":    nil,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "集群导入成功",
		"data":    clusterData(cluster),
	})
}

// GetCluster 获取集群详情
func (h *ClusterHandler) GetCluster(c *gin.Context) {
	id, ok := parseClusterID(c)
	if !ok {
		return
	}

	cluster, err := h.clusterService.GetCluster(id)
	if err != nil {
		writeClusterError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "获取成功",
		"data":    clusterData(cluster),
	})
}

// DeleteCluster 删除集群，同时丢弃其面板并停止 informer
func (h *ClusterHandler) DeleteCluster(c *gin.Context) {
	id, ok := parseClusterID(c)
	if !ok {
		return
	}

	if err := h.clusterService.DeleteCluster(id); err != nil {
		writeClusterError(c, err)
		return
	}
	if h.panels != nil {
		h.panels.Remove(id)
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "删除成功",
		"data":    nil,
	})
}

func writeClusterError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrClusterNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    404,
			"message": "集群不存在",
			"data":    nil,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    500,
		"message": err.Error(),
		"data":    nil,
	})
}

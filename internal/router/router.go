package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/clay-wangzhi/kubepolaris-workloads/internal/config"
	"github.com/clay-wangzhi/kubepolaris-workloads/internal/handlers"
	"github.com/clay-wangzhi/kubepolaris-workloads/internal/k8s"
	"github.com/clay-wangzhi/kubepolaris-workloads/internal/middleware"
	"github.com/clay-wangzhi/kubepolaris-workloads/internal/panel"
	"github.com/clay-wangzhi/kubepolaris-workloads/internal/services"
	"github.com/clay-wangzhi/kubepolaris-workloads/pkg/logger"
)

// Options 可替换的外部依赖，为空时使用默认实现
type Options struct {
	ClientFactory k8s.ClientFactory
	ClusterProbe  handlers.ClusterProbe
}

// Setup 构建路由，返回的面板管理器需要在退出时 Stop
func Setup(db *gorm.DB, cfg *config.Config, opts Options) (*gin.Engine, *panel.Manager) {
	r := gin.New()

	r.Use(
		gin.Recovery(),
		gin.Logger(),
		middleware.CORS(),
		// 事件流走 WebSocket，不能被压缩
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{".*/workloads/events$"})),
	)

	// Health endpoints：liveness 与 readiness
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ready": true})
	})

	clusterSvc := services.NewClusterService(db)

	var k8sMgr *k8s.ClusterInformerManager
	if cfg.K8s.UseInformer {
		k8sMgr = k8s.NewClusterInformerManager(opts.ClientFactory)
		// 预热所有已存在集群的 Informer（后台执行，不阻塞启动）
		go func() {
			clusters, err := clusterSvc.GetAllClusters()
			if err != nil {
				logger.Error("预热 informer 失败", "error", err)
				return
			}
			for _, cl := range clusters {
				scoped := *cl
				if scoped.Namespace == "" {
					scoped.Namespace = cfg.K8s.DefaultNamespace
				}
				if _, err := k8sMgr.EnsureForCluster(&scoped); err != nil {
					logger.Error("初始化集群 informer 失败", "cluster", cl.Name, "error", err)
				}
			}
		}()
	}
	panels := panel.NewManager(clusterSvc, k8sMgr, opts.ClientFactory, cfg)

	api := r.Group("/api/v1")
	protected := api.Group("")
	protected.Use(middleware.AuthRequired(cfg.JWT.Secret), middleware.OperationAudit(nil))
	{
		clusterHandler := handlers.NewClusterHandler(clusterSvc, panels, opts.ClusterProbe)
		workloadsHandler := handlers.NewWorkloadsHandler(panels)

		clusters := protected.Group("/clusters")
		{
			clusters.GET("", clusterHandler.GetClusters)
			clusters.POST("", clusterHandler.ImportCluster)

			cluster := clusters.Group("/:clusterID")
			{
				cluster.GET("", clusterHandler.GetCluster)
				cluster.DELETE("", clusterHandler.DeleteCluster)

				wl := cluster.Group("/workloads")
				{
					wl.GET("", workloadsHandler.GetWorkloads)
					wl.POST("/refresh", workloadsHandler.RefreshWorkloads)
					wl.GET("/services", workloadsHandler.GetServices)
					wl.GET("/filter", workloadsHandler.GetFilter)
					wl.PUT("/filter", workloadsHandler.UpdateFilter)
					wl.POST("/selection", workloadsHandler.SelectWorkload)
					wl.GET("/selection", workloadsHandler.GetSelection)
					wl.GET("/events", workloadsHandler.StreamEvents)
				}
			}
		}
	}

	return r, panels
}

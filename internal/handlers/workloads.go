package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/clay-wangzhi/kubepolaris-workloads/internal/filter"
	"github.com/clay-wangzhi/kubepolaris-workloads/internal/models"
	"github.com/clay-wangzhi/kubepolaris-workloads/internal/panel"
	"github.com/clay-wangzhi/kubepolaris-workloads/internal/store"
	"github.com/clay-wangzhi/kubepolaris-workloads/internal/workloads"
	"github.com/clay-wangzhi/kubepolaris-workloads/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	eventQueueSize = 64
	writeWait      = 10 * time.Second
)

// WorkloadsHandler 工作负载面板处理器
type WorkloadsHandler struct {
	panels   *panel.Manager
	now      func() time.Time
	upgrader websocket.Upgrader
}

// NewWorkloadsHandler 创建工作负载面板处理器
func NewWorkloadsHandler(panels *panel.Manager) *WorkloadsHandler {
	return &WorkloadsHandler{
		panels: panels,
		now:    time.Now,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *WorkloadsHandler) panelFor(c *gin.Context) (*panel.Panel, bool) {
	id, ok := parseClusterID(c)
	if !ok {
		return nil, false
	}
	p, err := h.panels.Get(id)
	if err != nil {
		logger.Error("获取工作负载面板失败", "clusterID", id, "error", err)
		writeClusterError(c, err)
		return nil, false
	}
	return p, true
}

// parseTypes 解析逗号分隔的表格标签
func parseTypes(raw []string) ([]models.WorkloadType, error) {
	types := make([]models.WorkloadType, 0, len(raw))
	for _, item := range raw {
		for _, s := range strings.Split(item, ",") {
			if strings.TrimSpace(s) == "" {
				continue
			}
			t, ok := models.ParseWorkloadType(s)
			if !ok {
				return nil, errors.New("未知的资源类型: " + s)
			}
			types = append(types, t)
		}
	}
	return types, nil
}

// GetWorkloads 获取工作负载透视视图；name/types 查询参数存在时更新过滤条件
// 过滤条件按集群共享，同一集群的所有查看者看到相同的过滤结果
func (h *WorkloadsHandler) GetWorkloads(c *gin.Context) {
	p, ok := h.panelFor(c)
	if !ok {
		return
	}

	if raw, exists := c.GetQueryArray("types"); exists {
		types, err := parseTypes(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": err.Error(),
				"data":    nil,
			})
			return
		}
		p.Filter.SetTypes(types)
	}
	if name, exists := c.GetQuery("name"); exists {
		p.Filter.SetName(name)
	}

	view := p.View(h.now())
	if view.Loading {
		if err := p.Refresh(c.Request.Context()); err != nil {
			logger.Warn("首次加载工作负载失败", "clusterID", p.ClusterID, "error", err)
		}
		view = p.View(h.now())
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "获取成功",
		"data":    view,
	})
}

// RefreshWorkloads 重新获取全部资源并返回视图，部分失败体现在视图 errors 中
func (h *WorkloadsHandler) RefreshWorkloads(c *gin.Context) {
	p, ok := h.panelFor(c)
	if !ok {
		return
	}

	message := "刷新成功"
	if err := p.Refresh(c.Request.Context()); err != nil {
		message = "部分资源获取失败: " + err.Error()
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": message,
		"data":    p.View(h.now()),
	})
}

// GetServices 获取 Service 列表
func (h *WorkloadsHandler) GetServices(c *gin.Context) {
	p, ok := h.panelFor(c)
	if !ok {
		return
	}

	if !p.Services.Snapshot().Loaded {
		if err := p.Refresh(c.Request.Context()); err != nil {
			logger.Warn("首次加载Service失败", "clusterID", p.ClusterID, "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "获取成功",
		"data":    p.ServicesView(h.now()),
	})
}

// GetFilter 获取当前过滤条件
func (h *WorkloadsHandler) GetFilter(c *gin.Context) {
	p, ok := h.panelFor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "获取成功",
		"data":    p.Filter.Snapshot(),
	})
}

// UpdateFilter 整体替换过滤条件
func (h *WorkloadsHandler) UpdateFilter(c *gin.Context) {
	p, ok := h.panelFor(c)
	if !ok {
		return
	}

	var req struct {
		Keyword string   `json:"keyword"`
		Types   []string `json:"types"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "请求参数错误: " + err.Error(),
			"data":    nil,
		})
		return
	}
	types, err := parseTypes(req.Types)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
			"data":    nil,
		})
		return
	}

	p.Filter.Apply(filter.State{Keyword: req.Keyword, Types: types})

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "更新成功",
		"data":    p.Filter.Snapshot(),
	})
}

// SelectWorkload 选中一行，返回 details 标签页
func (h *WorkloadsHandler) SelectWorkload(c *gin.Context) {
	p, ok := h.panelFor(c)
	if !ok {
		return
	}

	var req struct {
		Kind      string `json:"kind" binding:"required"`
		Namespace string `json:"namespace"`
		Name      string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "请求参数错误: " + err.Error(),
			"data":    nil,
		})
		return
	}
	kind, valid := models.ParseResourceKind(req.Kind)
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "不支持的资源类型: " + req.Kind,
			"data":    nil,
		})
		return
	}

	detail, err := p.Select(workloads.SelectionRef{Kind: kind, Namespace: req.Namespace, Name: req.Name}, h.now())
	if err != nil {
		h.writeDetailError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "选中成功",
		"data":    detail,
	})
}

// GetSelection 获取当前选中项指定标签页
func (h *WorkloadsHandler) GetSelection(c *gin.Context) {
	p, ok := h.panelFor(c)
	if !ok {
		return
	}

	detail, err := p.Detail(c.DefaultQuery("tab", workloads.TabDetails), h.now())
	if err != nil {
		h.writeDetailError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "获取成功",
		"data":    detail,
	})
}

func (h *WorkloadsHandler) writeDetailError(c *gin.Context, err error) {
	if errors.Is(err, workloads.ErrObjectNotFound) || errors.Is(err, panel.ErrNoSelection) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    404,
			"message": err.Error(),
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

// StreamEvents 通过 WebSocket 推送面板事件
func (h *WorkloadsHandler) StreamEvents(c *gin.Context) {
	p, ok := h.panelFor(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("WebSocket升级失败", "error", err)
		return
	}
	defer conn.Close()

	events := make(chan store.Event, eventQueueSize)
	unsubscribe := p.Emitter.SubscribeAll(func(ev store.Event) {
		select {
		case events <- ev:
		default:
			logger.Warn("事件队列已满，丢弃事件", "clusterID", p.ClusterID, "event", ev.Name)
		}
	})
	defer unsubscribe()

	logger.Info("事件流已连接: cluster=%d", p.ClusterID)

	// 读循环只用于感知客户端断开
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			logger.Info("事件流已断开: cluster=%d", p.ClusterID)
			return
		case ev := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				logger.Warn("推送事件失败", "clusterID", p.ClusterID, "error", err)
				return
			}
		}
	}
}

// Package panel 将 store、action creator、过滤器与选中状态组合为单个集群的工作负载面板
package panel

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/clay-wangzhi/kubepolaris-workloads/internal/actions"
	"github.com/clay-wangzhi/kubepolaris-workloads/internal/filter"
	"github.com/clay-wangzhi/kubepolaris-workloads/internal/k8s"
	"github.com/clay-wangzhi/kubepolaris-workloads/internal/store"
	"github.com/clay-wangzhi/kubepolaris-workloads/internal/workloads"
	"github.com/clay-wangzhi/kubepolaris-workloads/pkg/logger"
)

// ErrNoSelection 当前没有选中项
var ErrNoSelection = errors.New("未选中任何资源")

// Options 面板选项
type Options struct {
	DocsURL        string
	RequestTimeout time.Duration
}

// Panel 单个集群的工作负载面板
type Panel struct {
	ClusterID uint

	Emitter   *store.Emitter
	Workloads *store.WorkloadsStore
	Pods      *store.PodsStore
	Services  *store.ServicesStore
	Filter    *filter.Filter
	Selector  *workloads.Selector

	workloadsActions *actions.WorkloadsActionsCreator
	podsActions      *actions.PodsActionsCreator
	servicesActions  *actions.ServicesActionsCreator

	opts Options
}

// New 创建面板，所有组件共享同一个 Emitter
func New(clusterID uint, svc k8s.ResourceService, opts Options) *Panel {
	emitter := store.NewEmitter()
	p := &Panel{
		ClusterID: clusterID,
		Emitter:   emitter,
		Workloads: store.NewWorkloadsStore(emitter),
		Pods:      store.NewPodsStore(emitter),
		Services:  store.NewServicesStore(emitter),
		Filter:    filter.New(emitter),
		Selector:  workloads.NewSelector(emitter),
		opts:      opts,
	}
	p.workloadsActions = actions.NewWorkloadsActionsCreator(svc, p.Workloads)
	p.podsActions = actions.NewPodsActionsCreator(svc, p.Pods)
	p.servicesActions = actions.NewServicesActionsCreator(svc, p.Services)
	return p
}

// Refresh 并发获取工作负载、Pod 与 Service；失败会记录到各自的 store，返回第一个错误
func (p *Panel) Refresh(ctx context.Context) error {
	if p.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.RequestTimeout)
		defer cancel()
	}

	start := time.Now()
	var g errgroup.Group
	g.Go(func() error { return p.workloadsActions.FetchAll(ctx) })
	g.Go(func() error { return p.podsActions.GetPods(ctx, "") })
	g.Go(func() error { return p.servicesActions.GetServices(ctx, "") })
	err := g.Wait()

	logger.Info("刷新工作负载面板: cluster=%d, cost=%s", p.ClusterID, time.Since(start))
	return err
}

// AutoRefresh 按固定间隔刷新，直到 ctx 结束
func (p *Panel) AutoRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Refresh(ctx); err != nil {
				logger.Warn("自动刷新失败", "clusterID", p.ClusterID, "error", err)
			}
		}
	}
}

// View 构建当前透视视图
func (p *Panel) View(now time.Time) workloads.PivotView {
	return workloads.BuildPivot(workloads.PivotInput{
		Workloads: p.Workloads.Snapshot(),
		Pods:      p.Pods.Snapshot(),
		Filter:    p.Filter.Snapshot(),
		Now:       now,
		DocsURL:   p.opts.DocsURL,
	})
}

// ServicesView 构建 Service 列表视图，沿用名称过滤
func (p *Panel) ServicesView(now time.Time) workloads.ServicesView {
	return workloads.BuildServicesView(p.Services.Snapshot(), p.Filter.Snapshot().Keyword, now)
}

// Select 选中一行并返回 details 标签页
func (p *Panel) Select(ref workloads.SelectionRef, now time.Time) (workloads.DetailView, error) {
	pods := p.Pods.Snapshot()
	obj, err := workloads.FindObject(ref, p.Workloads.Snapshot(), pods, p.Services.Snapshot())
	if err != nil {
		return workloads.DetailView{}, err
	}
	sel := workloads.Selection{Kind: ref.Kind, Item: obj}
	p.Selector.Select(sel)
	return workloads.BuildDetailView(sel, workloads.TabDetails, pods.Pods, now)
}

// Detail 返回当前选中项指定标签页的内容
func (p *Panel) Detail(tab string, now time.Time) (workloads.DetailView, error) {
	sel, ok := p.Selector.Current()
	if !ok {
		return workloads.DetailView{}, ErrNoSelection
	}
	return workloads.BuildDetailView(sel, tab, p.Pods.Snapshot().Pods, now)
}

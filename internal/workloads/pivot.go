package workloads

import (
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"

	"github.com/clay-wangzhi/kubepolaris-workloads/internal/filter"
	"github.com/clay-wangzhi/kubepolaris-workloads/internal/models"
	"github.com/clay-wangzhi/kubepolaris-workloads/internal/store"
)

// NoWorkloadsTitle 零工作负载占位标题
const NoWorkloadsTitle = "no workloads"

// PivotInput 构建透视视图所需的全部输入
type PivotInput struct {
	Workloads store.WorkloadsState
	Pods      store.PodsState
	Filter    filter.State
	Now       time.Time
	DocsURL   string
}

// EmptyState 零工作负载占位
type EmptyState struct {
	Title   string `json:"title"`
	DocsURL string `json:"docsUrl"`
}

// FetchError 某类资源的获取失败
type FetchError struct {
	Kind    models.ResourceKind `json:"kind"`
	Message string              `json:"message"`
}

// PivotView 面板顶层视图
type PivotView struct {
	Loading bool         `json:"loading"`
	Filter  filter.State `json:"filter"`

	ShowDeployments  bool `json:"showDeployments"`
	ShowDaemonSets   bool `json:"showDaemonSets"`
	ShowStatefulSets bool `json:"showStatefulSets"`
	ShowPods         bool `json:"showPods"`

	Deployments  []DeploymentGroup `json:"deployments"`
	DaemonSets   []DaemonSetRow    `json:"daemonSets"`
	StatefulSets []StatefulSetRow  `json:"statefulSets"`
	OrphanPods   []PodRow          `json:"orphanPods"`

	Empty  *EmptyState  `json:"empty,omitempty"`
	Errors []FetchError `json:"errors,omitempty"`
}

var workloadKinds = []models.ResourceKind{
	models.KindDeployment,
	models.KindReplicaSet,
	models.KindDaemonSet,
	models.KindStatefulSet,
}

// BuildPivot 由 store 快照与过滤状态构建视图，每次数据刷新都全量重算
func BuildPivot(in PivotInput) PivotView {
	keyword := in.Filter.Keyword
	view := PivotView{
		Filter:           in.Filter,
		ShowDeployments:  in.Filter.ShowType(models.TypeDeployments),
		ShowDaemonSets:   in.Filter.ShowType(models.TypeDaemonSets),
		ShowStatefulSets: in.Filter.ShowType(models.TypeStatefulSets),
		ShowPods:         in.Filter.ShowType(models.TypePods),
	}

	loaded := in.Pods.Loaded
	for _, k := range workloadKinds {
		if !in.Workloads.Loaded[k] {
			loaded = false
		}
	}
	view.Loading = !loaded

	deployments := filter.ByName(in.Workloads.Deployments, func(d appsv1.Deployment) string { return d.Name }, keyword)
	replicaSets := filter.ByName(in.Workloads.ReplicaSets, func(rs appsv1.ReplicaSet) string { return rs.Name }, keyword)
	daemonSets := filter.ByName(in.Workloads.DaemonSets, func(ds appsv1.DaemonSet) string { return ds.Name }, keyword)
	statefulSets := filter.ByName(in.Workloads.StatefulSets, func(st appsv1.StatefulSet) string { return st.Name }, keyword)

	// 孤儿判定基于完整列表，名称过滤只作用于展示
	allOrphans := OrphanPods(in.Pods.Pods, in.Workloads)
	orphans := filter.ByName(allOrphans, func(p corev1.Pod) string { return p.Name }, keyword)

	// 类型过滤隐藏的表格不构建行
	if view.ShowDeployments {
		view.Deployments = BuildDeploymentGroups(deployments, replicaSets, in.Now)
	}
	if view.ShowDaemonSets {
		view.DaemonSets = BuildDaemonSetRows(daemonSets, in.Now)
	}
	if view.ShowStatefulSets {
		view.StatefulSets = BuildStatefulSetRows(statefulSets, in.Now)
	}
	if view.ShowPods {
		view.OrphanPods = BuildPodRows(orphans, in.Now)
	}

	if loaded && !in.Workloads.HasWorkloads() && len(allOrphans) == 0 {
		view.Empty = &EmptyState{Title: NoWorkloadsTitle, DocsURL: in.DocsURL}
	}

	view.Errors = collectErrors(in.Workloads, in.Pods)
	return view
}

func collectErrors(w store.WorkloadsState, p store.PodsState) []FetchError {
	var errs []FetchError
	for _, k := range workloadKinds {
		if msg, ok := w.Errors[k]; ok && msg != "" {
			errs = append(errs, FetchError{Kind: k, Message: msg})
		}
	}
	if p.Error != "" {
		errs = append(errs, FetchError{Kind: models.KindPod, Message: p.Error})
	}
	return errs
}

// ServicesView Service 列表视图
type ServicesView struct {
	Loading  bool         `json:"loading"`
	Services []ServiceRow `json:"services"`
	Error    string       `json:"error,omitempty"`
}

// BuildServicesView 构建 Service 列表，名称过滤与工作负载共用
func BuildServicesView(state store.ServicesState, keyword string, now time.Time) ServicesView {
	items := filter.ByName(state.Services, func(s corev1.Service) string { return s.Name }, keyword)
	return ServicesView{
		Loading:  !state.Loaded,
		Services: BuildServiceRows(items, now),
		Error:    state.Error,
	}
}

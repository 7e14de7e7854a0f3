package workloads

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/clay-wangzhi/kubepolaris-workloads/internal/models"
	"github.com/clay-wangzhi/kubepolaris-workloads/internal/store"
)

// ErrObjectNotFound 选中的对象不在 store 中
var ErrObjectNotFound = errors.New("对象不存在")

// 详情面板标签页
const (
	TabDetails = "details"
	TabLogs    = "logs"
	TabYAML    = "yaml"
)

// Tabs 详情面板全部标签页
var Tabs = []string{TabDetails, TabLogs, TabYAML}

// LogsComingSoon 日志标签页占位文本
const LogsComingSoon = "coming soon"

// SelectionRef 选中对象的引用
type SelectionRef struct {
	Kind      models.ResourceKind `json:"kind"`
	Namespace string              `json:"namespace"`
	Name      string              `json:"name"`
}

// Selection 选中事件载荷：类型标签 + 对象
type Selection struct {
	Kind models.ResourceKind `json:"kind"`
	Item runtime.Object      `json:"item"`
}

// Selector 保存当前选中项，变更时发出 SelectionChangedEvent
type Selector struct {
	mu      sync.RWMutex
	current *Selection
	emitter *store.Emitter
}

// NewSelector 创建 Selector
func NewSelector(emitter *store.Emitter) *Selector {
	return &Selector{emitter: emitter}
}

// Select 设置选中项并通知订阅者
func (s *Selector) Select(sel Selection) {
	s.mu.Lock()
	s.current = &sel
	s.mu.Unlock()

	if s.emitter != nil {
		ev := store.NewEvent(store.SelectionChangedEvent, sel.Kind)
		ev.Payload = sel
		s.emitter.Emit(ev)
	}
}

// Current 当前选中项
func (s *Selector) Current() (Selection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Selection{}, false
	}
	return *s.current, true
}

// Clear 清空选中项
func (s *Selector) Clear() {
	s.mu.Lock()
	had := s.current != nil
	s.current = nil
	s.mu.Unlock()

	if had && s.emitter != nil {
		s.emitter.Emit(store.NewEvent(store.SelectionChangedEvent, ""))
	}
}

// Subscribe 订阅选中变更
func (s *Selector) Subscribe(fn store.Handler) func() {
	return s.emitter.Subscribe(store.SelectionChangedEvent, fn)
}

// FindObject 在 store 快照中按类型/命名空间/名称查找对象
func FindObject(ref SelectionRef, w store.WorkloadsState, p store.PodsState, svc store.ServicesState) (runtime.Object, error) {
	match := func(m metav1.ObjectMeta) bool {
		return sameNamespace(m.Namespace, ref.Namespace) && m.Name == ref.Name
	}
	switch ref.Kind {
	case models.KindDeployment:
		for i := range w.Deployments {
			if match(w.Deployments[i].ObjectMeta) {
				return &w.Deployments[i], nil
			}
		}
	case models.KindReplicaSet:
		for i := range w.ReplicaSets {
			if match(w.ReplicaSets[i].ObjectMeta) {
				return &w.ReplicaSets[i], nil
			}
		}
	case models.KindDaemonSet:
		for i := range w.DaemonSets {
			if match(w.DaemonSets[i].ObjectMeta) {
				return &w.DaemonSets[i], nil
			}
		}
	case models.KindStatefulSet:
		for i := range w.StatefulSets {
			if match(w.StatefulSets[i].ObjectMeta) {
				return &w.StatefulSets[i], nil
			}
		}
	case models.KindPod, models.KindOrphanPod:
		for i := range p.Pods {
			if match(p.Pods[i].ObjectMeta) {
				return &p.Pods[i], nil
			}
		}
	case models.KindService:
		for i := range svc.Services {
			if match(svc.Services[i].ObjectMeta) {
				return &svc.Services[i], nil
			}
		}
	default:
		return nil, fmt.Errorf("不支持的资源类型: %s", ref.Kind)
	}
	return nil, fmt.Errorf("%w: %s %s/%s", ErrObjectNotFound, ref.Kind, ref.Namespace, ref.Name)
}

// DetailSummary 详情标签页内容
type DetailSummary struct {
	Name        string            `json:"name"`
	Namespace   string            `json:"namespace"`
	UID         string            `json:"uid"`
	Labels      map[string]string `json:"labels,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty"`
	Selector    string            `json:"selector,omitempty"`
	Images      []string          `json:"images,omitempty"`
	Pods        string            `json:"pods,omitempty"`
	Status      Status            `json:"status,omitempty"`
	Age         string            `json:"age"`
	Pipeline    PipelineInfo      `json:"pipeline"`
	OwnedPods   []PodRow          `json:"ownedPods,omitempty"`
}

// DetailView 选中对象的详情面板
type DetailView struct {
	Kind    models.ResourceKind `json:"kind"`
	Tab     string              `json:"tab"`
	Tabs    []string            `json:"tabs"`
	Details *DetailSummary      `json:"details,omitempty"`
	Logs    string              `json:"logs,omitempty"`
	YAML    string              `json:"yaml,omitempty"`
}

// BuildDetailView 构建某个标签页的详情视图，未知标签页回退到 details
func BuildDetailView(sel Selection, tab string, pods []corev1.Pod, now time.Time) (DetailView, error) {
	tab = strings.ToLower(strings.TrimSpace(tab))
	switch tab {
	case TabDetails, TabLogs, TabYAML:
	default:
		tab = TabDetails
	}

	view := DetailView{Kind: sel.Kind, Tab: tab, Tabs: Tabs}
	switch tab {
	case TabLogs:
		view.Logs = LogsComingSoon
	case TabYAML:
		out, err := ObjectYAML(sel.Item)
		if err != nil {
			return view, err
		}
		view.YAML = out
	default:
		summary, err := buildSummary(sel.Item, pods, now)
		if err != nil {
			return view, err
		}
		view.Details = summary
	}
	return view, nil
}

func buildSummary(obj runtime.Object, pods []corev1.Pod, now time.Time) (*DetailSummary, error) {
	var (
		meta     metav1.ObjectMeta
		selector *metav1.LabelSelector
		spec     corev1.PodSpec
		podsText string
		status   Status
	)
	switch o := obj.(type) {
	case *appsv1.Deployment:
		meta, selector, spec = o.ObjectMeta, o.Spec.Selector, o.Spec.Template.Spec
		podsText, status = replicaStatus(o.Status.AvailableReplicas, o.Status.Replicas)
	case *appsv1.ReplicaSet:
		meta, selector, spec = o.ObjectMeta, o.Spec.Selector, o.Spec.Template.Spec
		podsText, status = replicaStatus(o.Status.AvailableReplicas, o.Status.Replicas)
	case *appsv1.DaemonSet:
		meta, selector, spec = o.ObjectMeta, o.Spec.Selector, o.Spec.Template.Spec
		podsText, status = replicaStatus(o.Status.NumberAvailable, o.Status.DesiredNumberScheduled)
	case *appsv1.StatefulSet:
		meta, selector, spec = o.ObjectMeta, o.Spec.Selector, o.Spec.Template.Spec
		podsText, status = replicaStatus(o.Status.ReadyReplicas, o.Status.Replicas)
	case *corev1.Pod:
		row := buildPodRow(o, now)
		meta, spec = o.ObjectMeta, o.Spec
		podsText, status = row.Ready, row.Status
	case *corev1.Service:
		meta = o.ObjectMeta
		if len(o.Spec.Selector) > 0 {
			selector = &metav1.LabelSelector{MatchLabels: o.Spec.Selector}
		}
	default:
		return nil, fmt.Errorf("不支持的对象类型: %T", obj)
	}

	summary := &DetailSummary{
		Name:        meta.Name,
		Namespace:   meta.Namespace,
		UID:         string(meta.UID),
		Labels:      meta.Labels,
		Annotations: meta.Annotations,
		Images:      templateImages(spec),
		Pods:        podsText,
		Status:      status,
		Age:         FormatAge(meta.CreationTimestamp, now),
		Pipeline:    PipelineFromAnnotations(meta.Annotations),
	}

	if selector != nil {
		sel, err := metav1.LabelSelectorAsSelector(selector)
		if err != nil {
			return nil, fmt.Errorf("解析标签选择器失败: %w", err)
		}
		summary.Selector = sel.String()
		summary.OwnedPods = BuildPodRows(podsMatching(pods, meta.Namespace, sel), now)
	}
	return summary, nil
}

func podsMatching(pods []corev1.Pod, namespace string, sel labels.Selector) []corev1.Pod {
	out := make([]corev1.Pod, 0)
	if sel.Empty() {
		return out
	}
	for i := range pods {
		if sameNamespace(pods[i].Namespace, namespace) && sel.Matches(labels.Set(pods[i].Labels)) {
			out = append(out, pods[i])
		}
	}
	return out
}

// ObjectYAML 将对象序列化为 YAML，去掉 managedFields 并补全 apiVersion/kind
func ObjectYAML(obj runtime.Object) (string, error) {
	var clean runtime.Object
	switch o := obj.(type) {
	case *appsv1.Deployment:
		c := o.DeepCopy()
		c.ManagedFields = nil
		c.APIVersion, c.Kind = "apps/v1", "Deployment"
		clean = c
	case *appsv1.ReplicaSet:
		c := o.DeepCopy()
		c.ManagedFields = nil
		c.APIVersion, c.Kind = "apps/v1", "ReplicaSet"
		clean = c
	case *appsv1.DaemonSet:
		c := o.DeepCopy()
		c.ManagedFields = nil
		c.APIVersion, c.Kind = "apps/v1", "DaemonSet"
		clean = c
	case *appsv1.StatefulSet:
		c := o.DeepCopy()
		c.ManagedFields = nil
		c.APIVersion, c.Kind = "apps/v1", "StatefulSet"
		clean = c
	case *corev1.Pod:
		c := o.DeepCopy()
		c.ManagedFields = nil
		c.APIVersion, c.Kind = "v1", "Pod"
		clean = c
	case *corev1.Service:
		c := o.DeepCopy()
		c.ManagedFields = nil
		c.APIVersion, c.Kind = "v1", "Service"
		clean = c
	default:
		return "", fmt.Errorf("不支持的对象类型: %T", obj)
	}

	out, err := sigsyaml.Marshal(clean)
	if err != nil {
		return "", fmt.Errorf("转换YAML失败: %w", err)
	}
	return string(out), nil
}

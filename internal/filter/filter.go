package filter

import (
	"sort"
	"strings"
	"sync"

	"github.com/clay-wangzhi/kubepolaris-workloads/internal/models"
	"github.com/clay-wangzhi/kubepolaris-workloads/internal/store"
)

// Key 过滤器键
type Key string

const (
	KeywordKey       Key = "keyword"
	TypeSelectionKey Key = "typeSelection"
)

// State 过滤器状态快照
type State struct {
	Keyword string                `json:"keyword"`
	Types   []models.WorkloadType `json:"types"`
}

// ShowType 类型是否可见；未选择任何类型时全部可见
func (s State) ShowType(t models.WorkloadType) bool {
	if len(s.Types) == 0 {
		return true
	}
	for _, sel := range s.Types {
		if sel == t {
			return true
		}
	}
	return false
}

// MatchName 名称过滤：忽略首尾空白与大小写的子串匹配，空关键字匹配全部
func MatchName(name, keyword string) bool {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(keyword))
}

// ByName 按名称过滤任意列表
func ByName[T any](items []T, name func(T) string, keyword string) []T {
	if strings.TrimSpace(keyword) == "" {
		return items
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if MatchName(name(it), keyword) {
			out = append(out, it)
		}
	}
	return out
}

// Filter 过滤栏状态，变更时发出 FilterChangedEvent
type Filter struct {
	mu      sync.RWMutex
	keyword string
	types   map[models.WorkloadType]struct{}
	emitter *store.Emitter
}

// New 创建过滤器
func New(emitter *store.Emitter) *Filter {
	return &Filter{
		types:   make(map[models.WorkloadType]struct{}),
		emitter: emitter,
	}
}

// SetName 设置名称关键字
func (f *Filter) SetName(keyword string) {
	f.mu.Lock()
	changed := f.keyword != keyword
	f.keyword = keyword
	f.mu.Unlock()

	if changed {
		f.notify(KeywordKey)
	}
}

// SetTypes 设置类型选择，空切片表示全部
func (f *Filter) SetTypes(types []models.WorkloadType) {
	next := make(map[models.WorkloadType]struct{}, len(types))
	for _, t := range types {
		next[t] = struct{}{}
	}

	f.mu.Lock()
	changed := !sameSet(f.types, next)
	f.types = next
	f.mu.Unlock()

	if changed {
		f.notify(TypeSelectionKey)
	}
}

// Apply 一次性更新整个状态
func (f *Filter) Apply(s State) {
	f.SetName(s.Keyword)
	f.SetTypes(s.Types)
}

// Reset 清空全部过滤条件
func (f *Filter) Reset() {
	f.Apply(State{})
}

// Snapshot 返回当前状态，类型按 AllWorkloadTypes 顺序排列
func (f *Filter) Snapshot() State {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]models.WorkloadType, 0, len(f.types))
	for t := range f.types {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		return typeOrder(types[i]) < typeOrder(types[j])
	})
	return State{Keyword: f.keyword, Types: types}
}

// Subscribe 订阅过滤条件变更
func (f *Filter) Subscribe(fn store.Handler) func() {
	return f.emitter.Subscribe(store.FilterChangedEvent, fn)
}

func (f *Filter) notify(key Key) {
	if f.emitter == nil {
		return
	}
	ev := store.NewEvent(store.FilterChangedEvent, "")
	ev.Payload = map[string]interface{}{"key": key, "state": f.Snapshot()}
	f.emitter.Emit(ev)
}

func typeOrder(t models.WorkloadType) int {
	for i, at := range models.AllWorkloadTypes {
		if at == t {
			return i
		}
	}
	return len(models.AllWorkloadTypes)
}

func sameSet(a, b map[models.WorkloadType]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

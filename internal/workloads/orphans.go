package workloads

import (
	corev1 "k8s.io/api/core/v1"

	"github.com/clay-wangzhi/kubepolaris-workloads/internal/store"
)

// knownOwners 收集所有已知工作负载的 命名空间/UID
func knownOwners(state store.WorkloadsState) map[string]struct{} {
	owners := make(map[string]struct{}, len(state.Deployments)+len(state.ReplicaSets)+len(state.DaemonSets)+len(state.StatefulSets))
	for _, d := range state.Deployments {
		owners[ownerKey(d.Namespace, string(d.UID))] = struct{}{}
	}
	for _, rs := range state.ReplicaSets {
		owners[ownerKey(rs.Namespace, string(rs.UID))] = struct{}{}
	}
	for _, ds := range state.DaemonSets {
		owners[ownerKey(ds.Namespace, string(ds.UID))] = struct{}{}
	}
	for _, st := range state.StatefulSets {
		owners[ownerKey(st.Namespace, string(st.UID))] = struct{}{}
	}
	return owners
}

// OrphanPods 返回没有可解析归属工作负载的 Pod，保持输入顺序
func OrphanPods(pods []corev1.Pod, state store.WorkloadsState) []corev1.Pod {
	owners := knownOwners(state)
	orphans := make([]corev1.Pod, 0)
	for i := range pods {
		if !hasKnownOwner(&pods[i], owners) {
			orphans = append(orphans, pods[i])
		}
	}
	return orphans
}

func hasKnownOwner(pod *corev1.Pod, owners map[string]struct{}) bool {
	for _, ref := range pod.OwnerReferences {
		if ref.UID == "" {
			continue
		}
		if _, ok := owners[ownerKey(pod.Namespace, string(ref.UID))]; ok {
			return true
		}
	}
	return false
}

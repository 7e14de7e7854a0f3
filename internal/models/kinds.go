package models

import "strings"

// ResourceKind 面板展示的资源类型标签
type ResourceKind string

const (
	KindDeployment  ResourceKind = "Deployment"
	KindReplicaSet  ResourceKind = "ReplicaSet"
	KindDaemonSet   ResourceKind = "DaemonSet"
	KindStatefulSet ResourceKind = "StatefulSet"
	KindPod         ResourceKind = "Pod"
	KindOrphanPod   ResourceKind = "OrphanPod"
	KindService     ResourceKind = "Service"
)

// ParseResourceKind 不区分大小写解析资源类型，未知返回 false
func ParseResourceKind(s string) (ResourceKind, bool) {
	for _, k := range []ResourceKind{KindDeployment, KindReplicaSet, KindDaemonSet, KindStatefulSet, KindPod, KindOrphanPod, KindService} {
		if strings.EqualFold(string(k), s) {
			return k, true
		}
	}
	return "", false
}

// WorkloadType 类型过滤器中可选的表格标签
type WorkloadType string

const (
	TypeDeployments  WorkloadType = "Deployments"
	TypeDaemonSets   WorkloadType = "DaemonSets"
	TypeStatefulSets WorkloadType = "StatefulSets"
	TypePods         WorkloadType = "Pods"
)

// AllWorkloadTypes 全部可选的表格标签
var AllWorkloadTypes = []WorkloadType{TypeDeployments, TypeDaemonSets, TypeStatefulSets, TypePods}

// ParseWorkloadType 不区分大小写解析表格标签
func ParseWorkloadType(s string) (WorkloadType, bool) {
	for _, t := range AllWorkloadTypes {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, true
		}
	}
	return "", false
}

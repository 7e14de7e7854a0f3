package workloads

import (
	"sort"
	"time"

	appsv1 "k8s.io/api/apps/v1"
)

// DeploymentReplicaSetItem Deployment 表格中的一行（一个 ReplicaSet），每次构建视图时重新生成
type DeploymentReplicaSetItem struct {
	Name          string            `json:"name"`
	Namespace     string            `json:"namespace"`
	UID           string            `json:"uid"`
	DeploymentID  string            `json:"deploymentId"`
	Pods          string            `json:"pods"`
	Status        Status            `json:"status,omitempty"`
	Image         string            `json:"image"`
	Images        []string          `json:"images"`
	CreatedAt     time.Time         `json:"createdAt"`
	Age           string            `json:"age"`
	ShowRowBorder bool              `json:"showRowBorder"`
	Pipeline      PipelineInfo      `json:"pipeline"`
	Labels        map[string]string `json:"labels,omitempty"`
}

// DeploymentGroup 一个 Deployment 及其拥有的 ReplicaSet 行
type DeploymentGroup struct {
	Name      string                     `json:"name"`
	Namespace string                     `json:"namespace"`
	UID       string                     `json:"uid"`
	Labels    map[string]string          `json:"labels,omitempty"`
	Pods      string                     `json:"pods"`
	Status    Status                     `json:"status,omitempty"`
	Age       string                     `json:"age"`
	Items     []DeploymentReplicaSetItem `json:"items"`
}

// OwnsReplicaSet 判断 ReplicaSet 是否属于 Deployment：
// 命名空间相同（不区分大小写），且第一个 ownerReference 的 UID 与 Deployment UID 相同（不区分大小写）
func OwnsReplicaSet(d *appsv1.Deployment, rs *appsv1.ReplicaSet) bool {
	if !sameNamespace(d.Namespace, rs.Namespace) {
		return false
	}
	if len(rs.OwnerReferences) == 0 {
		return false
	}
	return sameUID(string(rs.OwnerReferences[0].UID), string(d.UID))
}

// OwnedReplicaSets 返回 Deployment 拥有的 ReplicaSet，按创建时间倒序，时间相同保持原顺序
func OwnedReplicaSets(d *appsv1.Deployment, replicaSets []appsv1.ReplicaSet) []appsv1.ReplicaSet {
	owned := make([]appsv1.ReplicaSet, 0)
	for i := range replicaSets {
		if OwnsReplicaSet(d, &replicaSets[i]) {
			owned = append(owned, replicaSets[i])
		}
	}
	sort.SliceStable(owned, func(i, j int) bool {
		return owned[j].CreationTimestamp.Before(&owned[i].CreationTimestamp)
	})
	return owned
}

// BuildDeploymentGroups 为每个 Deployment 构建表格分组；没有 ReplicaSet 的 Deployment 也会产生空分组
func BuildDeploymentGroups(deployments []appsv1.Deployment, replicaSets []appsv1.ReplicaSet, now time.Time) []DeploymentGroup {
	groups := make([]DeploymentGroup, 0, len(deployments))
	for i := range deployments {
		d := &deployments[i]
		pods, status := replicaStatus(d.Status.AvailableReplicas, d.Status.Replicas)
		group := DeploymentGroup{
			Name:      d.Name,
			Namespace: d.Namespace,
			UID:       string(d.UID),
			Labels:    d.Labels,
			Pods:      pods,
			Status:    status,
			Age:       FormatAge(d.CreationTimestamp, now),
		}

		owned := OwnedReplicaSets(d, replicaSets)
		group.Items = make([]DeploymentReplicaSetItem, 0, len(owned))
		for idx := range owned {
			group.Items = append(group.Items, buildReplicaSetItem(d, &owned[idx], idx, len(owned), now))
		}
		groups = append(groups, group)
	}
	return groups
}

func buildReplicaSetItem(d *appsv1.Deployment, rs *appsv1.ReplicaSet, index, total int, now time.Time) DeploymentReplicaSetItem {
	pods, status := replicaStatus(rs.Status.AvailableReplicas, rs.Status.Replicas)
	images := templateImages(rs.Spec.Template.Spec)

	// 最新的 ReplicaSet 行取 Deployment 自身的流水线注解，其余行取各自 ReplicaSet 的注解
	annotations := rs.Annotations
	if index == 0 {
		annotations = d.Annotations
	}

	return DeploymentReplicaSetItem{
		Name:          rs.Name,
		Namespace:     rs.Namespace,
		UID:           string(rs.UID),
		DeploymentID:  string(d.UID),
		Pods:          pods,
		Status:        status,
		Image:         firstImage(images),
		Images:        images,
		CreatedAt:     rs.CreationTimestamp.Time,
		Age:           FormatAge(rs.CreationTimestamp, now),
		ShowRowBorder: index < total-1,
		Pipeline:      PipelineFromAnnotations(annotations),
		Labels:        rs.Labels,
	}
}

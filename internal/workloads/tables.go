package workloads

import (
	"fmt"
	"strings"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
)

// DaemonSetRow DaemonSet 表格行
type DaemonSetRow struct {
	Name         string            `json:"name"`
	Namespace    string            `json:"namespace"`
	UID          string            `json:"uid"`
	Pods         string            `json:"pods"`
	Status       Status            `json:"status,omitempty"`
	Image        string            `json:"image"`
	NodeSelector map[string]string `json:"nodeSelector,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	Age          string            `json:"age"`
	Labels       map[string]string `json:"labels,omitempty"`
	Pipeline     PipelineInfo      `json:"pipeline"`
}

// BuildDaemonSetRows 构建 DaemonSet 表格
func BuildDaemonSetRows(items []appsv1.DaemonSet, now time.Time) []DaemonSetRow {
	rows := make([]DaemonSetRow, 0, len(items))
	for i := range items {
		ds := &items[i]
		pods, status := replicaStatus(ds.Status.NumberAvailable, ds.Status.DesiredNumberScheduled)
		rows = append(rows, DaemonSetRow{
			Name:         ds.Name,
			Namespace:    ds.Namespace,
			UID:          string(ds.UID),
			Pods:         pods,
			Status:       status,
			Image:        firstImage(templateImages(ds.Spec.Template.Spec)),
			NodeSelector: ds.Spec.Template.Spec.NodeSelector,
			CreatedAt:    ds.CreationTimestamp.Time,
			Age:          FormatAge(ds.CreationTimestamp, now),
			Labels:       ds.Labels,
			Pipeline:     PipelineFromAnnotations(ds.Annotations),
		})
	}
	return rows
}

// StatefulSetRow StatefulSet 表格行
type StatefulSetRow struct {
	Name        string            `json:"name"`
	Namespace   string            `json:"namespace"`
	UID         string            `json:"uid"`
	Pods        string            `json:"pods"`
	Status      Status            `json:"status,omitempty"`
	Image       string            `json:"image"`
	ServiceName string            `json:"serviceName,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	Age         string            `json:"age"`
	Labels      map[string]string `json:"labels,omitempty"`
	Pipeline    PipelineInfo      `json:"pipeline"`
}

// BuildStatefulSetRows 构建 StatefulSet 表格
func BuildStatefulSetRows(items []appsv1.StatefulSet, now time.Time) []StatefulSetRow {
	rows := make([]StatefulSetRow, 0, len(items))
	for i := range items {
		st := &items[i]
		pods, status := replicaStatus(st.Status.ReadyReplicas, st.Status.Replicas)
		rows = append(rows, StatefulSetRow{
			Name:        st.Name,
			Namespace:   st.Namespace,
			UID:         string(st.UID),
			Pods:        pods,
			Status:      status,
			Image:       firstImage(templateImages(st.Spec.Template.Spec)),
			ServiceName: st.Spec.ServiceName,
			CreatedAt:   st.CreationTimestamp.Time,
			Age:         FormatAge(st.CreationTimestamp, now),
			Labels:      st.Labels,
			Pipeline:    PipelineFromAnnotations(st.Annotations),
		})
	}
	return rows
}

// PodRow Pod 表格行
type PodRow struct {
	Name      string    `json:"name"`
	Namespace string    `json:"namespace"`
	UID       string    `json:"uid"`
	Phase     string    `json:"phase"`
	StatusMsg string    `json:"statusMessage"`
	Status    Status    `json:"status,omitempty"`
	Ready     string    `json:"ready"`
	Restarts  int32     `json:"restarts"`
	Node      string    `json:"node,omitempty"`
	PodIP     string    `json:"podIP,omitempty"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
	Age       string    `json:"age"`
}

// BuildPodRows 构建 Pod 表格
func BuildPodRows(items []corev1.Pod, now time.Time) []PodRow {
	rows := make([]PodRow, 0, len(items))
	for i := range items {
		rows = append(rows, buildPodRow(&items[i], now))
	}
	return rows
}

func buildPodRow(pod *corev1.Pod, now time.Time) PodRow {
	msg := PodStatusMessage(pod)
	ready, total := podReadyCount(pod)
	var restarts int32
	for _, cs := range pod.Status.ContainerStatuses {
		restarts += cs.RestartCount
	}
	return PodRow{
		Name:      pod.Name,
		Namespace: pod.Namespace,
		UID:       string(pod.UID),
		Phase:     string(pod.Status.Phase),
		StatusMsg: msg,
		Status:    podStatusIndicator(msg, ready, total),
		Ready:     fmt.Sprintf("%d/%d", ready, total),
		Restarts:  restarts,
		Node:      pod.Spec.NodeName,
		PodIP:     pod.Status.PodIP,
		Image:     firstImage(templateImages(pod.Spec)),
		CreatedAt: pod.CreationTimestamp.Time,
		Age:       FormatAge(pod.CreationTimestamp, now),
	}
}

// PodStatusMessage 优先使用容器等待/终止原因，其次 Init 容器，最后回退到 Phase
func PodStatusMessage(pod *corev1.Pod) string {
	if pod.DeletionTimestamp != nil {
		return "Terminating"
	}
	for _, cs := range pod.Status.InitContainerStatuses {
		if cs.State.Waiting != nil && cs.State.Waiting.Reason != "" && cs.State.Waiting.Reason != "PodInitializing" {
			return "Init:" + cs.State.Waiting.Reason
		}
		if cs.State.Terminated != nil && cs.State.Terminated.ExitCode != 0 {
			return "Init:Error"
		}
	}
	for _, cs := range pod.Status.ContainerStatuses {
		if cs.State.Waiting != nil && cs.State.Waiting.Reason != "" {
			return cs.State.Waiting.Reason
		}
		if cs.State.Terminated != nil && cs.State.Terminated.Reason != "" {
			return cs.State.Terminated.Reason
		}
	}
	if pod.Status.Reason != "" {
		return pod.Status.Reason
	}
	return string(pod.Status.Phase)
}

func podReadyCount(pod *corev1.Pod) (int, int) {
	total := len(pod.Spec.Containers)
	ready := 0
	for _, cs := range pod.Status.ContainerStatuses {
		if cs.Ready {
			ready++
		}
	}
	return ready, total
}

func podStatusIndicator(msg string, ready, total int) Status {
	switch {
	case msg == "Succeeded" || msg == "Completed":
		return StatusSuccess
	case msg == "Running":
		if total > 0 && ready == total {
			return StatusSuccess
		}
		return StatusRunning
	case msg == "Pending" || msg == "ContainerCreating" || msg == "Terminating" || msg == "PodInitializing":
		return StatusPending
	case msg == "Failed" || msg == "Error" || msg == "CrashLoopBackOff" || msg == "ImagePullBackOff" ||
		msg == "ErrImagePull" || msg == "OOMKilled" || msg == "Evicted" || strings.HasPrefix(msg, "Init:"):
		return StatusFailed
	default:
		return StatusNone
	}
}

// ServiceRow Service 表格行
type ServiceRow struct {
	Name       string            `json:"name"`
	Namespace  string            `json:"namespace"`
	UID        string            `json:"uid"`
	Type       string            `json:"type"`
	ClusterIP  string            `json:"clusterIP"`
	ExternalIP string            `json:"externalIP"`
	Ports      string            `json:"ports"`
	Selector   map[string]string `json:"selector,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	Age        string            `json:"age"`
}

// BuildServiceRows 构建 Service 表格
func BuildServiceRows(items []corev1.Service, now time.Time) []ServiceRow {
	rows := make([]ServiceRow, 0, len(items))
	for i := range items {
		svc := &items[i]
		rows = append(rows, ServiceRow{
			Name:       svc.Name,
			Namespace:  svc.Namespace,
			UID:        string(svc.UID),
			Type:       string(svc.Spec.Type),
			ClusterIP:  svc.Spec.ClusterIP,
			ExternalIP: serviceExternalIP(svc),
			Ports:      servicePorts(svc),
			Selector:   svc.Spec.Selector,
			CreatedAt:  svc.CreationTimestamp.Time,
			Age:        FormatAge(svc.CreationTimestamp, now),
		})
	}
	return rows
}

func serviceExternalIP(svc *corev1.Service) string {
	var ips []string
	for _, ing := range svc.Status.LoadBalancer.Ingress {
		if ing.IP != "" {
			ips = append(ips, ing.IP)
		} else if ing.Hostname != "" {
			ips = append(ips, ing.Hostname)
		}
	}
	ips = append(ips, svc.Spec.ExternalIPs...)
	if len(ips) == 0 {
		if svc.Spec.Type == corev1.ServiceTypeLoadBalancer {
			return "<pending>"
		}
		return ""
	}
	return strings.Join(ips, ",")
}

func servicePorts(svc *corev1.Service) string {
	parts := make([]string, 0, len(svc.Spec.Ports))
	for _, p := range svc.Spec.Ports {
		s := fmt.Sprintf("%d/%s", p.Port, p.Protocol)
		if p.NodePort != 0 {
			s = fmt.Sprintf("%d:%d/%s", p.Port, p.NodePort, p.Protocol)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ",")
}

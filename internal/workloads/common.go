// Package workloads 将 store 中的 Kubernetes 对象整理为面板表格使用的视图模型
package workloads

import (
	"fmt"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/duration"
)

// Status 行状态指示
type Status string

const (
	StatusNone    Status = ""
	StatusSuccess Status = "success"
	StatusRunning Status = "running"
	StatusPending Status = "pending"
	StatusFailed  Status = "failed"
)

// replicaStatus 由可用数/总数推导 "a/t" 文本与状态
// API 以 omitempty 省略零值，零值在这里视为未知
func replicaStatus(available, total int32) (string, Status) {
	if total <= 0 || available <= 0 {
		return "", StatusNone
	}
	text := fmt.Sprintf("%d/%d", available, total)
	switch {
	case available == total:
		return text, StatusSuccess
	case available < total:
		return text, StatusRunning
	default:
		return text, StatusNone
	}
}

// FormatAge 计算资源年龄，零时间返回空串
func FormatAge(created metav1.Time, now time.Time) string {
	if created.IsZero() {
		return ""
	}
	d := now.Sub(created.Time)
	if d < 0 {
		d = 0
	}
	return duration.HumanDuration(d)
}

// templateImages 返回 Pod 模板中全部容器镜像
func templateImages(spec corev1.PodSpec) []string {
	images := make([]string, 0, len(spec.Containers))
	for _, c := range spec.Containers {
		images = append(images, c.Image)
	}
	return images
}

func firstImage(images []string) string {
	if len(images) == 0 {
		return ""
	}
	return images[0]
}

// sameNamespace 命名空间不区分大小写比较
func sameNamespace(a, b string) bool {
	return strings.EqualFold(a, b)
}

// sameUID UID 不区分大小写比较
func sameUID(a, b string) bool {
	return a != "" && strings.EqualFold(a, b)
}

// ownerKey 归属查找使用的键：小写命名空间 + 小写 UID
func ownerKey(namespace, uid string) string {
	return strings.ToLower(namespace) + "/" + strings.ToLower(uid)
}

// 流水线注解
const (
	AnnotationPipelineRun     = "azure-pipelines/run"
	AnnotationPipelineRunURL  = "azure-pipelines/runuri"
	AnnotationPipeline        = "azure-pipelines/pipeline"
	AnnotationPipelineJob     = "azure-pipelines/jobName"
	AnnotationPipelineProject = "azure-pipelines/project"
)

// PipelineInfo 从注解中解析出的部署流水线信息
type PipelineInfo struct {
	Run      string `json:"run,omitempty"`
	RunURL   string `json:"runUrl,omitempty"`
	Pipeline string `json:"pipeline,omitempty"`
	Job      string `json:"job,omitempty"`
	Project  string `json:"project,omitempty"`
}

// Empty 是否无任何流水线信息
func (p PipelineInfo) Empty() bool {
	return p == PipelineInfo{}
}

// PipelineFromAnnotations 解析流水线注解
func PipelineFromAnnotations(annotations map[string]string) PipelineInfo {
	if len(annotations) == 0 {
		return PipelineInfo{}
	}
	return PipelineInfo{
		Run:      annotations[AnnotationPipelineRun],
		RunURL:   annotations[AnnotationPipelineRunURL],
		Pipeline: annotations[AnnotationPipeline],
		Job:      annotations[AnnotationPipelineJob],
		Project:  annotations[AnnotationPipelineProject],
	}
}

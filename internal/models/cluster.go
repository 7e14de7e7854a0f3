package models

import (
	"time"

	"gorm.io/gorm"
)

// 集群连接状态
const (
	ClusterStatusUnknown   = "unknown"
	ClusterStatusConnected = "connected"
	ClusterStatusError     = "error"
)

// Cluster 集群模型，面板按集群维度展示工作负载
type Cluster struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	Name          string         `json:"name" gorm:"uniqueIndex;not null;size:100"`
	APIServer     string         `json:"apiServer" gorm:"not null;size:255"`
	KubeconfigEnc string         `json:"-" gorm:"type:text"` // kubeconfig 内容
	CAEnc         string         `json:"-" gorm:"type:text"` // CA 证书
	SATokenEnc    string         `json:"-" gorm:"type:text"` // SA Token
	Namespace     string         `json:"namespace" gorm:"size:253"` // 面板限定的命名空间，空表示全部
	Version       string         `json:"version" gorm:"size:50"`
	Status        string         `json:"status" gorm:"default:unknown;size:20"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

// HasKubeconfig 是否通过 kubeconfig 接入
func (c *Cluster) HasKubeconfig() bool {
	return c.KubeconfigEnc != ""
}

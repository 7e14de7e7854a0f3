package services

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/clay-wangzhi/kubepolaris-workloads/internal/models"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// K8sClient 封装 clientset 与 rest 配置
type K8sClient struct {
	clientset kubernetes.Interface
	config    *rest.Config
}

// NewK8sClient 使用已有 clientset 构造客户端（测试中注入 fake clientset）
func NewK8sClient(clientset kubernetes.Interface) *K8sClient {
	return &K8sClient{clientset: clientset}
}

// NewK8sClientForCluster 根据集群记录选择接入方式
func NewK8sClientForCluster(cluster *models.Cluster) (*K8sClient, error) {
	if cluster.HasKubeconfig() {
		return NewK8sClientFromKubeconfig(cluster.KubeconfigEnc)
	}
	return NewK8sClientFromToken(cluster.APIServer, cluster.SATokenEnc, cluster.CAEnc)
}

// NewK8sClientFromKubeconfig 从kubeconfig创建客户端
func NewK8sClientFromKubeconfig(kubeconfig string) (*K8sClient, error) {
	config, err := clientcmd.RESTConfigFromKubeConfig([]byte(kubeconfig))
	if err != nil {
		return nil, fmt.Errorf("解析kubeconfig失败: %w", err)
	}

	// 设置超时时间
	config.Timeout = 30 * time.Second

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("创建kubernetes客户端失败: %w", err)
	}

	return &K8sClient{
		clientset: clientset,
		config:    config,
	}, nil
}

// NewK8sClientFromToken 从API Server和Token创建客户端
func NewK8sClientFromToken(apiServer, token, caCert string) (*K8sClient, error) {
	if apiServer == "" {
		return nil, fmt.Errorf("API Server 地址不能为空")
	}
	// 确保API Server地址格式正确
	if !strings.HasPrefix(apiServer, "http://") && !strings.HasPrefix(apiServer, "https://") {
		apiServer = "https://" + apiServer
	}

	config := &rest.Config{
		Host:        apiServer,
		BearerToken: token,
		Timeout:     30 * time.Second,
		TLSClientConfig: rest.TLSClientConfig{
			Insecure: true, // 未提供 CA 时跳过TLS验证
		},
	}

	if caCert != "" {
		// 先尝试 base64 解码，失败则按 PEM 原文使用
		caCertData, err := base64.StdEncoding.DecodeString(caCert)
		if err != nil {
			caCertData = []byte(caCert)
		}
		config.TLSClientConfig.CAData = caCertData
		config.TLSClientConfig.Insecure = false
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("创建kubernetes客户端失败: %w", err)
	}

	return &K8sClient{
		clientset: clientset,
		config:    config,
	}, nil
}

// ServerVersion 测试连接并返回集群版本
func (c *K8sClient) ServerVersion() (string, error) {
	version, err := c.clientset.Discovery().ServerVersion()
	if err != nil {
		return "", fmt.Errorf("连接失败，无法获取集群版本: %w (%s)", err, AnalyzeConnectionError(err))
	}
	return version.GitVersion, nil
}

// GetClientset 获取kubernetes客户端
func (c *K8sClient) GetClientset() kubernetes.Interface {
	return c.clientset
}

// GetRestConfig 获取rest配置
func (c *K8sClient) GetRestConfig() *rest.Config {
	return c.config
}

// AnalyzeConnectionError 分析连接错误并提供诊断信息
func AnalyzeConnectionError(err error) string {
	if err == nil {
		return ""
	}
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "unexpected eof"):
		return "网络连接意外中断，请检查API Server地址与TLS配置"
	case strings.Contains(errStr, "connection refused"):
		return "连接被拒绝，API Server可能未运行或端口不正确"
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "context deadline exceeded"):
		return "连接超时，请检查网络连接和集群状态"
	case strings.Contains(errStr, "certificate") || strings.Contains(errStr, "x509"):
		return "TLS证书验证失败，请检查CA证书配置"
	case strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "401"):
		return "认证失败，请检查Token或kubeconfig中的认证信息"
	case strings.Contains(errStr, "forbidden") || strings.Contains(errStr, "403"):
		return "权限不足，当前用户没有访问该资源的权限"
	case strings.Contains(errStr, "no such host"):
		return "域名解析失败，请检查API Server地址是否正确"
	case strings.Contains(errStr, "network is unreachable"):
		return "网络不可达，请检查网络连接和路由配置"
	default:
		return "未知连接错误，请检查网络连接和集群配置"
	}
}

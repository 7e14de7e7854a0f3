package middleware

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/clay-wangzhi/kubepolaris-workloads/pkg/logger"

	"github.com/gin-gonic/gin"
)

// 审计模块与操作
const (
	ModuleCluster  = "cluster"
	ModuleWorkload = "workload"
	ModuleUnknown  = "unknown"

	ActionImport  = "import"
	ActionDelete  = "delete"
	ActionRefresh = "refresh"
	ActionFilter  = "filter"
	ActionSelect  = "select"
	ActionCreate  = "create"
	ActionUpdate  = "update"
)

// routeRule 路由规则
type routeRule struct {
	Pattern *regexp.Regexp
	Module  string
	Action  string
}

// 预编译的路由规则，action 为空时按 HTTP 方法推断
var routeRules = []routeRule{
	{regexp.MustCompile(`^/api/v1/clusters$`), ModuleCluster, ActionImport},
	{regexp.MustCompile(`^/api/v1/clusters/\d+$`), ModuleCluster, ""},
	{regexp.MustCompile(`^/api/v1/clusters/\d+/workloads/refresh$`), ModuleWorkload, ActionRefresh},
	{regexp.MustCompile(`^/api/v1/clusters/\d+/workloads/filter$`), ModuleWorkload, ActionFilter},
	{regexp.MustCompile(`^/api/v1/clusters/\d+/workloads/selection$`), ModuleWorkload, ActionSelect},
}

// AuditEntry 一次操作的审计信息
type AuditEntry struct {
	Username   string
	Method     string
	Path       string
	Module     string
	Action     string
	ClusterID  string
	StatusCode int
	Duration   time.Duration
}

// AuditSink 审计记录输出
type AuditSink func(entry AuditEntry)

// LogAuditSink 将审计记录写入日志
func LogAuditSink(entry AuditEntry) {
	logger.Info("操作审计: user=%s, module=%s, action=%s, cluster=%s, status=%d, cost=%s",
		entry.Username, entry.Module, entry.Action, entry.ClusterID, entry.StatusCode, entry.Duration)
}

// OperationAudit 操作审计中间件，只记录非 GET 请求
func OperationAudit(sink AuditSink) gin.HandlerFunc {
	if sink == nil {
		sink = LogAuditSink
	}
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		module, action := parseRoute(c.Request.Method, path)
		sink(AuditEntry{
			Username:   c.GetString("username"),
			Method:     c.Request.Method,
			Path:       path,
			Module:     module,
			Action:     action,
			ClusterID:  c.Param("clusterID"),
			StatusCode: c.Writer.Status(),
			Duration:   time.Since(start),
		})
	}
}

// parseRoute 从路由解析操作信息
func parseRoute(method, path string) (module, action string) {
	for _, rule := range routeRules {
		if rule.Pattern.MatchString(path) {
			action = rule.Action
			if action == "" {
				action = methodToAction(method)
			}
			return rule.Module, action
		}
	}
	return ModuleUnknown, methodToAction(method)
}

// methodToAction 根据 HTTP 方法返回操作
func methodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return ActionCreate
	case http.MethodPut, http.MethodPatch:
		return ActionUpdate
	case http.MethodDelete:
		return ActionDelete
	default:
		return strings.ToLower(method)
	}
}

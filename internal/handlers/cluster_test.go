package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/clay-wangzhi/kubepolaris-workloads/internal/models"
	"github.com/clay-wangzhi/kubepolaris-workloads/internal/panel"
	"github.com/clay-wangzhi/kubepolaris-workloads/internal/services"
)

var clusterColumns = []string{
	"id", "name", "api_server", "kubeconfig_enc", "ca_enc", "sa_token_enc",
	"namespace", "version", "status", "created_at", "updated_at", "deleted_at",
}

// ClusterHandlerTestSuite 定义集群处理器测试套件
type ClusterHandlerTestSuite struct {
	suite.Suite
	db       *gorm.DB
	mock     sqlmock.Sqlmock
	router   *gin.Engine
	handler  *ClusterHandler
	probeErr error
}

// SetupTest 每个测试前的设置
func (s *ClusterHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	s.Require().NoError(err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)

	s.db = gormDB
	s.mock = mock
	s.probeErr = nil

	clusterSvc := services.NewClusterService(gormDB)
	panels := panel.NewManager(clusterSvc, nil, nil, testConfig())
	probe := func(cluster *models.Cluster) (string, string, error) {
		if s.probeErr != nil {
			return "", "", s.probeErr
		}
		apiServer := cluster.APIServer
		if apiServer == "" {
			apiServer = "https://from-kubeconfig:6443"
		}
		return "v1.29.3", apiServer, nil
	}
	s.handler = NewClusterHandler(clusterSvc, panels, probe)

	s.router = gin.New()
	s.router.GET("/api/v1/clusters", s.handler.GetClusters)
	s.router.POST("/api/v1/clusters", s.handler.ImportCluster)
	s.router.GET("/api/v1/clusters/:clusterID", s.handler.GetCluster)
	s.router.DELETE("/api/v1/clusters/:clusterID", s.handler.DeleteCluster)
}

// TearDownTest 每个测试后的清理
func (s *ClusterHandlerTestSuite) TearDownTest() {
	if s.db != nil {
		sqlDB, _ := s.db.DB()
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}
}

func (s *ClusterHandlerTestSuite) do(method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var response map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &response)
	return w, response
}

// TestGetClusters 测试获取集群列表
func (s *ClusterHandlerTestSuite) TestGetClusters() {
	now := time.Now()
	rows := sqlmock.NewRows(clusterColumns).AddRow(
		1, "test-cluster", "https://kubernetes.example.com:6443", "", "", "token",
		"apps", "v1.29.3", "connected", now, now, nil,
	)
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `clusters`")).WillReturnRows(rows)

	w, response := s.do("GET", "/api/v1/clusters", nil)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), float64(200), response["code"])
	assert.Equal(s.T(), "获取成功", response["message"])

	data := response["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	s.Require().Len(items, 1)
	cluster := items[0].(map[string]interface{})
	assert.Equal(s.T(), float64(1), cluster["id"])
	assert.Equal(s.T(), "test-cluster", cluster["name"])
	assert.Equal(s.T(), "apps", cluster["namespace"])
	assert.NotContains(s.T(), cluster, "saTokenEnc")
}

// TestImportCluster 测试导入集群
func (s *ClusterHandlerTestSuite) TestImportCluster() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `clusters`")).
		WillReturnResult(sqlmock.NewResult(3, 1))
	s.mock.ExpectCommit()

	w, response := s.do("POST", "/api/v1/clusters", map[string]string{
		"name":       "prod",
		"kubeconfig": "apiVersion: v1",
	})

	assert.Equal(s.T(), http.StatusOK, w.Code)
	data := response["data"].(map[string]interface{})
	assert.Equal(s.T(), float64(3), data["id"])
	assert.Equal(s.T(), "v1.29.3", data["version"])
	assert.Equal(s.T(), "https://from-kubeconfig:6443", data["apiServer"])
	assert.Equal(s.T(), models.ClusterStatusConnected, data["status"])
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
}

// TestImportCluster_MissingCredentials 测试缺少凭据
func (s *ClusterHandlerTestSuite) TestImportCluster_MissingCredentials() {
	w, _ := s.do("POST", "/api/v1/clusters", map[string]string{
		"name":      "prod",
		"apiServer": "https://k8s:6443",
	})
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)

	w, _ = s.do("POST", "/api/v1/clusters", map[string]string{"kubeconfig": "x"})
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

// TestImportCluster_ProbeFailed 测试连接失败
func (s *ClusterHandlerTestSuite) TestImportCluster_ProbeFailed() {
	s.probeErr = errors.New("connection refused")

	w, response := s.do("POST", "/api/v1/clusters", map[string]string{
		"name":      "prod",
		"apiServer": "https://k8s:6443",
		"token":     "abc",
	})

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	assert.Contains(s.T(), response["message"], "connection refused")
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
}

// TestGetCluster_Success 测试获取单个集群成功
func (s *ClusterHandlerTestSuite) TestGetCluster_Success() {
	now := time.Now()
	rows := sqlmock.NewRows(clusterColumns).AddRow(
		1, "test-cluster", "https://kubernetes.example.com:6443", "", "", "token",
		"", "v1.29.3", "connected", now, now, nil,
	)
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `clusters` WHERE `clusters`.`id` = ?")).
		WillReturnRows(rows)

	w, response := s.do("GET", "/api/v1/clusters/1", nil)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), float64(200), response["code"])
}

// TestGetCluster_NotFound 测试获取不存在的集群
func (s *ClusterHandlerTestSuite) TestGetCluster_NotFound() {
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `clusters` WHERE `clusters`.`id` = ?")).
		WillReturnError(gorm.ErrRecordNotFound)

	w, response := s.do("GET", "/api/v1/clusters/999", nil)

	assert.Equal(s.T(), http.StatusNotFound, w.Code)
	assert.Equal(s.T(), "集群不存在", response["message"])
}

// TestGetCluster_InvalidID 测试无效的集群 ID
func (s *ClusterHandlerTestSuite) TestGetCluster_InvalidID() {
	w, _ := s.do("GET", "/api/v1/clusters/invalid", nil)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

// TestDeleteCluster_Success 测试删除集群成功
func (s *ClusterHandlerTestSuite) TestDeleteCluster_Success() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `clusters` WHERE `clusters`.`id` = ?")).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	w, _ := s.do("DELETE", "/api/v1/clusters/1", nil)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
}

// TestDeleteCluster_NotFound 测试删除不存在的集群
func (s *ClusterHandlerTestSuite) TestDeleteCluster_NotFound() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `clusters` WHERE `clusters`.`id` = ?")).
		WithArgs(999).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectCommit()

	w, _ := s.do("DELETE", "/api/v1/clusters/999", nil)

	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

// TestClusterHandlerSuite 运行测试套件
func TestClusterHandlerSuite(t *testing.T) {
	suite.Run(t, new(ClusterHandlerTestSuite))
}

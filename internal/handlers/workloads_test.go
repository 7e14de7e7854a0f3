package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/clay-wangzhi/kubepolaris-workloads/internal/config"
	"github.com/clay-wangzhi/kubepolaris-workloads/internal/models"
	"github.com/clay-wangzhi/kubepolaris-workloads/internal/panel"
	"github.com/clay-wangzhi/kubepolaris-workloads/internal/services"
	"github.com/clay-wangzhi/kubepolaris-workloads/internal/store"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.K8s.UseInformer = false
	cfg.K8s.RequestTimeout = 5 * time.Second
	cfg.Panel.DocsURL = "https://kubernetes.io/docs/concepts/workloads/"
	return cfg
}

type stubClusters map[uint]*models.Cluster

func (s stubClusters) GetCluster(id uint) (*models.Cluster, error) {
	if c, ok := s[id]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %d", services.ErrClusterNotFound, id)
}

func workloadFixtures() *fake.Clientset {
	return fake.NewSimpleClientset(
		&appsv1.Deployment{
			ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "apps", UID: "d1"},
			Status:     appsv1.DeploymentStatus{AvailableReplicas: 1, Replicas: 1},
		},
		&appsv1.ReplicaSet{
			ObjectMeta: metav1.ObjectMeta{
				Name: "web-abc", Namespace: "apps", UID: "r1",
				OwnerReferences: []metav1.OwnerReference{{Kind: "Deployment", Name: "web", UID: "d1"}},
			},
			Spec: appsv1.ReplicaSetSpec{
				Selector: &metav1.LabelSelector{MatchLabels: map[string]string{"app": "web"}},
			},
			Status: appsv1.ReplicaSetStatus{AvailableReplicas: 1, Replicas: 1},
		},
		&appsv1.DaemonSet{ObjectMeta: metav1.ObjectMeta{Name: "agent", Namespace: "kube-system", UID: "ds1"}},
		&corev1.Pod{ObjectMeta: metav1.ObjectMeta{
			Name: "web-abc-1", Namespace: "apps", Labels: map[string]string{"app": "web"},
			OwnerReferences: []metav1.OwnerReference{{Kind: "ReplicaSet", Name: "web-abc", UID: "r1"}},
		}},
		&corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: "debug", Namespace: "apps"}},
		&corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "apps"}},
	)
}

// WorkloadsHandlerTestSuite 工作负载面板处理器测试套件
type WorkloadsHandlerTestSuite struct {
	suite.Suite
	panels *panel.Manager
	router *gin.Engine
}

func (s *WorkloadsHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	clusters := stubClusters{
		1: {ID: 1, Name: "dev"},
		2: {ID: 2, Name: "staging"},
	}
	factory := func(*models.Cluster) (kubernetes.Interface, error) {
		return workloadFixtures(), nil
	}
	s.panels = panel.NewManager(clusters, nil, factory, testConfig())
	h := NewWorkloadsHandler(s.panels)

	s.router = gin.New()
	wl := s.router.Group("/api/v1/clusters/:clusterID/workloads")
	wl.GET("", h.GetWorkloads)
	wl.POST("/refresh", h.RefreshWorkloads)
	wl.GET("/services", h.GetServices)
	wl.GET("/filter", h.GetFilter)
	wl.PUT("/filter", h.UpdateFilter)
	wl.POST("/selection", h.SelectWorkload)
	wl.GET("/selection", h.GetSelection)
	wl.GET("/events", h.StreamEvents)
}

func (s *WorkloadsHandlerTestSuite) TearDownTest() {
	s.panels.Stop()
}

func (s *WorkloadsHandlerTestSuite) do(method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
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

func (s *WorkloadsHandlerTestSuite) TestGetWorkloads_LoadsOnFirstAccess() {
	w, response := s.do("GET", "/api/v1/clusters/1/workloads", nil)
	s.Require().Equal(http.StatusOK, w.Code)

	data := response["data"].(map[string]interface{})
	assert.Equal(s.T(), false, data["loading"])
	deployments := data["deployments"].([]interface{})
	s.Require().Len(deployments, 1)
	items := deployments[0].(map[string]interface{})["items"].([]interface{})
	s.Require().Len(items, 1)
	row := items[0].(map[string]interface{})
	assert.Equal(s.T(), "web-abc", row["name"])
	assert.Equal(s.T(), "1/1", row["pods"])
	assert.Equal(s.T(), "success", row["status"])
	assert.Len(s.T(), data["daemonSets"], 1)

	orphans := data["orphanPods"].([]interface{})
	s.Require().Len(orphans, 1)
	assert.Equal(s.T(), "debug", orphans[0].(map[string]interface{})["name"])
	assert.Nil(s.T(), data["empty"])
}

func (s *WorkloadsHandlerTestSuite) TestGetWorkloads_QueryUpdatesFilter() {
	w, response := s.do("GET", "/api/v1/clusters/1/workloads?types=DaemonSets&name=agent", nil)
	s.Require().Equal(http.StatusOK, w.Code)

	data := response["data"].(map[string]interface{})
	assert.Equal(s.T(), true, data["showDaemonSets"])
	assert.Equal(s.T(), false, data["showDeployments"])
	assert.Equal(s.T(), false, data["showStatefulSets"])
	assert.Equal(s.T(), false, data["showPods"])
	assert.Len(s.T(), data["daemonSets"], 1)
	assert.Empty(s.T(), data["deployments"])

	_, response = s.do("GET", "/api/v1/clusters/1/workloads/filter", nil)
	state := response["data"].(map[string]interface{})
	assert.Equal(s.T(), "agent", state["keyword"])
	assert.Equal(s.T(), []interface{}{"DaemonSets"}, state["types"])
}

func (s *WorkloadsHandlerTestSuite) TestGetWorkloads_FilterSharedPerCluster() {
	w, _ := s.do("GET", "/api/v1/clusters/1/workloads?name=agent", nil)
	s.Require().Equal(http.StatusOK, w.Code)

	// 不带查询参数的请求沿用该集群当前的过滤条件
	w, response := s.do("GET", "/api/v1/clusters/1/workloads", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	data := response["data"].(map[string]interface{})
	assert.Len(s.T(), data["daemonSets"], 1)
	assert.Empty(s.T(), data["deployments"])
	assert.Empty(s.T(), data["orphanPods"])

	w, response = s.do("GET", "/api/v1/clusters/1/workloads?name=", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	data = response["data"].(map[string]interface{})
	assert.Len(s.T(), data["deployments"], 1)
}

func (s *WorkloadsHandlerTestSuite) TestGetWorkloads_BadRequests() {
	w, _ := s.do("GET", "/api/v1/clusters/1/workloads?types=Jobs", nil)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)

	w, _ = s.do("GET", "/api/v1/clusters/abc/workloads", nil)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)

	w, response := s.do("GET", "/api/v1/clusters/9/workloads", nil)
	assert.Equal(s.T(), http.StatusNotFound, w.Code)
	assert.Equal(s.T(), "集群不存在", response["message"])
}

func (s *WorkloadsHandlerTestSuite) TestUpdateFilter() {
	w, response := s.do("PUT", "/api/v1/clusters/1/workloads/filter", map[string]interface{}{
		"keyword": "web",
		"types":   []string{"pods", "Deployments"},
	})
	s.Require().Equal(http.StatusOK, w.Code)
	state := response["data"].(map[string]interface{})
	assert.Equal(s.T(), []interface{}{"Deployments", "Pods"}, state["types"])

	w, _ = s.do("PUT", "/api/v1/clusters/1/workloads/filter", map[string]interface{}{
		"types": []string{"CronJobs"},
	})
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)

	w, response = s.do("POST", "/api/v1/clusters/1/workloads/refresh", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	data := response["data"].(map[string]interface{})
	assert.Empty(s.T(), data["orphanPods"])
	assert.Len(s.T(), data["deployments"], 1)
}

func (s *WorkloadsHandlerTestSuite) TestSelection() {
	w, _ := s.do("GET", "/api/v1/clusters/1/workloads/selection", nil)
	assert.Equal(s.T(), http.StatusNotFound, w.Code)

	w, _ = s.do("POST", "/api/v1/clusters/1/workloads/refresh", nil)
	s.Require().Equal(http.StatusOK, w.Code)

	w, response := s.do("POST", "/api/v1/clusters/1/workloads/selection", map[string]string{
		"kind": "replicaset", "namespace": "apps", "name": "web-abc",
	})
	s.Require().Equal(http.StatusOK, w.Code)
	data := response["data"].(map[string]interface{})
	assert.Equal(s.T(), "ReplicaSet", data["kind"])
	assert.Equal(s.T(), "details", data["tab"])
	details := data["details"].(map[string]interface{})
	assert.Len(s.T(), details["ownedPods"], 1)

	_, response = s.do("GET", "/api/v1/clusters/1/workloads/selection?tab=logs", nil)
	assert.Equal(s.T(), "coming soon", response["data"].(map[string]interface{})["logs"])

	_, response = s.do("GET", "/api/v1/clusters/1/workloads/selection?tab=yaml", nil)
	yamlText := response["data"].(map[string]interface{})["yaml"].(string)
	assert.True(s.T(), strings.Contains(yamlText, "kind: ReplicaSet"))

	w, _ = s.do("POST", "/api/v1/clusters/1/workloads/selection", map[string]string{
		"kind": "Job", "namespace": "apps", "name": "x",
	})
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)

	w, _ = s.do("POST", "/api/v1/clusters/1/workloads/selection", map[string]string{
		"kind": "Deployment", "namespace": "apps", "name": "missing",
	})
	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *WorkloadsHandlerTestSuite) TestGetServices() {
	w, response := s.do("GET", "/api/v1/clusters/2/workloads/services", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	data := response["data"].(map[string]interface{})
	svcList := data["services"].([]interface{})
	s.Require().Len(svcList, 1)
	assert.Equal(s.T(), "web", svcList[0].(map[string]interface{})["name"])
}

func (s *WorkloadsHandlerTestSuite) TestStreamEvents() {
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/clusters/1/workloads/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	defer conn.Close()

	p, err := s.panels.Get(1)
	s.Require().NoError(err)
	s.Require().Eventually(func() bool { return p.Emitter.SubscriberCount() > 0 }, 2*time.Second, 10*time.Millisecond)

	p.Filter.SetName("web")

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev store.Event
	s.Require().NoError(conn.ReadJSON(&ev))
	assert.Equal(s.T(), store.FilterChangedEvent, ev.Name)
	assert.NotEmpty(s.T(), ev.ID)
}

func TestWorkloadsHandlerSuite(t *testing.T) {
	suite.Run(t, new(WorkloadsHandlerTestSuite))
}

func TestParseTypes(t *testing.T) {
	types, err := parseTypes([]string{"Deployments, pods", ""})
	require.NoError(t, err)
	assert.Equal(t, []models.WorkloadType{models.TypeDeployments, models.TypePods}, types)

	_, err = parseTypes([]string{"Jobs"})
	assert.Error(t, err)
}

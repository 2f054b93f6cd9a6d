package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/sumo-flow-backend/internal/config"
	"github.com/jengzang/sumo-flow-backend/internal/database"
	"github.com/jengzang/sumo-flow-backend/internal/handler"
	"github.com/jengzang/sumo-flow-backend/internal/middleware"
	"github.com/jengzang/sumo-flow-backend/internal/models"
	"github.com/jengzang/sumo-flow-backend/internal/pipeline"
	"github.com/jengzang/sumo-flow-backend/internal/repository"
	"github.com/jengzang/sumo-flow-backend/internal/service"
	"github.com/jengzang/sumo-flow-backend/internal/testutil"
)

const secret = "test-secret"

type stubRunner struct {
	release chan struct{}
}

func (s *stubRunner) Run(ctx context.Context, progress pipeline.ProgressFunc) (*pipeline.Result, error) {
	if s.release != nil {
		<-s.release
	}
	progress(pipeline.StageLoad, 0)
	return &pipeline.Result{
		Report:  pipeline.Report{InputRows: 2, RoadNames: 1},
		Entries: []models.RoadNameEntry{{RoadName: "Via Roma", GeoPoint: "44.49,11.34", EdgeID: "roma"}},
	}, nil
}

type testServer struct {
	router *gin.Engine
	svc    *service.PipelineService
	cfg    *config.Config

	// configs the service built runners from
	configs []*config.Config
}

func newServer(t *testing.T, runner service.Runner) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()

	db, err := database.Open(database.Config{Path: filepath.Join(dir, "api.db")}, testutil.Logger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		JWTSecret: secret,
		LogLevel:  "error",
		Paths:     config.Paths{ProcessedFlow: filepath.Join(dir, "processed.csv")},
		Pipeline: config.Pipeline{
			DateColumn:        "data",
			SensorColumn:      "codice_spira",
			AccuracyThreshold: 90,
			SearchRadius:      25,
			EdgeDataDate:      "01/02/2024",
			EdgeDataSlot:      "07:00-08:00",
		},
		Scenario: config.Scenario{TotalVehicles: 100},
	}
	s := &testServer{cfg: cfg}

	guard := middleware.NewRunGuard()
	roads := repository.NewRoadNameRepository(db)
	newRunner := func(c *config.Config) service.Runner {
		s.configs = append(s.configs, c)
		return runner
	}
	svc := service.NewPipelineService(context.Background(), cfg, repository.NewPipelineRunRepository(db), roads, newRunner, guard, testutil.Logger())

	router := SetupRouter(cfg, Handlers{
		Pipeline:  handler.NewPipelineHandler(svc),
		RoadNames: handler.NewRoadNameHandler(service.NewRoadNameService(roads)),
		EdgeData:  handler.NewEdgeDataHandler(service.NewEdgeDataService(cfg, testutil.Logger())),
		Guard:     guard,
	}, testutil.Logger())
	s.router, s.svc = router, svc
	return s
}

func (s *testServer) do(t *testing.T, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	return s.doBody(t, method, path, token, "")
}

func (s *testServer) doBody(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func token(t *testing.T) string {
	t.Helper()
	tok, err := middleware.IssueToken(secret, "operator", "admin", time.Hour)
	require.NoError(t, err)
	return tok
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	s := newServer(t, &stubRunner{})
	w := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestMetrics(t *testing.T) {
	s := newServer(t, &stubRunner{})
	w := s.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestStartRunRequiresToken(t *testing.T) {
	s := newServer(t, &stubRunner{})
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/api/v1/pipeline/runs", "").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/api/v1/pipeline/runs", "garbage").Code)

	other, err := middleware.IssueToken("other-secret", "operator", "", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/api/v1/pipeline/runs", other).Code)
}

func TestRunLifecycle(t *testing.T) {
	s := newServer(t, &stubRunner{})

	w := s.do(t, http.MethodPost, "/api/v1/pipeline/runs", token(t))
	require.Equal(t, http.StatusAccepted, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	id := int64(data["id"].(float64))
	s.svc.Wait()

	w = s.do(t, http.MethodGet, "/api/v1/pipeline/runs/"+strconv.FormatInt(id, 10), "")
	require.Equal(t, http.StatusOK, w.Code)
	run := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, models.RunStatusCompleted, run["status"])
	assert.Contains(t, run["params_json"], "operator")

	w = s.do(t, http.MethodGet, "/api/v1/pipeline/runs?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)["data"].(map[string]interface{})
	assert.Len(t, list["runs"], 1)
	assert.Equal(t, float64(5), list["limit"])

	w = s.do(t, http.MethodGet, "/api/v1/road-names", "")
	require.Equal(t, http.StatusOK, w.Code)
	roads := decode(t, w)["data"].(map[string]interface{})
	assert.Len(t, roads["road_names"], 1)
}

func TestStartRunParams(t *testing.T) {
	s := newServer(t, &stubRunner{})

	w := s.doBody(t, http.MethodPost, "/api/v1/pipeline/runs", token(t), `{"params":{"threshold":80,"edgedata_date":"02/02/2024"}}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	s.svc.Wait()
	require.Len(t, s.configs, 1)
	assert.Equal(t, 80, s.configs[0].Pipeline.AccuracyThreshold)
	assert.Equal(t, "02/02/2024", s.configs[0].Pipeline.EdgeDataDate)
	assert.Equal(t, 90, s.cfg.Pipeline.AccuracyThreshold)

	for _, body := range []string{
		`{"params":{"threshold":101}}`,
		`{"params":{"threshold":"high"}}`,
		`{"params":{"range_end":"02/07/2024"}}`,
		`{"params":{"search_radius":5}}`,
	} {
		w = s.doBody(t, http.MethodPost, "/api/v1/pipeline/runs", token(t), body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Len(t, s.configs, 1)
}

func TestStartRunConflict(t *testing.T) {
	runner := &stubRunner{release: make(chan struct{})}
	s := newServer(t, runner)

	require.Equal(t, http.StatusAccepted, s.do(t, http.MethodPost, "/api/v1/pipeline/runs", token(t)).Code)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/api/v1/pipeline/runs", token(t)).Code)

	close(runner.release)
	s.svc.Wait()
}

func TestGetRunErrors(t *testing.T) {
	s := newServer(t, &stubRunner{})
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/v1/pipeline/runs/abc", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/pipeline/runs/99", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/v1/pipeline/runs?limit=x", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/v1/road-names?unresolved=maybe", "").Code)
}

func TestEdgeData(t *testing.T) {
	s := newServer(t, &stubRunner{})
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/edgedata", "").Code)

	csvText := testutil.FlowCSV(
		testutil.FlowRow{Date: "01/02/2024", Sensor: "S1", Counts: testutil.Hours(10), RoadName: "Via Roma", GeoPoint: "44.49,11.34"},
	)
	csvText = withEdgeColumn(csvText, "roma")
	testutil.WriteFile(t, filepath.Dir(s.cfg.Paths.ProcessedFlow), filepath.Base(s.cfg.Paths.ProcessedFlow), csvText)

	w := s.do(t, http.MethodGet, "/api/v1/edgedata?slot=07:00-08:00", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/xml")
	assert.Contains(t, w.Body.String(), `<edge id="roma" entered="17">`)
	assert.Contains(t, w.Body.String(), `begin="0" end="3600"`)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/v1/edgedata?slot=25:00-26:00", "").Code)
}

// withEdgeColumn appends an edge_id column holding edge to every row
func withEdgeColumn(csvText, edge string) string {
	lines := strings.Split(strings.TrimRight(csvText, "\n"), "\n")
	lines[0] += ";edge_id"
	for i := 1; i < len(lines); i++ {
		lines[i] += ";" + edge
	}
	return strings.Join(lines, "\n") + "\n"
}

package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	apphttp "picklist_converter/internal/http"
	"picklist_converter/platform/config"
	"picklist_converter/platform/logger"
	"picklist_converter/platform/metrics"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type echoModule struct{}

func (echoModule) Name() string { return "echo" }

func (echoModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/echo", func(c *gin.Context) { c.String(http.StatusOK, "echo") })
}

func newApp(health map[string]apphttp.HealthChecker) *apphttp.App {
	gin.SetMode(gin.TestMode)
	return &apphttp.App{
		Config:  &config.Config{CORSAllowAll: true, CORSOrigins: []string{"*"}},
		Logger:  logger.Nop(),
		Health:  health,
		Metrics: metrics.NewRegistry(),
		Modules: []apphttp.Module{echoModule{}},
	}
}

func TestHealthReportsEachStore(t *testing.T) {
	engine := New(newApp(map[string]apphttp.HealthChecker{
		"source": pingFunc(func(context.Context) error { return nil }),
		"target": pingFunc(func(context.Context) error { return errors.New("connection refused") }),
	}))

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	var body struct {
		Status string            `json:"status"`
		Stores map[string]string `json:"stores"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "degraded" || body.Stores["source"] != "ok" || body.Stores["target"] != "connection refused" {
		t.Fatalf("unexpected health body %+v", body)
	}
}

func TestRoutesAndMetrics(t *testing.T) {
	engine := New(newApp(nil))

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/echo", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "echo" {
		t.Fatalf("module route not mounted: %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "poller_running") {
		t.Fatalf("metrics not exposed: %d", rec.Code)
	}
}

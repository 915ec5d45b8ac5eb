package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockroom/internal/inventory"
	"github.com/odyssey-erp/stockroom/internal/inventory/export"
	"github.com/odyssey-erp/stockroom/internal/observability"
	"github.com/odyssey-erp/stockroom/internal/orders"
	"github.com/odyssey-erp/stockroom/internal/storage"
	"github.com/odyssey-erp/stockroom/jobs"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, storage.DriverFile, cfg.StoreDriver)
	require.Equal(t, AutoOrderInline, cfg.AutoOrderMode)
	require.Equal(t, 24*time.Hour, cfg.RecentWindow)
	require.False(t, cfg.IsProduction())
	require.False(t, cfg.NeedsRedis())
}

func TestLoadConfigReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stockroom.env")
	require.NoError(t, os.WriteFile(path, []byte("STORE_DRIVER=redis\nAUTO_ORDER_MODE=Queue\nRECENT_WINDOW=2h\n"), 0o600))
	// godotenv never overrides variables that are already set
	t.Setenv("STORE_DRIVER", "")
	require.NoError(t, os.Unsetenv("STORE_DRIVER"))
	t.Setenv("AUTO_ORDER_MODE", "")
	require.NoError(t, os.Unsetenv("AUTO_ORDER_MODE"))
	t.Setenv("RECENT_WINDOW", "")
	require.NoError(t, os.Unsetenv("RECENT_WINDOW"))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, storage.DriverRedis, cfg.StoreDriver)
	require.Equal(t, AutoOrderQueue, cfg.AutoOrderMode)
	require.Equal(t, 2*time.Hour, cfg.RecentWindow)
	require.True(t, cfg.NeedsRedis())
	require.Equal(t, storage.DriverRedis, cfg.Storage().Driver)
}

func TestLoadConfigRejectsUnknownValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_DRIVER", "mongo")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("AUTO_ORDER_MODE", "sometimes")
	_, err = LoadConfig()
	require.Error(t, err)
}

func TestEffectiveStorageInTestMode(t *testing.T) {
	t.Cleanup(RefreshTestMode)
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()

	cfg := &Config{StoreDriver: storage.DriverPostgres}
	require.Equal(t, storage.DriverMemory, EffectiveStorage(cfg).Driver)
}

func TestNewLoggerHonoursLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{LogFormat: "json", LogLevel: "warn"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "item_id", "itm-1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "shown", line["msg"])
	require.Equal(t, "itm-1", line["item_id"])

	require.Equal(t, slog.LevelInfo, parseLevel(&Config{LogLevel: "nonsense"}))
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	store := storage.NewMemory()
	adapter := orders.NewInventoryAdapter(nil)
	orderSvc := orders.NewService(store, adapter, nil, nil, orders.ServiceConfig{})
	metrics := observability.NewMetrics()
	invSvc := inventory.NewService(store, nil, orderSvc, inventory.ServiceConfig{Metrics: inventory.NewMetrics(metrics.Registerer())})
	adapter.Bind(invSvc)
	_, err := invSvc.Load(context.Background())
	require.NoError(t, err)

	return NewRouter(RouterParams{
		Config:           &Config{RateLimitPerMinute: 0},
		InventoryHandler: inventory.NewHandler(nil, invSvc, nil, export.Formats()),
		OrdersHandler:    orders.NewHandler(nil, orderSvc),
		JobHandler:       jobs.NewHandler(nil, nil),
		Metrics:          metrics,
	})
}

func TestRouterServesAPI(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/healthz", "/api/inventory", "/api/suppliers", "/api/orders", "/jobs/health", "/metrics"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rr.Code, path)
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/inventory", nil))
	require.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	require.NotEmpty(t, rr.Header().Get("X-Content-Type-Options"))
}

func TestRouterUnknownRouteIsProblem(t *testing.T) {
	r := newTestRouter(t)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Contains(t, rr.Header().Get("Content-Type"), "application/problem+json")
}

func TestRouterInlineAutoOrder(t *testing.T) {
	r := newTestRouter(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/inventory/items/itm-0003", bytes.NewBufferString(`{"field":"onHandQty","value":2}`))
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/orders", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Orders []orders.Order `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Orders, 1)
	require.Equal(t, "sysco", body.Orders[0].SupplierID)
}

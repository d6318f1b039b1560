package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sifan077/FlexQR/internal/app/model"
	"github.com/sifan077/FlexQR/internal/app/repository"
	"github.com/sifan077/FlexQR/internal/app/service"
	"github.com/sifan077/FlexQR/internal/http/middleware"
	"github.com/sifan077/FlexQR/internal/infra/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedirectApp(t *testing.T, store *memoryStore, metrics *prometheus.Metrics) *fiber.App {
	t.Helper()
	redirects := service.NewRedirectService(
		repository.NewRedirectStore(store, memoryScans{store}),
		service.RedirectOptions{},
	)

	app := fiber.New()
	app.Use(middleware.CORS())
	NewRedirectHandler(RedirectDeps{Redirects: redirects, Metrics: metrics}).Register(app)
	return app
}

func seed(t *testing.T, store *memoryStore, qr *model.QrCode) {
	t.Helper()
	require.NoError(t, store.Create(context.Background(), qr))
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestRedirect_Found(t *testing.T) {
	store := newMemoryStore()
	seed(t, store, &model.QrCode{
		ID: "qr-1", ShortCode: "abc123", DestinationURL: "https://ex.com/p",
		Campaign: model.Campaign{Source: "flyer"},
	})
	app := newRedirectApp(t, store, nil)

	req := httptest.NewRequest(fiber.MethodGet, "/abc123", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone)")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://ex.com/p?utm_source=flyer", resp.Header.Get("Location"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Equal(t, 1, store.scanCount())
	assert.Equal(t, "1.2.3.4", store.scans[0].IPAddress)
	assert.Equal(t, "Mozilla/5.0 (iPhone)", store.scans[0].UserAgent)
	assert.Equal(t, model.Unknown, store.scans[0].Referrer)
}

func TestRedirect_PrefixedPath(t *testing.T) {
	store := newMemoryStore()
	seed(t, store, &model.QrCode{ID: "qr-1", ShortCode: "abc123", DestinationURL: "https://ex.com/"})
	app := newRedirectApp(t, store, nil)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/r/abc123", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://ex.com/", resp.Header.Get("Location"))
}

func TestRedirect_EmptyCode(t *testing.T) {
	store := newMemoryStore()
	seed(t, store, &model.QrCode{ID: "qr-1", ShortCode: "abc123", DestinationURL: "https://ex.com/"})
	app := newRedirectApp(t, store, nil)

	for _, path := range []string{"/", "/r", "/r/", "/abc123/", "/r/abc123/"} {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil))
		require.NoError(t, err, path)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, path)
		assert.Equal(t, "Invalid QR code", readBody(t, resp), path)
	}
	assert.Equal(t, 0, store.scanCount())
}

func TestRedirect_NestedPrefixedPath(t *testing.T) {
	store := newMemoryStore()
	seed(t, store, &model.QrCode{ID: "qr-1", ShortCode: "abc123", DestinationURL: "https://ex.com/"})
	app := newRedirectApp(t, store, nil)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/r/campaign/spring/abc123", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
}

func TestRedirect_NotFound(t *testing.T) {
	store := newMemoryStore()
	reg := promclient.NewRegistry()
	metrics := prometheus.NewMetrics(reg)
	app := newRedirectApp(t, store, metrics)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/zzz", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "QR code not found", readBody(t, resp))
	assert.Equal(t, 0, store.scanCount())

	count, err := testutil.GatherAndCount(reg, "flexqr_redirects_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRedirect_ScanLimit(t *testing.T) {
	store := newMemoryStore()
	seed(t, store, &model.QrCode{
		ID: "qr-cap", ShortCode: "cap1", DestinationURL: "https://ex.com", ScanLimit: intPtr(2),
	})
	app := newRedirectApp(t, store, nil)

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/cap1", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/cap1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Scan limit reached", readBody(t, resp))
	assert.Equal(t, 2, store.scanCount())
}

func TestRedirect_Preflight(t *testing.T) {
	app := newRedirectApp(t, newMemoryStore(), nil)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodOptions, "/abc123", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, readBody(t, resp))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

type failingRedirects struct{ err error }

func (f failingRedirects) Resolve(context.Context, service.ScanRequest) (*service.RedirectOutcome, error) {
	return nil, f.err
}

func TestRedirect_InternalError(t *testing.T) {
	app := fiber.New()
	NewRedirectHandler(RedirectDeps{Redirects: failingRedirects{errors.New("count scans: timeout")}}).Register(app)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/abc", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var payload map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "count scans: timeout", payload["error"])
}

func TestHealth(t *testing.T) {
	app := newRedirectApp(t, newMemoryStore(), nil)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

package routes

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/creditbonus/bonus"
	"github.com/cppla/creditbonus/config"
	"github.com/cppla/creditbonus/utils"
)

func testConfig(t *testing.T) config.AppConfig {
	return config.AppConfig{
		GinMode:            "test",
		GinPath:            filepath.Join(t.TempDir(), "gin.log"),
		LogLevel:           "info",
		RateLimitPerMinute: 60,
		AllowedOrigins:     []string{"*"},
		JWTSecret:          "router-secret",
		NoticeTitle:        "Daily bonus",
	}
}

func TestSetupRouter(t *testing.T) {
	engine, err := bonus.NewEngine(bonus.NewMemoryStore(), bonus.DefaultPolicy())
	require.NoError(t, err)
	r := SetupRouter(testConfig(t), engine, utils.NewStatusCache(nil))

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := serve(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = serve(httptest.NewRequest(http.MethodGet, "/api/v1/config/notice", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Daily bonus")

	w = serve(httptest.NewRequest(http.MethodPost, "/api/v1/daily-login/claim", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := utils.GenerateToken("router-secret", "u1", time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/daily-login/claim", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w = serve(req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"creditsAwarded":3`)

	w = serve(httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

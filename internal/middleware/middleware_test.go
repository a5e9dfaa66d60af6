package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func monitorRouter(auth *service.AuthService) *gin.Engine {
	r := gin.New()
	r.GET("/sessions/:session_id", RequireMonitorJWT(auth), RequireSessionAccess(), func(c *gin.Context) {
		c.String(http.StatusOK, GetClaims(c).Operator)
	})
	return r
}

func TestRequireMonitorJWT(t *testing.T) {
	auth := service.NewAuthService(&config.Config{JWTSecret: "s3cret", JWTExpiry: time.Hour})
	scoped, err := auth.GenerateMonitorToken("proctor-1", []string{"sess-1"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"bearer header", "/sessions/sess-1", "Bearer " + scoped, http.StatusOK},
		{"query fallback", "/sessions/sess-1?token=" + scoped, "", http.StatusOK},
		{"missing token", "/sessions/sess-1", "", http.StatusUnauthorized},
		{"garbage token", "/sessions/sess-1", "Bearer nope", http.StatusUnauthorized},
		{"other session", "/sessions/sess-2", "Bearer " + scoped, http.StatusForbidden},
	}

	r := monitorRouter(auth)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "proctor-1", w.Body.String())
			}
		})
	}
}

func TestBrotli(t *testing.T) {
	large := strings.Repeat("proctor ", 512)

	r := gin.New()
	r.Use(Brotli(BrotliConfig{MinLength: 64, SkipPaths: []string{"/raw"}}))
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/large", func(c *gin.Context) { c.String(http.StatusOK, large) })
	r.GET("/raw", func(c *gin.Context) { c.String(http.StatusOK, large) })

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Accept-Encoding", "gzip, br;q=1.0")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := get("/small")
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "ok", w.Body.String())

	w = get("/large")
	require.Equal(t, "br", w.Header().Get("Content-Encoding"))
	body, err := io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, large, string(body))

	w = get("/raw")
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, large, w.Body.String())
}

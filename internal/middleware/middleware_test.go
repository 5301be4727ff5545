package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/config"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/utils"
)

const testSecret = "test-secret"

func protected(roles ...string) *echo.Echo {
	e := echo.New()
	g := e.Group("/v1/admin", JWTAuth(testSecret))
	if len(roles) > 0 {
		g.Use(RequireRole(roles...))
	}
	g.GET("/whoami", func(c echo.Context) error {
		id, ok := UserID(c)
		if !ok {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, echo.Map{"id": id, "role": Role(c)})
	})
	return e
}

func call(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/whoami", nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := protected()

	rec := call(e, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"unauthorized"`)

	assert.Equal(t, http.StatusUnauthorized, call(e, "nope").Code)

	tok, err := utils.NewAccessToken(testSecret, 9, "STAFF", 5, time.Now())
	require.NoError(t, err)
	rec = call(e, tok.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":9,"role":"STAFF"}`, rec.Body.String())
}

func TestRequireRole(t *testing.T) {
	e := protected("ADMIN")

	staff, err := utils.NewAccessToken(testSecret, 2, "STAFF", 5, time.Now())
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, call(e, staff.Token).Code)

	admin, err := utils.NewAccessToken(testSecret, 1, "ADMIN", 5, time.Now())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, call(e, admin.Token).Code)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/holds", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/holds")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_route"}
	assert.Equal(t, "rl:ip:10.0.0.1:route:POST /v1/holds", buildRateKey(cfg, c))

	cfg.KeyStrategy = ""
	assert.Equal(t, "rl:ip:10.0.0.1:user:anon:route:POST /v1/holds", buildRateKey(cfg, c))

	c.Set(ctxUserID, uint64(4))
	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:4", buildRateKey(cfg, c))
}

func TestCachePayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"ok":true}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	assert.False(t, ok)
}

func TestCacheKeyIgnoresQueryForRouteStrategy(t *testing.T) {
	e := echo.New()
	mk := func(q string) echo.Context {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/schedule/hours"+q, nil), httptest.NewRecorder())
		c.SetPath("/v1/schedule/hours")
		return c
	}
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route"}
	assert.Equal(t, cacheKeyFrom(cfg, mk("?a=1")), cacheKeyFrom(cfg, mk("?a=2")))

	cfg.KeyStrategy = "route_query"
	assert.NotEqual(t, cacheKeyFrom(cfg, mk("?a=1")), cacheKeyFrom(cfg, mk("?a=2")))
}

package jwt

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"StoreSupport/internal/config"
	"StoreSupport/pkg/util/myjwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", Auth("test-key"), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(CtxOrgID)+"/"+c.GetString(CtxAgentID))
	})
	return r
}

func TestAuth(t *testing.T) {
	r := newRouter()
	token, err := myjwt.GenerateTokenWith(config.JwtConfig{Key: "test-key"}, "StoreSupport", "agent_7", "org_demo", "Sam")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		want   string
	}{
		{"valid", "Bearer " + token, "org_demo/agent_7"},
		{"missing", "", "missing or invalid authorization header"},
		{"not bearer", "Basic abc", "missing or invalid authorization header"},
		{"garbage", "Bearer nope", "invalid token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), tc.want)
		})
	}
}

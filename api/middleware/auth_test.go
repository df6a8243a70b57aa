package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/rishabhxpandey/lnkd-apb/models"
)

func authRouter(keys []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Auth(keys))
	r.GET("/probe", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"key": c.GetString("api_key")})
	})
	return r
}

func TestAuth(t *testing.T) {
	tests := []struct {
		name       string
		keys       []string
		header     string
		value      string
		wantStatus int
	}{
		{"missing key", []string{"k1"}, "", "", http.StatusUnauthorized},
		{"wrong key", []string{"k1"}, "X-API-Key", "nope", http.StatusUnauthorized},
		{"valid x-api-key", []string{"k1", "k2"}, "X-API-Key", "k2", http.StatusOK},
		{"valid bearer", []string{"k1"}, "Authorization", "Bearer k1", http.StatusOK},
		{"malformed bearer", []string{"k1"}, "Authorization", "Basic k1", http.StatusUnauthorized},
		{"open access without keys", nil, "", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := authRouter(tt.keys)

			req := httptest.NewRequest(http.MethodGet, "/probe", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantStatus == http.StatusUnauthorized {
				var resp models.ErrorResponse
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshal error body: %v", err)
				}
				if resp.Error == nil || resp.Error.Code != models.ErrCodeUnauthorized {
					t.Errorf("error body = %+v, want UNAUTHORIZED", resp.Error)
				}
			}
		})
	}
}

func TestAuth_StoresKeyInContext(t *testing.T) {
	r := authRouter([]string{"k1"})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("X-API-Key", "k1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["key"] != "k1" {
		t.Errorf("api_key in context = %q, want k1", body["key"])
	}
}

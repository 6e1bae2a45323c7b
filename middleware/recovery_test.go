package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func doRequest(t *testing.T, r *gin.Engine, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, w.Body.String())
	}
	return w, body
}

func TestErrorHandlerWritesEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("order source timeout"))
	})

	w, body := doRequest(t, r, "/boom")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status: want 500, got %d", w.Code)
	}
	if body["success"] != false {
		t.Errorf("envelope success flag: %+v", body)
	}
	if errMsg, _ := body["error"].(string); !strings.Contains(errMsg, "order source timeout") {
		t.Errorf("collected error should surface in envelope: %+v", body)
	}
}

func TestErrorHandlerDoesNotOverwriteWrittenResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/ok", func(c *gin.Context) {
		_ = c.Error(errors.New("logged but already handled"))
		c.JSON(http.StatusOK, gin.H{"data": "done"})
	})

	w, body := doRequest(t, r, "/ok")
	if w.Code != http.StatusOK {
		t.Errorf("status: want 200, got %d", w.Code)
	}
	if body["data"] != "done" {
		t.Errorf("handler response must stand: %+v", body)
	}
}

func TestRecoveryReturnsEnvelopeOnPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery())
	r.GET("/panic", func(c *gin.Context) {
		panic("nil store handle")
	})

	w, body := doRequest(t, r, "/panic")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status: want 500, got %d", w.Code)
	}
	// 非生产配置下panic详情进入envelope
	if errMsg, _ := body["error"].(string); !strings.Contains(errMsg, "nil store handle") {
		t.Errorf("panic detail should surface outside production: %+v", body)
	}
}

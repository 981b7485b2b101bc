package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func secretRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/", WebhookSecret(secret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestWebhookSecretRejectsMissingHeader(t *testing.T) {
	r := secretRouter("s3cret")

	req, _ := http.NewRequest(http.MethodPost, "/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestWebhookSecretRejectsWrongToken(t *testing.T) {
	r := secretRouter("s3cret")

	req, _ := http.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(SecretTokenHeader, "wrong")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestWebhookSecretAcceptsMatchingToken(t *testing.T) {
	r := secretRouter("s3cret")

	req, _ := http.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(SecretTokenHeader, "s3cret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestWebhookSecretDisabledWhenEmpty(t *testing.T) {
	r := secretRouter("")

	req, _ := http.NewRequest(http.MethodPost, "/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func newRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", mw, func(c *gin.Context) {
		subject, _ := GetSubject(c.Request.Context())
		c.String(http.StatusOK, subject)
	})
	return router
}

func do(router http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestRequiredMiddleware(t *testing.T) {
	router := newRouter(NewAuthenticator(testSecret, "").Required())

	if resp := do(router, ""); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without header, got %d", resp.Code)
	}
	if resp := do(router, "Basic abc"); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for non-bearer header, got %d", resp.Code)
	}
	bad := signToken(t, "other-secret", jwt.RegisteredClaims{Subject: "user-1"})
	if resp := do(router, "Bearer "+bad); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong secret, got %d", resp.Code)
	}

	good := signToken(t, testSecret, jwt.RegisteredClaims{Subject: "user-1"})
	resp := do(router, "Bearer "+good)
	if resp.Code != http.StatusOK || resp.Body.String() != "user-1" {
		t.Fatalf("expected subject in context, got %d %q", resp.Code, resp.Body.String())
	}
}

func TestOptionalMiddleware(t *testing.T) {
	router := newRouter(NewAuthenticator(testSecret, "").Optional())

	resp := do(router, "")
	if resp.Code != http.StatusOK || resp.Body.String() != "" {
		t.Fatalf("expected anonymous pass-through, got %d %q", resp.Code, resp.Body.String())
	}
	if resp := do(router, "Bearer garbage"); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected invalid tokens to be rejected, got %d", resp.Code)
	}
}

func TestVerifyChecksAudienceAndSubject(t *testing.T) {
	a := NewAuthenticator(testSecret, "woundrisk")

	wrongAud := signToken(t, testSecret, jwt.RegisteredClaims{Subject: "user-1", Audience: jwt.ClaimStrings{"other"}})
	if _, err := a.Verify("Bearer " + wrongAud); err == nil || err.Error() != "invalid audience" {
		t.Fatalf("expected audience failure, got %v", err)
	}

	noSubject := signToken(t, testSecret, jwt.RegisteredClaims{Audience: jwt.ClaimStrings{"woundrisk"}})
	if _, err := a.Verify("Bearer " + noSubject); err == nil || err.Error() != "missing subject" {
		t.Fatalf("expected subject failure, got %v", err)
	}

	expired := signToken(t, testSecret, jwt.RegisteredClaims{
		Subject:   "user-1",
		Audience:  jwt.ClaimStrings{"woundrisk"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})
	if _, err := a.Verify("Bearer " + expired); err == nil {
		t.Fatal("expected expired token to fail")
	}

	if _, err := NewAuthenticator("", "").Verify("Bearer x"); err == nil || err.Error() != "missing JWT secret" {
		t.Fatalf("expected missing secret failure, got %v", err)
	}
}

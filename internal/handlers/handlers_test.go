package handlers

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/example/woundrisk/internal/auth"
	"github.com/example/woundrisk/internal/engine"
	"github.com/example/woundrisk/internal/risk"
	"github.com/example/woundrisk/internal/usecase"
	"github.com/example/woundrisk/internal/weights"
)

const testJWTSecret = "test-secret"

func newTestRouter(uc *usecase.AssessmentUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.MaxMultipartMemory = MaxUploadSize
	RegisterRoutes(router, uc, auth.NewAuthenticator(testJWTSecret, ""))
	return router
}

func newEngineUseCase() *usecase.AssessmentUseCase {
	store := weights.NewStaticStore(weights.Defaults())
	return usecase.NewAssessmentUseCase(engine.New(store), store, zap.NewNop())
}

func TestAssessRejectsLargeUpload(t *testing.T) {
	router := newTestRouter(&usecase.AssessmentUseCase{})

	body, contentType := buildMultipartBody(t, "image/png", bytes.Repeat([]byte("a"), MaxUploadSize+1), nil)
	req := httptest.NewRequest(http.MethodPost, "/assess", body)
	req.Header.Set("Content-Type", contentType)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status %d, got %d", http.StatusRequestEntityTooLarge, resp.Code)
	}
}

func TestAssessRejectsUnsupportedContentType(t *testing.T) {
	router := newTestRouter(&usecase.AssessmentUseCase{})

	body, contentType := buildMultipartBody(t, "text/plain", []byte("hello"), nil)
	req := httptest.NewRequest(http.MethodPost, "/assess", body)
	req.Header.Set("Content-Type", contentType)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected status %d, got %d", http.StatusUnsupportedMediaType, resp.Code)
	}
}

func TestAssessRequiresFile(t *testing.T) {
	router := newTestRouter(&usecase.AssessmentUseCase{})

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	_ = writer.WriteField("reported_pain", "true")
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/assess", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.Code)
	}
}

func TestAssessRejectsInvalidSymptomValue(t *testing.T) {
	router := newTestRouter(&usecase.AssessmentUseCase{})

	body, contentType := buildMultipartBody(t, "image/png", testPNG(t), map[string]string{"reported_pain": "maybe"})
	req := httptest.NewRequest(http.MethodPost, "/assess", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.Code)
	}
}

func TestAssessReturnsRecord(t *testing.T) {
	router := newTestRouter(newEngineUseCase())

	body, contentType := buildMultipartBody(t, "image/png", testPNG(t), map[string]string{
		"reported_drainage": "true",
		"reported_fever":    "true",
	})
	req := httptest.NewRequest(http.MethodPost, "/assess", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if resp.Header().Get(AssessmentIDHeader) == "" {
		t.Fatal("expected assessment id header")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body.Bytes(), &fields); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(fields) != len(risk.Contract().Fields) {
		t.Fatalf("unexpected record fields: %s", resp.Body.String())
	}

	var result risk.Assessment
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode assessment: %v", err)
	}
	if result.Disclaimer != risk.Disclaimer {
		t.Fatal("expected fixed disclaimer")
	}
	for _, s := range result.Signals {
		if s.Name == risk.ReportedDrainage && s.Value != 1 {
			t.Fatalf("expected drainage flag to be set, got %+v", s)
		}
	}
}

func TestAssessMapsDecodeErrors(t *testing.T) {
	router := newTestRouter(newEngineUseCase())

	body, contentType := buildMultipartBody(t, "image/jpeg", []byte("not really a jpeg"), nil)
	req := httptest.NewRequest(http.MethodPost, "/assess", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestHealthAndReady(t *testing.T) {
	router := newTestRouter(&usecase.AssessmentUseCase{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.Code != http.StatusOK || resp.Body.String() != `{"status":"ok"}` {
		t.Fatalf("unexpected health response %d %s", resp.Code, resp.Body.String())
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without weights, got %d", resp.Code)
	}

	router = newTestRouter(newEngineUseCase())
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with weights, got %d", resp.Code)
	}
}

func TestHistoryRoutesRequireAuth(t *testing.T) {
	router := newTestRouter(newEngineUseCase())

	for _, path := range []string{"/assessments/abc", "/metrics/summary"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, resp.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/assessments/abc", nil)
	req.Header.Set("Authorization", "Bearer "+buildTestToken(t, "user-123"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501 without storage, got %d", resp.Code)
	}
}

func TestReloadWithoutWeightFile(t *testing.T) {
	router := newTestRouter(newEngineUseCase())

	req := httptest.NewRequest(http.MethodPost, "/admin/weights/reload", nil)
	req.Header.Set("Authorization", "Bearer "+buildTestToken(t, "admin"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.Code)
	}
}

func TestParseBool(t *testing.T) {
	for raw, want := range map[string]bool{"true": true, "1": true, "on": true, "No": false, "0": false} {
		got, err := parseBool(raw)
		if err != nil || got != want {
			t.Fatalf("%q: got %v %v", raw, got, err)
		}
	}
	if _, err := parseBool("sometimes"); err == nil {
		t.Fatal("expected error")
	}
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func buildMultipartBody(t *testing.T, contentType string, payload []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="upload"`)
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("failed to create multipart part: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("failed to write payload: %v", err)
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	return body, writer.FormDataContentType()
}

func buildTestToken(t *testing.T, subject string) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

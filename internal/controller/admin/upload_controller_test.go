package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lshigami/quizhub/config"
	"github.com/lshigami/quizhub/internal/auth"
	"github.com/lshigami/quizhub/internal/dto"
	"github.com/lshigami/quizhub/internal/model"
	"github.com/lshigami/quizhub/internal/service"
)

type stubUploadService struct {
	service.UploadService
	calls    int
	filename string
	content  string
	rows     []dto.UploadQuestion
}

func (s *stubUploadService) Validate(_ context.Context, filename string, r io.Reader) (*dto.UploadReport, error) {
	s.calls++
	s.filename = filename
	data, _ := io.ReadAll(r)
	s.content = string(data)
	return &dto.UploadReport{}, nil
}

func (s *stubUploadService) BulkInsertFile(_ context.Context, _ auth.Identity, filename string, r io.Reader) (*dto.BulkInsertResponse, error) {
	s.calls++
	s.filename = filename
	data, _ := io.ReadAll(r)
	s.content = string(data)
	return &dto.BulkInsertResponse{Inserted: 1}, nil
}

func (s *stubUploadService) BulkInsertRows(_ context.Context, _ auth.Identity, rows []dto.UploadQuestion) (*dto.BulkInsertResponse, error) {
	s.calls++
	s.rows = rows
	return &dto.BulkInsertResponse{Inserted: len(rows)}, nil
}

func newUploadRouter(svc service.UploadService, maxBytes int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(ctx *gin.Context) {
		identity := auth.Identity{UserID: uuid.New(), Role: model.RoleAdmin}
		ctx.Request = ctx.Request.WithContext(auth.WithIdentity(ctx.Request.Context(), identity))
	})
	cfg := &config.Config{Upload: config.Upload{MaxBytes: maxBytes, MaxRows: 100}}
	c := NewUploadController(svc, cfg)
	r.POST("/admin/upload/validate", c.Validate)
	r.POST("/admin/upload/bulk-insert", c.BulkInsert)
	return r
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func postMultipart(r http.Handler, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body dto.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body.Code
}

func TestUploadOverBodyLimitIsTooLarge(t *testing.T) {
	oversized := bytes.Repeat([]byte("x"), 2<<20)
	for _, path := range []string{"/admin/upload/validate", "/admin/upload/bulk-insert"} {
		t.Run(path, func(t *testing.T) {
			svc := &stubUploadService{}
			r := newUploadRouter(svc, 1024)
			body, contentType := multipartBody(t, "file", "questions.csv", oversized)

			rec := postMultipart(r, path, body, contentType)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422 (%s)", rec.Code, rec.Body.String())
			}
			if code := errorCode(t, rec); code != service.CodeFileTooLarge {
				t.Errorf("code = %q, want %q", code, service.CodeFileTooLarge)
			}
			if svc.calls != 0 {
				t.Errorf("service called %d times for a rejected upload", svc.calls)
			}
		})
	}
}

func TestUploadOverFileLimitWithinBodyLimitIsTooLarge(t *testing.T) {
	svc := &stubUploadService{}
	r := newUploadRouter(svc, 1024)
	body, contentType := multipartBody(t, "file", "questions.csv", bytes.Repeat([]byte("y"), 4096))

	rec := postMultipart(r, "/admin/upload/validate", body, contentType)
	if rec.Code != http.StatusUnprocessableEntity || errorCode(t, rec) != service.CodeFileTooLarge {
		t.Fatalf("got %d %s, want 422 FILE_TOO_LARGE", rec.Code, rec.Body.String())
	}
}

func TestUploadWithoutFileFieldIsMissingFile(t *testing.T) {
	svc := &stubUploadService{}
	r := newUploadRouter(svc, 1024)
	body, contentType := multipartBody(t, "attachment", "questions.csv", []byte("text,a\n"))

	for _, path := range []string{"/admin/upload/validate", "/admin/upload/bulk-insert"} {
		rec := postMultipart(r, path, bytes.NewReader(body.Bytes()), contentType)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400 (%s)", path, rec.Code, rec.Body.String())
		}
		if code := errorCode(t, rec); code != "MISSING_FILE" {
			t.Errorf("%s: code = %q, want MISSING_FILE", path, code)
		}
	}
}

func TestUploadPassesFileToService(t *testing.T) {
	svc := &stubUploadService{}
	r := newUploadRouter(svc, 1024)
	body, contentType := multipartBody(t, "file", "questions.csv", []byte("question_text,option_a\n"))

	rec := postMultipart(r, "/admin/upload/bulk-insert", body, contentType)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%s)", rec.Code, rec.Body.String())
	}
	if svc.filename != "questions.csv" || svc.content != "question_text,option_a\n" {
		t.Errorf("service saw %q / %q", svc.filename, svc.content)
	}
}

func TestBulkInsertAcceptsReviewedRows(t *testing.T) {
	svc := &stubUploadService{}
	r := newUploadRouter(svc, 1024)
	payload := `{"rows":[{"question_text":"What is 2+2?","option_a":"3","option_b":"4","option_c":"5","option_d":"6","correct_answer":"B"}]}`

	rec := postMultipart(r, "/admin/upload/bulk-insert", strings.NewReader(payload), "application/json")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%s)", rec.Code, rec.Body.String())
	}
	if len(svc.rows) != 1 {
		t.Errorf("rows passed = %d, want 1", len(svc.rows))
	}
}

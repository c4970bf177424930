package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basit/nua-backend/access"
	"github.com/basit/nua-backend/auth"
	"github.com/basit/nua-backend/auth/middleware"
	"github.com/basit/nua-backend/links"
	"github.com/basit/nua-backend/models"
	"github.com/basit/nua-backend/service"
	"github.com/basit/nua-backend/share"
)

type fakeService struct {
	describeErr error
	streamErr   error
	linkViewErr error
	link        links.Link
	linkErr     error
	shareResult []share.Result
	shareErr    error
	removeErr   error
	logs        []models.AuditLog
	logsErr     error
}

func (s *fakeService) Upload(_ context.Context, ownerID uuid.UUID, blobs []service.Blob, _ string) []service.UploadResult {
	out := make([]service.UploadResult, len(blobs))
	for i, b := range blobs {
		out[i] = service.UploadResult{Name: b.Name, File: &models.File{ID: uuid.New(), OwnerID: ownerID, OriginalName: b.Name}}
	}
	return out
}

func (s *fakeService) Dashboard(context.Context, uuid.UUID) ([]models.File, []models.File, error) {
	return []models.File{{ID: uuid.New()}}, nil, nil
}

func (s *fakeService) Describe(context.Context, uuid.UUID, access.Request) (*service.FileLocation, error) {
	if s.describeErr != nil {
		return nil, s.describeErr
	}
	return &service.FileLocation{ViewURL: "https://blobs/x", DownloadURL: "https://blobs/x", MimeType: "application/pdf", OriginalName: "report.pdf"}, nil
}

func (s *fakeService) StreamDownload(context.Context, uuid.UUID, access.Request, string) (*service.Stream, error) {
	if s.streamErr != nil {
		return nil, s.streamErr
	}
	return &service.Stream{
		Body:          io.NopCloser(strings.NewReader("bytes")),
		ContentType:   "application/pdf",
		ContentLength: 5,
		Filename:      "report.pdf",
	}, nil
}

func (s *fakeService) AccessViaLink(context.Context, string, access.Request, string) (*service.LinkView, error) {
	if s.linkViewErr != nil {
		return nil, s.linkViewErr
	}
	return &service.LinkView{ID: uuid.New(), Name: "report.pdf"}, nil
}

func (s *fakeService) DownloadViaLink(ctx context.Context, _ string, req access.Request, ip string) (*service.Stream, error) {
	if s.linkViewErr != nil {
		return nil, s.linkViewErr
	}
	return s.StreamDownload(ctx, uuid.Nil, req, ip)
}

func (s *fakeService) GenerateLink(context.Context, uuid.UUID, uuid.UUID, float64, string) (links.Link, error) {
	return s.link, s.linkErr
}

func (s *fakeService) ActiveLink(context.Context, uuid.UUID, uuid.UUID) (links.Link, error) {
	return s.link, s.linkErr
}

func (s *fakeService) Share(context.Context, uuid.UUID, uuid.UUID, []string, string) ([]share.Result, error) {
	return s.shareResult, s.shareErr
}

func (s *fakeService) RemoveAccess(context.Context, uuid.UUID, uuid.UUID, uuid.UUID, string) error {
	return s.removeErr
}

func (s *fakeService) Logs(context.Context, uuid.UUID, uuid.UUID) ([]models.AuditLog, error) {
	return s.logs, s.logsErr
}

func setupRouter(t *testing.T, svc *fakeService) (*gin.Engine, string) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	gin.SetMode(gin.TestMode)

	r := gin.New()
	h := NewFileHandler(svc)
	group := r.Group("/api/files")
	group.Use(middleware.AuthRequired())
	group.POST("/upload", h.Upload)
	group.GET("/dashboard", h.Dashboard)
	group.GET("/share-qr/:id", h.ShareQR)
	group.POST("/share", h.Share)
	group.POST("/generate-link", h.GenerateLink)
	group.GET("/download/:id", h.Download)
	group.GET("/proxy-download/:id", h.ProxyDownload)
	group.GET("/secure-link/:token", h.SecureLink)
	group.GET("/logs/:id", h.Logs)
	group.DELETE("/share/remove", h.RemoveAccess)

	token, _, err := auth.GenerateTokens(uuid.NewString())
	require.NoError(t, err)
	return r, token
}

func doRequest(r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func multipartUpload(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for name, data := range files {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func doUpload(r *gin.Engine, token string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUpload(t *testing.T) {
	r, token := setupRouter(t, &fakeService{})

	body, contentType := multipartUpload(t, map[string][]byte{"report.pdf": []byte("pdf-bytes")})
	w := doUpload(r, token, body, contentType)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Files  []models.File `json:"files"`
		Failed []gin.H       `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Files, 1)
	assert.Equal(t, "report.pdf", resp.Files[0].OriginalName)
	assert.Empty(t, resp.Failed)
}

func TestUploadTooManyFiles(t *testing.T) {
	r, token := setupRouter(t, &fakeService{})

	files := map[string][]byte{}
	for i := 0; i < maxUploadFiles+1; i++ {
		files[fmt.Sprintf("f%d.txt", i)] = []byte("x")
	}
	body, contentType := multipartUpload(t, files)
	w := doUpload(r, token, body, contentType)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "At most 5 files")
}

func TestUploadOversizedFile(t *testing.T) {
	r, token := setupRouter(t, &fakeService{})

	body, contentType := multipartUpload(t, map[string][]byte{
		"huge.bin": bytes.Repeat([]byte("a"), maxUploadFileSize+1),
	})
	w := doUpload(r, token, body, contentType)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "exceeds the 10MB limit")
}

func TestUploadNoFiles(t *testing.T) {
	r, token := setupRouter(t, &fakeService{})

	body, contentType := multipartUpload(t, nil)
	w := doUpload(r, token, body, contentType)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No files uploaded")
}

func TestDashboard(t *testing.T) {
	r, token := setupRouter(t, &fakeService{})

	w := doRequest(r, http.MethodGet, "/api/files/dashboard", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Owned  []models.File `json:"owned"`
		Shared []models.File `json:"shared"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Owned, 1)
	assert.Empty(t, body.Shared)
}

func TestShareQR(t *testing.T) {
	r, token := setupRouter(t, &fakeService{link: links.Link{Token: "tok-123", ExpiresAt: time.Now().Add(time.Hour)}})

	w := doRequest(r, http.MethodGet, "/api/files/share-qr/"+uuid.NewString(), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestShareQRNoActiveLink(t *testing.T) {
	r, token := setupRouter(t, &fakeService{linkErr: service.ErrNotFound})

	w := doRequest(r, http.MethodGet, "/api/files/share-qr/"+uuid.NewString(), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "No active link")
}

func TestAuthRequired(t *testing.T) {
	r, _ := setupRouter(t, &fakeService{})

	w := doRequest(r, http.MethodGet, "/api/files/download/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(r, http.MethodGet, "/api/files/download/"+uuid.NewString(), "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDownloadDescriptor(t *testing.T) {
	r, token := setupRouter(t, &fakeService{})

	w := doRequest(r, http.MethodGet, "/api/files/download/"+uuid.NewString(), token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "https://blobs/x", body["viewUrl"])
	assert.Equal(t, "report.pdf", body["originalName"])
}

func TestDownloadDenied(t *testing.T) {
	r, token := setupRouter(t, &fakeService{describeErr: service.ErrUnauthorized})

	w := doRequest(r, http.MethodGet, "/api/files/download/"+uuid.NewString(), token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDownloadBadID(t *testing.T) {
	r, token := setupRouter(t, &fakeService{})

	w := doRequest(r, http.MethodGet, "/api/files/download/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProxyDownloadHeaders(t *testing.T) {
	r, token := setupRouter(t, &fakeService{})

	w := doRequest(r, http.MethodGet, "/api/files/proxy-download/"+uuid.NewString(), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="report.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "bytes", w.Body.String())
}

func TestShareDetails(t *testing.T) {
	svc := &fakeService{shareResult: []share.Result{
		{Email: "a@x.com", Outcome: share.Granted},
		{Email: "bad-email", Outcome: share.UserNotFound},
	}}
	r, token := setupRouter(t, svc)

	w := doRequest(r, http.MethodPost, "/api/files/share", token, gin.H{
		"fileId": uuid.NewString(),
		"emails": []string{"a@x.com", "bad-email"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Details []string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"a@x.com (Success)", "bad-email (User not found)"}, body.Details)
}

func TestShareRequiresEmails(t *testing.T) {
	r, token := setupRouter(t, &fakeService{shareErr: service.ErrValidation})

	w := doRequest(r, http.MethodPost, "/api/files/share", token, gin.H{"fileId": uuid.NewString()})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Please provide email(s).")
}

func TestGenerateLinkResponse(t *testing.T) {
	expires := time.Now().Add(time.Hour).UTC()
	r, token := setupRouter(t, &fakeService{link: links.Link{Token: "tok-123", ExpiresAt: expires}})

	w := doRequest(r, http.MethodPost, "/api/files/generate-link", token, gin.H{
		"fileId":         uuid.NewString(),
		"expiresInHours": 1,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "tok-123", body["linkToken"])
	assert.NotEmpty(t, body["expiresAt"])
}

func TestSecureLinkStatuses(t *testing.T) {
	r, token := setupRouter(t, &fakeService{linkViewErr: service.ErrNotFound})
	w := doRequest(r, http.MethodGet, "/api/files/secure-link/tok", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Link invalid")

	r, token = setupRouter(t, &fakeService{linkViewErr: service.ErrUnauthorized})
	w = doRequest(r, http.MethodGet, "/api/files/secure-link/tok", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Link expired")
}

func TestRemoveAccess(t *testing.T) {
	r, token := setupRouter(t, &fakeService{})

	w := doRequest(r, http.MethodDelete, "/api/files/share/remove", token, gin.H{
		"fileId": uuid.NewString(),
		"userId": uuid.NewString(),
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Access revoked successfully")
}

func TestLogsOwnerGate(t *testing.T) {
	r, token := setupRouter(t, &fakeService{logsErr: service.ErrUnauthorized})

	w := doRequest(r, http.MethodGet, "/api/files/logs/"+uuid.NewString(), token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

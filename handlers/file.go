package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/basit/nua-backend/access"
	"github.com/basit/nua-backend/auth/middleware"
	"github.com/basit/nua-backend/links"
	"github.com/basit/nua-backend/models"
	"github.com/basit/nua-backend/service"
	"github.com/basit/nua-backend/share"
)

// Upload constraints, matching the web client's expectations.
const (
	maxUploadFiles    = 5
	maxUploadFileSize = 10 << 20 // 10MB
)

// DisclosureService is what the file endpoints need from the core.
type DisclosureService interface {
	Upload(ctx context.Context, ownerID uuid.UUID, blobs []service.Blob, ip string) []service.UploadResult
	Dashboard(ctx context.Context, userID uuid.UUID) (owned, shared []models.File, err error)
	Describe(ctx context.Context, fileID uuid.UUID, req access.Request) (*service.FileLocation, error)
	StreamDownload(ctx context.Context, fileID uuid.UUID, req access.Request, ip string) (*service.Stream, error)
	AccessViaLink(ctx context.Context, token string, req access.Request, ip string) (*service.LinkView, error)
	DownloadViaLink(ctx context.Context, token string, req access.Request, ip string) (*service.Stream, error)
	GenerateLink(ctx context.Context, fileID, callerID uuid.UUID, ttlHours float64, ip string) (links.Link, error)
	ActiveLink(ctx context.Context, fileID, callerID uuid.UUID) (links.Link, error)
	Share(ctx context.Context, fileID, callerID uuid.UUID, emails []string, ip string) ([]share.Result, error)
	RemoveAccess(ctx context.Context, fileID, callerID, userID uuid.UUID, ip string) error
	Logs(ctx context.Context, fileID, callerID uuid.UUID) ([]models.AuditLog, error)
}

type FileHandler struct {
	svc DisclosureService
}

func NewFileHandler(svc DisclosureService) *FileHandler {
	return &FileHandler{svc: svc}
}

func (h *FileHandler) Upload(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No files uploaded"})
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No files uploaded"})
		return
	}
	if len(headers) > maxUploadFiles {
		c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("At most %d files per upload", maxUploadFiles)})
		return
	}
	for _, fh := range headers {
		if fh.Size > maxUploadFileSize {
			c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("%s exceeds the 10MB limit", fh.Filename)})
			return
		}
	}

	blobs := make([]service.Blob, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Unreadable upload"})
			return
		}
		opened = append(opened, f)
		blobs = append(blobs, service.Blob{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		})
	}

	results := h.svc.Upload(c.Request.Context(), userID, blobs, c.ClientIP())

	files := make([]*models.File, 0, len(results))
	failed := make([]gin.H, 0)
	for _, r := range results {
		if r.Err != nil {
			log.Printf("Upload error (%s): %v", r.Name, r.Err)
			failed = append(failed, gin.H{"name": r.Name, "message": "Upload failed"})
			continue
		}
		files = append(files, r.File)
	}
	if len(files) == 0 {
		c.JSON(http.StatusBadGateway, gin.H{"message": "Upload failed", "failed": failed})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"files": files, "failed": failed})
}

func (h *FileHandler) Dashboard(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	owned, shared, err := h.svc.Dashboard(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"owned": owned, "shared": shared})
}

func (h *FileHandler) Share(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	var body struct {
		FileID string   `json:"fileId"`
		Email  string   `json:"email"`
		Emails []string `json:"emails"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid input"})
		return
	}
	emails := body.Emails
	if len(emails) == 0 && body.Email != "" {
		emails = []string{body.Email}
	}
	fileID, err := uuid.Parse(body.FileID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid file id"})
		return
	}

	results, err := h.svc.Share(c.Request.Context(), fileID, userID, emails, c.ClientIP())
	if errors.Is(err, service.ErrValidation) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Please provide email(s)."})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	details := make([]string, len(results))
	for i, r := range results {
		details[i] = r.Label()
	}
	c.JSON(http.StatusOK, gin.H{"message": "Sharing process completed", "details": details})
}

func (h *FileHandler) GenerateLink(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	var body struct {
		FileID         string `json:"fileId"`
		ExpiresInHours any    `json:"expiresInHours"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid input"})
		return
	}
	fileID, err := uuid.Parse(body.FileID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid file id"})
		return
	}

	link, err := h.svc.GenerateLink(c.Request.Context(), fileID, userID, links.HoursFrom(body.ExpiresInHours), c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"linkToken": link.Token, "expiresAt": link.ExpiresAt})
}

func (h *FileHandler) Download(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	fileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid file id"})
		return
	}

	loc, err := h.svc.Describe(c.Request.Context(), fileID, requester(userID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loc)
}

func (h *FileHandler) ProxyDownload(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	fileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid file id"})
		return
	}

	stream, err := h.svc.StreamDownload(c.Request.Context(), fileID, requester(userID), c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}
	writeAttachment(c, stream)
}

func (h *FileHandler) SecureLink(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	view, err := h.svc.AccessViaLink(c.Request.Context(), c.Param("token"), requester(userID), c.ClientIP())
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Link invalid"})
		return
	}
	if errors.Is(err, service.ErrUnauthorized) {
		c.JSON(http.StatusForbidden, gin.H{"message": "Link expired"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *FileHandler) SharedDownload(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	stream, err := h.svc.DownloadViaLink(c.Request.Context(), c.Param("token"), requester(userID), c.ClientIP())
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Link invalid"})
		return
	}
	if errors.Is(err, service.ErrUnauthorized) {
		c.JSON(http.StatusForbidden, gin.H{"message": "Link expired"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	writeAttachment(c, stream)
}

func (h *FileHandler) RemoveAccess(c *gin.Context) {
	callerID, _ := middleware.CurrentUserID(c)

	var body struct {
		FileID string `json:"fileId"`
		UserID string `json:"userId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid input"})
		return
	}
	fileID, err := uuid.Parse(body.FileID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid file id"})
		return
	}
	userID, err := uuid.Parse(body.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid user id"})
		return
	}

	if err := h.svc.RemoveAccess(c.Request.Context(), fileID, callerID, userID, c.ClientIP()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Access revoked successfully"})
}

func (h *FileHandler) Logs(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	fileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid file id"})
		return
	}

	logs, err := h.svc.Logs(c.Request.Context(), fileID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// ShareQR renders the file's active secure link as a QR code PNG.
func (h *FileHandler) ShareQR(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	fileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid file id"})
		return
	}

	link, err := h.svc.ActiveLink(c.Request.Context(), fileID, userID)
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "No active link"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	shareURL := fmt.Sprintf("%s/share/%s", os.Getenv("BASE_URL"), link.Token)
	png, err := qrcode.Encode(shareURL, qrcode.Medium, 256)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func requester(userID uuid.UUID) access.Request {
	return access.Request{UserID: userID, Authenticated: true}
}

// writeAttachment streams the body with attachment headers. Once bytes
// have been flushed the status code is committed; a mid-stream failure
// can only cut the connection short.
func writeAttachment(c *gin.Context, stream *service.Stream) {
	defer stream.Close()

	c.Header("Content-Type", stream.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", stream.Filename))
	if stream.ContentLength > 0 {
		c.Header("Content-Length", fmt.Sprintf("%d", stream.ContentLength))
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, stream.Body); err != nil {
		log.Printf("Proxy download interrupted: %v", err)
	}
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"message": "Access Denied or File Not Found"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "File not found"})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid input"})
	case errors.Is(err, service.ErrUpstream):
		c.JSON(http.StatusBadGateway, gin.H{"message": "Download failed"})
	default:
		log.Printf("Internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server Error"})
	}
}

// Package service orchestrates the request-facing disclosure
// operations on top of the access controller, the share registry, the
// link manager and the audit recorder. Every state-changing or
// disclosure action that succeeds leaves exactly one audit entry,
// written after the effect is durable.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/basit/nua-backend/access"
	"github.com/basit/nua-backend/links"
	"github.com/basit/nua-backend/models"
	"github.com/basit/nua-backend/share"
	"github.com/basit/nua-backend/storage"
)

// fetchTimeout bounds the outbound blob fetch during a proxied
// download. On expiry the request fails with an upstream error; bytes
// already flushed to the client are gone either way.
const fetchTimeout = 60 * time.Second

type FileStore interface {
	Create(ctx context.Context, f *models.File) error
	ByID(ctx context.Context, id uuid.UUID) (*models.File, error)
	OwnedBy(ctx context.Context, userID uuid.UUID) ([]models.File, error)
	SharedWithUser(ctx context.Context, userID uuid.UUID) ([]models.File, error)
}

type LinkManager interface {
	Generate(ctx context.Context, f *models.File, ttlHours float64) (links.Link, error)
	Resolve(ctx context.Context, token string) (*models.File, error)
}

type ShareRegistry interface {
	Grant(ctx context.Context, f *models.File, callerID uuid.UUID, emails []string, ip string) ([]share.Result, error)
	Revoke(ctx context.Context, f *models.File, callerID, userID uuid.UUID, ip string) error
}

type Auditor interface {
	Record(ctx context.Context, action string, actorID *uuid.UUID, fileID uuid.UUID, details, ip string)
	List(ctx context.Context, fileID uuid.UUID) ([]models.AuditLog, error)
}

type Disclosure struct {
	files  FileStore
	blobs  storage.Store
	links  LinkManager
	shares ShareRegistry
	audit  Auditor
	access *access.Controller
	now    func() time.Time
}

func NewDisclosure(files FileStore, blobs storage.Store, lm LinkManager, reg ShareRegistry, auditor Auditor) *Disclosure {
	return &Disclosure{
		files:  files,
		blobs:  blobs,
		links:  lm,
		shares: reg,
		audit:  auditor,
		access: access.NewController(),
		now:    time.Now,
	}
}

// Blob is one incoming upload.
type Blob struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadResult reports one blob's fate. A batch has no all-or-nothing
// semantics: items that made it stay durable even when later ones fail.
type UploadResult struct {
	Name string       `json:"name"`
	File *models.File `json:"file,omitempty"`
	Err  error        `json:"-"`
}

// FileLocation is the retrieval descriptor returned without touching
// bytes.
type FileLocation struct {
	ViewURL      string `json:"viewUrl"`
	DownloadURL  string `json:"downloadUrl"`
	MimeType     string `json:"mimeType"`
	ResourceType string `json:"resourceType"`
	OriginalName string `json:"originalName"`
}

// LinkView is the descriptor returned for a secure-link access.
type LinkView struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	MimeType     string    `json:"mimeType"`
	ResourceType string    `json:"resourceType"`
	Owner        string    `json:"owner"`
	FileURL      string    `json:"fileUrl"`
	DownloadURL  string    `json:"downloadUrl"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Stream carries a proxied download. Close releases the upstream
// connection and the fetch deadline.
type Stream struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
	Filename      string
	cancel        context.CancelFunc
}

func (s *Stream) Close() error {
	err := s.Body.Close()
	if s.cancel != nil {
		s.cancel()
	}
	return err
}

var unsafeFilenameChars = regexp.MustCompile(`[^\w\s.-]`)

// SanitizeFilename strips characters unsafe in a Content-Disposition
// header.
func SanitizeFilename(name string) string {
	return unsafeFilenameChars.ReplaceAllString(name, "_")
}

// Upload stores each blob with the backend, creates its record, and
// logs UPLOAD. Failures are per-item; earlier successes stand.
func (d *Disclosure) Upload(ctx context.Context, ownerID uuid.UUID, blobs []Blob, ip string) []UploadResult {
	results := make([]UploadResult, 0, len(blobs))
	for _, b := range blobs {
		desc, err := d.blobs.Upload(ctx, b.Name, b.ContentType, b.Body)
		if err != nil {
			results = append(results, UploadResult{Name: b.Name, Err: fmt.Errorf("%w: %v", ErrUpstream, err)})
			continue
		}
		f := &models.File{
			ID:           uuid.New(),
			OwnerID:      ownerID,
			OriginalName: b.Name,
			MimeType:     b.ContentType,
			Size:         b.Size,
			FileURL:      desc.URL,
			PublicID:     desc.Key,
			ResourceType: desc.ResourceType,
		}
		if err := d.files.Create(ctx, f); err != nil {
			results = append(results, UploadResult{Name: b.Name, Err: err})
			continue
		}
		d.audit.Record(ctx, models.ActionUpload, &ownerID, f.ID, fmt.Sprintf("Uploaded %s", b.Name), ip)
		results = append(results, UploadResult{Name: b.Name, File: f})
	}
	return results
}

// Dashboard returns the requester's owned files (with grantees) and
// the files shared with them (with owners), newest first.
func (d *Disclosure) Dashboard(ctx context.Context, userID uuid.UUID) (owned, sharedWithMe []models.File, err error) {
	owned, err = d.files.OwnedBy(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	sharedWithMe, err = d.files.SharedWithUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return owned, sharedWithMe, nil
}

// Describe returns the retrieval descriptor if access is allowed; no
// bytes move and nothing is logged.
func (d *Disclosure) Describe(ctx context.Context, fileID uuid.UUID, req access.Request) (*FileLocation, error) {
	f, err := d.loadFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if err := d.decide(f, req); err != nil {
		return nil, err
	}
	return &FileLocation{
		ViewURL:      f.FileURL,
		DownloadURL:  f.FileURL,
		MimeType:     f.MimeType,
		ResourceType: f.ResourceType,
		OriginalName: f.OriginalName,
	}, nil
}

// StreamDownload proxies the bytes from the backend. DOWNLOAD is
// recorded only after the upstream fetch has started successfully.
func (d *Disclosure) StreamDownload(ctx context.Context, fileID uuid.UUID, req access.Request, ip string) (*Stream, error) {
	f, err := d.loadFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if err := d.decide(f, req); err != nil {
		return nil, err
	}
	stream, err := d.openStream(ctx, f)
	if err != nil {
		return nil, err
	}
	d.audit.Record(ctx, models.ActionDownload, actorOf(req), f.ID, "Downloaded file", ip)
	return stream, nil
}

// AccessViaLink resolves a token and, when allowed, returns the file
// descriptor and records VIEW_LINK. An expired link still resolves;
// the access decision is what denies it.
func (d *Disclosure) AccessViaLink(ctx context.Context, token string, req access.Request, ip string) (*LinkView, error) {
	f, err := d.resolveLink(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := d.decide(f, req); err != nil {
		return nil, err
	}
	d.audit.Record(ctx, models.ActionViewLink, actorOf(req), f.ID, "Accessed via shared link", ip)
	return &LinkView{
		ID:           f.ID,
		Name:         f.OriginalName,
		Size:         f.Size,
		MimeType:     f.MimeType,
		ResourceType: f.ResourceType,
		Owner:        f.Owner.Name,
		FileURL:      f.FileURL,
		DownloadURL:  f.FileURL,
		CreatedAt:    f.CreatedAt,
	}, nil
}

// DownloadViaLink is the streaming counterpart of AccessViaLink and
// records DOWNLOAD_LINK.
func (d *Disclosure) DownloadViaLink(ctx context.Context, token string, req access.Request, ip string) (*Stream, error) {
	f, err := d.resolveLink(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := d.decide(f, req); err != nil {
		return nil, err
	}
	stream, err := d.openStream(ctx, f)
	if err != nil {
		return nil, err
	}
	d.audit.Record(ctx, models.ActionDownloadLink, actorOf(req), f.ID, "Downloaded via secure link", ip)
	return stream, nil
}

// GenerateLink mints a new share link for the file, replacing any
// prior one. Owner only.
func (d *Disclosure) GenerateLink(ctx context.Context, fileID, callerID uuid.UUID, ttlHours float64, ip string) (links.Link, error) {
	f, err := d.loadFile(ctx, fileID)
	if err != nil {
		return links.Link{}, err
	}
	if f.OwnerID != callerID {
		return links.Link{}, ErrUnauthorized
	}
	link, err := d.links.Generate(ctx, f, ttlHours)
	if err != nil {
		return links.Link{}, err
	}
	hours := links.NormalizeTTL(ttlHours)
	d.audit.Record(ctx, models.ActionLinkGenerate, &callerID, f.ID, fmt.Sprintf("Generated link expiring in %.2fh", hours), ip)
	return link, nil
}

// ActiveLink returns the file's current link if one exists and has not
// expired. Owner only.
func (d *Disclosure) ActiveLink(ctx context.Context, fileID, callerID uuid.UUID) (links.Link, error) {
	f, err := d.loadFile(ctx, fileID)
	if err != nil {
		return links.Link{}, err
	}
	if f.OwnerID != callerID {
		return links.Link{}, ErrUnauthorized
	}
	if !f.HasActiveLink(d.now()) {
		return links.Link{}, ErrNotFound
	}
	return links.Link{Token: *f.ShareLinkToken, ExpiresAt: *f.ShareLinkExpiresAt}, nil
}

// Share grants access to the listed emails, reporting every outcome.
// An empty candidate list is a validation failure, not a no-op.
func (d *Disclosure) Share(ctx context.Context, fileID, callerID uuid.UUID, emails []string, ip string) ([]share.Result, error) {
	if len(emails) == 0 {
		return nil, fmt.Errorf("%w: no emails provided", ErrValidation)
	}
	f, err := d.loadFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	results, err := d.shares.Grant(ctx, f, callerID, emails, ip)
	if errors.Is(err, share.ErrNotOwner) {
		return nil, ErrUnauthorized
	}
	return results, err
}

// RemoveAccess revokes one grantee's access.
func (d *Disclosure) RemoveAccess(ctx context.Context, fileID, callerID, userID uuid.UUID, ip string) error {
	f, err := d.loadFile(ctx, fileID)
	if err != nil {
		return err
	}
	err = d.shares.Revoke(ctx, f, callerID, userID, ip)
	if errors.Is(err, share.ErrNotOwner) {
		return ErrUnauthorized
	}
	return err
}

// Logs returns the file's audit trail, newest first. Owner only.
func (d *Disclosure) Logs(ctx context.Context, fileID, callerID uuid.UUID) ([]models.AuditLog, error) {
	f, err := d.loadFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if f.OwnerID != callerID {
		return nil, ErrUnauthorized
	}
	return d.audit.List(ctx, fileID)
}

func (d *Disclosure) loadFile(ctx context.Context, fileID uuid.UUID) (*models.File, error) {
	f, err := d.files.ByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, ErrNotFound
	}
	return f, nil
}

func (d *Disclosure) resolveLink(ctx context.Context, token string) (*models.File, error) {
	f, err := d.links.Resolve(ctx, token)
	if errors.Is(err, links.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (d *Disclosure) decide(f *models.File, req access.Request) error {
	if req.Now.IsZero() {
		req.Now = d.now()
	}
	if decision, _ := d.access.Decide(f, req); decision != access.Allow {
		return ErrUnauthorized
	}
	return nil
}

func (d *Disclosure) openStream(ctx context.Context, f *models.File) (*Stream, error) {
	fctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	body, length, err := d.blobs.Fetch(fctx, f.PublicID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	contentType := f.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &Stream{
		Body:          body,
		ContentType:   contentType,
		ContentLength: length,
		Filename:      SanitizeFilename(f.OriginalName),
		cancel:        cancel,
	}, nil
}

func actorOf(req access.Request) *uuid.UUID {
	if !req.Authenticated {
		return nil
	}
	id := req.UserID
	return &id
}

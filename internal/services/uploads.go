package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"roora/internal/amqp"
	"roora/internal/blob"
	"roora/internal/core"
	"roora/internal/log"
	"roora/internal/storage"
)

// MaxUploadSize caps photo and quote document uploads.
const MaxUploadSize = 10 << 20

var (
	ErrNoFile        = errors.New("No file provided")
	ErrFileTooLarge  = errors.New("File size must be under 10MB")
	ErrFileType      = errors.New("Only JPEG, PNG, WebP, and GIF images are allowed")
	ErrDocumentType  = errors.New("Only PDF and image files are allowed")
	ErrStorageAbsent = errors.New("file storage not configured")
)

var imageExts = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// readUpload buffers at most MaxUploadSize bytes of r and sniffs the type.
func readUpload(r io.Reader) ([]byte, string, error) {
	if r == nil {
		return nil, "", &core.ValidationError{Field: "file", Err: ErrNoFile}
	}
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, "", &core.ValidationError{Field: "file", Err: ErrNoFile}
	}
	if len(data) > MaxUploadSize {
		return nil, "", &core.ValidationError{Field: "file", Err: ErrFileTooLarge}
	}
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return data, ct, nil
}

func (p *Planner) millis() string {
	return strconv.FormatInt(p.now().UnixMilli(), 10)
}

func (p *Planner) ListPhotos(ctx context.Context, coupleID string) ([]core.InspirationPhoto, error) {
	return p.repo.ListPhotos(ctx, coupleID)
}

// UploadInspirationPhoto stores an image under <coupleID>/<unixmillis>.<ext>
// in the inspiration bucket and records it.
func (p *Planner) UploadInspirationPhoto(ctx context.Context, coupleID, caption string, r io.Reader) (core.InspirationPhoto, error) {
	if p.blobs == nil {
		return core.InspirationPhoto{}, ErrStorageAbsent
	}
	data, ct, err := readUpload(r)
	if err != nil {
		return core.InspirationPhoto{}, err
	}
	ext, ok := imageExts[ct]
	if !ok {
		return core.InspirationPhoto{}, &core.ValidationError{Field: "file", Err: ErrFileType}
	}

	name := coupleID + "/" + p.millis() + "." + ext
	if err := p.blobs.Put(ctx, blob.BucketInspiration, name, bytes.NewReader(data)); err != nil {
		return core.InspirationPhoto{}, fmt.Errorf("store photo: %w", err)
	}
	photo := core.InspirationPhoto{
		CoupleID: coupleID,
		FileURL:  blob.URL(blob.BucketInspiration, name),
		FilePath: name,
		Caption:  strings.TrimSpace(caption),
	}
	if err := p.repo.CreatePhoto(ctx, &photo); err != nil {
		_ = p.blobs.Delete(ctx, blob.BucketInspiration, name)
		return core.InspirationPhoto{}, err
	}
	p.changed(ctx, coupleID, amqp.EntityPhoto, photo.ID, amqp.OpCreate, "Added an inspiration photo")
	return photo, nil
}

// DeleteInspirationPhoto removes the stored file, best effort, then the row.
func (p *Planner) DeleteInspirationPhoto(ctx context.Context, coupleID, id string) error {
	photo, err := p.repo.GetPhoto(ctx, coupleID, id)
	if err != nil {
		return err
	}
	if p.blobs != nil && photo.FilePath != "" {
		if err := p.blobs.Delete(ctx, blob.BucketInspiration, photo.FilePath); err != nil {
			p.logger.WarnContext(ctx, "Failed to remove photo file", log.FieldEntityID, id, log.FieldError, err)
		}
	}
	if err := p.repo.DeletePhoto(ctx, coupleID, id); err != nil {
		return err
	}
	p.changed(ctx, coupleID, amqp.EntityPhoto, id, amqp.OpDelete, "Removed an inspiration photo")
	return nil
}

// UploadQuoteFile stores a quote document under
// quotes/<supplierID>/<unixmillis>.<ext> in the documents bucket and returns
// its URL. When quoteID is set the URL is saved on that quote.
func (p *Planner) UploadQuoteFile(ctx context.Context, coupleID, supplierID, quoteID string, r io.Reader) (string, error) {
	if p.blobs == nil {
		return "", ErrStorageAbsent
	}
	ok, err := p.repo.SupplierInCouple(ctx, coupleID, supplierID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", storage.ErrNotFound
	}
	data, ext, err := readDocument(r)
	if err != nil {
		return "", err
	}
	name, err := p.storeDocument(ctx, supplierID, data, ext)
	if err != nil {
		return "", err
	}
	url := blob.URL(blob.BucketDocuments, name)
	if quoteID == "" {
		return url, nil
	}
	if err := p.repo.SetQuoteFile(ctx, coupleID, quoteID, url); err != nil {
		_ = p.blobs.Delete(ctx, blob.BucketDocuments, name)
		return "", err
	}
	p.changed(ctx, coupleID, amqp.EntityQuote, quoteID, amqp.OpUpdate, "Attached a quote document")
	return url, nil
}

// CreateQuoteWithFile creates q with its document attached. The quote and
// the file are both checked before anything is written, so a rejected file
// leaves no quote behind.
func (p *Planner) CreateQuoteWithFile(ctx context.Context, coupleID string, q core.Quote, r io.Reader) (core.Quote, error) {
	if p.blobs == nil {
		return core.Quote{}, ErrStorageAbsent
	}
	data, ext, err := readDocument(r)
	if err != nil {
		return core.Quote{}, err
	}
	if err := p.prepareQuote(ctx, coupleID, &q); err != nil {
		return core.Quote{}, err
	}
	ok, err := p.repo.SupplierInCouple(ctx, coupleID, q.SupplierID)
	if err != nil {
		return core.Quote{}, err
	}
	if !ok {
		return core.Quote{}, storage.ErrNotFound
	}

	name, err := p.storeDocument(ctx, q.SupplierID, data, ext)
	if err != nil {
		return core.Quote{}, err
	}
	q.QuoteFileURL = blob.URL(blob.BucketDocuments, name)
	created, err := p.insertQuote(ctx, coupleID, q)
	if err != nil {
		_ = p.blobs.Delete(ctx, blob.BucketDocuments, name)
		return core.Quote{}, err
	}
	return created, nil
}

// readDocument reads a quote document, which may be a PDF or an image.
func readDocument(r io.Reader) ([]byte, string, error) {
	data, ct, err := readUpload(r)
	if err != nil {
		return nil, "", err
	}
	if ct == "application/pdf" {
		return data, "pdf", nil
	}
	ext, ok := imageExts[ct]
	if !ok {
		return nil, "", &core.ValidationError{Field: "file", Err: ErrDocumentType}
	}
	return data, ext, nil
}

func (p *Planner) storeDocument(ctx context.Context, supplierID string, data []byte, ext string) (string, error) {
	name := "quotes/" + supplierID + "/" + p.millis() + "." + ext
	if err := p.blobs.Put(ctx, blob.BucketDocuments, name, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("store quote file: %w", err)
	}
	return name, nil
}

// OpenFile returns a stored file the couple may read: inspiration files
// must live under the couple's id, documents under one of its suppliers.
func (p *Planner) OpenFile(ctx context.Context, coupleID, bucket, name string) (io.ReadCloser, error) {
	if p.blobs == nil {
		return nil, ErrStorageAbsent
	}
	if !p.canRead(ctx, coupleID, bucket, name) {
		return nil, storage.ErrNotFound
	}
	rc, err := p.blobs.Open(ctx, bucket, name)
	if errors.Is(err, blob.ErrNotFound) || errors.Is(err, blob.ErrInvalidPath) || errors.Is(err, blob.ErrUnknownBucket) {
		return nil, storage.ErrNotFound
	}
	return rc, err
}

func (p *Planner) canRead(ctx context.Context, coupleID, bucket, name string) bool {
	if path.Clean(name) != name {
		return false
	}
	parts := strings.Split(name, "/")
	switch bucket {
	case blob.BucketInspiration:
		return len(parts) == 2 && parts[0] == coupleID
	case blob.BucketDocuments:
		if len(parts) != 3 || parts[0] != "quotes" {
			return false
		}
		ok, err := p.repo.SupplierInCouple(ctx, coupleID, parts[1])
		return err == nil && ok
	}
	return false
}

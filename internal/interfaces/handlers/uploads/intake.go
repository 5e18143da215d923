package uploads

import (
	"context"
	"io"
	"mime/multipart"
	"strings"

	"roomlink-backend/internal/application/gallery"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Store is the file store the handlers write uploads to. *uploads.Service satisfies it.
type Store interface {
	Put(ctx context.Context, bucket, fileName, contentType string, body io.Reader) (string, error)
	Remove(ctx context.Context, refs []string) error
}

// Part is a received multipart file with its content type sniffed from the bytes.
type Part struct {
	Header      *multipart.FileHeader
	ContentType string
}

// File converts the part to a gallery file with no reference yet.
func (p Part) File() gallery.File {
	return gallery.File{Name: p.Header.Filename, ContentType: p.ContentType, Size: p.Header.Size}
}

// Collect returns the files sent under field. A request that is not multipart yields no parts.
func Collect(c *fiber.Ctx, field string) ([]Part, error) {
	if !strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}
	headers := form.File[field]
	parts := make([]Part, 0, len(headers))
	for _, fh := range headers {
		ct, err := sniff(fh)
		if err != nil {
			return nil, err
		}
		parts = append(parts, Part{Header: fh, ContentType: ct})
	}
	return parts, nil
}

func sniff(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return "", err
	}
	return mt.String(), nil
}

// Files returns the gallery view of parts.
func Files(parts []Part) []gallery.File {
	out := make([]gallery.File, len(parts))
	for i, p := range parts {
		out[i] = p.File()
	}
	return out
}

// StoreAll uploads every part to bucket and returns the gallery files with Ref set.
// If any upload fails, the files already stored are removed.
func StoreAll(ctx context.Context, store Store, bucket string, parts []Part) ([]gallery.File, error) {
	files := make([]gallery.File, 0, len(parts))
	for _, p := range parts {
		ref, err := put(ctx, store, bucket, p)
		if err != nil {
			Discard(ctx, store, Refs(files))
			return nil, err
		}
		f := p.File()
		f.Ref = ref
		files = append(files, f)
	}
	return files, nil
}

func put(ctx context.Context, store Store, bucket string, p Part) (string, error) {
	f, err := p.Header.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	return store.Put(ctx, bucket, p.Header.Filename, p.ContentType, f)
}

// Refs returns the store references of files.
func Refs(files []gallery.File) []string {
	refs := make([]string, 0, len(files))
	for _, f := range files {
		if f.Ref != "" {
			refs = append(refs, f.Ref)
		}
	}
	return refs
}

// Discard removes refs from the store, logging failures.
func Discard(ctx context.Context, store Store, refs []string) {
	if len(refs) == 0 {
		return
	}
	if err := store.Remove(ctx, refs); err != nil {
		log.Warn().Err(err).Strs("refs", refs).Msg("uploads: failed to remove stored files")
	}
}

// AllowedDocument reports whether contentType is accepted as a verification document.
func AllowedDocument(contentType string) bool {
	mt := mimetype.Lookup(contentType)
	if mt == nil {
		return false
	}
	for _, allowed := range []string{"application/pdf", "image/jpeg", "image/png"} {
		if mt.Is(allowed) {
			return true
		}
	}
	return false
}

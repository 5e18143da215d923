package gallery

import (
	"mime"
	"slices"
	"strings"

	"roomlink-backend/internal/domain"

	"github.com/google/uuid"
)

const (
	MaxVideos           = 2
	MaxVideoBytes int64 = 20 * 1024 * 1024
)

// allowedTypes is the upload allowlist and the kind each type maps to.
var allowedTypes = map[string]domain.MediaKind{
	"image/jpeg":      domain.MediaImage,
	"image/png":       domain.MediaImage,
	"image/webp":      domain.MediaImage,
	"image/gif":       domain.MediaImage,
	"video/mp4":       domain.MediaVideo,
	"video/quicktime": domain.MediaVideo,
	"video/webm":      domain.MediaVideo,
}

// File is one submitted attachment. Ref is the file store reference and is
// empty until the bytes have been stored.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Ref         string
}

// KindOf returns the media kind for an allowed content type.
func KindOf(contentType string) (domain.MediaKind, bool) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(contentType))
	}
	kind, ok := allowedTypes[mt]
	return kind, ok
}

// Validate checks files against the allowlist, the per-video size ceiling and the
// per-listing video cap (counting what is already attached).
func Validate(existing []domain.MediaItem, files []File) error {
	videos := 0
	for _, m := range existing {
		if m.Kind == domain.MediaVideo {
			videos++
		}
	}
	for _, f := range files {
		kind, ok := KindOf(f.ContentType)
		if !ok {
			return domain.Invalid("media", "%s: file type %q is not allowed", f.Name, f.ContentType)
		}
		if kind != domain.MediaVideo {
			continue
		}
		if f.Size > MaxVideoBytes {
			return domain.Invalid("media", "%s: max video size is %dMB", f.Name, MaxVideoBytes/(1024*1024))
		}
		videos++
	}
	if videos > MaxVideos {
		return domain.Invalid("media", "A listing can have at most %d videos", MaxVideos)
	}
	return nil
}

// Attach returns new media items for files, appended after existing in submission order.
// When the listing has no media yet the first new item is primary.
// Nothing is returned unless every file is acceptable.
func Attach(listingID uuid.UUID, existing []domain.MediaItem, files []File) ([]domain.MediaItem, error) {
	if err := Validate(existing, files); err != nil {
		return nil, err
	}
	for _, f := range files {
		if f.Ref == "" {
			return nil, domain.Invalid("media", "%s: file has not been stored", f.Name)
		}
	}

	next := 0
	for _, m := range existing {
		if m.Position >= next {
			next = m.Position + 1
		}
	}
	created := make([]domain.MediaItem, 0, len(files))
	for i, f := range files {
		kind, _ := KindOf(f.ContentType)
		created = append(created, domain.MediaItem{
			MediaID:     uuid.New(),
			ListingID:   listingID,
			FileRef:     f.Ref,
			Kind:        kind,
			ContentType: f.ContentType,
			SizeBytes:   f.Size,
			Position:    next + i,
			IsPrimary:   len(existing) == 0 && i == 0,
		})
	}
	return created, nil
}

// Ordered sorts items by position in place.
func Ordered(items []domain.MediaItem) []domain.MediaItem {
	slices.SortStableFunc(items, func(a, b domain.MediaItem) int {
		return a.Position - b.Position
	})
	return items
}

// EnsurePrimary leaves exactly one primary item when items is non-empty: the
// lowest-position primary if any, otherwise the lowest-position item.
// It returns the ids whose flag changed.
func EnsurePrimary(items []domain.MediaItem) []uuid.UUID {
	if len(items) == 0 {
		return nil
	}
	keep := -1
	for i, m := range items {
		if m.IsPrimary && (keep < 0 || m.Position < items[keep].Position) {
			keep = i
		}
	}
	if keep < 0 {
		keep = 0
		for i, m := range items {
			if m.Position < items[keep].Position {
				keep = i
			}
		}
	}
	var changed []uuid.UUID
	for i := range items {
		want := i == keep
		if items[i].IsPrimary != want {
			items[i].IsPrimary = want
			changed = append(changed, items[i].MediaID)
		}
	}
	return changed
}

// SetPrimary makes mediaID the only primary item.
func SetPrimary(items []domain.MediaItem, mediaID uuid.UUID) error {
	found := false
	for _, m := range items {
		if m.MediaID == mediaID {
			found = true
			break
		}
	}
	if !found {
		return domain.Invalid("media_id", "Media item does not belong to this listing")
	}
	for i := range items {
		items[i].IsPrimary = items[i].MediaID == mediaID
	}
	return nil
}

// Primary returns the primary item or nil.
func Primary(items []domain.MediaItem) *domain.MediaItem {
	for i := range items {
		if items[i].IsPrimary {
			return &items[i]
		}
	}
	return nil
}

// Thumbnail is the primary item's reference, or "" when there is no media.
func Thumbnail(items []domain.MediaItem) string {
	if p := Primary(items); p != nil {
		return p.FileRef
	}
	return ""
}

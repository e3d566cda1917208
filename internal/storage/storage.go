// Package storage persists photo blobs for fault, resolution and duty
// check records, handing back durable retrieval URLs.
package storage

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
)

var ErrFileNotFound = errors.New("storage: file not found")

// PhotoKind scopes uploaded images by the record they document.
type PhotoKind string

const (
	PhotoKindFault      PhotoKind = "faults"
	PhotoKindResolution PhotoKind = "resolutions"
	PhotoKindPatrol     PhotoKind = "patrols"
)

// PhotoRef identifies a stored photo. Key addresses the blob within the
// backend; URL is what gets persisted on the record and shown to users.
type PhotoRef struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Storage is the blob backend contract. Uploads are all-or-nothing per
// file; there is no resumable or chunked path.
type Storage interface {
	Upload(ctx context.Context, kind PhotoKind, entityID uuid.UUID, filename string, content io.Reader, contentType string) (PhotoRef, error)
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

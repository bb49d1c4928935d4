// Package media archives incoming attachments (voice notes, photos,
// documents) to Cloud Storage before they are processed.
package media

import (
	"context"
	"fmt"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const uploadTimeout = 2 * time.Minute

// Archiver copies attachment bytes to a GCS bucket. A nil Archiver or
// an empty bucket name disables archiving without failing the message.
type Archiver struct {
	client *storage.Client
	bucket string
	log    zerolog.Logger
}

// NewArchiver creates an archiver backed by Application Default
// Credentials. An empty bucket returns a disabled archiver and no
// storage client is created.
func NewArchiver(ctx context.Context, bucket string, log zerolog.Logger) (*Archiver, error) {
	if bucket == "" {
		return &Archiver{log: log}, nil
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewArchiver: creating storage client: %w", err)
	}
	return &Archiver{client: client, bucket: bucket, log: log}, nil
}

func (a *Archiver) Enabled() bool {
	return a != nil && a.client != nil
}

func (a *Archiver) Close() error {
	if a == nil || a.client == nil {
		return nil
	}
	return a.client.Close()
}

// Archive uploads the bytes under a date-partitioned object name and
// returns the gs:// URI. When disabled it returns an empty URI and no
// error.
func (a *Archiver) Archive(ctx context.Context, chatID int64, filename string, data []byte) (string, error) {
	if !a.Enabled() {
		return "", nil
	}

	objectName := fmt.Sprintf("attachments/%s/%d/%s-%s",
		time.Now().UTC().Format("2006-01-02"), chatID, uuid.NewString(), path.Base(filename))

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := a.client.Bucket(a.bucket).Object(objectName).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("Archive: writing object %q: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Archive: finalizing upload %q: %w", objectName, err)
	}

	uri := fmt.Sprintf("gs://%s/%s", a.bucket, objectName)
	a.log.Debug().Str("uri", uri).Int("bytes", len(data)).Msg("attachment archived")
	return uri, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"sync"
	"time"

	"mediband/api/internal/apperr"
	"mediband/api/pkg/validators"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// TempFilePattern names every temp file the uploader creates, the sweeper
// only ever touches files matching it.
const TempFilePattern = "mediband-upload-*"

const (
	maxParallelUploads = 4
	uploadTimeout      = 2 * time.Minute
	discardTimeout     = 30 * time.Second
)

// ObjectStorage is a bucket that serves its objects on a public URL.
type ObjectStorage interface {
	Upload(ctx context.Context, localPath, key, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

type Attachment struct {
	Key         string
	URL         string
	ContentType string
}

type UploadConfig struct {
	MaxFiles     int
	MaxSize      int64
	AllowedTypes []string
	TempDir      string
}

type Uploader struct {
	storage ObjectStorage
	cfg     UploadConfig
	now     func() time.Time
}

func NewUploader(storage ObjectStorage, cfg UploadConfig) *Uploader {
	return &Uploader{storage: storage, cfg: cfg, now: time.Now}
}

// TempFile is a request scoped copy of an uploaded file on local disk.
// Release it with defer right after acquiring it.
type TempFile struct {
	Path string
	once sync.Once
}

func acquireTempFile(fh *multipart.FileHeader, dir string) (*TempFile, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file, %w", err)
	}
	defer src.Close()

	dst, err := os.CreateTemp(dir, TempFilePattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file, %w", err)
	}

	tmp := &TempFile{Path: dst.Name()}

	_, err = io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		tmp.Release()
		return nil, fmt.Errorf("failed to write temp file, %w", err)
	}

	return tmp, nil
}

// Release removes the file. Calling it more than once is fine.
func (t *TempFile) Release() {
	t.once.Do(func() {
		if err := os.Remove(t.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			zap.L().Warn("Failed to remove temp file", zap.Error(err), zap.String("path", t.Path))
		}
	})
}

type stagedFile struct {
	tmp         *TempFile
	contentType string
	ext         string
}

// UploadAll stores every file under folder and returns them in input order.
// It is all or nothing: on any failure the objects already stored are
// deleted again and apperr.ErrUpload is returned. Bad files are reported as
// a *apperr.ValidationError on the field named like folder before anything
// is uploaded. Temp files are gone when UploadAll returns.
func (u *Uploader) UploadAll(ctx context.Context, files []*multipart.FileHeader, folder string) ([]Attachment, error) {
	if len(files) == 0 {
		return []Attachment{}, nil
	}

	if u.cfg.MaxFiles > 0 && len(files) > u.cfg.MaxFiles {
		ve := apperr.NewValidationError()
		ve.Add(folder, fmt.Sprintf("at most %d files are allowed", u.cfg.MaxFiles))
		return nil, ve
	}

	staged := make([]stagedFile, 0, len(files))
	defer func() {
		for _, s := range staged {
			s.tmp.Release()
		}
	}()

	for i, fh := range files {
		if err := validators.AttachmentValidator(fh, u.cfg.MaxSize); err != nil {
			return nil, fileError(folder, i, err)
		}

		tmp, err := acquireTempFile(fh, u.cfg.TempDir)
		if err != nil {
			return nil, err
		}
		staged = append(staged, stagedFile{tmp: tmp})

		mime, err := validators.DetectType(tmp.Path, u.cfg.AllowedTypes)
		if err != nil {
			if errors.Is(err, validators.ErrFileTypeUnsupported) {
				return nil, fileError(folder, i, err)
			}
			return nil, err
		}

		staged[i].contentType = mime.String()
		staged[i].ext = mime.Extension()
	}

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	out := make([]Attachment, len(staged))
	p := pool.New().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(maxParallelUploads)

	for i, s := range staged {
		p.Go(func(ctx context.Context) error {
			key := u.objectKey(folder, s.ext)

			url, err := u.storage.Upload(ctx, s.tmp.Path, key, s.contentType)
			if err != nil {
				return fmt.Errorf("failed to upload %s, %w", key, err)
			}

			out[i] = Attachment{Key: key, URL: url, ContentType: s.contentType}
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		var uploaded []Attachment
		for _, a := range out {
			if a.Key != "" {
				uploaded = append(uploaded, a)
			}
		}

		if derr := u.Discard(ctx, uploaded); derr != nil {
			zap.L().Error("Failed to clean up after failed upload", zap.Error(derr))
		}

		return nil, fmt.Errorf("%w: %w", apperr.ErrUpload, err)
	}

	return out, nil
}

// Discard deletes attachments from storage, it keeps going past failures.
func (u *Uploader) Discard(ctx context.Context, attachments []Attachment) error {
	if len(attachments) == 0 {
		return nil
	}

	// The request may already be cancelled, cleanup still has to happen
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
	defer cancel()

	var err error
	for _, a := range attachments {
		if derr := u.storage.Delete(ctx, a.Key); derr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to delete %s, %w", a.Key, derr))
			continue
		}

		zap.L().Debug("Removed uploaded object", zap.String("key", a.Key))
	}

	return err
}

// objectKey is <folder>/<yyyy>/<mm>/<uuid><ext>
func (u *Uploader) objectKey(folder, ext string) string {
	now := u.now().UTC()
	return path.Join(folder, now.Format("2006"), now.Format("01"), uuid.NewString()+ext)
}

func fileError(field string, index int, err error) error {
	ve := apperr.NewValidationError()
	ve.Add(field, fmt.Sprintf("file %d: %s", index+1, err))
	return ve
}

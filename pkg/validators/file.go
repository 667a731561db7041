package validators

import (
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrFileTooLarge        = errors.New("file too large")
	ErrFileNameTooLong     = errors.New("file name is too long")
	ErrFileTypeUnsupported = errors.New("unsupported file type")
	ErrNoFile              = errors.New("no file provided")
	ErrEmptyFile           = errors.New("file is empty")
)

const maxFileNameSize = 255

// AttachmentValidator runs the cheap checks that only need the multipart
// header. Content checks happen once the file is on disk, see DetectType.
func AttachmentValidator(fh *multipart.FileHeader, maxSize int64) error {
	if fh == nil {
		return ErrNoFile
	}

	if len(fh.Filename) > maxFileNameSize {
		return ErrFileNameTooLong
	}

	if fh.Size <= 0 {
		return ErrEmptyFile
	}

	if maxSize > 0 && fh.Size > maxSize {
		return ErrFileTooLarge
	}

	return nil
}

// DetectType sniffs the content at path and checks it against allowed.
// The client supplied Content-Type header is never trusted.
func DetectType(path string, allowed []string) (*mimetype.MIME, error) {
	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to detect file type, %w", err)
	}

	if len(allowed) == 0 {
		return mime, nil
	}

	for _, a := range allowed {
		if mime.Is(a) {
			return mime, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrFileTypeUnsupported, mime.String())
}

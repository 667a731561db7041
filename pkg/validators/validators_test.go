package validators

import (
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailValidator(t *testing.T) {
	tests := []struct {
		email string
		want  error
	}{
		{"jane@example.com", nil},
		{"jane.doe+med@sub.example.org", nil},
		{"", ErrEmailEmpty},
		{"   ", ErrEmailEmpty},
		{"jane", ErrEmailInvalid},
		{"Jane <jane@example.com>", ErrEmailInvalid},
		{"jane@", ErrEmailInvalid},
		{strings.Repeat("a", 250) + "@example.com", ErrEmailInvalid},
	}

	for _, tt := range tests {
		assert.ErrorIs(t, EmailValidator(tt.email), tt.want, tt.email)
		if tt.want == nil {
			assert.NoError(t, EmailValidator(tt.email), tt.email)
		}
	}
}

func TestPasswordValidator(t *testing.T) {
	tests := []struct {
		name string
		pass string
		want error
	}{
		{"ok", "hunter22hunter22", nil},
		{"empty", "", ErrPasswordEmpty},
		{"short", "abc", ErrPasswordTooShort},
		{"long", strings.Repeat("p", 256), ErrPasswordTooLong},
		{"invalid utf8", "password\xff", ErrPasswordInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := PasswordValidator(tt.pass)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAttachmentValidator(t *testing.T) {
	assert.ErrorIs(t, AttachmentValidator(nil, 10), ErrNoFile)
	assert.ErrorIs(t, AttachmentValidator(&multipart.FileHeader{Filename: "a.png"}, 10), ErrEmptyFile)
	assert.ErrorIs(t, AttachmentValidator(&multipart.FileHeader{Filename: "a.png", Size: 11}, 10), ErrFileTooLarge)
	assert.ErrorIs(t, AttachmentValidator(&multipart.FileHeader{Filename: strings.Repeat("a", 300), Size: 1}, 10), ErrFileNameTooLong)
	assert.NoError(t, AttachmentValidator(&multipart.FileHeader{Filename: "a.png", Size: 10}, 10))
}

func TestDetectType(t *testing.T) {
	dir := t.TempDir()

	pdf := filepath.Join(dir, "scan.bin")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n"), 0o600))

	mime, err := DetectType(pdf, []string{"image/png", "application/pdf"})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", mime.String())
	assert.Equal(t, ".pdf", mime.Extension())

	txt := filepath.Join(dir, "notes.pdf")
	require.NoError(t, os.WriteFile(txt, []byte("just some text"), 0o600))

	_, err = DetectType(txt, []string{"image/png", "application/pdf"})
	assert.ErrorIs(t, err, ErrFileTypeUnsupported)
}

package service

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mediband/api/config"
	"mediband/api/db"
	"mediband/api/internal/session"
	"mediband/api/internal/store"
	"mediband/api/pkg/security"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 64)...)
	pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := db.New(config.DBConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)

	return conn
}

func fastHasher() *security.ArgonHash {
	return &security.ArgonHash{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type authFixture struct {
	auth  *Authenticator
	users *store.UserStore
	db    *gorm.DB
	clock *testClock
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	conn := newTestDB(t)
	users := store.NewUserStore(conn)

	tokens, err := security.NewTokenHasher("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	sessStore := session.NewMemoryStore()
	t.Cleanup(func() { sessStore.Close() })

	clock := &testClock{now: time.Now()}
	manager := session.NewManager(session.Config{TTL: 24 * time.Hour, TouchInterval: time.Hour}, sessStore, tokens, session.WithClock(clock.Now))

	auth, err := NewAuthenticator(users, fastHasher(), manager)
	require.NoError(t, err)

	return &authFixture{auth: auth, users: users, db: conn, clock: clock}
}

type testFile struct {
	name    string
	content []byte
}

// fileHeaders builds real multipart headers the way net/http parses them.
func fileHeaders(t *testing.T, field string, files ...testFile) []*multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := w.CreateFormFile(field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })

	return form.File[field]
}

var errStorageDown = errors.New("storage down")

// fakeStorage keeps object keys in memory. failOn makes the nth upload fail.
type fakeStorage struct {
	mu      sync.Mutex
	objects map[string]string
	deleted []string
	calls   atomic.Int32
	failOn  int32
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string]string{}}
}

func (f *fakeStorage) Upload(ctx context.Context, localPath, key, contentType string) (string, error) {
	if n := f.calls.Add(1); n == f.failOn {
		return "", errStorageDown
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if _, err := os.Stat(localPath); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = contentType

	return "https://cdn.test/" + key, nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStorage) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

func newTestUploader(t *testing.T, storage ObjectStorage) (*Uploader, string) {
	t.Helper()

	dir := t.TempDir()
	u := NewUploader(storage, UploadConfig{
		MaxFiles:     10,
		MaxSize:      1 << 20,
		AllowedTypes: []string{"image/png", "image/jpeg", "application/pdf"},
		TempDir:      dir,
	})

	return u, dir
}

func dirEntries(t *testing.T, dir string) int {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

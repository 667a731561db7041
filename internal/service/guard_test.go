package service

import (
	"context"
	"errors"
	"testing"

	"mediband/api/internal/apperr"
	"mediband/api/internal/model"
	"mediband/api/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type guardFixture struct {
	guard   *RecordGuard
	records *store.RecordStore
	storage *fakeStorage
	alice   *model.User
	bob     *model.User
}

func newGuardFixture(t *testing.T, resubmit store.ResubmitPolicy, lookup ReadPolicy) *guardFixture {
	t.Helper()

	conn := newTestDB(t)
	users := store.NewUserStore(conn)
	records := store.NewRecordStore(conn)
	storage := newFakeStorage()
	uploader, _ := newTestUploader(t, storage)

	alice := &model.User{ID: "alice", FullName: "Alice", Email: "alice@example.com", PasswordHash: "x"}
	bob := &model.User{ID: "bob", FullName: "Bob", Email: "bob@example.com", PasswordHash: "x"}
	require.NoError(t, users.Create(context.Background(), alice))
	require.NoError(t, users.Create(context.Background(), bob))

	return &guardFixture{
		guard:   NewRecordGuard(records, uploader, resubmit, lookup),
		records: records,
		storage: storage,
		alice:   alice,
		bob:     bob,
	}
}

func recordInput() store.RecordInput {
	return store.RecordInput{
		Age:              "41",
		Height:           "180",
		Weight:           "80",
		Gender:           "male",
		BloodGroup:       "A-",
		EmergencyContact: "+15550199",
		FamilyHistory:    `{"asthma":true}`,
	}
}

func TestAuthorizeWriteOwnsRecordByCaller(t *testing.T) {
	f := newGuardFixture(t, store.ResubmitCreate, ReadOwner)
	ctx := context.Background()

	files := fileHeaders(t, "prescriptions", testFile{"a.png", pngBytes}, testFile{"b.pdf", pdfBytes})

	rec, err := f.guard.AuthorizeWrite(ctx, f.alice, recordInput(), files)
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, rec.UserID)
	assert.Equal(t, f.alice, rec.User)
	require.Len(t, rec.Prescriptions, 2)
	assert.Contains(t, rec.Prescriptions[1], ".pdf")

	got, err := f.guard.AuthorizeRead(ctx, "", f.alice)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.True(t, got.FamilyHistory.Asthma)
	assert.Equal(t, rec.Prescriptions, got.Prescriptions)

	_, err = f.guard.AuthorizeRead(ctx, "", f.bob)
	assert.ErrorIs(t, err, apperr.ErrRecordNotFound)
}

func TestAuthorizeWriteNeedsUser(t *testing.T) {
	f := newGuardFixture(t, store.ResubmitCreate, ReadOwner)

	_, err := f.guard.AuthorizeWrite(context.Background(), nil, recordInput(), nil)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestAuthorizeWriteValidationUploadsNothing(t *testing.T) {
	f := newGuardFixture(t, store.ResubmitCreate, ReadOwner)
	ctx := context.Background()

	in := recordInput()
	in.Age = "old"

	_, err := f.guard.AuthorizeWrite(ctx, f.alice, in, fileHeaders(t, "prescriptions", testFile{"a.png", pngBytes}))
	assert.True(t, apperr.IsValidation(err))
	assert.Zero(t, f.storage.calls.Load())

	_, err = f.guard.AuthorizeRead(ctx, "", f.alice)
	assert.ErrorIs(t, err, apperr.ErrRecordNotFound)
}

func TestAuthorizeWriteUploadFailurePersistsNothing(t *testing.T) {
	f := newGuardFixture(t, store.ResubmitCreate, ReadOwner)
	f.storage.failOn = 3
	ctx := context.Background()

	files := fileHeaders(t, "prescriptions",
		testFile{"a.png", pngBytes},
		testFile{"b.png", pngBytes},
		testFile{"c.png", pngBytes},
		testFile{"d.pdf", pdfBytes},
	)

	_, err := f.guard.AuthorizeWrite(ctx, f.alice, recordInput(), files)
	assert.ErrorIs(t, err, apperr.ErrUpload)
	assert.Zero(t, f.storage.count())

	_, err = f.guard.AuthorizeRead(ctx, "", f.alice)
	assert.ErrorIs(t, err, apperr.ErrRecordNotFound)
}

type failingRecords struct {
	*store.RecordStore
}

func (failingRecords) Save(context.Context, *model.MedicalRecord, store.ResubmitPolicy) error {
	return errors.New("disk full")
}

func TestAuthorizeWriteSaveFailureDiscardsAttachments(t *testing.T) {
	f := newGuardFixture(t, store.ResubmitCreate, ReadOwner)
	uploader, _ := newTestUploader(t, f.storage)
	guard := NewRecordGuard(failingRecords{f.records}, uploader, store.ResubmitCreate, ReadOwner)

	_, err := guard.AuthorizeWrite(context.Background(), f.alice, recordInput(), fileHeaders(t, "prescriptions", testFile{"a.png", pngBytes}))
	assert.Error(t, err)
	assert.Equal(t, int32(1), f.storage.calls.Load())
	assert.Zero(t, f.storage.count())
	assert.Len(t, f.storage.deleted, 1)
}

func TestAuthorizeWriteRejectPolicyChecksBeforeUpload(t *testing.T) {
	f := newGuardFixture(t, store.ResubmitReject, ReadOwner)
	ctx := context.Background()

	_, err := f.guard.AuthorizeWrite(ctx, f.alice, recordInput(), nil)
	require.NoError(t, err)

	_, err = f.guard.AuthorizeWrite(ctx, f.alice, recordInput(), fileHeaders(t, "prescriptions", testFile{"a.png", pngBytes}))
	assert.ErrorIs(t, err, apperr.ErrRecordExists)
	assert.Zero(t, f.storage.calls.Load())
}

func TestAuthorizeReadSelfNeedsCaller(t *testing.T) {
	f := newGuardFixture(t, store.ResubmitCreate, ReadPublic)

	_, err := f.guard.AuthorizeRead(context.Background(), "", nil)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestAuthorizeReadLookupPolicies(t *testing.T) {
	tests := []struct {
		policy ReadPolicy
		caller func(f *guardFixture) *model.User
		want   error
	}{
		{ReadPublic, func(*guardFixture) *model.User { return nil }, nil},
		{ReadPublic, func(f *guardFixture) *model.User { return f.bob }, nil},
		{ReadAuthenticated, func(*guardFixture) *model.User { return nil }, apperr.ErrUnauthenticated},
		{ReadAuthenticated, func(f *guardFixture) *model.User { return f.bob }, nil},
		{ReadOwner, func(*guardFixture) *model.User { return nil }, apperr.ErrUnauthenticated},
		{ReadOwner, func(f *guardFixture) *model.User { return f.bob }, apperr.ErrForbidden},
		{ReadOwner, func(f *guardFixture) *model.User { return f.alice }, nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			f := newGuardFixture(t, store.ResubmitCreate, tt.policy)
			ctx := context.Background()

			_, err := f.guard.AuthorizeWrite(ctx, f.alice, recordInput(), nil)
			require.NoError(t, err)

			rec, err := f.guard.AuthorizeRead(ctx, f.alice.ID, tt.caller(f))
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, f.alice.ID, rec.UserID)
			require.NotNil(t, rec.User)
			assert.Equal(t, "alice@example.com", rec.User.Email)
		})
	}
}

func TestAuthorizeReadUnknownUser(t *testing.T) {
	f := newGuardFixture(t, store.ResubmitCreate, ReadPublic)

	_, err := f.guard.AuthorizeRead(context.Background(), "ghost", nil)
	assert.ErrorIs(t, err, apperr.ErrRecordNotFound)
}

func TestParseReadPolicy(t *testing.T) {
	p, err := ParseReadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, ReadPublic, p)

	_, err = ParseReadPolicy("friends")
	assert.Error(t, err)
}

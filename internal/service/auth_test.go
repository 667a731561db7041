package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"mediband/api/internal/apperr"
	"mediband/api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var client = ClientInfo{IP: "127.0.0.1", UserAgent: "go-test"}

func register(t *testing.T, f *authFixture, email string) *AuthResult {
	t.Helper()

	res, err := f.auth.Register(context.Background(), RegisterInput{
		FullName: "Jane Doe",
		Email:    email,
		Password: "correct-horse",
	}, client)
	require.NoError(t, err)

	return res
}

func TestRegisterLogsIn(t *testing.T) {
	f := newAuthFixture(t)
	res := register(t, f, "jane@example.com")

	assert.Len(t, res.User.ID, userIDLength)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, res.User.ID, res.Session.UserID)
	assert.Equal(t, "127.0.0.1", res.Session.IPAddress)

	u, s, err := f.auth.Authenticate(context.Background(), res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, u.ID)
	assert.Equal(t, res.Session.ID, s.ID)
}

func TestRegisterStoresOnlyAVerifier(t *testing.T) {
	f := newAuthFixture(t)
	res := register(t, f, "jane@example.com")

	stored, err := f.users.FindByID(context.Background(), res.User.ID)
	require.NoError(t, err)
	assert.NotContains(t, stored.PasswordHash, "correct-horse")
	assert.True(t, strings.HasPrefix(stored.PasswordHash, "$argon2id$"))
}

func TestRegisterRejectsBadInput(t *testing.T) {
	f := newAuthFixture(t)

	for _, in := range []RegisterInput{
		{FullName: "", Email: "a@example.com", Password: "password1"},
		{FullName: "  ", Email: "a@example.com", Password: "password1"},
		{FullName: "A", Email: "", Password: "password1"},
		{FullName: "A", Email: "a@example.com", Password: ""},
		{FullName: "A", Email: "not-an-email", Password: "password1"},
		{FullName: "A", Email: "a@example.com", Password: "short"},
	} {
		_, err := f.auth.Register(context.Background(), in, client)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput, "%+v", in)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	register(t, f, "jane@example.com")

	_, err := f.auth.Register(context.Background(), RegisterInput{
		FullName: "Someone Else",
		Email:    "jane@example.com",
		Password: "another-password",
	}, client)
	assert.ErrorIs(t, err, apperr.ErrDuplicateEmail)
}

func TestConcurrentRegistrationOneWinner(t *testing.T) {
	f := newAuthFixture(t)

	const n = 5
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.auth.Register(context.Background(), RegisterInput{
				FullName: "Racer",
				Email:    "race@example.com",
				Password: "password123",
			}, client)
		}()
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrDuplicateEmail)
	}
	assert.Equal(t, 1, winners)
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	reg := register(t, f, "jane@example.com")
	ctx := context.Background()

	res, err := f.auth.Login(ctx, "jane@example.com", "correct-horse", client)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, res.User.ID)
	assert.NotEqual(t, reg.Token, res.Token)

	_, err = f.auth.Login(ctx, "jane@example.com", "wrong-horse", client)
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, err = f.auth.Login(ctx, "nobody@example.com", "correct-horse", client)
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, err = f.auth.Login(ctx, "", "", client)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestLoginWrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	f := newAuthFixture(t)
	register(t, f, "jane@example.com")
	ctx := context.Background()

	_, wrongPass := f.auth.Login(ctx, "jane@example.com", "wrong-horse", client)
	_, unknown := f.auth.Login(ctx, "nobody@example.com", "wrong-horse", client)

	assert.Equal(t, wrongPass.Error(), unknown.Error())
}

func TestAuthenticateFailures(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	for _, token := range []string{"", "garbage"} {
		_, _, err := f.auth.Authenticate(ctx, token)
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	}
}

func TestAuthenticateExpiredSession(t *testing.T) {
	f := newAuthFixture(t)
	res := register(t, f, "jane@example.com")

	f.clock.Advance(24 * time.Hour)

	_, _, err := f.auth.Authenticate(context.Background(), res.Token)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestAuthenticateDeletedUser(t *testing.T) {
	f := newAuthFixture(t)
	res := register(t, f, "jane@example.com")
	ctx := context.Background()

	require.NoError(t, f.db.Delete(&model.User{}, "id = ?", res.User.ID).Error)

	_, _, err := f.auth.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	// the orphaned session is gone, so re-creating the user doesn't revive it
	require.NoError(t, f.users.Create(ctx, res.User))
	_, _, err = f.auth.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestLogout(t *testing.T) {
	f := newAuthFixture(t)
	res := register(t, f, "jane@example.com")
	ctx := context.Background()

	require.NoError(t, f.auth.Logout(ctx, res.Token))

	_, _, err := f.auth.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	assert.NoError(t, f.auth.Logout(ctx, res.Token))
	assert.NoError(t, f.auth.Logout(ctx, ""))
}

func TestLogoutOnlyEndsOneSession(t *testing.T) {
	f := newAuthFixture(t)
	first := register(t, f, "jane@example.com")
	ctx := context.Background()

	second, err := f.auth.Login(ctx, "jane@example.com", "correct-horse", client)
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(ctx, first.Token))

	u, _, err := f.auth.Authenticate(ctx, second.Token)
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, u.ID)
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osusuapp/osusu-backend/internal/apperr"
	"github.com/osusuapp/osusu-backend/internal/requestdata"
	"github.com/osusuapp/osusu-backend/internal/types"
)

func newAuth(t *testing.T, env *testEnv) AuthService {
	t.Helper()
	return NewAuthService(env.db, env.log, env.users, "test-secret", time.Hour)
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	auth := newAuth(t, env)
	ctx := context.Background()

	user, err := auth.Register(ctx, "Ada@Example.com", "s3cretpass", "Ada", "Lovelace")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, types.BaseTrustScore, user.TrustScore)
	assert.Equal(t, types.RoleUser, user.Role)

	token, loggedIn, err := auth.Login(ctx, "ada@example.com", "s3cretpass")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, user.ID, loggedIn.ID)

	authedCtx, err := auth.SetContextFromToken(ctx, token)
	require.NoError(t, err)
	rd := requestdata.GetRequestData(authedCtx)
	require.NotNil(t, rd)
	assert.Equal(t, user.ID, rd.UserID)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	auth := newAuth(t, env)
	ctx := context.Background()

	_, err := auth.Register(ctx, "not-an-email", "s3cretpass", "", "")
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidInput))

	_, err = auth.Register(ctx, "a@b.com", "short", "", "")
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidInput))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	auth := newAuth(t, env)
	ctx := context.Background()

	_, err := auth.Register(ctx, "dup@example.com", "s3cretpass", "", "")
	require.NoError(t, err)
	_, err = auth.Register(ctx, "dup@example.com", "s3cretpass", "", "")
	assert.Equal(t, apperr.KindStateConflict, apperr.KindOf(err))
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	auth := newAuth(t, env)
	ctx := context.Background()

	_, err := auth.Register(ctx, "ada@example.com", "s3cretpass", "", "")
	require.NoError(t, err)

	_, _, err = auth.Login(ctx, "ada@example.com", "wrongpass")
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))

	_, _, err = auth.Login(ctx, "nobody@example.com", "whatever")
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))
}

func TestSetContextFromTokenRejectsGarbage(t *testing.T) {
	env := newTestEnv(t)
	auth := newAuth(t, env)

	_, err := auth.SetContextFromToken(context.Background(), "not.a.token")
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))
}

package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rowanmckenna/marketstead-backend/pkg/db/models"
	"github.com/rowanmckenna/marketstead-backend/pkg/enums"
	pkgerrors "github.com/rowanmckenna/marketstead-backend/pkg/errors"
	"github.com/rowanmckenna/marketstead-backend/pkg/pagination"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:users_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.User{}))

	svc, err := NewService(ServiceParams{UserRepo: NewRepository(conn)})
	require.NoError(t, err)
	return svc, conn
}

func seedUser(t *testing.T, conn *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
	}
	require.NoError(t, conn.Create(user).Error)
	return user
}

func TestDeactivate(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	user := seedUser(t, conn, "margot")

	require.NoError(t, svc.Deactivate(ctx, user.ID))

	reloaded, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsActive)

	// Deactivating twice is harmless.
	require.NoError(t, svc.Deactivate(ctx, user.ID))
}

func TestDeactivateUnknownUser(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)

	err := svc.Deactivate(context.Background(), uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestGetByIDUnknown(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)

	_, err := svc.GetByID(context.Background(), uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestListPaginates(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		seedUser(t, conn, "user-"+uuid.NewString()[:8])
	}

	first, cursor, err := svc.List(ctx, pagination.Params{Limit: 3})
	require.NoError(t, err)
	require.Len(t, first, 3)
	require.NotEmpty(t, cursor)

	second, next, err := svc.List(ctx, pagination.Params{Limit: 3, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Empty(t, next)

	seen := map[uuid.UUID]bool{}
	for _, u := range append(first, second...) {
		assert.False(t, seen[u.ID])
		seen[u.ID] = true
	}
}

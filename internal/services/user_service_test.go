package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tendly/tendly/internal/database/testutil"
	"github.com/tendly/tendly/internal/models"
)

func TestUserServiceRegisterAndAuthenticate(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	svc, err := NewUserService(db)
	require.NoError(t, err)

	user, err := svc.Register(context.Background(), RegisterInput{
		Email:    "landlord@example.com",
		Password: "Sup3rSecret!",
		FullName: "  Lana Lord  ",
		Role:     models.RoleLandlord,
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleLandlord, user.Role)
	require.Equal(t, "Lana Lord", user.FullName)
	require.NotEqual(t, "Sup3rSecret!", user.Password)

	authed, err := svc.Authenticate(context.Background(), "landlord@example.com", "Sup3rSecret!")
	require.NoError(t, err)
	require.Equal(t, user.ID, authed.ID)

	_, err = svc.Authenticate(context.Background(), "landlord@example.com", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "nobody@example.com", "Sup3rSecret!")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserServiceRegisterValidation(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	svc, err := NewUserService(db)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterInput{
		Email:    "not-an-email",
		Password: "Sup3rSecret!",
		Role:     models.RoleTenant,
	})
	require.ErrorIs(t, err, ErrInvalidUser)

	_, err = svc.Register(context.Background(), RegisterInput{
		Email:    "tenant@example.com",
		Password: "short",
		Role:     models.RoleTenant,
	})
	require.ErrorIs(t, err, ErrInvalidUser)

	_, err = svc.Register(context.Background(), RegisterInput{
		Email:    "tenant@example.com",
		Password: "Sup3rSecret!",
		Role:     "admin",
	})
	require.ErrorIs(t, err, ErrInvalidUser)
}

func TestUserServiceRegisterDuplicateEmail(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	svc, err := NewUserService(db)
	require.NoError(t, err)

	input := RegisterInput{
		Email:    "tenant@example.com",
		Password: "Sup3rSecret!",
		Role:     models.RoleTenant,
	}
	_, err = svc.Register(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), input)
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestUserServiceLookups(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	svc, err := NewUserService(db)
	require.NoError(t, err)

	user, err := svc.Register(context.Background(), RegisterInput{
		Email:    "tenant@example.com",
		Password: "Sup3rSecret!",
		Role:     models.RoleTenant,
	})
	require.NoError(t, err)

	byID, err := svc.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, user.Email, byID.Email)

	byEmail, err := svc.FindByEmail(context.Background(), "tenant@example.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, byEmail.ID)

	// Lookup is exact, not case-folded.
	_, err = svc.FindByEmail(context.Background(), "Tenant@example.com")
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.FindByID(context.Background(), "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, ErrUserNotFound)
}

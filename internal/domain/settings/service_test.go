package settings_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rpggio/inkwell/internal/domain/account"
	"github.com/rpggio/inkwell/internal/domain/settings"
	"github.com/rpggio/inkwell/internal/repository/mocks"
	"github.com/stretchr/testify/require"
)

var admin = account.Actor{UserID: "admin-1", IsAdmin: true}

func TestSettings_DefaultsOnFirstRun(t *testing.T) {
	svc := settings.NewService(mocks.NewMemoryKVStore(), nil, nil)

	got := svc.Get(context.Background())
	require.True(t, got.AllowRegistration)
	require.Equal(t, "/admin", got.DashboardURL)
	require.False(t, got.SetupCompleted)
}

func TestSettings_DefaultsOnUnparsableValue(t *testing.T) {
	ctx := context.Background()
	store := mocks.NewMemoryKVStore()
	require.NoError(t, store.Put(ctx, settings.Key, []byte("not json")))

	svc := settings.NewService(store, nil, nil)
	require.Equal(t, settings.Defaults(), svc.Get(ctx))
}

func TestSettings_DefaultsOnReadError(t *testing.T) {
	ctx := context.Background()
	store := &mocks.KVStore{}
	store.On("Get", ctx, settings.Key).Return(nil, errors.New("io"))

	svc := settings.NewService(store, nil, nil)
	require.True(t, svc.RegistrationAllowed(ctx))
}

func TestSettings_SetAllowRegistration_PersistsAndPublishes(t *testing.T) {
	ctx := context.Background()
	store := mocks.NewMemoryKVStore()
	events := &mocks.Publisher{}
	events.On("Publish", "settings", "changed", settings.Key).Return().Once()

	svc := settings.NewService(store, events, nil)
	got, err := svc.SetAllowRegistration(ctx, admin, false)
	require.NoError(t, err)
	require.False(t, got.AllowRegistration)

	// A fresh service over the same store sees the stored value.
	reloaded := settings.NewService(store, nil, nil)
	require.False(t, reloaded.RegistrationAllowed(ctx))
	events.AssertExpectations(t)
}

func TestSettings_SetAllowRegistration_RequiresAdmin(t *testing.T) {
	ctx := context.Background()
	svc := settings.NewService(mocks.NewMemoryKVStore(), nil, nil)

	_, err := svc.SetAllowRegistration(ctx, account.Actor{UserID: "u1"}, false)
	require.ErrorIs(t, err, settings.ErrForbidden)

	_, err = svc.SetAllowRegistration(ctx, account.Actor{Guest: true}, false)
	require.ErrorIs(t, err, settings.ErrForbidden)

	require.True(t, svc.RegistrationAllowed(ctx))
}

func TestSettings_Update_DashboardURL(t *testing.T) {
	ctx := context.Background()
	svc := settings.NewService(mocks.NewMemoryKVStore(), nil, nil)

	bad := "http://elsewhere"
	_, err := svc.Update(ctx, admin, settings.Patch{DashboardURL: &bad})
	require.ErrorIs(t, err, settings.ErrInvalidInput)

	good := "/console"
	got, err := svc.Update(ctx, admin, settings.Patch{DashboardURL: &good})
	require.NoError(t, err)
	require.Equal(t, "/console", got.DashboardURL)
	require.True(t, got.AllowRegistration)
}

func TestSettings_MarkSetupCompleted(t *testing.T) {
	ctx := context.Background()
	svc := settings.NewService(mocks.NewMemoryKVStore(), nil, nil)

	require.NoError(t, svc.MarkSetupCompleted(ctx))
	require.True(t, svc.SetupCompleted(ctx))
	require.NoError(t, svc.MarkSetupCompleted(ctx))
}

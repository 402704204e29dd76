package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tendly/tendly/internal/database/testutil"
	"github.com/tendly/tendly/internal/models"
	"github.com/tendly/tendly/internal/services"
	pkgmail "github.com/tendly/tendly/pkg/mail"
)

type noopMailer struct{}

func (noopMailer) Send(context.Context, pkgmail.Message) error { return nil }

func seedSweepFixtures(t *testing.T, db *gorm.DB, now time.Time) (*models.TenantInvitation, *models.TenantInvitation, *models.Lease, *models.Lease) {
	t.Helper()

	landlord := &models.User{Email: "landlord@example.com", Password: "hashed", Role: models.RoleLandlord}
	require.NoError(t, db.Create(landlord).Error)
	tenant := &models.User{Email: "tenant@example.com", Password: "hashed", Role: models.RoleTenant}
	require.NoError(t, db.Create(tenant).Error)

	property := &models.Property{LandlordID: landlord.ID, Address: "12 Main St"}
	require.NoError(t, db.Create(property).Error)
	unit := &models.Unit{PropertyID: property.ID, UnitNumber: "2B", RentAmount: 150000}
	require.NoError(t, db.Create(unit).Error)
	other := &models.Unit{PropertyID: property.ID, UnitNumber: "3C", RentAmount: 150000}
	require.NoError(t, db.Create(other).Error)

	stale := &models.TenantInvitation{
		LandlordID: landlord.ID,
		UnitID:     unit.ID,
		Email:      "tenant@example.com",
		TokenHash:  "stale-hash",
		RentAmount: 150000,
		StartDate:  now.AddDate(0, 1, 0),
		EndDate:    now.AddDate(1, 1, 0),
		Status:     models.InvitationStatusPending,
		ExpiresAt:  now.Add(-time.Hour),
	}
	require.NoError(t, db.Create(stale).Error)

	fresh := &models.TenantInvitation{
		LandlordID: landlord.ID,
		UnitID:     other.ID,
		Email:      "tenant@example.com",
		TokenHash:  "fresh-hash",
		RentAmount: 150000,
		StartDate:  now.AddDate(0, 1, 0),
		EndDate:    now.AddDate(1, 1, 0),
		Status:     models.InvitationStatusPending,
		ExpiresAt:  now.Add(time.Hour),
	}
	require.NoError(t, db.Create(fresh).Error)

	ended := &models.Lease{
		UnitID:     unit.ID,
		TenantID:   tenant.ID,
		StartDate:  now.AddDate(-1, 0, 0),
		EndDate:    now.AddDate(0, 0, -1),
		RentAmount: 150000,
		Status:     models.LeaseStatusActive,
	}
	require.NoError(t, db.Create(ended).Error)

	running := &models.Lease{
		UnitID:     other.ID,
		TenantID:   tenant.ID,
		StartDate:  now.AddDate(0, -6, 0),
		EndDate:    now.AddDate(0, 6, 0),
		RentAmount: 150000,
		Status:     models.LeaseStatusActive,
	}
	require.NoError(t, db.Create(running).Error)

	return stale, fresh, ended, running
}

func TestCleanerRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	stale, fresh, ended, running := seedSweepFixtures(t, db, now)

	invitations, err := services.NewInvitationService(db, noopMailer{})
	require.NoError(t, err)
	leases, err := services.NewLeaseService(db)
	require.NoError(t, err)

	cleaner := NewCleaner(invitations, leases, WithNow(func() time.Time { return now }))
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var invite models.TenantInvitation
	require.NoError(t, db.Where("id = ?", stale.ID).First(&invite).Error)
	require.Equal(t, models.InvitationStatusExpired, invite.Status)

	var freshInvite models.TenantInvitation
	require.NoError(t, db.Where("id = ?", fresh.ID).First(&freshInvite).Error)
	require.Equal(t, models.InvitationStatusPending, freshInvite.Status)

	var lease models.Lease
	require.NoError(t, db.Where("id = ?", ended.ID).First(&lease).Error)
	require.Equal(t, models.LeaseStatusExpired, lease.Status)

	var runningLease models.Lease
	require.NoError(t, db.Where("id = ?", running.ID).First(&runningLease).Error)
	require.Equal(t, models.LeaseStatusActive, runningLease.Status)
}

func TestCleanerRunOnceIsIdempotent(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	seedSweepFixtures(t, db, now)

	invitations, err := services.NewInvitationService(db, noopMailer{})
	require.NoError(t, err)
	leases, err := services.NewLeaseService(db)
	require.NoError(t, err)

	cleaner := NewCleaner(invitations, leases, WithNow(func() time.Time { return now }))
	require.NoError(t, cleaner.RunOnce(context.Background()))
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var expiredInvites int64
	require.NoError(t, db.Model(&models.TenantInvitation{}).
		Where("status = ?", models.InvitationStatusExpired).
		Count(&expiredInvites).Error)
	require.Equal(t, int64(1), expiredInvites)

	var expiredLeases int64
	require.NoError(t, db.Model(&models.Lease{}).
		Where("status = ?", models.LeaseStatusExpired).
		Count(&expiredLeases).Error)
	require.Equal(t, int64(1), expiredLeases)
}

func TestCleanerStartRejectsBadSchedule(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	invitations, err := services.NewInvitationService(db, noopMailer{})
	require.NoError(t, err)
	leases, err := services.NewLeaseService(db)
	require.NoError(t, err)

	cleaner := NewCleaner(invitations, leases, WithInvitationSchedule("not a cron spec"))
	require.Error(t, cleaner.Start())
}

func TestCleanerStartWithoutServicesIsNoop(t *testing.T) {
	cleaner := NewCleaner(nil, nil)
	require.NoError(t, cleaner.Start())
	<-cleaner.Stop().Done()
}

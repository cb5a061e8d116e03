package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/foodrescue/internal/apperr"
	"github.com/mmeshcher/foodrescue/internal/handoff"
	"github.com/mmeshcher/foodrescue/internal/model"
)

// seedSupplier создаёт у donorA по одному пожертвованию в каждом состоянии основного пути.
func seedSupplier(t *testing.T, s *Service) (available, scheduled, completed *model.Donation) {
	t.Helper()
	ctx := context.Background()

	completed = create(t, s, donorA)
	_, err := s.AssignVolunteer(ctx, volV, completed.ID, "")
	require.NoError(t, err)
	_, err = s.ConfirmPickup(ctx, donorA, donorA.Subject, PickupCredential{Code: handoff.CodeFor("V")})
	require.NoError(t, err)
	completed, err = s.CompleteDelivery(ctx, volV, completed.ID, "", "bank-1")
	require.NoError(t, err)

	scheduled = create(t, s, donorA)
	_, err = s.AssignVolunteer(ctx, volW, scheduled.ID, "")
	require.NoError(t, err)

	available = create(t, s, donorA)
	return available, scheduled, completed
}

func TestReceipts(t *testing.T) {
	ctx := context.Background()
	s := newTestService(newMemRepo())
	_, _, completed := seedSupplier(t, s)
	create(t, s, donorB)

	t.Run("completed only by default", func(t *testing.T) {
		r, err := s.Receipts(ctx, donorA, donorA.Subject, model.ReceiptQuery{})
		require.NoError(t, err)
		require.Len(t, r.Donations, 1)
		assert.Equal(t, completed.ID, r.Donations[0].ID)
		assert.Equal(t, "Completed", r.Donations[0].Status)
		assert.Equal(t, 30.0, r.Summary.TotalEstimatedValue)
		assert.Equal(t, "Start of records", r.Summary.StartDate)
		assert.Equal(t, "End of records", r.Summary.EndDate)
		assert.Equal(t, model.ReceiptDisclaimer, r.Disclaimer)
		assert.Equal(t, fixedNow, r.Summary.GeneratedAt)
	})

	t.Run("all statuses", func(t *testing.T) {
		r, err := s.Receipts(ctx, donorA, donorA.Subject, model.ReceiptQuery{All: true})
		require.NoError(t, err)
		assert.Equal(t, 3, r.Summary.TotalDonations)
		assert.Equal(t, 30.0, r.Summary.TotalEstimatedValue, "only completed donations count toward value")
		assert.Equal(t, int64(30), r.Summary.TotalMealsSaved)
		assert.Equal(t, 7.0, r.Summary.TotalCO2Avoided)
	})

	t.Run("end date covers the whole day", func(t *testing.T) {
		day := completed.CreatedAt.Truncate(24 * time.Hour)
		r, err := s.Receipts(ctx, donorA, donorA.Subject, model.ReceiptQuery{From: &day, To: &day, All: true})
		require.NoError(t, err)
		assert.Equal(t, 3, r.Summary.TotalDonations)
		assert.Equal(t, day.Format("2006-01-02"), r.Summary.EndDate)

		before := day.AddDate(0, 0, -1)
		r, err = s.Receipts(ctx, donorA, donorA.Subject, model.ReceiptQuery{To: &before, All: true})
		require.NoError(t, err)
		assert.Empty(t, r.Donations)
	})

	t.Run("inverted range", func(t *testing.T) {
		from := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
		to := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
		_, err := s.Receipts(ctx, donorA, donorA.Subject, model.ReceiptQuery{From: &from, To: &to})
		assertKind(t, err, apperr.KindInvalidInput)
	})

	t.Run("other donor forbidden", func(t *testing.T) {
		_, err := s.Receipts(ctx, donorB, donorA.Subject, model.ReceiptQuery{})
		assertKind(t, err, apperr.KindForbidden)
	})
}

func TestSupplierOverview(t *testing.T) {
	ctx := context.Background()
	s := newTestService(newMemRepo())
	available, _, _ := seedSupplier(t, s)

	o, err := s.SupplierOverview(ctx, organizer, donorA.Subject)
	require.NoError(t, err)
	assert.Equal(t, 3, o.DonatedItems)
	assert.Equal(t, 2, o.UpcomingPickups)
	assert.Equal(t, int64(30), o.Impact.TotalMealsSaved)
	assert.Equal(t, 7.0, o.Impact.TotalCO2Avoided)
	require.Len(t, o.Recent, 3)
	assert.Equal(t, available.ID, o.Recent[0].ID)
	assert.Equal(t, "Available", o.Recent[0].Status)

	for i := 0; i < 12; i++ {
		create(t, s, donorA)
	}
	o, err = s.SupplierOverview(ctx, donorA, donorA.Subject)
	require.NoError(t, err)
	assert.Len(t, o.Recent, recentDonationsLimit)
	assert.Equal(t, 15, o.DonatedItems)
}

func TestSupplierListed(t *testing.T) {
	s := newTestService(newMemRepo())
	available, scheduled, _ := seedSupplier(t, s)

	got, err := s.SupplierListed(context.Background(), donorA, donorA.Subject)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, available.ID, got[0].ID)
	assert.Equal(t, scheduled.ID, got[1].ID)
}

func TestVolunteerQueries(t *testing.T) {
	ctx := context.Background()
	s := newTestService(newMemRepo())
	_, scheduled, completed := seedSupplier(t, s)

	got, err := s.VolunteerScheduled(ctx, volW, "W")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, scheduled.ID, got[0].ID)

	done, err := s.VolunteerCompleted(ctx, volV, "V")
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, completed.ID, done[0].ID)

	n, err := s.VolunteerCompletedCount(ctx, organizer, "V")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	empty, err := s.VolunteerScheduled(ctx, volV, "V")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = s.VolunteerCompleted(ctx, volW, "V")
	assertKind(t, err, apperr.KindForbidden)
}

func TestPickupCode(t *testing.T) {
	ctx := context.Background()
	s := newTestService(newMemRepo())

	code, err := s.PickupCode(ctx, volV, "V")
	require.NoError(t, err)
	assert.Equal(t, "00177651", code)

	code, err = s.PickupCode(ctx, organizer, "W")
	require.NoError(t, err)
	assert.Equal(t, "00177650", code)

	_, err = s.PickupCode(ctx, volW, "V")
	assertKind(t, err, apperr.KindForbidden)

	_, err = s.PickupCode(ctx, donorA, donorA.Subject)
	assertKind(t, err, apperr.KindForbidden)
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	s := newTestService(newMemRepo())
	available, scheduled, completed := seedSupplier(t, s)
	withdrawn := create(t, s, donorB)
	_, err := s.WithdrawDonation(ctx, donorB, withdrawn.ID)
	require.NoError(t, err)

	dash, err := s.Dashboard(ctx, organizer)
	require.NoError(t, err)
	require.Len(t, dash.Available, 1)
	assert.Equal(t, available.ID, dash.Available[0].ID)
	require.Len(t, dash.Scheduled, 1)
	assert.Equal(t, scheduled.ID, dash.Scheduled[0].ID)
	assert.Empty(t, dash.PickedUp)
	require.Len(t, dash.Completed, 1)
	assert.Equal(t, completed.ID, dash.Completed[0].ID)
	require.Len(t, dash.Cancelled, 1)

	_, err = s.Dashboard(ctx, volV)
	assertKind(t, err, apperr.KindForbidden)
}

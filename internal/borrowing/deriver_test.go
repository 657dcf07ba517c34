package borrowing

import (
	"math"
	"testing"
	"time"

	"libraryhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func fptr(f float64) *float64 { return &f }

func testPolicy() Policy {
	return Policy{DailyRate: 5000, DueSoonWithin: 5 * day}
}

func TestDerive_ReturnedWinsOverDueDate(t *testing.T) {
	p := testPolicy()
	for _, due := range []time.Time{now.Add(-30 * day), now.Add(2 * day), now.Add(40 * day), {}} {
		rec := models.BorrowingRecord{DueDate: due, ReturnDate: now.Add(-time.Hour)}
		assert.Equal(t, models.StatusReturned, p.Derive(rec, now).Status)
	}
}

func TestDerive_BackendStatusVerbatim(t *testing.T) {
	p := testPolicy()
	for _, s := range []string{"pending", "active", "overdue", "returned", "return_pending"} {
		rec := models.BorrowingRecord{
			BackendStatus: s,
			DueDate:       now.Add(-3 * day),
			ReturnDate:    now,
		}
		assert.Equal(t, models.Status(s), p.Derive(rec, now).Status)
	}
}

func TestDerive_Overdue(t *testing.T) {
	got := testPolicy().Derive(models.BorrowingRecord{DueDate: now.Add(-3 * day)}, now)

	assert.Equal(t, models.StatusOverdue, got.Status)
	require.NotNil(t, got.DaysOverdue)
	assert.Equal(t, 3, *got.DaysOverdue)
	require.NotNil(t, got.DaysUntilDue)
	assert.Equal(t, -3, *got.DaysUntilDue)
	assert.Equal(t, 15000.0, got.Fine)
	assert.Equal(t, models.FineSourceOverdue, got.FineSource)
}

func TestDerive_DueSoonAndActive(t *testing.T) {
	p := testPolicy()

	soon := p.Derive(models.BorrowingRecord{DueDate: now.Add(2 * day)}, now)
	assert.Equal(t, models.StatusDueSoon, soon.Status)
	require.NotNil(t, soon.DaysUntilDue)
	assert.Equal(t, 2, *soon.DaysUntilDue)
	assert.Nil(t, soon.DaysOverdue)

	edge := p.Derive(models.BorrowingRecord{DueDate: now.Add(5 * day)}, now)
	assert.Equal(t, models.StatusDueSoon, edge.Status)

	active := p.Derive(models.BorrowingRecord{DueDate: now.Add(10 * day)}, now)
	assert.Equal(t, models.StatusActive, active.Status)
	assert.Equal(t, 10, *active.DaysUntilDue)
	assert.Equal(t, 0.0, active.Fine)
}

func TestDerive_DaysUntilDueRoundsUp(t *testing.T) {
	got := testPolicy().Derive(models.BorrowingRecord{DueDate: now.Add(36 * time.Hour)}, now)
	assert.Equal(t, 2, *got.DaysUntilDue)

	late := testPolicy().Derive(models.BorrowingRecord{DueDate: now.Add(-36 * time.Hour)}, now)
	assert.Equal(t, -1, *late.DaysUntilDue)
	assert.Equal(t, 1, *late.DaysOverdue)
}

func TestDerive_FineFromRate(t *testing.T) {
	got := testPolicy().Derive(models.BorrowingRecord{DueDate: now.Add(-4 * day)}, now)
	assert.Equal(t, 20000.0, got.Fine)

	p := Policy{DailyRate: 1000, DueSoonWithin: 5 * day}
	assert.Equal(t, 4000.0, p.Derive(models.BorrowingRecord{DueDate: now.Add(-4 * day)}, now).Fine)
}

func TestDerive_BackendFineWins(t *testing.T) {
	rec := models.BorrowingRecord{DueDate: now.Add(-4 * day), BackendFine: fptr(7500)}
	got := testPolicy().Derive(rec, now)

	assert.Equal(t, models.StatusOverdue, got.Status)
	assert.Equal(t, 7500.0, got.Fine)
	assert.Equal(t, models.FineSourceBackend, got.FineSource)
}

func TestDerive_InvalidBackendFineIgnored(t *testing.T) {
	p := testPolicy()
	for _, f := range []float64{math.NaN(), math.Inf(1), -10} {
		rec := models.BorrowingRecord{DueDate: now.Add(-2 * day), BackendFine: fptr(f)}
		got := p.Derive(rec, now)
		assert.Equal(t, 10000.0, got.Fine)
		assert.Equal(t, models.FineSourceOverdue, got.FineSource)
	}
}

func TestDerive_LateReturnFine(t *testing.T) {
	rec := models.BorrowingRecord{
		DueDate:    now.Add(-10 * day),
		ReturnDate: now.Add(-10*day + 2*day + 5*time.Hour),
	}
	got := testPolicy().Derive(rec, now)

	assert.Equal(t, models.StatusReturned, got.Status)
	assert.Nil(t, got.DaysOverdue)
	assert.Equal(t, 10000.0, got.Fine)
	assert.Equal(t, models.FineSourceLateReturn, got.FineSource)
}

func TestDerive_OnTimeReturnNoFine(t *testing.T) {
	rec := models.BorrowingRecord{DueDate: now.Add(-2 * day), ReturnDate: now.Add(-3 * day)}
	got := testPolicy().Derive(rec, now)
	assert.Equal(t, 0.0, got.Fine)
	assert.Equal(t, models.FineSourceNone, got.FineSource)
}

func TestDerive_MissingDueDate(t *testing.T) {
	got := testPolicy().Derive(models.BorrowingRecord{ID: 1}, now)

	assert.Equal(t, models.StatusActive, got.Status)
	assert.Nil(t, got.DaysUntilDue)
	assert.Nil(t, got.DaysOverdue)
	assert.Equal(t, 0.0, got.Fine)
}

func TestDerive_MalformedDatesNeverPanic(t *testing.T) {
	w := models.BorrowingWire{ID: 1, BorrowDate: "yesterday", DueDate: "31/31/2025"}
	assert.NotPanics(t, func() {
		got := testPolicy().Derive(w.ToRecord(), now)
		assert.Equal(t, models.StatusActive, got.Status)
		assert.Equal(t, 0.0, got.Fine)
	})
}

func TestDerive_PendingIsFineExempt(t *testing.T) {
	rec := models.BorrowingRecord{BackendStatus: "pending", DueDate: now.Add(-6 * day)}
	got := testPolicy().Derive(rec, now)

	assert.Equal(t, models.StatusPending, got.Status)
	assert.Nil(t, got.DaysOverdue)
	require.NotNil(t, got.DaysUntilDue)
	assert.Equal(t, -6, *got.DaysUntilDue)
	assert.Equal(t, 0.0, got.Fine)
	assert.Equal(t, models.FineSourceExempt, got.FineSource)
}

func TestDerive_BackendOverdueWithoutDueDate(t *testing.T) {
	got := testPolicy().Derive(models.BorrowingRecord{BackendStatus: "overdue"}, now)
	require.NotNil(t, got.DaysOverdue)
	assert.Equal(t, 0, *got.DaysOverdue)
	assert.Equal(t, 0.0, got.Fine)
}

func TestDerive_BackendActivePastDueStillFined(t *testing.T) {
	rec := models.BorrowingRecord{BackendStatus: "active", DueDate: now.Add(-4 * day)}
	got := testPolicy().Derive(rec, now)

	assert.Equal(t, models.StatusActive, got.Status)
	assert.Nil(t, got.DaysOverdue)
	assert.Equal(t, 20000.0, got.Fine)
	assert.Equal(t, models.FineSourceOverdue, got.FineSource)

	// backend fine still wins
	rec.BackendFine = fptr(1000)
	assert.Equal(t, 1000.0, testPolicy().Derive(rec, now).Fine)
}

func TestDerive_BackendReturnedWithoutReturnDateNotFined(t *testing.T) {
	rec := models.BorrowingRecord{BackendStatus: "returned", DueDate: now.Add(-4 * day)}
	got := testPolicy().Derive(rec, now)

	assert.Equal(t, 0.0, got.Fine)
	assert.Equal(t, models.FineSourceNone, got.FineSource)
}

func TestDerive_Idempotent(t *testing.T) {
	p := testPolicy()
	rec := models.BorrowingRecord{DueDate: now.Add(-4 * day), BorrowDate: now.Add(-18 * day)}
	assert.Equal(t, p.Derive(rec, now), p.Derive(rec, now))
}

func TestDeriver_UsesInjectedClock(t *testing.T) {
	d := NewDeriver(testPolicy(), func() time.Time { return now })
	got := d.Derive(models.BorrowingRecord{DueDate: now.Add(-1 * day)})
	assert.Equal(t, models.StatusOverdue, got.Status)
	assert.Equal(t, now, d.Now())

	views := d.Views([]models.BorrowingWire{
		{ID: 1, DueDate: "2025-06-13"},
		{ID: 2, DueDate: "2025-07-30"},
	})
	require.Len(t, views, 2)
	assert.Equal(t, models.StatusOverdue, views[0].Derived.Status)
	assert.Equal(t, models.StatusActive, views[1].Derived.Status)
}

func TestNewDeriver_DefaultsToWallClock(t *testing.T) {
	d := NewDeriver(DefaultPolicy(), nil)
	assert.WithinDuration(t, time.Now(), d.Now(), time.Second)
	assert.Equal(t, 5000.0, d.Policy().DailyRate)
}

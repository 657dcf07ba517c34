// Package borrowing derives display status, day counts and fine estimates
// from backend borrowing records. Every surface goes through Deriver.
package borrowing

import (
	"math"
	"time"

	"libraryhub/internal/models"
)

const day = 24 * time.Hour

// Policy holds the tunables of the derivation.
type Policy struct {
	// DailyRate is charged per overdue day, in currency units.
	DailyRate float64
	// DueSoonWithin is how close the due date must be to count as due soon.
	DueSoonWithin time.Duration
}

// DefaultPolicy returns the canonical rate and threshold.
func DefaultPolicy() Policy {
	return Policy{
		DailyRate:     models.DefaultDailyRate,
		DueSoonWithin: models.DefaultDueSoonDays * day,
	}
}

// Derive computes the display fields of rec as seen at now. It never fails:
// absent or unparsable timestamps are zero values and mean "no deadline".
func (p Policy) Derive(rec models.BorrowingRecord, now time.Time) models.Derived {
	var out models.Derived
	hasDue := !rec.DueDate.IsZero()

	out.Status = p.status(rec, now)

	if hasDue {
		until := int(math.Ceil(float64(rec.DueDate.Sub(now)) / float64(day)))
		out.DaysUntilDue = &until
	}

	if out.Status == models.StatusOverdue {
		overdue := 0
		if hasDue {
			overdue = wholeDays(now.Sub(rec.DueDate))
		}
		out.DaysOverdue = &overdue
	}

	out.Fine, out.FineSource = p.fine(rec, out, now)
	return out
}

func (p Policy) status(rec models.BorrowingRecord, now time.Time) models.Status {
	if rec.BackendStatus != "" {
		return models.Status(rec.BackendStatus)
	}
	if !rec.ReturnDate.IsZero() {
		return models.StatusReturned
	}
	if rec.DueDate.IsZero() {
		return models.StatusActive
	}
	if rec.DueDate.Before(now) {
		return models.StatusOverdue
	}
	if rec.DueDate.Sub(now) <= p.DueSoonWithin {
		return models.StatusDueSoon
	}
	return models.StatusActive
}

// fine follows the dates, not the status: a backend status other than pending
// does not hide a passed due date.
func (p Policy) fine(rec models.BorrowingRecord, d models.Derived, now time.Time) (float64, models.FineSource) {
	if validFine(rec.BackendFine) {
		return *rec.BackendFine, models.FineSourceBackend
	}
	if d.Status == models.StatusPending {
		return 0, models.FineSourceExempt
	}
	if rec.DueDate.IsZero() {
		return 0, models.FineSourceNone
	}
	if rec.ReturnDate.IsZero() && d.Status != models.StatusReturned {
		if rec.DueDate.Before(now) {
			if f := p.charge(wholeDays(now.Sub(rec.DueDate))); f > 0 {
				return f, models.FineSourceOverdue
			}
		}
		return 0, models.FineSourceNone
	}
	if !rec.ReturnDate.IsZero() && rec.ReturnDate.After(rec.DueDate) {
		if f := p.charge(wholeDays(rec.ReturnDate.Sub(rec.DueDate))); f > 0 {
			return f, models.FineSourceLateReturn
		}
	}
	return 0, models.FineSourceNone
}

func (p Policy) charge(days int) float64 {
	if days <= 0 || p.DailyRate <= 0 {
		return 0
	}
	return float64(days) * p.DailyRate
}

// wholeDays floors d to whole days, clamped at zero.
func wholeDays(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / day)
}

func validFine(f *float64) bool {
	return f != nil && !math.IsNaN(*f) && !math.IsInf(*f, 0) && *f >= 0
}

// Deriver binds a Policy to a clock.
type Deriver struct {
	policy Policy
	now    func() time.Time
}

// NewDeriver returns a Deriver; a nil clock means time.Now.
func NewDeriver(policy Policy, clock func() time.Time) *Deriver {
	if clock == nil {
		clock = time.Now
	}
	return &Deriver{policy: policy, now: clock}
}

func (d *Deriver) Policy() Policy {
	return d.policy
}

// Now returns the evaluation time used by the deriver.
func (d *Deriver) Now() time.Time {
	return d.now()
}

// Derive evaluates rec at the deriver's current time.
func (d *Deriver) Derive(rec models.BorrowingRecord) models.Derived {
	return d.policy.Derive(rec, d.now())
}

// View maps a wire record to a view evaluated at now.
func (d *Deriver) View(w models.BorrowingWire, now time.Time) models.BorrowingView {
	return models.BorrowingView{
		BorrowingWire: w,
		Derived:       d.policy.Derive(w.ToRecord(), now),
	}
}

// Views derives every record against a single evaluation time.
func (d *Deriver) Views(wires []models.BorrowingWire) []models.BorrowingView {
	now := d.now()
	out := make([]models.BorrowingView, 0, len(wires))
	for _, w := range wires {
		out = append(out, d.View(w, now))
	}
	return out
}

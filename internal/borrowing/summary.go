package borrowing

import "libraryhub/internal/models"

// Summary aggregates derived views for dashboards.
type Summary struct {
	Total          int     `json:"total"`
	Pending        int     `json:"pending"`
	Active         int     `json:"active"`
	DueSoon        int     `json:"due_soon"`
	Overdue        int     `json:"overdue"`
	Returned       int     `json:"returned"`
	Other          int     `json:"other"`
	Issued         int     `json:"issued"`
	UnpaidFines    float64 `json:"unpaid_fines"`
	CollectedFines float64 `json:"collected_fines"`
	// TotalBooks is the stock over all titles, Members the users with the member role.
	TotalBooks     int64   `json:"total_books"`
	Members        int     `json:"members"`
}

// AddCatalog fills the catalog totals of s.
func (s *Summary) AddCatalog(books []models.Book, users []models.User) {
	s.TotalBooks, s.Members = 0, 0
	for _, b := range books {
		if b.CopiesTotal > 0 {
			s.TotalBooks += b.CopiesTotal
		}
	}
	for _, u := range users {
		if u.Role == models.RoleMember {
			s.Members++
		}
	}
}

// Summarize counts views per derived status. Fines on overdue records, or estimated
// from a passed due date, are unpaid; fines on returned records were charged at return.
func Summarize(views []models.BorrowingView) Summary {
	var s Summary
	for i := range views {
		d := views[i].Derived
		s.Total++
		switch d.Status {
		case models.StatusPending:
			s.Pending++
		case models.StatusActive:
			s.Active++
		case models.StatusDueSoon:
			s.DueSoon++
		case models.StatusOverdue:
			s.Overdue++
			s.UnpaidFines += d.Fine
		case models.StatusReturned:
			s.Returned++
			s.CollectedFines += d.Fine
		default:
			s.Other++
		}
		// a passed due date is unpaid whatever status the backend reports
		if d.Status != models.StatusOverdue && d.FineSource == models.FineSourceOverdue {
			s.UnpaidFines += d.Fine
		}
	}
	s.Issued = s.Active + s.DueSoon + s.Overdue
	return s
}

// FilterByStatus keeps views whose derived status is one of statuses.
// An empty status list keeps everything.
func FilterByStatus(views []models.BorrowingView, statuses ...models.Status) []models.BorrowingView {
	if len(statuses) == 0 {
		return views
	}
	want := make(map[models.Status]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	out := make([]models.BorrowingView, 0, len(views))
	for _, v := range views {
		if want[v.Derived.Status] {
			out = append(out, v)
		}
	}
	return out
}

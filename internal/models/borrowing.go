package models

import "time"

// BorrowingRecord is a borrowing as consumed by the deriver.
// Zero time values mean the timestamp is absent or could not be parsed.
type BorrowingRecord struct {
	ID            int64
	BookID        int64
	MemberID      int64
	BorrowDate    time.Time
	DueDate       time.Time
	ReturnDate    time.Time
	BackendStatus string
	BackendFine   *float64
}

// BorrowingWire is the borrowing shape returned by the backend and stored in the mirror.
type BorrowingWire struct {
	ID         int64    `json:"id" db:"id"`
	BookID     int64    `json:"book_id" db:"book_id"`
	MemberID   int64    `json:"member_id" db:"member_id"`
	BorrowDate string   `json:"borrow_date" db:"borrow_date"`
	DueDate    string   `json:"due_date" db:"due_date"`
	ReturnDate *string  `json:"return_date,omitempty" db:"return_date"`
	Status     *string  `json:"status,omitempty" db:"status"`
	Fine       *float64 `json:"fine,omitempty" db:"fine"`
	Book       *Book    `json:"book,omitempty" db:"-"`
	Member     *User    `json:"member,omitempty" db:"-"`
}

// Derived holds the presentation fields computed from a BorrowingRecord.
type Derived struct {
	Status       Status     `json:"status"`
	DaysUntilDue *int       `json:"days_until_due,omitempty"`
	DaysOverdue  *int       `json:"days_overdue,omitempty"`
	Fine         float64    `json:"fine"`
	FineSource   FineSource `json:"fine_source"`
}

// BorrowingView is what every surface renders: the authoritative record plus derived fields.
type BorrowingView struct {
	BorrowingWire
	Derived Derived `json:"derived"`
}

// BorrowingFilter narrows a borrowing listing.
type BorrowingFilter struct {
	// Status is passed to the backend (pending, active, overdue, returned).
	Status   string
	MemberID int64
}

// ReturnResult is the backend answer to a return.
type ReturnResult struct {
	Borrowing   BorrowingWire `json:"borrowing"`
	Fine        float64       `json:"fine"`
	FineMessage string        `json:"fine_message"`
}

package models

import (
	"strings"
	"time"
)

var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999-07:00",
	"2006-01-02 15:04:05Z07:00",
}

var localLayouts = []string{
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// ParseTimestamp parses a backend timestamp. Date-only values are UTC midnight,
// zone-less datetimes are local time. Empty or unparsable input yields the zero time.
func ParseTimestamp(raw string) time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	return time.Time{}
}

// FormatTimestamp renders t for the wire; the zero time renders as "".
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// ToRecord maps the wire shape onto the record consumed by the deriver.
func (w *BorrowingWire) ToRecord() BorrowingRecord {
	rec := BorrowingRecord{
		ID:          w.ID,
		BookID:      w.BookID,
		MemberID:    w.MemberID,
		BorrowDate:  ParseTimestamp(w.BorrowDate),
		DueDate:     ParseTimestamp(w.DueDate),
		BackendFine: w.Fine,
	}
	if w.ReturnDate != nil {
		rec.ReturnDate = ParseTimestamp(*w.ReturnDate)
	}
	if w.Status != nil {
		rec.BackendStatus = strings.TrimSpace(*w.Status)
	}
	if rec.MemberID == 0 && w.Member != nil {
		rec.MemberID = w.Member.ID
	}
	if rec.BookID == 0 && w.Book != nil {
		rec.BookID = w.Book.ID
	}
	return rec
}

package report

import (
	"strconv"
	"time"

	"libraryhub/internal/models"
)

// Headers are the column titles shared by the xlsx and Sheets reports.
var Headers = []string{
	"ID", "Книга", "Читатель", "Дата выдачи", "Срок возврата", "Дата возврата",
	"Статус", "Дней до срока", "Дней просрочки", "Штраф", "Источник штрафа",
}

// Row renders one borrowing view as report cells.
func Row(v models.BorrowingView) []any {
	book := "-"
	if v.Book != nil && v.Book.Title != "" {
		book = v.Book.Title
	} else if v.BookID > 0 {
		book = "#" + strconv.FormatInt(v.BookID, 10)
	}

	returned := ""
	if v.ReturnDate != nil {
		returned = FormatDate(*v.ReturnDate)
	}

	return []any{
		v.ID,
		book,
		v.Member.DisplayName(),
		FormatDate(v.BorrowDate),
		FormatDate(v.DueDate),
		returned,
		string(v.Derived.Status),
		intOrBlank(v.Derived.DaysUntilDue),
		intOrBlank(v.Derived.DaysOverdue),
		v.Derived.Fine,
		string(v.Derived.FineSource),
	}
}

// Rows renders views in order.
func Rows(views []models.BorrowingView) [][]any {
	out := make([][]any, 0, len(views))
	for _, v := range views {
		out = append(out, Row(v))
	}
	return out
}

// FormatDate shows backend timestamps as dd.mm.yyyy, keeping unparsable input as is.
func FormatDate(raw string) string {
	t := models.ParseTimestamp(raw)
	if t.IsZero() {
		return raw
	}
	return t.Format("02.01.2006")
}

func intOrBlank(p *int) any {
	if p == nil {
		return ""
	}
	return *p
}

// Title is the caption written above the table.
func Title(generatedAt time.Time) string {
	return "Выдачи на " + generatedAt.Format("02.01.2006 15:04")
}

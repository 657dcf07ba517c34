package bot

import (
	"fmt"
	"html"
	"strings"

	"libraryhub/internal/borrowing"
	"libraryhub/internal/models"
	"libraryhub/internal/report"
)

var statusLabels = map[models.Status]string{
	models.StatusPending:  "ожидает одобрения",
	models.StatusActive:   "на руках",
	models.StatusDueSoon:  "скоро срок",
	models.StatusOverdue:  "просрочена",
	models.StatusReturned: "возвращена",
}

func statusLabel(s models.Status) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return html.EscapeString(string(s))
}

func bookTitle(v models.BorrowingView) string {
	if v.Book != nil && v.Book.Title != "" {
		return html.EscapeString(v.Book.Title)
	}
	return fmt.Sprintf("книга #%d", v.BookID)
}

// formatLine is one list entry.
func formatLine(v models.BorrowingView) string {
	line := fmt.Sprintf("#%d %s, %s", v.ID, bookTitle(v), html.EscapeString(v.Member.DisplayName()))
	switch {
	case v.Derived.Status == models.StatusOverdue && v.Derived.DaysOverdue != nil:
		line += fmt.Sprintf(": %d дн., штраф %.0f", *v.Derived.DaysOverdue, v.Derived.Fine)
	case v.Derived.Status == models.StatusDueSoon && v.Derived.DaysUntilDue != nil:
		line += fmt.Sprintf(": осталось %d дн.", *v.Derived.DaysUntilDue)
	}
	return line
}

func formatCard(v models.BorrowingView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Выдача #%d</b>\n", v.ID)
	fmt.Fprintf(&b, "Книга: %s\n", bookTitle(v))
	fmt.Fprintf(&b, "Читатель: %s\n", html.EscapeString(v.Member.DisplayName()))
	fmt.Fprintf(&b, "Выдана: %s\n", html.EscapeString(report.FormatDate(v.BorrowDate)))
	fmt.Fprintf(&b, "Срок: %s\n", html.EscapeString(report.FormatDate(v.DueDate)))
	if v.ReturnDate != nil {
		fmt.Fprintf(&b, "Возвращена: %s\n", html.EscapeString(report.FormatDate(*v.ReturnDate)))
	}
	fmt.Fprintf(&b, "Статус: %s\n", statusLabel(v.Derived.Status))
	if v.Derived.DaysOverdue != nil {
		fmt.Fprintf(&b, "Просрочка: %d дн.\n", *v.Derived.DaysOverdue)
	} else if v.Derived.DaysUntilDue != nil && v.Derived.Status != models.StatusReturned {
		fmt.Fprintf(&b, "До срока: %d дн.\n", *v.Derived.DaysUntilDue)
	}
	if v.Derived.Fine > 0 {
		fmt.Fprintf(&b, "Штраф: %.0f\n", v.Derived.Fine)
	}
	return b.String()
}

func formatSummary(s borrowing.Summary) string {
	var b strings.Builder
	b.WriteString("<b>📊 Сводка по выдачам</b>\n\n")
	fmt.Fprintf(&b, "Всего: %d\n", s.Total)
	fmt.Fprintf(&b, "На руках: %d\n", s.Issued)
	fmt.Fprintf(&b, "Ожидают одобрения: %d\n", s.Pending)
	fmt.Fprintf(&b, "Скоро срок: %d\n", s.DueSoon)
	fmt.Fprintf(&b, "Просрочены: %d\n", s.Overdue)
	fmt.Fprintf(&b, "Возвращены: %d\n", s.Returned)
	fmt.Fprintf(&b, "\nНеоплаченные штрафы: %.0f\n", s.UnpaidFines)
	fmt.Fprintf(&b, "Начислено при возврате: %.0f\n", s.CollectedFines)
	fmt.Fprintf(&b, "\nКниг в фонде: %d\n", s.TotalBooks)
	fmt.Fprintf(&b, "Читателей: %d\n", s.Members)
	return b.String()
}

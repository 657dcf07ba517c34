package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"libraryhub/internal/metrics"
	"libraryhub/internal/models"

	"github.com/rs/zerolog"
)

// ViewLister returns derived borrowing views filtered by derived status.
type ViewLister interface {
	List(ctx context.Context, filter models.BorrowingFilter, statuses ...models.Status) ([]models.BorrowingView, error)
}

// Sender delivers HTML text to a chat, splitting it when needed.
type Sender interface {
	SendLongHTML(chatID int64, text string) error
}

// Reminder sends a daily digest of overdue and due-soon borrowings to librarian chats.
type Reminder struct {
	views   ViewLister
	sender  Sender
	chatIDs []int64
	hour    int
	minute  int
	logger  *zerolog.Logger
	now     func() time.Time
}

// NewReminder parses reminderTime as HH:MM.
func NewReminder(views ViewLister, sender Sender, chatIDs []int64, reminderTime string, logger *zerolog.Logger) (*Reminder, error) {
	hour, minute := models.ReminderHour, 0
	if reminderTime != "" {
		if _, err := fmt.Sscanf(reminderTime, "%d:%d", &hour, &minute); err != nil {
			return nil, fmt.Errorf("invalid reminder time %q: %w", reminderTime, err)
		}
		if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
			return nil, fmt.Errorf("invalid reminder time %q", reminderTime)
		}
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Reminder{
		views:   views,
		sender:  sender,
		chatIDs: chatIDs,
		hour:    hour,
		minute:  minute,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Start waits until the next reminder time, then sends a digest every 24h until ctx is done.
func (r *Reminder) Start(ctx context.Context) {
	timer := time.NewTimer(r.untilNext())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if err := r.SendDigest(ctx); err != nil {
				r.logger.Error().Err(err).Msg("reminder: send digest error")
			}
			timer.Reset(24 * time.Hour)
		}
	}
}

// SendDigest lists overdue and due-soon borrowings and sends them to every chat.
// Nothing is sent when there is nothing to report.
func (r *Reminder) SendDigest(ctx context.Context) error {
	views, err := r.views.List(ctx, models.BorrowingFilter{}, models.StatusOverdue, models.StatusDueSoon)
	if err != nil {
		return fmt.Errorf("list borrowings: %w", err)
	}
	if len(views) == 0 {
		r.logger.Info().Msg("reminder: nothing to report")
		return nil
	}

	text := FormatDigest(views, r.now())
	var sendErr error
	for _, chatID := range r.chatIDs {
		if err := r.sender.SendLongHTML(chatID, text); err != nil {
			r.logger.Error().Err(err).Int64("chat_id", chatID).Msg("reminder: send error")
			sendErr = err
			continue
		}
		metrics.IncReminder()
	}
	return sendErr
}

func (r *Reminder) untilNext() time.Duration {
	now := r.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), r.hour, r.minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}

// FormatDigest renders views as an HTML message, overdue first.
func FormatDigest(views []models.BorrowingView, now time.Time) string {
	var overdue, dueSoon []models.BorrowingView
	var unpaid float64
	for _, v := range views {
		switch v.Derived.Status {
		case models.StatusOverdue:
			overdue = append(overdue, v)
			unpaid += v.Derived.Fine
		case models.StatusDueSoon:
			dueSoon = append(dueSoon, v)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>Выдачи на %s</b>\n", now.Format("02.01.2006"))

	if len(overdue) > 0 {
		fmt.Fprintf(&b, "\n<b>Просрочены (%d)</b>\n", len(overdue))
		for _, v := range overdue {
			fmt.Fprintf(&b, "• %s, %s: %d дн., штраф %s\n",
				bookTitle(v), html.EscapeString(v.Member.DisplayName()), deref(v.Derived.DaysOverdue), money(v.Derived.Fine))
		}
		fmt.Fprintf(&b, "Итого штрафов: %s\n", money(unpaid))
	}

	if len(dueSoon) > 0 {
		fmt.Fprintf(&b, "\n<b>Скоро срок (%d)</b>\n", len(dueSoon))
		for _, v := range dueSoon {
			fmt.Fprintf(&b, "• %s, %s: осталось %d дн.\n",
				bookTitle(v), html.EscapeString(v.Member.DisplayName()), deref(v.Derived.DaysUntilDue))
		}
	}

	return b.String()
}

func bookTitle(v models.BorrowingView) string {
	if v.Book != nil && v.Book.Title != "" {
		return html.EscapeString(v.Book.Title)
	}
	return fmt.Sprintf("книга #%d", v.BookID)
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func money(v float64) string {
	return fmt.Sprintf("%.0f", v)
}

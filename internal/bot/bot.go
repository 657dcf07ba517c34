// Package bot is the librarian Telegram bot: overdue lists, summaries and approvals.
package bot

import (
	"context"
	"sync"
	"time"

	"libraryhub/internal/borrowing"
	"libraryhub/internal/metrics"
	"libraryhub/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	defaultPageSize = models.DefaultPageSize
	updateTimeout   = 30 * time.Second

	// per-user message budget
	userRate  = rate.Limit(1)
	userBurst = 5
)

// API is the part of *tgbotapi.BotAPI the bot uses.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	StopReceivingUpdates()
}

// Borrowings is the borrowing service surface used by the bot.
type Borrowings interface {
	List(ctx context.Context, filter models.BorrowingFilter, statuses ...models.Status) ([]models.BorrowingView, error)
	Get(ctx context.Context, id int64) (*models.BorrowingView, error)
	Summary(ctx context.Context, filter models.BorrowingFilter) (borrowing.Summary, error)
	Approve(ctx context.Context, id int64) error
	Deny(ctx context.Context, id int64) error
	ApproveReturn(ctx context.Context, id int64) error
	DenyReturn(ctx context.Context, id int64) error
}

type Bot struct {
	api        API
	borrowings Borrowings
	librarians map[int64]bool
	pageSize   int
	limiters   sync.Map
	logger     *zerolog.Logger
}

// NewBot builds a bot that answers only the given librarian user ids.
func NewBot(api API, borrowings Borrowings, librarianIDs []int64, pageSize int, logger *zerolog.Logger) *Bot {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	librarians := make(map[int64]bool, len(librarianIDs))
	for _, id := range librarianIDs {
		librarians[id] = true
	}

	return &Bot{
		api:        api,
		borrowings: borrowings,
		librarians: librarians,
		pageSize:   pageSize,
		logger:     logger,
	}
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info().Int("librarians", len(b.librarians)).Msg("Bot started")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

// Stop stops receiving Telegram updates.
func (b *Bot) Stop() {
	if b == nil || b.api == nil {
		return
	}
	b.api.StopReceivingUpdates()
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	defer func() {
		metrics.ObserveBotUpdate(time.Since(start))
	}()

	updateCtx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()

	l := b.logger.With().Str("request_id", uuid.New().String()).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(func() {
		var userID int64
		switch {
		case update.Message != nil && update.Message.From != nil:
			userID = update.Message.From.ID
		case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
			userID = update.CallbackQuery.From.ID
		}
		if userID == 0 {
			return
		}

		if !b.librarians[userID] {
			l.Warn().Int64("user_id", userID).Msg("Update from unknown user ignored")
			if update.Message != nil {
				b.sendText(update.Message.Chat.ID, msgNotLibrarian)
			}
			return
		}

		if !b.allow(userID) {
			l.Warn().Int64("user_id", userID).Msg("Rate limit exceeded")
			if update.Message != nil {
				b.sendText(update.Message.Chat.ID, msgRateLimited)
			}
			return
		}

		if update.CallbackQuery != nil {
			b.handleCallback(updateCtx, update.CallbackQuery)
			return
		}
		if update.Message != nil && update.Message.IsCommand() {
			b.handleCommand(updateCtx, update.Message)
		}
	})
}

func (b *Bot) withRecovery(handler func()) {
	defer func() {
		if r := recover(); r != nil {
			metrics.IncBotCommand("panic", "error")
			b.logger.Error().Interface("panic", r).Msg("Recovered from panic in update handler")
		}
	}()
	handler()
}

func (b *Bot) allow(userID int64) bool {
	if v, ok := b.limiters.Load(userID); ok {
		return v.(*rate.Limiter).Allow()
	}
	v, _ := b.limiters.LoadOrStore(userID, rate.NewLimiter(userRate, userBurst))
	return v.(*rate.Limiter).Allow()
}

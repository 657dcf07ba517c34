package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"libraryhub/internal/metrics"
	"libraryhub/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// list kinds, also used in pagination callbacks
const (
	listOverdue = "overdue"
	listDueSoon = "duesoon"
	listPending = "pending"
)

// callback actions
const (
	actionApprove       = "approve"
	actionDeny          = "deny"
	actionApproveReturn = "approve-return"
	actionDenyReturn    = "deny-return"
	actionPage          = "page"
	actionCard          = "card"
)

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	command := msg.Command()
	result := "ok"
	defer func() { metrics.IncBotCommand(command, result) }()

	switch command {
	case "start", "help":
		b.sendText(chatID, msgHelp)
	case listOverdue, listDueSoon, listPending:
		if err := b.sendList(ctx, chatID, 0, command, 0); err != nil {
			result = "error"
			b.replyError(ctx, chatID, err)
		}
	case "summary":
		if err := b.sendSummary(ctx, chatID); err != nil {
			result = "error"
			b.replyError(ctx, chatID, err)
		}
	case "loan":
		id, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
		if err != nil || id <= 0 {
			result = "bad_request"
			b.sendText(chatID, msgLoanUsage)
			return
		}
		if err := b.sendCard(ctx, chatID, 0, id); err != nil {
			result = "error"
			b.replyError(ctx, chatID, err)
		}
	default:
		result = "unknown"
		b.sendText(chatID, msgUnknownCommand)
	}
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.Message == nil {
		return
	}
	chatID := q.Message.Chat.ID
	messageID := q.Message.MessageID

	action, arg, ok := strings.Cut(q.Data, ":")
	if !ok {
		b.answer(q, "")
		return
	}

	result := "ok"
	defer func() { metrics.IncBotCommand("cb_"+action, result) }()

	if action == actionPage {
		kind, pageStr, _ := strings.Cut(arg, ":")
		page, _ := strconv.Atoi(pageStr)
		if err := b.sendList(ctx, chatID, messageID, kind, page); err != nil {
			result = "error"
			b.replyError(ctx, chatID, err)
		}
		b.answer(q, "")
		return
	}

	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		result = "bad_request"
		b.answer(q, "")
		return
	}

	if action == actionCard {
		if err := b.sendCard(ctx, chatID, 0, id); err != nil {
			result = "error"
			b.replyError(ctx, chatID, err)
		}
		b.answer(q, "")
		return
	}

	call, done := b.transition(action)
	if call == nil {
		result = "unknown"
		b.answer(q, "")
		return
	}

	if err := call(ctx, id); err != nil {
		result = "error"
		zerolog.Ctx(ctx).Error().Err(err).Str("action", action).Int64("borrowing_id", id).Msg("Borrowing action failed")
		b.answer(q, userMessage(err))
		return
	}

	zerolog.Ctx(ctx).Info().Str("action", action).Int64("borrowing_id", id).Int64("user_id", q.From.ID).Msg("Borrowing action applied")
	b.answer(q, done)
	if err := b.sendCard(ctx, chatID, messageID, id); err != nil {
		b.replyError(ctx, chatID, err)
	}
}

func (b *Bot) transition(action string) (func(context.Context, int64) error, string) {
	switch action {
	case actionApprove:
		return b.borrowings.Approve, "Выдача одобрена"
	case actionDeny:
		return b.borrowings.Deny, "Запрос отклонён"
	case actionApproveReturn:
		return b.borrowings.ApproveReturn, "Возврат подтверждён"
	case actionDenyReturn:
		return b.borrowings.DenyReturn, "Возврат отклонён"
	default:
		return nil, ""
	}
}

func listStatus(kind string) (models.Status, string, bool) {
	switch kind {
	case listOverdue:
		return models.StatusOverdue, "⏰ Просроченные выдачи", true
	case listDueSoon:
		return models.StatusDueSoon, "📅 Скоро срок возврата", true
	case listPending:
		return models.StatusPending, "📝 Ожидают одобрения", true
	default:
		return "", "", false
	}
}

// sendList renders one page of a status list; messageID > 0 edits the message in place.
func (b *Bot) sendList(ctx context.Context, chatID int64, messageID int, kind string, page int) error {
	status, title, ok := listStatus(kind)
	if !ok {
		return nil
	}

	views, err := b.borrowings.List(ctx, models.BorrowingFilter{}, status)
	if err != nil {
		return err
	}
	if len(views) == 0 {
		b.sendOrEdit(chatID, messageID, title+"\n\n"+msgEmptyList, nil)
		return nil
	}

	p := paginate(len(views), page, b.pageSize)
	var text strings.Builder
	text.WriteString(title)
	if p.Pages > 1 {
		fmt.Fprintf(&text, " (стр. %d из %d)", p.Page+1, p.Pages)
	}
	text.WriteString("\n\n")

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, v := range views[p.Start:p.End] {
		text.WriteString(formatLine(v))
		text.WriteString("\n")
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("#%d", v.ID), fmt.Sprintf("%s:%d", actionCard, v.ID)),
		))
	}
	if nav := navRow(kind, p); len(nav) > 0 {
		rows = append(rows, nav)
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	b.sendOrEdit(chatID, messageID, text.String(), &markup)
	return nil
}

func (b *Bot) sendSummary(ctx context.Context, chatID int64) error {
	s, err := b.borrowings.Summary(ctx, models.BorrowingFilter{})
	if err != nil {
		return err
	}
	b.sendOrEdit(chatID, 0, formatSummary(s), nil)
	return nil
}

func (b *Bot) sendCard(ctx context.Context, chatID int64, messageID int, id int64) error {
	v, err := b.borrowings.Get(ctx, id)
	if err != nil {
		return err
	}

	var markup *tgbotapi.InlineKeyboardMarkup
	if row := actionRow(*v); len(row) > 0 {
		m := tgbotapi.NewInlineKeyboardMarkup(row)
		markup = &m
	}
	b.sendOrEdit(chatID, messageID, formatCard(*v), markup)
	return nil
}

func actionRow(v models.BorrowingView) []tgbotapi.InlineKeyboardButton {
	switch v.Derived.Status {
	case models.StatusPending:
		return tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Одобрить", fmt.Sprintf("%s:%d", actionApprove, v.ID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отклонить", fmt.Sprintf("%s:%d", actionDeny, v.ID)),
		)
	case models.StatusActive, models.StatusDueSoon, models.StatusOverdue:
		return tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📥 Принять возврат", fmt.Sprintf("%s:%d", actionApproveReturn, v.ID)),
			tgbotapi.NewInlineKeyboardButtonData("↩️ Отклонить возврат", fmt.Sprintf("%s:%d", actionDenyReturn, v.ID)),
		)
	default:
		return nil
	}
}

func (b *Bot) sendOrEdit(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	var c tgbotapi.Chattable
	if messageID > 0 {
		edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
		edit.ParseMode = tgbotapi.ModeHTML
		edit.ReplyMarkup = markup
		c = edit
	} else {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		if markup != nil {
			msg.ReplyMarkup = *markup
		}
		c = msg
	}
	if _, err := b.api.Send(c); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

func (b *Bot) answer(q *tgbotapi.CallbackQuery, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(q.ID, text)); err != nil {
		b.logger.Warn().Err(err).Msg("Failed to answer callback")
	}
}

func (b *Bot) replyError(ctx context.Context, chatID int64, err error) {
	zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", chatID).Msg("Command failed")
	b.sendText(chatID, userMessage(err))
}

package service

import (
	"strings"
	"unicode/utf8"

	"libraryhub/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegramMessageLimit is the Bot API cap on message text length.
const telegramMessageLimit = 4096

type TelegramService struct {
	bot domain.TelegramSender
}

func NewTelegramService(bot domain.TelegramSender) *TelegramService {
	return &TelegramService{
		bot: bot,
	}
}

func (s *TelegramService) SendMessage(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	return s.bot.Send(msg)
}

func (s *TelegramService) SendHTML(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	return s.bot.Send(msg)
}

// SendLongHTML splits text on line boundaries so each part fits one message.
func (s *TelegramService) SendLongHTML(chatID int64, text string) error {
	for _, part := range SplitMessage(text, telegramMessageLimit) {
		if _, err := s.SendHTML(chatID, part); err != nil {
			return err
		}
	}
	return nil
}

// SplitMessage cuts text into chunks of at most limit bytes, preferring newline boundaries.
func SplitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var parts []string
	for len(text) > limit {
		cut := strings.LastIndexByte(text[:limit], '\n') + 1
		if cut == 0 {
			// no newline: cut on a rune boundary
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
		}
		parts = append(parts, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}

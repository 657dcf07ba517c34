package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type pageWindow struct {
	Page, Pages int
	Start, End  int
}

// paginate clamps page into range and returns the slice bounds for it.
func paginate(total, page, size int) pageWindow {
	if size <= 0 {
		size = defaultPageSize
	}
	pages := (total + size - 1) / size
	if page >= pages {
		page = pages - 1
	}
	if page < 0 {
		page = 0
	}

	start := page * size
	end := start + size
	if end > total {
		end = total
	}
	return pageWindow{Page: page, Pages: pages, Start: start, End: end}
}

func navRow(kind string, p pageWindow) []tgbotapi.InlineKeyboardButton {
	var nav []tgbotapi.InlineKeyboardButton
	if p.Page > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", fmt.Sprintf("%s:%s:%d", actionPage, kind, p.Page-1)))
	}
	if p.Page < p.Pages-1 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Вперед ➡️", fmt.Sprintf("%s:%s:%d", actionPage, kind, p.Page+1)))
	}
	return nav
}

package bot

import (
	"errors"

	"libraryhub/internal/backend"
	"libraryhub/internal/domain"
	"libraryhub/internal/service"
)

const (
	msgHelp = "Команды библиотекаря:\n" +
		"/overdue - просроченные выдачи\n" +
		"/duesoon - скоро срок возврата\n" +
		"/pending - запросы на выдачу\n" +
		"/summary - сводка\n" +
		"/loan <id> - карточка выдачи"
	msgNotLibrarian   = "⛔ Бот доступен только библиотекарям."
	msgRateLimited    = "⚠️ Слишком много запросов. Подождите немного."
	msgUnknownCommand = "Неизвестная команда. /help - список команд."
	msgLoanUsage      = "Укажите номер выдачи: /loan 42"
	msgEmptyList      = "Список пуст."
)

func userMessage(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, domain.ErrNotFound) {
		return "⚠️ Выдача не найдена."
	}
	if errors.Is(err, service.ErrActionsUnavailable) {
		return "⚠️ Действия с выдачами сейчас недоступны."
	}

	var backendErr *backend.Error
	if errors.As(err, &backendErr) && backendErr.StatusCode < 500 && backendErr.Message != "" {
		return "⚠️ " + backendErr.Message
	}

	return "❌ Произошла ошибка при обработке запроса. Попробуйте позже."
}

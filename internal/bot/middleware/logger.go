// Package middleware содержит промежуточные обработчики бота:
// логирование апдейтов, восстановление после паники и rate-limiting.
package middleware

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Длиннее этого текст сообщения в лог не попадает: пользователи
// присылают в поиск материалов целые абзацы.
const logTextLimit = 80

// LogMessage логирует входящее сообщение покупателя.
func LogMessage(message *tgbotapi.Message) {
	if message == nil {
		return
	}

	text := message.Text
	if len(text) > logTextLimit {
		text = text[:logTextLimit] + "..."
	}

	log.WithFields(log.Fields{
		"user_id":   message.From.ID,
		"chat_id":   message.Chat.ID,
		"chat_type": message.Chat.Type,
		"username":  message.From.UserName,
		"text":      text,
	}).Debug("Входящее сообщение")
}

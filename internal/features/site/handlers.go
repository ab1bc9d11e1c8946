// Package site — handlers.go: команда бота «объявления».
package site

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Handler обрабатывает команды объявлений.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleNotices — команда «объявления».
func (h *Handler) HandleNotices(ctx context.Context, chatID int64) {
	notices, err := h.service.ActiveNotices(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка получения объявлений")
		h.sendMessage(chatID, "❌ Не удалось получить объявления")
		return
	}
	if len(notices) == 0 {
		h.sendMessage(chatID, "Объявлений пока нет")
		return
	}

	var sb strings.Builder
	sb.WriteString("📢 Объявления:\n\n")
	for _, n := range notices {
		sb.WriteString(fmt.Sprintf("▪️ %s\n%s\n\n", n.Title, n.Content))
	}
	h.sendMessage(chatID, strings.TrimSpace(sb.String()))
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}

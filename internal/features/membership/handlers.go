// Package membership — handlers.go: команда бота «пакеты».
package membership

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Handler обрабатывает команды подписок.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandlePackages — команда «пакеты»: витрина тарифных пакетов.
func (h *Handler) HandlePackages(ctx context.Context, chatID int64) {
	packages, err := h.service.ListPackages(ctx, true)
	if err != nil {
		log.WithError(err).Error("Ошибка получения пакетов")
		h.sendMessage(chatID, "❌ Не удалось получить список пакетов")
		return
	}
	if len(packages) == 0 {
		h.sendMessage(chatID, "Пакеты подписки пока не настроены")
		return
	}

	var sb strings.Builder
	sb.WriteString("🎫 Пакеты подписки:\n\n")
	for _, p := range packages {
		sb.WriteString(fmt.Sprintf("[%d] %s — %.2f ₽", p.ID, p.Name, float64(p.Price)/100))
		if p.DurationDays != nil {
			sb.WriteString(fmt.Sprintf(", %d дн.", *p.DurationDays))
		} else {
			sb.WriteString(", бессрочно")
		}
		sb.WriteString("\n")
		if p.Description != "" {
			sb.WriteString("    " + p.Description + "\n")
		}
	}
	h.sendMessage(chatID, sb.String())
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}

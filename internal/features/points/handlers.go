// Package points — handlers.go: команды бота «баллы» и «история».
package points

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/xujiafei/mingrixueba-server/internal/common"
)

// Handler обрабатывает команды баллов.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleBalance — команда «баллы»: сводка баланса с отсчётом сгорания.
func (h *Handler) HandleBalance(ctx context.Context, chatID, userID int64) {
	summary, err := h.service.BalanceSummary(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка получения баланса")
		h.sendMessage(chatID, "❌ Не удалось получить баланс, попробуйте позже")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("💎 Ваш баланс: %s\n", common.FormatPoints(summary.Total)))
	if summary.ExpiringSoon > 0 {
		sb.WriteString(fmt.Sprintf("⚠️ Скоро сгорит: %s\n", common.FormatPoints(summary.ExpiringSoon)))
	}
	if len(summary.Grants) > 0 {
		sb.WriteString("\nНачисления:\n")
		for _, g := range summary.Grants {
			if g.Grant.ExpiresAt == nil {
				sb.WriteString(fmt.Sprintf("• %s — бессрочно\n", common.FormatPoints(g.Grant.Amount)))
				continue
			}
			sb.WriteString(fmt.Sprintf("• %s — сгорят %s (через %d %s)\n",
				common.FormatPoints(g.Grant.Amount),
				common.FormatDate(*g.Grant.ExpiresAt),
				g.DaysRemaining, common.PluralizeDays(g.DaysRemaining)))
		}
	}
	h.sendMessage(chatID, sb.String())
}

// HandleHistory — команда «история [страница]».
func (h *Handler) HandleHistory(ctx context.Context, chatID, userID int64, page int) {
	entries, err := h.service.History(ctx, userID, page, 10)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка получения истории")
		h.sendMessage(chatID, "❌ Не удалось получить историю, попробуйте позже")
		return
	}
	if len(entries) == 0 {
		h.sendMessage(chatID, "История операций пуста")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📜 История операций (стр. %d):\n\n", page))
	for _, e := range entries {
		sign := "+"
		if e.Amount < 0 {
			sign = ""
		}
		sb.WriteString(fmt.Sprintf("%s %s%d — %s (%s)\n",
			common.FormatDateTime(e.CreatedAt), sign, e.Amount,
			operationLabel(e), e.Kind))
	}
	h.sendMessage(chatID, sb.String())
}

// operationLabel переводит источник/причину операции для пользователя.
func operationLabel(e *HistoryEntry) string {
	switch e.Label {
	case SourcePurchase:
		return "покупка баллов"
	case SourceAdminGrant:
		return "начисление администратором"
	case SourceExchangeRefund:
		return "возврат за обмен"
	case ReasonExchange:
		return "обмен семестра"
	case ReasonAdminDeduction:
		return "списание администратором"
	case ReasonReset:
		return "сброс баланса"
	case ReasonExpire:
		return "сгорание по сроку"
	}
	return e.Label
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}

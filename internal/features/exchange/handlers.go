// Package exchange — handlers.go: команды бота «семестры», «обменять», «мои».
package exchange

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/xujiafei/mingrixueba-server/internal/common"
	"github.com/xujiafei/mingrixueba-server/internal/features/catalog"
	"github.com/xujiafei/mingrixueba-server/internal/features/membership"
)

// Handler обрабатывает команды обмена.
type Handler struct {
	service     *Service
	catalog     *catalog.Service
	memberships *membership.Service
	bot         *tgbotapi.BotAPI
}

func NewHandler(service *Service, cat *catalog.Service, ms *membership.Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, catalog: cat, memberships: ms, bot: bot}
}

// HandleSemesters — команда «семестры [класс]»: витрина обмена.
func (h *Handler) HandleSemesters(ctx context.Context, chatID int64, args []string) {
	grade := -1
	if len(args) > 0 {
		g, err := strconv.Atoi(args[0])
		if err != nil || g < 0 || g > 9 {
			h.sendMessage(chatID, "❌ Класс должен быть числом от 0 до 9")
			return
		}
		grade = g
	}

	semesters, err := h.catalog.ListSemesters(ctx, grade)
	if err != nil {
		log.WithError(err).Error("Ошибка получения витрины семестров")
		h.sendMessage(chatID, "❌ Не удалось получить список семестров")
		return
	}
	if len(semesters) == 0 {
		h.sendMessage(chatID, "Семестров не найдено")
		return
	}

	var sb strings.Builder
	sb.WriteString("📚 Семестры для обмена:\n\n")
	for _, s := range semesters {
		sb.WriteString(fmt.Sprintf("[%d] %d класс, %s — %s, %d %s\n",
			s.Category.ID, s.Category.Grade, s.Category.Name,
			common.FormatPoints(s.Cost),
			s.MaterialCount, common.PluralizeMaterials(s.MaterialCount)))
	}
	sb.WriteString("\nОбмен: «обменять <номер>»")
	h.sendMessage(chatID, sb.String())
}

// HandleExchange — команда «обменять <номер семестра>».
func (h *Handler) HandleExchange(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) != 1 {
		h.sendMessage(chatID, "Формат: обменять <номер семестра>")
		return
	}
	semesterID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.sendMessage(chatID, "❌ Номер семестра должен быть числом")
		return
	}

	result, err := h.service.ExchangeSemester(ctx, userID, semesterID)
	if err != nil {
		h.sendMessage(chatID, "❌ "+exchangeError(err))
		return
	}

	h.sendMessage(chatID, fmt.Sprintf(
		"✅ Семестр обменян!\nСписано: %s\nОткрыто: %d %s\nОстаток: %s",
		common.FormatPoints(result.Exchange.PointsSpent),
		result.MaterialCount, common.PluralizeMaterials(result.MaterialCount),
		common.FormatPoints(result.NewBalance)))
}

// HandleMine — команда «мои»: тариф и обменянные семестры.
func (h *Handler) HandleMine(ctx context.Context, chatID, userID int64) {
	standing, err := h.memberships.CurrentStanding(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка получения подписки")
		h.sendMessage(chatID, "❌ Не удалось получить данные, попробуйте позже")
		return
	}

	exchanges, names, err := h.service.ExchangedSemesters(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка получения обменов")
		h.sendMessage(chatID, "❌ Не удалось получить данные, попробуйте позже")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🎫 Тариф: %s", tierLabel(standing.Tier)))
	if standing.ExpiryAt != nil {
		if standing.Active {
			sb.WriteString(fmt.Sprintf(" (до %s)", common.FormatDate(*standing.ExpiryAt)))
		} else {
			sb.WriteString(" (истёк)")
		}
	}
	sb.WriteString("\n\n")

	if len(exchanges) == 0 {
		sb.WriteString("Обменянных семестров нет")
	} else {
		sb.WriteString(fmt.Sprintf("Обменяно: %d %s\n",
			len(exchanges), common.PluralizeSemesters(len(exchanges))))
		for _, ex := range exchanges {
			name := names[ex.SemesterID]
			if name == "" {
				name = fmt.Sprintf("семестр %d", ex.SemesterID)
			}
			sb.WriteString(fmt.Sprintf("• %s — %s (%s)\n",
				name, common.FormatPoints(ex.PointsSpent), common.FormatDate(ex.ExchangedAt)))
		}
	}
	h.sendMessage(chatID, sb.String())
}

func tierLabel(tier string) string {
	switch tier {
	case membership.TierNone:
		return "нет подписки"
	case membership.TierPoints:
		return "баллы"
	case membership.TierSingle:
		return "один семестр"
	case membership.TierDouble:
		return "два семестра"
	case membership.TierPrimaryFull:
		return "вся начальная школа"
	case membership.TierJuniorFull:
		return "вся средняя школа"
	}
	return tier
}

func exchangeError(err error) string {
	var ipe *common.InsufficientPointsError
	switch {
	case errors.As(err, &ipe):
		return fmt.Sprintf("недостаточно баллов: нужно %d, доступно %d", ipe.Required, ipe.Available)
	case errors.Is(err, common.ErrAlreadyExchanged):
		return "этот семестр уже обменян"
	case errors.Is(err, common.ErrSemesterNotFound):
		return "семестр не найден"
	case errors.Is(err, common.ErrTransactionConflict):
		return "не получилось из-за параллельной операции, попробуйте ещё раз"
	}
	return "не удалось выполнить обмен, попробуйте позже"
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}

// Package access — handlers.go: команды бота «скачать» и «доступы».
package access

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/xujiafei/mingrixueba-server/internal/common"
)

// Handler обрабатывает команды доступа к материалам.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleDownload — команда «скачать <номер материала>»: проверка доступа
// и выдача ссылки на файл.
func (h *Handler) HandleDownload(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) != 1 {
		h.sendMessage(chatID, "Формат: скачать <номер материала>")
		return
	}
	materialID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.sendMessage(chatID, "❌ Номер материала должен быть числом")
		return
	}

	m, err := h.service.catalog.GetMaterial(ctx, materialID)
	if err != nil {
		if errors.Is(err, common.ErrMaterialNotFound) {
			h.sendMessage(chatID, "❌ Материал не найден")
			return
		}
		log.WithError(err).Error("Ошибка чтения материала")
		h.sendMessage(chatID, "❌ Не удалось получить материал, попробуйте позже")
		return
	}

	decision, err := h.service.RecordDownload(ctx, userID, materialID)
	if err != nil {
		log.WithError(err).WithField("material_id", materialID).Error("Ошибка проверки доступа")
		h.sendMessage(chatID, "❌ Не удалось проверить доступ, попробуйте позже")
		return
	}
	if !decision.Allowed {
		h.sendMessage(chatID,
			"🔒 Доступ закрыт. Обменяйте семестр на баллы («семестры») или оформите подписку («пакеты»)")
		return
	}

	h.sendMessage(chatID, fmt.Sprintf("📄 %s\n%s", m.Title, m.FileURL))
}

// HandleMyAccess — команда «доступы»: список выданных материалов.
func (h *Handler) HandleMyAccess(ctx context.Context, chatID, userID int64) {
	records, err := h.service.History(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка получения доступов")
		h.sendMessage(chatID, "❌ Не удалось получить список, попробуйте позже")
		return
	}
	if len(records) == 0 {
		h.sendMessage(chatID, "У вас пока нет выданных материалов")
		return
	}

	var sb strings.Builder
	sb.WriteString("🗂 Ваши материалы:\n\n")
	for _, r := range records {
		line := fmt.Sprintf("• материал %d (%s)", r.MaterialID, accessLabel(r.AccessType))
		if r.ExpiryAt != nil && r.AccessType != TypeExchange {
			line += fmt.Sprintf(" — до %s", common.FormatDate(*r.ExpiryAt))
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString("\nСкачивание: «скачать <номер>»")
	h.sendMessage(chatID, sb.String())
}

func accessLabel(accessType string) string {
	switch accessType {
	case TypeDirect:
		return "покупка"
	case TypeExchange:
		return "обмен"
	case TypeMembership:
		return "подписка"
	}
	return accessType
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}

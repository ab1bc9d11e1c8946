// Package catalog — handlers.go: команды бота «материалы» (поиск)
// и «материал» (карточка).
package catalog

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

// Handler обрабатывает команды каталога.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleSearch — команда «материалы <запрос>»: поиск по названию.
func (h *Handler) HandleSearch(ctx context.Context, chatID int64, args []string) {
	keyword := strings.Join(args, " ")
	if strings.TrimSpace(keyword) == "" {
		h.sendMessage(chatID, "Формат: материалы <запрос>")
		return
	}

	materials, err := h.service.SearchMaterials(ctx, keyword, 10)
	if err != nil {
		log.WithError(err).Error("Ошибка поиска материалов")
		h.sendMessage(chatID, "❌ Не удалось выполнить поиск, попробуйте позже")
		return
	}
	if len(materials) == 0 {
		h.sendMessage(chatID, "Ничего не найдено")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔍 Найдено по запросу «%s»:\n\n", keyword))
	for _, m := range materials {
		line := fmt.Sprintf("[%d] %s — %d класс, %s", m.ID, m.Title, m.Grade, m.Subject)
		if m.IsFree {
			line += " (бесплатно)"
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString("\nСкачивание: «скачать <номер>»")
	h.sendMessage(chatID, sb.String())
}

// HandleMaterial — команда «материал <номер>»: карточка материала.
// Просмотр карточки увеличивает счётчик просмотров.
func (h *Handler) HandleMaterial(ctx context.Context, chatID int64, args []string) {
	if len(args) != 1 {
		h.sendMessage(chatID, "Формат: материал <номер>")
		return
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.sendMessage(chatID, fmt.Sprintf("Некорректный номер «%s»", args[0]))
		return
	}

	m, err := h.service.GetMaterial(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrMaterialNotFound) {
			h.sendMessage(chatID, "Материал не найден")
			return
		}
		log.WithError(err).WithField("material_id", id).Error("Ошибка чтения материала")
		h.sendMessage(chatID, "❌ Не удалось загрузить материал, попробуйте позже")
		return
	}

	if err := h.service.RegisterView(ctx, m.ID); err != nil {
		// Счётчик просмотров не критичен для показа карточки
		log.WithError(err).WithField("material_id", m.ID).Warn("Не удалось учесть просмотр")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📄 [%d] %s\n%d класс, %s\n", m.ID, m.Title, m.Grade, m.Subject)
	if m.Description != "" {
		sb.WriteString(m.Description + "\n")
	}
	if m.PageCount > 0 {
		fmt.Fprintf(&sb, "Страниц: %d\n", m.PageCount)
	}
	if m.IsFree {
		sb.WriteString("Бесплатно\n")
	}
	fmt.Fprintf(&sb, "Скачиваний: %d, просмотров: %d\n", m.DownloadCount, m.ViewCount+1)
	sb.WriteString("\nСкачивание: «скачать " + args[0] + "»")
	h.sendMessage(chatID, sb.String())
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}

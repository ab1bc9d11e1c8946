// Package filters содержит фильтры входящих сообщений бота.
package filters

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/xujiafei/mingrixueba-server/internal/features/users"
)

// AccessFilter отсекает сообщения, которые бот не обслуживает:
// всё кроме личных сообщений и сообщения заблокированных пользователей.
type AccessFilter struct {
	userService *users.Service
	bot         *tgbotapi.BotAPI
}

func NewAccessFilter(userService *users.Service, bot *tgbotapi.BotAPI) *AccessFilter {
	return &AccessFilter{
		userService: userService,
		bot:         bot,
	}
}

// CheckAccess решает, обрабатывать ли сообщение.
func (f *AccessFilter) CheckAccess(ctx context.Context, message *tgbotapi.Message) bool {
	if message == nil || message.Chat == nil {
		log.WithField("component", "AccessFilter").Warn("nil message/chat")
		return false
	}
	if message.From == nil {
		log.WithFields(log.Fields{
			"component": "AccessFilter",
			"chat_id":   message.Chat.ID,
			"chat_type": message.Chat.Type,
		}).Warn("nil message.From (сервисное сообщение?)")
		return false
	}

	logger := log.WithFields(log.Fields{
		"component": "AccessFilter",
		"chat_id":   message.Chat.ID,
		"user_id":   message.From.ID,
	})

	// Магазин работает только в личке
	if !message.Chat.IsPrivate() {
		logger.Debug("deny: не личное сообщение")
		return false
	}

	u, err := f.userService.GetByTelegramID(ctx, message.From.ID)
	if err != nil {
		// Ещё не зарегистрирован — пропускаем, регистрация по первому сообщению
		logger.Debug("allow: новый пользователь")
		return true
	}
	if !u.IsActive {
		logger.Info("deny: пользователь заблокирован")
		msg := tgbotapi.NewMessage(message.Chat.ID, "❌ Ваш аккаунт заблокирован. Обратитесь в поддержку.")
		if _, sendErr := f.bot.Send(msg); sendErr != nil {
			logger.WithError(sendErr).Warn("Не удалось отправить отказ")
		}
		return false
	}
	return true
}

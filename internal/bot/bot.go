// Package bot содержит главный модуль бота — инициализацию, запуск и остановку.
// bot.go подключает обработчики фич и запускает polling.
package bot

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/xujiafei/mingrixueba-server/internal/bot/filters"
	"github.com/xujiafei/mingrixueba-server/internal/bot/middleware"
	"github.com/xujiafei/mingrixueba-server/internal/config"
	"github.com/xujiafei/mingrixueba-server/internal/features/access"
	"github.com/xujiafei/mingrixueba-server/internal/features/admin"
	"github.com/xujiafei/mingrixueba-server/internal/features/catalog"
	"github.com/xujiafei/mingrixueba-server/internal/features/exchange"
	"github.com/xujiafei/mingrixueba-server/internal/features/membership"
	"github.com/xujiafei/mingrixueba-server/internal/features/points"
	"github.com/xujiafei/mingrixueba-server/internal/features/site"
	"github.com/xujiafei/mingrixueba-server/internal/features/users"
)

// Handlers — обработчики фич, которые бот маршрутизирует.
type Handlers struct {
	Points     *points.Handler
	Exchange   *exchange.Handler
	Catalog    *catalog.Handler
	Access     *access.Handler
	Membership *membership.Handler
	Site       *site.Handler
	Admin      *admin.Handler
}

// Bot — главная структура бота.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg *config.Config

	accessFilter *filters.AccessFilter
	rateLimiter  *middleware.RateLimiter

	userService *users.Service
	handlers    Handlers
	parser      *CommandParser

	// Ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт бота со всеми зависимостями.
func New(api *tgbotapi.BotAPI, cfg *config.Config, userService *users.Service, handlers Handlers, accessFilter *filters.AccessFilter) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:          api,
		cfg:          cfg,
		accessFilter: accessFilter,
		rateLimiter:  middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		userService:  userService,
		handlers:     handlers,
		parser:       NewCommandParser(),
		inflight:     make(chan struct{}, maxInFlight),
	}
}

// Start запускает polling обновлений от Telegram.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": b.cfg.BotMaxInflight,
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			b.rateLimiter.Close()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return
			}

			// Лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd tgbotapi.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.RecoverFromPanic()

	if update.Message == nil || update.Message.Text == "" {
		return
	}
	message := update.Message

	middleware.LogMessage(message)

	if !b.accessFilter.CheckAccess(ctx, message) {
		return
	}

	if !b.rateLimiter.Allow(message.From.ID) {
		log.WithField("user_id", message.From.ID).Debug("rate limited")
		return
	}

	chatID := message.Chat.ID
	telegramID := message.From.ID

	// Регистрация по первому сообщению, обновление имени по последующим
	u, err := b.userService.EnsureUser(ctx, telegramID, message.From.UserName, message.From.FirstName)
	if err != nil {
		log.WithError(err).WithField("telegram_id", telegramID).Error("EnsureUser failed")
		b.sendMessage(chatID, "❌ Внутренняя ошибка, попробуйте позже")
		return
	}

	// Админ-панель перехватывает сообщения своих диалогов
	if b.handlers.Admin.HandleAdminMessage(ctx, chatID, telegramID, message.Text) {
		return
	}

	cmd, args, isCommand := b.parser.ParseCommand(message.Text)
	if !isCommand {
		// В личке любое не-командное сообщение получает подсказку
		b.sendHelp(chatID)
		return
	}

	b.routeCommand(ctx, chatID, u.ID, cmd, args)
}

// routeCommand маршрутизирует команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, chatID, userID int64, cmd string, args []string) {
	log.WithFields(log.Fields{"cmd": cmd, "args": args}).Debug("routing command")

	switch cmd {
	case "start", "help", "помощь":
		b.sendHelp(chatID)

	case "баллы", "баланс":
		b.handlers.Points.HandleBalance(ctx, chatID, userID)

	case "история":
		page := 1
		if len(args) > 0 {
			if p, err := strconv.Atoi(args[0]); err == nil && p > 0 {
				page = p
			}
		}
		b.handlers.Points.HandleHistory(ctx, chatID, userID, page)

	case "семестры":
		if b.cfg.FeatureExchangeEnabled {
			b.handlers.Exchange.HandleSemesters(ctx, chatID, args)
		} else {
			b.sendMessage(chatID, "Обмен семестров временно отключён")
		}

	case "обменять":
		if b.cfg.FeatureExchangeEnabled {
			b.handlers.Exchange.HandleExchange(ctx, chatID, userID, args)
		} else {
			b.sendMessage(chatID, "Обмен семестров временно отключён")
		}

	case "мои":
		b.handlers.Exchange.HandleMine(ctx, chatID, userID)

	case "материалы":
		b.handlers.Catalog.HandleSearch(ctx, chatID, args)

	case "материал":
		b.handlers.Catalog.HandleMaterial(ctx, chatID, args)

	case "скачать":
		b.handlers.Access.HandleDownload(ctx, chatID, userID, args)

	case "доступы":
		b.handlers.Access.HandleMyAccess(ctx, chatID, userID)

	case "пакеты":
		b.handlers.Membership.HandlePackages(ctx, chatID)

	case "объявления":
		if b.cfg.FeatureNoticesEnabled {
			b.handlers.Site.HandleNotices(ctx, chatID)
		}
	}
}

func (b *Bot) sendHelp(chatID int64) {
	b.sendMessage(chatID, `Команды:
!баллы — баланс и сроки сгорания
!история [стр] — операции с баллами
!семестры [класс] — витрина обмена
!обменять <номер> — обменять семестр на баллы
!мои — тариф и обменянные семестры
!материалы <запрос> — поиск материалов
!материал <номер> — карточка материала
!скачать <номер> — скачать материал
!доступы — выданные материалы
!пакеты — пакеты подписки
!объявления — новости магазина`)
}

// sendMessage — утилита для отправки сообщений.
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

// SendMessageToUser отправляет сообщение пользователю (уведомления джоб).
func (b *Bot) SendMessageToUser(telegramID int64, text string) {
	msg := tgbotapi.NewMessage(telegramID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("telegram_id", telegramID).Debug("Не удалось отправить сообщение")
	}
}

// CommandParser парсит русские команды с префиксами !, . и /.
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд.
func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"!", ".", "/"},
	}
}

// ParseCommand разбирает текст на команду и аргументы.
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}
	if !hasPrefix {
		return "", nil, false
	}

	parts := strings.Fields(strings.TrimSpace(text))
	if len(parts) == 0 {
		return "", nil, false
	}

	command := strings.ToLower(parts[0])
	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}
	return command, args, true
}

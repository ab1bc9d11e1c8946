// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы, обработчики,
// фильтры и собирает всё в один объект Bot.
package app

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/xujiafei/mingrixueba-server/internal/bot"
	"github.com/xujiafei/mingrixueba-server/internal/bot/filters"
	"github.com/xujiafei/mingrixueba-server/internal/config"
	"github.com/xujiafei/mingrixueba-server/internal/db/postgres"
	"github.com/xujiafei/mingrixueba-server/internal/features/access"
	"github.com/xujiafei/mingrixueba-server/internal/features/admin"
	"github.com/xujiafei/mingrixueba-server/internal/features/catalog"
	"github.com/xujiafei/mingrixueba-server/internal/features/exchange"
	"github.com/xujiafei/mingrixueba-server/internal/features/membership"
	"github.com/xujiafei/mingrixueba-server/internal/features/orders"
	"github.com/xujiafei/mingrixueba-server/internal/features/points"
	"github.com/xujiafei/mingrixueba-server/internal/features/site"
	"github.com/xujiafei/mingrixueba-server/internal/features/users"
	"github.com/xujiafei/mingrixueba-server/internal/jobs"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
	BotAPI    *tgbotapi.BotAPI

	// Сервисы наружу: заказы дергаются платёжным колбэком
	Orders *orders.Service
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Telegram Bot API ===
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	botAPI.Debug = cfg.AppEnv == "development"
	log.Infof("Авторизован как @%s", botAPI.Self.UserName)

	// === 3. Репозитории ===
	userRepo := users.NewRepository(pool)
	pointsRepo := points.NewRepository(pool)
	membershipRepo := membership.NewRepository(pool)
	catalogRepo := catalog.NewRepository(pool)
	exchangeRepo := exchange.NewRepository(pool)
	accessRepo := access.NewRepository(pool)
	orderRepo := orders.NewRepository(pool)
	siteRepo := site.NewRepository(pool)
	adminRepo := admin.NewRepository(pool)

	// === 4. Сервисы ===
	userService := users.NewService(userRepo)
	membershipService := membership.NewService(membershipRepo, cfg.MembershipDefaultDays)
	pointsService := points.NewService(pointsRepo, membershipService,
		cfg.PointsDefaultExpiryDays, cfg.PointsExpiringSoonDays, cfg.PointsConflictRetries)
	catalogService := catalog.NewService(catalogRepo, cfg.ExchangeCostSingle, cfg.ExchangeCostDouble)
	exchangeService := exchange.NewService(exchangeRepo, pointsService, catalogService,
		membershipService, accessRepo, cfg.ExchangeAccessDays, cfg.PointsConflictRetries)
	accessService := access.NewService(accessRepo, catalogService, membershipService, exchangeService)
	orderService := orders.NewService(orderRepo, pointsService, membershipService, catalogService, accessService)
	siteService := site.NewService(siteRepo)
	adminService := admin.NewService(adminRepo, cfg)

	// === 5. Обработчики ===
	handlers := bot.Handlers{
		Points:     points.NewHandler(pointsService, botAPI),
		Exchange:   exchange.NewHandler(exchangeService, catalogService, membershipService, botAPI),
		Catalog:    catalog.NewHandler(catalogService, botAPI),
		Access:     access.NewHandler(accessService, botAPI),
		Membership: membership.NewHandler(membershipService, botAPI),
		Site:       site.NewHandler(siteService, botAPI),
		Admin:      admin.NewHandler(adminService, userService, pointsService, membershipService, exchangeService, botAPI),
	}

	// === 6. Фильтры ===
	accessFilter := filters.NewAccessFilter(userService, botAPI)

	// === 7. Собираем бота ===
	b := bot.New(botAPI, cfg, userService, handlers, accessFilter)

	// === 8. Планировщик задач ===
	// Бот выступает Notifier'ом — рассылает предупреждения о сгорании
	scheduler := jobs.NewScheduler(pointsService, adminService, b, cfg.SweepCronSpec)

	return &App{
		Bot:       b,
		Scheduler: scheduler,
		DB:        pool,
		BotAPI:    botAPI,
		Orders:    orderService,
	}, nil
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return err
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Users},
		{2, migration002Points},
		{3, migration003Memberships},
		{4, migration004Catalog},
		{5, migration005Exchanges},
		{6, migration006Access},
		{7, migration007Orders},
		{8, migration008Site},
		{9, migration009Admin},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		log.Infof("Миграция %d применена", m.version)
	}
	return nil
}

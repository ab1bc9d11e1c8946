// Точка входа сервера магазина учебных материалов.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/xujiafei/mingrixueba-server/internal/app"
	"github.com/xujiafei/mingrixueba-server/internal/config"
)

func main() {
	setupLogging()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Ошибка загрузки конфигурации")
	}

	if level, err := log.ParseLevel(cfg.AppLogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.WithField("level", cfg.AppLogLevel).Warn("Неизвестный уровень логирования, остаёмся на debug")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Ошибка инициализации приложения")
	}
	defer a.DB.Close()

	a.Scheduler.Start(ctx)
	defer a.Scheduler.Stop()

	// Graceful shutdown по SIGINT/SIGTERM
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.WithField("signal", sig.String()).Info("Получен сигнал остановки")
		cancel()
	}()

	a.Bot.Start(ctx)
	log.Info("Сервер остановлен")
}

func setupLogging() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetLevel(log.DebugLevel)
	log.SetOutput(os.Stdout)
}

// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: ночная уборка сгоревших баллов,
// дневное предупреждение о скором сгорании и ежечасная очистка истёкших
// админ-сессий. Планировщик — внешний вызыватель движка баллов:
// сам движок ничего не расписывает.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/xujiafei/mingrixueba-server/internal/common"
	"github.com/xujiafei/mingrixueba-server/internal/features/admin"
	"github.com/xujiafei/mingrixueba-server/internal/features/points"
)

// Notifier шлёт личные сообщения пользователям. Реализуется ботом.
type Notifier interface {
	SendMessageToUser(telegramID int64, text string)
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron          *cron.Cron
	pointsService *points.Service
	adminService  *admin.Service
	notifier      Notifier
	sweepSpec     string
}

// NewScheduler создаёт планировщик задач с московским часовым поясом.
func NewScheduler(pointsService *points.Service, adminService *admin.Service, notifier Notifier, sweepSpec string) *Scheduler {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		log.WithError(err).Warn("Не удалось загрузить Europe/Moscow, используем UTC+3")
		loc = time.FixedZone("MSK", 3*60*60)
	}

	return &Scheduler{
		cron:          cron.New(cron.WithLocation(loc)),
		pointsService: pointsService,
		adminService:  adminService,
		notifier:      notifier,
		sweepSpec:     sweepSpec,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) {
	// Ночная уборка сгоревших баллов
	if _, err := s.cron.AddFunc(s.sweepSpec, func() {
		log.Info("[CRON] Уборка сгоревших баллов")
		users, total, err := s.pointsService.SweepAll(ctx)
		if err != nil {
			log.WithError(err).Error("[CRON] Ошибка уборки баллов")
			return
		}
		if total > 0 {
			log.WithFields(log.Fields{"users": users, "points": total}).
				Infof("[CRON] Сгорело %s у %d пользователей", common.FormatPoints(total), users)
		}
	}); err != nil {
		log.WithError(err).WithField("spec", s.sweepSpec).Error("Некорректное cron-выражение уборки")
	}

	// Дневное предупреждение о скором сгорании баллов
	if _, err := s.cron.AddFunc("0 12 * * *", func() {
		log.Debug("[CRON] Предупреждения о сгорании баллов")
		notices, err := s.pointsService.ExpiringSoonNotices(ctx)
		if err != nil {
			log.WithError(err).Error("[CRON] Ошибка выборки сгорающих баллов")
			return
		}
		for _, n := range notices {
			s.notifier.SendMessageToUser(n.TelegramID, fmt.Sprintf(
				"⚠️ %s сгорят %s. Успейте потратить!",
				common.FormatPoints(n.Amount), common.FormatDate(n.Earliest)))
		}
		if len(notices) > 0 {
			log.WithField("users", len(notices)).Info("[CRON] Предупреждения о сгорании разосланы")
		}
	}); err != nil {
		log.WithError(err).Error("Не удалось добавить задачу предупреждений")
	}

	// Ежечасная очистка истёкших админ-сессий
	if _, err := s.cron.AddFunc("0 * * * *", func() {
		log.Debug("[CRON] Очистка админ-сессий")
		if err := s.adminService.CleanupSessions(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка очистки сессий")
		}
	}); err != nil {
		log.WithError(err).Error("Не удалось добавить задачу очистки сессий")
	}

	s.cron.Start()
	log.Info("Планировщик задач запущен (Europe/Moscow)")
}

// Stop останавливает планировщик.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}

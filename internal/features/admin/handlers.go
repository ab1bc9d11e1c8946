// Package admin — handlers.go обрабатывает взаимодействие с админ-панелью.
// Панель работает через Reply Keyboard в личных сообщениях.
// Поток: аутентификация → клавиатура → выбор действия → ввод аргументов.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/xujiafei/mingrixueba-server/internal/common"
	"github.com/xujiafei/mingrixueba-server/internal/features/exchange"
	"github.com/xujiafei/mingrixueba-server/internal/features/membership"
	"github.com/xujiafei/mingrixueba-server/internal/features/points"
	"github.com/xujiafei/mingrixueba-server/internal/features/users"
)

// Кнопки клавиатуры админ-панели.
const (
	btnGrantPoints     = "Начислить баллы"
	btnDeductPoints    = "Списать баллы"
	btnSetPoints       = "Установить баланс"
	btnResetPoints     = "Сбросить баллы"
	btnGrantMembership = "Выдать подписку"
	btnCancelExchange  = "Отменить обмен"
	btnFindUser        = "Карточка пользователя"
	btnListUsers       = "Пользователи"
	btnToggleUser      = "Блокировка"
	btnLogout          = "Выход"
)

// Handler обрабатывает админ-команды.
type Handler struct {
	service     *Service
	users       *users.Service
	points      *points.Service
	memberships *membership.Service
	exchanges   *exchange.Service
	bot         *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик админ-панели.
func NewHandler(service *Service, us *users.Service, pts *points.Service, ms *membership.Service, ex *exchange.Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{
		service:     service,
		users:       us,
		points:      pts,
		memberships: ms,
		exchanges:   ex,
		bot:         bot,
	}
}

// HandleAdminMessage обрабатывает сообщение администратора в DM.
// Возвращает false, если сообщение не относится к панели.
func (h *Handler) HandleAdminMessage(ctx context.Context, chatID, telegramID int64, text string) bool {
	if !h.service.IsAdmin(telegramID) {
		return false
	}

	state := h.service.GetState(telegramID)

	if state != nil && state.State == StateAwaitingPassword {
		h.handlePasswordInput(ctx, chatID, telegramID, text)
		return true
	}

	if !h.service.HasActiveSession(ctx, telegramID) {
		switch strings.ToLower(text) {
		case "админ", "панель", "/admin", "/login":
			h.sendMessage(chatID, "🔐 Введите пароль для доступа к админ-панели:")
			h.service.SetState(telegramID, StateAwaitingPassword, nil)
			return true
		}
		return false
	}

	h.service.TouchSession(ctx, telegramID)

	if state != nil {
		h.handleStateInput(ctx, chatID, telegramID, state, text)
		return true
	}

	switch text {
	case btnGrantPoints:
		h.askInput(chatID, telegramID, StateGrantPoints,
			"Формат: @user сумма [срок в днях, 0 — бессрочно]\nБез срока действует срок по умолчанию")
	case btnDeductPoints:
		h.askInput(chatID, telegramID, StateDeductPoints, "Формат: @user сумма причина")
	case btnSetPoints:
		h.askInput(chatID, telegramID, StateSetPoints, "Формат: @user баланс")
	case btnResetPoints:
		h.askInput(chatID, telegramID, StateResetPoints, "Формат: @user причина")
	case btnGrantMembership:
		h.askInput(chatID, telegramID, StateGrantMembership,
			"Формат: @user тариф [дней]\nТарифы: single, double, primary_full, junior_full, points")
	case btnCancelExchange:
		h.askInput(chatID, telegramID, StateCancelExchange, "Отправьте ID обмена")
	case btnFindUser:
		h.askInput(chatID, telegramID, StateFindUser, "Отправьте @user или ID")
	case btnListUsers:
		h.askInput(chatID, telegramID, StateListUsers, "Отправьте запрос поиска или «все»")
	case btnToggleUser:
		h.askInput(chatID, telegramID, StateToggleUser, "Формат: @user on|off")
	case btnLogout:
		if err := h.service.Logout(ctx, telegramID); err != nil {
			log.WithError(err).Warn("Ошибка выхода из панели")
		}
		h.sendMessage(chatID, "Сессия завершена")
	case "Админ", "Панель", "админ", "панель":
		h.showKeyboard(chatID)
	default:
		return false
	}
	return true
}

func (h *Handler) askInput(chatID, telegramID int64, state, prompt string) {
	h.sendMessage(chatID, prompt)
	h.service.SetState(telegramID, state, nil)
}

func (h *Handler) handleStateInput(ctx context.Context, chatID, telegramID int64, state *State, text string) {
	defer h.service.ClearState(telegramID)

	var err error
	switch state.State {
	case StateGrantPoints:
		err = h.doGrantPoints(ctx, chatID, text)
	case StateDeductPoints:
		err = h.doDeductPoints(ctx, chatID, text)
	case StateSetPoints:
		err = h.doSetPoints(ctx, chatID, text)
	case StateResetPoints:
		err = h.doResetPoints(ctx, chatID, text)
	case StateGrantMembership:
		err = h.doGrantMembership(ctx, chatID, text)
	case StateCancelExchange:
		err = h.doCancelExchange(ctx, chatID, text)
	case StateFindUser:
		err = h.doFindUser(ctx, chatID, text)
	case StateListUsers:
		err = h.doListUsers(ctx, chatID, text)
	case StateToggleUser:
		err = h.doToggleUser(ctx, chatID, text)
	default:
		return
	}
	if err != nil {
		h.sendMessage(chatID, "❌ "+userFacing(err))
	}
}

func (h *Handler) handlePasswordInput(ctx context.Context, chatID, telegramID int64, password string) {
	h.service.ClearState(telegramID)
	if err := h.service.VerifyPassword(ctx, telegramID, password); err != nil {
		h.sendMessage(chatID, "❌ "+userFacing(err))
		return
	}
	h.sendMessage(chatID, "✅ Аутентификация успешна!")
	h.showKeyboard(chatID)
}

// showKeyboard отображает клавиатуру админ-панели.
func (h *Handler) showKeyboard(chatID int64) {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnGrantPoints),
			tgbotapi.NewKeyboardButton(btnDeductPoints),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSetPoints),
			tgbotapi.NewKeyboardButton(btnResetPoints),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnGrantMembership),
			tgbotapi.NewKeyboardButton(btnCancelExchange),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnFindUser),
			tgbotapi.NewKeyboardButton(btnToggleUser),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnListUsers),
			tgbotapi.NewKeyboardButton(btnLogout),
		),
	)

	msg := tgbotapi.NewMessage(chatID, "✅ Админ-панель открыта")
	msg.ReplyMarkup = keyboard
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки клавиатуры")
	}
}

// --- Действия панели ---

func (h *Handler) doGrantPoints(ctx context.Context, chatID int64, text string) error {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return fmt.Errorf("нужно минимум два аргумента: @user сумма")
	}
	u, err := h.users.Resolve(ctx, fields[0])
	if err != nil {
		return err
	}
	amount, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return fmt.Errorf("некорректная сумма %q", fields[1])
	}

	// Третий аргумент: срок в днях, 0 — бессрочно; без него — срок по умолчанию
	var expiryDays *int
	if len(fields) >= 3 {
		d, err := strconv.Atoi(fields[2])
		if err != nil {
			return fmt.Errorf("некорректный срок %q", fields[2])
		}
		expiryDays = &d
	}

	grant, err := h.points.AddPoints(ctx, u.ID, amount, points.SourceAdminGrant, nil, expiryDays)
	if err != nil {
		return err
	}

	reply := fmt.Sprintf("✅ %s начислено: %s", u.DisplayName(), common.FormatPoints(grant.Amount))
	if grant.ExpiresAt != nil {
		reply += fmt.Sprintf("\nСгорят: %s", common.FormatDate(*grant.ExpiresAt))
	} else {
		reply += "\nБессрочно"
	}
	h.sendMessage(chatID, reply)
	return nil
}

func (h *Handler) doDeductPoints(ctx context.Context, chatID int64, text string) error {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return fmt.Errorf("нужно минимум два аргумента: @user сумма")
	}
	u, err := h.users.Resolve(ctx, fields[0])
	if err != nil {
		return err
	}
	amount, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return fmt.Errorf("некорректная сумма %q", fields[1])
	}
	remark := strings.Join(fields[2:], " ")

	_, balance, err := h.points.DeductPoints(ctx, u.ID, amount, points.ReasonAdminDeduction, remark)
	if err != nil {
		return err
	}
	h.sendMessage(chatID, fmt.Sprintf("✅ %s списано: %s\nНовый баланс: %s",
		u.DisplayName(), common.FormatPoints(amount), common.FormatPoints(balance)))
	return nil
}

func (h *Handler) doSetPoints(ctx context.Context, chatID int64, text string) error {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return fmt.Errorf("формат: @user баланс")
	}
	u, err := h.users.Resolve(ctx, fields[0])
	if err != nil {
		return err
	}
	target, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return fmt.Errorf("некорректный баланс %q", fields[1])
	}
	if _, err := h.points.SetPoints(ctx, u.ID, target, "Установка баланса администратором"); err != nil {
		return err
	}
	h.sendMessage(chatID, fmt.Sprintf("✅ Баланс %s: %s", u.DisplayName(), common.FormatPoints(target)))
	return nil
}

func (h *Handler) doResetPoints(ctx context.Context, chatID int64, text string) error {
	fields := strings.Fields(text)
	if len(fields) < 1 {
		return fmt.Errorf("формат: @user причина")
	}
	u, err := h.users.Resolve(ctx, fields[0])
	if err != nil {
		return err
	}
	remark := strings.Join(fields[1:], " ")
	reset, err := h.points.ResetPoints(ctx, u.ID, remark)
	if err != nil {
		return err
	}
	if reset == 0 {
		h.sendMessage(chatID, fmt.Sprintf("У %s и так нулевой баланс", u.DisplayName()))
		return nil
	}
	h.sendMessage(chatID, fmt.Sprintf("✅ Баланс %s сброшен, списано %s",
		u.DisplayName(), common.FormatPoints(reset)))
	return nil
}

func (h *Handler) doGrantMembership(ctx context.Context, chatID int64, text string) error {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return fmt.Errorf("формат: @user тариф [дней]")
	}
	u, err := h.users.Resolve(ctx, fields[0])
	if err != nil {
		return err
	}
	tier := strings.ToLower(fields[1])

	days := 0
	if len(fields) >= 3 {
		days, err = strconv.Atoi(fields[2])
		if err != nil {
			return fmt.Errorf("некорректный срок %q", fields[2])
		}
	}

	m, err := h.memberships.GrantMembership(ctx, u.ID, tier, nil, days)
	if err != nil {
		return err
	}

	reply := fmt.Sprintf("✅ %s выдан тариф %s", u.DisplayName(), tier)
	if m.ExpiryAt != nil {
		reply += fmt.Sprintf(" до %s", common.FormatDate(*m.ExpiryAt))
	} else {
		reply += " (бессрочно)"
	}
	h.sendMessage(chatID, reply)
	return nil
}

func (h *Handler) doCancelExchange(ctx context.Context, chatID int64, text string) error {
	id, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return fmt.Errorf("некорректный ID обмена %q", text)
	}
	if err := h.exchanges.CancelExchange(ctx, id); err != nil {
		return err
	}
	h.sendMessage(chatID, fmt.Sprintf("✅ Обмен %d отменён, баллы возвращены", id))
	return nil
}

func (h *Handler) doFindUser(ctx context.Context, chatID int64, text string) error {
	u, err := h.users.Resolve(ctx, strings.TrimSpace(text))
	if err != nil {
		return err
	}
	// Карточка сверяет кэш баланса с журналом и чинит расхождение
	balance, repaired, err := h.points.VerifyBalance(ctx, u.ID)
	if err != nil {
		return err
	}
	standing, err := h.memberships.CurrentStanding(ctx, u.ID)
	if err != nil {
		return err
	}

	status := "активен"
	if !u.IsActive {
		status = "заблокирован"
	}
	tier := standing.Tier
	if !standing.Active && tier != membership.TierNone {
		tier += " (истёк)"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👤 %s (id=%d)\nСтатус: %s\nРоль: %s\nТариф: %s\nБаланс: %s\nРегистрация: %s",
		u.DisplayName(), u.ID, status, u.Role, tier,
		common.FormatPoints(balance), common.FormatDate(u.CreatedAt))
	if repaired {
		b.WriteString("\n⚠️ Кэш баланса расходился с журналом, пересчитан")
	}

	history, err := h.memberships.History(ctx, u.ID)
	if err != nil {
		return err
	}
	if len(history) > 0 {
		b.WriteString("\n\nПодписки:")
		for _, m := range history {
			until := "бессрочно"
			if m.ExpiryAt != nil {
				until = "до " + common.FormatDate(*m.ExpiryAt)
			}
			fmt.Fprintf(&b, "\n• %s, %s (%s)", m.Tier, until, common.FormatDate(m.CreatedAt))
		}
	}

	h.sendMessage(chatID, b.String())
	return nil
}

func (h *Handler) doListUsers(ctx context.Context, chatID int64, text string) error {
	keyword := strings.TrimSpace(text)
	switch strings.ToLower(keyword) {
	case "все", "all":
		keyword = ""
	}

	list, total, err := h.users.List(ctx, keyword, 1, 10)
	if err != nil {
		return err
	}
	if total == 0 {
		h.sendMessage(chatID, "Никого не нашлось")
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👥 Всего: %d\n", total)
	for _, u := range list {
		mark := ""
		if !u.IsActive {
			mark = " 🚫"
		}
		fmt.Fprintf(&b, "• %s (id=%d)%s — %s\n", u.DisplayName(), u.ID, mark, common.FormatPoints(u.Points))
	}
	if total > int64(len(list)) {
		b.WriteString("Показаны первые 10, уточните запрос")
	}
	h.sendMessage(chatID, b.String())
	return nil
}

func (h *Handler) doToggleUser(ctx context.Context, chatID int64, text string) error {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return fmt.Errorf("формат: @user on|off")
	}
	u, err := h.users.Resolve(ctx, fields[0])
	if err != nil {
		return err
	}
	var active bool
	switch strings.ToLower(fields[1]) {
	case "on":
		active = true
	case "off":
		active = false
	default:
		return fmt.Errorf("ожидалось on или off")
	}
	if err := h.users.SetActive(ctx, u.ID, active); err != nil {
		return err
	}
	if active {
		h.sendMessage(chatID, fmt.Sprintf("✅ %s разблокирован", u.DisplayName()))
	} else {
		h.sendMessage(chatID, fmt.Sprintf("✅ %s заблокирован", u.DisplayName()))
	}
	return nil
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}

// userFacing переводит известные ошибки в сообщения для администратора.
func userFacing(err error) string {
	var ipe *common.InsufficientPointsError
	switch {
	case errors.As(err, &ipe):
		return fmt.Sprintf("недостаточно баллов: нужно %d, доступно %d", ipe.Required, ipe.Available)
	case errors.Is(err, common.ErrUserNotFound):
		return "пользователь не найден"
	case errors.Is(err, common.ErrInvalidTier):
		return "неизвестный тариф"
	case errors.Is(err, common.ErrInvalidAmount):
		return "некорректная сумма"
	case errors.Is(err, common.ErrWrongPassword):
		return "неверный пароль"
	case errors.Is(err, common.ErrTooManyAttempts):
		return "слишком много попыток, подождите 1 час"
	}
	return err.Error()
}

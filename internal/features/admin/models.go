// Package admin реализует админ-панель магазина с парольной аутентификацией.
// models.go описывает структуры сессий, попыток входа и состояний диалога.
package admin

import "time"

// Session — активная сессия администратора.
type Session struct {
	ID              int64     `db:"id"`
	UserID          int64     `db:"user_id"`
	SessionToken    string    `db:"session_token"`
	AuthenticatedAt time.Time `db:"authenticated_at"`
	ExpiresAt       time.Time `db:"expires_at"`
	LastActivity    time.Time `db:"last_activity"`
	IsActive        bool      `db:"is_active"`
}

// LoginAttempt — попытка входа (для защиты от brute-force).
type LoginAttempt struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	AttemptTime time.Time `db:"attempt_time"`
	Success     bool      `db:"success"`
}

// State — состояние диалога с админом (конечный автомат).
// Панель работает по шагам: выбор действия → ввод аргументов.
type State struct {
	State     string      // Текущее состояние
	Data      interface{} // Контекст шага
	ExpiresAt time.Time   // Когда состояние истекает (5 минут)
}

// Состояния админ-диалога.
const (
	StateNone             = ""
	StateAwaitingPassword = "awaiting_password" // Ждём пароль

	StateGrantPoints     = "grant_points"     // Ждём "@user сумма [дней]"
	StateDeductPoints    = "deduct_points"    // Ждём "@user сумма причина"
	StateSetPoints       = "set_points"       // Ждём "@user баланс"
	StateResetPoints     = "reset_points"     // Ждём "@user причина"
	StateGrantMembership = "grant_membership" // Ждём "@user тариф [дней]"
	StateCancelExchange  = "cancel_exchange"  // Ждём ID обмена
	StateFindUser        = "find_user"        // Ждём @user для карточки
	StateListUsers       = "list_users"       // Ждём запрос поиска
	StateToggleUser      = "toggle_user"      // Ждём "@user on|off"
)

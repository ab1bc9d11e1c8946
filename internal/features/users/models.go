// Package users управляет пользователями магазина: регистрацией, ролями, статусом.
// models.go описывает структуры данных для работы с таблицей users.
package users

import "time"

// Роли пользователей.
const (
	RoleUser            = "user"             // Обычный покупатель
	RoleCustomerService = "customer_service" // Клиентская поддержка
	RoleAdmin           = "admin"            // Администратор
)

// User представляет пользователя в базе данных.
// Каждый, кто написал боту, автоматически создаётся в этой таблице.
type User struct {
	ID         int64      `db:"id"`           // Автоинкрементный ID записи в БД
	TelegramID int64      `db:"telegram_id"`  // Telegram user ID (уникальный)
	OpenID     *string    `db:"openid"`       // openid мини-приложения (может быть nil)
	Username   string     `db:"username"`     // @username (может быть пустым)
	Nickname   string     `db:"nickname"`     // Отображаемое имя
	AvatarURL  string     `db:"avatar_url"`   // URL аватара
	Role       string     `db:"role"`         // user / customer_service / admin
	IsActive   bool       `db:"is_active"`    // Флаг активности (false = заблокирован)
	Points     int64      `db:"points"`       // Кэш баланса баллов (сумма активных несгоревших начислений)
	LastLogin  *time.Time `db:"last_login_at"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

// DisplayName возвращает отображаемое имя пользователя.
// Если есть @username — возвращает его, иначе — никнейм.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return u.Nickname
}

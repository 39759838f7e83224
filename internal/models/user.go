package models

import "time"

const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// User — строка таблицы users (профиль поверх auth-пользователя).
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name"`
	FullName  *string   `json:"full_name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type Permissions struct {
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
}

// PermissionsFor — admin: всё, editor: правка, остальные (в т.ч. неизвестные роли): ничего.
func PermissionsFor(role string) Permissions {
	switch role {
	case RoleAdmin:
		return Permissions{CanEdit: true, CanDelete: true}
	case RoleEditor:
		return Permissions{CanEdit: true}
	default:
		return Permissions{}
	}
}

// NormalizeRole приводит роль к одному из известных значений, по умолчанию viewer.
func NormalizeRole(role string) string {
	switch role {
	case RoleAdmin, RoleEditor, RoleViewer:
		return role
	default:
		return RoleViewer
	}
}

type ProfileResponse struct {
	User        *AuthUser   `json:"user"`
	Role        string      `json:"role"`
	Permissions Permissions `json:"permissions"`
}

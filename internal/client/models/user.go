package models

import "time"

// User is the server-asserted identity. The client never edits it in
// place; every update replaces it with the server's response.
type User struct {
	ID                        int64     `json:"id"`
	TelegramID                *string   `json:"telegram_id,omitempty"`
	TelegramUsername          *string   `json:"telegram_username,omitempty"`
	Email                     *string   `json:"email,omitempty"`
	Phone                     *string   `json:"phone,omitempty"`
	IsActive                  bool      `json:"is_active"`
	HasPassword               bool      `json:"has_password"`
	ExpenseSubCategoryEnabled bool      `json:"expense_sub_category_enabled"`
	CreatedAt                 time.Time `json:"created_at"`
}

// DisplayName picks the most recognisable identifier of the user.
func (u *User) DisplayName() string {
	switch {
	case u == nil:
		return ""
	case u.Email != nil && *u.Email != "":
		return *u.Email
	case u.Phone != nil && *u.Phone != "":
		return *u.Phone
	case u.TelegramUsername != nil && *u.TelegramUsername != "":
		return "@" + *u.TelegramUsername
	default:
		return "user#" + itoa(u.ID)
	}
}

// UserUpdate is the body of PUT /users/me. Nil fields are left unchanged.
type UserUpdate struct {
	Email                     *string `json:"email,omitempty"`
	IsActive                  *bool   `json:"is_active,omitempty"`
	ExpenseSubCategoryEnabled *bool   `json:"expense_sub_category_enabled,omitempty"`
}

package domain

import "time"

// UserRole determines what a user may do. Role checks live in the bot layer;
// services trust their callers.
type UserRole string

const (
	RoleClient  UserRole = "client"
	RoleManager UserRole = "manager"
	RoleAdmin   UserRole = "admin"
)

// UserStatus tracks the verification lifecycle of a user.
type UserStatus string

const (
	UserPending  UserStatus = "pending"
	UserVerified UserStatus = "verified"
	UserRejected UserStatus = "rejected"
	UserBlocked  UserStatus = "blocked"
)

// UserStatusLabels is the single status→label table shared by every renderer.
var UserStatusLabels = map[UserStatus]string{
	UserPending:  "⏳ На проверке",
	UserVerified: "✅ Верифицирован",
	UserRejected: "❌ Отклонен",
	UserBlocked:  "🚫 Заблокирован",
}

// User is the durable registered identity. At most one exists per telegram id,
// enforced by the registration committer and the unique constraint.
type User struct {
	ID         int64
	TelegramID int64
	Username   string
	FullName   string
	Phone      string
	Email      string
	Language   string
	Role       UserRole
	Status     UserStatus
	CreatedAt  time.Time
	VerifiedAt *time.Time
}

// IsStaff reports whether the user can review documents and manage the fleet.
func (u *User) IsStaff() bool {
	return u.Role == RoleManager || u.Role == RoleAdmin
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsVerified() bool {
	return u.Status == UserVerified
}

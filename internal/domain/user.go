package domain

import "time"

type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

type RegistrationStatus string

const (
	RegistrationActive    RegistrationStatus = "active"
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationSuspended RegistrationStatus = "suspended"
)

// AuthUser is the identity record used for sign-in.
type AuthUser struct {
	ID           string     `db:"id"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"`
	CreatedAt    time.Time  `db:"created_at"`
	LastSignInAt *time.Time `db:"last_sign_in_at"`
}

type UserProfile struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Role        Role       `json:"role"`
	College     *string    `json:"college,omitempty"`
	Major       *string    `json:"major,omitempty"`
	Bio         *string    `json:"bio,omitempty"`
	Interests   []string   `json:"interests"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// RegistrationRecord is the source of truth for the number of registered users.
type RegistrationRecord struct {
	UserID           string             `db:"user_id" json:"user_id"`
	Email            string             `db:"email" json:"email"`
	Name             string             `db:"name" json:"name"`
	DateOfBirth      *time.Time         `db:"date_of_birth" json:"date_of_birth,omitempty"`
	RegisteredAt     time.Time          `db:"registered_at" json:"registered_at"`
	Status           RegistrationStatus `db:"status" json:"status"`
	CompletedProfile bool               `db:"completed_profile" json:"completed_profile"`
	Source           string             `db:"source" json:"source"`
}

type UserSettings struct {
	UserID             string    `db:"user_id"`
	EmailNotifications bool      `db:"email_notifications"`
	Theme              string    `db:"theme"`
	CreatedAt          time.Time `db:"created_at"`
}

type RegistrationStats struct {
	Total    int64                        `json:"total"`
	Recent   int64                        `json:"recent"`
	ByStatus map[RegistrationStatus]int64 `json:"byStatus"`
	Counter  ReconcileResult              `json:"counter"`
}

package domain

import "time"

// UserType classifies accounts on the platform.
type UserType string

const (
	UserTypeClient     UserType = "client"
	UserTypeConsultant UserType = "consultant"
	UserTypeAdmin      UserType = "admin"
)

// UserStatus enumerates possible account states.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusBanned    UserStatus = "banned"
)

// Gender is an optional profile demographic.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// MaxFailedLoginAttempts is the lockout threshold. The lock is derived from
// the counter rather than stored as a status.
const MaxFailedLoginAttempts = 5

// User mirrors the persisted representation in the users table.
type User struct {
	ID              string
	Email           string
	Phone           *string
	PasswordHash    string
	UserType        UserType
	Status          UserStatus
	IsActive        bool
	IsVerified      bool
	IsEmailVerified bool
	IsPhoneVerified bool

	LastLogin           *time.Time
	LoginCount          int
	FailedLoginAttempts int
	LastFailedLogin     *time.Time

	EmailVerificationToken  *string
	EmailVerificationSentAt *time.Time
	PasswordResetToken      *string
	PasswordResetSentAt     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin reports whether the user holds the admin type.
func (u *User) IsAdmin() bool {
	return u.UserType == UserTypeAdmin
}

// IsConsultant reports whether the user holds the consultant type.
func (u *User) IsConsultant() bool {
	return u.UserType == UserTypeConsultant
}

// CanLogin reports whether the account is currently permitted to authenticate.
func (u *User) CanLogin() bool {
	return u.IsActive &&
		u.Status == UserStatusActive &&
		u.FailedLoginAttempts < MaxFailedLoginAttempts
}

// IsLocked reports whether the failed-attempt threshold has been reached.
func (u *User) IsLocked() bool {
	return u.FailedLoginAttempts >= MaxFailedLoginAttempts
}

// UserProfile holds extended, mostly optional profile information.
type UserProfile struct {
	ID     string
	UserID string

	FirstName   *string
	LastName    *string
	DisplayName *string
	Bio         *string

	BirthDate *time.Time
	Gender    *Gender

	Country    *string
	State      *string
	City       *string
	Address    *string
	PostalCode *string

	Timezone *string
	Language *string

	AvatarURL  *string
	WebsiteURL *string

	IsProfilePublic    bool
	ShowEmail          bool
	ShowPhone          bool
	EmailNotifications bool
	SMSNotifications   bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullName derives a display-friendly name from the available fields.
func (p *UserProfile) FullName() string {
	switch {
	case p.FirstName != nil && p.LastName != nil:
		return *p.FirstName + " " + *p.LastName
	case p.FirstName != nil:
		return *p.FirstName
	case p.LastName != nil:
		return *p.LastName
	case p.DisplayName != nil:
		return *p.DisplayName
	}
	return ""
}

// ActivityLog is an append-only audit record. Rows are written in the same
// transaction as the state change they describe and are never mutated.
type ActivityLog struct {
	ID           string
	UserID       *string
	Action       string
	ResourceType *string
	ResourceID   *string
	IPAddress    *string
	UserAgent    *string
	Details      *string
	Success      bool
	ErrorMessage *string
	CreatedAt    time.Time
}

// UserStats aggregates account activity counters for the profile endpoint.
type UserStats struct {
	UserID              string     `json:"user_id"`
	LoginCount          int        `json:"login_count"`
	FailedLoginAttempts int        `json:"failed_login_attempts"`
	TotalFailedLogins   int        `json:"total_failed_logins"`
	ActivityCount       int        `json:"activity_count"`
	LastLogin           *time.Time `json:"last_login"`
	IsVerified          bool       `json:"is_verified"`
	IsEmailVerified     bool       `json:"is_email_verified"`
	IsPhoneVerified     bool       `json:"is_phone_verified"`
}

package models

import "time"

type UserRole string

const (
	UserRoleAnon      UserRole = "anon"
	UserRoleArchivist UserRole = "archivist"
	UserRoleAdmin     UserRole = "admin"
)

// Level orders roles for authorization checks. Unknown roles rank lowest.
func (r UserRole) Level() int {
	switch r {
	case UserRoleArchivist:
		return 1
	case UserRoleAdmin:
		return 2
	default:
		return 0
	}
}

// Account is a temporary or permanent user. Temporary accounts carry a TTL
// and are reaped by the store.
type Account struct {
	Username     string        `mapstructure:"username"`
	Email        string        `mapstructure:"email"`
	PasswordHash string        `mapstructure:"password_hash"`
	Role         UserRole      `mapstructure:"role"`
	Desc         string        `mapstructure:"desc"`
	MaxSize      int64         `mapstructure:"max_size"`
	UsedSize     int64         `mapstructure:"used_size"`
	CreatedAt    time.Time     `mapstructure:"created_at"`
	UpdatedAt    time.Time     `mapstructure:"updated_at"`
	LastLogin    time.Time     `mapstructure:"last_login"`
	TTL          time.Duration `mapstructure:"-"`
}

func (a Account) IsTemp() bool {
	return a.Role == UserRoleAnon
}

type Collection struct {
	ID        string    `mapstructure:"id"`
	Owner     string    `mapstructure:"owner"`
	Title     string    `mapstructure:"title"`
	Desc      string    `mapstructure:"desc"`
	Size      int64     `mapstructure:"size"`
	CreatedAt time.Time `mapstructure:"created_at"`
}

type PendingRegistration struct {
	Code         string    `mapstructure:"code"`
	Username     string    `mapstructure:"username"`
	Email        string    `mapstructure:"email"`
	PasswordHash string    `mapstructure:"password_hash"`
	CreatedAt    time.Time `mapstructure:"created_at"`
}

// Session maps a client cookie to an identity. Anonymous sessions point at a
// temporary account and are never considered logged in.
type Session struct {
	ID        string    `mapstructure:"id"`
	Username  string    `mapstructure:"username"`
	Role      UserRole  `mapstructure:"role"`
	Anon      bool      `mapstructure:"anon"`
	Remember  bool      `mapstructure:"remember"`
	CreatedAt time.Time `mapstructure:"created_at"`
	ExpiresAt time.Time `mapstructure:"expires_at"`
}

func (s *Session) LoggedIn() bool {
	return s != nil && !s.Anon && s.Username != ""
}

func (s *Session) IsExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

type SpaceUtilization struct {
	Used      int64 `json:"used"`
	Available int64 `json:"available"`
	Total     int64 `json:"total"`
}

package domain

import "time"

// User is an account that can register for events; admins also manage them.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserSummary is the public projection of an account.
type UserSummary struct {
	ID    string
	Name  string
	Email string
}

// Summary projects the user without credentials.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// UserStats aggregates account and registration counters.
type UserStats struct {
	TotalUsers          int
	ActiveUsers         int
	AdminUsers          int
	RegularUsers        int
	TotalRegistrations  int
	RecentRegistrations int
}

package dto

import (
	"time"

	"github.com/spec-kit/event-service/internal/domain"
)

// SignUpRequest payload for new accounts.
type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by sign-up and login.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// UserResponse is the public projection of an account.
type UserResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	IsActive  bool        `json:"isActive"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// UserDetailResponse adds the account's registrations.
type UserDetailResponse struct {
	UserResponse
	Registrations []RegistrationResponse `json:"registrations"`
}

// UpdateUserRequest carries the fields to change.
type UpdateUserRequest struct {
	Name     *string      `json:"name"`
	Email    *string      `json:"email"`
	Password *string      `json:"password"`
	Role     *domain.Role `json:"role"`
	IsActive *bool        `json:"isActive"`
}

// UserStatsResponse aggregates account counters.
type UserStatsResponse struct {
	TotalUsers          int `json:"totalUsers"`
	ActiveUsers         int `json:"activeUsers"`
	AdminUsers          int `json:"adminUsers"`
	RegularUsers        int `json:"regularUsers"`
	TotalRegistrations  int `json:"totalRegistrations"`
	RecentRegistrations int `json:"recentRegistrations"`
}

// NewUserResponse projects an account without its credentials.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// NewUserStatsResponse converts the aggregated counters.
func NewUserStatsResponse(stats domain.UserStats) UserStatsResponse {
	return UserStatsResponse(stats)
}

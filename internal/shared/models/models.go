package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is the authenticated account as returned by GET /auth/me.
type User struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	EmailAddress    string `json:"email_address"`
	IsBusinessOwner bool   `json:"is_business_owner"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type Business struct {
	ID           string  `json:"id"`
	BusinessName string  `json:"business_name"`
	Description  *string `json:"description"`
	EmailAddress string  `json:"email_address"`
	Address      *string `json:"address"`
	PhoneNumber  *string `json:"phone_number"`
}

// Reward thresholds are exact decimals; never compare them as floats.
type Reward struct {
	ID                  string          `json:"id"`
	BusinessID          string          `json:"business_id"`
	Name                string          `json:"name"`
	Description         *string         `json:"description"`
	RequiredPoints      decimal.Decimal `json:"required_points"`
	UsageCount          int             `json:"usage_count"`
	ValidFromTimestamp  *time.Time      `json:"valid_from_timestamp"`
	ValidUntilTimestamp *time.Time      `json:"valid_until_timestamp"`
}

// BusinessWithRewards keeps rewards in server order. SimilarBusinesses may be empty.
type BusinessWithRewards struct {
	Details           Business   `json:"details"`
	Rewards           []Reward   `json:"rewards"`
	SimilarBusinesses []Business `json:"similar_businesses"`
}

type Enrollment struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	BusinessID string          `json:"business_id"`
	Points     decimal.Decimal `json:"points"`
}

// UserEnrollment joins a business with the caller's enrollment in it.
type UserEnrollment struct {
	Business   Business   `json:"business"`
	Enrollment Enrollment `json:"enrollment"`
}

// BusinessEnrollment is one customer of the caller's own business.
type BusinessEnrollment struct {
	User       User       `json:"user"`
	Enrollment Enrollment `json:"enrollment"`
}

type RegisterRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	EmailAddress    string `json:"email_address"`
	IsBusinessOwner bool   `json:"is_business_owner"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type UpsertBusinessRequest struct {
	BusinessName string  `json:"business_name"`
	Description  *string `json:"description"`
	EmailAddress string  `json:"email_address"`
	Address      *string `json:"address"`
	PhoneNumber  *string `json:"phone_number"`
}

type CreateRewardRequest struct {
	Name                string          `json:"name"`
	Description         *string         `json:"description"`
	RequiredPoints      decimal.Decimal `json:"required_points"`
	ValidFromTimestamp  *time.Time      `json:"valid_from_timestamp"`
	ValidUntilTimestamp *time.Time      `json:"valid_until_timestamp"`
}

// UpdateRewardRequest is a partial update: nil fields are left unchanged.
type UpdateRewardRequest struct {
	Name                *string          `json:"name,omitempty"`
	Description         *string          `json:"description,omitempty"`
	RequiredPoints      *decimal.Decimal `json:"required_points,omitempty"`
	ValidFromTimestamp  *time.Time       `json:"valid_from_timestamp,omitempty"`
	ValidUntilTimestamp *time.Time       `json:"valid_until_timestamp,omitempty"`
}

type AddPointsRequest struct {
	UserID string          `json:"user_id"`
	Points decimal.Decimal `json:"points"`
}

type AddPointsResponse struct {
	UserID           string          `json:"user_id"`
	NewPointsBalance decimal.Decimal `json:"new_points_balance"`
}

type RedeemRewardRequest struct {
	UserID   string `json:"user_id"`
	RewardID string `json:"reward_id"`
}

type RedeemRewardResponse struct {
	Success          bool            `json:"success"`
	NewPointsBalance decimal.Decimal `json:"new_points_balance"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// StrPtr is a convenience for optional string fields.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"loyalty/internal/shared/models"
)

const (
	opRegister         = "register"
	opLogin            = "login"
	opLogout           = "logout"
	opCurrentUser      = "get current user"
	opListBusinesses   = "list businesses"
	opUpsertBusiness   = "upsert business"
	opOwnBusiness      = "get own business"
	opCustomers        = "list business enrollments"
	opCreateReward     = "create reward"
	opUpdateReward     = "update reward"
	opDeleteReward     = "delete reward"
	opMyEnrollments    = "list enrollments"
	opEnroll           = "enroll"
	opCancelEnrollment = "cancel enrollment"
	opAddPoints        = "add points"
	opRedeemReward     = "redeem reward"
)

// Auth

func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (models.TokenResponse, error) {
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return models.TokenResponse{}, validationError(opRegister, "username and password required")
	}
	var out models.TokenResponse
	if err := c.do(ctx, opRegister, http.MethodPost, "/auth/register", false, req, &out); err != nil {
		return models.TokenResponse{}, err
	}
	if out.AccessToken == "" {
		return models.TokenResponse{}, &Error{Kind: ErrServer, Op: opRegister, Message: "empty access token"}
	}
	return out, nil
}

func (c *Client) Login(ctx context.Context, username, password string) (models.TokenResponse, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return models.TokenResponse{}, validationError(opLogin, "username and password required")
	}
	var out models.TokenResponse
	body := models.LoginRequest{Username: username, Password: password}
	if err := c.do(ctx, opLogin, http.MethodPost, "/auth/login", false, body, &out); err != nil {
		return models.TokenResponse{}, err
	}
	if out.AccessToken == "" {
		return models.TokenResponse{}, &Error{Kind: ErrServer, Op: opLogin, Message: "empty access token"}
	}
	return out, nil
}

// Logout asks the server to revoke the current token. Callers treat it as
// best effort.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, opLogout, http.MethodPost, "/auth/logout", true, nil, nil)
}

func (c *Client) CurrentUser(ctx context.Context) (models.User, error) {
	var out models.User
	err := c.do(ctx, opCurrentUser, http.MethodGet, "/auth/me", true, nil, &out)
	return out, err
}

// Businesses

func (c *Client) ListBusinesses(ctx context.Context) ([]models.BusinessWithRewards, error) {
	var out []models.BusinessWithRewards
	if err := c.do(ctx, opListBusinesses, http.MethodGet, "/businesses", true, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertOwnBusiness creates the caller's business or replaces its details.
func (c *Client) UpsertOwnBusiness(ctx context.Context, req models.UpsertBusinessRequest) error {
	if strings.TrimSpace(req.BusinessName) == "" {
		return validationError(opUpsertBusiness, "business name required")
	}
	return c.do(ctx, opUpsertBusiness, http.MethodPut, "/businesses", true, req, nil)
}

// OwnBusiness fails with ErrNotFound when the caller has no business yet.
func (c *Client) OwnBusiness(ctx context.Context) (models.BusinessWithRewards, error) {
	var out models.BusinessWithRewards
	err := c.do(ctx, opOwnBusiness, http.MethodGet, "/businesses/me", true, nil, &out)
	return out, err
}

// ListBusinessEnrollments lists the customers enrolled in the caller's business.
func (c *Client) ListBusinessEnrollments(ctx context.Context) ([]models.BusinessEnrollment, error) {
	var out []models.BusinessEnrollment
	if err := c.do(ctx, opCustomers, http.MethodGet, "/businesses/enrollments", true, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Rewards

func (c *Client) CreateReward(ctx context.Context, req models.CreateRewardRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return validationError(opCreateReward, "reward name required")
	}
	if req.RequiredPoints.IsNegative() {
		return validationError(opCreateReward, "required points must not be negative")
	}
	return c.do(ctx, opCreateReward, http.MethodPost, "/businesses/rewards", true, req, nil)
}

func (c *Client) UpdateReward(ctx context.Context, id string, req models.UpdateRewardRequest) error {
	if strings.TrimSpace(id) == "" {
		return validationError(opUpdateReward, "reward id required")
	}
	if req.RequiredPoints != nil && req.RequiredPoints.IsNegative() {
		return validationError(opUpdateReward, "required points must not be negative")
	}
	return c.do(ctx, opUpdateReward, http.MethodPut, "/businesses/rewards/"+url.PathEscape(id), true, req, nil)
}

func (c *Client) DeleteReward(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return validationError(opDeleteReward, "reward id required")
	}
	return c.do(ctx, opDeleteReward, http.MethodDelete, "/businesses/rewards/"+url.PathEscape(id), true, nil, nil)
}

// Enrollments

func (c *Client) ListMyEnrollments(ctx context.Context) ([]models.UserEnrollment, error) {
	var out []models.UserEnrollment
	if err := c.do(ctx, opMyEnrollments, http.MethodGet, "/enrollments/me", true, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Enroll fails with ErrConflict when the caller is already enrolled.
func (c *Client) Enroll(ctx context.Context, businessID string) error {
	if strings.TrimSpace(businessID) == "" {
		return validationError(opEnroll, "business id required")
	}
	return c.do(ctx, opEnroll, http.MethodPost, "/enrollments/businesses/"+url.PathEscape(businessID), true, nil, nil)
}

// CancelEnrollment fails with ErrNotFound when the caller is not enrolled.
func (c *Client) CancelEnrollment(ctx context.Context, businessID string) error {
	if strings.TrimSpace(businessID) == "" {
		return validationError(opCancelEnrollment, "business id required")
	}
	return c.do(ctx, opCancelEnrollment, http.MethodDelete, "/enrollments/businesses/"+url.PathEscape(businessID), true, nil, nil)
}

// AddPoints credits a customer of the caller's business. The amount must be
// a non-negative exact decimal.
func (c *Client) AddPoints(ctx context.Context, userID string, points decimal.Decimal) (models.AddPointsResponse, error) {
	if strings.TrimSpace(userID) == "" {
		return models.AddPointsResponse{}, validationError(opAddPoints, "user id required")
	}
	if points.IsNegative() {
		return models.AddPointsResponse{}, validationError(opAddPoints, "points must not be negative")
	}
	var out models.AddPointsResponse
	body := models.AddPointsRequest{UserID: userID, Points: points}
	if err := c.do(ctx, opAddPoints, http.MethodPost, "/enrollments/add_points", true, body, &out); err != nil {
		return models.AddPointsResponse{}, err
	}
	return out, nil
}

// RedeemReward fails with ErrInsufficientPoints when the customer's balance is
// below the reward threshold.
func (c *Client) RedeemReward(ctx context.Context, userID, rewardID string) (models.RedeemRewardResponse, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(rewardID) == "" {
		return models.RedeemRewardResponse{}, validationError(opRedeemReward, "user id and reward id required")
	}
	var out models.RedeemRewardResponse
	body := models.RedeemRewardRequest{UserID: userID, RewardID: rewardID}
	if err := c.do(ctx, opRedeemReward, http.MethodPost, "/enrollments/redeem_reward", true, body, &out); err != nil {
		return models.RedeemRewardResponse{}, err
	}
	return out, nil
}

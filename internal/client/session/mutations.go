package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"loyalty/internal/shared/models"
)

// Register creates an account and stores the returned token. The token write
// drives the login cascade.
func (s *Store) Register(ctx context.Context, req models.RegisterRequest) error {
	tok, err := s.api.Register(ctx, req)
	if err != nil {
		return s.failed("register", err)
	}
	return s.storeToken(tok)
}

// Login authenticates and stores the returned token.
func (s *Store) Login(ctx context.Context, username, password string) error {
	tok, err := s.api.Login(ctx, username, password)
	if err != nil {
		return s.failed("login", err)
	}
	return s.storeToken(tok)
}

func (s *Store) storeToken(tok models.TokenResponse) error {
	if strings.TrimSpace(tok.AccessToken) == "" {
		return s.failed("store token", fmt.Errorf("server returned an empty access token"))
	}
	if err := s.creds.Write(tok.AccessToken); err != nil {
		return s.failed("store token", err)
	}
	return nil
}

const serverLogoutTimeout = 3 * time.Second

// Logout tells the server to revoke the token, then clears it locally. The
// server call is bounded by a short timeout; a failed or slow call is logged
// and does not keep the session alive.
func (s *Store) Logout(ctx context.Context) error {
	rctx, cancel := context.WithTimeout(ctx, s.logoutTimeout)
	err := s.api.Logout(rctx)
	cancel()
	if err != nil {
		s.log.WithError(err).Warn("server logout failed; clearing local token anyway")
	}
	if err := s.creds.Clear(); err != nil {
		return s.failed("logout", err)
	}
	return nil
}

func (s *Store) UpsertOwnBusiness(ctx context.Context, req models.UpsertBusinessRequest) error {
	tok := s.Snapshot().token
	if err := s.api.UpsertOwnBusiness(ctx, req); err != nil {
		return s.failed("upsert own business", err)
	}
	s.refreshFor(tok, ChannelOwnBusiness, ChannelBusinesses)
	return nil
}

func (s *Store) CreateReward(ctx context.Context, req models.CreateRewardRequest) error {
	tok := s.Snapshot().token
	if err := s.api.CreateReward(ctx, req); err != nil {
		return s.failed("create reward", err)
	}
	s.refreshFor(tok, ChannelOwnBusiness, ChannelBusinesses)
	return nil
}

func (s *Store) UpdateReward(ctx context.Context, id string, req models.UpdateRewardRequest) error {
	tok := s.Snapshot().token
	if err := s.api.UpdateReward(ctx, id, req); err != nil {
		return s.failed("update reward", err)
	}
	s.refreshFor(tok, ChannelOwnBusiness, ChannelBusinesses)
	return nil
}

func (s *Store) DeleteReward(ctx context.Context, id string) error {
	tok := s.Snapshot().token
	if err := s.api.DeleteReward(ctx, id); err != nil {
		return s.failed("delete reward", err)
	}
	s.refreshFor(tok, ChannelOwnBusiness, ChannelBusinesses)
	return nil
}

func (s *Store) Enroll(ctx context.Context, businessID string) error {
	tok := s.Snapshot().token
	if err := s.api.Enroll(ctx, businessID); err != nil {
		return s.failed("enroll", err)
	}
	s.refreshFor(tok, ChannelEnrollments, ChannelBusinesses)
	return nil
}

func (s *Store) CancelEnrollment(ctx context.Context, businessID string) error {
	tok := s.Snapshot().token
	if err := s.api.CancelEnrollment(ctx, businessID); err != nil {
		return s.failed("cancel enrollment", err)
	}
	s.refreshFor(tok, ChannelEnrollments, ChannelBusinesses)
	return nil
}

// AddPoints credits a customer of the caller's business.
func (s *Store) AddPoints(ctx context.Context, userID string, points decimal.Decimal) (models.AddPointsResponse, error) {
	tok := s.Snapshot().token
	resp, err := s.api.AddPoints(ctx, userID, points)
	if err != nil {
		return models.AddPointsResponse{}, s.failed("add points", err)
	}
	s.refreshFor(tok, ChannelEnrollments, ChannelCustomers)
	return resp, nil
}

// RedeemReward spends a customer's points on a reward of the caller's business.
func (s *Store) RedeemReward(ctx context.Context, userID, rewardID string) (models.RedeemRewardResponse, error) {
	tok := s.Snapshot().token
	resp, err := s.api.RedeemReward(ctx, userID, rewardID)
	if err != nil {
		return models.RedeemRewardResponse{}, s.failed("redeem reward", err)
	}
	s.refreshFor(tok, ChannelEnrollments, ChannelCustomers)
	return resp, nil
}

func (s *Store) failed(op string, err error) error {
	s.log.WithError(err).WithField("op", op).Warn("mutation failed")
	return err
}

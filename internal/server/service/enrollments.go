package service

import (
	"context"
	"errors"
	"strings"

	"loyalty/internal/server/repository"
	sm "loyalty/internal/shared/models"
)

// balance updates are compare-and-set; retry this many times on a race
const maxBalanceAttempts = 3

var errBalanceChanged = newError(ErrConflict, "Balance changed concurrently, retry")

type EnrollmentService struct {
	repo Repository
}

func (s *EnrollmentService) Mine(ctx context.Context, userID string) ([]sm.UserEnrollment, error) {
	return s.repo.ListUserEnrollments(ctx, userID)
}

func (s *EnrollmentService) Enroll(ctx context.Context, userID, businessID string) error {
	if _, err := s.repo.GetBusiness(ctx, businessID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(ErrNotFound, "Business not found")
		}
		return err
	}
	_, err := s.repo.CreateEnrollment(ctx, userID, businessID)
	if errors.Is(err, repository.ErrConflict) {
		return newError(ErrConflict, "Already enrolled")
	}
	return err
}

func (s *EnrollmentService) Cancel(ctx context.Context, userID, businessID string) error {
	err := s.repo.DeleteEnrollment(ctx, userID, businessID)
	if errors.Is(err, repository.ErrNotFound) {
		return newError(ErrNotFound, "Not enrolled")
	}
	return err
}

// AddPoints credits a customer of ownerID's business.
func (s *EnrollmentService) AddPoints(ctx context.Context, ownerID string, req sm.AddPointsRequest) (sm.AddPointsResponse, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return sm.AddPointsResponse{}, newError(ErrInvalidInput, "user_id required")
	}
	if req.Points.IsNegative() {
		return sm.AddPointsResponse{}, newError(ErrInvalidInput, "points must not be negative")
	}
	for attempt := 0; ; attempt++ {
		e, err := s.customerEnrollment(ctx, ownerID, req.UserID)
		if err != nil {
			return sm.AddPointsResponse{}, err
		}
		balance := e.Points.Add(req.Points)
		err = s.repo.SetPoints(ctx, e.ID, e.Points, balance)
		if errors.Is(err, repository.ErrStale) && attempt+1 < maxBalanceAttempts {
			continue
		}
		if errors.Is(err, repository.ErrStale) {
			return sm.AddPointsResponse{}, errBalanceChanged
		}
		if err != nil {
			return sm.AddPointsResponse{}, err
		}
		return sm.AddPointsResponse{UserID: e.UserID, NewPointsBalance: balance}, nil
	}
}

// RedeemReward spends a customer's points on one of ownerID's rewards.
func (s *EnrollmentService) RedeemReward(ctx context.Context, ownerID string, req sm.RedeemRewardRequest) (sm.RedeemRewardResponse, error) {
	b, err := s.repo.GetBusinessByOwner(ctx, ownerID)
	if errors.Is(err, repository.ErrNotFound) {
		return sm.RedeemRewardResponse{}, newError(ErrNotFound, "Business details not found")
	}
	if err != nil {
		return sm.RedeemRewardResponse{}, err
	}
	rw, err := s.repo.GetReward(ctx, req.RewardID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && rw.BusinessID != b.ID) {
		return sm.RedeemRewardResponse{}, newError(ErrNotFound, "Reward not found")
	}
	if err != nil {
		return sm.RedeemRewardResponse{}, err
	}
	for attempt := 0; ; attempt++ {
		e, err := s.customerEnrollment(ctx, ownerID, req.UserID)
		if err != nil {
			return sm.RedeemRewardResponse{}, err
		}
		if e.Points.LessThan(rw.RequiredPoints) {
			return sm.RedeemRewardResponse{}, &InsufficientPointsError{Required: rw.RequiredPoints, Current: e.Points}
		}
		balance := e.Points.Sub(rw.RequiredPoints)
		err = s.repo.Redeem(ctx, e.ID, rw.ID, e.Points, balance)
		if errors.Is(err, repository.ErrStale) && attempt+1 < maxBalanceAttempts {
			continue
		}
		if errors.Is(err, repository.ErrStale) {
			return sm.RedeemRewardResponse{}, errBalanceChanged
		}
		if err != nil {
			return sm.RedeemRewardResponse{}, err
		}
		return sm.RedeemRewardResponse{Success: true, NewPointsBalance: balance}, nil
	}
}

func (s *EnrollmentService) customerEnrollment(ctx context.Context, ownerID, userID string) (sm.Enrollment, error) {
	b, err := s.repo.GetBusinessByOwner(ctx, ownerID)
	if errors.Is(err, repository.ErrNotFound) {
		return sm.Enrollment{}, newError(ErrNotFound, "Business details not found")
	}
	if err != nil {
		return sm.Enrollment{}, err
	}
	e, err := s.repo.GetEnrollment(ctx, userID, b.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return sm.Enrollment{}, newError(ErrNotFound, "Customer not enrolled")
	}
	return e, err
}

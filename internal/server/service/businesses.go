package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"loyalty/internal/server/models"
	"loyalty/internal/server/repository"
	sm "loyalty/internal/shared/models"
)

// BusinessService covers the business catalogue and the rewards each owner
// manages.
type BusinessService struct {
	repo       Repository
	maxSimilar int
}

// List returns every business with its rewards and up to three similar
// businesses.
func (s *BusinessService) List(ctx context.Context) ([]sm.BusinessWithRewards, error) {
	businesses, err := s.repo.ListBusinesses(ctx)
	if err != nil {
		return nil, err
	}
	enrollments, err := s.repo.ListEnrollments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]sm.BusinessWithRewards, 0, len(businesses))
	for _, b := range businesses {
		full, err := s.withRewards(ctx, b)
		if err != nil {
			return nil, err
		}
		full.SimilarBusinesses = similarBusinesses(b.ID, businesses, enrollments, s.maxSimilar)
		out = append(out, full)
	}
	return out, nil
}

// Own returns the business owned by ownerID.
func (s *BusinessService) Own(ctx context.Context, ownerID string) (sm.BusinessWithRewards, error) {
	b, err := s.ownBusiness(ctx, ownerID, "No business details found for this user")
	if err != nil {
		return sm.BusinessWithRewards{}, err
	}
	full, err := s.withRewards(ctx, b)
	if err != nil {
		return sm.BusinessWithRewards{}, err
	}
	full.SimilarBusinesses = []sm.Business{}
	return full, nil
}

func (s *BusinessService) Upsert(ctx context.Context, ownerID string, req sm.UpsertBusinessRequest) error {
	req.BusinessName = strings.TrimSpace(req.BusinessName)
	req.EmailAddress = strings.TrimSpace(req.EmailAddress)
	if req.BusinessName == "" || req.EmailAddress == "" {
		return newError(ErrInvalidInput, "business_name and email_address required")
	}
	_, err := s.repo.UpsertBusiness(ctx, ownerID, sm.Business{
		BusinessName: req.BusinessName,
		Description:  req.Description,
		EmailAddress: req.EmailAddress,
		Address:      req.Address,
		PhoneNumber:  req.PhoneNumber,
	})
	return err
}

// Customers lists the enrollments in ownerID's business with their users.
func (s *BusinessService) Customers(ctx context.Context, ownerID string) ([]sm.BusinessEnrollment, error) {
	b, err := s.ownBusiness(ctx, ownerID, "Business not found")
	if err != nil {
		return nil, err
	}
	return s.repo.ListBusinessEnrollments(ctx, b.ID)
}

func (s *BusinessService) CreateReward(ctx context.Context, ownerID string, req sm.CreateRewardRequest) error {
	b, err := s.ownBusiness(ctx, ownerID, "Business not found")
	if err != nil {
		return err
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return newError(ErrInvalidInput, "name required")
	}
	if req.RequiredPoints.IsNegative() {
		return newError(ErrInvalidInput, "required_points must not be negative")
	}
	from := req.ValidFromTimestamp
	if from == nil {
		now := time.Now().UTC()
		from = &now
	}
	_, err = s.repo.CreateReward(ctx, sm.Reward{
		BusinessID:          b.ID,
		Name:                req.Name,
		Description:         req.Description,
		RequiredPoints:      req.RequiredPoints,
		ValidFromTimestamp:  from,
		ValidUntilTimestamp: req.ValidUntilTimestamp,
	})
	return err
}

// UpdateReward applies the non-nil fields of req.
func (s *BusinessService) UpdateReward(ctx context.Context, ownerID, rewardID string, req sm.UpdateRewardRequest) error {
	rw, err := s.ownedReward(ctx, ownerID, rewardID)
	if err != nil {
		return err
	}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return newError(ErrInvalidInput, "name must not be blank")
		}
		rw.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		rw.Description = req.Description
	}
	if req.RequiredPoints != nil {
		if req.RequiredPoints.IsNegative() {
			return newError(ErrInvalidInput, "required_points must not be negative")
		}
		rw.RequiredPoints = *req.RequiredPoints
	}
	if req.ValidFromTimestamp != nil {
		rw.ValidFromTimestamp = req.ValidFromTimestamp
	}
	if req.ValidUntilTimestamp != nil {
		rw.ValidUntilTimestamp = req.ValidUntilTimestamp
	}
	return s.repo.UpdateReward(ctx, rw)
}

func (s *BusinessService) DeleteReward(ctx context.Context, ownerID, rewardID string) error {
	rw, err := s.ownedReward(ctx, ownerID, rewardID)
	if err != nil {
		return err
	}
	return s.repo.DeleteReward(ctx, rw.ID)
}

func (s *BusinessService) ownBusiness(ctx context.Context, ownerID, missing string) (models.BusinessRecord, error) {
	b, err := s.repo.GetBusinessByOwner(ctx, ownerID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.BusinessRecord{}, newError(ErrNotFound, missing)
	}
	return b, err
}

// ownedReward loads a reward and checks it belongs to ownerID's business.
func (s *BusinessService) ownedReward(ctx context.Context, ownerID, rewardID string) (sm.Reward, error) {
	b, err := s.ownBusiness(ctx, ownerID, "Business not found")
	if err != nil {
		return sm.Reward{}, err
	}
	rw, err := s.repo.GetReward(ctx, rewardID)
	if errors.Is(err, repository.ErrNotFound) {
		return sm.Reward{}, newError(ErrNotFound, "Reward not found")
	}
	if err != nil {
		return sm.Reward{}, err
	}
	if rw.BusinessID != b.ID {
		return sm.Reward{}, newError(ErrForbidden, "Unauthorized")
	}
	return rw, nil
}

func (s *BusinessService) withRewards(ctx context.Context, b models.BusinessRecord) (sm.BusinessWithRewards, error) {
	rewards, err := s.repo.ListRewards(ctx, b.ID)
	if err != nil {
		return sm.BusinessWithRewards{}, err
	}
	return sm.BusinessWithRewards{Details: b.Business, Rewards: rewards}, nil
}

package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"loyalty/internal/server/config"
	"loyalty/internal/server/models"
	sm "loyalty/internal/shared/models"
	"loyalty/internal/shared/passhash"
)

type Repository interface {
	CreateUser(ctx context.Context, u sm.User, passwordHash string) (sm.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.UserRecord, error)
	GetUser(ctx context.Context, id string) (sm.User, error)
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error

	RevokeToken(ctx context.Context, token string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, token string) (bool, error)
	PurgeRevokedTokens(ctx context.Context, now time.Time) (int64, error)

	UpsertBusiness(ctx context.Context, ownerID string, b sm.Business) (sm.Business, error)
	GetBusinessByOwner(ctx context.Context, ownerID string) (models.BusinessRecord, error)
	GetBusiness(ctx context.Context, id string) (models.BusinessRecord, error)
	ListBusinesses(ctx context.Context) ([]models.BusinessRecord, error)

	CreateReward(ctx context.Context, rw sm.Reward) (sm.Reward, error)
	GetReward(ctx context.Context, id string) (sm.Reward, error)
	UpdateReward(ctx context.Context, rw sm.Reward) error
	DeleteReward(ctx context.Context, id string) error
	ListRewards(ctx context.Context, businessID string) ([]sm.Reward, error)

	CreateEnrollment(ctx context.Context, userID, businessID string) (sm.Enrollment, error)
	GetEnrollment(ctx context.Context, userID, businessID string) (sm.Enrollment, error)
	DeleteEnrollment(ctx context.Context, userID, businessID string) error
	ListEnrollments(ctx context.Context) ([]sm.Enrollment, error)
	ListUserEnrollments(ctx context.Context, userID string) ([]sm.UserEnrollment, error)
	ListBusinessEnrollments(ctx context.Context, businessID string) ([]sm.BusinessEnrollment, error)
	SetPoints(ctx context.Context, enrollmentID string, expected, balance decimal.Decimal) error
	Redeem(ctx context.Context, enrollmentID, rewardID string, expected, balance decimal.Decimal) error
}

// Error kinds. Handlers map them to status codes; the error text is safe to
// show to clients.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	// ErrInsufficientPoints is matched by *InsufficientPointsError.
	ErrInsufficientPoints = errors.New("Insufficient points")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string        { return e.msg }
func (e *kindError) Is(target error) bool { return target == e.kind }

func newError(kind error, msg string) error { return &kindError{kind: kind, msg: msg} }

// InsufficientPointsError reports a redemption the balance cannot cover.
type InsufficientPointsError struct {
	Required decimal.Decimal
	Current  decimal.Decimal
}

func (e *InsufficientPointsError) Error() string        { return ErrInsufficientPoints.Error() }
func (e *InsufficientPointsError) Is(target error) bool { return target == ErrInsufficientPoints }

type Services struct {
	Auth        *AuthService
	Businesses  *BusinessService
	Enrollments *EnrollmentService
}

func NewServices(repo Repository, cfg config.Config, logger *logrus.Logger) *Services {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Services{
		Auth: &AuthService{
			repo:      repo,
			hasher:    passhash.New(passhash.DefaultParams),
			jwtSecret: []byte(cfg.JWTSecret),
			ttl:       ttl,
			now:       time.Now,
			log:       logger.WithField("component", "auth"),
		},
		Businesses:  &BusinessService{repo: repo, maxSimilar: 3},
		Enrollments: &EnrollmentService{repo: repo},
	}
}

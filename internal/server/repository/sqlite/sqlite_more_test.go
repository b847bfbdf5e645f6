package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"loyalty/internal/server/repository"
	sm "loyalty/internal/shared/models"
)

func seedEnrollment(t *testing.T, repo *Repository) (sm.User, sm.Business, sm.Enrollment) {
	t.Helper()
	ctx := context.Background()
	owner, err := repo.CreateUser(ctx, sm.User{Username: "owner", EmailAddress: "o@x", IsBusinessOwner: true}, "h")
	if err != nil {
		t.Fatal(err)
	}
	customer, err := repo.CreateUser(ctx, sm.User{Username: "cust", EmailAddress: "c@x"}, "h")
	if err != nil {
		t.Fatal(err)
	}
	b, err := repo.UpsertBusiness(ctx, owner.ID, sm.Business{BusinessName: "Deli", EmailAddress: "d@x"})
	if err != nil {
		t.Fatal(err)
	}
	e, err := repo.CreateEnrollment(ctx, customer.ID, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	return customer, b, e
}

func TestEnrollments(t *testing.T) {
	repo := newRepo(t, "repo_enrollments")
	ctx := context.Background()
	customer, b, e := seedEnrollment(t, repo)

	if !e.Points.IsZero() {
		t.Fatalf("new enrollment should start at zero: %s", e.Points)
	}
	if _, err := repo.CreateEnrollment(ctx, customer.ID, b.ID); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("want conflict, got %v", err)
	}
	mine, err := repo.ListUserEnrollments(ctx, customer.ID)
	if err != nil || len(mine) != 1 || mine[0].Business.BusinessName != "Deli" {
		t.Fatalf("user enrollments: %+v %v", mine, err)
	}
	customers, err := repo.ListBusinessEnrollments(ctx, b.ID)
	if err != nil || len(customers) != 1 || customers[0].User.Username != "cust" {
		t.Fatalf("business enrollments: %+v %v", customers, err)
	}
	all, err := repo.ListEnrollments(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("all enrollments: %v %d", err, len(all))
	}

	if err := repo.DeleteEnrollment(ctx, customer.ID, b.ID); err != nil {
		t.Fatal(err)
	}
	if err := repo.DeleteEnrollment(ctx, customer.ID, b.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
	if _, err := repo.GetEnrollment(ctx, customer.ID, b.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestPointsAreConditional(t *testing.T) {
	repo := newRepo(t, "repo_points")
	ctx := context.Background()
	customer, b, e := seedEnrollment(t, repo)

	balance := decimal.RequireFromString("25.50")
	if err := repo.SetPoints(ctx, e.ID, e.Points, balance); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetPoints(ctx, e.ID, decimal.Zero, decimal.NewFromInt(1)); !errors.Is(err, repository.ErrStale) {
		t.Fatalf("want stale, got %v", err)
	}
	got, err := repo.GetEnrollment(ctx, customer.ID, b.ID)
	if err != nil || !got.Points.Equal(balance) {
		t.Fatalf("points: %s %v", got.Points, err)
	}

	rw, err := repo.CreateReward(ctx, sm.Reward{BusinessID: b.ID, Name: "Cookie", RequiredPoints: decimal.NewFromInt(20)})
	if err != nil {
		t.Fatal(err)
	}
	left := balance.Sub(rw.RequiredPoints)
	if err := repo.Redeem(ctx, e.ID, rw.ID, balance, left); err != nil {
		t.Fatal(err)
	}
	if err := repo.Redeem(ctx, e.ID, rw.ID, balance, left); !errors.Is(err, repository.ErrStale) {
		t.Fatalf("want stale on replay, got %v", err)
	}
	rw, _ = repo.GetReward(ctx, rw.ID)
	if rw.UsageCount != 1 {
		t.Fatalf("usage count: %d", rw.UsageCount)
	}
	got, _ = repo.GetEnrollment(ctx, customer.ID, b.ID)
	if got.Points.StringFixed(2) != "5.50" {
		t.Fatalf("balance after redeem: %s", got.Points)
	}
}

func TestRevokedTokens(t *testing.T) {
	repo := newRepo(t, "repo_revoked")
	ctx := context.Background()
	now := time.Now()
	if err := repo.RevokeToken(ctx, "old", now.Add(-time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := repo.RevokeToken(ctx, "live", now.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := repo.RevokeToken(ctx, "live", now.Add(time.Hour)); err != nil {
		t.Fatalf("revoking twice should be a no-op: %v", err)
	}
	if ok, err := repo.IsTokenRevoked(ctx, "live"); err != nil || !ok {
		t.Fatalf("live should be revoked: %v", err)
	}
	n, err := repo.PurgeRevokedTokens(ctx, now)
	if err != nil || n != 1 {
		t.Fatalf("purge: %d %v", n, err)
	}
	if ok, _ := repo.IsTokenRevoked(ctx, "other"); ok {
		t.Fatalf("unknown token reported revoked")
	}
}

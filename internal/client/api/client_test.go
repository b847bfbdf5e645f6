package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loyalty/internal/shared/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc, token TokenFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL}, token, nil)
}

func TestLogin_NoBearerAndSnakeCase(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice", body["username"])
		assert.Equal(t, "pw", body["password"])
		_, _ = io.WriteString(w, `{"access_token":"T1","token_type":"bearer"}`)
	}, func() string { return "stale" })

	tok, err := c.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "T1", tok.AccessToken)
	assert.Equal(t, "bearer", tok.TokenType)
}

func TestRegister_WireFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "bob@example.com", body["email_address"])
		assert.Equal(t, true, body["is_business_owner"])
		_, _ = io.WriteString(w, `{"access_token":"T2","token_type":"bearer"}`)
	}, nil)

	tok, err := c.Register(context.Background(), models.RegisterRequest{
		Username: "bob", Password: "pw", EmailAddress: "bob@example.com", IsBusinessOwner: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "T2", tok.AccessToken)
}

func TestRegister_DuplicateIsAuthError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"Username already exists"}`)
	}, nil)

	_, err := c.Register(context.Background(), models.RegisterRequest{Username: "bob", Password: "pw"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuth)
	assert.Contains(t, err.Error(), "Username already exists")
}

func TestTokenSupplierEvaluatedPerRequest(t *testing.T) {
	var seen []string
	holder := &TokenHolder{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"id":"u1","username":"alice","email_address":"a@x","is_business_owner":false}`)
	}, holder.Get)

	ctx := context.Background()
	holder.Set("T1")
	_, err := c.CurrentUser(ctx)
	require.NoError(t, err)
	holder.Set("T2")
	_, err = c.CurrentUser(ctx)
	require.NoError(t, err)
	holder.Set("")
	_, err = c.CurrentUser(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"Bearer T1", "Bearer T2", ""}, seen)
}

func TestCurrentUser_Decodes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"u1","username":"alice","email_address":"a@x","is_business_owner":true}`)
	}, nil)
	u, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.User{ID: "u1", Username: "alice", EmailAddress: "a@x", IsBusinessOwner: true}, u)
}

func TestListBusinesses_DecimalsAndOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[
			{"details":{"id":"b1","business_name":"Cafe","email_address":"c@x"},
			 "rewards":[{"id":"r2","business_id":"b1","name":"Tea","required_points":"50.25","usage_count":0},
			            {"id":"r1","business_id":"b1","name":"Coffee","required_points":100,"usage_count":3}],
			 "similar_businesses":[]},
			{"details":{"id":"b2","business_name":"Deli","email_address":"d@x","address":"Main St"},"rewards":[]}
		]`)
	}, nil)

	list, err := c.ListBusinesses(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Len(t, list[0].Rewards, 2)
	assert.Equal(t, "r2", list[0].Rewards[0].ID)
	assert.True(t, list[0].Rewards[0].RequiredPoints.Equal(decimal.RequireFromString("50.25")))
	assert.True(t, list[0].Rewards[1].RequiredPoints.Equal(decimal.NewFromInt(100)))
	require.NotNil(t, list[1].Details.Address)
	assert.Equal(t, "Main St", *list[1].Details.Address)
	assert.Empty(t, list[1].SimilarBusinesses)
}

func TestOwnBusiness_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"No business details found for this user"}`)
	}, nil)
	_, err := c.OwnBusiness(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRewardPaths(t *testing.T) {
	var calls []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodPut {
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			_, hasName := body["name"]
			assert.False(t, hasName, "nil fields must be omitted from partial updates")
			assert.Equal(t, "75", body["required_points"])
		}
		w.WriteHeader(http.StatusOK)
	}, func() string { return "T" })

	ctx := context.Background()
	require.NoError(t, c.CreateReward(ctx, models.CreateRewardRequest{Name: "Free Coffee", RequiredPoints: decimal.NewFromInt(100)}))
	pts := decimal.NewFromInt(75)
	require.NoError(t, c.UpdateReward(ctx, "r1", models.UpdateRewardRequest{RequiredPoints: &pts}))
	require.NoError(t, c.DeleteReward(ctx, "r1"))
	assert.Equal(t, []string{
		"POST /businesses/rewards",
		"PUT /businesses/rewards/r1",
		"DELETE /businesses/rewards/r1",
	}, calls)
}

func TestEnroll_AlreadyEnrolledIsConflict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/enrollments/businesses/b1", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"Already enrolled"}`)
	}, nil)
	err := c.Enroll(context.Background(), "b1")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCancelEnrollment_NotEnrolled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
	}, nil)
	err := c.CancelEnrollment(context.Background(), "b1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddPoints_ExactDecimal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "u1", body["user_id"])
		assert.Equal(t, "25.5", body["points"])
		_, _ = io.WriteString(w, `{"user_id":"u1","new_points_balance":"125.50"}`)
	}, nil)

	resp, err := c.AddPoints(context.Background(), "u1", decimal.RequireFromString("25.50"))
	require.NoError(t, err)
	assert.Equal(t, "125.50", resp.NewPointsBalance.StringFixed(2))
	assert.True(t, resp.NewPointsBalance.Equal(decimal.RequireFromString("125.5")))
}

func TestAddPoints_NegativeRejectedLocally(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true }, nil)
	_, err := c.AddPoints(context.Background(), "u1", decimal.RequireFromString("-1"))
	assert.ErrorIs(t, err, ErrValidation)
	assert.False(t, called)
}

func TestRedeemReward_Insufficient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"Insufficient points","required":100,"current":20}`)
	}, nil)
	_, err := c.RedeemReward(context.Background(), "u1", "r1")
	assert.ErrorIs(t, err, ErrInsufficientPoints)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, opRedeemReward, apiErr.Op)
}

func TestRedeemReward_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"new_points_balance":0.5}`)
	}, nil)
	resp, err := c.RedeemReward(context.Background(), "u1", "r1")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.True(t, resp.NewPointsBalance.Equal(decimal.RequireFromString("0.5")))
}

func TestServerAndNetworkErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, nil)
	_, err := c.ListBusinesses(context.Background())
	assert.ErrorIs(t, err, ErrServer)

	dead := New(Config{BaseURL: "http://127.0.0.1:1"}, nil, nil)
	_, err = dead.ListBusinesses(context.Background())
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestForbidden(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":"Business owner access required"}`)
	}, nil)
	_, err := c.OwnBusiness(context.Background())
	assert.ErrorIs(t, err, ErrAuth)
	assert.True(t, IsForbidden(err))
	assert.False(t, IsForbidden(errors.New("other")))
}

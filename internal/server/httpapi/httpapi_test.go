package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"loyalty/internal/server/config"
	"loyalty/internal/server/repository/sqlite"
	"loyalty/internal/server/service"
)

func newTestServer(t *testing.T, name string, opts Options) http.Handler {
	t.Helper()
	repo, err := sqlite.New("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("repo: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	svcs := service.NewServices(repo, config.Config{JWTSecret: "test"}, nil)
	if opts.MaxRequestBytes == 0 {
		opts.MaxRequestBytes = 1 << 20
	}
	return NewRouter(svcs, nil, opts)
}

func doJSON(t *testing.T, ts http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf *bytes.Buffer
	switch b := body.(type) {
	case nil:
		buf = &bytes.Buffer{}
	case string:
		buf = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(body)
		buf = bytes.NewBuffer(raw)
	}
	req := httptest.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	ts.ServeHTTP(rr, req)
	return rr
}

func bearer(tok string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + tok}
}

func register(t *testing.T, ts http.Handler, username string, owner bool) string {
	t.Helper()
	rr := doJSON(t, ts, "POST", "/auth/register", map[string]any{
		"username": username, "password": "pw", "email_address": username + "@x", "is_business_owner": owner,
	}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("register %s: %d %s", username, rr.Code, rr.Body.String())
	}
	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &tok)
	if tok.AccessToken == "" || tok.TokenType != "bearer" {
		t.Fatalf("bad token response: %s", rr.Body.String())
	}
	return tok.AccessToken
}

func errorOf(rr *httptest.ResponseRecorder) string {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	return body.Error
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, "http_health", Options{})
	rr := doJSON(t, ts, "GET", "/health", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("health status: %d", rr.Code)
	}
	rr = doJSON(t, ts, "GET", "/metrics", nil, nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `loyalty_http_requests_total{method="GET",route="/health",status="200"} 1`) {
		t.Fatalf("metrics: %d %s", rr.Code, rr.Body.String())
	}
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t, "http_auth", Options{})
	tok := register(t, ts, "alice", false)

	rr := doJSON(t, ts, "POST", "/auth/register", map[string]any{"username": "alice", "password": "x"}, nil)
	if rr.Code != http.StatusBadRequest || errorOf(rr) != "Username already exists" {
		t.Fatalf("duplicate: %d %s", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, ts, "POST", "/auth/login", map[string]string{"username": "alice", "password": "bad"}, nil)
	if rr.Code != http.StatusUnauthorized || errorOf(rr) != "Invalid credentials" {
		t.Fatalf("bad login: %d %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, ts, "GET", "/auth/me", nil, bearer(tok))
	if rr.Code != http.StatusOK {
		t.Fatalf("me: %d", rr.Code)
	}
	var me struct {
		Username        string `json:"username"`
		IsBusinessOwner bool   `json:"is_business_owner"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &me)
	if me.Username != "alice" || me.IsBusinessOwner {
		t.Fatalf("me body: %s", rr.Body.String())
	}

	rr = doJSON(t, ts, "POST", "/auth/logout", nil, bearer(tok))
	if rr.Code != http.StatusOK {
		t.Fatalf("logout: %d %s", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, ts, "GET", "/auth/me", nil, bearer(tok))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token: want 401 got %d", rr.Code)
	}
}

func TestAuthMiddleware_Unauthorized(t *testing.T) {
	ts := newTestServer(t, "http_unauth", Options{})
	rr := doJSON(t, ts, "GET", "/enrollments/me", nil, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 got %d", rr.Code)
	}
	rr = doJSON(t, ts, "GET", "/enrollments/me", nil, bearer("invalid"))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 got %d", rr.Code)
	}
}

func TestOwnerOnlyRoutes(t *testing.T) {
	ts := newTestServer(t, "http_owner_only", Options{})
	tok := register(t, ts, "cust", false)
	for _, path := range []string{"/businesses/me", "/businesses/enrollments"} {
		rr := doJSON(t, ts, "GET", path, nil, bearer(tok))
		if rr.Code != http.StatusForbidden || errorOf(rr) != "Business owner access required" {
			t.Fatalf("%s: %d %s", path, rr.Code, rr.Body.String())
		}
	}
	owner := register(t, ts, "owner", true)
	rr := doJSON(t, ts, "GET", "/businesses/me", nil, bearer(owner))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("owner without business: %d", rr.Code)
	}
}

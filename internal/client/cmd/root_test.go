package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"loyalty/internal/server/config"
	"loyalty/internal/server/httpapi"
	"loyalty/internal/server/repository/sqlite"
	"loyalty/internal/server/service"
)

func newBackend(t *testing.T, name string) *httptest.Server {
	t.Helper()
	repo, err := sqlite.New("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("repo: %v", err)
	}
	svcs := service.NewServices(repo, config.Config{JWTSecret: "test"}, nil)
	srv := httptest.NewServer(httpapi.NewRouter(svcs, nil, httpapi.Options{MaxRequestBytes: 1 << 20}))
	t.Cleanup(func() {
		srv.Close()
		_ = repo.Close()
	})
	return srv
}

// cli runs commands as one user: each user has its own token and key files.
type cli struct {
	t      *testing.T
	server string
	home   string
}

func newCLI(t *testing.T, server string) *cli {
	return &cli{t: t, server: server, home: t.TempDir()}
}

func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()
	root := NewRootCmd("1.0.0", "2025-08-13")
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{
		"--server", c.server,
		"--token-file", filepath.Join(c.home, "token"),
		"--vault-key", filepath.Join(c.home, "vault_key"),
	}, args...))
	err := root.Execute()
	return out.String(), err
}

func (c *cli) mustRun(stdin string, args ...string) string {
	c.t.Helper()
	out, err := c.run(stdin, args...)
	if err != nil {
		c.t.Fatalf("%v: %v", args, err)
	}
	return out
}

func TestRoot_VersionAndVault(t *testing.T) {
	c := newCLI(t, "http://127.0.0.1:0")

	out := c.mustRun("", "version")
	if out != "loyalty 1.0.0 (2025-08-13)\n" {
		t.Fatalf("version output: %q", out)
	}
	if out := c.mustRun("", "vault", "status"); !strings.Contains(out, "not initialized") {
		t.Fatalf("status before init: %q", out)
	}
	c.mustRun("", "vault", "init")
	if out := c.mustRun("", "vault", "status"); !strings.Contains(out, "ready") {
		t.Fatalf("status after init: %q", out)
	}
	if _, err := c.run("", "vault", "init"); err == nil {
		t.Fatalf("second init should refuse to overwrite")
	}
}

func TestRoot_RejectsUnknownOutput(t *testing.T) {
	c := newCLI(t, "http://127.0.0.1:0")
	if _, err := c.run("", "-o", "xml", "businesses", "list"); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestRoot_RequiresLogin(t *testing.T) {
	srv := newBackend(t, "cli_requires_login")
	c := newCLI(t, srv.URL)
	for _, args := range [][]string{{"enrollments", "list"}, {"auth", "whoami"}, {"points", "add", "u", "1"}} {
		_, err := c.run("", args...)
		if err == nil || !strings.Contains(err.Error(), "not logged in") {
			t.Fatalf("%v: want not logged in, got %v", args, err)
		}
	}
	// The business list is public.
	if out := c.mustRun("", "businesses", "list"); strings.TrimSpace(out) != "[]" {
		t.Fatalf("anonymous list: %q", out)
	}
}

func TestRoot_LoyaltyFlow(t *testing.T) {
	srv := newBackend(t, "cli_flow")
	owner := newCLI(t, srv.URL)
	customer := newCLI(t, srv.URL)

	out := owner.mustRun("pw\n", "auth", "register", "owner", "--owner", "--email", "o@example.com")
	if !strings.Contains(out, `"username": "owner"`) || !strings.Contains(out, `"is_business_owner": true`) {
		t.Fatalf("register output: %s", out)
	}
	if out := owner.mustRun("", "businesses", "mine"); !strings.Contains(out, "No business yet") {
		t.Fatalf("mine before upsert: %s", out)
	}
	owner.mustRun("", "businesses", "upsert", "--name", "Cafe", "--email", "cafe@example.com")
	out = owner.mustRun("", "rewards", "create", "--name", "Free Coffee", "--points", "100")
	var own struct {
		Details struct {
			ID string `json:"id"`
		} `json:"details"`
		Rewards []struct {
			ID             string `json:"id"`
			RequiredPoints string `json:"required_points"`
		} `json:"rewards"`
	}
	if err := json.Unmarshal([]byte(out), &own); err != nil || len(own.Rewards) != 1 {
		t.Fatalf("own business after create: %v %s", err, out)
	}
	if own.Rewards[0].RequiredPoints != "100" {
		t.Fatalf("required points: %q", own.Rewards[0].RequiredPoints)
	}

	customer.mustRun("pw\n", "auth", "register", "cust", "--email", "c@example.com")
	out = customer.mustRun("", "-o", "yaml", "businesses", "list")
	if !strings.Contains(out, "business_name: Cafe") || !strings.Contains(out, `required_points: "100"`) {
		t.Fatalf("yaml list: %s", out)
	}
	if out := customer.mustRun("", "enrollments", "enroll", own.Details.ID); !strings.Contains(out, own.Details.ID) {
		t.Fatalf("enroll output: %s", out)
	}

	out = owner.mustRun("", "enrollments", "customers")
	var customers []struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	if err := json.Unmarshal([]byte(out), &customers); err != nil || len(customers) != 1 {
		t.Fatalf("customers: %v %s", err, out)
	}
	custID := customers[0].User.ID

	if out := owner.mustRun("", "points", "add", custID, "25.5"); !strings.Contains(out, `"new_points_balance": "25.5"`) {
		t.Fatalf("add points: %s", out)
	}
	if _, err := owner.run("", "points", "redeem", custID, own.Rewards[0].ID); err == nil || !strings.Contains(err.Error(), "Insufficient points") {
		t.Fatalf("redeem: want insufficient points, got %v", err)
	}
	if out := customer.mustRun("", "enrollments", "list"); !strings.Contains(out, `"points": "25.5"`) {
		t.Fatalf("customer balance: %s", out)
	}

	if out := customer.mustRun("", "auth", "logout"); !strings.Contains(out, "Logged out") {
		t.Fatalf("logout: %s", out)
	}
	if _, err := customer.run("", "enrollments", "list"); err == nil {
		t.Fatalf("expected not logged in after logout")
	}
	if _, err := owner.run("wrong\n", "auth", "login", "owner"); err == nil {
		t.Fatalf("login with a bad password succeeded")
	}
	if out := owner.mustRun("pw\n", "auth", "login", "owner"); !strings.Contains(out, `"username": "owner"`) {
		t.Fatalf("login: %s", out)
	}
}

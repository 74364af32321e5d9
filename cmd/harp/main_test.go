package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/hackutd/harp-sub000/internal/config"
	"github.com/hackutd/harp-sub000/internal/logger"
	"github.com/hackutd/harp-sub000/internal/server"
	"github.com/hackutd/harp-sub000/internal/storage"
	"github.com/hackutd/harp-sub000/internal/testenv"
	"github.com/hackutd/harp-sub000/internal/testutil"
)

const cliToken = "token-cli-alice"

type cliEnv struct {
	db         *storage.DB
	addr       string
	configPath string
}

// newCLIEnv starts an API server over a fresh database and writes a config
// file that points the CLI at it.
func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	testenv.SetDataDir(t)

	cfg := config.DefaultConfig()
	cfg.Admins = []config.Admin{{ID: "alice", Email: "alice@hackutd.co", Token: cliToken}}

	db := testutil.OpenTestDB(t)
	if err := db.UpsertAdmin(context.Background(), storage.Admin{ID: "alice", Email: "alice@hackutd.co"}); err != nil {
		t.Fatalf("UpsertAdmin: %v", err)
	}
	srv := server.NewServer(db, server.NewStaticConfig(cfg), logger.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	path := filepath.Join(t.TempDir(), "config.toml")
	clientCfg := config.DefaultConfig()
	clientCfg.Client.Server = ts.URL
	clientCfg.Client.Token = cliToken
	if err := config.SaveGlobalTo(path, clientCfg); err != nil {
		t.Fatalf("SaveGlobalTo: %v", err)
	}

	return &cliEnv{db: db, addr: ts.URL, configPath: path}
}

// run executes the root command with --config pointing at the test file.
func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runCLI(t, append([]string{"--config", e.configPath}, args...)...)
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestReviewsTable(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "reviews")
	if err != nil {
		t.Fatalf("reviews: %v", err)
	}
	if !strings.Contains(out, "No pending reviews") {
		t.Errorf("expected empty-queue hint, got:\n%s", out)
	}

	apps := testutil.CreateTestApplications(t, env.db, 2)
	reviews := testutil.AssignTestReviews(t, env.db, "alice", apps)

	out, err = env.run(t, "reviews")
	if err != nil {
		t.Fatalf("reviews: %v", err)
	}
	for _, want := range []string{"APPLICANT", reviews[0].ID, reviews[1].ID, "applicant00@example.edu"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestReviewsStructuredOutput(t *testing.T) {
	env := newCLIEnv(t)
	apps := testutil.CreateTestApplications(t, env.db, 2)
	reviews := testutil.AssignTestReviews(t, env.db, "alice", apps)

	t.Run("json", func(t *testing.T) {
		out, err := env.run(t, "reviews", "-o", "json")
		if err != nil {
			t.Fatalf("reviews: %v", err)
		}
		var got struct {
			Reviews []reviewRow `json:"reviews"`
		}
		if err := json.Unmarshal([]byte(out), &got); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, out)
		}
		if len(got.Reviews) != 2 || got.Reviews[0].ID != reviews[0].ID {
			t.Errorf("unexpected reviews: %+v", got.Reviews)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		out, err := env.run(t, "reviews", "-o", "yaml")
		if err != nil {
			t.Fatalf("reviews: %v", err)
		}
		var got struct {
			Reviews []reviewRow `yaml:"reviews"`
		}
		if err := yaml.Unmarshal([]byte(out), &got); err != nil {
			t.Fatalf("invalid YAML: %v\n%s", err, out)
		}
		if len(got.Reviews) != 2 || got.Reviews[1].ApplicationID != apps[1].ID {
			t.Errorf("unexpected reviews: %+v", got.Reviews)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if _, err := env.run(t, "reviews", "-o", "xml"); err == nil {
			t.Error("expected error for unknown output format")
		}
	})
}

func TestVoteCommand(t *testing.T) {
	env := newCLIEnv(t)
	apps := testutil.CreateTestApplications(t, env.db, 1)
	review := testutil.AssignTestReviews(t, env.db, "alice", apps)[0]

	if _, err := env.run(t, "vote", review.ID, "maybe"); err == nil {
		t.Fatal("expected error for unknown vote")
	}

	out, err := env.run(t, "vote", review.ID, "accept", "--notes", "strong projects")
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	if !strings.Contains(out, "Voted accept") {
		t.Errorf("unexpected output: %s", out)
	}

	stored, err := env.db.GetReview(context.Background(), review.ID)
	if err != nil {
		t.Fatalf("GetReview: %v", err)
	}
	if stored.Vote == nil || *stored.Vote != storage.VoteAccept {
		t.Errorf("vote not stored: %+v", stored.Vote)
	}
	if stored.Notes == nil || *stored.Notes != "strong projects" {
		t.Errorf("notes not stored: %v", stored.Notes)
	}

	_, err = env.run(t, "vote", review.ID, "reject")
	if err == nil || !strings.Contains(err.Error(), "already decided") {
		t.Errorf("expected already-decided error, got %v", err)
	}

	_, err = env.run(t, "vote", "does-not-exist", "reject")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not-found error, got %v", err)
	}

	out, err = env.run(t, "reviews", "--completed")
	if err != nil {
		t.Fatalf("reviews --completed: %v", err)
	}
	if !strings.Contains(out, review.ID) || !strings.Contains(out, "accept") {
		t.Errorf("completed list missing vote:\n%s", out)
	}
}

func TestNextCommand(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "next")
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if !strings.Contains(out, "No applications need review") {
		t.Errorf("unexpected output: %s", out)
	}

	testutil.CreateTestApplications(t, env.db, 1)
	out, err = env.run(t, "next")
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if !strings.Contains(out, "Assigned") || !strings.Contains(out, "applicant00@example.edu") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestApplicationStatsCommand(t *testing.T) {
	env := newCLIEnv(t)
	testutil.CreateTestApplications(t, env.db, 3)

	out, err := env.run(t, "applications", "stats")
	if err != nil {
		t.Fatalf("applications stats: %v", err)
	}
	for _, want := range []string{"submitted   3", "total       3", "Acceptance rate: 0.0%"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, err = env.run(t, "applications", "stats", "-o", "json")
	if err != nil {
		t.Fatalf("applications stats: %v", err)
	}
	var got statsOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if got.Total != 3 || got.Submitted != 3 {
		t.Errorf("unexpected stats: %+v", got)
	}
}

func TestApplicationsPaging(t *testing.T) {
	env := newCLIEnv(t)
	testutil.CreateTestApplications(t, env.db, 3)

	out, err := env.run(t, "applications", "--limit", "2", "-o", "json")
	if err != nil {
		t.Fatalf("applications: %v", err)
	}
	var first applicationsOutput
	if err := json.Unmarshal([]byte(out), &first); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(first.Applications) != 2 || !first.HasMore || first.NextCursor == nil {
		t.Fatalf("unexpected first page: %+v", first)
	}
	if first.PrevCursor != nil {
		t.Errorf("first page should have no previous cursor")
	}
	if first.Applications[0].Email != "applicant02@example.edu" {
		t.Errorf("expected newest first, got %s", first.Applications[0].Email)
	}

	out, err = env.run(t, "applications", "--limit", "2", "--cursor", *first.NextCursor)
	if err != nil {
		t.Fatalf("applications: %v", err)
	}
	if !strings.Contains(out, "applicant00@example.edu") {
		t.Errorf("second page missing oldest application:\n%s", out)
	}
	if !strings.Contains(out, "Previous page: --cursor") {
		t.Errorf("second page should print a previous cursor:\n%s", out)
	}
	if strings.Contains(out, "Next page:") {
		t.Errorf("last page should not print a next cursor:\n%s", out)
	}

	if _, err := env.run(t, "applications", "--status", "pending"); err == nil {
		t.Error("expected error for unknown status")
	}
	if _, err := env.run(t, "applications", "--direction", "sideways"); err == nil {
		t.Error("expected error for unknown direction")
	}
}

func TestClientErrors(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "reviews", "--token", "wrong")
	if err == nil || !strings.Contains(err.Error(), "admin token") {
		t.Errorf("expected token hint, got %v", err)
	}

	_, err = env.run(t, "reviews", "--server", "127.0.0.1:1")
	if err == nil || !strings.Contains(err.Error(), "harp serve") {
		t.Errorf("expected server hint, got %v", err)
	}
}

func TestMissingToken(t *testing.T) {
	testenv.SetDataDir(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	_, err := runCLI(t, "--config", path, "reviews")
	if err == nil || !strings.Contains(err.Error(), "no admin token") {
		t.Errorf("expected missing token error, got %v", err)
	}
}

func TestConfigCommands(t *testing.T) {
	testenv.SetDataDir(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	if _, err := runCLI(t, "--config", path, "config", "set", "client.token", "secret-token-1234"); err != nil {
		t.Fatalf("config set: %v", err)
	}
	if _, err := runCLI(t, "--config", path, "config", "set", "page_size", "20"); err != nil {
		t.Fatalf("config set: %v", err)
	}

	t.Run("get masks secrets", func(t *testing.T) {
		out, err := runCLI(t, "--config", path, "config", "get", "client.token")
		if err != nil {
			t.Fatalf("config get: %v", err)
		}
		if strings.TrimSpace(out) != "****1234" {
			t.Errorf("expected masked token, got %q", out)
		}

		out, err = runCLI(t, "--config", path, "config", "get", "client.token", "--show-secret")
		if err != nil {
			t.Fatalf("config get: %v", err)
		}
		if strings.TrimSpace(out) != "secret-token-1234" {
			t.Errorf("expected raw token, got %q", out)
		}
	})

	t.Run("list", func(t *testing.T) {
		out, err := runCLI(t, "--config", path, "config", "list")
		if err != nil {
			t.Fatalf("config list: %v", err)
		}
		if !strings.Contains(out, "page_size=20") {
			t.Errorf("list missing page_size:\n%s", out)
		}
		if strings.Contains(out, "secret-token-1234") {
			t.Errorf("list leaked the token:\n%s", out)
		}
	})

	t.Run("set rejects invalid values", func(t *testing.T) {
		if _, err := runCLI(t, "--config", path, "config", "set", "page_size", "many"); err == nil {
			t.Error("expected error for non-integer value")
		}
		if _, err := runCLI(t, "--config", path, "config", "set", "database.driver", "mysql"); err == nil {
			t.Error("expected validation error for unknown driver")
		}
		if _, err := runCLI(t, "--config", path, "config", "set", "no.such.key", "1"); err == nil {
			t.Error("expected error for unknown key")
		}
	})

	t.Run("set ignores environment overrides", func(t *testing.T) {
		t.Setenv("HARP_SERVER", "http://env.example:9999")
		if _, err := runCLI(t, "--config", path, "config", "set", "env", "production"); err != nil {
			t.Fatalf("config set: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if strings.Contains(string(data), "env.example") {
			t.Errorf("environment override written to file:\n%s", data)
		}
	})

	t.Run("path", func(t *testing.T) {
		out, err := runCLI(t, "--config", path, "config", "path")
		if err != nil {
			t.Fatalf("config path: %v", err)
		}
		if strings.TrimSpace(out) != path {
			t.Errorf("expected %s, got %q", path, out)
		}
	})
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "harp ") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestValidateOutput(t *testing.T) {
	for _, f := range []string{"table", "json", "yaml"} {
		if err := validateOutput(f); err != nil {
			t.Errorf("validateOutput(%q) = %v", f, err)
		}
	}
	if err := validateOutput("csv"); err == nil {
		t.Error("expected error for csv")
	}
}

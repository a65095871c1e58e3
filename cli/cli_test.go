// ABOUTME: End-to-end tests of the command tree
// ABOUTME: Runs commands against a temp badger data dir in local-only mode
package cli

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	configPath string
	dataDir    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	for _, k := range []string{
		"ADVISOR_STORAGE_DRIVER", "ADVISOR_DATA_DIR", "ADVISOR_MIRROR_TOKEN", "GITHUB_TOKEN",
		"ADVISOR_LOG_LEVEL", "ADVISOR_DEMO_PASSWORD",
	} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	return &testEnv{
		configPath: filepath.Join(dir, "config.yaml"),
		dataDir:    filepath.Join(dir, "data"),
	}
}

func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", e.configPath, "--data-dir", e.dataDir, "--driver", "badger"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, "", args...)
	require.NoError(t, err, "advisor %s", strings.Join(args, " "))
	return out
}

func TestLoginWhoamiLogout(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "whoami")
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	_, err = env.run(t, "", "login", "poradce", "--password", "spatne")
	assert.Error(t, err)

	out, err := env.run(t, "heslo123\n", "login", "poradce")
	require.NoError(t, err)
	assert.Contains(t, out, "Petr Svoboda")

	assert.Contains(t, env.mustRun(t, "whoami"), "poradce@crm.cz")
	assert.Contains(t, env.mustRun(t, "--user", "vedouci", "whoami"), "Jan Novák")

	env.mustRun(t, "logout")
	_, err = env.run(t, "", "whoami")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestClientWorkflow(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "login", "poradce", "--password", "heslo123")

	out := env.mustRun(t, "clients", "add", "--first", "Eva", "--last", "Černá", "--email", "eva@example.cz")
	require.Contains(t, out, "Created client")
	id := strings.TrimSuffix(strings.Fields(out)[3], ":")

	assert.Contains(t, env.mustRun(t, "clients", "list", "-q", "eva@"), "Eva Černá")

	assert.Contains(t, env.mustRun(t, "clients", "move", id, "podpis"), "Moved Eva Černá")
	assert.Contains(t, env.mustRun(t, "clients", "move", id, "PODPIS"), "already in")
	assert.Contains(t, env.mustRun(t, "clients", "advance", id), "Moved Eva Černá")

	_, err := env.run(t, "", "clients", "move", id, "hotovo")
	assert.Error(t, err)

	out = env.mustRun(t, "potential", "set", id, "mortgage", "--interested", "--commission", "60000")
	assert.Contains(t, out, "VYSOKY")
	_, err = env.run(t, "", "potential", "set", id, "mortgage")
	assert.Error(t, err)

	out = env.mustRun(t, "clients", "show", id)
	assert.Contains(t, out, "Hypotéka")
	assert.Contains(t, out, "60 000 Kč")

	out, err = env.run(t, `{"savings":{}}`, "analysis", "set", id, "goals")
	require.NoError(t, err)
	assert.Contains(t, out, "17% complete")

	assert.Contains(t, env.mustRun(t, "viz", "dashboard"), "ADVISOR CRM DASHBOARD")
	assert.Contains(t, env.mustRun(t, "viz", "graph"), "stage_PODPIS")

	_, err = env.run(t, "", "--user", "asistent", "clients", "show", id)
	assert.Error(t, err)

	env.mustRun(t, "clients", "delete", id)
	_, err = env.run(t, "", "clients", "show", id)
	assert.Error(t, err)
}

func TestTasksAndMeetingsCommands(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "login", "poradce", "--password", "heslo123")

	out := env.mustRun(t, "tasks", "add", "Připravit smlouvu", "--priority", "high", "--due", "2030-01-31")
	require.Contains(t, out, "Created task")
	id := strings.TrimSuffix(strings.Fields(out)[3], ":")

	assert.Contains(t, env.mustRun(t, "tasks", "list"), "Připravit smlouvu")
	assert.Contains(t, env.mustRun(t, "tasks", "complete", id), "Completed task")
	assert.Contains(t, env.mustRun(t, "tasks", "complete", id), "already completed")
	assert.Contains(t, env.mustRun(t, "tasks", "list", "--filter", "completed"), "Připravit smlouvu")

	_, err := env.run(t, "", "tasks", "add", "x", "--due", "31.1.2030")
	assert.Error(t, err)

	out = env.mustRun(t, "meetings", "add", "Úvodní schůzka", "--start", "2030-02-04 09:30")
	assert.Contains(t, out, "Created meeting")
	assert.Contains(t, env.mustRun(t, "meetings", "list", "--date", "2030-02-04"), "Úvodní schůzka")
	assert.Contains(t, env.mustRun(t, "meetings", "list", "--date", "2030-02-06", "--week"), "09:30-10:30")

	_, err = env.run(t, "", "meetings", "add", "Bad", "--start", "2030-02-04 09:30", "--duration", "-1h")
	assert.Error(t, err)
}

func TestMirrorLocalOnly(t *testing.T) {
	env := newTestEnv(t)

	assert.Contains(t, env.mustRun(t, "mirror", "status"), "local-only")
	_, err := env.run(t, "", "mirror", "push")
	assert.Error(t, err)
}

func TestCharmCommandsNeedCharmDriver(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "", "charm", "status")
	assert.ErrorIs(t, err, errNotCharm)
}

func TestUnknownDriverRejected(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "", "--driver", "mongo", "mirror", "status")
	assert.Error(t, err)
}

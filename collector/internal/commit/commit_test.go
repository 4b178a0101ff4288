package commit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pushEvent = `{
  "ref": "refs/heads/main",
  "head_commit": {
    "id": "5b1f2c3d",
    "message": "Speed up decoder",
    "timestamp": "2024-03-01T10:00:00+01:00",
    "url": "https://github.com/acme/widget/commit/5b1f2c3d",
    "author": {"name": "Ada", "email": "ada@example.com", "username": "ada"},
    "committer": {"name": "GitHub", "email": "noreply@github.com", "username": "web-flow"}
  },
  "repository": {"html_url": "https://github.com/acme/widget"}
}`

func TestParseEvent_Push(t *testing.T) {
	c, err := ParseEvent([]byte(pushEvent))
	require.NoError(t, err)
	assert.Equal(t, "5b1f2c3d", c.ID)
	assert.Equal(t, "ada", c.Author.Username)
	assert.Equal(t, "web-flow", c.Committer.Username)
	assert.Equal(t, "2024-03-01T10:00:00+01:00", c.Timestamp)
}

func TestParseEvent_PullRequest(t *testing.T) {
	raw := `{"pull_request": {"title": "Add cache", "html_url": "https://github.com/acme/widget/pull/7",
	  "updated_at": "2024-03-02T08:00:00Z", "user": {"login": "bob"}, "head": {"sha": "abc123"}}}`
	c, err := ParseEvent([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "abc123", c.ID)
	assert.Equal(t, "Add cache", c.Message)
	assert.Equal(t, "bob", c.Author.Name)
	assert.Equal(t, "https://github.com/acme/widget/pull/7/commits/abc123", c.URL)
}

func TestParseEvent_NoCommit(t *testing.T) {
	_, err := ParseEvent([]byte(`{"action": "opened"}`))
	assert.True(t, errors.Is(err, ErrNoCommit))

	_, err = ParseEvent([]byte(`not json`))
	assert.Error(t, err)
}

func stubGit(t *testing.T, out string, err error) {
	t.Helper()
	orig := gitCommand
	t.Cleanup(func() { gitCommand = orig })
	gitCommand = func(_ context.Context, _ string, args ...string) ([]byte, error) {
		return []byte(out), err
	}
}

func TestFromGit(t *testing.T) {
	stubGit(t, "deadbeef\x1fAda\x1fada@example.com\x1fBob\x1fbob@example.com\x1f2024-03-01T10:00:00+01:00\x1fFix parser\n\nLonger body.\n\n", nil)

	c, err := FromGit(context.Background(), ".", "https://github.com/acme/widget/")
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", c.ID)
	assert.Equal(t, "Ada", c.Author.Name)
	assert.Equal(t, "bob@example.com", c.Committer.Email)
	assert.Equal(t, "Fix parser\n\nLonger body.", c.Message)
	assert.Equal(t, "https://github.com/acme/widget/commit/deadbeef", c.URL)
}

func TestFromGit_BadOutput(t *testing.T) {
	stubGit(t, "garbage", nil)
	_, err := FromGit(context.Background(), ".", "")
	assert.Error(t, err)
}

func TestResolve_PrefersEvent(t *testing.T) {
	stubGit(t, "", errors.New("git should not be called"))
	path := filepath.Join(t.TempDir(), "event.json")
	require.NoError(t, os.WriteFile(path, []byte(pushEvent), 0o644))

	c, err := Resolve(context.Background(), path, ".", "")
	require.NoError(t, err)
	assert.Equal(t, "5b1f2c3d", c.ID)
}

func TestResolve_FallsBackToGit(t *testing.T) {
	stubGit(t, "cafe\x1fA\x1fa@x\x1fC\x1fc@x\x1f2024-01-01T00:00:00Z\x1fmsg\n", nil)
	path := filepath.Join(t.TempDir(), "event.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"action":"created"}`), 0o644))

	c, err := Resolve(context.Background(), path, ".", "")
	require.NoError(t, err)
	assert.Equal(t, "cafe", c.ID)
	assert.Empty(t, c.URL)
}

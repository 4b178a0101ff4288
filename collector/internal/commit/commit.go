// Package commit resolves the commit metadata recorded with each entry, from a
// GitHub webhook/event payload or from the local git checkout.
package commit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/benchboard/benchboard/pkg/types"
)

// ErrNoCommit is returned when an event payload carries no commit.
var ErrNoCommit = errors.New("commit: payload has no head commit or pull request")

// pushEventPayload models just the fields we rely on from a push or
// pull_request event.
type pushEventPayload struct {
	HeadCommit  *pushEventCommit  `json:"head_commit"`
	PullRequest *pullRequestEvent `json:"pull_request"`
	Repository  struct {
		HTMLURL string `json:"html_url"`
	} `json:"repository"`
}

type pushEventCommit struct {
	ID        string      `json:"id"`
	Message   string      `json:"message"`
	Timestamp string      `json:"timestamp"`
	URL       string      `json:"url"`
	Author    eventPerson `json:"author"`
	Committer eventPerson `json:"committer"`
}

type eventPerson struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type pullRequestEvent struct {
	Title     string `json:"title"`
	HTMLURL   string `json:"html_url"`
	UpdatedAt string `json:"updated_at"`
	User      struct {
		Login string `json:"login"`
	} `json:"user"`
	Head struct {
		SHA string `json:"sha"`
	} `json:"head"`
}

// FromEvent reads the event payload at path (GITHUB_EVENT_PATH in Actions).
func FromEvent(path string) (types.Commit, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return types.Commit{}, fmt.Errorf("commit: read event: %w", err)
	}
	return ParseEvent(raw)
}

// ParseEvent extracts the commit from a push or pull_request payload.
func ParseEvent(raw []byte) (types.Commit, error) {
	var p pushEventPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return types.Commit{}, fmt.Errorf("commit: parse event: %w", err)
	}

	if hc := p.HeadCommit; hc != nil && hc.ID != "" {
		return types.Commit{
			Author:    types.Person(hc.Author),
			Committer: types.Person(hc.Committer),
			ID:        hc.ID,
			Message:   hc.Message,
			Timestamp: hc.Timestamp,
			URL:       hc.URL,
		}, nil
	}

	if pr := p.PullRequest; pr != nil && pr.Head.SHA != "" {
		user := types.Person{Name: pr.User.Login, Username: pr.User.Login}
		return types.Commit{
			Author:    user,
			Committer: user,
			ID:        pr.Head.SHA,
			Message:   pr.Title,
			Timestamp: pr.UpdatedAt,
			URL:       pr.HTMLURL + "/commits/" + pr.Head.SHA,
		}, nil
	}

	return types.Commit{}, ErrNoCommit
}

// gitCommand is replaced in tests.
var gitCommand = func(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...)
	return cmd.Output()
}

// Fields are separated by the ASCII unit separator; the body comes last since
// it may span lines.
const gitLogFormat = "--format=%H%x1f%an%x1f%ae%x1f%cn%x1f%ce%x1f%cI%x1f%B"

// FromGit reads HEAD of the checkout at dir. repoURL, when set, is used to
// build the commit URL.
func FromGit(ctx context.Context, dir, repoURL string) (types.Commit, error) {
	out, err := gitCommand(ctx, dir, "log", "-1", gitLogFormat)
	if err != nil {
		return types.Commit{}, fmt.Errorf("commit: git log: %w", err)
	}
	return parseGitLog(string(out), repoURL)
}

func parseGitLog(out, repoURL string) (types.Commit, error) {
	parts := strings.SplitN(out, "\x1f", 7)
	if len(parts) < 7 {
		return types.Commit{}, fmt.Errorf("commit: unexpected git log output %q", out)
	}
	c := types.Commit{
		Author:    types.Person{Name: parts[1], Email: parts[2]},
		Committer: types.Person{Name: parts[3], Email: parts[4]},
		ID:        strings.TrimSpace(parts[0]),
		Message:   strings.TrimRight(parts[6], "\n"),
		Timestamp: parts[5],
	}
	if repoURL != "" {
		c.URL = strings.TrimSuffix(repoURL, "/") + "/commit/" + c.ID
	}
	return c, nil
}

// Resolve prefers the event payload at eventPath and falls back to git.
func Resolve(ctx context.Context, eventPath, dir, repoURL string) (types.Commit, error) {
	if eventPath != "" {
		c, err := FromEvent(eventPath)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, ErrNoCommit) {
			return types.Commit{}, err
		}
	}
	return FromGit(ctx, dir, repoURL)
}

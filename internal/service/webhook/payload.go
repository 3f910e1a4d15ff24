package webhook

import (
	"encoding/json"
	"strings"
)

const branchRefPrefix = "refs/heads/"

// pushEvent mirrors the subset of the GitHub push payload the intake
// acts on.
type pushEvent struct {
	Ref        string `json:"ref"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
	HeadCommit struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	} `json:"head_commit"`
}

// PushCommit is the validated result of normalizing a push event. All
// fields are non-empty.
type PushCommit struct {
	RepositoryFullName string
	Branch             string
	CommitHash         string
	CommitMessage      string
}

// NormalizePush validates the event type and extracts the commit
// coordinates from a raw push payload.
func NormalizePush(eventType string, body []byte) (PushCommit, error) {
	if eventType != "push" {
		return PushCommit{}, ErrUnsupportedEvent
	}

	var event pushEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return PushCommit{}, ErrInvalidPayload
	}

	commit := PushCommit{
		RepositoryFullName: strings.TrimSpace(event.Repository.FullName),
		Branch:             strings.TrimPrefix(strings.TrimSpace(event.Ref), branchRefPrefix),
		CommitHash:         strings.TrimSpace(event.HeadCommit.ID),
		CommitMessage:      strings.TrimSpace(event.HeadCommit.Message),
	}
	if commit.RepositoryFullName == "" || commit.Branch == "" ||
		commit.CommitHash == "" || commit.CommitMessage == "" {
		return PushCommit{}, ErrInvalidPayload
	}
	return commit, nil
}

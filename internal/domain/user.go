package domain

import "time"

// User is a platform account backed by a GitHub identity.
type User struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	GitHubID    string    `json:"github_id"`
	AvatarURL   string    `json:"avatar_url"`
	AccessToken []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserUpdate carries the fields refreshed on every OAuth login.
type UserUpdate struct {
	AvatarURL   string
	AccessToken []byte
}

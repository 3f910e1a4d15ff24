package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	gh "github.com/google/go-github/github"
	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"

	"github.com/autoflow-dev/autoflow/internal/domain"
	"github.com/autoflow-dev/autoflow/internal/repository"
	"github.com/autoflow-dev/autoflow/pkg/config"
	"github.com/autoflow-dev/autoflow/pkg/crypto"
	"github.com/autoflow-dev/autoflow/pkg/jwt"
)

// ErrUnauthorized is returned for missing or invalid session tokens.
var ErrUnauthorized = errors.New("auth: unauthorized")

// Service signs users in through GitHub OAuth and issues JWT sessions.
// GitHub access tokens are stored encrypted and only decrypted when an
// API call on the user's behalf needs one.
type Service struct {
	users  repository.UserRepository
	oauth  *oauth2.Config
	cfg    config.APIConfig
	logger *slog.Logger
}

func New(users repository.UserRepository, cfg config.APIConfig, logger *slog.Logger) Service {
	return Service{
		users: users,
		oauth: &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  cfg.GitHubRedirectURL,
			Scopes:       []string{"user:email", "repo", "workflow"},
			Endpoint:     githuboauth.Endpoint,
		},
		cfg:    cfg,
		logger: logger,
	}
}

// AuthURL builds the GitHub authorization redirect for a login attempt.
func (s Service) AuthURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

// HandleCallback exchanges the OAuth code, upserts the user record and
// returns the user with a signed session token.
func (s Service) HandleCallback(ctx context.Context, code string) (*domain.User, string, error) {
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("auth: code exchange: %w", err)
	}

	client := gh.NewClient(oauth2.NewClient(ctx, oauth2.StaticTokenSource(token)))
	ghUser, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return nil, "", fmt.Errorf("auth: fetch github user: %w", err)
	}

	encrypted, err := crypto.EncryptString(s.cfg.TokenEncryptionKey, token.AccessToken)
	if err != nil {
		return nil, "", fmt.Errorf("auth: encrypt access token: %w", err)
	}

	githubID := strconv.FormatInt(ghUser.GetID(), 10)
	user, err := s.users.GetUserByGitHubID(ctx, githubID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		email := ghUser.GetEmail()
		if email == "" {
			email = ghUser.GetLogin() + "@users.noreply.github.com"
		}
		user = &domain.User{
			Username:    ghUser.GetLogin(),
			Email:       email,
			GitHubID:    githubID,
			AvatarURL:   ghUser.GetAvatarURL(),
			AccessToken: encrypted,
		}
		if err := s.users.CreateUser(ctx, user); err != nil {
			return nil, "", fmt.Errorf("auth: create user: %w", err)
		}
		s.logger.Info("user registered", slog.String("username", user.Username))
	case err != nil:
		return nil, "", err
	default:
		user, err = s.users.UpdateUser(ctx, user.ID, domain.UserUpdate{
			AvatarURL:   ghUser.GetAvatarURL(),
			AccessToken: encrypted,
		})
		if err != nil {
			return nil, "", fmt.Errorf("auth: refresh user: %w", err)
		}
	}

	session, err := jwt.GenerateToken(user.ID, s.cfg.SessionSecret, s.cfg.SessionTokenTTL)
	if err != nil {
		return nil, "", err
	}
	return user, session, nil
}

// Authorize validates a session token and loads its user.
func (s Service) Authorize(ctx context.Context, tokenString string) (*domain.User, error) {
	if tokenString == "" {
		return nil, ErrUnauthorized
	}
	claims, err := jwt.Parse(tokenString, s.cfg.SessionSecret)
	if err != nil {
		return nil, ErrUnauthorized
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	return user, err
}

// AccessToken decrypts a user's stored GitHub token.
func (s Service) AccessToken(user *domain.User) (string, error) {
	if len(user.AccessToken) == 0 {
		return "", ErrUnauthorized
	}
	return crypto.DecryptString(s.cfg.TokenEncryptionKey, user.AccessToken)
}

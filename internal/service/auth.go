package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"abisal/client/internal/api"
	"abisal/client/internal/session"
)

// AuthService drives the login/register/logout flows against the backend
// and hands accepted tokens to the session store. It never writes session
// fields itself.
type AuthService struct {
	client  *api.Client
	session *session.Store
	log     zerolog.Logger
}

func NewAuthService(client *api.Client, sess *session.Store, log zerolog.Logger) *AuthService {
	return &AuthService{
		client:  client,
		session: sess,
		log:     log,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

func (s *AuthService) Login(ctx context.Context, email, password string) (session.Identity, error) {
	var resp tokenResponse
	if err := s.client.Post(ctx, "/auth/login", loginRequest{Email: email, Password: password}, &resp); err != nil {
		return session.Identity{}, err
	}

	if err := s.session.Login(ctx, resp.Token); err != nil {
		return session.Identity{}, fmt.Errorf("adopt issued token: %w", err)
	}

	user, _ := s.session.CurrentUser()
	return user, nil
}

func (s *AuthService) Register(ctx context.Context, username, email, password string) (session.Identity, error) {
	req := registerRequest{Username: username, Email: email, Password: password}

	var resp tokenResponse
	if err := s.client.Post(ctx, "/auth/register", req, &resp); err != nil {
		return session.Identity{}, err
	}

	if err := s.session.Login(ctx, resp.Token); err != nil {
		return session.Identity{}, fmt.Errorf("adopt issued token: %w", err)
	}

	user, _ := s.session.CurrentUser()
	return user, nil
}

// Logout is client-side only; the server holds no session to invalidate.
func (s *AuthService) Logout(ctx context.Context) error {
	return s.session.Logout(ctx)
}

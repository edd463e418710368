package service

import (
	"context"

	"abisal/client/internal/api"
)

type UsersService struct {
	client *api.Client
}

func NewUsersService(client *api.Client) *UsersService {
	return &UsersService{client: client}
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// UsernameByID resolves an article author's display name.
func (s *UsersService) UsernameByID(ctx context.Context, id string) (string, error) {
	var resp userResponse
	if err := s.client.Get(ctx, "/user/"+id, &resp); err != nil {
		return "", err
	}
	if resp.Username != "" {
		return resp.Username, nil
	}
	return resp.Name, nil
}

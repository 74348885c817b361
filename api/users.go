package api

import (
	"context"

	"github.com/jmcleod/adconsole/gateway"
)

// UserService manages console users.
type UserService struct {
	gw *gateway.Gateway
}

func (s *UserService) List(ctx context.Context, params ListParams) (*Page[User], error) {
	return list[User](ctx, s.gw, v1+"/users", params)
}

func (s *UserService) Get(ctx context.Context, id int64) (*User, error) {
	return getOne[User](ctx, s.gw, itemPath("users", id), nil, "user")
}

func (s *UserService) Create(ctx context.Context, in UserInput) (*User, error) {
	return postOne[User](ctx, s.gw, v1+"/users", in, "user")
}

func (s *UserService) Update(ctx context.Context, id int64, in UserInput) (*User, error) {
	in.Password = ""
	return putOne[User](ctx, s.gw, itemPath("users", id), in, "user")
}

func (s *UserService) ChangePassword(ctx context.Context, id int64, change PasswordChange) error {
	return s.gw.Put(ctx, itemPath("users", id, "password"), change, nil)
}

// Roles lists the assignable roles.
func (s *UserService) Roles(ctx context.Context) ([]Role, error) {
	var out struct {
		Roles []Role `json:"roles"`
	}
	if err := s.gw.Get(ctx, v1+"/users/roles", nil, &out); err != nil {
		return nil, err
	}
	return out.Roles, nil
}

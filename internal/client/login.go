package client

import (
	"context"
	"net/http"
	"strings"

	"github.com/musickatta/katta-admin/internal/models"
	"github.com/musickatta/katta-admin/internal/session"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AdminID   models.ID `json:"adminId"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Phone     string    `json:"phone"`
}

// LoginAdmin authenticates with email and password and returns the admin session to
// store. The role defaults to ADMIN when the login service omits it.
func (c *Client) LoginAdmin(ctx context.Context, email, password string) (*session.AdminSession, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, &models.ValidationError{Message: "Please enter your email and password.", Fields: []string{"email", "password"}}
	}

	body, err := jsonBody(loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	var resp loginResponse
	err = c.do(ctx, call{
		op:          "login_admin",
		method:      http.MethodPost,
		path:        "/login-admin",
		body:        body,
		contentType: "application/json",
		fallback:    "Login failed",
		jsonMessage: true,
	}, &resp)
	if err != nil {
		return nil, err
	}

	s := &session.AdminSession{
		AdminID:    resp.AdminID,
		FirstName:  resp.FirstName,
		LastName:   resp.LastName,
		Email:      resp.Email,
		Role:       resp.Role,
		Phone:      resp.Phone,
		IsLoggedIn: true,
	}
	if s.Email == "" {
		s.Email = email
	}
	if s.Role == "" {
		s.Role = session.RoleAdmin
	}
	return s, nil
}

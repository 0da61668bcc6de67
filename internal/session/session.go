// Package session holds the logged-in principal of the admin dashboard.
//
// A session record is either an AdminSession (email/password login against the login
// service) or an OAuthUserSession (delegated login callback). Records are validated when
// they cross the storage boundary; anything that fails to decode is treated as no session.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/musickatta/katta-admin/internal/models"
)

// Kind discriminates the stored session record.
type Kind string

const (
	KindAdmin Kind = "admin"
	KindOAuth Kind = "oauth"
)

// Roles issued by the login service.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// ErrMalformed is returned by Unmarshal for payloads that are not a valid session record.
var ErrMalformed = errors.New("malformed session record")

// Principal is the identity view shared by both session kinds.
type Principal struct {
	ID             string
	FirstName      string
	LastName       string
	Username       string
	Email          string
	Phone          string
	Role           string
	ProfilePicture string
}

// DisplayName is the full name, falling back to the username or email.
func (p Principal) DisplayName() string {
	if name := strings.TrimSpace(p.FirstName + " " + p.LastName); name != "" {
		return name
	}
	if p.Username != "" {
		return p.Username
	}
	return p.Email
}

// Session is the stored login record.
type Session interface {
	Kind() Kind
	Principal() Principal
	// LoggedIn reports the record's login flag. A stored record is not valid by itself.
	LoggedIn() bool
	// AccessToken is the bearer token for delegated calls, empty when there is none.
	AccessToken() string
}

// AdminSession is created by the email/password admin login.
type AdminSession struct {
	AdminID    models.ID `json:"adminId"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Email      string    `json:"email" validate:"required"`
	Role       string    `json:"role"`
	Phone      string    `json:"phone"`
	IsLoggedIn bool      `json:"isLoggedIn"`
}

func (s *AdminSession) Kind() Kind          { return KindAdmin }
func (s *AdminSession) LoggedIn() bool      { return s.IsLoggedIn }
func (s *AdminSession) AccessToken() string { return "" }

func (s *AdminSession) Principal() Principal {
	return Principal{
		ID:        string(s.AdminID),
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Email:     s.Email,
		Phone:     s.Phone,
		Role:      s.Role,
	}
}

// OAuthUserSession is created by the delegated login callback.
type OAuthUserSession struct {
	UserID         models.ID `json:"userId" validate:"required"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	MobileNo       string    `json:"mobileNo"`
	Role           string    `json:"role"`
	ProfilePicture string    `json:"profilePicture" validate:"omitempty,url"`
	Token          string    `json:"accessToken,omitempty"`
	IsLoggedIn     bool      `json:"isLoggedIn"`
}

func (s *OAuthUserSession) Kind() Kind          { return KindOAuth }
func (s *OAuthUserSession) LoggedIn() bool      { return s.IsLoggedIn }
func (s *OAuthUserSession) AccessToken() string { return s.Token }

func (s *OAuthUserSession) Principal() Principal {
	return Principal{
		ID:             string(s.UserID),
		FirstName:      s.FirstName,
		LastName:       s.LastName,
		Username:       s.Username,
		Email:          s.Email,
		Phone:          s.MobileNo,
		Role:           s.Role,
		ProfilePicture: s.ProfilePicture,
	}
}

type envelope struct {
	Kind  Kind              `json:"kind"`
	Admin *AdminSession     `json:"admin,omitempty"`
	User  *OAuthUserSession `json:"user,omitempty"`
}

// Marshal serializes a session record with its kind tag.
func Marshal(s Session) ([]byte, error) {
	var env envelope
	switch rec := s.(type) {
	case *AdminSession:
		env = envelope{Kind: KindAdmin, Admin: rec}
	case *OAuthUserSession:
		env = envelope{Kind: KindOAuth, User: rec}
	default:
		return nil, fmt.Errorf("unsupported session type %T", s)
	}
	return json.Marshal(env)
}

// Unmarshal decodes and validates a serialized record. Every failure wraps ErrMalformed.
func Unmarshal(data []byte) (Session, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var s Session
	switch env.Kind {
	case KindAdmin:
		if env.Admin == nil || env.User != nil {
			return nil, fmt.Errorf("%w: admin payload missing", ErrMalformed)
		}
		s = env.Admin
	case KindOAuth:
		if env.User == nil || env.Admin != nil {
			return nil, fmt.Errorf("%w: user payload missing", ErrMalformed)
		}
		s = env.User
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformed, env.Kind)
	}

	if err := models.Validator().Struct(s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return s, nil
}

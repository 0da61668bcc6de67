package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// Cookie names used by the web dashboard.
const (
	CookieName       = "_katta_session"
	UserIDCookieName = "userId"
)

const issuer = "katta-admin"

// CookieStore keeps the session record in the browser as a signed HS256 token.
// It is bound to a single request with ForRequest.
type CookieStore struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Record json.RawMessage `json:"rec"`
}

// NewCookieStore creates a cookie backed store signing with secret.
func NewCookieStore(secret []byte, ttl time.Duration, secure bool) (*CookieStore, error) {
	if len(secret) < 32 {
		return nil, errors.New("session secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		return nil, errors.New("session TTL must be greater than 0")
	}
	return &CookieStore{secret: secret, ttl: ttl, secure: secure, now: time.Now}, nil
}

// ForRequest returns a Store reading from r and writing cookies to w.
func (c *CookieStore) ForRequest(w http.ResponseWriter, r *http.Request) Store {
	return &requestStore{cookies: c, w: w, r: r}
}

func (c *CookieStore) sign(s Session) (string, error) {
	data, err := Marshal(s)
	if err != nil {
		return "", err
	}

	now := c.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   s.Principal().ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		Record: data,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

func (c *CookieStore) verify(token string) ([]byte, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, err
	}
	return claims.Record, nil
}

func (c *CookieStore) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

type requestStore struct {
	cookies *CookieStore
	w       http.ResponseWriter
	r       *http.Request

	// loaded is set once the record was read, saved or cleared; later reads in the
	// same request see that state rather than the incoming cookie.
	loaded  bool
	current Session
}

func (s *requestStore) Get(ctx context.Context) (Session, error) {
	if s.loaded {
		return s.current, nil
	}

	cookie, err := s.r.Cookie(CookieName)
	if err != nil {
		return nil, nil
	}

	data, err := s.cookies.verify(cookie.Value)
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("session token rejected")
		recordCleared(ctx, "invalid_token")
		return nil, s.Clear(ctx)
	}

	sess, err := decodeOrClear(ctx, data, func() error { return s.Clear(ctx) })
	if err != nil || sess == nil {
		return nil, err
	}
	s.loaded, s.current = true, sess
	return sess, nil
}

func (s *requestStore) Save(ctx context.Context, sess Session) error {
	token, err := s.cookies.sign(sess)
	if err != nil {
		return err
	}

	maxAge := int(s.cookies.ttl.Seconds())
	http.SetCookie(s.w, s.cookies.cookie(CookieName, token, maxAge))
	if id := auxUserID(sess); id != "" {
		http.SetCookie(s.w, s.cookies.cookie(UserIDCookieName, id, maxAge))
	} else {
		http.SetCookie(s.w, s.cookies.cookie(UserIDCookieName, "", -1))
	}

	s.loaded, s.current = true, sess
	log.Ctx(ctx).Debug().Str("kind", string(sess.Kind())).Msg("session cookie issued")
	return nil
}

func (s *requestStore) Clear(ctx context.Context) error {
	http.SetCookie(s.w, s.cookies.cookie(CookieName, "", -1))
	http.SetCookie(s.w, s.cookies.cookie(UserIDCookieName, "", -1))
	s.loaded, s.current = true, nil
	return nil
}

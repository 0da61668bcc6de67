package commands

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/musickatta/katta-admin/internal/guard"
	"github.com/musickatta/katta-admin/internal/login"
	"github.com/musickatta/katta-admin/internal/session"
	"github.com/rs/zerolog/log"
)

type LoginCmd struct {
	Email    string `help:"admin email" env:"KATTA_EMAIL" xor:"method"`
	Password string `help:"admin password" env:"KATTA_PASSWORD"`
	Callback string `help:"delegated login callback URL to store as the session" xor:"method"`
}

func (l *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	var (
		s   session.Session
		err error
	)
	if l.Callback != "" {
		s, err = l.fromCallback()
	} else {
		s, err = globals.client().LoginAdmin(ctx, l.Email, l.Password)
	}
	if err != nil {
		return userError(err)
	}

	if err := globals.store().Save(ctx, s); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	session.RecordLogin(ctx, s)

	log.Ctx(ctx).Debug().Str("kind", string(s.Kind())).Msg("session stored")
	globals.printf("Successfully logged in as %s (%s)\n", s.Principal().DisplayName(), s.Principal().Role)
	return nil
}

func (l *LoginCmd) fromCallback() (session.Session, error) {
	u, err := url.Parse(l.Callback)
	if err != nil {
		return nil, fmt.Errorf("invalid callback URL: %w", err)
	}
	user, err := login.ParseCallback(u.Query())
	if errors.Is(err, login.ErrNoCallback) {
		return nil, errors.New("the callback URL carries no login result")
	}
	return user, err
}

type LogoutCmd struct{}

func (l *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	if err := globals.store().Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	globals.printf("Logged out\n")
	return nil
}

type WhoamiCmd struct{}

func (w *WhoamiCmd) Run(ctx context.Context, globals *Globals) error {
	s, err := guard.Check(ctx, globals.store(), session.RequireLogin)
	if err != nil {
		globals.printf("Not logged in\n")
		return nil
	}

	p := s.Principal()
	tw := globals.table()
	fmt.Fprintf(tw, "Name:\t%s\n", p.DisplayName())
	fmt.Fprintf(tw, "Email:\t%s\n", p.Email)
	fmt.Fprintf(tw, "Role:\t%s\n", p.Role)
	fmt.Fprintf(tw, "ID:\t%s\n", p.ID)
	fmt.Fprintf(tw, "Login:\t%s\n", s.Kind())
	return tw.Flush()
}

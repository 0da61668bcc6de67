package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/musickatta/katta-admin/internal/client"
	"github.com/musickatta/katta-admin/internal/guard"
	"github.com/musickatta/katta-admin/internal/session"
)

type Globals struct {
	Debug      bool
	Version    string
	BackendURL string
	// SessionDir holds the stored session; empty means ~/.musickatta.
	SessionDir string
	Out        io.Writer
}

func (g *Globals) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

func (g *Globals) table() *tabwriter.Writer {
	return tabwriter.NewWriter(g.out(), 0, 0, 2, ' ', 0)
}

func (g *Globals) printf(format string, args ...any) {
	fmt.Fprintf(g.out(), format, args...)
}

func (g *Globals) store() session.Store {
	return session.OpenFileStore(g.SessionDir)
}

func (g *Globals) client() *client.Client {
	return client.New(client.Config{BaseURL: g.BackendURL})
}

// authorize checks the stored session against policy before any backend call and
// returns a client acting for it.
func (g *Globals) authorize(ctx context.Context, policy session.Policy) (session.Session, *client.Client, error) {
	s, err := guard.Check(ctx, g.store(), policy)
	if err != nil {
		return nil, nil, fmt.Errorf("%w (run \"katta-admin login\")", err)
	}
	return s, g.client().WithAccessToken(s.AccessToken()), nil
}

// bannerError reports err with the text the dashboard would show for it.
type bannerError struct {
	err error
}

func (e *bannerError) Error() string { return client.ErrorBanner(e.err).Text }
func (e *bannerError) Unwrap() error { return e.err }

func userError(err error) error {
	if err == nil {
		return nil
	}
	return &bannerError{err: err}
}

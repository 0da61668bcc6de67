package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"filippo.io/csrf"
	"github.com/klauspost/compress/gzhttp"
	"github.com/musickatta/katta-admin/internal/assets"
	"github.com/musickatta/katta-admin/internal/client"
	"github.com/musickatta/katta-admin/internal/guard"
	httpmiddleware "github.com/musickatta/katta-admin/internal/http"
	"github.com/musickatta/katta-admin/internal/logger"
	"github.com/musickatta/katta-admin/internal/login"
	"github.com/musickatta/katta-admin/internal/session"
	"github.com/musickatta/katta-admin/internal/telemetry"
	"github.com/musickatta/katta-admin/internal/website"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type WebsiteCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"KATTA_LISTEN"`
	Cert   string `help:"path to TLS cert file, plain HTTP when empty" default:"" env:"KATTA_TLS_CERT"`
	Key    string `help:"path to TLS key file, plain HTTP when empty" default:"" env:"KATTA_TLS_KEY"`

	// Backend configuration
	BackendURL string `help:"base URL of the course, video and login services" default:"http://localhost:8085" env:"KATTA_BACKEND_URL"`

	// Session configuration
	SessionSecret string        `help:"secret used to sign session cookies, at least 32 bytes" required:"" env:"KATTA_SESSION_SECRET"`
	SessionTTL    time.Duration `help:"session TTL" default:"24h" env:"KATTA_SESSION_TTL"`
	SecureCookies string        `help:"mark session cookies Secure: auto (only with TLS), always or never" enum:"auto,always,never" default:"auto" env:"KATTA_SECURE_COOKIES"`

	// Assets
	Scripts   bool   `help:"bundle and serve page scripts" default:"true" negatable:"" env:"KATTA_SCRIPTS"`
	PublicDir string `help:"directory the page scripts are built into" default:"public" env:"KATTA_PUBLIC_DIR"`

	Tracing bool `help:"enable tracing" default:"false" env:"KATTA_TRACING"`
}

// secureCookies resolves --secure-cookies; auto marks cookies Secure when serving TLS.
func (c *WebsiteCmd) secureCookies() bool {
	switch c.SecureCookies {
	case "always":
		return true
	case "never":
		return false
	default:
		return c.Cert != ""
	}
}

func (c *WebsiteCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
	}
	shutdown := telemetry.Start(ctx, c.Tracing, "katta-server", globals.Version)
	defer telemetry.Stop(shutdown)

	secure := c.secureCookies()
	if secure && c.Cert == "" {
		log.Warn().Msg("Secure session cookies over plain HTTP are only kept by browsers on localhost or behind a TLS proxy")
	}
	cookies, err := session.NewCookieStore([]byte(c.SessionSecret), c.SessionTTL, secure)
	if err != nil {
		return fmt.Errorf("failed to configure session cookies: %w", err)
	}

	// Build assets for UI
	cfg := assets.DefaultConfig()
	cfg.OutputDir = c.PublicDir
	cfg.MetafilePath = c.PublicDir + "/meta.json"
	cfg.Minify = !globals.Debug
	pipeline, err := assets.New(cfg, website.Templates())
	if err != nil {
		return fmt.Errorf("failed to load assets pipeline: %w", err)
	}
	if c.Scripts {
		if err = pipeline.Build(); err != nil {
			return fmt.Errorf("failed to build js assets: %w", err)
		}
	}

	backend := client.New(client.Config{BaseURL: c.BackendURL, Logger: &log})
	g := guard.New(cookies.ForRequest, login.LoginURL)

	mux := http.NewServeMux()

	// Serve static assets
	mux.Handle("/public/", http.StripPrefix("/public/", http.FileServer(http.Dir(c.PublicDir))))

	login.New(backend, pipeline, cookies.ForRequest, backend.BaseURL()).Register(mux)

	backends := func(s session.Session) website.Backend {
		return backend.WithAccessToken(s.AccessToken())
	}
	website.New(backends, pipeline, g, c.Scripts).Register(mux)

	mux.Handle("GET /{$}", http.RedirectHandler(login.DashboardURL, http.StatusFound))

	// CSRF protection for the dashboard forms
	protection := csrf.New()

	handler := httpmiddleware.RequestLogger(log)(
		otelhttp.NewHandler(
			gzhttp.GzipHandler(protection.Handler(mux)),
			"katta-server",
		),
	)

	srv := configureHTTPServer(c.Listen, handler)

	errCh := make(chan error, 1)
	go func() {
		if c.Cert != "" && c.Key != "" {
			log.Info().Str("addr", c.Listen).Str("backend", backend.BaseURL()).Msg("Starting HTTPS server")
			errCh <- srv.ListenAndServeTLS(c.Cert, c.Key)
			return
		}
		log.Info().Str("addr", c.Listen).Str("backend", backend.BaseURL()).Msg("Starting HTTP server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	log.Info().Msg("Server stopped")
	return nil
}

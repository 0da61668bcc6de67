package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/musickatta/katta-admin/cmd/cli/internal/commands"
	"github.com/musickatta/katta-admin/internal/logger"
	"github.com/musickatta/katta-admin/internal/telemetry"
)

var (
	version = "dev"
	cli     struct {
		Login    commands.LoginCmd    `cmd:"" help:"Log in as an admin or store a delegated login"`
		Logout   commands.LogoutCmd   `cmd:"" help:"Forget the stored session"`
		Whoami   commands.WhoamiCmd   `cmd:"" help:"Show the logged in user"`
		Courses  commands.CoursesCmd  `cmd:"" help:"Manage courses"`
		Videos   commands.VideosCmd   `cmd:"" help:"Manage course videos"`
		Playlist commands.PlaylistCmd `cmd:"" help:"Show the play order of a course"`

		BackendURL string `help:"base URL of the course, video and login services" default:"http://localhost:8085" env:"KATTA_BACKEND_URL"`
		SessionDir string `help:"directory holding the stored session" default:"" env:"KATTA_SESSION_DIR"`
		Tracing    bool   `help:"enable tracing" default:"false" env:"KATTA_TRACING"`
		Debug      bool   `help:"Enable debug mode."`
		Version    kong.VersionFlag
	}
)

func main() {
	// A missing .env is fine; the environment and flags still apply.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("katta-admin"),
		kong.Description("Music Katta admin command line."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	logger.Setup(cli.Debug)
	shutdown := telemetry.Start(ctx, cli.Tracing, "katta-admin", version)

	err := cmd.Run(&commands.Globals{
		Debug:      cli.Debug,
		Version:    version,
		BackendURL: cli.BackendURL,
		SessionDir: cli.SessionDir,
	})
	telemetry.Stop(shutdown)
	cmd.FatalIfErrorf(err)
}

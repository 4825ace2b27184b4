package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/waystation/internal"
	pkgconfig "github.com/starford/waystation/pkg/config"
)

var version = "dev"

// action is a command body that runs against an opened application.
type action func(ctx context.Context, cmd *cli.Command, app *internal.App) error

// withApp loads the configuration, opens the application for the duration
// of fn and closes it afterwards.
func withApp(fn action) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd.String("config"))
		if err != nil {
			return err
		}
		app, err := internal.Open(ctx,
			internal.WithConfig(cfg),
			internal.WithLogOutput(cmd.Root().ErrWriter),
		)
		if err != nil {
			return fmt.Errorf("app open error: %w", err)
		}
		defer app.Close()
		return fn(ctx, cmd, app)
	}
}

func loadConfig(path string) (*internal.Config, error) {
	path, err := pkgconfig.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:    "waystation",
		Usage:   "Bookmark places in code as marks grouped into Waystations",
		Version: version,
		Action:  withApp(showCurrent),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "~/.waystation/config.yaml",
				Value:       "~/.waystation/config.yaml",
				Sources:     cli.EnvVars("WAYSTATION_CONFIG_FILE"),
			},
			jsonFlag("Print the current Waystation as JSON"),
		},
		Commands: commands(),
	}
}

func main() {
	if err := newRootCommand().Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

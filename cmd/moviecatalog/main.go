// cmd/moviecatalog/main.go
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"movie-catalog/internal/clients"
	"movie-catalog/internal/config"
	"movie-catalog/internal/logging"
	"movie-catalog/pkg/auth"
)

// Build information, set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "moviecatalog:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "moviecatalog",
		Usage:   "Movie catalog HTTP and gRPC service",
		Version: fmt.Sprintf("%s (commit: %s)", Version, Commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{"MOVIES_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			tokenCommand(),
			queryCommand(),
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(os.Stdout, cfg.Log.Level)
	return cfg, logger, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API and the gRPC query service",
		Action: func(c *cli.Context) error {
			cfg, logger, err := loadConfig(c)
			if err != nil {
				return err
			}
			return serve(c.Context, cfg, logger)
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Print a bearer token signed with the configured secret",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Usage: "Identity to put in the email claim (defaults to the admin email)"},
		},
		Action: func(c *cli.Context) error {
			cfg, _, err := loadConfig(c)
			if err != nil {
				return err
			}
			tm, err := newTokenManager(cfg)
			if err != nil {
				return err
			}
			email := c.String("email")
			if email == "" {
				email = cfg.Admin.Email
			}
			token, err := tm.Generate(email)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, token)
			return nil
		},
	}
}

func queryCommand() *cli.Command {
	return &cli.Command{
		Name:  "query",
		Usage: "Look up movies through a running gRPC query service",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: "localhost:9000", Usage: "gRPC address of the catalog service"},
			&cli.IntFlag{Name: "id", Usage: "Movie id to fetch"},
			&cli.StringFlag{Name: "category", Usage: "Category to list"},
		},
		Action: func(c *cli.Context) error {
			if !c.IsSet("id") && !c.IsSet("category") {
				return errors.New("one of --id or --category is required")
			}
			logger := logging.New(os.Stderr, "warn")
			client, err := clients.NewCatalogQueryClient(c.String("addr"), logger)
			if err != nil {
				return err
			}
			defer client.Close()

			var result any
			if c.IsSet("id") {
				movie, found, err := client.GetMovie(c.Context, c.Int("id"))
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("movie %d not found", c.Int("id"))
				}
				result = movie
			} else {
				movies, err := client.ListByCategory(c.Context, c.String("category"))
				if err != nil {
					return err
				}
				result = movies
			}

			enc := json.NewEncoder(c.App.Writer)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}

func newTokenManager(cfg *config.Config) (auth.TokenManager, error) {
	return auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.Algorithm, cfg.Auth.TokenDuration, auth.WithIssuer(cfg.Auth.Issuer))
}

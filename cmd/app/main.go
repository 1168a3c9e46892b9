package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/notekeep/internal"
	pkgconfig "github.com/starford/notekeep/pkg/config"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}
}

func loadOptions(cmd *cli.Command) ([]internal.Option, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return []internal.Option{internal.WithConfig(cfg)}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, opts...); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}
	return nil
}

func importDir(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.Args().First()
	if dir == "" {
		return fmt.Errorf("usage: %s import <dir>", cmd.Root().Name)
	}
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	report, err := internal.RunImport(ctx, dir, opts...)
	if err != nil {
		return fmt.Errorf("import error: %w", err)
	}
	fmt.Fprintf(cmd.Root().Writer, "imported %d notes, skipped %d\n", report.Imported, len(report.Skipped))
	for _, name := range report.Categories {
		fmt.Fprintf(cmd.Root().Writer, "created category %s\n", name)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "notekeep",
		Usage:  "Personal notes service with categories, search and a pluggable key-value store",
		Action: serve,
		Flags:  []cli.Flag{configFlag()},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and event stream (default)",
				Flags:  []cli.Flag{configFlag()},
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Flags:  []cli.Flag{configFlag()},
				Action: serveMCP,
			},
			{
				Name:      "import",
				Usage:     "Import Markdown files as notes of the logged-in user",
				ArgsUsage: "<dir>",
				Flags:     []cli.Flag{configFlag()},
				Action:    importDir,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

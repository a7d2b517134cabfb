// Package cli defines the batchreview command grammar.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jh125486/batchreview/pkg/cli"
	"github.com/jh125486/batchreview/pkg/contextlog"
	"github.com/jh125486/batchreview/pkg/openai"
	"github.com/jh125486/batchreview/pkg/server"
	"github.com/jh125486/batchreview/pkg/storage"
)

type (
	// CLI defines the command-line interface structure for batchreview.
	CLI struct {
		cli.BaseCLI `embed:""`

		Serve  ServeCmd  `cmd:"" help:"Run the review server"`
		Review ReviewCmd `cmd:"" help:"Show the review screen of a batch"`
		Score  ScoreCmd  `cmd:"" help:"Draft the score of the selected submission"`
		Grade  GradeCmd  `cmd:"" help:"Grade the selected submission"`
	}

	// ServeCmd runs the review server.
	//
	//nolint:lll // Long struct tags
	ServeCmd struct {
		Port           string `default:"8080"              env:"PORT"                                  help:"Port to listen on" name:"port"`
		DatabaseURL    string `env:"DATABASE_URL"          help:"PostgreSQL database URL"              name:"database-url"`
		Snapshot       string `env:"SNAPSHOT_PATH"         help:"Serve a local YAML snapshot file"     name:"snapshot"`
		Seed           string `env:"SEED_PATH"             help:"YAML snapshot imported at startup"    name:"seed"              type:"existingfile"`
		R2Endpoint     string `env:"R2_ENDPOINT"           help:"R2/S3 endpoint URL"                   name:"r2-endpoint"`
		R2Region       string `default:"auto"              env:"AWS_REGION"                            help:"AWS region"        name:"r2-region"`
		R2Bucket       string `env:"R2_BUCKET"             help:"R2/S3 bucket name"                    name:"r2-bucket"`
		R2AccessKey    string `env:"AWS_ACCESS_KEY_ID"     help:"AWS access key ID"                    name:"r2-access-key"`
		R2SecretKey    string `env:"AWS_SECRET_ACCESS_KEY" help:"AWS secret access key"                name:"r2-secret-key"`
		R2UsePathStyle bool   `env:"USE_PATH_STYLE"        help:"Use path-style S3 URLs"               name:"r2-path-style"`
		OpenAIAPIKey   string `env:"OPENAI_API_KEY"        help:"OpenAI API key for drafting remarks"  name:"openai-api-key"`
	}
)

// NewStorage opens the configured backend: PostgreSQL when a database URL is
// set, a snapshot file when a path is set, R2 otherwise.
func (cmd *ServeCmd) NewStorage(ctx context.Context) (storage.Storage, error) {
	switch {
	case cmd.DatabaseURL != "":
		return storage.NewSQLStorage(ctx, cmd.DatabaseURL)
	case cmd.Snapshot != "":
		return storage.NewFileStorage(ctx, cmd.Snapshot)
	default:
		return storage.NewR2Storage(ctx, &storage.R2Config{
			Endpoint:        cmd.R2Endpoint,
			Region:          cmd.R2Region,
			Bucket:          cmd.R2Bucket,
			AccessKeyID:     cmd.R2AccessKey,
			SecretAccessKey: cmd.R2SecretKey,
			UsePathStyle:    cmd.R2UsePathStyle,
		})
	}
}

// seed imports the seed snapshot, if any.
func (cmd *ServeCmd) seed(ctx context.Context, stor storage.Storage) error {
	if cmd.Seed == "" {
		return nil
	}
	snap, err := storage.LoadSnapshot(cmd.Seed)
	if err != nil {
		return err
	}
	if err := stor.Import(ctx, snap); err != nil {
		return fmt.Errorf("failed to import seed: %w", err)
	}
	contextlog.From(ctx).InfoContext(ctx, "Imported seed snapshot",
		slog.String("path", cmd.Seed),
		slog.Int("batches", len(snap.Batches)),
	)
	return nil
}

// Run executes the server command.
func (cmd *ServeCmd) Run(ctx cli.Context, buildID cli.BuildID, version cli.Version) error {
	stor, err := cmd.NewStorage(ctx)
	if err != nil {
		return err
	}
	defer stor.Close()

	if err := cmd.seed(ctx, stor); err != nil {
		return err
	}

	cfg := server.Config{
		Port:    cmd.Port,
		Version: string(version),
		Storage: stor,
	}
	if cmd.OpenAIAPIKey != "" {
		cfg.Remarker = openai.NewClient(cmd.OpenAIAPIKey, nil)
	}

	contextlog.From(ctx).InfoContext(ctx, "Starting review server",
		slog.String("build_id", string(buildID)),
		slog.Bool("remarks", cfg.Remarker != nil),
	)
	return server.Start(ctx, cfg)
}

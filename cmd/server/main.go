package main

import (
    "context"
    "os"

    "github.com/rs/zerolog/log"
    "github.com/spf13/cobra"

    "github.com/iliyamo/car-rental/internal/config"
    "github.com/iliyamo/car-rental/internal/database"
    "github.com/iliyamo/car-rental/internal/logging"
)

func main() {
    root := &cobra.Command{
        Use:           "car-rental",
        Short:         "Car rental marketplace API",
        SilenceUsage:  true,
        SilenceErrors: true,
    }
    root.AddCommand(serveCmd(), migrateCmd(), seedCmd())
    if err := root.ExecuteContext(context.Background()); err != nil {
        log.Error().Err(err).Msg("command failed")
        os.Exit(1)
    }
}

func migrateCmd() *cobra.Command {
    return &cobra.Command{
        Use:   "migrate",
        Short: "Create the database tables",
        RunE: func(cmd *cobra.Command, _ []string) error {
            cfg := config.Load()
            logger := logging.New(cfg.Env)
            db, err := database.Open(cfg)
            if err != nil {
                return err
            }
            defer db.Close()
            if err := database.Migrate(cmd.Context(), db); err != nil {
                return err
            }
            logger.Info().Str("db", cfg.DBName).Msg("schema applied")
            return nil
        },
    }
}

func seedCmd() *cobra.Command {
    var migrate bool
    cmd := &cobra.Command{
        Use:   "seed",
        Short: "Insert sample owners, renters and cars",
        RunE: func(cmd *cobra.Command, _ []string) error {
            cfg := config.Load()
            logger := logging.New(cfg.Env)
            db, err := database.Open(cfg)
            if err != nil {
                return err
            }
            defer db.Close()
            ctx := cmd.Context()
            if migrate {
                if err := database.Migrate(ctx, db); err != nil {
                    return err
                }
            }
            return database.Seed(ctx, db, cfg.BcryptCost, logger)
        },
    }
    cmd.Flags().BoolVar(&migrate, "migrate", true, "apply the schema before seeding")
    return cmd
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sanathkumar-crypto/issue-tracker/internal/config"
	"github.com/sanathkumar-crypto/issue-tracker/internal/importer"
	"github.com/sanathkumar-crypto/issue-tracker/internal/repository/csvstore"
	"github.com/sanathkumar-crypto/issue-tracker/internal/repository/firebase"
	"github.com/sanathkumar-crypto/issue-tracker/internal/router"
	"github.com/sanathkumar-crypto/issue-tracker/internal/zones"
	"github.com/sanathkumar-crypto/issue-tracker/pkg/logger"
)

func main() {
	root := &cobra.Command{
		Use:           "issuetracker",
		Short:         "Hospital issue tracker API and maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), initCmd(), importFirebaseCmd(), addUsersCmd(), updateZonesCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			l := logger.New(cfg.Env)

			store, err := csvstore.Open(cfg.DataDir, l)
			if err != nil {
				return fmt.Errorf("open data dir: %w", err)
			}
			defer store.Close()
			if err := store.InitFiles(); err != nil {
				return fmt.Errorf("init data files: %w", err)
			}

			srv := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           router.New(l, store, cfg),
				ReadTimeout:       15 * time.Second,
				WriteTimeout:      15 * time.Second,
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				l.Info().Str("addr", srv.Addr).Msg("api listening")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					l.Fatal().Err(err).Msg("server error")
				}
			}()

			// graceful shutdown
			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			<-stop
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
			l.Info().Msg("shutdown complete")
			return nil
		},
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the data directory and empty CSV files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			l := logger.New(cfg.Env)
			store, err := csvstore.Open(cfg.DataDir, l)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.InitFiles(); err != nil {
				return err
			}
			l.Info().Str("dir", cfg.DataDir).Msg("data files initialized")
			return nil
		},
	}
}

func importFirebaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-firebase",
		Short: "One-way export from Firestore into the CSV store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			l := logger.New(cfg.Env)
			if cfg.FirebaseProject == "" {
				return fmt.Errorf("FIREBASE_PROJECT_ID is not set")
			}
			if err := importer.EnsureCredentials(cfg.FirebaseCredentials); err != nil {
				return err
			}

			ctx := cmd.Context()
			src, err := firebase.Dial(ctx, cfg.FirebaseProject, cfg.FirebaseCredentials)
			if err != nil {
				return fmt.Errorf("connect to firestore: %w", err)
			}
			defer src.Close()

			dst, err := csvstore.Open(cfg.DataDir, l)
			if err != nil {
				return err
			}
			defer dst.Close()

			sum, err := importer.NewFirebaseImporter(src, dst, l).Run(ctx)
			if err != nil {
				return err
			}
			l.Info().
				Int("issues", sum.Issues).
				Int("comments", sum.Comments).
				Int("history", sum.History).
				Int("attachments", sum.Attachments).
				Int("users", sum.Users).
				Int("downloaded", sum.Downloaded).
				Int("failed", sum.Failed).
				Msg("import finished")
			return nil
		},
	}
}

func addUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-users <roster-file>",
		Short: "Bulk-add users from a pasted address-book dump",
		Long:  "Reads a file of `Name <email>` entries and creates any users not already present.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			l := logger.New(cfg.Env)
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			roster := importer.ParseRoster(string(raw))
			if len(roster) == 0 {
				return fmt.Errorf("%s: no `Name <email>` entries found", args[0])
			}

			store, err := csvstore.Open(cfg.DataDir, l)
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := importer.ImportRoster(cmd.Context(), csvstore.NewUserRepo(store), roster, cfg.IsAdminEmail)
			if err != nil {
				return err
			}
			l.Info().Int("added", res.Added).Int("skipped", res.Skipped).Msg("roster import finished")
			return nil
		},
	}
	return cmd
}

func updateZonesCmd() *cobra.Command {
	var threshold float64
	cmd := &cobra.Command{
		Use:   "update-zones <mapping.csv>",
		Short: "Backfill hospital zones from a radar_name/cp_zone mapping CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			l := logger.New(cfg.Env)
			mapping, err := zones.LoadMapping(args[0])
			if err != nil {
				return err
			}

			store, err := csvstore.Open(cfg.DataDir, l)
			if err != nil {
				return err
			}
			defer store.Close()
			settings := csvstore.NewSettingsRepo(store)

			hs, err := settings.Hospitals(cmd.Context())
			if err != nil {
				return err
			}
			res := zones.UpdateZones(hs, mapping, threshold)
			if err := settings.SaveHospitals(cmd.Context(), hs); err != nil {
				return err
			}
			l.Info().Int("matched", res.Matched).Int("unmatched", len(res.Unmatched)).Msg("zones updated")
			for _, name := range res.Unmatched {
				l.Warn().Str("hospital", name).Msg("no mapping match")
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", zones.DefaultThreshold, "minimum similarity for a match")
	return cmd
}

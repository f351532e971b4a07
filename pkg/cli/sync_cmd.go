package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"gps-report/internal/cloudsync"
	"gps-report/internal/config"
	"gps-report/internal/db"
	"gps-report/internal/domain"
)

func newSyncCmd(g *globals) *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push or pull the store file to the configured cloud remote",
		Long: `Push or pull the store file to the configured cloud remote.

The remote is configured through the same environment variables as the
server (SYNC_BACKEND, SYNC_REMOTE_DIR, DRIVE_CREDENTIALS_FILE, GCS_*, S3_*,
AZURE_*), optionally loaded from a .env file. A profile's remote-dir
overrides SYNC_REMOTE_DIR.`,
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading sync settings")

	open := func(ctx context.Context) (*cloudsync.Syncer, error) {
		if err := config.LoadDotEnv(envFile); err != nil {
			return nil, err
		}
		sc, err := config.LoadSyncFromEnv()
		if err != nil {
			return nil, err
		}
		if g.remoteDir != "" {
			sc.RemoteDir = g.remoteDir
		}
		if err := os.MkdirAll(filepath.Dir(g.db), 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
		if err := db.Migrate(g.db); err != nil {
			return nil, err
		}
		remote, err := cloudsync.New(ctx, sc, g.logger())
		if err != nil {
			return nil, err
		}
		return cloudsync.NewSyncer(remote, g.store(), sc.RemoteDir, g.logger()), nil
	}

	run := func(name, short string, fn func(*cloudsync.Syncer, context.Context) (*domain.SyncRecord, error)) *cobra.Command {
		return &cobra.Command{
			Use:   name,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				s, err := open(cmd.Context())
				if err != nil {
					return err
				}
				rec, err := fn(s, cmd.Context())
				if err != nil {
					return err
				}
				return printStatus(cmd, g, rec,
					fmt.Sprintf("%s %s: %s (%d bytes)\n", rec.Direction, rec.RemotePath, rec.Status, rec.Bytes))
			},
		}
	}
	cmd.AddCommand(run("push", "Upload the store file", (*cloudsync.Syncer).Push))
	cmd.AddCommand(run("pull", "Download the remote store file and replace the local one", (*cloudsync.Syncer).Pull))

	var limit int
	ls := &cobra.Command{
		Use:   "ls",
		Short: "List the remote directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := open(cmd.Context())
			if err != nil {
				return err
			}
			files, err := s.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printRemoteFiles(cmd, g, files)
		},
	}
	ls.Flags().IntVar(&limit, "limit", 100, "Maximum number of entries")
	cmd.AddCommand(ls)

	cmd.AddCommand(&cobra.Command{
		Use:   "rm [name]",
		Short: "Delete a file from the remote directory (default: the store file)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context())
			if err != nil {
				return err
			}
			name := filepath.Base(g.db)
			if len(args) == 1 {
				name = args[0]
			}
			found, err := s.Delete(cmd.Context(), name)
			if err != nil {
				return err
			}
			path := cloudsync.ObjectKey(s.RemoteDir(), name)
			msg := fmt.Sprintf("deleted %s\n", path)
			if !found {
				msg = fmt.Sprintf("%s not found\n", path)
			}
			return printStatus(cmd, g, map[string]any{"path": path, "found": found}, msg)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "tree",
		Short: "List everything under the remote directory (Drive only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := open(cmd.Context())
			if err != nil {
				return err
			}
			entries, err := s.Tree(cmd.Context())
			if err != nil {
				return err
			}
			if g.json() {
				return printJSON(cmd.OutOrStdout(), entries)
			}
			rows := make([][]any, len(entries))
			for i, e := range entries {
				rows[i] = []any{e.Path, fileKind(e.File), e.File.Size, formatTimestamp(e.File.Modified)}
			}
			return printTable(cmd.OutOrStdout(), []string{"PATH", "KIND", "SIZE", "MODIFIED"}, rows)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "folders",
		Short: "List the folders inside the remote directory (Drive only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := open(cmd.Context())
			if err != nil {
				return err
			}
			folders, err := s.Folders(cmd.Context())
			if err != nil {
				return err
			}
			return printRemoteFiles(cmd, g, folders)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rmdir <path>",
		Short: "Delete a folder inside the remote directory with everything in it (Drive only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context())
			if err != nil {
				return err
			}
			found, err := s.DeleteFolder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			path := cloudsync.ObjectKey(s.RemoteDir(), args[0])
			msg := fmt.Sprintf("deleted folder %s\n", path)
			if !found {
				msg = fmt.Sprintf("folder %s not found\n", path)
			}
			return printStatus(cmd, g, map[string]any{"path": path, "found": found}, msg)
		},
	})

	var page domain.PageRequest
	history := &cobra.Command{
		Use:   "history",
		Short: "Show past sync runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := open(cmd.Context())
			if err != nil {
				return err
			}
			runs, next, err := s.History(cmd.Context(), page)
			if err != nil {
				return err
			}
			if g.json() {
				return printJSON(cmd.OutOrStdout(), map[string]any{"runs": runs, "next_page_token": next})
			}
			rows := make([][]any, len(runs))
			for i, r := range runs {
				rows[i] = []any{formatTimestamp(r.StartedAt), r.Direction, r.Backend, r.RemotePath, r.Status, r.Bytes, r.Message}
			}
			if err := printTable(cmd.OutOrStdout(), []string{"STARTED", "DIRECTION", "BACKEND", "REMOTE PATH", "STATUS", "BYTES", "MESSAGE"}, rows); err != nil {
				return err
			}
			if next != "" {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "more runs: --page-token %s\n", next)
			}
			return nil
		},
	}
	history.Flags().IntVar(&page.MaxResults, "max-results", 20, "Runs per page")
	history.Flags().StringVar(&page.PageToken, "page-token", "", "Token from a previous page")
	cmd.AddCommand(history)

	var olderThan time.Duration
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete sync history older than a given age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := open(cmd.Context())
			if err != nil {
				return err
			}
			n, err := s.PruneHistory(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			return printStatus(cmd, g, map[string]any{"removed": n},
				fmt.Sprintf("removed %d sync runs older than %s\n", n, olderThan))
		},
	}
	prune.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Minimum age of the runs to delete")
	cmd.AddCommand(prune)

	return cmd
}

func printRemoteFiles(cmd *cobra.Command, g *globals, files []domain.RemoteFile) error {
	if g.json() {
		return printJSON(cmd.OutOrStdout(), files)
	}
	rows := make([][]any, len(files))
	for i, f := range files {
		rows[i] = []any{f.Name, fileKind(f), f.Size, formatTimestamp(f.Modified)}
	}
	return printTable(cmd.OutOrStdout(), []string{"NAME", "KIND", "SIZE", "MODIFIED"}, rows)
}

func fileKind(f domain.RemoteFile) string {
	if f.IsFolder {
		return "folder"
	}
	return "file"
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

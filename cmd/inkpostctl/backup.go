package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"inkpost/internal/awsclient"
	"inkpost/internal/backup"
	"inkpost/internal/config"
	"inkpost/internal/repository/sqlite"
)

func backupCmd(logger *logrus.Logger) *cli.Command {
	var (
		mgr *backup.Manager
		db  *sql.DB
	)
	return &cli.Command{
		Name:  "backup",
		Usage: "Manage database snapshots in object storage",
		Before: func(ctx *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Storage.Bucket == "" {
				return errors.New("storage.bucket is not configured")
			}
			store, err := awsclient.NewStorage(ctx.Context, cfg)
			if err != nil {
				return err
			}
			db, err = sqlite.Open(cfg.Database.Path)
			if err != nil {
				return err
			}
			mgr, err = backup.NewManager(backup.Config{
				Bucket:    cfg.Storage.Bucket,
				KeyPrefix: cfg.Storage.KeyPrefix,
				Keep:      cfg.Backup.Keep,
				Logger:    logger,
				Progress: func(done, total int64) {
					logger.Debugf("uploaded %d/%d bytes", done, total)
				},
			}, store, func(c context.Context, dest string) error {
				return sqlite.Snapshot(c, db, dest)
			})
			return err
		},
		After: func(*cli.Context) error {
			if db != nil {
				return db.Close()
			}
			return nil
		},
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Snapshot the database and upload it",
				Action: func(ctx *cli.Context) error {
					b, err := mgr.Snapshot(ctx.Context)
					if err != nil {
						return err
					}
					fmt.Fprintln(ctx.App.Writer, b.Location)
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List stored snapshots, newest first",
				Action: func(ctx *cli.Context) error {
					backups, err := mgr.List(ctx.Context)
					if err != nil {
						return err
					}
					for _, b := range backups {
						fmt.Fprintf(ctx.App.Writer, "%s\t%d\t%s\n", b.CreatedAt.Format(time.RFC3339), b.Size, b.Location)
					}
					return nil
				},
			},
			{
				Name:  "prune",
				Usage: "Delete all but the newest snapshots",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "keep", Aliases: []string{"k"}, Usage: "Snapshots to keep (defaults to backup.keep)"},
				},
				Action: func(ctx *cli.Context) error {
					keep := ctx.Int("keep")
					if keep == 0 {
						keep = mgr.Keep()
					}
					removed, err := mgr.Prune(ctx.Context, keep)
					if err != nil {
						return err
					}
					for _, key := range removed {
						fmt.Fprintln(ctx.App.Writer, "deleted", key)
					}
					return nil
				},
			},
		},
	}
}

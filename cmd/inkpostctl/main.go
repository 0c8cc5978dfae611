package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func newApp(logger *logrus.Logger) *cli.App {
	return &cli.App{
		Name:  "inkpostctl",
		Usage: "Operate an inkpost installation",
		Commands: []*cli.Command{
			hashPasswordCmd(),
			verifyPasswordCmd(),
			weatherCmd(logger),
			backupCmd(logger),
		},
	}
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetOutput(os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := newApp(logger).RunContext(ctx, os.Args); err != nil {
		logger.Errorf("inkpostctl: %v", err)
		os.Exit(1)
	}
}

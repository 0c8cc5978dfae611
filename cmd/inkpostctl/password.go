package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"inkpost/internal/credential"
)

// readPassword reads one line from r, without echo when r is a terminal.
// Only the line terminator is removed.
func readPassword(r io.Reader, prompt io.Writer) (string, error) {
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		if len(b) == 0 {
			return "", errors.New("missing password from stdin")
		}
		return string(b), nil
	}

	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", errors.New("missing password from stdin")
	}
	password := strings.TrimRight(sc.Text(), "\r")
	if password == "" {
		return "", errors.New("missing password from stdin")
	}
	return password, nil
}

func hashPasswordCmd() *cli.Command {
	var algorithm string
	return &cli.Command{
		Name:  "hash-password",
		Usage: "Hash a password read from stdin into a stored credential",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "algorithm",
				Aliases:     []string{"a"},
				Usage:       fmt.Sprintf("Digest algorithm (%s)", strings.Join(credential.Algorithms(), ", ")),
				Value:       credential.DefaultAlgorithm,
				Destination: &algorithm,
			},
		},
		Action: func(ctx *cli.Context) error {
			password, err := readPassword(ctx.App.Reader, ctx.App.ErrWriter)
			if err != nil {
				return err
			}
			hasher, err := credential.NewHasher(algorithm)
			if err != nil {
				return err
			}
			cred, err := hasher.Hash(password)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(ctx.App.Writer, cred.String())
			return err
		},
	}
}

func verifyPasswordCmd() *cli.Command {
	var stored string
	return &cli.Command{
		Name:  "verify-password",
		Usage: "Check a password read from stdin against a stored credential",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "credential",
				Aliases:     []string{"c"},
				Usage:       "Stored credential in tag$salt$digest form",
				Destination: &stored,
				Required:    true,
			},
		},
		Action: func(ctx *cli.Context) error {
			password, err := readPassword(ctx.App.Reader, ctx.App.ErrWriter)
			if err != nil {
				return err
			}
			if !credential.Verify(stored, password) {
				return cli.Exit("password does not match", 2)
			}
			_, err = fmt.Fprintln(ctx.App.Writer, "ok")
			return err
		},
	}
}

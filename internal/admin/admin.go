// Package admin implements the operator command line: creating accounts and
// resetting passwords directly against the server's storage.
package admin

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Accounts is the part of services.AuthService the CLI drives.
type Accounts interface {
	Signup(ctx context.Context, username, password string) (*models.User, error)
	ResetPassword(ctx context.Context, username, newPassword string) error
}

// ErrUsage is returned for unknown commands or missing arguments.
var ErrUsage = errors.New("usage: cli <signup|passwd> -u <username>")

// Run executes the subcommand in args (os.Args[1:] without the program name).
// Flags that belong to the server config are ignored here.
func Run(ctx context.Context, args []string, w io.Writer, accounts Accounts) error {
	if len(args) == 0 {
		return ErrUsage
	}

	cmd := args[0]
	username, err := parseUserName(cmd, args[1:])
	if err != nil {
		return err
	}

	switch cmd {
	case "signup":
		return signup(ctx, w, accounts, username)
	case "passwd":
		return passwd(ctx, w, accounts, username)
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, ErrUsage)
	}
}

func parseUserName(cmd string, args []string) (string, error) {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	username := fs.String("u", "", "username")

	if err := fs.Parse(flagx.FilterArgs(args, []string{"-u"})); err != nil {
		return "", fmt.Errorf("%v: %w", err, ErrUsage)
	}
	if *username == "" {
		return "", ErrUsage
	}
	return *username, nil
}

func signup(ctx context.Context, w io.Writer, accounts Accounts, username string) error {
	pw, err := ReadNewPassword(w)
	if err != nil {
		return err
	}

	u, err := accounts.Signup(ctx, username, pw)
	if err != nil {
		if errors.Is(err, common.ErrorDuplicateUsername) {
			return fmt.Errorf("user %q already exists", username)
		}
		return err
	}

	fmt.Fprintf(w, "created user %s (id %s)\n", u.UserName, u.ID)
	return nil
}

func passwd(ctx context.Context, w io.Writer, accounts Accounts, username string) error {
	pw, err := ReadNewPassword(w)
	if err != nil {
		return err
	}

	if err := accounts.ResetPassword(ctx, username, pw); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("user %q not found", username)
		}
		return err
	}

	fmt.Fprintf(w, "password updated for %s; existing sessions revoked\n", username)
	return nil
}

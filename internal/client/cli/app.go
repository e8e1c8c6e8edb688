package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/client/api"
	"github.com/dmitrijs2005/authkeeper/internal/client/config"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/password"
)

var ErrUsage = errors.New("usage")

const usage = `usage: authctl [-a url] [-t seconds] [-c file] <command> [args]

commands:
  login [identifier]
  refresh <refresh_token>
  logout <access_token>
  whoami <access_token>
  hash-password [bcrypt|argon2id]`

// SessionClient is the part of api.Client the commands use.
type SessionClient interface {
	Login(ctx context.Context, login, password string) (*api.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*api.TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
	WhoAmI(ctx context.Context, accessToken string) (string, error)
}

type App struct {
	client SessionClient
	prompt *prompter
	out    io.Writer
	errOut io.Writer
}

func NewApp(c *config.Config) *App {
	client := api.NewClient(c.ServerURL, api.WithHTTPClient(&http.Client{Timeout: c.RequestTimeout}))
	return &App{client: client, prompt: newPrompter(os.Stdin, os.Stderr), out: os.Stdout, errOut: os.Stderr}
}

// Run executes one command and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	err := a.dispatch(ctx, args)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrUsage):
		fmt.Fprintln(a.errOut, usage)
		return 2
	default:
		fmt.Fprintf(a.errOut, "error: %v\n", err)
		return 1
	}
}

func (a *App) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	cmd, args := args[0], args[1:]

	switch cmd {
	case "login":
		return a.login(ctx, args)
	case "refresh":
		if len(args) != 1 {
			return ErrUsage
		}
		pair, err := a.client.Refresh(ctx, args[0])
		if err != nil {
			return err
		}
		return a.printJSON(pair)
	case "logout":
		if len(args) != 1 {
			return ErrUsage
		}
		if err := a.client.Logout(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Successfully logged out")
		return nil
	case "whoami":
		if len(args) != 1 {
			return ErrUsage
		}
		id, err := a.client.WhoAmI(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, id)
		return nil
	case "hash-password":
		return a.hashPassword(args)
	case "help", "-h", "--help":
		fmt.Fprintln(a.out, usage)
		return nil
	default:
		return ErrUsage
	}
}

func (a *App) login(ctx context.Context, args []string) error {
	var identifier string
	switch len(args) {
	case 0:
		var err error
		if identifier, err = a.prompt.Line("Login, email or phone"); err != nil {
			return err
		}
	case 1:
		identifier = args[0]
	default:
		return ErrUsage
	}

	pw, err := a.prompt.Secret("Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	pair, err := a.client.Login(ctx, identifier, string(pw))
	if err != nil {
		return err
	}
	return a.printJSON(pair)
}

func (a *App) hashPassword(args []string) error {
	var hasher password.Hasher
	algorithm := "bcrypt"
	if len(args) > 0 {
		algorithm = args[0]
	}
	switch {
	case len(args) > 1:
		return ErrUsage
	case algorithm == "bcrypt":
		hasher = password.NewBcrypt(0)
	case algorithm == "argon2id":
		hasher = password.NewArgon2id()
	default:
		return ErrUsage
	}

	pw, err := a.prompt.Secret("Password to hash")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)
	if len(pw) == 0 {
		return errors.New("empty password")
	}

	hash, err := hasher.Hash(string(pw))
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, hash)
	return nil
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

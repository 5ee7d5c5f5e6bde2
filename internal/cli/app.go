// Package cli implements the passgate administration commands.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/passgate/internal/common"
	"github.com/dmitrijs2005/passgate/internal/server/auth"
	"github.com/dmitrijs2005/passgate/internal/server/config"
	"github.com/dmitrijs2005/passgate/internal/server/models"
	"github.com/dmitrijs2005/passgate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/passgate/internal/server/services"
)

var (
	ErrUsage            = errors.New("usage: cli adduser -u <username> [-d <dsn>] [-c <config.json>]")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// Registrar creates local accounts.
type Registrar interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
}

type App struct {
	config *config.Config
	in     *bufio.Reader
	out    io.Writer
	// open connects to the directory; replaced in tests.
	open func(ctx context.Context) (Registrar, func() error, error)
}

func NewApp(cfg *config.Config, in io.Reader, out io.Writer) *App {
	a := &App{config: cfg, in: bufio.NewReader(in), out: out}
	a.open = a.openDirectory
	return a
}

// Run dispatches args[0] to a command.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}

	switch args[0] {
	case "adduser":
		return a.AddUser(ctx, args[1:])
	case "help", "-h", "--help":
		fmt.Fprintln(a.out, ErrUsage.Error())
		return nil
	default:
		return fmt.Errorf("unknown command %q: %w", args[0], ErrUsage)
	}
}

// AddUser provisions a local account. The password is read twice from the
// terminal without echo.
func (a *App) AddUser(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	username := fs.String("u", "", "username")
	// server flags are parsed by config; accept them here so they do not fail
	fs.String("d", "", "database DSN")
	fs.String("c", "", "config file")
	fs.String("config", "", "config file")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%v: %w", err, ErrUsage)
	}

	name := *username
	if name == "" {
		var err error
		name, err = GetSimpleText(a.in, "Username", a.out)
		if err != nil {
			return err
		}
		if name == "" {
			return ErrUsage
		}
	}

	pw, err := GetPassword("Enter password: ", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	confirm, err := GetPassword("Repeat password: ", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if string(pw) != string(confirm) {
		return ErrPasswordMismatch
	}
	if len(pw) == 0 {
		return errors.New("empty password")
	}

	reg, closeFn, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	user, err := reg.Register(ctx, name, string(pw))
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return fmt.Errorf("user %q already exists", name)
		}
		return err
	}

	fmt.Fprintf(a.out, "User %s created (id %s)\n", name, user.ID)
	return nil
}

func (a *App) openDirectory(ctx context.Context) (Registrar, func() error, error) {
	if a.config.DirectoryBackend != "postgres" {
		return nil, nil, errors.New("adduser needs the postgres directory (pass -d or set PASSGATE_DIRECTORY=postgres)")
	}

	hasher, err := auth.NewHasher(a.config.PasswordHash)
	if err != nil {
		return nil, nil, err
	}

	b, err := repomanager.Open(ctx, a.config, repomanager.NewPostgresRepositoryManager())
	if err != nil {
		return nil, nil, err
	}
	return services.NewAccountService(b.Directory, hasher, a.config.SaltLen), b.Close, nil
}

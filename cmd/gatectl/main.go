// Command gatectl is the operator tool for sitegate account directories:
// it computes salted digests, writes directory records and runs logins
// against a directory with a local session database.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	ansi "github.com/jhunt/go-ansi"
	"github.com/jhunt/go-cli"
	env "github.com/jhunt/go-envirotron"
	"golang.org/x/term"

	"sitegate/auth"
	"sitegate/config"
	"sitegate/crypto"
	"sitegate/db"
	"sitegate/directory"
	"sitegate/guard"
	"sitegate/logging"
	"sitegate/models"
	"sitegate/session"
)

const usage = `USAGE: gatectl [OPTIONS] COMMAND [ARGS...]

Commands:
  digest TEXT...        print the salted digest of each TEXT
  entry USERNAME        print a directory record (password is prompted)
  login USERNAME        check credentials and store the session
  whoami                show the stored session
  logout                clear the stored session
  check PAGE            show the page guard decision for PAGE

Options:
  -s, --salt SALT       salt appended before hashing   ($SITEGATE_SALT)
  -d, --db PATH         session database                ($GATECTL_DB)
  -u, --url URL         directory base URL              ($SITEGATE_DIRECTORY_URL)
  -f, --file PATH       directory file, used when no URL is given
  -r, --role ROLE       role for "entry" (default user)
  -p, --password PASS   password for "entry" and "login" ($GATECTL_PASSWORD)
`

type options struct {
	Help     bool   `cli:"-h, --help"`
	Debug    bool   `cli:"-D, --debug"`
	Salt     string `cli:"-s, --salt" env:"SITEGATE_SALT"`
	DB       string `cli:"-d, --db" env:"GATECTL_DB"`
	URL      string `cli:"-u, --url" env:"SITEGATE_DIRECTORY_URL"`
	File     string `cli:"-f, --file"`
	Role     string `cli:"-r, --role"`
	Password string `cli:"-p, --password" env:"GATECTL_PASSWORD"`
}

type app struct {
	opt    options
	out    io.Writer
	errOut io.Writer
	log    logging.Logger
	hasher crypto.Hasher

	// readPassword prompts for a secret; replaced in tests.
	readPassword func(prompt string) (string, error)
}

func bail(err error) {
	if err != nil {
		ansi.Fprintf(os.Stderr, "@R{!!! %s}\n", err)
		os.Exit(1)
	}
}

func main() {
	var opt options
	opt.Salt = config.DefaultSalt
	opt.DB = "gatectl.db"
	opt.File = filepath.Join("site", config.DefaultDirectoryName)
	opt.Role = "user"
	env.Override(&opt)

	command, args, err := cli.Parse(&opt)
	bail(err)
	if command == "" && len(args) > 0 {
		command, args = args[0], args[1:]
	}
	if opt.Help || command == "" {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	level := "warn"
	if opt.Debug {
		level = "debug"
	}
	a := &app{
		opt:          opt,
		out:          os.Stdout,
		errOut:       os.Stderr,
		log:          logging.New(os.Stderr, "text", level),
		hasher:       crypto.NewEngine(),
		readPassword: promptPassword,
	}
	bail(a.run(context.Background(), command, args))
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "digest":
		return a.digest(args)
	case "entry":
		return a.entry(args)
	case "login":
		return a.login(ctx, args)
	case "whoami":
		return a.whoami(ctx)
	case "logout":
		return a.logout(ctx)
	case "check":
		return a.check(ctx, args)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) digest(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("digest: nothing to hash")
	}
	for _, text := range args {
		h, err := crypto.SaltedDigest(a.hasher, text, a.opt.Salt)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, h)
	}
	return nil
}

func (a *app) entry(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("entry: expected exactly one USERNAME")
	}
	password, err := a.password()
	if err != nil {
		return err
	}

	uh, err := crypto.SaltedDigest(a.hasher, args[0], a.opt.Salt)
	if err != nil {
		return err
	}
	ph, err := crypto.SaltedDigest(a.hasher, password, a.opt.Salt)
	if err != nil {
		return err
	}

	b, err := json.MarshalIndent(models.AccountRecord{UsernameHash: uh, PasswordHash: ph, Role: a.opt.Role}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, string(b))
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("login: expected exactly one USERNAME")
	}
	password, err := a.password()
	if err != nil {
		return err
	}

	client, closeFn, err := a.client()
	if err != nil {
		return err
	}
	defer closeFn()

	res := client.Login(ctx, args[0], password)
	if !res.Success {
		return fmt.Errorf("%s", res.Message)
	}
	ansi.Fprintf(a.out, "@G{logged in} as @C{%s} (role @Y{%s})\n", args[0], res.Role)
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	client, closeFn, err := a.client()
	if err != nil {
		return err
	}
	defer closeFn()

	user, ok := client.CurrentUser(ctx)
	if !ok {
		ansi.Fprintf(a.out, "@Y{not logged in}\n")
		return nil
	}
	fmt.Fprintf(a.out, "user %s\nrole %s\nadmin %t\n", user.UsernameHash, user.Role, client.IsAdmin(ctx))
	return nil
}

func (a *app) logout(ctx context.Context) error {
	client, closeFn, err := a.client()
	if err != nil {
		return err
	}
	defer closeFn()

	if err := client.Logout(ctx); err != nil {
		return err
	}
	ansi.Fprintf(a.out, "@G{logged out}\n")
	return nil
}

func (a *app) check(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("check: expected exactly one PAGE")
	}
	client, closeFn, err := a.client()
	if err != nil {
		return err
	}
	defer closeFn()

	d := client.CheckAuth(ctx, args[0])
	if target := client.Pages().Target(d); target != "" {
		fmt.Fprintf(a.out, "%s -> %s\n", d, target)
		return nil
	}
	fmt.Fprintln(a.out, d)
	return nil
}

// client opens the session database and wires an auth client to it.
func (a *app) client() (*auth.Client, func(), error) {
	conn, err := db.Open(a.opt.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("opening session database %s: %w", a.opt.DB, err)
	}

	var fetcher directory.Fetcher
	name := filepath.Base(a.opt.File)
	if a.opt.URL != "" {
		fetcher = &directory.HTTPFetcher{Client: &http.Client{Timeout: 10 * time.Second}, BaseURL: a.opt.URL}
		name = config.DefaultDirectoryName
	} else {
		fetcher = &directory.FSFetcher{FS: os.DirFS(filepath.Dir(a.opt.File))}
	}

	dir := directory.New(fetcher, name, a.log)
	v := auth.NewVerifier(dir, a.hasher, a.opt.Salt, a.log)
	store := session.NewStore(session.NewSQLiteStorage(conn))
	return auth.NewClient(v, store, guard.DefaultPages()), func() { conn.Close() }, nil
}

func (a *app) password() (string, error) {
	if a.opt.Password != "" {
		return a.opt.Password, nil
	}
	p, err := a.readPassword("Password: ")
	if err != nil {
		return "", err
	}
	if p == "" {
		return "", fmt.Errorf("%s", auth.MsgMissingCredentials)
	}
	return p, nil
}

func promptPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/csrf"
	"github.com/jhunt/go-cli"

	"sitegate/auth"
	"sitegate/config"
	"sitegate/crypto"
	"sitegate/directory"
	"sitegate/guard"
	"sitegate/handlers"
	"sitegate/logging"
	"sitegate/session"
)

// plaintextHTTP tells the CSRF middleware which requests arrived without
// TLS so it applies the matching origin checks.
func plaintextHTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil {
			r = csrf.PlaintextHTTPRequest(r)
		}
		next.ServeHTTP(w, r)
	})
}

func newFetcher(cfg config.Config) directory.Fetcher {
	if cfg.DirectoryURL == "" {
		return &directory.FSFetcher{FS: os.DirFS(cfg.SiteDir)}
	}
	return &directory.HTTPFetcher{
		Client:  &http.Client{Timeout: time.Duration(cfg.FetchTimeoutSeconds) * time.Second},
		BaseURL: cfg.DirectoryURL,
	}
}

func main() {
	var opt struct {
		Config string `cli:"-c, --config"`
	}
	opt.Config = "config.json"

	_, args, err := cli.Parse(&opt)
	if err != nil || len(args) != 0 {
		fmt.Fprintf(os.Stderr, "USAGE: sitegate [-c CONFIG]\n")
		os.Exit(1)
	}

	ctx := context.Background()
	if err := config.LoadConfig(opt.Config); err != nil {
		fatal(ctx, logging.New(os.Stderr, "text", "info"), "loading config failed", err)
	}
	cfg := config.AppConfig

	logger := logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel).With("app", cfg.AppName)
	if cfg.SessionKeyGenerated {
		logger.Warn(ctx, "no session key configured, using a random key; sessions end on restart")
	}

	secure := cfg.ListenPort != 8080 // Default to true unless dev port
	cookies, err := session.NewCookieStore(cfg.SessionKey, secure)
	if err != nil {
		fatal(ctx, logger, "creating session store failed", err)
	}
	csrfKey, err := crypto.DeriveKey(cfg.SessionKey, "sitegate csrf")
	if err != nil {
		fatal(ctx, logger, "deriving CSRF key failed", err)
	}

	hasher := crypto.NewEngine()
	dir := directory.New(newFetcher(cfg), cfg.DirectoryName, logger)

	h := &handlers.Handler{
		Verifier: auth.NewVerifier(dir, hasher, cfg.Salt, logger),
		Cookies:  cookies,
		Pages:    guard.Pages{Login: cfg.LoginPage, Home: cfg.HomePage, Public: cfg.PublicPages},
		Hasher:   hasher,
		Salt:     cfg.Salt,
		Log:      logger,
		Site:     handlers.StaticSite(os.DirFS(cfg.SiteDir)),
	}

	mux := http.NewServeMux()
	h.RegisterHandlers(mux)

	csrfMiddleware := csrf.Protect(
		csrfKey,
		csrf.Secure(secure),
		csrf.Path("/"),
	)

	var handler http.Handler = mux
	handler = csrfMiddleware(handler)
	handler = plaintextHTTP(handler)
	handler = handlers.CORSMiddleware(handler)
	handler = handlers.SecurityHeadersMiddleware(handler)
	handler = handlers.RequestLogger(logger)(handler)

	addr := fmt.Sprintf("%s:%d", cfg.ListenIP, cfg.ListenPort)
	logger.Info(ctx, "server starting", "addr", addr, "site_dir", cfg.SiteDir)

	if err := http.ListenAndServe(addr, handler); err != nil {
		fatal(ctx, logger, "server stopped", err)
	}
}

func fatal(ctx context.Context, logger logging.Logger, msg string, err error) {
	logger.Error(ctx, msg, "error", err)
	os.Exit(1)
}

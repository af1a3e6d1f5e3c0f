// Command bulletin runs the forum server.
//
// Usage:
//
//	bulletin                 start the HTTP server
//	bulletin adduser ...     provision an account
//
// Configuration comes from the environment, optionally seeded from a .env
// file (see SiteConfig).
package main

import (
	"flag"
	"log/slog"
	"os"
	"strings"

	"github.com/st0h/bulletin"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if len(os.Args) > 1 && os.Args[1] == "adduser" {
		addUser(logger, os.Args[2:])
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	app := bulletin.New(*cfg)
	defer app.Close()

	logger.Info("starting server", slog.String("addr", cfg.Addr))
	if err := app.Start(); err != nil {
		logger.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func loadConfig() (*bulletin.SiteConfig, error) {
	// A missing .env file is fine; the environment alone may be complete.
	if _, err := os.Stat(".env"); err == nil {
		return bulletin.LoadConfig(".env")
	}
	return bulletin.LoadConfig("")
}

// addUser provisions an account from the command line. There is no signup
// page; accounts are created by the operator.
func addUser(logger *slog.Logger, args []string) {
	fs := flag.NewFlagSet("adduser", flag.ExitOnError)
	username := fs.String("username", "", "account username (required)")
	password := fs.String("password", "", "account password (required)")
	perms := fs.String("perms", "create_post,manage_post,add_comment,delete_comment",
		"comma-separated permission grants")
	_ = fs.Parse(args)

	if *username == "" || *password == "" {
		fs.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	store, err := bulletin.NewStore(cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to open store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	var grants []bulletin.Permission
	for _, p := range strings.Split(*perms, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		grant, ok := parsePermission(p)
		if !ok {
			logger.Error("unknown permission", slog.String("permission", p))
			os.Exit(2)
		}
		grants = append(grants, grant)
	}

	user, err := store.CreateUser(*username, *password, grants...)
	if err != nil {
		logger.Error("failed to create user", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("user created", slog.Int64("id", user.ID), slog.String("username", user.Username))
}

func parsePermission(s string) (bulletin.Permission, bool) {
	for _, p := range bulletin.AllPermissions {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

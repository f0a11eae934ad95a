// Command seed creates the initial ADMIN account. The email comes from
// ADMIN_EMAIL; the password from ADMIN_PASSWORD or, when unset, from a
// terminal prompt. Running it again for an existing account is a no-op.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dmitrijs2005/blogauth/internal/common"
	"github.com/dmitrijs2005/blogauth/internal/logging"
	"github.com/dmitrijs2005/blogauth/internal/server/auth"
	"github.com/dmitrijs2005/blogauth/internal/server/config"
	"github.com/dmitrijs2005/blogauth/internal/server/metrics"
	"github.com/dmitrijs2005/blogauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/blogauth/internal/server/services"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

const adminUsername = "admin"

func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("ADMIN_PASSWORD is not set and stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, "Admin password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(b)

	return string(b), nil
}

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	email := strings.TrimSpace(cfg.AdminEmail)
	if email == "" {
		log.Fatalf("ADMIN_EMAIL is not set")
	}

	password := cfg.AdminPassword
	if password == "" {
		p, err := readPassword()
		if err != nil {
			log.Fatalf("password prompt error: %v", err)
		}
		password = p
	}

	logger := logging.NewJSON(os.Stdout, cfg.LogLevel)

	manager, err := repomanager.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("store init error: %v", err)
	}
	defer func() { _ = manager.Close(ctx) }()

	if err := manager.RunMigrations(ctx); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	mtr := metrics.New()
	svc := services.NewAuthService(manager, nil, auth.NewPasswordHasher(bcrypt.DefaultCost), nil, nil, logger, mtr)

	user, created, err := svc.CreateAdmin(ctx, services.RegisterInput{
		Email:    email,
		Username: adminUsername,
		Password: password,
	})
	if err != nil {
		log.Fatalf("seed error: %v", err)
	}
	if !created {
		logger.Info(ctx, "admin already exists", "email", email)
		return
	}
	logger.Info(ctx, "admin created", "user_id", user.ID, "email", user.Email)
}

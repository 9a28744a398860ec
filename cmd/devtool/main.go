// Command devtool applies the schema and mints access tokens for local
// development. The identity service owns login in every other environment.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/unimart/unimart-api/internal/config"
	"github.com/unimart/unimart-api/internal/domain/user"
	"github.com/unimart/unimart-api/internal/pkg/database"
	"github.com/unimart/unimart-api/internal/pkg/jwt"
	"github.com/unimart/unimart-api/internal/pkg/logger"
)

const usage = `usage:
  devtool migrate
  devtool users [--unverified]
  devtool token <user-id> [role]`

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: "info", Environment: "development", Service: "devtool"})

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "migrate":
		db := connect(cfg)
		defer database.ClosePostgres(db)
		if err := database.Migrate(context.Background(), db); err != nil {
			log.Fatal().Err(err).Msg("Migration failed")
		}
		fmt.Println("schema applied")

	case "users":
		db := connect(cfg)
		defer database.ClosePostgres(db)
		f := user.ListFilter{UnverifiedOnly: len(os.Args) > 2 && os.Args[2] == "--unverified"}
		users, err := user.NewRepository(db).List(context.Background(), f)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to list users")
		}
		writeUsers(os.Stdout, users)

	case "token":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		role := "student"
		if len(os.Args) > 3 {
			role = os.Args[3]
		}
		token, err := mintToken(cfg, os.Args[2], role)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to mint token")
		}
		fmt.Println(token)

	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

func connect(cfg *config.Config) *sqlx.DB {
	pool := database.DefaultPoolConfig()
	pool.MaxOpenConns = 2
	pool.MaxIdleConns = 1
	db, err := database.NewPostgres(cfg.DatabaseURL, pool)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	return db
}

func writeUsers(w io.Writer, users []user.User) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tROLE\tVERIFIED\tBANNED")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%t\n", u.ID, u.DisplayName(), u.Role, u.StudentVerified, u.IsBanned)
	}
	tw.Flush()
}

func mintToken(cfg *config.Config, rawID, role string) (string, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return "", fmt.Errorf("invalid user id %q: %w", rawID, err)
	}
	return jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTIssuer).GenerateAccessToken(id, role, false)
}

// Command createadmin registers an administrator, or promotes an existing account.
//
//	createadmin --email admin@unilag.edu.ng --password ... --name "Site Admin" --phone 08012345678
package main

import (
	"context"
	"os"
	"time"

	usersvc "roomlink-backend/internal/application/user"
	"roomlink-backend/internal/config"
	"roomlink-backend/internal/infrastructure/database"

	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
)

func main() {
	email := flag.String("email", "", "admin email address")
	password := flag.String("password", "", "admin password")
	name := flag.String("name", "", "admin full name")
	phone := flag.String("phone", "", "admin phone number")
	migrate := flag.Bool("migrate", false, "run AutoMigrate before creating the admin")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load")
	}
	config.SetupLogger(cfg)

	if *email == "" {
		flag.Usage()
		os.Exit(2)
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database open")
	}
	if *migrate {
		if err := database.AutoMigrate(db); err != nil {
			log.Fatal().Err(err).Msg("migrate")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	svc := &usersvc.Service{DB: db}
	u, err := svc.CreateAdmin(ctx, usersvc.SignupInput{
		Email:       *email,
		Password:    *password,
		FullName:    *name,
		PhoneNumber: *phone,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("create admin")
	}
	log.Info().Str("user_id", u.UserID.String()).Str("email", u.Email).Msg("admin ready")
}

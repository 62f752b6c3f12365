package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/bunny/boardhole/config"
	"github.com/bunny/boardhole/pkg/helpers"
)

type seedUser struct {
	username string
	email    string
	name     string
	password string
	roles    []string
}

// Default accounts for local development and smoke tests.
var seedUsers = []seedUser{
	{username: "admin", email: "admin@boardhole.test", name: "Administrator", password: "Admin123!", roles: []string{"ADMIN", "USER"}},
	{username: "user", email: "user@boardhole.test", name: "Regular User", password: "User123!", roles: []string{"USER"}},
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	for _, su := range seedUsers {
		hash, err := helpers.HashPassword(su.password)
		if err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}

		var id int64
		err = db.QueryRow(`
			INSERT INTO users (username, email, password_hash, name, email_verified)
			VALUES ($1, $2, $3, $4, true)
			ON CONFLICT (username) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, su.username, su.email, hash, su.name).Scan(&id)
		if err != nil {
			log.Fatalf("failed to seed user %s: %v", su.username, err)
		}

		for _, role := range su.roles {
			if _, err := db.Exec(`
				INSERT INTO user_roles (user_id, role)
				VALUES ($1, $2)
				ON CONFLICT (user_id, role) DO NOTHING
			`, id, role); err != nil {
				log.Fatalf("failed to assign role %s to %s: %v", role, su.username, err)
			}
		}
		fmt.Printf("seeded user: id=%d username=%s roles=%v\n", id, su.username, su.roles)
	}
}

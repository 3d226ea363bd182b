// Command seed creates the initial administrator account so the portal can be
// logged into on a fresh database.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/tutor-center-api/internal/models"
	"github.com/noah-isme/tutor-center-api/pkg/config"
	"github.com/noah-isme/tutor-center-api/pkg/database"
)

func main() {
	var (
		email    string
		password string
		fullName string
		role     string
	)

	flag.StringVar(&email, "email", "admin@tutor-center.local", "administrator email")
	flag.StringVar(&password, "password", "", "administrator password (required)")
	flag.StringVar(&fullName, "name", "Administrator", "administrator full name")
	flag.StringVar(&role, "role", string(models.RoleSuperAdmin), "role (SUPERADMIN, ADMIN or TUTOR)")
	flag.Parse()

	if password == "" {
		log.Fatal("password is required")
	}
	userRole := models.UserRole(role)
	switch userRole {
	case models.RoleSuperAdmin, models.RoleAdmin, models.RoleTutor:
	default:
		log.Fatalf("unknown role %q", role)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now().UTC()
	const query = `INSERT INTO users (id, email, password_hash, full_name, role, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, TRUE, $6, $6)
ON CONFLICT (email)
DO UPDATE SET password_hash = EXCLUDED.password_hash, full_name = EXCLUDED.full_name, role = EXCLUDED.role, active = TRUE, updated_at = EXCLUDED.updated_at`
	if _, err := db.ExecContext(ctx, query, uuid.NewString(), email, string(hash), fullName, userRole, now); err != nil {
		log.Fatalf("failed to upsert user: %v", err)
	}

	log.Printf("user %s ready with role %s", email, userRole)
}

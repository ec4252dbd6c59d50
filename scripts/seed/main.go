// Command seed provisions the database schema, the default clearing
// departments and an initial admin account for local development.
package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jecrcuniv/nodues-api/internal/models"
	"github.com/jecrcuniv/nodues-api/internal/repository"
	"github.com/jecrcuniv/nodues-api/pkg/config"
	"github.com/jecrcuniv/nodues-api/pkg/database"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS departments (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		email TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		sort_order INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		full_name TEXT NOT NULL,
		role TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		last_login TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS user_departments (
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		department_id UUID NOT NULL REFERENCES departments(id) ON DELETE CASCADE,
		PRIMARY KEY (user_id, department_id)
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token TEXT NOT NULL UNIQUE,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		revoked BOOLEAN NOT NULL DEFAULT FALSE,
		revoked_at TIMESTAMPTZ,
		ip_address TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS applications (
		id UUID PRIMARY KEY,
		registration_no TEXT NOT NULL,
		student_name TEXT NOT NULL,
		parent_name TEXT NOT NULL,
		school TEXT NOT NULL,
		course TEXT NOT NULL,
		branch TEXT NOT NULL,
		admission_year TEXT NOT NULL,
		passing_year TEXT NOT NULL,
		contact_no TEXT NOT NULL,
		personal_email TEXT,
		college_email TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		reapplication_count INTEGER NOT NULL DEFAULT 0,
		max_reapplications_override INTEGER,
		final_certificate_generated BOOLEAN NOT NULL DEFAULT FALSE,
		certificate_url TEXT,
		certificate_hash TEXT,
		certificate_tx_id TEXT,
		certificate_generated_at TIMESTAMPTZ,
		certificate_error TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_applications_registration_no ON applications (LOWER(registration_no))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_applications_certificate_tx_id ON applications (certificate_tx_id) WHERE certificate_tx_id IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS department_statuses (
		id UUID PRIMARY KEY,
		application_id UUID NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
		department_name TEXT NOT NULL,
		state TEXT NOT NULL DEFAULT 'pending',
		comment TEXT,
		acted_by UUID,
		acted_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (application_id, department_name)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_department_statuses_queue ON department_statuses (department_name, state)`,
	`CREATE TABLE IF NOT EXISTS reapplications (
		id UUID PRIMARY KEY,
		application_id UUID NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
		reapplication_number INTEGER NOT NULL,
		student_message TEXT,
		edited_fields JSONB,
		rejected_departments JSONB,
		previous_status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id UUID PRIMARY KEY,
		application_id UUID NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
		event TEXT NOT NULL,
		recipient TEXT NOT NULL,
		payload JSONB,
		status TEXT NOT NULL DEFAULT 'pending',
		attempts INTEGER NOT NULL DEFAULT 0,
		last_error TEXT,
		sent_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_pending ON notifications (status, created_at)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id UUID PRIMARY KEY,
		user_id UUID,
		action TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id TEXT,
		details JSONB,
		ip_address TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

var defaultDepartments = []struct {
	name        string
	displayName string
	sortOrder   int
}{
	{"school", "School / Department", 1},
	{"library", "Central Library", 2},
	{"hostel", "Hostel", 3},
	{"accounts", "Accounts Section", 4},
	{"examination", "Examination Cell", 5},
	{"registration", "Registration Office", 6},
}

func main() {
	var (
		adminEmail    string
		adminPassword string
		adminName     string
	)
	flag.StringVar(&adminEmail, "admin-email", "admin@jecrcu.edu.in", "email of the seeded admin account")
	flag.StringVar(&adminPassword, "admin-password", "", "password of the seeded admin account (required)")
	flag.StringVar(&adminName, "admin-name", "Registrar", "full name of the seeded admin account")
	flag.Parse()

	if adminPassword == "" {
		log.Fatal("an -admin-password is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect postgres: %v", err)
	}
	defer db.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.Fatalf("failed to apply schema: %v", err)
		}
	}
	log.Println("schema applied")

	for _, dept := range defaultDepartments {
		_, err := db.ExecContext(ctx, `INSERT INTO departments (id, name, display_name, active, sort_order)
		VALUES ($1, $2, $3, TRUE, $4) ON CONFLICT (name) DO NOTHING`,
			uuid.NewString(), dept.name, dept.displayName, dept.sortOrder)
		if err != nil {
			log.Fatalf("failed to seed department %s: %v", dept.name, err)
		}
	}
	log.Printf("seeded %d departments", len(defaultDepartments))

	users := repository.NewUserRepository(db)
	email := strings.ToLower(adminEmail)
	if _, err := users.FindByEmail(ctx, email); err == nil {
		log.Printf("admin account already exists: %s", email)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash admin password: %v", err)
	}
	admin := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     adminName,
		Role:         models.RoleAdmin,
		Active:       true,
	}
	if err := users.Create(ctx, admin); err != nil {
		log.Fatalf("failed to seed admin user: %v", err)
	}
	log.Printf("admin account ready: %s", email)
}

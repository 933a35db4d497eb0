// Package settings manages the operators allowed into the admin area.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/churchevent-ux/registerform--event-final/internal/model"
	"github.com/churchevent-ux/registerform--event-final/internal/store"
	"github.com/churchevent-ux/registerform--event-final/internal/validate"
)

// Roles.
const (
	RoleSuperAdmin = "superadmin"
	RoleAdmin      = "Admin"
	RoleOperator   = "Operator"
	RoleStaff      = "Staff"
)

// Module keys an operator can be granted.
const (
	PermDashboard     = "dashboard"
	PermUsers         = "users"
	PermAttendance    = "attendance"
	PermBreak         = "break"
	PermTeams         = "teams"
	PermNotifications = "notifications"
	PermSettings      = "settings"
	PermMessages      = "messages"
	PermHistory       = "history"
)

// AllPermissions lists every module key.
var AllPermissions = []string{
	PermDashboard, PermUsers, PermAttendance, PermBreak, PermTeams,
	PermNotifications, PermSettings, PermMessages, PermHistory,
}

// MethodPassword is the only sign-in method backed by stored credentials.
const MethodPassword = "password"

// ErrInvalidCredentials is returned when login fails for any reason.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Store persists dashboard users.
type Store interface {
	CreateUser(ctx context.Context, u model.DashboardUser) (model.DashboardUser, error)
	FindUser(ctx context.Context, emailOrPhone string) (*model.DashboardUser, error)
	ListUsers(ctx context.Context, role string) ([]model.DashboardUser, error)
	DeleteUser(ctx context.Context, id string) error
}

// Repository persists dashboard users in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser inserts a user.
func (r *Repository) CreateUser(ctx context.Context, u model.DashboardUser) (model.DashboardUser, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO dashboard_users (id, email_or_phone, password_hash, role, permissions)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at
	`, u.ID, u.EmailOrPhone, u.PasswordHash, u.Role, store.JSONB[[]string]{V: &u.Permissions}).Scan(&u.CreatedAt)
	if store.IsUniqueViolation(err) {
		return model.DashboardUser{}, store.ErrDuplicate
	}
	return u, err
}

// FindUser returns a user by login, or nil.
func (r *Repository) FindUser(ctx context.Context, emailOrPhone string) (*model.DashboardUser, error) {
	var u model.DashboardUser
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email_or_phone, password_hash, role, permissions, created_at
		FROM dashboard_users WHERE lower(email_or_phone) = lower($1)
	`, emailOrPhone).Scan(&u.ID, &u.EmailOrPhone, &u.PasswordHash, &u.Role, store.JSONB[[]string]{V: &u.Permissions}, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// ListUsers returns users, optionally restricted to one role.
func (r *Repository) ListUsers(ctx context.Context, role string) ([]model.DashboardUser, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email_or_phone, password_hash, role, permissions, created_at
		FROM dashboard_users
		WHERE $1 = '' OR role = $1
		ORDER BY created_at
	`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.DashboardUser
	for rows.Next() {
		var u model.DashboardUser
		if err := rows.Scan(&u.ID, &u.EmailOrPhone, &u.PasswordHash, &u.Role, store.JSONB[[]string]{V: &u.Permissions}, &u.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

// DeleteUser removes a user.
func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM dashboard_users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// HashPassword hashes a password with bcrypt.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

// CheckPasswordHash compares a password with its hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CreateInput is the new-operator form.
type CreateInput struct {
	EmailOrPhone string   `json:"emailOrPhone" validate:"notblank"`
	Password     string   `json:"password" validate:"min=8"`
	Role         string   `json:"role" validate:"oneof=Admin Operator Staff"`
	Permissions  []string `json:"permissions" validate:"dive,oneof=dashboard users attendance break teams notifications settings messages history"`
}

// Service manages dashboard users.
type Service struct {
	store Store
	log   *zap.Logger
}

// NewService creates a service.
func NewService(st Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: st, log: log}
}

// Create validates the form and stores a user with a hashed password.
func (s *Service) Create(ctx context.Context, in CreateInput) (model.DashboardUser, error) {
	if err := validate.Struct(in); err != nil {
		return model.DashboardUser{}, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return model.DashboardUser{}, err
	}
	return s.store.CreateUser(ctx, model.DashboardUser{
		EmailOrPhone: strings.TrimSpace(in.EmailOrPhone),
		PasswordHash: hash,
		Role:         in.Role,
		Permissions:  in.Permissions,
	})
}

// List returns users with role, or every user when role is "" or "All".
func (s *Service) List(ctx context.Context, role string) ([]model.DashboardUser, error) {
	if role == "All" {
		role = ""
	}
	return s.store.ListUsers(ctx, role)
}

// Delete removes a user.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteUser(ctx, id)
}

// Authenticate checks a login and returns the user.
func (s *Service) Authenticate(ctx context.Context, emailOrPhone, password string) (model.DashboardUser, error) {
	u, err := s.store.FindUser(ctx, strings.TrimSpace(emailOrPhone))
	if err != nil {
		return model.DashboardUser{}, err
	}
	if u == nil || !CheckPasswordHash(password, u.PasswordHash) {
		return model.DashboardUser{}, ErrInvalidCredentials
	}
	return *u, nil
}

// Lookup returns a user by login without checking a password, or store.ErrNotFound.
func (s *Service) Lookup(ctx context.Context, emailOrPhone string) (model.DashboardUser, error) {
	u, err := s.store.FindUser(ctx, strings.TrimSpace(emailOrPhone))
	if err != nil {
		return model.DashboardUser{}, err
	}
	if u == nil {
		return model.DashboardUser{}, store.ErrNotFound
	}
	return *u, nil
}

// SignInMethods lists the sign-in methods registered for an address.
func (s *Service) SignInMethods(ctx context.Context, emailOrPhone string) ([]string, error) {
	u, err := s.store.FindUser(ctx, strings.TrimSpace(emailOrPhone))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return []string{}, nil
	}
	return []string{MethodPassword}, nil
}

// EnsureSuperAdmin creates the superadmin account when no user holds that login yet.
func (s *Service) EnsureSuperAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	existing, err := s.store.FindUser(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	_, err = s.store.CreateUser(ctx, model.DashboardUser{
		EmailOrPhone: email,
		PasswordHash: hash,
		Role:         RoleSuperAdmin,
		Permissions:  AllPermissions,
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil
	}
	if err == nil {
		s.log.Info("superadmin created", zap.String("email", email))
	}
	return err
}

// Allowed reports whether u may open module.
func Allowed(role string, permissions []string, module string) bool {
	if role == RoleSuperAdmin {
		return true
	}
	for _, p := range permissions {
		if p == module {
			return true
		}
	}
	return false
}

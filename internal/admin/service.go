// Package admin implements the shared-credential gate in front of mutating
// operations. It is deliberately not an identity system: a check returns a
// boolean plus role, no session or token is ever issued.
package admin

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultRole is assigned to credentials seeded without an explicit role.
const DefaultRole = "admin"

var (
	// ErrAuthFailed covers both unknown usernames and wrong passwords so the
	// response does not reveal which one it was.
	ErrAuthFailed      = errors.New("admin: authentication failed")
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

// Credential is one stored admin login.
type Credential struct {
	Username     string    `gorm:"column:username;primaryKey;size:190;not null"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	Role         string    `gorm:"column:role;not null;default:admin"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Credential) TableName() string {
	return "admins"
}

// ServiceConfig describes the dependencies of the credential gate.
type ServiceConfig struct {
	Database *gorm.DB
	Logger   *zap.Logger
}

// Service checks submitted credentials against stored digests.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService validates the configuration and constructs the service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("admin: %w", errMissingDatabase)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{db: cfg.Database, logger: logger}, nil
}

// Authenticate compares the submitted password digest against the stored one
// and returns the credential's role on success.
func (s *Service) Authenticate(ctx context.Context, username, password string) (string, error) {
	var stored Credential
	err := s.db.WithContext(ctx).
		Where("username = ?", strings.TrimSpace(username)).
		Take(&stored).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrAuthFailed
	}
	if err != nil {
		s.logger.Error("credential lookup failed", zap.Error(err))
		return "", err
	}

	submitted := HashPassword(password)
	if subtle.ConstantTimeCompare([]byte(submitted), []byte(stored.PasswordHash)) != 1 {
		return "", ErrAuthFailed
	}

	role := stored.Role
	if role == "" {
		role = DefaultRole
	}
	return role, nil
}

// EnsureDefault seeds the first credential when the table is empty. Existing
// credentials are never overwritten.
func (s *Service) EnsureDefault(ctx context.Context, username, password string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Credential{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	seed := Credential{
		Username:     strings.TrimSpace(username),
		PasswordHash: HashPassword(password),
		Role:         "superadmin",
	}
	if err := s.db.WithContext(ctx).Create(&seed).Error; err != nil {
		return err
	}
	s.logger.Info("default admin credential created", zap.String("username", seed.Username))
	return nil
}

// HashPassword returns the hex-encoded SHA-256 digest used as the stored
// credential format.
func HashPassword(password string) string {
	digest := sha256.Sum256([]byte(password))
	return hex.EncodeToString(digest[:])
}

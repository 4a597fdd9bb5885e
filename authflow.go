package authflow

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Module is the assembled auth module: storage, repositories, lifecycle
// manager, token service, and HTTP controller, built once from a Config.
type Module struct {
	cfg        Config
	db         *bun.DB
	repo       RepositoryManager
	manager    *Manager
	tokens     *TokenServiceImpl
	controller *AuthController
	logger     Logger
	startedAt  time.Time
}

// HealthStatus reports module liveness.
type HealthStatus struct {
	Initialized bool      `json:"initialized"`
	Connected   bool      `json:"connected"`
	Timestamp   time.Time `json:"timestamp"`
}

type ModuleOption func(*Module)

func WithModuleLogger(logger Logger) ModuleOption {
	return func(m *Module) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// New validates the config, opens storage, and wires every component. Mail
// settings are optional: without them the Mailer degrades to the logging
// fallback and the lifecycle still functions.
func New(cfg Config, opts ...ModuleOption) (*Module, error) {
	m := &Module{
		cfg:       cfg,
		logger:    defLogger{},
		startedAt: time.Now(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	if v, ok := cfg.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}

	db, err := Open(cfg.GetStorageDSN())
	if err != nil {
		return nil, err
	}
	m.db = db

	m.repo = NewRepositoryManager(db)
	if err := m.repo.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "repository validation failed")
	}

	var mailer Mailer
	if mailCfg := cfg.GetMail(); mailCfg != nil {
		smtp, err := NewSMTPMailer(*mailCfg)
		if err != nil {
			return nil, err
		}
		mailer = smtp
	} else {
		m.logger.Warn("SMTP configuration absent, secrets will be logged instead of delivered")
	}

	m.manager = NewManager(m.repo).
		WithMailer(mailer).
		WithLogger(m.logger).
		WithResetBaseURL(cfg.GetResetBaseURL())

	m.tokens = NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		m.logger,
	)

	m.controller = NewAuthController(m.manager, m.tokens, cfg).
		WithLogger(m.logger)

	return m, nil
}

// Open connects to the SQLite-backed store behind the DSN.
func Open(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open storage")
	}

	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// CreateSchema bootstraps the users table. Idempotent.
func (m *Module) CreateSchema(ctx context.Context) error {
	_, err := m.db.NewCreateTable().
		Model((*User)(nil)).
		IfNotExists().
		Exec(ctx)

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create schema")
	}

	return nil
}

// RegisterRoutes mounts the auth endpoints on the given router.
func (m *Module) RegisterRoutes(app fiber.Router) {
	RegisterAuthRoutes(app, m.controller)
}

// Health pings storage and reports module status.
func (m *Module) Health(ctx context.Context) HealthStatus {
	return HealthStatus{
		Initialized: true,
		Connected:   m.db.PingContext(ctx) == nil,
		Timestamp:   time.Now(),
	}
}

// Manager exposes the lifecycle manager for embedding applications.
func (m *Module) Manager() *Manager {
	return m.manager
}

// TokenService exposes the session token service.
func (m *Module) TokenService() TokenService {
	return m.tokens
}

// Controller exposes the HTTP controller for custom route wiring.
func (m *Module) Controller() *AuthController {
	return m.controller
}

// DB exposes the underlying bun handle.
func (m *Module) DB() *bun.DB {
	return m.db
}

// Close releases the storage connection.
func (m *Module) Close() error {
	return m.db.Close()
}

package authflow

import (
	"os"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
)

// Config holds module options
type Config interface {
	GetStorageDSN() string
	GetSigningKey() string
	GetTokenExpiration() int
	GetIssuer() string
	GetAudience() []string
	GetCookieName() string
	GetCookieHTTPOnly() bool
	GetCookieSecure() bool
	GetCookieSameSite() string
	GetCookieMaxAge() int
	GetResetBaseURL() string
	GetMail() *MailConfig
}

// MailConfig carries SMTP settings. A nil MailConfig on the module config
// degrades the Mailer to the logging fallback.
type MailConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
}

func (c MailConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Host, validation.Required),
		validation.Field(&c.Username, validation.Required),
		validation.Field(&c.Password, validation.Required),
	)
}

// ModuleConfig is the concrete Config. StorageDSN and SigningKey are
// required before any request is served; everything else has defaults.
type ModuleConfig struct {
	StorageDSN      string      `json:"storage_dsn"`
	SigningKey      string      `json:"signing_key"`
	TokenExpiration int         `json:"token_expiration"`
	Issuer          string      `json:"issuer"`
	Audience        []string    `json:"audience"`
	CookieName      string      `json:"cookie_name"`
	CookieHTTPOnly  *bool       `json:"cookie_http_only"`
	CookieSecure    bool        `json:"cookie_secure"`
	CookieSameSite  string      `json:"cookie_same_site"`
	CookieMaxAge    int         `json:"cookie_max_age"`
	ResetBaseURL    string      `json:"reset_base_url"`
	Mail            *MailConfig `json:"mail"`
}

var _ Config = (*ModuleConfig)(nil)

func (c *ModuleConfig) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.StorageDSN, validation.Required),
		validation.Field(&c.SigningKey, validation.Required),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid module configuration").
			WithCode(goerrors.CodeBadRequest)
	}

	if c.Mail != nil {
		if err := c.Mail.Validate(); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "incomplete SMTP configuration").
				WithCode(goerrors.CodeBadRequest)
		}
	}

	return nil
}

func (c *ModuleConfig) GetStorageDSN() string { return c.StorageDSN }

func (c *ModuleConfig) GetSigningKey() string { return c.SigningKey }

func (c *ModuleConfig) GetTokenExpiration() int {
	if c.TokenExpiration <= 0 {
		return DefaultSessionTTLHours
	}
	return c.TokenExpiration
}

func (c *ModuleConfig) GetIssuer() string { return c.Issuer }

func (c *ModuleConfig) GetAudience() []string { return c.Audience }

func (c *ModuleConfig) GetCookieName() string {
	if c.CookieName == "" {
		return "auth_token"
	}
	return c.CookieName
}

// GetCookieHTTPOnly defaults to true; opting out has to be explicit.
func (c *ModuleConfig) GetCookieHTTPOnly() bool {
	if c.CookieHTTPOnly == nil {
		return true
	}
	return *c.CookieHTTPOnly
}

func (c *ModuleConfig) GetCookieSecure() bool { return c.CookieSecure }

func (c *ModuleConfig) GetCookieSameSite() string {
	if c.CookieSameSite == "" {
		return "Strict"
	}
	return c.CookieSameSite
}

// GetCookieMaxAge is in seconds, defaulting to the session token lifetime.
func (c *ModuleConfig) GetCookieMaxAge() int {
	if c.CookieMaxAge <= 0 {
		return c.GetTokenExpiration() * 3600
	}
	return c.CookieMaxAge
}

func (c *ModuleConfig) GetResetBaseURL() string { return c.ResetBaseURL }

func (c *ModuleConfig) GetMail() *MailConfig { return c.Mail }

// ConfigFromEnv builds a ModuleConfig from environment variables, loading
// the given dotenv files first when present (a missing file is not an
// error). Mail settings are picked up only when SMTP_HOST is set.
func ConfigFromEnv(files ...string) *ModuleConfig {
	for _, f := range files {
		_ = godotenv.Load(f)
	}

	cfg := &ModuleConfig{
		StorageDSN:     os.Getenv("AUTHFLOW_STORAGE_DSN"),
		SigningKey:     os.Getenv("AUTHFLOW_SIGNING_KEY"),
		Issuer:         os.Getenv("AUTHFLOW_ISSUER"),
		CookieName:     os.Getenv("AUTHFLOW_COOKIE_NAME"),
		CookieSameSite: os.Getenv("AUTHFLOW_COOKIE_SAME_SITE"),
		ResetBaseURL:   os.Getenv("AUTHFLOW_RESET_BASE_URL"),
	}

	cfg.TokenExpiration = envInt("AUTHFLOW_TOKEN_EXPIRATION_HOURS", 0)
	cfg.CookieMaxAge = envInt("AUTHFLOW_COOKIE_MAX_AGE", 0)
	cfg.CookieSecure = envBool("AUTHFLOW_COOKIE_SECURE", false)

	if v, ok := os.LookupEnv("AUTHFLOW_COOKIE_HTTPONLY"); ok {
		httpOnly := v != "false" && v != "0"
		cfg.CookieHTTPOnly = &httpOnly
	}

	if host := os.Getenv("SMTP_HOST"); host != "" {
		cfg.Mail = &MailConfig{
			Host:     host,
			Port:     envInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASS"),
			From:     os.Getenv("SMTP_FROM"),
		}
	}

	return cfg
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

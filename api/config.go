package api

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Config holds the HTTP client settings.
type Config struct {
	// BaseURL is the backend origin, e.g. https://flowx.example.com.
	BaseURL string `yaml:"base_url"`

	// Timeout bounds a single request. Zero uses DefaultTimeout.
	Timeout time.Duration `yaml:"timeout"`

	// UserAgent is sent on every request when set.
	UserAgent string `yaml:"user_agent"`
}

// DefaultTimeout bounds a request when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Validate requires a base URL and a non-negative timeout.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

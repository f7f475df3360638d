package fidelis

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/alovak/fidelis-loyalty/internal/civiltime"
	"github.com/alovak/fidelis-loyalty/internal/soap"
	"golang.org/x/exp/slog"
	"gopkg.in/yaml.v3"
)

// Config is a configuration for the Fidelis client and its HTTP facade
type Config struct {
	HTTPAddr string `yaml:"http_addr"`

	// WCF is the loyalty programme code Fidelis issued to the merchant.
	WCF string `yaml:"wcf"`
	// VirtualTerminalID identifies the emulated EFTPOS terminal.
	VirtualTerminalID string `yaml:"virtual_terminal_id"`

	GeneralServiceURL string `yaml:"general_service_url"`
	LoyaltyServiceURL string `yaml:"loyalty_service_url"`
	Namespace         string `yaml:"namespace"`
	Contract          string `yaml:"contract"`

	// Timezone is an IANA zone name; dates sent to Fidelis are civil dates in it.
	Timezone string        `yaml:"timezone"`
	Timeout  time.Duration `yaml:"timeout"`
	MaxPages int           `yaml:"max_pages"`
}

func DefaultConfig() *Config {
	return &Config{
		HTTPAddr:          "localhost:9090",
		GeneralServiceURL: "http://112.109.69.169/GENWCFService/Service.svc?wsdl",
		LoyaltyServiceURL: "http://112.109.69.169/LSWCFService/Service.svc?wsdl",
		Namespace:         soap.DefaultNamespace,
		Contract:          soap.DefaultContract,
		Timezone:          civiltime.DefaultZone,
		Timeout:           30 * time.Second,
		MaxPages:          defaultMaxPages,
	}
}

// LoadConfig reads path over the defaults and then applies FIDELIS_*
// environment overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	strs := map[string]*string{
		"FIDELIS_WCF":                 &c.WCF,
		"FIDELIS_VIRTUAL_TERMINAL_ID": &c.VirtualTerminalID,
		"FIDELIS_GENERAL_SERVICE_URL": &c.GeneralServiceURL,
		"FIDELIS_LOYALTY_SERVICE_URL": &c.LoyaltyServiceURL,
		"FIDELIS_TIMEZONE":            &c.Timezone,
		"FIDELIS_HTTP_ADDR":           &c.HTTPAddr,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("FIDELIS_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("FIDELIS_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("FIDELIS_MAX_PAGES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FIDELIS_MAX_PAGES: %w", err)
		}
		c.MaxPages = n
	}
	return nil
}

// Validate reports every missing or invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.WCF == "" {
		errs = append(errs, errors.New("wcf is required"))
	}
	if c.VirtualTerminalID == "" {
		errs = append(errs, errors.New("virtual_terminal_id is required"))
	}
	if c.GeneralServiceURL == "" {
		errs = append(errs, errors.New("general_service_url is required"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if c.MaxPages <= 0 {
		errs = append(errs, errors.New("max_pages must be positive"))
	}
	if _, err := civiltime.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Config) Identity() Identity {
	return Identity{ProgramCode: c.WCF, VirtualTerminalID: c.VirtualTerminalID}
}

// NewFromConfig builds a Client talking SOAP to the configured endpoints.
func NewFromConfig(cfg *Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	loc, err := civiltime.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	hc := &http.Client{Timeout: cfg.Timeout}
	invokers := Invokers{
		General: NewSOAPInvoker(cfg.GeneralServiceURL, cfg.Namespace, cfg.Contract, hc),
	}
	if cfg.LoyaltyServiceURL != "" {
		invokers.Loyalty = NewSOAPInvoker(cfg.LoyaltyServiceURL, cfg.Namespace, cfg.Contract, hc)
	}

	return New(cfg.Identity(), invokers,
		WithLogger(logger),
		WithLocation(loc),
		WithMaxPages(cfg.MaxPages),
	)
}

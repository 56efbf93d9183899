// Package common builds the shared dependencies the subcommands wire
// together: config, logger, stores, rate limiters, and the two provider
// clients.
package common

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/gomigrate/internal/cloudflare"
	"github.com/jonesrussell/gomigrate/internal/config"
	"github.com/jonesrussell/gomigrate/internal/godaddy"
	"github.com/jonesrussell/gomigrate/internal/logger"
	"github.com/jonesrussell/gomigrate/internal/ratelimit"
	"github.com/jonesrussell/gomigrate/internal/store"
)

// Flag pointers bound by the root command.
var (
	cfgFile *string
	debug   *bool
)

// Bind registers the root command's persistent flag storage.
func Bind(configFlag *string, debugFlag *bool) {
	cfgFile = configFlag
	debug = debugFlag
}

// Deps holds the dependencies shared by the subcommands.
type Deps struct {
	Config      *config.Config
	Logger      logger.Interface
	DB          *sqlx.DB
	Migrations  *store.MigrationStore
	Credentials *store.CredentialStore
	Source      *godaddy.Client
	Dest        *cloudflare.Client
}

// Build loads configuration, initializes logging, and opens the store.
func Build() (*Deps, error) {
	cfg, err := config.Load(flagValue(cfgFile))
	if err != nil {
		return nil, err
	}

	logCfg := &logger.Config{
		Level:       logger.Level(cfg.Logging.Level),
		Encoding:    cfg.Logging.Encoding,
		Development: cfg.Logging.Development,
	}
	if debug != nil && *debug {
		logCfg.Level = logger.DebugLevel
		logCfg.Development = true
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := store.Open(cfg.Migration.StorePath)
	if err != nil {
		return nil, err
	}

	deps := &Deps{
		Config:      cfg,
		Logger:      log,
		DB:          db,
		Migrations:  store.NewMigrationStore(db),
		Credentials: store.NewCredentialStore(db),
	}

	return deps, nil
}

// BuildProviders resolves credentials (config first, then the
// persisted credential store) and constructs both provider clients.
// Commands that never talk to a provider skip this.
func (d *Deps) BuildProviders(ctx context.Context) error {
	if err := d.resolveCredentials(ctx); err != nil {
		return err
	}

	d.Source = godaddy.New(godaddy.Config{
		BaseURL:   d.Config.Source.BaseURL,
		APIKey:    d.Config.Source.APIKey,
		APISecret: d.Config.Source.APISecret,
	}, ratelimit.NewSource(), d.Logger)

	d.Dest = cloudflare.New(cloudflare.Config{
		BaseURL:   d.Config.Dest.BaseURL,
		APIToken:  d.Config.Dest.APIToken,
		AccountID: d.Config.Dest.AccountID,
	}, ratelimit.NewDest(), d.Logger)

	return nil
}

// resolveCredentials fills credential gaps in the config from the
// persisted credential store.
func (d *Deps) resolveCredentials(ctx context.Context) error {
	if d.Config.Source.APIKey == "" || d.Config.Source.APISecret == "" {
		creds, err := d.Credentials.Load(ctx, godaddy.ProviderName)
		if err == nil {
			d.Config.Source.APIKey = creds.APIKey
			d.Config.Source.APISecret = creds.APISecret
		} else if !errors.Is(err, store.ErrNoCredentials) {
			return err
		}
	}

	if d.Config.Dest.APIToken == "" || d.Config.Dest.AccountID == "" {
		creds, err := d.Credentials.Load(ctx, cloudflare.ProviderName)
		if err == nil {
			if d.Config.Dest.APIToken == "" {
				d.Config.Dest.APIToken = creds.APIToken
			}
			if d.Config.Dest.AccountID == "" {
				d.Config.Dest.AccountID = creds.AccountID
			}
		} else if !errors.Is(err, store.ErrNoCredentials) {
			return err
		}
	}

	return d.Config.Validate()
}

// Close releases the shared resources.
func (d *Deps) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}

func flagValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

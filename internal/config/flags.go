package config

import "flag"

// Flags holds CLI overrides. A nil field means the flag was not given.
type Flags struct {
	ConfigPath *string
	Port       *string
	LogLevel   *string
	DSN        *string
	NatsURL    *string
	Store      *string

	// Args are the positional arguments left after flag parsing.
	Args []string
}

// ParseFlags parses command-line arguments into Flags.
func ParseFlags(args []string) (*Flags, error) {
	fs := flag.NewFlagSet("productapi", flag.ContinueOnError)

	var configPath, port, logLevel, dsn, natsURL, store string
	fs.StringVar(&configPath, "config", "", "path to YAML config file")
	fs.StringVar(&configPath, "c", "", "shorthand for --config")
	fs.StringVar(&port, "port", "", "HTTP listen port")
	fs.StringVar(&port, "p", "", "shorthand for --port")
	fs.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	fs.StringVar(&dsn, "dsn", "", "PostgreSQL connection string")
	fs.StringVar(&natsURL, "nats-url", "", "NATS server URL")
	fs.StringVar(&store, "store", "", "store backend (memory, postgres)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	f := &Flags{Args: fs.Args()}
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "config", "c":
			f.ConfigPath = &configPath
		case "port", "p":
			f.Port = &port
		case "log-level":
			f.LogLevel = &logLevel
		case "dsn":
			f.DSN = &dsn
		case "nats-url":
			f.NatsURL = &natsURL
		case "store":
			f.Store = &store
		}
	})
	return f, nil
}

// apply overlays the set flags onto cfg. Safe on a nil receiver.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if f.Port != nil {
		cfg.Server.Port = *f.Port
	}
	if f.LogLevel != nil {
		cfg.Logging.Level = *f.LogLevel
	}
	if f.DSN != nil {
		cfg.Postgres.DSN = *f.DSN
	}
	if f.NatsURL != nil {
		cfg.NATS.URL = *f.NatsURL
		cfg.NATS.Enabled = true
	}
	if f.Store != nil {
		cfg.Store.Backend = *f.Store
	}
}

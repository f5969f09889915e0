// Package cmdutil holds the flag plumbing and output rendering shared by the
// icingactl subcommands.
package cmdutil

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/veldtix/icingactl/internal/config"
	"github.com/veldtix/icingactl/pkg/icinga2"
)

// ClientFlags binds the connection flags every subcommand takes. Flag values
// override the corresponding config file fields.
type ClientFlags struct {
	ConfigPath string
	Server     string
	Username   string
	Password   string
	CertFile   string
	KeyFile    string
	CAFile     string
	Timeout    time.Duration
}

// Bind registers the connection flags on fs.
func (f *ClientFlags) Bind(fs *flag.FlagSet) {
	fs.StringVar(&f.ConfigPath, "config", config.EnvPath(), "Path to icingactl configuration file")
	fs.StringVar(&f.Server, "server", "", "API endpoint, e.g. https://icinga.example:5665")
	fs.StringVar(&f.Username, "user", "", "API username for basic auth")
	fs.StringVar(&f.Password, "password", "", "API password for basic auth")
	fs.StringVar(&f.CertFile, "cert", "", "Client certificate file for TLS auth")
	fs.StringVar(&f.KeyFile, "key", "", "Client key file (defaults to the certificate file)")
	fs.StringVar(&f.CAFile, "ca", "", "CA bundle used to verify the server certificate")
	fs.DurationVar(&f.Timeout, "timeout", 0, "Per-request timeout")
}

// Load resolves the effective configuration: the config file when present,
// overridden by any flag that was set.
func (f *ClientFlags) Load(ctx context.Context) (config.Config, error) {
	var cfg config.Config
	if f.ConfigPath != "" {
		loaded, err := config.Load(ctx, f.ConfigPath)
		switch {
		case err == nil:
			cfg = loaded
		case errors.Is(err, os.ErrNotExist) && f.ConfigPath == config.DefaultConfigPath:
			// A missing built-in default config is fine when flags supply
			// everything. A path named via --config or ICINGACTL_CONFIG must
			// exist.
		default:
			return cfg, err
		}
	}

	if f.Server != "" {
		cfg.API.Server = f.Server
	}
	if f.Username != "" {
		cfg.API.Username = f.Username
	}
	if f.Password != "" {
		cfg.API.Password = f.Password
	}
	if f.CertFile != "" {
		cfg.API.CertFile = f.CertFile
	}
	if f.KeyFile != "" {
		cfg.API.KeyFile = f.KeyFile
	}
	if f.CAFile != "" {
		cfg.API.CAFile = f.CAFile
	}
	return cfg, nil
}

// ClientConfig resolves the effective client configuration. The --timeout
// flag overrides the file's timeout_sec as a full duration, so sub-second
// values survive.
func (f *ClientFlags) ClientConfig(ctx context.Context) (icinga2.Config, error) {
	cfg, err := f.Load(ctx)
	if err != nil {
		return icinga2.Config{}, err
	}
	cc := cfg.ClientConfig()
	if f.Timeout > 0 {
		cc.Timeout = f.Timeout
	}
	return cc, nil
}

// BuildClient loads the effective configuration and constructs the API
// client.
func (f *ClientFlags) BuildClient(ctx context.Context, logger *log.Logger) (*icinga2.Client, error) {
	cc, err := f.ClientConfig(ctx)
	if err != nil {
		return nil, err
	}
	return icinga2.NewClient(cc, icinga2.Dependencies{Logger: logger})
}

// WriteJSON renders v as indented JSON on out.
func WriteJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table renders aligned columns on out. Rows shorter than the header are
// padded.
func Table(out io.Writer, header []string, rows [][]string) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, row := range rows {
		for len(row) < len(header) {
			row = append(row, "")
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}

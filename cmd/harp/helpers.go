package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hackutd/harp-sub000/internal/client"
	"github.com/hackutd/harp-sub000/internal/config"
	"gopkg.in/yaml.v3"
)

// exitError carries a process exit code without printing anything more.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadGlobalFrom(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newClient builds an API client from the config, with --server and
// --token taking precedence.
func newClient() (*client.HTTPClient, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	addr := cfg.Client.Server
	if serverAddr != "" {
		addr = serverAddr
	}
	tok := cfg.Client.Token
	if token != "" {
		tok = token
	}
	if tok == "" {
		return nil, nil, fmt.Errorf("no admin token: set client.token in %s, HARP_TOKEN, or pass --token", configPath)
	}
	return client.NewHTTPClient(addr, tok), cfg, nil
}

// describeClientError turns transport and auth failures into hints.
func describeClientError(err error) error {
	var netErr *client.NetworkError
	switch {
	case client.IsUnauthorized(err):
		return fmt.Errorf("%w (check your admin token)", err)
	case errors.As(err, &netErr):
		return fmt.Errorf("%w (is `harp serve` running?)", err)
	}
	return err
}

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

func validateOutput(format string) error {
	switch format {
	case outputTable, outputJSON, outputYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
}

// writeStructured prints v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	if format == outputYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

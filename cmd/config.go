package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"ora-schema/internal/dialect"
	"ora-schema/internal/engine"
	"ora-schema/internal/naming"
	"ora-schema/internal/schema"
)

type DBConfig struct {
	Name   string `mapstructure:"name"`
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Active bool   `mapstructure:"active"`
}

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("sequence.start_value", engine.DefaultSequenceStart)
}

// GetActiveDBConfig returns the currently active database configuration.
func GetActiveDBConfig(v *viper.Viper) (*DBConfig, error) {
	var configs []DBConfig

	if err := v.UnmarshalKey("databases", &configs); err != nil {
		return nil, fmt.Errorf("failed to parse databases config: %w", err)
	}

	var activeConfig *DBConfig
	count := 0

	for i := range configs {
		if configs[i].Active {
			activeConfig = &configs[i]
			count++
		}
	}

	if count == 0 {
		return nil, fmt.Errorf("no active database found in config (set active: true)")
	}
	if count > 1 {
		return nil, fmt.Errorf("multiple active databases found (only one can be active)")
	}

	return activeConfig, nil
}

// resolveConnection picks driver and DSN: flags and the database section
// win over the active entry of databases[].
func resolveConnection() (string, string, error) {
	connStr := viper.GetString("database.dsn")
	driver := viper.GetString("database.driver")

	if connStr == "" {
		active, err := GetActiveDBConfig(viper.GetViper())
		if err != nil {
			return "", "", fmt.Errorf("database.dsn is required (via flag, config or an active databases entry): %w", err)
		}
		connStr = active.DSN
		if driver == "" {
			driver = active.Driver
		}
	}
	return resolveDriver(firstNonEmpty(driver, detectDriver(connStr))), connStr, nil
}

// resolveDriver returns the configured driver, the given fallback, or oracle.
func resolveDriver(fallback string) string {
	if d := viper.GetString("database.driver"); d != "" {
		return d
	}
	if fallback != "" {
		return fallback
	}
	if active, err := GetActiveDBConfig(viper.GetViper()); err == nil && active.Driver != "" {
		return active.Driver
	}
	return "oracle"
}

// detectDriver guesses the driver from the DSN.
func detectDriver(connStr string) string {
	switch {
	case connStr == "":
		return ""
	case strings.HasPrefix(connStr, "oracle://"):
		return "oracle"
	case strings.HasPrefix(connStr, "sqlserver://"):
		return "sqlserver"
	case strings.Contains(connStr, "postgres") || strings.Contains(connStr, "sslmode"):
		return "postgres"
	default:
		return "mysql"
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// engineOptions builds the generator options from the naming and sequence
// sections. Unset naming keys keep the dialect's rules.
func engineOptions(v *viper.Viper, d dialect.Dialect) (engine.Options, error) {
	opts := engine.DefaultOptions(d)

	if n := v.GetInt("naming.max_length"); n > 0 {
		opts.Naming.MaxLength = n
	}
	if n := v.GetInt("naming.hash_length"); n > 0 {
		opts.Naming.HashLength = n
	}
	if n := v.GetInt("naming.abbreviate_width"); n > 0 {
		opts.Naming.AbbreviateWidth = n
	}

	fold, err := naming.ParseFold(v.GetString("naming.fold"))
	if err != nil {
		return opts, fmt.Errorf("invalid naming.fold: %w", err)
	}
	if fold != naming.FoldDefault {
		opts.Naming.Fold = fold
	}

	policy := make(map[naming.Kind]bool)
	if v.IsSet("naming.hash_fallback.index") {
		policy[naming.KindIndex] = v.GetBool("naming.hash_fallback.index")
	}
	if v.IsSet("naming.hash_fallback.foreign_key") {
		policy[naming.KindForeignKey] = v.GetBool("naming.hash_fallback.foreign_key")
	}
	if len(policy) > 0 {
		opts.Naming.HashFallback = policy
	}

	start, err := schema.ParseStartValue(v.Get("sequence.start_value"))
	if err != nil {
		return opts, fmt.Errorf("invalid sequence.start_value: %w", err)
	}
	if start.IsRaw() {
		return opts, fmt.Errorf("sequence.start_value must be a number, got %q", start.Clause)
	}
	if start.Value > 0 {
		opts.DefaultSequenceStart = start.Value
	}
	return opts, nil
}

// newGenerator builds a generator for the current driver and configuration.
func newGenerator() (*engine.Generator, error) {
	d, err := currentDialect()
	if err != nil {
		return nil, err
	}
	opts, err := engineOptions(viper.GetViper(), d)
	if err != nil {
		return nil, err
	}
	return engine.NewGenerator(d, opts, Log), nil
}

package cmd

import (
	"database/sql"
	"fmt"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"ora-schema/internal/dialect"
)

var (
	dsn        string
	driverFlag string
	schemaFlag string
	cfgFile    string
	debug      bool

	DB         *sql.DB
	DriverName string // "oracle", "postgres", "mysql" or "sqlserver"
	SchemaName string // Passed to catalog queries
	Log        = zap.NewNop().Sugar()
)

// offline marks commands that never open a database connection.
const offline = "offline"

var RootCmd = &cobra.Command{
	Use:   "ora-schema",
	Short: "Schema DDL generator with Oracle-safe identifier names",
	Long: `
  ___  ____      _      ____   ____ _   _ _____ __  __    _
 / _ \|  _ \    / \    / ___| / ___| | | | ____|  \/  |  / \
| | | | |_) |  / _ \   \___ \| |   | |_| |  _| | |\/| | / _ \
| |_| |  _ <  / ___ \   ___) | |___|  _  | |___| |  | |/ ___ \
 \___/|_| \_\/_/   \_\ |____/ \____|_| |_|_____|_|  |_/_/   \_\

Generates tables, sequences, triggers, indexes and foreign keys whose
names fit the target database's identifier limit.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		Log = setupLogger(viper.GetBool("debug"))

		if cmd.Annotations[offline] == "true" {
			DriverName = resolveDriver("")
			return nil
		}

		driver, connStr, err := resolveConnection()
		if err != nil {
			return err
		}
		DriverName = driver

		DB, err = sql.Open(DriverName, connStr)
		if err != nil {
			return fmt.Errorf("failed to open db: %w", err)
		}
		if err := DB.PingContext(cmd.Context()); err != nil {
			return fmt.Errorf("failed to connect to db: %w", err)
		}

		// Fetch current database/schema name for catalog queries
		SchemaName = viper.GetString("database.schema")
		if SchemaName == "" && DriverName == "mysql" {
			if err := DB.QueryRowContext(cmd.Context(), "SELECT DATABASE()").Scan(&SchemaName); err != nil {
				return fmt.Errorf("failed to get database name: %w", err)
			}
			if SchemaName == "" {
				return fmt.Errorf("no database selected in DSN")
			}
		}

		Log.Debugw("connected", "driver", DriverName, "schema", SchemaName)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if Log != nil {
			_ = Log.Sync()
		}
		if DB != nil {
			return DB.Close()
		}
		return nil
	},
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Define flags
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./ora-schema.yaml)")
	RootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Database Source Name (DSN)")
	RootCmd.PersistentFlags().StringVar(&driverFlag, "driver", "", "Database driver: oracle, postgres, mysql or sqlserver")
	RootCmd.PersistentFlags().StringVar(&schemaFlag, "schema", "", "Schema inspected by verify (default depends on the driver)")
	RootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable development logging")

	// Bind flags to viper
	viper.BindPFlag("database.dsn", RootCmd.PersistentFlags().Lookup("dsn"))
	viper.BindPFlag("database.driver", RootCmd.PersistentFlags().Lookup("driver"))
	viper.BindPFlag("database.schema", RootCmd.PersistentFlags().Lookup("schema"))
	viper.BindPFlag("debug", RootCmd.PersistentFlags().Lookup("debug"))

	setConfigDefaults(viper.GetViper())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// 1. Executable Directory (Priority 1)
		ex, err := os.Executable()
		if err == nil {
			exePath := filepath.Dir(ex)
			viper.AddConfigPath(exePath)
		}

		// 2. Current Directory (Priority 2)
		viper.AddConfigPath(".")

		viper.SetConfigName("ora-schema")
		viper.SetConfigType("yaml")
	}

	// ORA_SCHEMA_DATABASE_DSN overrides database.dsn, and so on.
	viper.SetEnvPrefix("ora_schema")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func setupLogger(debug bool) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stderr"}
	zlog, err := cfg.Build()
	if err != nil {
		stdlog.Fatalf("failed to set up logger: %v", err)
	}
	return zlog.Sugar()
}

// currentDialect resolves the dialect for the selected driver.
func currentDialect() (dialect.Dialect, error) {
	d, err := dialect.GetDialect(DriverName)
	if err != nil {
		return nil, err
	}
	Log.Debugw("using dialect", "dialect", d.Name())
	return d, nil
}

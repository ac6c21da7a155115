package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/AzielCF/az-prospect/core/config"
	"github.com/AzielCF/az-prospect/pkg/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfg  *config.Config
	deps *components
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "prospect",
	Short: "Provider routing for prospect lookups",
	Long: `Routes discovery and name-resolution lookups across external data providers,
guarded by per-provider circuit breakers, daily budgets and rolling health.`,
}

func init() {
	// Load environment variables first
	utils.LoadConfig(".")

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Initialize flags first, before any subcommands are added
	initFlags()

	cobra.OnInitialize(initEnvConfig, initApp)
}

func initFlags() {
	flags := rootCmd.PersistentFlags()

	// Application flags
	flags.StringP("port", "p", "", "change port number with --port <number> | example: --port=8080")
	flags.BoolP("debug", "d", false, "hide or displaying log with --debug <true/false> | example: --debug=true")
	flags.StringSliceP("basic-auth", "b", nil, "basic auth credential | -b=yourUsername:yourPassword")
	flags.String("base-path", "", `base path for subpath deployment --base-path <string> | example: --base-path="/prospect"`)

	// Database flags
	flags.String("db-driver", "", `database driver --db-driver <sqlite|postgres> | example: --db-driver=postgres`)
	flags.String("db-name", "", `sqlite file or postgres database name --db-name <string> | example: --db-name="storages/prospect.db"`)

	// Valkey flags
	flags.Bool("valkey", false, "keep cache, usage counters and health samples in valkey --valkey=true")
	flags.String("valkey-address", "", `valkey address --valkey-address <host:port> | example: --valkey-address="localhost:6379"`)

	// Routing flags
	flags.String("budget-timezone", "", `IANA timezone used for daily budgets --budget-timezone <string> | example: --budget-timezone="America/Lima"`)

	bind := map[string]string{
		"app_port":        "port",
		"app_debug":       "debug",
		"app_basic_auth":  "basic-auth",
		"app_base_path":   "base-path",
		"db_driver":       "db-driver",
		"db_name":         "db-name",
		"valkey_enabled":  "valkey",
		"valkey_address":  "valkey-address",
		"budget_timezone": "budget-timezone",
	}
	for key, flag := range bind {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			logrus.WithError(err).Warnf("[CONFIG] Failed to bind flag --%s", flag)
		}
	}
}

// initEnvConfig loads configuration from the environment, then applies flags that were set explicitly.
func initEnvConfig() {
	loaded, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("[CONFIG] %v", err)
	}
	cfg = loaded

	if v := viper.GetString("app_port"); v != "" {
		cfg.App.Port = v
	}
	if viper.GetBool("app_debug") {
		cfg.App.Debug = true
	}
	if v := viper.GetStringSlice("app_basic_auth"); len(v) > 0 {
		cfg.App.BasicAuth = splitCredentials(v)
	}
	if v := viper.GetString("app_base_path"); v != "" {
		cfg.App.BasePath = v
	}
	if v := viper.GetString("db_driver"); v != "" {
		cfg.Database.Driver = v
	}
	if v := viper.GetString("db_name"); v != "" {
		cfg.Database.Name = v
	}
	if viper.GetBool("valkey_enabled") {
		cfg.Database.ValkeyEnabled = true
	}
	if v := viper.GetString("valkey_address"); v != "" {
		cfg.Database.ValkeyAddress = v
	}
	if v := viper.GetString("budget_timezone"); v != "" {
		cfg.Routing.BudgetTimezone = v
	}
}

func initApp() {
	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	built, err := buildComponents(context.Background(), cfg)
	if err != nil {
		logrus.Fatalf("[APP] Failed to initialize: %v", err)
	}
	deps = built
}

// splitCredentials accepts both repeated flags and a single comma separated value.
func splitCredentials(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// StopApp closes the database and valkey connections.
func StopApp() {
	logrus.Info("[APP] Stopping application...")
	if deps != nil {
		deps.Close()
	}
	logrus.Info("[APP] Application stopped cleanly.")
}

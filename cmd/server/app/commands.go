// Package app provides the cobra commands of the dbsync binary.
package app

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/prudhvinik1/dbsync/internal/config"
)

// Set through -ldflags at build time.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// LogLevel controls the process-wide slog handler installed by main.
var LogLevel = new(slog.LevelVar)

// VersionInfo is printed by the version command.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// NewRootCmd creates the root command with serve, migrate and version attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "dbsync",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Periodic database-to-HTTP sync worker",
		Long: `dbsync reads batches of NOT_COMPLETED rows on a fixed interval, marks them
COMPLETED, optionally forwards them to a peer over HTTP and receives batches
pushed by peers.`,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				slog.Error("Error displaying help", "error", err)
			}
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Path to configuration file (YAML format)")
	rootCmd.PersistentFlags().String(config.KeyDatabaseDriver, config.DriverPostgres, "Row store backend (postgres or sqlite)")
	rootCmd.PersistentFlags().String(config.KeyDatabaseURL, "", "Postgres URL or SQLite file path")
	rootCmd.PersistentFlags().String(config.KeyLogLevel, "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			info := GetVersionInfo()
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				slog.Error("Error retrieving format flag", "error", err)
				return
			}

			if format == "json" {
				output, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					slog.Error("Error formatting version info as JSON", "error", err)
					return
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(output))
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dbsync %s (commit %s, built %s, %s, %s)\n",
				info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform)
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}

// loadConfig binds every flag of cmd to a fresh viper instance, loads the
// configuration file named by --config, if any, and applies its log-level.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := config.NewViper()

	var bindErr error
	bind := func(f *pflag.Flag) {
		if f.Name == "config" || bindErr != nil {
			return
		}
		if err := v.BindPFlag(f.Name, f); err != nil {
			bindErr = fmt.Errorf("failed to bind %s flag: %w", f.Name, err)
		}
	}
	cmd.Flags().VisitAll(bind)
	if bindErr != nil {
		return nil, bindErr
	}

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}

	cfg, err := config.LoadConfig(v, configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	LogLevel.Set(level)

	return cfg, nil
}

// Gamepadctl manages Bluetooth game controllers through the BlueZ daemon.
//
// It lists connected and paired controllers with their battery level, and
// can disconnect, rename, remove or re-pair them. Re-pairing ("reconnect")
// removes the stale pairing, scans for the controller while it is in
// pairing mode, then pairs, trusts, connects and restores its name.
//
// Usage:
//
//	gamepadctl [command] [flags]
//
// Running without arguments launches the interactive dashboard.
// See 'gamepadctl --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/keewee/gamepadctl/internal/battery"
	"github.com/keewee/gamepadctl/internal/config"
	"github.com/keewee/gamepadctl/internal/devicectl"
	"github.com/keewee/gamepadctl/internal/logging"
	"github.com/keewee/gamepadctl/internal/tui"
	"github.com/keewee/gamepadctl/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var (
	logLevel string

	// prefs is set by setup before any command runs
	prefs *config.Preferences
)

var rootCmd = &cobra.Command{
	Use:   "gamepadctl",
	Short: "Bluetooth game controller manager",
	Long: `Manage Bluetooth game controllers paired with this machine.

Shows connected controllers with their battery level and paired
controllers, and can disconnect, rename, remove or re-pair them.

If no command is specified, the interactive dashboard will launch.`,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runDashboard,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.Version = version.Get().Version

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level (debug, info, warn, error); overrides "+logging.LogLevelEnvVar)

	rootCmd.AddCommand(versionCmd)
}

// setup loads the configuration and initializes logging. The log level is
// taken from --log-level, then the environment, then the config file.
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		if !isConfigCommand(cmd) {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		// Let 'config' subcommands repair a broken file
		cfg = config.New()
	}
	prefs = cfg.Preferences

	level := logLevel
	if level == "" {
		level = os.Getenv(logging.LogLevelEnvVar)
	}
	if level == "" {
		level = prefs.LogLevel
	}
	if err := logging.Initialize(level); err != nil {
		return err
	}
	return nil
}

// newService builds the device service from the loaded preferences.
func newService() *devicectl.Service {
	svc := devicectl.New(nil, battery.NewProbe(prefs.PowerSupplyDir))
	svc.DiscoveryTimeout = prefs.DiscoveryTimeout()
	return svc
}

func runDashboard(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	return tui.Run(cmd.Context(), newService(), tui.Options{
		RefreshInterval:  prefs.RefreshInterval(),
		TickInterval:     prefs.TickInterval(),
		ReconnectWindow:  prefs.ReconnectWindowSeconds,
		DiscoveryTimeout: prefs.DiscoveryTimeout(),
	})
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gamepadctl %s\n", version.Full())
	},
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/keewee/gamepadctl/internal/bluez"
	"github.com/keewee/gamepadctl/internal/config"
	"github.com/keewee/gamepadctl/internal/discovery"
	"github.com/keewee/gamepadctl/internal/reconnect"
	"github.com/keewee/gamepadctl/internal/session"
	"github.com/keewee/gamepadctl/internal/statusserver"
	"github.com/keewee/gamepadctl/internal/ui"
	"github.com/keewee/gamepadctl/internal/version"
)

// Command flags
var (
	listFormat      string
	removeYes       bool
	reconnectName   string
	discoverTimeout time.Duration
	serveListen     string
	serveAdvertise  bool
	serveName       string
	serversTimeout  time.Duration
	serversName     string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List connected and paired controllers",
	Long: `List the devices known to the Bluetooth daemon.

Connected devices are shown with their battery level when the kernel
reports one. Formats:
  table     connected and paired tables (default)
  detailed  one block per paired device
  json      machine readable snapshot`,
	Example: `  gamepadctl list
  gamepadctl list --format json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect <address>",
	Short: "Disconnect a controller",
	Long: `Disconnect a connected controller. The pairing is kept, so the
controller can reconnect on its own later.`,
	Example: `  gamepadctl disconnect AA:BB:CC:DD:EE:FF`,
	Args:    cobra.ExactArgs(1),
	RunE:    runDisconnect,
}

var removeCmd = &cobra.Command{
	Use:   "remove <address>",
	Short: "Remove a pairing",
	Long: `Remove a controller from the Bluetooth daemon. The controller must be
paired again before it can be used.`,
	Example: `  gamepadctl remove AA:BB:CC:DD:EE:FF
  gamepadctl remove AA:BB:CC:DD:EE:FF --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

var renameCmd = &cobra.Command{
	Use:   "rename <address> <name>",
	Short: "Set a controller's display name",
	Example: `  gamepadctl rename AA:BB:CC:DD:EE:FF "Living room pad"`,
	Args:    cobra.ExactArgs(2),
	RunE:    runRename,
}

var reconnectCmd = &cobra.Command{
	Use:   "reconnect <address>",
	Short: "Re-pair a controller from scratch",
	Long: `Remove the existing pairing, scan for the controller, then pair,
trust and connect it and restore its display name.

Put the controller in pairing mode before running this command. The scan
gives up after the configured discovery timeout.

The current display name is restored unless --name is given.`,
	Example: `  gamepadctl reconnect AA:BB:CC:DD:EE:FF
  gamepadctl reconnect AA:BB:CC:DD:EE:FF --name "Player 2"`,
	Args: cobra.ExactArgs(1),
	RunE: runReconnect,
}

var discoverCmd = &cobra.Command{
	Use:   "discover <address>",
	Short: "Scan until a controller is seen",
	Long: `Start a Bluetooth scan and wait for the given address to appear.
Nothing is paired; use this to check that a controller is discoverable.`,
	Example: `  gamepadctl discover AA:BB:CC:DD:EE:FF --timeout 30s`,
	Args:    cobra.ExactArgs(1),
	RunE:    runDiscover,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve device status over HTTP and WebSocket",
	Long: `Serve the device snapshot for overlays and scripts.

Endpoints:
  GET /devices  current snapshot as JSON
  GET /ws       snapshot pushed on every refresh`,
	Example: `  gamepadctl serve
  gamepadctl serve --listen 0.0.0.0:7321 --advertise`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "Find status servers on the local network",
	Long: `Browse mDNS for status servers started with 'gamepadctl serve --advertise'
and print their endpoints.

With --name, browsing stops as soon as that instance answers.`,
	Example: `  gamepadctl servers
  gamepadctl servers --timeout 10s
  gamepadctl servers --name "gamepadctl on desk"`,
	Args: cobra.NoArgs,
	RunE: runServers,
}

func init() {
	listCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "Output format (table, detailed, json)")
	removeCmd.Flags().BoolVarP(&removeYes, "yes", "y", false, "Skip the confirmation prompt")
	reconnectCmd.Flags().StringVar(&reconnectName, "name", "", "Name to restore after connecting")
	discoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", 0, "Scan timeout (default from config)")
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveAdvertise, "advertise", false, "Announce the server over mDNS")
	serveCmd.Flags().StringVar(&serveName, "name", "", "mDNS instance name (default \"gamepadctl on <hostname>\")")
	serversCmd.Flags().DurationVar(&serversTimeout, "timeout", discovery.DefaultScanTimeout, "Browse duration")
	serversCmd.Flags().StringVar(&serversName, "name", "", "Wait for a single instance by name")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(disconnectCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(reconnectCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(serversCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	printer := ui.NewPrinter(cmd.OutOrStdout())

	snap, err := newService().LoadDevices(cmd.Context())
	if err != nil {
		printer.PrintFailure("Could not list devices", err)
		return err
	}

	switch strings.ToLower(listFormat) {
	case "table", "":
		printer.PrintDevices(snap)
	case "detailed":
		printer.PrintDevicesDetailed(snap)
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	default:
		return fmt.Errorf("unknown format %q (expected table, detailed or json)", listFormat)
	}
	return nil
}

func runDisconnect(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	printer := ui.NewPrinter(cmd.OutOrStdout())
	addr := args[0]

	if err := newService().Disconnect(cmd.Context(), addr); err != nil {
		printer.PrintFailure("Disconnect failed", err)
		return err
	}
	printer.PrintSuccess("Disconnected", ui.Param{Key: "Address", Value: addr})
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	printer := ui.NewPrinter(cmd.OutOrStdout())
	addr := args[0]
	svc := newService()

	if !removeYes {
		name := addr
		if d, ok := findPaired(cmd, addr); ok {
			name = d.Name
		}
		if !ui.ConfirmRemoval(cmd.InOrStdin(), cmd.OutOrStdout(), addr, name) {
			return nil
		}
	}

	if err := svc.Remove(cmd.Context(), addr); err != nil {
		printer.PrintFailure("Remove failed", err)
		return err
	}
	printer.PrintSuccess("Removed", ui.Param{Key: "Address", Value: addr})
	return nil
}

func runRename(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	printer := ui.NewPrinter(cmd.OutOrStdout())
	addr := args[0]
	name := strings.TrimSpace(args[1])

	if name == "" {
		printer.PrintFailure("Rename failed", session.ErrEmptyName)
		return session.ErrEmptyName
	}

	if err := newService().Rename(cmd.Context(), addr, name); err != nil {
		printer.PrintFailure("Rename failed", err)
		return err
	}
	printer.PrintSuccess("Renamed",
		ui.Param{Key: "Address", Value: addr},
		ui.Param{Key: "Name", Value: name},
	)
	return nil
}

func runReconnect(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	addr := args[0]
	svc := newService()

	name := strings.TrimSpace(reconnectName)
	if name == "" {
		if d, ok := findPaired(cmd, addr); ok {
			name = d.Name
		}
	}

	req := reconnect.Request{Address: addr, Name: name, AttemptID: uuid.NewString()}
	runner := ui.NewReconnectRunner(ui.RunnerConfig{
		Title:   "Reconnect",
		Command: "gamepadctl reconnect",
		Params: []ui.Param{
			{Key: "Address", Value: addr},
			{Key: "Name", Value: name},
			{Key: "Timeout", Value: prefs.DiscoveryTimeout().String()},
		},
		Output: cmd.OutOrStdout(),
	})

	var result *reconnect.Result
	err := runner.Run(cmd.Context(), func(onStep ui.StepCallback) ([]ui.Param, error) {
		discovering := ui.StageNumber(reconnect.StageDiscovering)
		opts := reconnect.Options{
			OnStage: ui.StageReporter(onStep),
			OnDiscoveryProgress: func(remaining int) {
				onStep(discovering, ui.StepRunning, fmt.Sprintf("%ds left", remaining))
			},
		}

		var err error
		result, err = svc.Reconnect(cmd.Context(), req, opts)
		if err != nil {
			return nil, err
		}
		return []ui.Param{{Key: "Attempt", Value: req.AttemptID}}, nil
	})
	if err != nil {
		return err
	}

	if result != nil && result.RenameWarning != nil {
		ui.NewPrinter(cmd.OutOrStdout()).PrintWarning("Name not restored",
			ui.Param{Key: "Name", Value: name},
			ui.Param{Key: "Reason", Value: result.RenameWarning.Error()},
		)
	}
	return nil
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	addr := args[0]
	timeout := discoverTimeout
	if timeout <= 0 {
		timeout = prefs.DiscoveryTimeout()
	}

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:   "Discover",
		Command: "gamepadctl discover",
		Params: []ui.Param{
			{Key: "Address", Value: addr},
			{Key: "Timeout", Value: timeout.String()},
		},
		Steps:  []string{"Scanning"},
		Output: cmd.OutOrStdout(),
	})

	return runner.Run(cmd.Context(), func(onStep ui.StepCallback) ([]ui.Param, error) {
		onStep(1, ui.StepRunning, "")
		found, err := newService().Discover(cmd.Context(), addr, timeout, func(remaining int) {
			onStep(1, ui.StepRunning, fmt.Sprintf("%ds left", remaining))
		})
		if err != nil {
			onStep(1, ui.StepFailed, "")
			return nil, err
		}
		if !found {
			onStep(1, ui.StepFailed, "not found")
			return nil, &reconnect.StepError{
				Reason:  reconnect.ReasonNotFound,
				Stage:   reconnect.StageDiscovering,
				Address: addr,
			}
		}
		onStep(1, ui.StepComplete, "found")
		return []ui.Param{{Key: "Address", Value: addr}}, nil
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	printer := ui.NewPrinter(cmd.OutOrStdout())
	listen := serveListen
	if listen == "" {
		listen = prefs.StatusListen
	}

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		printer.PrintFailure("Status server not started", err)
		return err
	}

	params := []ui.Param{
		{Key: "Listen", Value: ln.Addr().String()},
		{Key: "Refresh", Value: prefs.RefreshInterval().String()},
	}
	if serveAdvertise {
		port := ln.Addr().(*net.TCPAddr).Port
		ad, err := discovery.Advertise(serveName, port, version.Get().Version)
		if err != nil {
			ln.Close()
			printer.PrintFailure("Status server not started", err)
			return err
		}
		defer ad.Shutdown()
		params = append(params, ui.Param{Key: "mDNS", Value: ad.Name + " (" + discovery.ServiceType + ")"})
	}

	printer.PrintHeader("Status Server", "gamepadctl serve", params...)
	printer.PrintPleaseWait("Serving device status", "Press Ctrl+C to stop")

	srv := statusserver.New(statusserver.Config{
		Listen:          listen,
		RefreshInterval: prefs.RefreshInterval(),
	}, newService())
	if err := srv.Serve(cmd.Context(), ln); err != nil {
		printer.PrintFailure("Status server stopped", err)
		return err
	}
	return nil
}

func runServers(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	printer := ui.NewPrinter(cmd.OutOrStdout())
	printer.PrintHeader("Status Servers", "gamepadctl servers",
		ui.Param{Key: "Service", Value: discovery.ServiceType},
		ui.Param{Key: "Timeout", Value: serversTimeout.String()},
	)
	printer.PrintPleaseWait("Browsing the local network", serversTimeout.String())

	scanner := discovery.NewScanner()
	scanner.Timeout = serversTimeout
	if serversName != "" {
		return findServer(printer, scanner, cmd, serversName)
	}

	instances, err := scanner.Scan(cmd.Context())
	if err != nil {
		printer.PrintFailure("Browse failed", err)
		return err
	}
	if len(instances) == 0 {
		printer.PrintWarning("No status servers found",
			ui.Param{Key: "Hint", Value: "start one with 'gamepadctl serve --advertise'"},
		)
		return nil
	}

	details := make([]ui.Param, 0, len(instances))
	for _, inst := range instances {
		details = append(details, ui.Param{Key: inst.Name, Value: inst.DevicesURL()})
	}
	printer.PrintSuccess(fmt.Sprintf("Found %d status server(s)", len(instances)), details...)
	return nil
}

func findServer(printer *ui.Printer, scanner *discovery.Scanner, cmd *cobra.Command, name string) error {
	inst, err := scanner.WaitFor(cmd.Context(), name)
	if err != nil {
		printer.PrintFailure("Status server "+name+" not found", err)
		return err
	}

	printer.PrintSuccess("Found "+inst.Name,
		ui.Param{Key: "Host", Value: inst.Hostname},
		ui.Param{Key: "Version", Value: inst.Version()},
		ui.Param{Key: "Devices", Value: inst.DevicesURL()},
		ui.Param{Key: "WebSocket", Value: inst.WebSocketURL()},
	)
	return nil
}

// findPaired looks addr up in the paired list. Lookup failures are ignored;
// the operation that follows reports them.
func findPaired(cmd *cobra.Command, addr string) (session.PairedDevice, bool) {
	snap, err := newService().LoadDevices(cmd.Context())
	if err != nil {
		return session.PairedDevice{}, false
	}
	for _, d := range snap.Paired {
		if bluez.SameAddress(d.Address, addr) {
			return d, true
		}
	}
	return session.PairedDevice{}, false
}

// isConfigCommand reports whether cmd is 'config' or one of its subcommands.
func isConfigCommand(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c == configCmd {
			return true
		}
	}
	return false
}

var errConfigExists = errors.New("config file already exists (use --force to overwrite)")

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration file",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective preferences",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		printer := ui.NewPrinter(cmd.OutOrStdout())
		printer.PrintSuccess("Preferences",
			ui.Param{Key: "Refresh interval", Value: prefs.RefreshInterval().String()},
			ui.Param{Key: "Tick interval", Value: prefs.TickInterval().String()},
			ui.Param{Key: "Reconnect window", Value: fmt.Sprintf("%d ticks", prefs.ReconnectWindowSeconds)},
			ui.Param{Key: "Discovery timeout", Value: prefs.DiscoveryTimeout().String()},
			ui.Param{Key: "Power supply dir", Value: prefs.PowerSupplyDir},
			ui.Param{Key: "Status listen", Value: prefs.StatusListen},
			ui.Param{Key: "Log level", Value: prefs.LogLevel},
		)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with default values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		printer := ui.NewPrinter(cmd.OutOrStdout())

		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			printer.PrintFailure("Config not written", errConfigExists)
			return errConfigExists
		}
		if err := config.New().SaveFile(path); err != nil {
			printer.PrintFailure("Config not written", err)
			return err
		}
		printer.PrintSuccess("Config written", ui.Param{Key: "Path", Value: path})
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")

	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

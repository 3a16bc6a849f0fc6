package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/nestctl/internal/config"
	"github.com/muurk/nestctl/internal/nest"
	"github.com/muurk/nestctl/internal/ui"
)

// Command flags
var (
	fahrenheit  bool
	deviceFlag  string
	structureID string
)

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(setTempCmd)
	rootCmd.AddCommand(awayCmd)
	rootCmd.AddCommand(homeCmd)
	rootCmd.AddCommand(fanCmd)
	rootCmd.AddCommand(modeCmd)
}

// statusCmd shows every structure and thermostat
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show thermostat and structure status",
	Long: `Log in, fetch the full account status, and show every structure and
thermostat on it: current and target temperature, heat/cool mode, fan
mode, humidity, and whether each home is set to away.`,
	Example: `  # Table output
  nestctl status

  # Temperatures in Fahrenheit
  nestctl status --fahrenheit

  # JSON output for scripting
  nestctl status --format json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVarP(&fahrenheit, "fahrenheit", "F", false, "Show temperatures in °F")
}

func runStatus(cmd *cobra.Command, args []string) error {
	client, snapshot, err := connect(cmd)
	if err != nil {
		return err
	}
	rememberDevices(snapshot.IDs(nest.CategoryDevice))

	p := ui.NewPrinter(cmd.OutOrStdout())
	opts := ui.StatusOptions{
		Format:     outputFormat,
		Fahrenheit: fahrenheit,
		Nicknames:  nicknames(),
		Width:      p.Width(),
	}

	out, err := ui.RenderStatus(snapshot, opts)
	if err != nil {
		return err
	}

	if outputFormat == config.FormatTable {
		session := client.Session()
		p.PrintHeader("Nest Status", session.UserKey(), map[string]string{
			"Transport":   session.Transport.String(),
			"Thermostats": strconv.Itoa(len(snapshot.IDs(nest.CategoryDevice))),
			"Structures":  strconv.Itoa(len(snapshot.IDs(nest.CategoryStructure))),
		})
	}
	p.Println(out)
	return nil
}

// devicesCmd lists device ids
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List thermostat ids",
	Long: `List the id of every thermostat on the account, with its name and any
nickname set with 'nestctl config alias'. Ids and nicknames are accepted
by --device.`,
	Args: cobra.NoArgs,
	RunE: runDevices,
}

func runDevices(cmd *cobra.Command, args []string) error {
	client, snapshot, err := connect(cmd)
	if err != nil {
		return err
	}

	ids, err := client.DeviceIDs()
	if err != nil {
		return err
	}
	rememberDevices(ids)
	if len(ids) == 0 && outputFormat != config.FormatJSON {
		ui.NewPrinter(cmd.OutOrStdout()).PrintWarning("No thermostats on this account", nil)
		return nil
	}

	out, err := ui.RenderDeviceIDs(snapshot, ids, ui.StatusOptions{
		Format:    outputFormat,
		Nicknames: nicknames(),
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}

// setTempCmd changes a target temperature
var setTempCmd = &cobra.Command{
	Use:   "set-temp <temperature>",
	Short: "Set the target temperature",
	Long: `Set the target temperature of a thermostat.

Values above 45 are taken as Fahrenheit and converted to Celsius before
being sent; anything else is Celsius. Without --device the first
thermostat on the account is changed.`,
	Example: `  # 21°C on the first thermostat
  nestctl set-temp 21

  # 70°F on a thermostat by nickname
  nestctl set-temp 70 --device hall`,
	Args: cobra.ExactArgs(1),
	RunE: runSetTemp,
}

func init() {
	setTempCmd.Flags().StringVarP(&deviceFlag, "device", "d", "", "Device id or nickname (default: first device)")
}

func runSetTemp(cmd *cobra.Command, args []string) error {
	value, err := parseTemperature(args[0])
	if err != nil {
		return err
	}

	client, snapshot, err := connect(cmd)
	if err != nil {
		return err
	}

	id, err := targetDevice(snapshot)
	if err != nil {
		return err
	}
	if err := client.SetTemperatureForDevice(cmd.Context(), id, value); err != nil {
		return err
	}

	return report(cmd, "Target temperature set", map[string]string{
		"Device":    describeDevice(snapshot, id),
		"Requested": args[0],
		"Target":    fmt.Sprintf("%.1f°C", nest.NormalizeTemperature(value)),
	})
}

// parseTemperature accepts a plain number with an optional °C/°F/C/F suffix.
// A unit suffix only documents the value; the above-45 rule still decides.
func parseTemperature(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(strings.TrimSuffix(s, "C"), "F")
	s = strings.TrimSuffix(strings.TrimSuffix(s, "c"), "f")
	s = strings.TrimSuffix(s, "°")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid temperature %q: %w", raw, err)
	}
	return v, nil
}

// awayCmd and homeCmd change a structure's away state
var awayCmd = &cobra.Command{
	Use:   "away",
	Short: "Set a home to away",
	Long:  `Mark a structure away. Without --structure the first structure on the account is changed.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAway(cmd, true)
	},
}

var homeCmd = &cobra.Command{
	Use:   "home",
	Short: "Set a home to home",
	Long:  `Mark a structure home. Without --structure the first structure on the account is changed.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAway(cmd, false)
	},
}

func init() {
	awayCmd.Flags().StringVarP(&structureID, "structure", "s", "", "Structure id (default: first structure)")
	homeCmd.Flags().StringVarP(&structureID, "structure", "s", "", "Structure id (default: first structure)")
}

func runAway(cmd *cobra.Command, away bool) error {
	client, snapshot, err := connect(cmd)
	if err != nil {
		return err
	}

	id := structureID
	if id == "" {
		ids := snapshot.IDs(nest.CategoryStructure)
		if len(ids) > 0 {
			id = ids[0]
		}
	}

	if away {
		err = client.SetAway(cmd.Context(), true, id)
	} else {
		err = client.SetHome(cmd.Context(), id)
	}
	if err != nil {
		return err
	}

	title, state := "Home set to away", "away"
	if !away {
		title, state = "Home set to home", "home"
	}
	return report(cmd, title, map[string]string{
		"Structure": describeStructure(snapshot, id),
		"State":     state,
	})
}

// fanCmd changes a device's fan mode
var fanCmd = &cobra.Command{
	Use:       "fan <auto|on>",
	Short:     "Set the fan mode",
	Long:      `Set the fan of a thermostat to run automatically or continuously.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(nest.FanModeAuto), string(nest.FanModeOn)},
	RunE:      runFan,
}

func init() {
	fanCmd.Flags().StringVarP(&deviceFlag, "device", "d", "", "Device id or nickname (default: first device)")
}

func runFan(cmd *cobra.Command, args []string) error {
	mode := nest.FanMode(strings.ToLower(args[0]))
	if !mode.Valid() {
		return fmt.Errorf("invalid fan mode %q (want auto or on)", args[0])
	}

	client, snapshot, err := connect(cmd)
	if err != nil {
		return err
	}
	id, err := targetDevice(snapshot)
	if err != nil {
		return err
	}

	switch mode {
	case nest.FanModeOn:
		err = client.SetFanModeOn(cmd.Context(), id)
	default:
		err = client.SetFanModeAuto(cmd.Context(), id)
	}
	if err != nil {
		return err
	}

	return report(cmd, "Fan mode set", map[string]string{
		"Device": describeDevice(snapshot, id),
		"Fan":    string(mode),
	})
}

// modeCmd changes a device's target temperature type
var modeCmd = &cobra.Command{
	Use:       "mode <cool|heat|range>",
	Short:     "Set heating or cooling mode",
	Long:      `Set whether a thermostat heats, cools, or holds a temperature range.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(nest.TemperatureTypeCool), string(nest.TemperatureTypeHeat), string(nest.TemperatureTypeRange)},
	RunE:      runMode,
}

func init() {
	modeCmd.Flags().StringVarP(&deviceFlag, "device", "d", "", "Device id or nickname (default: first device)")
}

func runMode(cmd *cobra.Command, args []string) error {
	typ := nest.TemperatureType(strings.ToLower(args[0]))
	if !typ.Valid() {
		return fmt.Errorf("invalid mode %q (want cool, heat or range)", args[0])
	}

	client, snapshot, err := connect(cmd)
	if err != nil {
		return err
	}
	id, err := targetDevice(snapshot)
	if err != nil {
		return err
	}

	if err := client.SetTargetTemperatureType(cmd.Context(), id, typ); err != nil {
		return err
	}

	return report(cmd, "Mode set", map[string]string{
		"Device": describeDevice(snapshot, id),
		"Mode":   string(typ),
	})
}

// targetDevice resolves --device (id or nickname), defaulting to the first
// device in the snapshot
func targetDevice(snapshot nest.Snapshot) (string, error) {
	if deviceFlag != "" {
		return prefs.ResolveDevice(deviceFlag), nil
	}
	ids := snapshot.IDs(nest.CategoryDevice)
	if len(ids) == 0 {
		return "", nest.NewInvalidArgumentError(nest.ErrNoDevices.Error())
	}
	return ids[0], nil
}

func describeDevice(snapshot nest.Snapshot, id string) string {
	for _, t := range snapshot.Devices() {
		if t.ID == id && t.Name != id {
			return fmt.Sprintf("%s (%s)", t.Name, id)
		}
	}
	return id
}

func describeStructure(snapshot nest.Snapshot, id string) string {
	for _, st := range snapshot.Structures() {
		if st.ID == id && st.Name != id {
			return fmt.Sprintf("%s (%s)", st.Name, id)
		}
	}
	return id
}

package main

import (
	"context"
	"errors"
	"io"
	"sort"
	"time"

	"github.com/berfenger/natureremo2mqtt/internal/core/domain"
	"github.com/berfenger/natureremo2mqtt/internal/core/service"
	"github.com/berfenger/natureremo2mqtt/pkg/natureremo"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type deviceView struct {
	Id       string             `yaml:"id"`
	Name     string             `yaml:"name"`
	Firmware string             `yaml:"firmware"`
	Serial   string             `yaml:"serial"`
	Sensors  map[string]float64 `yaml:"sensors,omitempty"`
	Motion   *time.Time         `yaml:"last_motion,omitempty"`
}

type applianceView struct {
	Id       string       `yaml:"id"`
	Type     string       `yaml:"type"`
	Nickname string       `yaml:"nickname"`
	Device   string       `yaml:"device"`
	Model    string       `yaml:"model,omitempty"`
	Climate  *climateView `yaml:"climate,omitempty"`
}

type climateView struct {
	Mode       string   `yaml:"mode"`
	Target     *float64 `yaml:"target_temperature,omitempty"`
	Modes      []string `yaml:"modes"`
	FanMode    string   `yaml:"fan_mode,omitempty"`
	FanModes   []string `yaml:"fan_modes,omitempty"`
	SwingMode  string   `yaml:"swing_mode,omitempty"`
	SwingModes []string `yaml:"swing_modes,omitempty"`
	MinTemp    float64  `yaml:"min_temp"`
	MaxTemp    float64  `yaml:"max_temp"`
	TempStep   float64  `yaml:"temp_step"`
}

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Validate the token and show the account",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()
		user, err := client.GetMe(ctx)
		if err != nil {
			return err
		}
		return printYAML(cmd.OutOrStdout(), map[string]string{
			"id":       user.Id,
			"nickname": user.Nickname,
		})
	},
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List devices and their latest sensor readings",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()
		devices, err := client.GetDevices(ctx)
		if err != nil {
			return err
		}
		views := make([]deviceView, 0, len(devices))
		for _, d := range devices {
			views = append(views, newDeviceView(d))
		}
		sort.Slice(views, func(i, j int) bool { return views[i].Id < views[j].Id })
		return printYAML(cmd.OutOrStdout(), views)
	},
}

var appliancesCmd = &cobra.Command{
	Use:   "appliances",
	Short: "List appliances, air conditioners with their climate state",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()
		appliances, err := client.GetAppliances(ctx)
		if err != nil {
			return err
		}
		views := make([]applianceView, 0, len(appliances))
		for _, a := range appliances {
			views = append(views, newApplianceView(a))
		}
		sort.Slice(views, func(i, j int) bool { return views[i].Id < views[j].Id })
		return printYAML(cmd.OutOrStdout(), views)
	},
}

var (
	flagAirconMode        string
	flagAirconTemperature float64
	flagAirconFanMode     string
	flagAirconSwingMode   string
)

var airconCmd = &cobra.Command{
	Use:   "aircon",
	Short: "Control air conditioners",
}

var airconSetCmd = &cobra.Command{
	Use:   "set <appliance id>",
	Short: "Change the settings of an air conditioner",
	Long: `Change the settings of an air conditioner. Modes use the climate names
published over MQTT (auto, fan_only, cool, dry, heat, off).`,
	Args: cobra.ExactArgs(1),
	RunE: runAirconSet,
}

func init() {
	airconSetCmd.Flags().StringVar(&flagAirconMode, "mode", "", "HVAC mode")
	airconSetCmd.Flags().Float64Var(&flagAirconTemperature, "temperature", 0, "Target temperature")
	airconSetCmd.Flags().StringVar(&flagAirconFanMode, "fan-mode", "", "Fan mode (air volume)")
	airconSetCmd.Flags().StringVar(&flagAirconSwingMode, "swing-mode", "", "Swing mode (air direction)")
	airconCmd.AddCommand(airconSetCmd)

	rootCmd.AddCommand(meCmd, devicesCmd, appliancesCmd, airconCmd)
}

func runAirconSet(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	appliances, err := client.GetAppliances(ctx)
	if err != nil {
		return err
	}
	var appliance *natureremo.Appliance
	for i := range appliances {
		if appliances[i].Id == args[0] {
			appliance = &appliances[i]
		}
	}
	if appliance == nil {
		return natureremo.NotFoundError()
	}
	aircon, err := service.NewAircon(*appliance, domain.BridgeDevice("cli"), zap.NewNop())
	if err != nil {
		return err
	}

	var updates []natureremo.AirconSettingsUpdate
	flags := cmd.Flags()
	if flags.Changed("mode") {
		u, err := aircon.SetHVACMode(flagAirconMode)
		if err != nil {
			return err
		}
		updates = append(updates, u)
	}
	if flags.Changed("temperature") {
		u, err := aircon.SetTemperature(flagAirconTemperature)
		if err != nil {
			return err
		}
		updates = append(updates, u)
	}
	if flags.Changed("fan-mode") {
		u, err := aircon.SetFanMode(flagAirconFanMode)
		if err != nil {
			return err
		}
		updates = append(updates, u)
	}
	if flags.Changed("swing-mode") {
		u, err := aircon.SetSwingMode(flagAirconSwingMode)
		if err != nil {
			return err
		}
		updates = append(updates, u)
	}
	update := mergeUpdates(updates...)
	if update.IsEmpty() {
		return errors.New("nothing to change")
	}

	settings, err := client.UpdateAirconSettings(ctx, appliance.Id, update)
	if err != nil {
		return err
	}
	aircon.Update(settings, nil)
	view := newApplianceView(*appliance)
	view.Climate = newClimateView(aircon)
	return printYAML(cmd.OutOrStdout(), view)
}

// mergeUpdates combines updates, later fields win
func mergeUpdates(updates ...natureremo.AirconSettingsUpdate) natureremo.AirconSettingsUpdate {
	var merged natureremo.AirconSettingsUpdate
	for _, u := range updates {
		if u.Temperature != nil {
			merged.Temperature = u.Temperature
		}
		if u.OperationMode != nil {
			merged.OperationMode = u.OperationMode
		}
		if u.AirVolume != nil {
			merged.AirVolume = u.AirVolume
		}
		if u.AirDirection != nil {
			merged.AirDirection = u.AirDirection
		}
		if u.Button != nil {
			merged.Button = u.Button
		}
	}
	return merged
}

func newDeviceView(d natureremo.Device) deviceView {
	view := deviceView{
		Id:       d.Id,
		Name:     d.Name,
		Firmware: d.FirmwareVersion,
		Serial:   d.SerialNumber,
	}
	for kind, value := range d.NewestEvents {
		if kind == natureremo.SENSOR_KIND_MOTION {
			createdAt := value.CreatedAt
			view.Motion = &createdAt
			continue
		}
		if view.Sensors == nil {
			view.Sensors = map[string]float64{}
		}
		view.Sensors[kind] = value.Val
	}
	return view
}

func newApplianceView(a natureremo.Appliance) applianceView {
	view := applianceView{
		Id:       a.Id,
		Type:     a.Type,
		Nickname: a.Nickname,
		Device:   a.Device.Name,
	}
	if a.Model != nil {
		view.Model = domain.ApplianceModelName(a)
	}
	if a.Type == natureremo.APPLIANCE_TYPE_AC {
		if aircon, err := service.NewAircon(a, domain.BridgeDevice("cli"), zap.NewNop()); err == nil {
			view.Climate = newClimateView(aircon)
		}
	}
	return view
}

func newClimateView(aircon *service.Aircon) *climateView {
	return &climateView{
		Mode:       aircon.HVACMode(),
		Target:     aircon.TargetTemperature(),
		Modes:      aircon.HVACModes(),
		FanMode:    aircon.State().FanMode,
		FanModes:   aircon.FanModes(),
		SwingMode:  aircon.State().SwingMode,
		SwingModes: aircon.SwingModes(),
		MinTemp:    aircon.MinTemp(),
		MaxTemp:    aircon.MaxTemp(),
		TempStep:   aircon.TargetTemperatureStep(),
	}
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*flagTimeout)
}

func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(v)
}

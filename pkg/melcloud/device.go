package melcloud

import (
	"context"
	"fmt"
	"maps"
	"math"
	"sort"
	"strings"
	"sync"
)

const (
	DEVICE_TYPE_ATA = 0
	DEVICE_TYPE_ATW = 1
	DEVICE_TYPE_ERV = 3

	UNIT_TEMP_CELSIUS    = "celsius"
	UNIT_TEMP_FAHRENHEIT = "fahrenheit"

	PROPERTY_POWER = "power"

	FLAG_POWER = 0x01
)

// DeviceConf is a device entry as listed by /User/ListDevices.
// Device holds the capability and last known state block of the entry.
type DeviceConf struct {
	DeviceID     int            `json:"DeviceID"`
	DeviceName   string         `json:"DeviceName"`
	BuildingID   int            `json:"BuildingID"`
	MacAddress   string         `json:"MacAddress"`
	SerialNumber string         `json:"SerialNumber"`
	Type         int            `json:"Type"`
	Device       map[string]any `json:"Device"`
}

type UnitInfo struct {
	Model  string
	Serial string
}

// Device is an in-memory snapshot of one MELCloud device.
// Update re-fetches the whole state; Set writes a property map and stores the
// state returned by MELCloud.
type Device struct {
	conf     DeviceConf
	api      DeviceAPI
	token    string
	tempUnit string

	mu    sync.RWMutex
	state map[string]any
}

func NewDevice(conf DeviceConf, api DeviceAPI, token string, tempUnit string) *Device {
	state := map[string]any{}
	maps.Copy(state, conf.Device)
	return &Device{
		conf:     conf,
		api:      api,
		token:    token,
		tempUnit: tempUnit,
		state:    state,
	}
}

func (d *Device) DeviceID() int {
	return d.conf.DeviceID
}

func (d *Device) BuildingID() int {
	return d.conf.BuildingID
}

func (d *Device) Name() string {
	return d.conf.DeviceName
}

func (d *Device) Mac() string {
	return d.conf.MacAddress
}

func (d *Device) Serial() string {
	return d.conf.SerialNumber
}

func (d *Device) Type() int {
	return d.conf.Type
}

// TempUnit returns "celsius", "fahrenheit" or "" when unknown.
func (d *Device) TempUnit() string {
	return d.tempUnit
}

// Units returns the indoor/outdoor unit models reported for the device.
func (d *Device) Units() []UnitInfo {
	raw, ok := d.conf.Device["Units"].([]any)
	if !ok {
		return nil
	}
	var units []UnitInfo
	for _, r := range raw {
		u, ok := r.(map[string]any)
		if !ok {
			continue
		}
		model, _ := u["Model"].(string)
		serial, _ := u["SerialNumber"].(string)
		units = append(units, UnitInfo{Model: model, Serial: serial})
	}
	return units
}

// Power reports the device power flag.
func (d *Device) Power() bool {
	return d.boolProp("Power")
}

func (d *Device) TemperatureIncrement() float64 {
	if inc := d.confFloat("TemperatureIncrement"); inc > 0 {
		return inc
	}
	return 0.5
}

func (d *Device) Update(ctx context.Context) error {
	state, err := d.api.FetchDeviceState(ctx, d.token, d.conf.DeviceID, d.conf.BuildingID)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.state = state
	d.mu.Unlock()
	return nil
}

// Set applies props on a copy of the current state and writes it in a single
// request. Unknown properties or values fail before any request is made.
func (d *Device) Set(ctx context.Context, props map[string]any) error {
	if len(props) == 0 {
		return nil
	}

	d.mu.RLock()
	next := make(map[string]any, len(d.state))
	maps.Copy(next, d.state)
	d.mu.RUnlock()

	var flags int64
	// sorted for deterministic errors
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		var (
			flag int64
			err  error
		)
		switch d.conf.Type {
		case DEVICE_TYPE_ATA:
			flag, err = d.applyAtaProp(next, key, props[key])
		case DEVICE_TYPE_ATW:
			flag, err = d.applyAtwProp(next, key, props[key])
		default:
			err = fmt.Errorf("unsupported device type %d", d.conf.Type)
		}
		if err != nil {
			return err
		}
		flags |= flag
	}
	next["EffectiveFlags"] = flags
	next["HasPendingCommand"] = true

	updated, err := d.api.SetDeviceState(ctx, d.token, d.conf.Type, next)
	if err != nil {
		return err
	}
	if _, ok := updated["DeviceID"]; !ok {
		updated["DeviceID"] = d.conf.DeviceID
	}
	d.mu.Lock()
	d.state = updated
	d.mu.Unlock()
	return nil
}

func (d *Device) roundTemperature(value float64) float64 {
	inc := d.TemperatureIncrement()
	return math.Round(value/inc) * inc
}

func (d *Device) floatProp(key string) float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return toFloat(d.state[key])
}

func (d *Device) floatPropOk(key string) (float64, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.state[key]
	if !ok || v == nil {
		return 0, false
	}
	return toFloat(v), true
}

func (d *Device) intProp(key string) int {
	return int(d.floatProp(key))
}

func (d *Device) boolProp(key string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, _ := d.state[key].(bool)
	return b
}

func (d *Device) confFloat(key string) float64 {
	return toFloat(d.conf.Device[key])
}

func (d *Device) confBool(key string) bool {
	b, _ := d.conf.Device[key].(bool)
	return b
}

func (d *Device) confString(key string) string {
	s, _ := d.conf.Device[key].(string)
	return s
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func boolValue(key string, v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("invalid value for %s: %v", key, v)
	}
	return b, nil
}

func floatValue(key string, v any) (float64, error) {
	switch n := v.(type) {
	case float64, float32, int, int64:
		return toFloat(n), nil
	default:
		return 0, fmt.Errorf("invalid value for %s: %v", key, v)
	}
}

func stringValue(key string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("invalid value for %s: %v", key, v)
	}
	return strings.TrimSpace(s), nil
}

package melcloud

import (
	"context"
	"maps"
	"sync"
	"time"
)

const (
	TEST_TOKEN         = "test-context-key"
	TEST_ATA_DEVICE_ID = 1001
	TEST_ATW_DEVICE_ID = 2002
	TEST_BUILDING_ID   = 77
	TEST_ATA_SERIAL    = "ATA0001"
	TEST_ATA_MAC       = "aa:bb:cc:00:00:01"
	TEST_ATW_SERIAL    = "ATW0002"
	TEST_ATW_MAC       = "aa:bb:cc:00:00:02"
	TEST_EMAIL         = "user@example.com"
	TEST_PASSWORD      = "secret"
	TEST_ATA_NAME      = "Living Room"
	TEST_ATW_NAME      = "Heat Pump"
)

// SetCall is a recorded write to a test device.
type SetCall struct {
	DeviceID int
	State    map[string]any
}

// TestCloud is an in-memory MELCloud account with one ATA and one ATW device.
// It serves as Cloud and DeviceAPI for tests.
type TestCloud struct {
	mu sync.Mutex

	Email    string
	Password string
	Token    string
	Confs    []DeviceConf
	States   map[int]map[string]any

	LoginError  error
	DevicesErr  error
	FetchError  error
	SetError    error
	Delay       time.Duration
	FetchCalls  int
	SetCalls    []SetCall
	LoginCalls  int
	DeviceCalls int
}

func NewTestCloud() *TestCloud {
	ata := TestATAConf()
	atw := TestATWConf()
	states := map[int]map[string]any{}
	states[ata.DeviceID] = maps.Clone(ata.Device)
	states[atw.DeviceID] = maps.Clone(atw.Device)
	return &TestCloud{
		Email:    TEST_EMAIL,
		Password: TEST_PASSWORD,
		Token:    TEST_TOKEN,
		Confs:    []DeviceConf{ata, atw},
		States:   states,
	}
}

func TestATAConf() DeviceConf {
	return DeviceConf{
		DeviceID:     TEST_ATA_DEVICE_ID,
		DeviceName:   TEST_ATA_NAME,
		BuildingID:   TEST_BUILDING_ID,
		MacAddress:   TEST_ATA_MAC,
		SerialNumber: TEST_ATA_SERIAL,
		Type:         DEVICE_TYPE_ATA,
		Device: map[string]any{
			"DeviceID":                    float64(TEST_ATA_DEVICE_ID),
			"Power":                       true,
			"OperationMode":               float64(1),
			"RoomTemperature":             21.5,
			"SetTemperature":              22.0,
			"SetFanSpeed":                 float64(0),
			"NumberOfFanSpeeds":           float64(3),
			"VaneHorizontal":              float64(3),
			"VaneVertical":                float64(7),
			"TemperatureIncrement":        0.5,
			"MinTempHeat":                 10.0,
			"MaxTempHeat":                 31.0,
			"MinTempCoolDry":              16.0,
			"MaxTempCoolDry":              31.0,
			"ModelSupportsHeat":           true,
			"ModelSupportsDry":            true,
			"ModelSupportsFan":            true,
			"ModelSupportsAuto":           true,
			"ModelSupportsVaneVertical":   true,
			"ModelSupportsVaneHorizontal": true,
			"HasEnergyConsumedMeter":      true,
			"CurrentEnergyConsumed":       float64(123400),
			"Units":                       []any{
				map[string]any{"Model": "MSZ-LN25VG", "SerialNumber": "IU1"},
				map[string]any{"Model": "MUZ-LN25VG", "SerialNumber": "OU1"},
			},
		},
	}
}

func TestATWConf() DeviceConf {
	return DeviceConf{
		DeviceID:     TEST_ATW_DEVICE_ID,
		DeviceName:   TEST_ATW_NAME,
		BuildingID:   TEST_BUILDING_ID,
		MacAddress:   TEST_ATW_MAC,
		SerialNumber: TEST_ATW_SERIAL,
		Type:         DEVICE_TYPE_ATW,
		Device: map[string]any{
			"DeviceID":                    float64(TEST_ATW_DEVICE_ID),
			"Power":                       true,
			"OperationMode":               float64(2),
			"HasZone2":                    true,
			"CanCool":                     true,
			"Zone1Name":                   "Ground Floor",
			"Zone2Name":                   "",
			"OperationModeZone1":          float64(0),
			"OperationModeZone2":          float64(1),
			"IdleZone1":                   false,
			"IdleZone2":                   true,
			"RoomTemperatureZone1":        20.5,
			"RoomTemperatureZone2":        19.0,
			"SetTemperatureZone1":         21.0,
			"SetTemperatureZone2":         20.0,
			"FlowTemperatureZone1":        35.0,
			"FlowTemperatureZone2":        33.0,
			"ReturnTemperatureZone1":      30.5,
			"ReturnTemperatureZone2":      29.0,
			"SetHeatFlowTemperatureZone1": 40.0,
			"SetHeatFlowTemperatureZone2": 38.0,
			"SetCoolFlowTemperatureZone1": 18.0,
			"SetCoolFlowTemperatureZone2": 18.0,
			"TankWaterTemperature":        47.5,
			"SetTankWaterTemperature":     50.0,
			"OutdoorTemperature":          6.0,
			"TemperatureIncrement":        0.5,
			"MaxTankTemperature":          60.0,
			"MinTankTemperature":          40.0,
			"ForcedHotWaterMode":          false,
			"Units":                       []any{map[string]any{"Model": "EHST20D-VM2D", "SerialNumber": "HP1"}},
		},
	}
}

func (c *TestCloud) wait(ctx context.Context) error {
	if c.Delay <= 0 {
		return nil
	}
	select {
	case <-time.After(c.Delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *TestCloud) Login(ctx context.Context, email, password string) (string, error) {
	c.mu.Lock()
	c.LoginCalls++
	c.mu.Unlock()
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	if c.LoginError != nil {
		return "", c.LoginError
	}
	if email != c.Email || password != c.Password {
		return "", &HTTPError{Op: "login", StatusCode: 401}
	}
	return c.Token, nil
}

func (c *TestCloud) GetDevices(ctx context.Context, token string) ([]*Device, error) {
	c.mu.Lock()
	c.DeviceCalls++
	c.mu.Unlock()
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	if c.DevicesErr != nil {
		return nil, c.DevicesErr
	}
	if token != c.Token {
		return nil, &HTTPError{Op: "list devices", StatusCode: 401}
	}
	var devices []*Device
	for _, conf := range c.Confs {
		devices = append(devices, NewDevice(conf, c, token, ""))
	}
	return devices, nil
}

func (c *TestCloud) FetchDeviceState(ctx context.Context, token string, deviceID, buildingID int) (map[string]any, error) {
	c.mu.Lock()
	c.FetchCalls++
	c.mu.Unlock()
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	if c.FetchError != nil {
		return nil, c.FetchError
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.States[deviceID]), nil
}

func (c *TestCloud) SetDeviceState(ctx context.Context, token string, deviceType int, state map[string]any) (map[string]any, error) {
	c.mu.Lock()
	id := int(toFloat(state["DeviceID"]))
	c.SetCalls = append(c.SetCalls, SetCall{DeviceID: id, State: maps.Clone(state)})
	c.mu.Unlock()
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	if c.SetError != nil {
		return nil, c.SetError
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	next := maps.Clone(state)
	delete(next, "EffectiveFlags")
	delete(next, "HasPendingCommand")
	c.States[id] = next
	return maps.Clone(next), nil
}

// Calls returns a copy of the recorded writes.
func (c *TestCloud) Calls() []SetCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]SetCall(nil), c.SetCalls...)
}

// DeviceListCount returns how many times the device list was requested.
func (c *TestCloud) DeviceListCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.DeviceCalls
}

// ensure interface compliance
var _ Cloud = (*TestCloud)(nil)
var _ DeviceAPI = (*TestCloud)(nil)

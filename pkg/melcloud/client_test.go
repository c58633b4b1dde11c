package melcloud

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testServer(t *testing.T, handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, srv.Client(), zap.NewNop())
}

func TestLogin(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Login/ClientLogin", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "user@example.com", body["Email"])
		assert.Equal(t, APP_VERSION, body["AppVersion"])
		_, _ = w.Write([]byte(`{"ErrorId":null,"LoginData":{"ContextKey":"ctx-key","UseFahrenheit":true}}`))
	})

	token, err := client.Login(context.Background(), "user@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "ctx-key", token)
	assert.Equal(t, UNIT_TEMP_FAHRENHEIT, client.tempUnits["ctx-key"])
}

func TestLoginRejected(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ErrorId":1,"LoginData":null}`))
	})

	_, err := client.Login(context.Background(), "user@example.com", "bad")
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
}

func TestLoginForbidden(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := client.Login(context.Background(), "user@example.com", "pw")
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.False(t, errors.Is(err, ErrConnection))
}

func TestConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	client := NewClient(url, nil, zap.NewNop())

	_, err := client.Login(context.Background(), "user@example.com", "pw")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnection))
	assert.False(t, IsAuthError(err))
}

func TestListDevicesFlatten(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/User/ListDevices", r.URL.Path)
		assert.Equal(t, "tok", r.Header.Get(HEADER_CONTEXT_KEY))
		_, _ = w.Write([]byte(`[{"ID":5,"Structure":{
			"Devices":[{"DeviceID":1,"DeviceName":"a","Type":0}],
			"Areas":[{"Devices":[{"DeviceID":2,"DeviceName":"b","Type":1},{"DeviceID":1,"DeviceName":"a","Type":0}]}],
			"Floors":[{"Devices":[{"DeviceID":3,"DeviceName":"erv","Type":3}],
			           "Areas":[{"Devices":[{"DeviceID":4,"DeviceName":"d","Type":0,"BuildingID":9}]}]}]}}]`))
	})

	devices, err := client.GetDevices(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, devices, 3)
	assert.Equal(t, 1, devices[0].DeviceID())
	assert.Equal(t, 5, devices[0].BuildingID())
	assert.Equal(t, DEVICE_TYPE_ATW, devices[1].Type())
	assert.Equal(t, 4, devices[2].DeviceID())
	assert.Equal(t, 9, devices[2].BuildingID())
	// token was not obtained through this client
	assert.Equal(t, "", devices[0].TempUnit())
}

func TestDeviceSetPostsSingleRequest(t *testing.T) {
	var requests []map[string]any
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Device/SetAta", r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		requests = append(requests, body)
		_ = json.NewEncoder(w).Encode(body)
	})

	dev := NewDevice(TestATAConf(), client, "tok", UNIT_TEMP_CELSIUS)
	err := dev.Set(context.Background(), map[string]any{
		PROPERTY_POWER:          false,
		PROPERTY_OPERATION_MODE: OPERATION_MODE_COOL,
	})
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, float64(FLAG_POWER|FLAG_OPERATION_MODE), requests[0]["EffectiveFlags"])
	assert.Equal(t, true, requests[0]["HasPendingCommand"])
	assert.Equal(t, float64(3), requests[0]["OperationMode"])
	assert.False(t, dev.Power())
	assert.Equal(t, OPERATION_MODE_COOL, dev.OperationMode())
}

func TestDeviceSetRejectsInvalidValueWithoutRequest(t *testing.T) {
	cloud := NewTestCloud()
	dev := NewDevice(TestATAConf(), cloud, TEST_TOKEN, "")

	err := dev.Set(context.Background(), map[string]any{PROPERTY_VANE_VERTICAL: "sideways"})
	assert.Error(t, err)
	err = dev.Set(context.Background(), map[string]any{PROPERTY_FAN_SPEED: "9"})
	assert.Error(t, err)
	err = dev.Set(context.Background(), map[string]any{"unknown": 1})
	assert.Error(t, err)
	assert.Empty(t, cloud.Calls())
}

func TestAtaAccessors(t *testing.T) {
	dev := NewDevice(TestATAConf(), NewTestCloud(), TEST_TOKEN, "")

	assert.True(t, dev.Power())
	assert.Equal(t, OPERATION_MODE_HEAT, dev.OperationMode())
	assert.Equal(t, []string{"heat", "dry", "cool", "fan_only", "heat_cool"}, dev.OperationModes())
	assert.Equal(t, 21.5, dev.RoomTemperature())
	assert.Equal(t, FAN_SPEED_AUTO, dev.FanSpeed())
	assert.Equal(t, []string{"auto", "1", "2", "3"}, dev.FanSpeeds())
	assert.Equal(t, H_VANE_POSITION_3, dev.VaneHorizontal())
	assert.Equal(t, V_VANE_POSITION_SWING, dev.VaneVertical())
	assert.Contains(t, dev.VaneHorizontalPositions(), H_VANE_POSITION_SPLIT)
	assert.NotContains(t, dev.VaneVerticalPositions(), H_VANE_POSITION_SPLIT)
	require.NotNil(t, dev.TargetTemperatureMin())
	assert.Equal(t, 10.0, *dev.TargetTemperatureMin())
	assert.Equal(t, 31.0, *dev.TargetTemperatureMax())
	require.NotNil(t, dev.TotalEnergyConsumed())
	assert.InDelta(t, 123.4, *dev.TotalEnergyConsumed(), 0.0001)
	assert.Len(t, dev.Units(), 2)
}

func TestAtwZones(t *testing.T) {
	cloud := NewTestCloud()
	dev := NewDevice(TestATWConf(), cloud, TEST_TOKEN, "")

	zones := dev.Zones()
	require.Len(t, zones, 2)
	assert.Equal(t, "Ground Floor", zones[0].Name())
	assert.Equal(t, "Zone 2", zones[1].Name())
	assert.Equal(t, ZONE_OPERATION_MODE_HEAT_THERM, zones[0].OperationMode())
	assert.Equal(t, ZONE_OPERATION_MODE_HEAT_FLOW, zones[1].OperationMode())
	assert.Equal(t, ZONE_STATUS_HEAT, zones[0].Status())
	assert.Equal(t, ZONE_STATUS_IDLE, zones[1].Status())
	assert.Contains(t, zones[0].OperationModes(), ZONE_OPERATION_MODE_COOL_FLOW)
	assert.Equal(t, STATUS_HEAT_ZONES, dev.Status())

	require.NoError(t, zones[1].SetTargetHeatFlowTemperature(context.Background(), 41.3))
	calls := cloud.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, int64(FLAG_FLOW_TEMPERATURE), calls[0].State["EffectiveFlags"])
	assert.Equal(t, 41.5, zones[1].TargetHeatFlowTemperature())
}

func TestDeviceUpdate(t *testing.T) {
	cloud := NewTestCloud()
	dev := NewDevice(TestATAConf(), cloud, TEST_TOKEN, "")
	cloud.States[TEST_ATA_DEVICE_ID]["RoomTemperature"] = 18.0

	require.NoError(t, dev.Update(context.Background()))
	assert.Equal(t, 18.0, dev.RoomTemperature())
	assert.Equal(t, 1, cloud.FetchCalls)
}

func TestDeviceUpdateHonoursContext(t *testing.T) {
	cloud := NewTestCloud()
	cloud.Delay = time.Second
	dev := NewDevice(TestATAConf(), cloud, TEST_TOKEN, "")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := dev.Update(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

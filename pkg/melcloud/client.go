package melcloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DEFAULT_BASE_URL = "https://app.melcloud.com/Mitsubishi.Wifi.Client"
	APP_VERSION      = "1.19.1.1"

	HEADER_CONTEXT_KEY = "X-MitsContextKey"
	USER_AGENT         = "melcloud2mqtt"
)

// ErrConnection wraps every transport level failure (dial, TLS, timeout, reset).
var ErrConnection = errors.New("melcloud connection error")

type HTTPError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("melcloud %s: status %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("melcloud %s: status %d", e.Op, e.StatusCode)
}

// IsAuthError reports whether err is a 401/403 answer from MELCloud.
func IsAuthError(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusUnauthorized || httpErr.StatusCode == http.StatusForbidden
	}
	return false
}

// Cloud is the account level API of MELCloud.
type Cloud interface {
	Login(ctx context.Context, email, password string) (string, error)
	GetDevices(ctx context.Context, token string) ([]*Device, error)
}

// DeviceAPI is the per-device API used by Device to refresh and write state.
type DeviceAPI interface {
	FetchDeviceState(ctx context.Context, token string, deviceID, buildingID int) (map[string]any, error)
	SetDeviceState(ctx context.Context, token string, deviceType int, state map[string]any) (map[string]any, error)
}

type loginResponse struct {
	ErrorId   any        `json:"ErrorId"`
	ErrorCode any        `json:"ErrorCode"`
	LoginData *loginData `json:"LoginData"`
}

type loginData struct {
	ContextKey    string `json:"ContextKey"`
	UseFahrenheit bool   `json:"UseFahrenheit"`
}

type building struct {
	ID        int       `json:"ID"`
	Structure structure `json:"Structure"`
}

type structure struct {
	Devices []DeviceConf `json:"Devices"`
	Areas   []area       `json:"Areas"`
	Floors  []floor      `json:"Floors"`
}

type area struct {
	Devices []DeviceConf `json:"Devices"`
}

type floor struct {
	Devices []DeviceConf `json:"Devices"`
	Areas   []area       `json:"Areas"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	mu        sync.Mutex
	tempUnits map[string]string
}

func NewClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DEFAULT_BASE_URL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
		tempUnits:  map[string]string{},
	}
}

// Login exchanges email and password for a context key (token).
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body := map[string]any{
		"Email":           email,
		"Password":        password,
		"Language":        0,
		"AppVersion":      APP_VERSION,
		"Persist":         true,
		"CaptchaResponse": nil,
	}
	var resp loginResponse
	if err := c.doJSON(ctx, "login", http.MethodPost, "/Login/ClientLogin", "", body, &resp); err != nil {
		return "", err
	}
	if resp.ErrorId != nil || resp.LoginData == nil || resp.LoginData.ContextKey == "" {
		return "", &HTTPError{
			Op:         "login",
			StatusCode: http.StatusUnauthorized,
			Body:       fmt.Sprintf("error id %v", resp.ErrorId),
		}
	}

	unit := UNIT_TEMP_CELSIUS
	if resp.LoginData.UseFahrenheit {
		unit = UNIT_TEMP_FAHRENHEIT
	}
	c.mu.Lock()
	c.tempUnits[resp.LoginData.ContextKey] = unit
	c.mu.Unlock()

	return resp.LoginData.ContextKey, nil
}

// GetDevices lists every ATA and ATW device of the account behind token.
// Devices are de-duplicated by DeviceID across buildings, floors and areas.
func (c *Client) GetDevices(ctx context.Context, token string) ([]*Device, error) {
	var buildings []building
	if err := c.doJSON(ctx, "list devices", http.MethodGet, "/User/ListDevices", token, nil, &buildings); err != nil {
		return nil, err
	}

	c.mu.Lock()
	unit := c.tempUnits[token]
	c.mu.Unlock()

	var devices []*Device
	for _, conf := range flattenDevices(buildings) {
		if conf.Type != DEVICE_TYPE_ATA && conf.Type != DEVICE_TYPE_ATW {
			c.logger.Debug("melcloud: skipping unsupported device", zap.Int("device_id", conf.DeviceID), zap.Int("type", conf.Type))
			continue
		}
		devices = append(devices, NewDevice(conf, c, token, unit))
	}
	return devices, nil
}

func (c *Client) FetchDeviceState(ctx context.Context, token string, deviceID, buildingID int) (map[string]any, error) {
	path := fmt.Sprintf("/Device/Get?id=%d&buildingID=%d", deviceID, buildingID)
	var state map[string]any
	if err := c.doJSON(ctx, "get device", http.MethodGet, path, token, nil, &state); err != nil {
		return nil, err
	}
	return state, nil
}

func (c *Client) SetDeviceState(ctx context.Context, token string, deviceType int, state map[string]any) (map[string]any, error) {
	var path string
	switch deviceType {
	case DEVICE_TYPE_ATA:
		path = "/Device/SetAta"
	case DEVICE_TYPE_ATW:
		path = "/Device/SetAtw"
	default:
		return nil, fmt.Errorf("unsupported device type %d", deviceType)
	}
	var updated map[string]any
	if err := c.doJSON(ctx, "set device", http.MethodPost, path, token, state, &updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path, token string, in any, out any) error {
	var reqBody io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("melcloud %s: marshal request: %w", op, err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("melcloud %s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", USER_AGENT)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(HEADER_CONTEXT_KEY, token)
	}

	c.logger.Debug("melcloud: request", zap.String("op", op), zap.String("method", method), zap.String("path", path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConnection, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &HTTPError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("melcloud %s: decode response: %w", op, err)
	}
	return nil
}

func flattenDevices(buildings []building) []DeviceConf {
	var confs []DeviceConf
	visited := map[int]struct{}{}
	add := func(devices []DeviceConf, buildingID int) {
		for _, d := range devices {
			if _, found := visited[d.DeviceID]; found {
				continue
			}
			visited[d.DeviceID] = struct{}{}
			if d.BuildingID == 0 {
				d.BuildingID = buildingID
			}
			confs = append(confs, d)
		}
	}
	for _, b := range buildings {
		add(b.Structure.Devices, b.ID)
		for _, a := range b.Structure.Areas {
			add(a.Devices, b.ID)
		}
		for _, f := range b.Structure.Floors {
			add(f.Devices, b.ID)
			for _, a := range f.Areas {
				add(a.Devices, b.ID)
			}
		}
	}
	return confs
}

// ensure interface compliance
var _ Cloud = (*Client)(nil)
var _ DeviceAPI = (*Client)(nil)

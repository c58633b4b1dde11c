package entity

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/berfenger/melcloud2mqtt/internal/core/domain"
	"github.com/berfenger/melcloud2mqtt/pkg/melcloud"

	"go.uber.org/zap"
)

const MIN_TIME_BETWEEN_UPDATES = 60 * time.Second

// MelCloudDevice wraps a vendor device and tracks its availability. All
// entities of one device share the same wrapper, so one refresh serves them
// all.
type MelCloudDevice struct {
	Device *melcloud.Device

	logger      *zap.Logger
	minInterval time.Duration
	now         func() time.Time

	mu         sync.Mutex
	available  bool
	lastUpdate time.Time
}

func NewMelCloudDevice(device *melcloud.Device, logger *zap.Logger) *MelCloudDevice {
	return &MelCloudDevice{
		Device:      device,
		logger:      logger.With(zap.Int("device_id", device.DeviceID())),
		minInterval: MIN_TIME_BETWEEN_UPDATES,
		now:         time.Now,
		available:   true,
	}
}

func (d *MelCloudDevice) Name() string {
	return d.Device.Name()
}

func (d *MelCloudDevice) DeviceID() int {
	return d.Device.DeviceID()
}

func (d *MelCloudDevice) BuildingID() int {
	return d.Device.BuildingID()
}

func (d *MelCloudDevice) Available() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.available
}

// Update refreshes the device state at most once per minimum interval.
func (d *MelCloudDevice) Update(ctx context.Context) error {
	d.mu.Lock()
	if !d.lastUpdate.IsZero() && d.now().Sub(d.lastUpdate) < d.minInterval {
		d.mu.Unlock()
		return nil
	}
	d.lastUpdate = d.now()
	d.mu.Unlock()

	return d.call(ctx, "update", d.Device.Update)
}

func (d *MelCloudDevice) Set(ctx context.Context, props map[string]any) error {
	return d.call(ctx, "set", func(ctx context.Context) error {
		return d.Device.Set(ctx, props)
	})
}

// Call runs a vendor operation for this device with the same availability
// bookkeeping as Update and Set.
func (d *MelCloudDevice) Call(ctx context.Context, fn func(context.Context) error) error {
	return d.call(ctx, "call", fn)
}

func (d *MelCloudDevice) call(ctx context.Context, op string, fn func(context.Context) error) error {
	err := fn(ctx)
	switch {
	case err == nil:
		d.setAvailable(true)
	case errors.Is(err, melcloud.ErrConnection), errors.Is(err, context.DeadlineExceeded):
		d.logger.Warn(fmt.Sprintf("connection failed for %s", d.Name()), zap.String("op", op), zap.Error(err))
		d.setAvailable(false)
	}
	return err
}

func (d *MelCloudDevice) setAvailable(available bool) {
	d.mu.Lock()
	d.available = available
	d.mu.Unlock()
}

// DeviceInfo describes the physical device for the hub device registry.
func (d *MelCloudDevice) DeviceInfo(bridge domain.Device) domain.Device {
	var models []string
	for _, unit := range d.Device.Units() {
		if unit.Model != "" && !slices.Contains(models, unit.Model) {
			models = append(models, unit.Model)
		}
	}
	return domain.Device{
		Id:           fmt.Sprintf("%s-%s", d.Device.Mac(), d.Device.Serial()),
		Name:         d.Name(),
		Manufacturer: domain.MANUFACTURER_MITSUBISHI,
		Model:        strings.Join(models, ", "),
		ViaDevice:    bridge.Id,
	}
}

// uniqueId builds "serial-mac[-suffix...]".
func (d *MelCloudDevice) uniqueId(suffix ...string) string {
	parts := append([]string{d.Device.Serial(), d.Device.Mac()}, suffix...)
	return strings.Join(parts, "-")
}

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecords(t *testing.T) {
	c := NewMetricsCollector()

	c.SetAccounts(2)
	c.SetEntityAvailable("climate", "ata", true)
	current, target := 21.5, 22.0
	c.SetClimateTemperatures("ata", &current, &target)
	c.SetSensorValue("ata_energy", 123.4)
	c.ObserveCommand("climate", "mode", nil)
	c.ObserveCommand("climate", "mode", errors.New("boom"))
	c.ObservePoll("entry", 300*time.Millisecond, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.accounts))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.available.WithLabelValues("climate", "ata")))
	assert.Equal(t, 21.5, testutil.ToFloat64(c.currentTemperature.WithLabelValues("ata")))
	assert.Equal(t, 22.0, testutil.ToFloat64(c.targetTemperature.WithLabelValues("ata")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.commands.WithLabelValues("climate", "mode", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.commands.WithLabelValues("climate", "mode", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.pollSuccess.WithLabelValues("entry")))
}

func TestCollectorForgetEntities(t *testing.T) {
	c := NewMetricsCollector()
	c.SetEntityAvailable("climate", "ata", true)
	c.SetEntityAvailable("climate", "atw", true)
	current := 20.0
	c.SetClimateTemperatures("ata", &current, nil)

	c.ForgetEntities([]string{"ata"})

	assert.Equal(t, 1, testutil.CollectAndCount(c.available))
	assert.Equal(t, 0, testutil.CollectAndCount(c.currentTemperature))
}

func TestRegistryGathers(t *testing.T) {
	c := NewMetricsCollector()
	c.SetAccounts(1)
	registry := NewRegistry(c)

	families, err := registry.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["melcloud_accounts"])
	assert.True(t, names["go_goroutines"])
}

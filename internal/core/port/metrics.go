package port

import "time"

// MetricsRecorder receives the observations of the bridge.
type MetricsRecorder interface {
	SetAccounts(count int)
	SetEntityAvailable(entityType, id string, available bool)
	SetClimateTemperatures(id string, current, target *float64)
	SetSensorValue(id string, value float64)
	ObserveCommand(entityType, command string, err error)
	ObservePoll(entryId string, duration time.Duration, err error)
	ForgetEntities(ids []string)
}

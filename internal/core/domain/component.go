package domain

type Device struct {
	Id           string
	Name         string
	Version      string
	Model        string
	Manufacturer string
	ViaDevice    string
}

type GenericSensor struct {
	Device            Device
	Id                string
	SensorType        string
	Name              string
	UniqueId          string
	UnitOfMeasurement string
	StateClass        string // measurement, total_increasing
	DeviceClass       string // temperature, energy, connectivity
	EntityCategory    string // diagnostic, config, nil
	EnabledByDefault  *bool
	Icon              string
	Availability      bool // entity publishes its own availability
}

type GenericClimate struct {
	Device          Device
	Id              string
	Name            string
	UniqueId        string
	Icon            string
	Modes           []string
	FanModes        []string
	SwingModes      []string
	MinTemp         float64
	MaxTemp         float64
	TempStep        float64
	Precision       float64
	TemperatureUnit string
}

type GenericWaterHeater struct {
	Device          Device
	Id              string
	Name            string
	UniqueId        string
	Icon            string
	Modes           []string
	MinTemp         float64
	MaxTemp         float64
	Precision       float64
	TemperatureUnit string
}

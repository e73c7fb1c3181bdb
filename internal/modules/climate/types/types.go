package types

// Precipitation is one measurement row projected to its date and rainfall.
// A missing reading serialises as null.
type Precipitation struct {
	Date          string   `json:"Date"`
	Precipitation *float64 `json:"Precipitation"`
}

type Station struct {
	Station   string  `json:"Station"`
	Name      string  `json:"Name"`
	Latitude  float64 `json:"Latitude"`
	Longitude float64 `json:"Longitude"`
	Elevation float64 `json:"Elevation"`
}

type TemperatureObservation struct {
	Date string   `json:"Date"`
	Tobs *float64 `json:"Tobs"`
}

// TemperatureStats holds MIN/AVG/MAX of tobs over a date range. All three are
// nil when the range matched no rows.
type TemperatureStats struct {
	Min *float64 `json:"Min_Tobs"`
	Avg *float64 `json:"Avg_Tobs"`
	Max *float64 `json:"Max_Tobs"`
}

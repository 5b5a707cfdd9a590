// internal/predictive/rules.go

package predictive

// RuleType selects the evaluation strategy for a rule.
type RuleType string

const (
	RuleThreshold    RuleType = "threshold"
	RuleTrend        RuleType = "trend"
	RuleRateOfChange RuleType = "rate_of_change"
	RulePattern      RuleType = "pattern"
)

// AlertPriority orders predictive alerts by urgency.
type AlertPriority string

const (
	PriorityLow      AlertPriority = "low"
	PriorityMedium   AlertPriority = "medium"
	PriorityHigh     AlertPriority = "high"
	PriorityCritical AlertPriority = "critical"
)

// RuleConfig holds the tunable parameters for a rule. Only the fields
// relevant to the rule's type are used.
type RuleConfig struct {
	WindowHours      float64 `json:"window_hours,omitempty" mapstructure:"window_hours"`
	MinSamples       int     `json:"min_samples,omitempty" mapstructure:"min_samples"`
	TrendThreshold   float64 `json:"trend_threshold,omitempty" mapstructure:"trend_threshold"`
	WarningLevel     float64 `json:"warning_level,omitempty" mapstructure:"warning_level"`
	LowThreshold     float64 `json:"low_threshold,omitempty" mapstructure:"low_threshold"`
	HighThreshold    float64 `json:"high_threshold,omitempty" mapstructure:"high_threshold"`
	DurationMinutes  int     `json:"duration_minutes,omitempty" mapstructure:"duration_minutes"`
	MaxChangePerHour float64 `json:"max_change_per_hour,omitempty" mapstructure:"max_change_per_hour"`
	SpikeThreshold   float64 `json:"spike_threshold,omitempty" mapstructure:"spike_threshold"`
	MinSpikes        int     `json:"min_spikes,omitempty" mapstructure:"min_spikes"`
}

// Rule defines one predictive maintenance rule bound to a sensor channel.
// SensorID uses the collector's flattened path notation, e.g. "co2sensor/co2".
type Rule struct {
	ID          string     `json:"id" mapstructure:"id"`
	Name        string     `json:"name" mapstructure:"name"`
	Description string     `json:"description" mapstructure:"description"`
	Type        RuleType   `json:"type" mapstructure:"type"`
	SensorID    string     `json:"sensor_id" mapstructure:"sensor_id"`
	Enabled     bool       `json:"enabled" mapstructure:"enabled"`
	Config      RuleConfig `json:"config" mapstructure:"config"`
}

// DefaultRules returns the built-in rule set. Callers get a fresh slice so
// config overrides can mutate it safely.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:          "co2-rising-trend",
			Name:        "CO2 rising trend",
			Description: "Detects CO2 levels climbing over time",
			Type:        RuleTrend,
			SensorID:    "co2sensor/co2",
			Enabled:     true,
			Config: RuleConfig{
				WindowHours:    4,
				MinSamples:     20,
				TrendThreshold: 50, // ppm increase
				WarningLevel:   800,
			},
		},
		{
			ID:          "humidity-degradation",
			Name:        "Humidity deviation",
			Description: "Warns when humidity stays too low or too high",
			Type:        RuleThreshold,
			SensorID:    "htsensor/humidity",
			Enabled:     true,
			Config: RuleConfig{
				LowThreshold:    25,
				HighThreshold:   70,
				DurationMinutes: 30,
			},
		},
		{
			ID:          "temperature-instability",
			Name:        "Temperature instability",
			Description: "Detects erratic temperature behavior",
			Type:        RuleRateOfChange,
			SensorID:    "htsensor/ctemp",
			Enabled:     true,
			Config: RuleConfig{
				MaxChangePerHour: 3, // degrees
				WindowHours:      2,
			},
		},
		{
			ID:          "pm25-accumulation",
			Name:        "PM2.5 accumulation",
			Description: "Warns when particulate levels build up over time",
			Type:        RuleTrend,
			SensorID:    "pmsensor/pm2p5conc",
			Enabled:     true,
			Config: RuleConfig{
				WindowHours:    6,
				MinSamples:     30,
				TrendThreshold: 10, // µg/m³
				WarningLevel:   15,
			},
		},
		{
			ID:          "tvoc-spike-pattern",
			Name:        "TVOC spike pattern",
			Description: "Identifies recurring TVOC spikes",
			Type:        RulePattern,
			SensorID:    "co2sensor/tvoc",
			Enabled:     true,
			Config: RuleConfig{
				SpikeThreshold: 500,
				MinSpikes:      3,
				WindowHours:    24,
			},
		},
	}
}

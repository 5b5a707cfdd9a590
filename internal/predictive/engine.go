// internal/predictive/engine.go

// Package predictive runs a rule engine over recent sensor history to flag
// developing problems before they trip hard alarm thresholds. Rules are
// evaluated on every collector cycle against a rolling 24 hour window of
// per-sensor readings.
package predictive

import (
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/retea-se/halo-3c-dashboard/internal/window"
)

const historyLookback = 24 * time.Hour

// Alert is one generated predictive alert.
type Alert struct {
	ID                string        `json:"id"`
	RuleID            string        `json:"rule_id"`
	RuleName          string        `json:"rule_name"`
	Priority          AlertPriority `json:"priority"`
	Title             string        `json:"title"`
	Description       string        `json:"description"`
	SensorID          string        `json:"sensor_id"`
	CurrentValue      float64       `json:"current_value"`
	PredictedIssue    string        `json:"predicted_issue"`
	RecommendedAction string        `json:"recommended_action"`
	Confidence        float64       `json:"confidence"`
	Timestamp         time.Time     `json:"timestamp"`
	Expires           time.Time     `json:"expires"`
}

// Status summarizes the engine for the API.
type Status struct {
	Active          bool `json:"active"`
	RulesCount      int  `json:"rules_count"`
	EnabledRules    int  `json:"enabled_rules"`
	SensorsTracked  int  `json:"sensors_tracked"`
	AlertsGenerated int  `json:"alerts_generated"`
}

// Engine evaluates predictive rules against sensor history.
// Safe for concurrent use.
type Engine struct {
	mu           sync.Mutex
	rules        map[string]Rule
	history      *window.SignalWindow
	activeAlerts map[string]Alert
	alertCounter int
}

// NewEngine builds an engine with the given rule set. Pass DefaultRules()
// unless config overrides apply.
func NewEngine(rules []Rule) *Engine {
	m := make(map[string]Rule, len(rules))
	for _, r := range rules {
		m[r.ID] = r
	}
	return &Engine{
		rules:        m,
		history:      window.NewSignalWindow(historyLookback),
		activeAlerts: make(map[string]Alert),
	}
}

// AddReading records one sensor value without running the rules, for
// backfilling history before the first analysis pass.
func (e *Engine) AddReading(sensorID string, value float64, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history.Append(sensorID, value, now)
}

// Analyze records the given readings and evaluates every enabled rule whose
// sensor produced a value this cycle. Generated alerts are returned and kept
// in the active set until they expire.
func (e *Engine) Analyze(sensorData map[string]float64, now time.Time) []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	for sensorID, value := range sensorData {
		e.history.Append(sensorID, value, now)
	}

	var alerts []Alert

	ids := make([]string, 0, len(e.rules))
	for id := range e.rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		rule := e.rules[id]
		if !rule.Enabled {
			continue
		}
		value, ok := sensorData[rule.SensorID]
		if !ok {
			continue
		}

		alert, err := e.evaluateRule(rule, value, now)
		if err != nil {
			log.Printf("Error evaluating rule %s: %v", rule.ID, err)
			continue
		}
		if alert != nil {
			e.activeAlerts[alert.RuleID] = *alert
			alerts = append(alerts, *alert)
		}
	}

	e.expireAlerts(now)
	return alerts
}

func (e *Engine) evaluateRule(rule Rule, current float64, now time.Time) (*Alert, error) {
	switch rule.Type {
	case RuleThreshold:
		return e.evaluateThreshold(rule, current, now), nil
	case RuleTrend:
		return e.evaluateTrend(rule, current, now), nil
	case RuleRateOfChange:
		return e.evaluateRateOfChange(rule, current, now), nil
	case RulePattern:
		return e.evaluatePattern(rule, current, now), nil
	default:
		return nil, fmt.Errorf("unknown rule type %q", rule.Type)
	}
}

func (e *Engine) evaluateThreshold(rule Rule, current float64, now time.Time) *Alert {
	cfg := rule.Config

	var issue, action string
	switch {
	case cfg.LowThreshold != 0 && current < cfg.LowThreshold:
		issue = fmt.Sprintf("Value below minimum (%.1f < %g)", current, cfg.LowThreshold)
		action = "Check ventilation and possible leaks"
	case cfg.HighThreshold != 0 && current > cfg.HighThreshold:
		issue = fmt.Sprintf("Value above maximum (%.1f > %g)", current, cfg.HighThreshold)
		action = "Check HVAC and ventilation"
	default:
		return nil
	}

	return e.newAlert(rule, PriorityMedium,
		rule.Name+" - Deviation", issue,
		current, issue, action, 0.8, now)
}

func (e *Engine) evaluateTrend(rule Rule, current float64, now time.Time) *Alert {
	cfg := rule.Config
	windowHours := cfg.WindowHours
	if windowHours == 0 {
		windowHours = 4
	}
	minSamples := cfg.MinSamples
	if minSamples == 0 {
		minSamples = 10
	}

	values := e.windowValues(rule.SensorID, windowHours, now)
	if len(values) < minSamples {
		return nil
	}

	// Split-halves trend: compare the mean of the older half against the
	// mean of the newer half.
	firstHalf := mean(values[:len(values)/2])
	secondHalf := mean(values[len(values)/2:])
	trend := secondHalf - firstHalf

	if trend <= cfg.TrendThreshold {
		return nil
	}

	predicted := current + trend*0.5

	issue := fmt.Sprintf("Rising trend detected (+%.1f over %gh)", trend, windowHours)
	action := "Monitor the development"
	priority := PriorityLow
	if cfg.WarningLevel != 0 && predicted > cfg.WarningLevel {
		action = fmt.Sprintf("Expected to reach warning level (%g) within 2 hours", cfg.WarningLevel)
		priority = PriorityHigh
	}

	confidence := math.Min(0.9, 0.5+(trend/cfg.TrendThreshold)*0.2)

	return e.newAlert(rule, priority,
		rule.Name+" - Rising trend", issue,
		current, fmt.Sprintf("Predicted value in 2h: %.1f", predicted),
		action, confidence, now)
}

func (e *Engine) evaluateRateOfChange(rule Rule, current float64, now time.Time) *Alert {
	cfg := rule.Config
	windowHours := cfg.WindowHours
	if windowHours == 0 {
		windowHours = 2
	}
	maxChange := cfg.MaxChangePerHour
	if maxChange == 0 {
		maxChange = 5
	}

	values := e.windowValues(rule.SensorID, windowHours, now)
	if len(values) < 5 {
		return nil
	}

	minV, maxV := values[0], values[0]
	for _, v := range values[1:] {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	maxDiff := maxV - minV

	if maxDiff <= maxChange {
		return nil
	}

	return e.newAlert(rule, PriorityMedium,
		rule.Name+" - Instability",
		fmt.Sprintf("Large variation detected: %.1f over %gh", maxDiff, windowHours),
		current,
		"Possible regulation or sensor problem",
		"Check HVAC and sensor operation",
		0.7, now)
}

func (e *Engine) evaluatePattern(rule Rule, current float64, now time.Time) *Alert {
	cfg := rule.Config
	windowHours := cfg.WindowHours
	if windowHours == 0 {
		windowHours = 24
	}
	spikeThreshold := cfg.SpikeThreshold
	if spikeThreshold == 0 {
		spikeThreshold = 100
	}
	minSpikes := cfg.MinSpikes
	if minSpikes == 0 {
		minSpikes = 3
	}

	values := e.windowValues(rule.SensorID, windowHours, now)
	if len(values) < 10 {
		return nil
	}

	spikes := 0
	for _, v := range values {
		if v > spikeThreshold {
			spikes++
		}
	}

	if spikes < minSpikes {
		return nil
	}

	confidence := 0.6 + (float64(spikes)/float64(minSpikes*2))*0.2

	return e.newAlert(rule, PriorityMedium,
		rule.Name+" - Recurring spikes",
		fmt.Sprintf("%d spikes detected over %gh", spikes, windowHours),
		current,
		"Possible source of periodic emissions",
		"Investigate ventilation schedule and potential pollution sources",
		confidence, now)
}

func (e *Engine) windowValues(sensorID string, hours float64, now time.Time) []float64 {
	readings := e.history.Since(sensorID, time.Duration(hours*float64(time.Hour)), now)
	values := make([]float64, len(readings))
	for i, r := range readings {
		values[i] = r.Value
	}
	return values
}

func (e *Engine) newAlert(rule Rule, priority AlertPriority, title, description string,
	current float64, predictedIssue, action string, confidence float64, now time.Time) *Alert {

	e.alertCounter++

	return &Alert{
		ID:                fmt.Sprintf("pred-%d", e.alertCounter),
		RuleID:            rule.ID,
		RuleName:          rule.Name,
		Priority:          priority,
		Title:             title,
		Description:       description,
		SensorID:          rule.SensorID,
		CurrentValue:      current,
		PredictedIssue:    predictedIssue,
		RecommendedAction: action,
		Confidence:        math.Min(1.0, math.Max(0.0, confidence)),
		Timestamp:         now,
		Expires:           now.Add(time.Hour),
	}
}

func (e *Engine) expireAlerts(now time.Time) {
	for id, alert := range e.activeAlerts {
		if now.After(alert.Expires) {
			delete(e.activeAlerts, id)
		}
	}
}

// ActiveAlerts returns the unexpired alerts, newest first.
func (e *Engine) ActiveAlerts(now time.Time) []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.expireAlerts(now)

	alerts := make([]Alert, 0, len(e.activeAlerts))
	for _, a := range e.activeAlerts {
		alerts = append(alerts, a)
	}
	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].Timestamp.After(alerts[j].Timestamp)
	})
	return alerts
}

// Rules returns the configured rules sorted by id.
func (e *Engine) Rules() []Rule {
	e.mu.Lock()
	defer e.mu.Unlock()

	rules := make([]Rule, 0, len(e.rules))
	for _, r := range e.rules {
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules
}

// Status reports engine counters for the API.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	enabled := 0
	for _, r := range e.rules {
		if r.Enabled {
			enabled++
		}
	}
	return Status{
		Active:          true,
		RulesCount:      len(e.rules),
		EnabledRules:    enabled,
		SensorsTracked:  len(e.history.Channels()),
		AlertsGenerated: e.alertCounter,
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

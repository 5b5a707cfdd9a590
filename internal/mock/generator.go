// internal/mock/generator.go

// Package mock produces realistic historical sensor data for dashboard
// demos. The signal shapes carry deliberate degradation trends so the
// predictive rules have something to find: sound creeps up 5 dB over six
// months, light dims 15% over nine, temperature drifts up half a degree
// over the year.
package mock

import (
	"math"
	"math/rand"
	"time"
)

const deviceID = "halo-device-1"

// Sample is one generated reading set, keyed by sensor channel path.
type Sample struct {
	Timestamp time.Time
	DayIndex  int
	Sensors   map[string]float64
}

// Generator produces deterministic-ish mock data from a seeded source.
type Generator struct {
	rng *rand.Rand
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// DeviceID returns the device tag applied to generated data. It matches the
// live collector so mock and real data share dashboards.
func DeviceID() string { return deviceID }

// Generate yields samples from start to end at the given interval,
// invoking fn for each. fn returning false stops generation.
func (g *Generator) Generate(start, end time.Time, interval time.Duration, fn func(Sample) bool) {
	for current := start; current.Before(end); current = current.Add(interval) {
		dayIndex := int(current.Sub(start).Hours() / 24)

		temp := g.temperature(current, dayIndex)
		humidity := g.humidity(current, temp)
		co2 := g.co2(current)
		tvoc := g.tvoc(current, co2)
		sound := g.sound(current, dayIndex)
		light := g.light(current, dayIndex)
		pm25 := g.pm25(current)
		pm10 := g.pm10(pm25)

		s := Sample{
			Timestamp: current,
			DayIndex:  dayIndex,
			Sensors: map[string]float64{
				"htsensor/ctemp":     temp,
				"htsensor/humidity":  humidity,
				"co2sensor/co2fo":    co2,
				"co2sensor/tvoc":     tvoc,
				"audsensor/sum":      sound,
				"luxsensor/alux":     light,
				"pmsensor/pm2p5conc": pm25,
				"pmsensor/pm10conc":  pm10,
				"AQI/src":            aqi(pm25, co2),
				"HealthIndex/val":    healthIndex(temp, humidity, co2, tvoc),
			},
		}
		if !fn(s) {
			return
		}
	}
}

func hourOfDay(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60.0
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Daily cycle, seasonal swing, and a +0.5C drift over the year.
func (g *Generator) temperature(t time.Time, dayIndex int) float64 {
	base := 21.5
	daily := 1.5 * math.Sin((hourOfDay(t)-6)*math.Pi/12)
	seasonal := 2.0 * math.Cos(float64(t.YearDay()-172)*2*math.Pi/365)
	drift := float64(dayIndex) / 365.0 * 0.5
	noise := g.rng.NormFloat64() * 0.3
	return round1(base + daily + seasonal + drift + noise)
}

// Inversely correlated with temperature, higher at night.
func (g *Generator) humidity(t time.Time, temp float64) float64 {
	base := 45.0
	tempEffect := -(temp - 21.5) * 2
	daily := 5 * math.Sin((hourOfDay(t)-18)*math.Pi/12)
	noise := g.rng.NormFloat64() * 3
	return round1(clamp(base+tempEffect+daily+noise, 25, 75))
}

// Work-hours occupancy with occasional meeting spikes.
func (g *Generator) co2(t time.Time) float64 {
	base := 450.0
	occupancy := 1.0
	if isWeekend(t) {
		occupancy = 0.3
	}
	hour := hourOfDay(t)
	workFactor := 50.0 * occupancy
	if hour >= 9 && hour <= 17 {
		workFactor = 200.0 * occupancy
	}
	spike := 0.0
	if g.rng.Float64() < 0.02 {
		spike = 100 + g.rng.Float64()*200
	}
	noise := g.rng.NormFloat64() * 20
	return math.Round(math.Max(400, base+workFactor+spike+noise))
}

// Tracks CO2 with a morning cleaning-products bump.
func (g *Generator) tvoc(t time.Time, co2 float64) float64 {
	base := (co2-400)*0.15 + 50
	spike := 0.0
	hour := hourOfDay(t)
	if hour >= 7 && hour <= 9 {
		spike = 20 + g.rng.Float64()*30
	}
	noise := g.rng.NormFloat64() * 10
	return math.Round(math.Max(0, base+spike+noise))
}

// Equipment wear: +5 dB over the first 180 days.
func (g *Generator) sound(t time.Time, dayIndex int) float64 {
	base := 38.0
	degradationDays := math.Min(float64(dayIndex), 180)
	degradation := degradationDays / 180.0 * 5.0

	hour := hourOfDay(t)
	var work float64
	if isWeekend(t) {
		if hour >= 10 && hour <= 16 {
			work = 3
		}
	} else {
		if hour >= 8 && hour <= 18 {
			work = 12 + (g.rng.Float64()*7 - 2)
		} else {
			work = 2
		}
	}
	noise := g.rng.NormFloat64() * 1.5
	return round1(clamp(base+degradation+work+noise, 30, 80))
}

// Lamp aging: -15% over the first 270 days.
func (g *Generator) light(t time.Time, dayIndex int) float64 {
	base := 450.0
	degradationDays := math.Min(float64(dayIndex), 270)
	degradationFactor := 1.0 - degradationDays/270.0*0.15

	hour := hourOfDay(t)
	var level float64
	if isWeekend(t) {
		if hour >= 10 && hour <= 15 {
			level = 200
		} else {
			level = 20
		}
	} else {
		if hour >= 7 && hour <= 19 {
			level = base*degradationFactor + 50*math.Sin((hour-6)*math.Pi/12)
		} else {
			level = 30
		}
	}
	noise := g.rng.NormFloat64() * 15
	return math.Round(math.Max(0, level+noise))
}

func (g *Generator) pm25(t time.Time) float64 {
	base := 8.0
	daily := 3 * math.Sin((hourOfDay(t)-6)*math.Pi/12)
	spike := 0.0
	if g.rng.Float64() < 0.05 {
		spike = 5 + g.rng.Float64()*10
	}
	noise := g.rng.NormFloat64() * 2
	return round1(math.Max(0, base+daily+spike+noise))
}

func (g *Generator) pm10(pm25 float64) float64 {
	ratio := 1.3 + g.rng.Float64()*0.7
	noise := g.rng.NormFloat64() * 3
	return round1(math.Max(0, pm25*ratio+noise))
}

// aqi maps PM2.5 and CO2 onto the device's 0-5 scale.
func aqi(pm25, co2 float64) float64 {
	pmScore := math.Min(5, pm25/25*5)
	co2Score := math.Min(5, (co2-400)/1500*5)
	return round1(clamp(pmScore*0.6+co2Score*0.4, 0, 5))
}

// healthIndex scores comfort on the device's 0-3 scale, 0 best.
func healthIndex(temp, humidity, co2, tvoc float64) float64 {
	score := 0.0

	switch {
	case temp < 18 || temp > 26:
		score += 0.5
	case temp < 19 || temp > 25:
		score += 0.2
	}

	switch {
	case humidity < 30 || humidity > 60:
		score += 0.5
	case humidity < 35 || humidity > 55:
		score += 0.2
	}

	switch {
	case co2 > 1500:
		score += 1.0
	case co2 > 1000:
		score += 0.5
	case co2 > 800:
		score += 0.2
	}

	switch {
	case tvoc > 500:
		score += 1.0
	case tvoc > 200:
		score += 0.3
	}

	return round1(math.Min(3, score))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

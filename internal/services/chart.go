package services

import (
	"strings"

	"climatesage-backend/internal/models"
)

var (
	co2Keywords = []string{
		"co2", "co₂", "carbon dioxide", "carbon emissions", "atmospheric co2",
		"co2 levels", "co2 concentration", "keeling curve", "mauna loa",
	}

	generalClimateKeywords = []string{
		"greenhouse gas", "greenhouse gases", "global warming", "climate change",
	}

	// Topics in the question that make a CO2 chart off-topic.
	nonCO2TopicKeywords = []string{
		"renewable", "solar", "wind", "policy", "paris", "agreement", "treaty",
		"weather", "cloud", "temperature", "rainfall", "storm", "hurricane", "ocean",
		"sea level", "sea ice", "glacier", "biodiversity",
	}

	otherGasKeywords = []string{
		"ozone", "methane", "nitrous oxide", "hfc", "pfc", "sf6",
		"water vapor", "water vapour", "nitrogen", "oxygen",
	}

	atmosphericKeywords = []string{
		"atmosphere", "atmospheric", "weather", "cloud", "humidity", "air pressure",
		"jet stream", "precipitation",
	}
)

// ShouldShowChart decides whether the CO2 trend chart accompanies a reply.
// The topic label is accepted for callers but the decision is text based.
func ShouldShowChart(question string, topic models.Topic, response string) bool {
	q := strings.ToLower(question)
	combined := q + " " + strings.ToLower(response)

	if containsAny(combined, co2Keywords) {
		return true
	}

	if !containsAny(combined, generalClimateKeywords) {
		return false
	}

	if containsAny(q, nonCO2TopicKeywords) {
		return false
	}
	// No CO2 keyword is present past the first check, so any other gas or an
	// atmospheric theme excludes the chart.
	if containsAny(combined, otherGasKeywords) {
		return false
	}
	if containsAny(combined, atmosphericKeywords) {
		return false
	}
	return true
}

// co2Series is the Mauna Loa annual mean, ppm.
var co2Series = []models.ChartPoint{
	{Year: 1960, CO2: 316.91},
	{Year: 1965, CO2: 320.04},
	{Year: 1970, CO2: 325.68},
	{Year: 1975, CO2: 331.11},
	{Year: 1980, CO2: 338.76},
	{Year: 1985, CO2: 346.12},
	{Year: 1990, CO2: 354.45},
	{Year: 1995, CO2: 360.88},
	{Year: 2000, CO2: 369.71},
	{Year: 2005, CO2: 379.98},
	{Year: 2010, CO2: 389.90},
	{Year: 2015, CO2: 401.01},
	{Year: 2020, CO2: 414.21},
	{Year: 2023, CO2: 421.08},
}

// CO2Series returns a copy of the chart payload.
func CO2Series() []models.ChartPoint {
	out := make([]models.ChartPoint, len(co2Series))
	copy(out, co2Series)
	return out
}

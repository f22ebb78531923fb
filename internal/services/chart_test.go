package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"climatesage-backend/internal/models"
)

func TestShouldShowChart(t *testing.T) {
	tests := []struct {
		name     string
		question string
		response string
		expected bool
	}{
		{"co2 in question", "How much CO2 is in the air?", "About 420 parts per million.", true},
		{"carbon dioxide in response", "What warms the planet?", "Mostly carbon dioxide from fossil fuels.", true},
		{"co2 beats exclusions", "Is methane worse than CO2 for the weather?", "Methane is stronger.", true},
		{"unicode subscript", "Explain CO₂ trends", "", true},
		{"general keyword", "Why is global warming happening?", "Human activity releases heat-trapping gases.", true},
		{"methane only", "Tell me about methane", "Methane comes from cattle and wetlands.", false},
		{"methane with general keyword", "How does methane drive climate change?", "Methane traps heat.", false},
		{"non-co2 topic in question", "Does solar power slow climate change?", "Yes, it cuts emissions.", false},
		{"weather themed", "Is climate change changing the weather?", "Storms are getting stronger.", false},
		{"atmospheric without co2", "What is global warming?", "The atmosphere traps more heat.", false},
		{"unrelated", "What is a polar bear?", "A large bear.", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ShouldShowChart(tc.question, ClassifyTopic(tc.question), tc.response)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestShouldShowChart_CO2AlwaysWins(t *testing.T) {
	noise := []string{"methane", "ozone", "weather", "solar", "policy", "nitrous oxide", "cloud", ""}
	for _, n := range noise {
		for _, kw := range []string{"co2", "CO2", "Carbon Dioxide", "carbon dioxide"} {
			assert.True(t, ShouldShowChart(n+" "+kw, models.TopicPolicy, n), "%q + %q", n, kw)
		}
	}
}

func TestShouldShowChart_MethaneWithoutCO2(t *testing.T) {
	inputs := []string{
		"methane", "Methane and global warming", "greenhouse gases like METHANE",
		"climate change methane emissions", "methane in the atmosphere",
	}
	for _, in := range inputs {
		assert.False(t, ShouldShowChart(in, models.TopicClimateScience, in), in)
	}
}

func TestCO2Series(t *testing.T) {
	series := CO2Series()
	assert.NotEmpty(t, series)
	for i := 1; i < len(series); i++ {
		assert.Greater(t, series[i].Year, series[i-1].Year)
		assert.Greater(t, series[i].CO2, series[i-1].CO2)
	}

	series[0].CO2 = 0
	assert.NotZero(t, CO2Series()[0].CO2, "callers must not mutate the shared series")
}

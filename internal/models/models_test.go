package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricRegistry(t *testing.T) {
	metrics := Metrics()
	require.Len(t, metrics, 9)

	numeric := 0
	for _, m := range metrics {
		if m.Numeric() {
			numeric++
		}
	}
	assert.Equal(t, 8, numeric, "comfort is the only categorical metric")

	comfort, ok := MetricByName("comfort")
	require.True(t, ok)
	assert.Equal(t, KindText, comfort.Kind)
	assert.False(t, comfort.Numeric())
}

func TestMetricByNameUnknown(t *testing.T) {
	_, ok := MetricByName("co2")
	assert.False(t, ok)
	_, ok = MetricByName("")
	assert.False(t, ok)
}

func TestMetricTableMatchesName(t *testing.T) {
	for _, m := range Metrics() {
		assert.Equal(t, m.Name, m.Table())
	}
}

func TestMetricsReturnsCopy(t *testing.T) {
	first := Metrics()
	first[0].Name = "mutated"

	fresh := Metrics()
	assert.Equal(t, "temperature", fresh[0].Name)
}

package models

import "time"

// MetricKind distinguishes rollup metrics from categorical ones
type MetricKind string

const (
	KindNumeric MetricKind = "numeric"
	KindText    MetricKind = "text"
)

// Metric describes one measured quantity and the hypertable backing it
type Metric struct {
	Name string     `json:"name"`
	Kind MetricKind `json:"kind"`
}

// Table returns the hypertable name for the metric. Metric names are
// fixed identifiers from the registry below, never caller input, so they
// are safe to splice into SQL.
func (m Metric) Table() string {
	return m.Name
}

// Numeric reports whether the metric stores low/avg/high rollups
func (m Metric) Numeric() bool {
	return m.Kind == KindNumeric
}

// The nine metrics of the pe32 schema. "comfort" is the one categorical
// metric; everything else is a low/avg/high rollup.
var metricRegistry = []Metric{
	{Name: "temperature", Kind: KindNumeric},
	{Name: "humidity", Kind: KindNumeric},
	{Name: "comfortidx", Kind: KindNumeric},
	{Name: "dewpoint", Kind: KindNumeric},
	{Name: "heatindex", Kind: KindNumeric},
	{Name: "comfort", Kind: KindText},
	{Name: "mq135rzero", Kind: KindNumeric},
	{Name: "mq135rawppm", Kind: KindNumeric},
	{Name: "mq135corrppm", Kind: KindNumeric},
}

// Metrics returns all known metrics in declaration order
func Metrics() []Metric {
	out := make([]Metric, len(metricRegistry))
	copy(out, metricRegistry)
	return out
}

// MetricByName looks up a metric by its table name
func MetricByName(name string) (Metric, bool) {
	for _, m := range metricRegistry {
		if m.Name == name {
			return m, true
		}
	}
	return Metric{}, false
}

// Sample is one aggregated rollup observation for a label at a point in
// time. Avg is always present; Low and High may be absent when the
// aggregation window was partial.
type Sample struct {
	Time    time.Time `json:"time" db:"time"`
	LabelID int64     `json:"label_id" db:"label_id"`
	Low     *float64  `json:"low,omitempty" db:"low"`
	Avg     float64   `json:"avg" db:"avg"`
	High    *float64  `json:"high,omitempty" db:"high"`
}

// Descriptor is one categorical observation (the comfort metric)
type Descriptor struct {
	Time    time.Time `json:"time" db:"time"`
	LabelID int64     `json:"label_id" db:"label_id"`
	Value   string    `json:"value" db:"value"`
}

// RangeQuery carries the raw query parameters of a range request as they
// arrive on the wire. Times are RFC3339 strings here and parsed during
// validation.
type RangeQuery struct {
	Start   string `schema:"start"`
	End     string `schema:"end"`
	LabelID *int64 `schema:"label_id"`
}

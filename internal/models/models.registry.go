package models

// Label is a logical named location or zone that one or more devices
// report under. Readings are aggregated per label, not per device, so a
// replaced device keeps writing into the same logical series.
type Label struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Device is a physical sensor unit identified by a hardware address
// string. LabelID is nil while the device is unassigned.
type Device struct {
	ID            int64   `json:"id" db:"id"`
	Identifier    string  `json:"identifier" db:"identifier"`
	DevType       string  `json:"dev_type" db:"dev_type"`
	LabelID       *int64  `json:"label_id,omitempty" db:"label_id"`
	VersionString *string `json:"version_string,omitempty" db:"version_string"`
}

// DeviceListing is one row of the label/device overview, a left join of
// labels onto their devices so labels without devices still show up.
type DeviceListing struct {
	LabelID       int64   `json:"label_id" db:"label_id"`
	LabelName     string  `json:"label_name" db:"label_name"`
	DeviceID      *int64  `json:"device_id,omitempty" db:"device_id"`
	Identifier    *string `json:"identifier,omitempty" db:"identifier"`
	DevType       *string `json:"dev_type,omitempty" db:"dev_type"`
	VersionString *string `json:"version_string,omitempty" db:"version_string"`
}

// Column width limits from the schema
const (
	MaxNameLen    = 31
	MaxVersionLen = 127
)

package models

import (
	"database/sql/driver"
	"encoding/json"
)

// Address is a structured reverse-geocoding result, stored as JSONB.
type Address struct {
	FormattedAddress string `json:"formatted_address,omitempty"`
	Road             string `json:"road,omitempty"`
	City             string `json:"city,omitempty"`
	County           string `json:"county,omitempty"`
	State            string `json:"state,omitempty"`
	Postcode         string `json:"postcode,omitempty"`
	Country          string `json:"country,omitempty"`
}

// Value implements driver.Valuer for JSONB storage.
func (a Address) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan implements sql.Scanner.
func (a *Address) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, a)
}

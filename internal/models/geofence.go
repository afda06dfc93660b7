package models

// GeofenceRegion is a circular region around a client site with a near-term
// appointment. Regions live only for the scheduling horizon (same day).
type GeofenceRegion struct {
	AppointmentID int64   `json:"appointment_id"`
	ClientID      int64   `json:"client_id"`
	ClientName    string  `json:"client_name"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	RadiusM       float64 `json:"radius_m"`
}

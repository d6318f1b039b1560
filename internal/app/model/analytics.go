package model

// DeviceClass buckets user agents for the analytics dashboard.
type DeviceClass string

const (
	DeviceMobile  DeviceClass = "Mobile"
	DeviceDesktop DeviceClass = "Desktop"
	DeviceOther   DeviceClass = "Other"
)

// DailyCount is the number of scans on one UTC day (YYYY-MM-DD).
type DailyCount struct {
	Day   string `json:"date"`
	Scans int64  `json:"scans"`
}

// NamedCount pairs a bucket label with its scan count.
type NamedCount struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// ScanSummary aggregates the scan log of one QR code.
type ScanSummary struct {
	QrCodeID   string       `json:"qr_code_id"`
	TotalScans int64        `json:"total_scans"`
	ScanLimit  *int         `json:"scan_limit"`
	ByDay      []DailyCount `json:"by_day"`
	ByCountry  []NamedCount `json:"by_country"`
	ByDevice   []NamedCount `json:"by_device"`
}

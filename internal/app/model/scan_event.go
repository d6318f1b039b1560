package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Unknown fills any telemetry field the request did not carry.
const Unknown = "unknown"

// ScanEvent is one resolved redirect. Rows are append-only.
type ScanEvent struct {
	ID          string      `json:"id" bson:"_id" gorm:"primaryKey;size:36"`
	QrCodeID    string      `json:"qr_code_id" bson:"qr_code_id" gorm:"size:36;not null;index"`
	IPAddress   string      `json:"ip_address" bson:"ip_address" gorm:"size:255"`
	UserAgent   string      `json:"user_agent" bson:"user_agent" gorm:"type:text"`
	Referrer    string      `json:"referrer" bson:"referrer" gorm:"type:text"`
	Geolocation Geolocation `json:"geolocation" bson:"geolocation" gorm:"embedded;embeddedPrefix:geo_"`
	ScannedAt   time.Time   `json:"scanned_at" bson:"scanned_at" gorm:"not null;index"`

	// QrCode is never loaded; it declares the qr_code_id foreign key.
	QrCode *QrCode `json:"-" bson:"-" gorm:"foreignKey:QrCodeID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// Geolocation is the best-effort location of the scanning client.
type Geolocation struct {
	Country string `json:"country" bson:"country" gorm:"size:100"`
	Region  string `json:"region" bson:"region" gorm:"size:100"`
	City    string `json:"city" bson:"city" gorm:"size:100"`
}

// UnknownGeolocation is the location recorded when no resolver knows better.
var UnknownGeolocation = Geolocation{Country: Unknown, Region: Unknown, City: Unknown}

func (ScanEvent) TableName() string { return "qr_scans" }

func (e *ScanEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

const (
	ScanStreamName     = "SCANS"
	ScanStreamSubject  = "scans.events"
	ScanConsumerName   = "scan-logger"
	ScanStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)

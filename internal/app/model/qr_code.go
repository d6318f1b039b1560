package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultQrCodeName is used when a QR code is saved without a name.
const DefaultQrCodeName = "Untitled QR Code"

// QrCode describes one generated code and the destination its short code resolves to.
type QrCode struct {
	ID             string    `json:"id" bson:"_id" gorm:"primaryKey;size:36"`
	OwnerID        string    `json:"owner_id" bson:"owner_id" gorm:"size:64;index"`
	Name           string    `json:"name" bson:"name" gorm:"size:255;not null"`
	ShortCode      string    `json:"short_code" bson:"short_code" gorm:"size:32;uniqueIndex;not null"`
	DestinationURL string    `json:"destination_url" bson:"destination_url" gorm:"type:text;not null"`
	ScanLimit      *int      `json:"scan_limit" bson:"scan_limit"`
	Campaign       Campaign  `json:"campaign" bson:"campaign" gorm:"embedded;embeddedPrefix:campaign_"`
	Style          Style     `json:"style" bson:"style" gorm:"embedded"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at" gorm:"autoUpdateTime"`
}

// Campaign is the five-field UTM attribution tuple appended on redirect.
type Campaign struct {
	Source  string `json:"source,omitempty" bson:"source,omitempty" gorm:"size:255"`
	Medium  string `json:"medium,omitempty" bson:"medium,omitempty" gorm:"size:255"`
	Name    string `json:"name,omitempty" bson:"name,omitempty" gorm:"size:255"`
	Term    string `json:"term,omitempty" bson:"term,omitempty" gorm:"size:255"`
	Content string `json:"content,omitempty" bson:"content,omitempty" gorm:"size:255"`
}

// Style holds the visual customization tokens; rendering happens client side.
type Style struct {
	CustomPattern string `json:"custom_pattern,omitempty" bson:"custom_pattern,omitempty" gorm:"size:16"`
	ShapeStyle    string `json:"shape_style,omitempty" bson:"shape_style,omitempty" gorm:"size:32"`
	BorderStyle   string `json:"border_style,omitempty" bson:"border_style,omitempty" gorm:"size:32"`
	CenterStyle   string `json:"center_style,omitempty" bson:"center_style,omitempty" gorm:"size:32"`
}

func (QrCode) TableName() string { return "qr_codes" }

// BeforeCreate assigns an id when the caller did not.
func (q *QrCode) BeforeCreate(*gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}

// HasScanLimit reports whether redirects are capped for this code.
func (q *QrCode) HasScanLimit() bool {
	return q.ScanLimit != nil
}

// internal/model/download_record.go
package model

import "time"

// DownloadRecord is the audit trail behind the weekly download quota
// counter. The counter on the installment tracker is authoritative for
// quota math; these rows exist for support and abuse investigations.
type DownloadRecord struct {
	ID         uint      `gorm:"primaryKey"`
	UserID     uint      `gorm:"not null;index"`
	TemplateID uint      `gorm:"not null;index"`
	IP         string    `gorm:"size:50"` // IP adresi
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

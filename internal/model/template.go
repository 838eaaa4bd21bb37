package model

import (
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// Template Status
type TemplateStatus string

const (
	TemplateStatusDraft     TemplateStatus = "draft"
	TemplateStatusPublished TemplateStatus = "published"
	TemplateStatusArchived  TemplateStatus = "archived"
)

// Currency Types
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyINR Currency = "INR"
	CurrencyGBP Currency = "GBP"
)

type Template struct {
	gorm.Model
	Title       string         `json:"title" gorm:"not null"`
	Slug        string         `json:"slug" gorm:"uniqueIndex:idx_user_template_slug;not null"`
	Status      TemplateStatus `json:"status" gorm:"not null;default:'draft'"`
	Price       float64        `json:"price" gorm:"not null"`
	Currency    Currency       `json:"currency" gorm:"not null;default:'USD'"`
	Description string         `json:"description" gorm:"type:text"`

	UserID     uint  `json:"user_id" gorm:"uniqueIndex:idx_user_template_slug"`
	CategoryID *uint `json:"category_id" gorm:"index"`

	// Teslimat bilgileri
	ArchiveURL  string `json:"archive_url"`
	DemoURL     string `json:"demo_url"`
	FileSize    int64  `json:"file_size"`
	ViewCount   int64  `json:"view_count" gorm:"default:0"`
	SalesCount  int64  `json:"sales_count" gorm:"default:0"`
	TechStack   string `json:"tech_stack"`
	LicenseName string `json:"license_name" gorm:"default:'standard'"`

	// İlişkiler
	User     User            `json:"-" gorm:"foreignKey:UserID"`
	Category *Category       `json:"category" gorm:"foreignKey:CategoryID"`
	Images   []TemplateImage `json:"images" gorm:"foreignKey:TemplateID;constraint:OnDelete:CASCADE"`
}

type TemplateImage struct {
	gorm.Model
	TemplateID uint   `json:"template_id"`
	URL        string `json:"url" gorm:"not null"`
	IsCover    bool   `json:"is_cover" gorm:"default:false"`
	Order      int    `json:"order" gorm:"default:0"`

	Template Template `json:"-" gorm:"foreignKey:TemplateID"`
}

// BeforeCreate template oluşturulurken slug'ı otomatik oluşturur
func (t *Template) BeforeCreate(tx *gorm.DB) error {
	if t.Slug == "" {
		s := slug.Make(t.Title)

		// Slug'ın benzersiz olduğundan emin ol
		var count int64
		tx.Model(&Template{}).Where("user_id = ? AND slug = ?", t.UserID, s).Count(&count)
		if count > 0 {
			s = s + "-" + t.CreatedAt.Format("20060102")
		}

		t.Slug = s
	}
	return nil
}

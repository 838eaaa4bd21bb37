package seed

import (
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"templora_backend/internal/model"
)

// SeedCategories varsayılan kategori setini oluşturur
func SeedCategories(db *gorm.DB) {
	categories := []model.Category{
		{
			Name:        "Landing Pages",
			Description: "Single-page marketing and product launch templates",
		},
		{
			Name:        "E-commerce",
			Description: "Storefront and checkout flow templates",
		},
		{
			Name:        "Portfolios",
			Description: "Personal and agency portfolio templates",
		},
		{
			Name:        "Dashboards",
			Description: "Admin panel and analytics dashboard templates",
		},
		{
			Name:        "Blogs",
			Description: "Editorial and publication templates",
		},
	}

	for _, category := range categories {
		result := db.FirstOrCreate(&category, model.Category{Name: category.Name})
		if result.Error != nil {
			log.Printf("Error creating category %s: %v", category.Name, result.Error)
		}
	}

	log.Println("Categories seeded successfully!")
}

// SeedDemoTemplates boş veritabanına örnek mağaza ve template'ler ekler
func SeedDemoTemplates(db *gorm.DB) {
	var count int64
	if err := db.Model(&model.Template{}).Count(&count).Error; err != nil || count > 0 {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("templora-demo"), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Error hashing demo password: %v", err)
		return
	}

	demoUser := model.User{
		Email:     "demo@templora.dev",
		Password:  string(hash),
		Username:  "templora-demo",
		StoreName: "Templora Demo Store",
	}
	if err := db.FirstOrCreate(&demoUser, model.User{Email: demoUser.Email}).Error; err != nil {
		log.Printf("Error creating demo user: %v", err)
		return
	}

	var landing model.Category
	db.Where("slug = ?", "landing-pages").First(&landing)

	templates := []model.Template{
		{
			Title:       "Nova Launch",
			Status:      model.TemplateStatusPublished,
			Price:       19.00,
			Currency:    model.CurrencyUSD,
			Description: "Product launch landing page with pricing and FAQ sections",
			UserID:      demoUser.ID,
			TechStack:   "HTML, Tailwind CSS",
		},
		{
			Title:       "Atlas Portfolio",
			Status:      model.TemplateStatusPublished,
			Price:       24.00,
			Currency:    model.CurrencyUSD,
			Description: "Minimal portfolio with case study pages",
			UserID:      demoUser.ID,
			TechStack:   "HTML, CSS, Alpine.js",
		},
	}

	for i := range templates {
		if landing.ID != 0 {
			templates[i].CategoryID = &landing.ID
		}
		if err := db.Create(&templates[i]).Error; err != nil {
			log.Printf("Error creating demo template %s: %v", templates[i].Title, err)
		}
	}

	log.Println("Demo templates seeded successfully!")
}

// pkg/email/email.go
package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"time"
)

type EmailService struct {
	apiKey    string
	from      string
	templates *template.Template
}

type EmailData struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Html    string `json:"html"`
}

// Template data structures
type WelcomeEmailData struct {
	Name string
}

type SubscriptionEmailData struct {
	StoreName  string
	PlanName   string
	ValidUntil time.Time
	IsRenewal  bool
}

type SubscriptionCancelledData struct {
	StoreName  string
	PlanName   string
	ValidUntil time.Time
}

type SubscriptionExpiryWarningData struct {
	StoreName  string
	PlanName   string
	ValidUntil time.Time
}

type InstallmentReminderData struct {
	StoreName  string
	WeekNumber int
}

type PurchaseReceiptData struct {
	TemplateTitle string
	ReceiptNo     string
	Amount        float64
	Currency      string
}

type PasswordResetData struct {
	ResetLink string
}

type WeeklySalesDigestData struct {
	StoreName  string
	SalesCount int64
	Revenue    float64
	TotalViews int64
	StartDate  time.Time
}

func NewEmailService(apiKey, from string) (*EmailService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend API key is required")
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("error loading email templates: %v", err)
	}

	return &EmailService{
		apiKey:    apiKey,
		from:      from,
		templates: templates,
	}, nil
}

func (s *EmailService) sendTemplateEmail(to, subject, templateName string, data interface{}) error {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, templateName, data); err != nil {
		return fmt.Errorf("template execution error: %v", err)
	}

	emailData := EmailData{
		From:    s.from,
		To:      to,
		Subject: subject,
		Html:    body.String(),
	}

	jsonData, err := json.Marshal(emailData)
	if err != nil {
		return fmt.Errorf("error marshaling email data: %v", err)
	}

	req, err := http.NewRequest("POST", "https://api.resend.com/emails", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("error creating request: %v", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending email: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("resend API error: %s", string(respBody))
	}

	log.Printf("Sent %s email to %s", templateName, to)
	return nil
}

// Email sending methods
func (s *EmailService) SendWelcomeEmail(email, name string) error {
	data := WelcomeEmailData{
		Name: name,
	}
	return s.sendTemplateEmail(email, "Welcome to Templora! 🎉", "welcome.html", data)
}

func (s *EmailService) SendSubscriptionStartedEmail(email, storeName, planName string, validUntil time.Time, isRenewal bool) error {
	data := SubscriptionEmailData{
		StoreName:  storeName,
		PlanName:   planName,
		ValidUntil: validUntil,
		IsRenewal:  isRenewal,
	}

	subject := "Your Templora Pass Is Active! 🎉"
	if isRenewal {
		subject = "Your Templora Pass Has Been Renewed 🔄"
	}

	return s.sendTemplateEmail(email, subject, "subscription_started.html", data)
}

func (s *EmailService) SendSubscriptionCancelledEmail(email, storeName, planName string, validUntil time.Time) error {
	data := SubscriptionCancelledData{
		StoreName:  storeName,
		PlanName:   planName,
		ValidUntil: validUntil,
	}
	return s.sendTemplateEmail(email, "Your Subscription Has Been Cancelled", "subscription_cancelled.html", data)
}

func (s *EmailService) SendSubscriptionExpiryWarning(email, storeName, planName string, validUntil time.Time) error {
	data := SubscriptionExpiryWarningData{
		StoreName:  storeName,
		PlanName:   planName,
		ValidUntil: validUntil,
	}
	return s.sendTemplateEmail(email, "Your Subscription Expires Soon ⚠️", "subscription_expiry_warning.html", data)
}

func (s *EmailService) SendInstallmentPaymentReminder(email, storeName string, weekNumber int) error {
	data := InstallmentReminderData{
		StoreName:  storeName,
		WeekNumber: weekNumber,
	}
	return s.sendTemplateEmail(
		email,
		fmt.Sprintf("Installment Payment Due for Week %d 💳", weekNumber),
		"installment_payment_reminder.html",
		data,
	)
}

func (s *EmailService) SendPurchaseReceiptEmail(email, templateTitle, receiptNo string, amount float64, currency string) error {
	data := PurchaseReceiptData{
		TemplateTitle: templateTitle,
		ReceiptNo:     receiptNo,
		Amount:        amount,
		Currency:      currency,
	}
	return s.sendTemplateEmail(email, "Your Templora Purchase Receipt 🧾", "purchase_receipt.html", data)
}

func (s *EmailService) SendPasswordResetEmail(email, resetToken string) error {
	data := PasswordResetData{
		ResetLink: fmt.Sprintf("https://templora.dev/reset-password?token=%s", resetToken),
	}
	return s.sendTemplateEmail(email, "Reset Your Password 🔒", "password_reset.html", data)
}

func (s *EmailService) SendWeeklySalesDigest(email, storeName string, salesCount int64, revenue float64, totalViews int64, startDate time.Time) error {
	data := WeeklySalesDigestData{
		StoreName:  storeName,
		SalesCount: salesCount,
		Revenue:    revenue,
		TotalViews: totalViews,
		StartDate:  startDate,
	}
	return s.sendTemplateEmail(email, "Your Weekly Store Digest 📊", "weekly_sales_digest.html", data)
}

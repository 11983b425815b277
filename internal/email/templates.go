package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type masterpieceCreatingEmailData struct {
	baseEmailData
	CustomerName string
	PetName      string
}

type masterpieceReadyEmailData struct {
	baseEmailData
	CustomerName string
	PetName      string
	HasQRCode    bool
}

type orderConfirmationEmailData struct {
	baseEmailData
	CustomerName       string
	OrderNumber        string
	ProductDescription string
	EstimatedDelivery  string
}

type orderShippedEmailData struct {
	baseEmailData
	CustomerName string
	OrderNumber  string
}

type adminReviewEmailData struct {
	baseEmailData
	ReviewType   string
	CustomerName string
	PetName      string
}

type uploadReminderEmailData struct {
	baseEmailData
	CustomerName   string
	ReminderNumber int
	FinalNotice    bool
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

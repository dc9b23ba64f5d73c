package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
}

type leadAlertEmailData struct {
	baseEmailData
	Provider    string
	LeadID      string
	ExternalID  string
	IntentScore int
	LastSeenAt  string
}

func renderLeadAlert(alert LeadAlert) (subject, content string, err error) {
	subject = fmt.Sprintf(subjectLeadAlertFmt, alert.Provider, alert.IntentScore)
	content, err = renderEmailTemplate("lead_alert.html", leadAlertEmailData{
		baseEmailData: baseEmailData{
			Title:      "New identified lead",
			Heading:    "A visitor was matched to a contact",
			Subheading: "Open the dashboard to see the contact details.",
		},
		Provider:    alert.Provider,
		LeadID:      alert.LeadID.String(),
		ExternalID:  alert.ExternalID,
		IntentScore: alert.IntentScore,
		LastSeenAt:  alert.LastSeenAt.UTC().Format(time.RFC1123),
	})
	return subject, content, err
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

package services

import (
	"fmt"
	"html/template"
	"net/smtp"
	"os"
	"strings"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/resendlabs/resend-go"
	log "github.com/sirupsen/logrus"

	"github.com/conversahq/conversa_api/model"
	"github.com/conversahq/conversa_api/shared"
)

// EmailService delivers contact form submissions to the support inbox.
// Resend is the primary transport; plain SMTP is the fallback for
// self-hosted deployments without a Resend account.
type EmailService struct {
	context.DefaultService

	resendClient *resend.Client

	smtpHost     string
	smtpPort     string
	smtpUsername string
	smtpPassword string

	fromEmail    string
	fromName     string
	contactEmail string

	contactTmpl *template.Template
}

const EMAIL_SVC = "email_svc"

func (svc EmailService) Id() string {
	return EMAIL_SVC
}

func (svc *EmailService) Configure(ctx *context.Context) error {
	if apiKey := os.Getenv("RESEND_API_KEY"); apiKey != "" {
		svc.resendClient = resend.NewClient(apiKey)
	}

	svc.smtpHost = os.Getenv("SMTP_HOST")
	svc.smtpPort = os.Getenv("SMTP_PORT")
	if svc.smtpPort == "" {
		svc.smtpPort = "587"
	}
	svc.smtpUsername = os.Getenv("SMTP_USERNAME")
	svc.smtpPassword = os.Getenv("SMTP_PASSWORD")

	svc.fromEmail = os.Getenv("FROM_EMAIL")
	svc.fromName = os.Getenv("FROM_NAME")
	if svc.fromName == "" {
		svc.fromName = "Conversa"
	}
	svc.contactEmail = os.Getenv("CONTACT_EMAIL")

	var err error
	svc.contactTmpl, err = template.New("contact").Parse(contactEmailTemplate)
	if err != nil {
		return err
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *EmailService) Start() error {
	if !svc.Configured() {
		log.Warn("No email transport configured, contact endpoint will return configuration errors")
	}
	return nil
}

// Configured reports whether at least one transport and the destination
// inbox are set.
func (svc *EmailService) Configured() bool {
	if svc.contactEmail == "" || svc.fromEmail == "" {
		return false
	}
	return svc.resendClient != nil || svc.smtpHost != ""
}

// SendContactNotification forwards a submission to the support inbox.
// Configuration is checked before any network activity.
func (svc *EmailService) SendContactNotification(submission *model.ContactSubmission) error {
	if !svc.Configured() {
		return shared.NewConfigError(fmt.Errorf("no email transport configured"))
	}

	subject := submission.Subject
	if subject == "" {
		subject = "New contact form submission"
	}
	subject = fmt.Sprintf("[Conversa Contact] %s", subject)

	html, err := svc.renderContactEmail(submission)
	if err != nil {
		return shared.NewInternalError(err, "Failed to render contact email")
	}

	if svc.resendClient != nil {
		if err := svc.sendViaResend(subject, html, submission.Email); err == nil {
			return nil
		} else if svc.smtpHost == "" {
			return shared.NewUpstreamError(err, "Failed to send contact email")
		} else {
			log.WithError(err).Warn("Resend delivery failed, falling back to SMTP")
		}
	}

	if err := svc.sendViaSMTP(subject, html, submission.Email); err != nil {
		return shared.NewUpstreamError(err, "Failed to send contact email")
	}
	return nil
}

func (svc *EmailService) sendViaResend(subject, html, replyTo string) error {
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", svc.fromName, svc.fromEmail),
		To:      []string{svc.contactEmail},
		Subject: subject,
		Html:    html,
		ReplyTo: replyTo,
	}

	sent, err := svc.resendClient.Emails.Send(params)
	if err != nil {
		return err
	}

	log.WithField("email_id", sent.Id).Debug("Contact email sent via Resend")
	return nil
}

func (svc *EmailService) sendViaSMTP(subject, html, replyTo string) error {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s <%s>\r\n", svc.fromName, svc.fromEmail))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", svc.contactEmail))
	if replyTo != "" {
		msg.WriteString(fmt.Sprintf("Reply-To: %s\r\n", replyTo))
	}
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(html)

	addr := svc.smtpHost + ":" + svc.smtpPort
	var auth smtp.Auth
	if svc.smtpUsername != "" {
		auth = smtp.PlainAuth("", svc.smtpUsername, svc.smtpPassword, svc.smtpHost)
	}

	return smtp.SendMail(addr, auth, svc.fromEmail, []string{svc.contactEmail}, []byte(msg.String()))
}

func (svc *EmailService) renderContactEmail(submission *model.ContactSubmission) (string, error) {
	var out strings.Builder
	err := svc.contactTmpl.Execute(&out, map[string]interface{}{
		"Name":       submission.Name,
		"Email":      submission.Email,
		"Company":    submission.Company,
		"Subject":    submission.Subject,
		"Message":    submission.Message,
		"ClientIP":   submission.ClientIP,
		"ReceivedAt": time.Now().UTC().Format(time.RFC1123),
	})
	if err != nil {
		return "", err
	}
	return out.String(), nil
}

const contactEmailTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1a1a2e;">
  <h2>New contact form submission</h2>
  <table cellpadding="6">
    <tr><td><strong>Name</strong></td><td>{{.Name}}</td></tr>
    <tr><td><strong>Email</strong></td><td>{{.Email}}</td></tr>
    {{if .Company}}<tr><td><strong>Company</strong></td><td>{{.Company}}</td></tr>{{end}}
    {{if .Subject}}<tr><td><strong>Subject</strong></td><td>{{.Subject}}</td></tr>{{end}}
  </table>
  <h3>Message</h3>
  <p style="white-space: pre-wrap; background: #f4f4f8; padding: 12px; border-radius: 6px;">{{.Message}}</p>
  <hr>
  <p style="color: #888; font-size: 12px;">Received {{.ReceivedAt}} from {{.ClientIP}}</p>
</body>
</html>`

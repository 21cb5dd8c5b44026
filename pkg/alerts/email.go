package alerts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"github.com/wneessen/go-mail"

	"github.com/ogulcanaydogan/campaign-refresh/pkg/model"
)

// Mailer delivers a single HTML message.
type Mailer interface {
	SendHTML(ctx context.Context, from string, to []string, subject, body string) error
}

// SMTPConfig holds the SMTP transport settings.
type SMTPConfig struct {
	Server   string
	Port     int
	Username string
	Password string
}

// SMTPMailer sends mail over SMTP with mandatory STARTTLS and PLAIN auth.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer creates an SMTP mailer.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) SendHTML(ctx context.Context, from string, to []string, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(to...); err != nil {
		return fmt.Errorf("set recipients: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)

	client, err := mail.NewClient(m.cfg.Server,
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
	)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("deliver via %s:%d: %w", m.cfg.Server, m.cfg.Port, err)
	}
	return nil
}

// EmailNotifier renders a digest as an HTML table and mails it to a fixed
// recipient list.
type EmailNotifier struct {
	mailer     Mailer
	from       string
	recipients []string
}

// NewEmailNotifier creates an email notifier.
func NewEmailNotifier(mailer Mailer, from string, recipients []string) *EmailNotifier {
	return &EmailNotifier{
		mailer:     mailer,
		from:       from,
		recipients: recipients,
	}
}

func (e *EmailNotifier) Name() string { return "email" }

func (e *EmailNotifier) Send(ctx context.Context, digest Digest) error {
	if len(e.recipients) == 0 {
		return errors.New("no email recipients configured")
	}

	body, err := RenderHTML(digest)
	if err != nil {
		return err
	}

	return e.mailer.SendHTML(ctx, e.from, e.recipients, Subject(digest), body)
}

// Subject returns the email subject line for a digest.
func Subject(d Digest) string {
	return "Marketing Campaign Alerts - " + d.GeneratedAt.Format("2006-01-02 15:04")
}

// RenderHTML renders the digest body.
func RenderHTML(d Digest) (string, error) {
	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("render alert email: %w", err)
	}
	return buf.String(), nil
}

func priorityColor(p model.Priority) template.CSS {
	if p == model.PriorityHigh {
		return "#ff4444"
	}
	return "#ffaa00"
}

var digestTemplate = template.Must(template.New("digest").Funcs(template.FuncMap{
	"color": priorityColor,
}).Parse(`<html>
  <body>
    <h2>Marketing Campaign Performance Alerts</h2>
    <p>Generated on: {{.GeneratedAt.Format "2006-01-02 15:04:05"}}</p>
    <p>Total Alerts: {{len .Alerts}}</p>
    <table border="1" style="border-collapse: collapse;">
      <tr style="background-color: #f2f2f2;">
        <th>Priority</th>
        <th>Campaign</th>
        <th>Channel</th>
        <th>Issue</th>
        <th>Action Required</th>
      </tr>
{{- range .Alerts}}
      <tr>
        <td style="background-color: {{color .Priority}}; color: white; font-weight: bold;">{{.Priority}}</td>
        <td>{{.CampaignName}}</td>
        <td>{{.Channel}}</td>
        <td>{{.Issue}}</td>
        <td>{{.RecommendedAction}}</td>
      </tr>
{{- end}}
    </table>
    <br>
    <p>Please review the flagged campaigns and act on the recommendations above.</p>
    <p>Marketing Analytics</p>
  </body>
</html>
`))

// Package notify sends complainant-facing notifications.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/civicdesk/grievance-desk/internal/model"
)

// SubjectTag is embedded in outgoing subjects so that replies can be matched
// back to a complaint. The inbox package parses it.
const SubjectTag = "Complaint"

// Confirmation is the payload of a filing confirmation.
type Confirmation struct {
	TrackingID       string
	Status           model.Status
	Department       string
	Category         string
	ComplainantName  string
	ComplainantEmail string
	Description      string
}

// Notifier dispatches filing confirmations.
type Notifier interface {
	SendComplaintConfirmation(ctx context.Context, c Confirmation) error
}

// Config holds settings for composing and sending email.
type Config struct {
	FromAddress string
	FromName    string
	// SandboxMode when true prevents actual email delivery via SendGrid.
	SandboxMode bool
	// StatusURL, when set, is linked in the body with the tracking ID appended.
	StatusURL string
}

// Sender is the interface for sending emails via SendGrid.
type Sender interface {
	Send(ctx context.Context, email *mail.SGMailV3) (*SendResult, error)
}

// SendResult contains the result of sending an email.
type SendResult struct {
	StatusCode int
	MessageID  string
}

// SendGridSender sends emails via the SendGrid API.
type SendGridSender struct {
	APIKey string
}

// Send dispatches an email through the SendGrid API.
func (s *SendGridSender) Send(ctx context.Context, email *mail.SGMailV3) (*SendResult, error) {
	client := sendgrid.NewSendClient(s.APIKey)
	resp, err := client.SendWithContext(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}
	messageID := ""
	if ids, ok := resp.Headers["X-Message-Id"]; ok && len(ids) > 0 {
		messageID = ids[0]
	}
	return &SendResult{StatusCode: resp.StatusCode, MessageID: messageID}, nil
}

// EmailNotifier composes confirmations and sends them through a Sender.
type EmailNotifier struct {
	sender Sender
	cfg    Config
	logger *slog.Logger
}

// NewEmailNotifier creates an EmailNotifier.
func NewEmailNotifier(sender Sender, cfg Config, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{sender: sender, cfg: cfg, logger: logger}
}

// SendComplaintConfirmation emails the complainant their tracking ID.
func (n *EmailNotifier) SendComplaintConfirmation(ctx context.Context, c Confirmation) error {
	if c.ComplainantEmail == "" {
		return fmt.Errorf("confirmation for %s: no recipient", c.TrackingID)
	}
	subject, body := ComposeConfirmation(n.cfg, c)

	from := mail.NewEmail(n.cfg.FromName, n.cfg.FromAddress)
	to := mail.NewEmail(c.ComplainantName, c.ComplainantEmail)
	message := mail.NewSingleEmail(from, subject, to, body, "")

	if n.cfg.SandboxMode {
		settings := mail.NewMailSettings()
		settings.SetSandboxMode(mail.NewSetting(true))
		message.SetMailSettings(settings)
	}

	res, err := n.sender.Send(ctx, message)
	if err != nil {
		return err
	}
	n.logger.Info("confirmation sent", "tracking_id", c.TrackingID, "message_id", res.MessageID)
	return nil
}

// ComposeConfirmation returns the subject and plain-text body for c.
func ComposeConfirmation(cfg Config, c Confirmation) (string, string) {
	subject := fmt.Sprintf("Complaint received: %s [%s: %s]", Label(c.Category), SubjectTag, c.TrackingID)

	var b strings.Builder
	name := c.ComplainantName
	if name == "" {
		name = "Citizen"
	}
	fmt.Fprintf(&b, "Dear %s,\n\n", name)
	b.WriteString("Your complaint has been registered.\n\n")
	fmt.Fprintf(&b, "Tracking ID: %s\n", c.TrackingID)
	fmt.Fprintf(&b, "Status: %s\n", Label(string(c.Status)))
	if c.Department != "" {
		fmt.Fprintf(&b, "Department: %s\n", c.Department)
	}
	if c.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", Label(c.Category))
	}
	b.WriteString("\nSummary:\n")
	b.WriteString(truncate(c.Description, 500))
	b.WriteString("\n\n")
	if cfg.StatusURL != "" {
		fmt.Fprintf(&b, "Check progress at %s/%s\n\n", strings.TrimSuffix(cfg.StatusURL, "/"), c.TrackingID)
	}
	b.WriteString("Reply to this email to add information to your complaint. Keep the tracking ID in the subject line.\n\n")
	b.WriteString("Regards,\n")
	if cfg.FromName != "" {
		b.WriteString(cfg.FromName + "\n")
	}
	return subject, b.String()
}

var titleCaser = cases.Title(language.English)

// Label turns identifiers such as "public_safety" or "InProgress" into
// display labels ("Public Safety", "In Progress").
func Label(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	for i, r := range s {
		switch {
		case r == '_' || r == '-':
			b.WriteRune(' ')
			continue
		case i > 0 && r >= 'A' && r <= 'Z' && s[i-1] >= 'a' && s[i-1] <= 'z':
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return titleCaser.String(b.String())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// LogNotifier logs confirmations instead of sending them. It is used when no
// email provider is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

// SendComplaintConfirmation logs the confirmation.
func (n *LogNotifier) SendComplaintConfirmation(_ context.Context, c Confirmation) error {
	n.Logger.Info("complaint confirmation (email disabled)",
		"tracking_id", c.TrackingID,
		"email", c.ComplainantEmail,
		"department", c.Department,
	)
	return nil
}

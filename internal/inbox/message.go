package inbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/civicdesk/grievance-desk/internal/ledger"
	"github.com/civicdesk/grievance-desk/internal/model"
	"github.com/civicdesk/grievance-desk/internal/notify"
)

type outcome int

const (
	outcomeIgnored  outcome = iota // no tracking tag; left for humans
	outcomeRejected                // tagged, but not attachable
	outcomeSaved
)

var trackingTagRegex = regexp.MustCompile(`\[` + notify.SubjectTag + `: ([A-Z0-9-]+)\]`)

var quoteHeaderRegex = regexp.MustCompile(`(?i)^on .+ wrote:$`)

// maxBodyBytes bounds how much of the text part is read.
const maxBodyBytes = 1 << 20

var errNoBody = errors.New("message has no readable text body")

// processMessage parses one RFC 5322 message and, when it is a reply from the
// complainant, adds its text as a public comment.
func (f *Fetcher) processMessage(ctx context.Context, r io.Reader) (outcome, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		f.logger.Info("unparseable message", "error", err)
		return outcomeRejected, nil
	}

	subject, err := mr.Header.Subject()
	if err != nil {
		subject = mr.Header.Get("Subject")
	}
	matches := trackingTagRegex.FindStringSubmatch(subject)
	if len(matches) < 2 {
		return outcomeIgnored, nil
	}
	trackingID := matches[1]

	from, err := mr.Header.AddressList("From")
	if err != nil || len(from) == 0 {
		f.logger.Info("reply without sender", "tracking_id", trackingID)
		return outcomeRejected, nil
	}
	sender := from[0]

	c, err := f.complaints.GetComplaintByTrackingID(ctx, trackingID)
	if errors.Is(err, model.ErrNotFound) {
		f.logger.Info("received reply for unknown complaint", "tracking_id", trackingID)
		return outcomeRejected, nil
	}
	if err != nil {
		return outcomeRejected, err
	}
	if !strings.EqualFold(sender.Address, c.Email) {
		f.logger.Warn("reply sender does not match complainant",
			"tracking_id", trackingID,
			"from", sender.Address,
		)
		return outcomeRejected, nil
	}

	text, err := readText(mr)
	if err != nil {
		f.logger.Info("unreadable reply", "tracking_id", trackingID, "error", err)
		return outcomeRejected, nil
	}
	text = stripQuoted(text)
	if text == "" {
		return outcomeRejected, nil
	}
	if runes := []rune(text); len(runes) > ledger.MaxCommentLength {
		text = string(runes[:ledger.MaxCommentLength])
	}

	name := sender.Name
	if name == "" {
		name = c.Name
	}
	actor := model.Actor{ID: "email:" + strings.ToLower(sender.Address), Role: model.RoleCitizen, Name: name}
	if _, err := f.comments.AddComment(ctx, trackingID, actor, text, false); err != nil {
		if errors.Is(err, model.ErrValidation) {
			return outcomeRejected, nil
		}
		return outcomeRejected, err
	}

	f.logger.Info("saved email reply", "tracking_id", trackingID, "from", sender.Address)
	return outcomeSaved, nil
}

// readText returns the first inline text/plain part of the message, with its
// transfer encoding and charset already decoded.
func readText(mr *mail.Reader) (string, error) {
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			return "", errNoBody
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return "", fmt.Errorf("read part: %w", err)
		}
		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		mt, _, ctErr := h.ContentType()
		if ctErr != nil && h.Get("Content-Type") == "" {
			mt, ctErr = "text/plain", nil
		}
		if ctErr != nil || mt != "text/plain" {
			continue
		}
		b, err := io.ReadAll(io.LimitReader(p.Body, maxBodyBytes))
		if err != nil {
			return "", fmt.Errorf("read text part: %w", err)
		}
		return string(b), nil
	}
}

// stripQuoted drops the quoted original below a reply.
func stripQuoted(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, ">") ||
			quoteHeaderRegex.MatchString(trimmed) ||
			strings.HasPrefix(trimmed, "-----Original Message-----") {
			break
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

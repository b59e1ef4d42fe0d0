// Package inbox turns complainant email replies into complaint comments.
package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/civicdesk/grievance-desk/internal/model"
)

// IMAPConfig holds the configuration for the IMAP client.
type IMAPConfig struct {
	Server   string // host:port, TLS
	Username string
	Password string
	Mailbox  string // defaults to INBOX
}

// ComplaintFinder looks complaints up by tracking ID.
type ComplaintFinder interface {
	GetComplaintByTrackingID(ctx context.Context, trackingID string) (*model.Complaint, error)
}

// Commenter appends comments to complaints.
type Commenter interface {
	AddComment(ctx context.Context, trackingID string, actor model.Actor, text string, internal bool) (*model.Comment, error)
}

// Fetcher polls a mailbox for replies to confirmation emails.
type Fetcher struct {
	cfg          IMAPConfig
	complaints   ComplaintFinder
	comments     Commenter
	tickInterval time.Duration
	logger       *slog.Logger
}

// NewFetcher creates a Fetcher that polls every five minutes.
func NewFetcher(cfg IMAPConfig, complaints ComplaintFinder, comments Commenter, logger *slog.Logger) *Fetcher {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	return &Fetcher{
		cfg:          cfg,
		complaints:   complaints,
		comments:     comments,
		tickInterval: 5 * time.Minute,
		logger:       logger,
	}
}

// SetTickInterval overrides the polling interval.
func (f *Fetcher) SetTickInterval(d time.Duration) {
	f.tickInterval = d
}

// Run polls until the context is cancelled.
func (f *Fetcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.tickInterval)
	defer ticker.Stop()

	for {
		if err := f.FetchOnce(ctx); err != nil {
			f.logger.Error("imap fetch", "error", err)
		}
		select {
		case <-ctx.Done():
			f.logger.Info("inbox fetcher shutting down")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// FetchOnce connects to the IMAP server, processes unseen messages, and
// flags the consumed ones as seen.
func (f *Fetcher) FetchOnce(ctx context.Context) error {
	c, err := client.DialTLS(f.cfg.Server, nil)
	if err != nil {
		return fmt.Errorf("imap dial: %w", err)
	}
	defer c.Logout()

	if err := c.Login(f.cfg.Username, f.cfg.Password); err != nil {
		return fmt.Errorf("imap login: %w", err)
	}
	if _, err := c.Select(f.cfg.Mailbox, false); err != nil {
		return fmt.Errorf("imap select %s: %w", f.cfg.Mailbox, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	ids, err := c.Search(criteria)
	if err != nil {
		return fmt.Errorf("imap search: %w", err)
	}
	if len(ids) == 0 {
		f.logger.Debug("no new replies")
		return nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	section := &imap.BodySectionName{}
	items := []imap.FetchItem{section.FetchItem()}

	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	consumed := new(imap.SeqSet)
	saved := 0
	for msg := range messages {
		r := msg.GetBody(section)
		if r == nil {
			f.logger.Error("server didn't return message body", "seq", msg.SeqNum)
			continue
		}
		res, err := f.processMessage(ctx, r)
		if err != nil {
			f.logger.Error("processing reply", "seq", msg.SeqNum, "error", err)
			continue
		}
		if res != outcomeIgnored {
			consumed.AddNum(msg.SeqNum)
		}
		if res == outcomeSaved {
			saved++
		}
	}
	if err := <-done; err != nil {
		return fmt.Errorf("imap fetch: %w", err)
	}

	// Flags can only be stored once the fetch has drained.
	if !consumed.Empty() {
		item := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := c.Store(consumed, item, []interface{}{imap.SeenFlag}, nil); err != nil {
			return fmt.Errorf("imap mark seen: %w", err)
		}
	}

	f.logger.Info("inbox fetch complete", "unseen", len(ids), "comments_added", saved)
	return nil
}

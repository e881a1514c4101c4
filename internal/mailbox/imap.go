// Package mailbox fetches listing-alert emails over IMAP. The pipeline only
// sees (sender, HTML body) pairs; connection lifecycle, search criteria and
// read-state marking all live here.
package mailbox

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"

	"github.com/cwhitley/propmail/internal/config"
	"github.com/cwhitley/propmail/internal/domain"
	"github.com/cwhitley/propmail/internal/extract"
)

// Client reads unseen listing emails from one IMAP folder. Each Fetch opens
// its own connection; the client carries no live session between cycles.
type Client struct {
	cfg    config.MailboxConfig
	logger *slog.Logger

	// UIDs of the messages returned by the last Fetch, marked seen by
	// MarkProcessed after a successful pipeline run. Includes discarded
	// messages so they are not re-fetched every cycle.
	lastUIDs []uint32
}

// disposition is the outcome of examining one fetched message.
type disposition int

const (
	// dispositionIngest hands the message to the pipeline and marks it
	// seen after a successful run.
	dispositionIngest disposition = iota
	// dispositionDiscard marks a listing message that can never be parsed
	// seen without ingesting it, so it stops reappearing in unseen search.
	dispositionDiscard
	// dispositionLeave keeps the message unseen: either it is not listing
	// mail at all, or the failure looks transient and a retry may succeed.
	dispositionLeave
)

// New creates a mailbox client
func New(cfg config.MailboxConfig, logger *slog.Logger) *Client {
	return &Client{cfg: cfg, logger: logger}
}

// Fetch returns the HTML bodies of all unseen messages from known listing
// senders. Messages are fetched with peek so nothing is marked seen until
// the batch has been processed. The connection is bounded by the configured
// fetch timeout so a stalled server fails the cycle instead of hanging it.
func (c *Client) Fetch(ctx context.Context) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer conn.Logout()

	if _, err := conn.Select(c.cfg.Folder, false); err != nil {
		return nil, fmt.Errorf("select %s: %w", c.cfg.Folder, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := conn.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("search unseen: %w", err)
	}
	if len(uids) == 0 {
		c.lastUIDs = nil
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	fetched := make(chan *imap.Message, 16)
	done := make(chan error, 1)
	go func() {
		done <- conn.UidFetch(seqset, items, fetched)
	}()

	var messages []domain.Message
	var kept, discarded []uint32
	for msg := range fetched {
		m, disp := c.classify(msg, section)
		switch disp {
		case dispositionIngest:
			messages = append(messages, m)
			kept = append(kept, msg.Uid)
		case dispositionDiscard:
			discarded = append(discarded, msg.Uid)
		}
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}

	c.lastUIDs = append(kept, discarded...)
	c.logger.Info("mailbox fetched", "unseen", len(uids),
		"listing_messages", len(messages), "discarded", len(discarded))
	return messages, nil
}

// classify decides what to do with one fetched message. Only mail from a
// recognized listing sender is ever touched; anything else in the folder is
// left exactly as found.
func (c *Client) classify(msg *imap.Message, section *imap.BodySectionName) (domain.Message, disposition) {
	sender := senderAddress(msg.Envelope)
	if extract.DetectSource(sender, "") == domain.SourceUnknown {
		return domain.Message{}, dispositionLeave
	}

	body := msg.GetBody(section)
	if body == nil {
		// The server omitted the requested section; retry next cycle.
		return domain.Message{}, dispositionLeave
	}
	html, err := htmlPart(body)
	if err != nil {
		c.logger.Warn("discarding message with unreadable body", "sender", sender, "error", err)
		return domain.Message{}, dispositionDiscard
	}
	if html == "" {
		// No text/html part; this message will never parse.
		return domain.Message{}, dispositionDiscard
	}

	return domain.Message{Sender: sender, HTML: html}, dispositionIngest
}

// MarkProcessed flags the messages returned by the last Fetch as seen so the
// next cycle does not reprocess them. Called only after the pipeline run
// succeeded; upserts are idempotent, so a crash between run and mark costs a
// reprocess, not a duplicate.
func (c *Client) MarkProcessed(ctx context.Context) error {
	if len(c.lastUIDs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	conn, err := c.dial()
	if err != nil {
		return err
	}
	defer conn.Logout()

	if _, err := conn.Select(c.cfg.Folder, false); err != nil {
		return fmt.Errorf("select %s: %w", c.cfg.Folder, err)
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(c.lastUIDs...)

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := conn.UidStore(seqset, item, []interface{}{imap.SeenFlag}, nil); err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}

	c.lastUIDs = nil
	return nil
}

func (c *Client) dial() (*client.Client, error) {
	conn, err := client.DialTLS(c.cfg.Address, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.cfg.Address, err)
	}
	conn.Timeout = c.cfg.FetchTimeout

	if err := conn.Login(c.cfg.Username, c.cfg.Password); err != nil {
		conn.Logout()
		return nil, fmt.Errorf("login: %w", err)
	}
	return conn, nil
}

func senderAddress(env *imap.Envelope) string {
	if env == nil || len(env.From) == 0 {
		return ""
	}
	return env.From[0].Address()
}

// htmlPart walks a MIME message and returns its first text/html part
func htmlPart(r io.Reader) (string, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return "", err
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return "", nil
		}
		if err != nil {
			return "", err
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, err := header.ContentType()
		if err != nil {
			continue
		}
		if strings.EqualFold(contentType, "text/html") {
			body, err := io.ReadAll(part.Body)
			if err != nil {
				return "", err
			}
			return string(body), nil
		}
	}
}

// Package digest builds and delivers the periodic news digest email.
package digest

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/umputun/newsdigest/pkg/domain"
)

// Message is a composed digest email
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
	Date    time.Time
}

// Composer turns fetched items into a plaintext digest message
type Composer struct {
	now func() time.Time
}

// NewComposer makes a composer stamping messages with the current time
func NewComposer() *Composer {
	return &Composer{now: time.Now}
}

// Compose builds the digest for the settings. News lines are "title - link", optionally followed
// by an indented excerpt, paper lines are "title - id".
func (c *Composer) Compose(s domain.Settings, news, papers []domain.Item) Message {
	var body strings.Builder
	body.WriteString("Latest News:\n")
	body.WriteString(strings.Join(lines(news), "\n"))
	body.WriteString("\n\nLatest Papers:\n")
	body.WriteString(strings.Join(lines(papers), "\n"))

	return Message{
		From:    s.SenderEmail,
		To:      s.RecipientEmail,
		Subject: "News Update for " + s.Keywords,
		Body:    body.String(),
		Date:    c.now(),
	}
}

func lines(items []domain.Item) []string {
	res := make([]string, 0, len(items))
	for _, item := range items {
		line := item.String()
		if item.Excerpt != "" {
			line += "\n  " + item.Excerpt
		}
		res = append(res, line)
	}
	return res
}

// Render encodes the message as an RFC 5322 email with a single utf-8 text/plain part
func (m Message) Render() ([]byte, error) {
	var h mail.Header
	h.SetDate(m.Date)
	h.SetAddressList("From", []*mail.Address{{Address: m.From}})
	h.SetAddressList("To", []*mail.Address{{Address: m.To}})
	h.SetSubject(m.Subject)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generate message id: %w", err)
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create message writer: %w", err)
	}
	if _, err := io.WriteString(w, m.Body); err != nil {
		return nil, fmt.Errorf("write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close message writer: %w", err)
	}
	return buf.Bytes(), nil
}

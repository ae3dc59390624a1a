package services

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/domodwyer/mailyak/v3"
)

// ErrMailNotConfigured is returned when no SMTP host is set.
var ErrMailNotConfigured = errors.New("mail delivery is not configured")

// MailSettings holds SMTP delivery settings.
type MailSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Configured reports whether quotes can be mailed.
func (s MailSettings) Configured() bool {
	return s.Host != "" && s.From != ""
}

func (s MailSettings) addr() string {
	port := s.Port
	if port == 0 {
		port = 587
	}
	return net.JoinHostPort(s.Host, strconv.Itoa(port))
}

// QuoteMail is a quote addressed to its client with the PDF attached.
type QuoteMail struct {
	settings MailSettings
	mail     *mailyak.MailYak
}

// NewQuoteMail prepares the message for a rendered quote. The business
// contact email, when present, becomes the reply-to address.
func NewQuoteMail(settings MailSettings, business BusinessProfile, client ClientInfo, quoteNumber string, doc *QuoteDocument) (*QuoteMail, error) {
	if !settings.Configured() {
		return nil, ErrMailNotConfigured
	}
	if err := ValidateClient(client); err != nil {
		return nil, err
	}

	var auth smtp.Auth
	if settings.Username != "" {
		auth = smtp.PlainAuth("", settings.Username, settings.Password, settings.Host)
	}
	m := mailyak.New(settings.addr(), auth)

	bizName := strings.TrimSpace(business.Name)
	if bizName == "" {
		bizName = fallbackBusinessName
	}

	m.From(settings.From)
	m.FromName(bizName)
	m.To(client.Email)
	if business.ContactEmail != "" {
		m.ReplyTo(business.ContactEmail)
	}
	m.Subject(fmt.Sprintf("Your quote %s from %s", quoteNumber, bizName))

	greeting := "Hello,"
	if client.Name != "" {
		greeting = "Hello " + client.Name + ","
	}
	m.Plain().Set(fmt.Sprintf("%s\n\nPlease find your quote %s attached.\n\n%s\n%s\n",
		greeting, quoteNumber, validityTerms(doc.validity), acceptanceTerms))

	m.AttachWithMimeType(doc.Filename(), bytes.NewReader(doc.Bytes()), "application/pdf")

	return &QuoteMail{settings: settings, mail: m}, nil
}

// Build renders the MIME message without sending it.
func (q *QuoteMail) Build() ([]byte, error) {
	buf, err := q.mail.MimeBuf()
	if err != nil {
		return nil, fmt.Errorf("building quote mail: %w", err)
	}
	return buf.Bytes(), nil
}

// Send delivers the message over SMTP.
func (q *QuoteMail) Send() error {
	if err := q.mail.Send(); err != nil {
		return fmt.Errorf("sending quote mail via %s: %w", q.settings.addr(), err)
	}
	return nil
}

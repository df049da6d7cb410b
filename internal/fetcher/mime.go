package fetcher

import (
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	gomail "github.com/emersion/go-message/mail"

	"flight-mail-review-go/internal/model"
)

// parseRFC822 reads a raw message and extracts headers plus the first
// text/plain and text/html parts that are not attachments
func parseRFC822(r io.Reader) (model.EmailMessage, error) {
	var email model.EmailMessage

	entity, err := message.Read(r)
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		return email, fmt.Errorf("failed to read message: %w", err)
	}

	header := gomail.Header{Header: entity.Header}
	email.MessageID = strings.TrimSpace(header.Get("Message-Id"))
	if subject, err := header.Subject(); err == nil {
		email.Subject = subject
	} else {
		email.Subject = header.Get("Subject")
	}
	email.Sender = header.Get("From")
	if from, err := header.AddressList("From"); err == nil && len(from) > 0 {
		email.Sender = from[0].String()
	}
	email.Date = parseDate(header.Get("Date"))

	err = entity.Walk(func(_ []int, part *message.Entity, err error) error {
		if err != nil {
			return err
		}
		if part.MultipartReader() != nil {
			return nil
		}
		if disp, _, _ := part.Header.ContentDisposition(); disp == "attachment" {
			return nil
		}

		contentType, _, _ := part.Header.ContentType()
		switch contentType {
		case "text/plain":
			if email.PlainTextBody != "" {
				return nil
			}
			body, err := io.ReadAll(part.Body)
			if err != nil {
				return fmt.Errorf("failed to read text part: %w", err)
			}
			email.PlainTextBody = string(body)
		case "text/html":
			if email.HTMLBody != "" {
				return nil
			}
			body, err := io.ReadAll(part.Body)
			if err != nil {
				return fmt.Errorf("failed to read html part: %w", err)
			}
			email.HTMLBody = string(body)
		}
		return nil
	})
	if err != nil {
		return email, fmt.Errorf("failed to walk message parts: %w", err)
	}

	return email, nil
}

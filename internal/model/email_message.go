package model

import "time"

// EmailMessage is a raw email record supplied by a mailbox source
type EmailMessage struct {
	MessageID     string    `json:"message_id"`
	ProviderID    string    `json:"provider_id"`
	Subject       string    `json:"subject"`
	Sender        string    `json:"sender"`
	Date          time.Time `json:"date"`
	HTMLBody      string    `json:"html_body"`
	PlainTextBody string    `json:"plain_text_body"`
}

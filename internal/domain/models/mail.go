package models

// Attachment is a binary file attached to an outbound email.
type Attachment struct {
	Data     []byte `json:"data"`
	Filename string `json:"filename"`
}

// MailMessage is the payload handed to the mail gateway.
type MailMessage struct {
	To          []string     `json:"to"`
	Subject     string       `json:"subject"`
	Text        string       `json:"text"`
	HTML        string       `json:"html"`
	Attachments []Attachment `json:"attachments"`
}

// SendResult mirrors the mail gateway response.
type SendResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

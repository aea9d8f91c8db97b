// Package email defines the interface for digest delivery and provides
// Resend and AWS SES backed implementations.
package email

import (
	"context"
	"fmt"
)

// Message is one rendered email to one recipient.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender is the interface the digest batch uses to send email.
// Tests inject a stub that records calls without hitting the network.
type Sender interface {
	// Send delivers msg. A non-nil error means this recipient did not get
	// it; the batch records the failure and carries on.
	Send(ctx context.Context, msg Message) error
}

// From formats a display-name sender address.
func From(name, addr string) string {
	if name == "" {
		return addr
	}
	return fmt.Sprintf("%s <%s>", name, addr)
}

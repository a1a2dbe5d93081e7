// Package email defines the delivery contract the rest of the system depends
// on. Template rendering and transport live behind the Sender interface; the
// core only observes whether a send succeeded.
package email

import "context"

// Message is a fully rendered email ready for transport.
type Message struct {
	To       string
	ToName   string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers a single message. Implementations must be safe for
// concurrent use; the dispatcher fans out across goroutines.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

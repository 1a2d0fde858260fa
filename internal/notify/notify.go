// Package notify defines the single destination jobs report to.
// Sinks deliver synchronously and never retry; a rejected delivery is an error.
package notify

import "context"

// Attachment is an optional image sent alongside the text.
type Attachment struct {
	Name string
	Data []byte
}

// Message is the human-readable report of one run.
type Message struct {
	Content    string
	Attachment *Attachment
}

// Text builds a plain message.
func Text(content string) Message {
	return Message{Content: content}
}

// Sink delivers a message to the configured destination.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, msg Message) error

func (f SinkFunc) Send(ctx context.Context, msg Message) error {
	if f == nil {
		return nil
	}
	return f(ctx, msg)
}

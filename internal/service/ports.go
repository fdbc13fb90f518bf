package service

import "context"

// EventPublisher emits domain events. Publishing is best effort: failures are
// logged by the caller and never undo the operation that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, event interface{}) error
}

type EmailSender interface {
	Send(ctx context.Context, to []string, subject, bodyHTML, bodyText string) error
}

type ImageStorage interface {
	Upload(ctx context.Context, folder, fileName string, data []byte) (string, error)
}

// ImageUpload is one file received from a client.
type ImageUpload struct {
	FileName string
	Data     []byte
}

const (
	itemImageFolder = "items"
	avatarFolder    = "avatars"
)

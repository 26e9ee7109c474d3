package chat

import (
	"context"
	"fmt"

	"chat-ai-be/internal/blob"
	"chat-ai-be/internal/models"
	"chat-ai-be/internal/ws"
)

// Pusher delivers an event to a user's registered connection. The hub
// implements it; tests substitute a recorder.
type Pusher interface {
	PushToUser(userID uint, ev ws.Event) bool
}

// Sender runs the send pipeline: validate, upload the image if any, persist,
// then best-effort push to the receiver. Persistence is the only durability
// guarantee; a missed push never fails the send.
type Sender struct {
	Store  *Store
	Blobs  blob.Uploader
	Pusher Pusher
}

func NewSender(store *Store, blobs blob.Uploader, pusher Pusher) *Sender {
	return &Sender{Store: store, Blobs: blobs, Pusher: pusher}
}

func (s *Sender) Send(ctx context.Context, senderID, receiverID uint, text, image string) (*models.Message, error) {
	if text == "" && image == "" {
		return nil, fmt.Errorf("message needs text or an image: %w", ErrInvalidArgument)
	}

	if _, err := s.Store.GetUser(receiverID); err != nil {
		return nil, err
	}

	var imageURL string
	if image != "" {
		url, err := s.Blobs.Upload(ctx, image)
		if err != nil {
			return nil, fmt.Errorf("upload image: %v: %w", err, ErrDependencyFailure)
		}
		imageURL = url
	}

	msg := &models.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		ImageURL:   imageURL,
	}
	if err := s.Store.SaveMessage(msg); err != nil {
		return nil, err
	}

	// The message is durable from here on. Push only if the receiver is
	// online right now; offline receivers pick it up from history later.
	s.Pusher.PushToUser(receiverID, ws.Event{Type: ws.EventNewMessage, Data: msg})

	return msg, nil
}

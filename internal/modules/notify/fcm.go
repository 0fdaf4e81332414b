// README: Firebase Cloud Messaging sender.
package notify

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
)

type FCMSender struct {
	client *messaging.Client
}

func NewFCMSender(ctx context.Context, app *firebase.App) (*FCMSender, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialising firebase messaging client: %w", err)
	}
	return &FCMSender{client: client}, nil
}

func (s *FCMSender) Send(ctx context.Context, token string, msg Message) error {
	_, err := s.client.Send(ctx, buildFCMMessage(token, msg))
	if messaging.IsUnregistered(err) || messaging.IsInvalidArgument(err) {
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if err != nil {
		return fmt.Errorf("sending FCM for %s: %w", string(msg.UserID), err)
	}
	return nil
}

func buildFCMMessage(token string, msg Message) *messaging.Message {
	data := map[string]string{
		"notification_id": string(msg.ID),
		"category":        string(msg.Category),
	}
	if msg.DeepLink != "" {
		data["deep_link"] = msg.DeepLink
	}
	for k, v := range msg.Data {
		data[k] = v
	}
	return &messaging.Message{
		Token: token,
		Data:  data,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}
}

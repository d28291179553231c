package services

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
	"github.com/sirupsen/logrus"
)

// messageSender is the part of the FCM client the push service uses
type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type PushService struct {
	client messageSender
}

// NewPushService wraps an FCM client. A nil client makes every send fail with ErrChannelNotConfigured.
func NewPushService(client *messaging.Client) *PushService {
	if client == nil {
		return &PushService{}
	}
	return &PushService{client: client}
}

func (ps *PushService) Configured() bool {
	return ps != nil && ps.client != nil
}

// FacilityTopic is the FCM topic a facility's dispatch console subscribes to
func FacilityTopic(facilityID string) string {
	return "facility_" + facilityID
}

func (ps *PushService) SendToTopic(ctx context.Context, topic, title, body string, data map[string]string) error {
	if !ps.Configured() || topic == "" {
		return ErrChannelNotConfigured
	}
	return ps.send(ctx, &messaging.Message{
		Topic: topic,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data:    data,
		Android: urgentAndroidConfig(),
	})
}

func (ps *PushService) SendToDevice(ctx context.Context, token, title, body string, data map[string]string) error {
	if !ps.Configured() || token == "" {
		return ErrChannelNotConfigured
	}
	return ps.send(ctx, &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data:    data,
		Android: urgentAndroidConfig(),
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-priority": "10"},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: title,
						Body:  body,
					},
					Sound: "default",
				},
			},
		},
	})
}

func (ps *PushService) send(ctx context.Context, message *messaging.Message) error {
	id, err := ps.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("fcm send: %w", err)
	}
	logrus.Debugf("Push sent: %s", id)
	return nil
}

func urgentAndroidConfig() *messaging.AndroidConfig {
	return &messaging.AndroidConfig{
		Priority: "high",
		Notification: &messaging.AndroidNotification{
			Sound:     "default",
			Icon:      "ic_emergency",
			Color:     "#E53935",
			ChannelID: "emergency_alerts",
		},
	}
}

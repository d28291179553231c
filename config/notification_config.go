// config/notification_config.go
package config

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	"google.golang.org/api/option"
)

// NotificationClients holds the provider clients. A nil field means the provider
// is not configured and its channel reports ErrChannelNotConfigured.
type NotificationClients struct {
	FCM      *messaging.Client
	Twilio   *twilio.RestClient
	SendGrid *sendgrid.Client
}

// InitNotificationClients builds every configured provider client
func InitNotificationClients(ctx context.Context, cfg *Config) *NotificationClients {
	clients := &NotificationClients{}

	if cfg.FirebaseCredentials != "" {
		app, err := initializeFirebase(ctx, cfg.FirebaseCredentials)
		if err != nil {
			logrus.Errorf("Failed to initialize Firebase: %v", err)
		} else {
			clients.FCM, err = app.Messaging(ctx)
			if err != nil {
				logrus.Errorf("Failed to get FCM client: %v", err)
			}
		}
	} else {
		logrus.Warn("FIREBASE_CREDENTIALS not set, push notifications disabled")
	}

	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		clients.Twilio = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.TwilioAccountSID,
			Password: cfg.TwilioAuthToken,
		})
	} else {
		logrus.Warn("Twilio credentials not set, SMS disabled")
	}

	if cfg.SendGridAPIKey != "" {
		clients.SendGrid = sendgrid.NewSendClient(cfg.SendGridAPIKey)
	} else {
		logrus.Warn("SENDGRID_API_KEY not set, email disabled")
	}

	if cfg.EmergencyHotlineNumber == "" {
		logrus.Warn("EMERGENCY_HOTLINE_NUMBER not set, hotline notifications will fail")
	}

	return clients
}

// initializeFirebase initializes Firebase app
func initializeFirebase(ctx context.Context, credentialsPath string) (*firebase.App, error) {
	opt := option.WithCredentialsFile(credentialsPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, err
	}

	return app, nil
}

package services

import (
	"context"
	"errors"
	"testing"

	"lifeline/models"

	"firebase.google.com/go/v4/messaging"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeTwilio struct {
	params []*twilioApi.CreateMessageParams
	err    error
}

func (ft *fakeTwilio) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	ft.params = append(ft.params, params)
	if ft.err != nil {
		return nil, ft.err
	}
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

type fakeFCM struct {
	messages []*messaging.Message
	err      error
}

func (ff *fakeFCM) Send(ctx context.Context, message *messaging.Message) (string, error) {
	ff.messages = append(ff.messages, message)
	return "projects/lifeline/messages/1", ff.err
}

func TestSMSService_Send(t *testing.T) {
	api := &fakeTwilio{}
	sms := newSMSService(api, "+15550001111", 10)
	require.True(t, sms.Configured())

	require.NoError(t, sms.Send(context.Background(), "+919800000001", "EMERGENCY"))
	require.Len(t, api.params, 1)
	assert.Equal(t, "+919800000001", *api.params[0].To)
	assert.Equal(t, "+15550001111", *api.params[0].From)
	assert.Equal(t, "EMERGENCY", *api.params[0].Body)

	api.err = errors.New("invalid number")
	assert.Error(t, sms.Send(context.Background(), "+919800000001", "EMERGENCY"))
}

func TestSMSService_NotConfigured(t *testing.T) {
	var nilService *SMSService
	assert.ErrorIs(t, nilService.Send(context.Background(), "+919800000001", "x"), ErrChannelNotConfigured)

	sms := NewSMSService(nil, "+15550001111", 5)
	assert.False(t, sms.Configured())
	assert.ErrorIs(t, sms.Send(context.Background(), "+919800000001", "x"), ErrChannelNotConfigured)

	sms = newSMSService(&fakeTwilio{}, "+15550001111", 5)
	assert.ErrorIs(t, sms.Send(context.Background(), "", "x"), ErrChannelNotConfigured)
}

func TestPushService(t *testing.T) {
	fcm := &fakeFCM{}
	push := &PushService{client: fcm}

	require.NoError(t, push.SendToTopic(context.Background(), FacilityTopic("blr-trauma"), "EMERGENCY", "body", map[string]string{"a": "b"}))
	require.NoError(t, push.SendToDevice(context.Background(), "device-token", "EMERGENCY", "body", nil))

	require.Len(t, fcm.messages, 2)
	assert.Equal(t, "facility_blr-trauma", fcm.messages[0].Topic)
	assert.Equal(t, "high", fcm.messages[0].Android.Priority)
	assert.Equal(t, "device-token", fcm.messages[1].Token)
	assert.Equal(t, "10", fcm.messages[1].APNS.Headers["apns-priority"])

	fcm.err = errors.New("unregistered")
	assert.Error(t, push.SendToDevice(context.Background(), "device-token", "t", "b", nil))

	assert.ErrorIs(t, NewPushService(nil).SendToTopic(context.Background(), "topic", "t", "b", nil), ErrChannelNotConfigured)
}

func TestEmailService(t *testing.T) {
	var sent []*mail.SGMailV3
	status := 202
	email := &EmailService{
		fromAddr: "alerts@lifeline.example",
		fromName: "Lifeline",
		send: func(ctx context.Context, message *mail.SGMailV3) (int, error) {
			sent = append(sent, message)
			return status, nil
		},
	}

	require.NoError(t, email.Send(context.Background(), "asha@example.com", "Asha", "EMERGENCY", "plain", "<p>html</p>"))
	require.Len(t, sent, 1)
	assert.Equal(t, "EMERGENCY", sent[0].Subject)
	assert.Equal(t, "alerts@lifeline.example", sent[0].From.Address)

	status = 401
	assert.Error(t, email.Send(context.Background(), "asha@example.com", "Asha", "EMERGENCY", "plain", "<p>html</p>"))

	assert.ErrorIs(t, NewEmailService(nil, "alerts@lifeline.example", "Lifeline").Send(context.Background(), "a@b.c", "", "s", "p", "h"), ErrChannelNotConfigured)
}

func TestContactChannel_AnyMediumIsEnough(t *testing.T) {
	api := &fakeTwilio{err: errors.New("twilio down")}
	fcm := &fakeFCM{}
	channel := NewContactChannel(newSMSService(api, "+15550001111", 10), &PushService{client: fcm}, NewEmailService(nil, "", ""))

	err := channel.Send(context.Background(), models.NotificationPayload{
		RecipientID: "c-1",
		Title:       "EMERGENCY",
		Body:        "body",
		Phone:       "+919800000001",
		DeviceToken: "device-token",
	})
	assert.NoError(t, err)
	assert.Len(t, api.params, 1)
	assert.Len(t, fcm.messages, 1)

	fcm.err = errors.New("fcm down")
	err = channel.Send(context.Background(), models.NotificationPayload{
		RecipientID: "c-1",
		Phone:       "+919800000001",
		DeviceToken: "device-token",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sms")
	assert.Contains(t, err.Error(), "push")
}

func TestFacilityChannel_UsesFacilityTopic(t *testing.T) {
	fcm := &fakeFCM{}
	channel := NewFacilityChannel(&PushService{client: fcm})

	err := channel.Send(context.Background(), models.NotificationPayload{
		RecipientID: "blr-victoria",
		Target:      models.TargetFacilities,
		Location:    testLocation(),
	})
	require.NoError(t, err)
	require.Len(t, fcm.messages, 1)
	assert.Equal(t, "facility_blr-victoria", fcm.messages[0].Topic)
	assert.Equal(t, "12.971600", fcm.messages[0].Data["latitude"])

	assert.ErrorIs(t, channel.Send(context.Background(), models.NotificationPayload{}), ErrChannelNotConfigured)
}

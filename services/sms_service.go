// services/sms_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"lifeline/utils"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"golang.org/x/time/rate"
)

// ErrChannelNotConfigured is a send failure caused by a missing provider or address
var ErrChannelNotConfigured = errors.New("notification channel not configured")

// messageCreator is the part of the Twilio API the SMS service uses
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type SMSService struct {
	api        messageCreator
	fromNumber string
	limiter    *rate.Limiter
}

// NewSMSService wraps a Twilio client. A nil client yields a service whose sends
// fail with ErrChannelNotConfigured.
func NewSMSService(client *twilio.RestClient, fromNumber string, perSecond int) *SMSService {
	var api messageCreator
	if client != nil {
		api = client.Api
	}
	return newSMSService(api, fromNumber, perSecond)
}

func newSMSService(api messageCreator, fromNumber string, perSecond int) *SMSService {
	if perSecond <= 0 {
		perSecond = 5
	}
	return &SMSService{
		api:        api,
		fromNumber: fromNumber,
		limiter:    rate.NewLimiter(rate.Limit(perSecond), perSecond),
	}
}

func (ss *SMSService) Configured() bool {
	return ss != nil && ss.api != nil && ss.fromNumber != ""
}

// Send delivers one SMS, waiting for the account's send rate
func (ss *SMSService) Send(ctx context.Context, to, body string) error {
	if !ss.Configured() || to == "" {
		return ErrChannelNotConfigured
	}

	if err := ss.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("sms rate limit wait: %w", err)
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(ss.fromNumber)
	params.SetBody(body)

	resp, err := ss.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio create message: %w", err)
	}

	sid := ""
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	logrus.WithFields(logrus.Fields{
		"to":  utils.MaskPhoneNumber(to),
		"sid": sid,
	}).Debug("SMS sent")

	return nil
}

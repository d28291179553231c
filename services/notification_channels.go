package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"lifeline/models"
)

// NotificationChannel delivers one payload to one target
type NotificationChannel interface {
	Send(ctx context.Context, payload models.NotificationPayload) error
}

// ChannelFunc adapts a function to NotificationChannel
type ChannelFunc func(ctx context.Context, payload models.NotificationPayload) error

func (f ChannelFunc) Send(ctx context.Context, payload models.NotificationPayload) error {
	return f(ctx, payload)
}

// NotificationChannels groups the channel used for each target class
type NotificationChannels struct {
	Hotline  NotificationChannel
	Facility NotificationChannel
	Contact  NotificationChannel
}

// HotlineChannel texts the emergency hotline
type HotlineChannel struct {
	sms    *SMSService
	number string
}

func NewHotlineChannel(sms *SMSService, number string) *HotlineChannel {
	return &HotlineChannel{sms: sms, number: number}
}

func (hc *HotlineChannel) Send(ctx context.Context, payload models.NotificationPayload) error {
	if hc.number == "" {
		return ErrChannelNotConfigured
	}
	return hc.sms.Send(ctx, hc.number, payload.Title+"\n"+payload.Body)
}

// FacilityChannel pushes to the facility's dispatch topic
type FacilityChannel struct {
	push *PushService
}

func NewFacilityChannel(push *PushService) *FacilityChannel {
	return &FacilityChannel{push: push}
}

func (fc *FacilityChannel) Send(ctx context.Context, payload models.NotificationPayload) error {
	if payload.RecipientID == "" {
		return fmt.Errorf("facility %q has no id: %w", payload.RecipientName, ErrChannelNotConfigured)
	}
	return fc.push.SendToTopic(ctx, FacilityTopic(payload.RecipientID), payload.Title, payload.Body, payloadData(payload))
}

// ContactChannel reaches a family contact by SMS, push and email. It succeeds
// when any medium succeeds.
type ContactChannel struct {
	sms   *SMSService
	push  *PushService
	email *EmailService
}

func NewContactChannel(sms *SMSService, push *PushService, email *EmailService) *ContactChannel {
	return &ContactChannel{sms: sms, push: push, email: email}
}

func (cc *ContactChannel) Send(ctx context.Context, payload models.NotificationPayload) error {
	var errs []error
	delivered := 0

	attempt := func(medium string, err error) {
		if err == nil {
			delivered++
			return
		}
		errs = append(errs, fmt.Errorf("%s: %w", medium, err))
	}

	if payload.Phone != "" {
		attempt("sms", cc.sms.Send(ctx, payload.Phone, payload.Title+"\n"+payload.Body))
	}
	if payload.DeviceToken != "" {
		attempt("push", cc.push.SendToDevice(ctx, payload.DeviceToken, payload.Title, payload.Body, payloadData(payload)))
	}
	if payload.Email != "" {
		htmlBody := "<p><strong>" + html.EscapeString(payload.Title) + "</strong></p><p>" +
			strings.ReplaceAll(html.EscapeString(payload.Body), "\n", "<br>") + "</p>"
		attempt("email", cc.email.Send(ctx, payload.Email, payload.RecipientName, payload.Title, payload.Body, htmlBody))
	}

	if delivered > 0 {
		return nil
	}
	if len(errs) == 0 {
		return fmt.Errorf("contact %s has no phone, device or email: %w", payload.RecipientID, ErrChannelNotConfigured)
	}
	return errors.Join(errs...)
}

func payloadData(payload models.NotificationPayload) map[string]string {
	data := map[string]string{
		"type":       "emergency",
		"target":     string(payload.Target),
		"incidentId": payload.IncidentID,
		"categoryId": string(payload.CategoryID),
		"urgency":    string(payload.Urgency),
	}
	if payload.Location != nil && !payload.Location.IsPlaceholder() {
		data["latitude"] = fmt.Sprintf("%.6f", payload.Location.Latitude)
		data["longitude"] = fmt.Sprintf("%.6f", payload.Location.Longitude)
	}
	for k, v := range payload.Metadata {
		data[k] = v
	}
	return data
}

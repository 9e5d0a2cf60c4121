package locus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/bnema/locus-sync/internal/domain"
)

var policyErrorCodes = []int{403049, 403104, 403103, 403048, 403102, 403101}

type meetingInfoRequest struct {
	SipURL          string `json:"sipUrl,omitempty"`
	MeetingKey      string `json:"meetingKey,omitempty"`
	ConversationURL string `json:"conversationUrl,omitempty"`
	MeetingURL      string `json:"meetingUrl,omitempty"`
	MeetingUUID     string `json:"meetingUUID,omitempty"`
	UserID          string `json:"userId,omitempty"`
	SupportHostKey  bool   `json:"supportHostKey"`
	SupportCountry  bool   `json:"supportCountryList"`
}

type meetingInfoResponse struct {
	MeetingNumber   string `json:"meetingNumber"`
	SipMeetingURI   string `json:"sipMeetingUri"`
	ConversationURL string `json:"conversationUrl"`
	LocusURL        string `json:"locusUrl"`
	MeetingName     string `json:"meetingName"`
	Scheduled       bool   `json:"scheduledMeeting"`
}

func (c *Client) FetchMetadata(ctx context.Context, destination domain.Destination, kind domain.DestinationType) (domain.Metadata, error) {
	body, err := meetingInfoBody(destination, kind)
	if err != nil {
		return domain.Metadata{}, err
	}

	var payload meetingInfoResponse
	if err := c.do(ctx, http.MethodPost, c.opts.MeetingInfoURL, body, &payload); err != nil {
		return domain.Metadata{}, fmt.Errorf("fetch meeting info for %s: %w", destination, classifyMeetingInfoError(err))
	}

	return domain.Metadata{
		MeetingNumber:   payload.MeetingNumber,
		SipURI:          payload.SipMeetingURI,
		ConversationURL: payload.ConversationURL,
		LocusURL:        payload.LocusURL,
		Title:           payload.MeetingName,
		Scheduled:       payload.Scheduled,
		FetchedAt:       time.Now().UTC(),
	}, nil
}

func meetingInfoBody(destination domain.Destination, kind domain.DestinationType) (meetingInfoRequest, error) {
	body := meetingInfoRequest{SupportHostKey: true, SupportCountry: true}
	address := destination.Address

	switch kind {
	case domain.DestinationSipURI:
		body.SipURL = address
	case domain.DestinationMeetingID:
		body.MeetingKey = address
	case domain.DestinationConversationURL:
		body.ConversationURL = address
	case domain.DestinationMeetingLink:
		body.MeetingURL = address
	case domain.DestinationMeetingUUID:
		body.MeetingUUID = address
	case domain.DestinationPersonalRoom:
		body.UserID = address
	case domain.DestinationLocusID:
		if number := destination.Record.MeetingNumber(); number != "" {
			body.MeetingKey = number
		} else if destination.Record != nil && destination.Record.Info != nil {
			body.SipURL = destination.Record.Info.SipURI
		}
	}

	if body == (meetingInfoRequest{SupportHostKey: true, SupportCountry: true}) {
		return meetingInfoRequest{}, fmt.Errorf("build meeting info request for %s: %w", kind, domain.ErrDestinationResolution)
	}
	return body, nil
}

func classifyMeetingInfoError(err error) error {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return err
	}

	switch statusErr.StatusCode {
	case http.StatusForbidden:
		if slices.Contains(policyErrorCodes, statusErr.Code) {
			return fmt.Errorf("%w: %w", domain.ErrPermissionDenied, err)
		}
		return fmt.Errorf("%w: %w", domain.ErrPasswordRequired, err)
	case http.StatusLocked:
		return fmt.Errorf("%w: %w", domain.ErrCaptchaRequired, err)
	default:
		return err
	}
}

package locus

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/bnema/locus-sync/internal/domain"
)

var (
	sipAddressPattern  = regexp.MustCompile(`^(sips?:)?[^\s>:@]+(:[^\s@>]+)?@[\w\-.]+(:\d+)?(;[^\s=?>;]+(=[^\s?;]+)?)*$`)
	phoneNumberPattern = regexp.MustCompile(`^\+?[0-9][0-9\s().\-]{6,}[0-9]$`)

	meetingLinkPaths = []string{"/meet", "/m/", "/cisco/", "/co/", "/join"}
)

const (
	meetingLinkHost      = "webex.com"
	conversationsSegment = "/conversations/"
)

// ResolveDestination classifies a destination without touching the network.
// An explicit kind other than SIP_URI is trusted as given.
func (c *Client) ResolveDestination(_ context.Context, destination domain.Destination, kind domain.DestinationType) (domain.ResolvedDestination, error) {
	if destination.Record != nil {
		return domain.ResolvedDestination{Destination: destination, Type: domain.DestinationLocusID}, nil
	}

	address := strings.TrimSpace(destination.Address)
	if address == "" {
		return domain.ResolvedDestination{}, domain.ErrDestinationResolution
	}
	resolved := domain.ResolvedDestination{Destination: domain.AddressDestination(address)}

	if kind != "" && kind != domain.DestinationSipURI {
		resolved.Type = kind
		return resolved, nil
	}

	switch {
	case IsMeetingLink(address):
		resolved.Type = domain.DestinationMeetingLink
	case IsConversationURL(address):
		resolved.Type = domain.DestinationConversationURL
	case IsSipURI(address):
		resolved.Type = domain.DestinationSipURI
	case IsPhoneNumber(address):
		resolved.Type = domain.DestinationSipURI
	default:
		return domain.ResolvedDestination{}, domain.ErrDestinationResolution
	}

	return resolved, nil
}

func IsSipURI(value string) bool {
	return sipAddressPattern.MatchString(value)
}

func IsPhoneNumber(value string) bool {
	return phoneNumberPattern.MatchString(value)
}

func IsMeetingLink(value string) bool {
	parsed, ok := parseHTTPURL(value)
	if !ok || !strings.HasSuffix(parsed.Hostname(), meetingLinkHost) {
		return false
	}
	for _, path := range meetingLinkPaths {
		if strings.Contains(parsed.Path, path) {
			return true
		}
	}
	return false
}

func IsConversationURL(value string) bool {
	parsed, ok := parseHTTPURL(value)
	return ok && strings.Contains(parsed.Path, conversationsSegment)
}

func parseHTTPURL(value string) (*url.URL, bool) {
	parsed, err := url.Parse(value)
	if err != nil || parsed.Host == "" {
		return nil, false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, false
	}
	return parsed, true
}

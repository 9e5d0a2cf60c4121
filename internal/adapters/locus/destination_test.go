package locus

import (
	"context"
	"strings"
	"testing"

	"github.com/bnema/locus-sync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDestination(t *testing.T) {
	t.Parallel()

	client := NewClient(Options{})
	tests := []struct {
		name    string
		address string
		kind    domain.DestinationType
		want    domain.DestinationType
		wantErr bool
	}{
		{name: "sip uri", address: "room@example.webex.com", want: domain.DestinationSipURI},
		{name: "sip scheme", address: "sip:bob@example.com", want: domain.DestinationSipURI},
		{name: "phone number", address: "+1 (415) 555-0100", want: domain.DestinationSipURI},
		{name: "meeting link", address: "https://site.webex.com/meet/alice", want: domain.DestinationMeetingLink},
		{name: "join link", address: "https://site.webex.com/site/j.php/join?MTID=1", want: domain.DestinationMeetingLink},
		{name: "conversation url", address: "https://conv-a.wbx2.com/conversation/api/v1/conversations/c1", want: domain.DestinationConversationURL},
		{name: "explicit kind passes through", address: "1234567", kind: domain.DestinationMeetingID, want: domain.DestinationMeetingID},
		{name: "surrounding spaces", address: "  room@example.com ", want: domain.DestinationSipURI},
		{name: "unknown link", address: "https://example.org/page", wantErr: true},
		{name: "plain word", address: "hello", wantErr: true},
		{name: "empty", address: "   ", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			resolved, err := client.ResolveDestination(context.Background(), domain.AddressDestination(tc.address), tc.kind)
			if tc.wantErr {
				require.ErrorIs(t, err, domain.ErrDestinationResolution)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, resolved.Type)
			assert.Equal(t, strings.TrimSpace(tc.address), resolved.Destination.Address)
		})
	}
}

func TestResolveDestinationRecordIsLocusID(t *testing.T) {
	t.Parallel()

	record := &domain.Record{URL: "https://locus/1"}
	resolved, err := NewClient(Options{}).ResolveDestination(context.Background(), domain.RecordDestination(record), "")
	require.NoError(t, err)
	assert.Equal(t, domain.DestinationLocusID, resolved.Type)
	assert.Same(t, record, resolved.Destination.Record)
}

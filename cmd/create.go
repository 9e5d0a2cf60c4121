package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bnema/locus-sync/internal/application"
	"github.com/bnema/locus-sync/internal/domain"
	"github.com/spf13/cobra"
)

func newCreateCmd(app *app) *cobra.Command {
	var kind string
	var failOnMissingMetadata bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "create <destination>",
		Short: "Create (or reuse) the session for a SIP address, meeting link or conversation URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := app.service.Create(cmd.Context(), application.CreateRequest{
				Destination:           domain.AddressDestination(args[0]),
				Kind:                  domain.DestinationType(strings.ToUpper(strings.TrimSpace(kind))),
				FailOnMissingMetadata: failOnMissingMetadata,
			})
			if err != nil {
				return fmt.Errorf("create session: %w", err)
			}
			if err := app.persistSnapshot(cmd.Context()); err != nil {
				return err
			}

			summary := session.Summary()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "session %s (%s) sip=%s meeting=%s\n",
				summary.ID, summary.Type, summary.SipURI, summary.MeetingNumber)
			return err
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Destination kind (SIP_URI|MEETING_LINK|CONVERSATION_URL|MEETING_ID|...); classified when empty")
	cmd.Flags().BoolVar(&failOnMissingMetadata, "fail-on-missing-metadata", false, "Fail instead of keeping a session without meeting info")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the created session as JSON")

	return cmd
}

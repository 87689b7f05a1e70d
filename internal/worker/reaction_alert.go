package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jwalitptl/vaccine-clinic-api/internal/email"
	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/internal/service/booking"
)

// ReactionAlerter mails the clinical team whenever an adverse reaction is
// recorded against a booking.
type ReactionAlerter struct {
	sender     email.Service
	recipients []string
}

func NewReactionAlerter(sender email.Service, recipients []string) *ReactionAlerter {
	return &ReactionAlerter{sender: sender, recipients: recipients}
}

// Handle has the shape of worker.EventHandler.
func (a *ReactionAlerter) Handle(ctx context.Context, event *model.OutboxEvent) error {
	if len(a.recipients) == 0 {
		return nil
	}

	var ev booking.TransitionEvent
	if err := json.Unmarshal(event.Payload, &ev); err != nil {
		return fmt.Errorf("failed to decode reaction event %s: %w", event.ID, err)
	}

	subject := fmt.Sprintf("Adverse reaction recorded for booking %s", ev.BookingID)
	var body strings.Builder
	fmt.Fprintf(&body, "Booking: %s\n", ev.BookingID)
	fmt.Fprintf(&body, "Status: %s\n", ev.To)
	fmt.Fprintf(&body, "Recorded by: %s (%s)\n", ev.ActorID, ev.ActorRole)
	fmt.Fprintf(&body, "Recorded at: %s\n\n", ev.OccurredAt.Format("2006-01-02 15:04 MST"))
	body.WriteString(ev.Description)
	body.WriteString("\n")

	return a.sender.SendCustom(ctx, a.recipients, subject, body.String())
}

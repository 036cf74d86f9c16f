package gmailclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonasweber/staffwerk/pkg/db"
)

// Notify emails an availability request for the event to the employee and
// returns the Gmail message ID. Satisfies the lifecycle controller's
// notifier contract.
func (c *Client) Notify(ctx context.Context, employee db.Employee, event db.Event) (string, error) {
	if employee.Email == "" {
		return "", fmt.Errorf("employee %s has no email address", employee.ID)
	}

	subject := fmt.Sprintf("Einsatzanfrage: %s am %s", event.Title, event.Date.Format("02.01.2006"))
	body := renderInvitation(employee, event)

	return c.SendEmail(ctx, employee.Email, subject, body)
}

func renderInvitation(employee db.Employee, event db.Event) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Hallo %s,\r\n\r\n", employee.Name)
	fmt.Fprintf(&b, "wir suchen noch Personal für die folgende Veranstaltung:\r\n\r\n")
	fmt.Fprintf(&b, "  %s\r\n", event.Title)
	fmt.Fprintf(&b, "  Datum: %s\r\n", event.Date.Format("02.01.2006"))
	if event.StartTime != "" {
		if event.EndTime != "" {
			fmt.Fprintf(&b, "  Zeit: %s - %s Uhr\r\n", event.StartTime, event.EndTime)
		} else {
			fmt.Fprintf(&b, "  Zeit: ab %s Uhr\r\n", event.StartTime)
		}
	}
	if event.Location != "" {
		fmt.Fprintf(&b, "  Ort: %s\r\n", event.Location)
	}
	fmt.Fprintf(&b, "  Stundenlohn: %.2f EUR\r\n\r\n", event.HourlyRate)
	fmt.Fprintf(&b, "Bitte antworte auf diese E-Mail mit \"Ja\" wenn du kannst, oder \"Nein\" wenn nicht.\r\n\r\n")
	fmt.Fprintf(&b, "Vielen Dank!\r\n")

	return b.String()
}

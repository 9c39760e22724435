package lifecycle

import (
	"fmt"
	"strings"

	"github.com/psds-microservice/helpdesk-service/internal/model"
)

// TakenMessage is sent to the requester when work on a ticket begins.
func TakenMessage(t *model.Ticket) string {
	return fmt.Sprintf("🟡 Your ticket #%d has been taken into work\n\n"+
		"A technician has started working on your problem.\n"+
		"We will get back to you as soon as it is resolved.", t.ID)
}

// ClosedMessage is the closure summary sent to the requester.
func ClosedMessage(t *model.Ticket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Your ticket #%d has been closed\n\n", t.ID)
	if t.ClosedBy != nil {
		fmt.Fprintf(&b, "👨‍💼 Closed by: %s\n", *t.ClosedBy)
	}
	if t.AdminResponse != nil && *t.AdminResponse != "" {
		fmt.Fprintf(&b, "💬 Response:\n%s", *t.AdminResponse)
	}
	return strings.TrimRight(b.String(), "\n")
}

package workflow

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/psds-microservice/helpdesk-service/internal/action"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/notify"
)

// Reply keyboard labels.
const (
	LabelCreateTicket = "📋 Create ticket"
	LabelMyTickets    = "📊 My tickets"
	LabelHelp         = "❓ Help"
	LabelCancel       = "❌ Cancel"
	LabelNoFeedback   = "🚫 No feedback"

	LabelOpenTickets = "📋 Open tickets"
	LabelInProgress  = "🟡 In progress"
	LabelBlocked     = "🚫 Blocked users"
	LabelStats       = "📊 Statistics"
	LabelRatings     = "⭐ Ratings"
	LabelAdminHelp   = "🛠 Admin help"
)

// Commands.
const (
	CmdStart       = "start"
	CmdHelp        = "help"
	CmdNewTicket   = "new_ticket"
	CmdMyTickets   = "my_tickets"
	CmdCancel      = "cancel"
	CmdSkip        = "skip"
	CmdTakeToWork  = "take_to_work"
	CmdCloseTicket = "close_ticket"
	CmdOpenTickets = "open_tickets"
	CmdInProgress  = "in_progress"
	CmdStats       = "stats"
	CmdRatings     = "ratings"
	CmdBlocked     = "blocked"
	CmdUnblock     = "unblock"
	CmdAdminHelp   = "admin_help"
)

// MenuAliases maps reply keyboard labels to the command they stand for.
var MenuAliases = map[string]string{
	LabelCreateTicket: CmdNewTicket,
	LabelMyTickets:    CmdMyTickets,
	LabelHelp:         CmdHelp,
	LabelOpenTickets:  CmdOpenTickets,
	LabelInProgress:   CmdInProgress,
	LabelBlocked:      CmdBlocked,
	LabelStats:        CmdStats,
	LabelRatings:      CmdRatings,
	LabelAdminHelp:    CmdAdminHelp,
}

const ratingsShown = 10

const (
	textWelcome = "👋 Welcome to the technical support desk!\n\n" +
		"Here you can file a maintenance request, follow the status of your tickets and get help."
	textHelp = "🤖 Bot commands:\n\n" +
		LabelCreateTicket + " - file a new maintenance request\n" +
		LabelMyTickets + " - see the status of your tickets\n" +
		LabelHelp + " - show this message\n\n" +
		"To file a ticket you will need:\n" +
		"• your full name and phone number\n" +
		"• the room number\n" +
		"• a description of the problem"
	textAdminHelp = "🛠 Staff commands:\n\n" +
		"🛠 /admin_help - this help\n" +
		"🟢 /open_tickets - new tickets\n" +
		"🟡 /in_progress - tickets in work\n" +
		"🟡 /take_to_work <id> - take a ticket into work\n" +
		"✅ /close_ticket - close a ticket by number\n" +
		"🚫 /blocked - blocked users\n" +
		"🔓 /unblock <user id> - unblock a user\n" +
		"📊 /stats - ticket statistics\n" +
		"⭐ /ratings - user ratings\n\n" +
		"Workflow:\n" +
		"1. 🟢 New ticket → take into work\n" +
		"2. 🟡 In progress → close with the button\n" +
		"3. 🔴 Closed → the requester is asked for a rating"
	textHint          = "🤔 I did not understand that. Use the menu below or /help."
	textAdminOnly     = "❌ This command is for staff only!"
	textCancelled     = "Action cancelled."
	textNothingActive = "There is nothing to cancel."
	textRetry         = "⚠️ Could not save that right now. Please send it again."
	textFailed        = "❌ Something went wrong. Please try again later."

	textBlockedRefusal = "🚫 You are blocked from the technical support desk\n\n" +
		"❌ You cannot file new tickets.\n" +
		"📞 Contact an administrator to be unblocked."
	textAskFullName = "Enter your full name and phone number:\n(For example: Ivan Ivanov 89000000000)"
	textAskRoom     = "Enter the room number:"
	textAskProblem  = "Describe the problem:"
	textNoTickets   = "You have no tickets yet."

	textAskCloser       = "Enter your full name to close the ticket:"
	textAskResponse     = "Enter a response for the user (or 'none' if no response is needed):"
	textAskReason       = "Enter the reason for blocking:"
	textAskTicketID     = "✅ Close a ticket\n\nEnter the number of the ticket to close:"
	textTakeUsage       = "❌ Usage: /take_to_work <ticket id>"
	textUnblockUsage    = "❌ Usage: /unblock <user id>"
	textNoOpenTickets   = "🎉 No new open tickets!"
	textNoInProgress    = "📊 No tickets in work."
	textNoRatings       = "⭐ No ratings from users yet."
	textNoBlocked       = "🚫 No blocked users."
	textRatingInactive  = "This rating request is no longer active."
	textRatingSkipped   = "✅ Thank you! No rating needed."
	textAskFeedback     = "📝 Leave a comment about the technician's work:\n\nWrite what you think about the service or press '" + LabelNoFeedback + "'"
	textFeedbackThanks  = "✅ Thank you for your feedback! It helps us get better."
	textRatingThanks    = "✅ Thank you for your rating!"
	textRatingCancelled = "Feedback cancelled. Your rating has been kept."
	textUnblockedNotice = "✅ Your block has been lifted\n\nYou can file tickets in the technical support desk again."
)

func mainMenu() *notify.Markup {
	return &notify.Markup{Menu: [][]string{
		{LabelCreateTicket},
		{LabelMyTickets, LabelHelp},
	}}
}

func staffMenu() *notify.Markup {
	return &notify.Markup{Menu: [][]string{
		{LabelOpenTickets, LabelInProgress},
		{LabelBlocked, LabelStats},
		{LabelRatings, LabelAdminHelp},
	}}
}

func cancelMenu() *notify.Markup {
	return &notify.Markup{Menu: [][]string{{LabelCancel}}}
}

func feedbackMenu() *notify.Markup {
	return &notify.Markup{Menu: [][]string{{LabelNoFeedback}, {LabelCancel}}}
}

func openTicketButtons(t *model.Ticket) *notify.Markup {
	return &notify.Markup{Inline: [][]notify.Button{
		{{Label: "🟡 Take into work", Action: action.TakeToWork{TicketID: t.ID}}},
		{{Label: "🚫 Block", Action: action.BlockUser{UserID: t.RequesterID, TicketID: t.ID}}},
	}}
}

func inProgressButtons(t *model.Ticket) *notify.Markup {
	return &notify.Markup{Inline: [][]notify.Button{
		{{Label: "✅ Close", Action: action.CloseTicket{TicketID: t.ID}}},
		{{Label: "🚫 Block", Action: action.BlockUser{UserID: t.RequesterID, TicketID: t.ID}}},
	}}
}

func ratingButtons(id uint64) *notify.Markup {
	star := func(n int) notify.Button {
		return notify.Button{Label: strings.Repeat("⭐", n), Action: action.RateTicket{TicketID: id, Rating: n}}
	}
	return &notify.Markup{Inline: [][]notify.Button{
		{star(1), star(2), star(3)},
		{star(4), star(5)},
		{{Label: "🚫 Skip", Action: action.SkipRating{TicketID: id}}},
	}}
}

func unblockButtons(userID int64) *notify.Markup {
	return &notify.Markup{Inline: [][]notify.Button{
		{{Label: "🔓 Unblock", Action: action.UnblockUser{UserID: userID}}},
	}}
}

func statusEmoji(s model.TicketStatus) string {
	switch s {
	case model.TicketStatusOpen:
		return "🟢"
	case model.TicketStatusInProgress:
		return "🟡"
	case model.TicketStatusClosed:
		return "🔴"
	}
	return "⚪"
}

const timeLayout = "02.01.2006 15:04"

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func stars(n int) string { return strings.Repeat("⭐", n) }

func orUnknown(s *string) string {
	if s == nil || *s == "" {
		return "not specified"
	}
	return *s
}

// newTicketCard is posted to the staff channel when a ticket is filed.
func newTicketCard(t *model.Ticket) string {
	return fmt.Sprintf("🟢 New ticket #%d\n\n👤 Name: %s\n🚪 Room: %s\n\n📝 Problem:\n%s\n\n🆔 User ID: %d",
		t.ID, t.FullName, t.Room, t.Problem, t.RequesterID)
}

// listCard is one entry of /open_tickets or /in_progress.
func listCard(t *model.Ticket) string {
	head := fmt.Sprintf("🟢 New ticket #%d", t.ID)
	if t.Status == model.TicketStatusInProgress {
		head = fmt.Sprintf("🟡 In progress #%d", t.ID)
	}
	return fmt.Sprintf("%s\n\n👤 Name: %s\n🚪 Room: %s\n📅 Created: %s\n\n📝 Problem:\n%s",
		head, t.FullName, t.Room, t.CreatedAt.Format(timeLayout), truncate(t.Problem, 100))
}

func myTicketCard(t *model.Ticket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Ticket #%d\n📅 Created: %s\n📊 Status: %s %s\n🚪 Room: %s\n",
		t.ID, t.CreatedAt.Format(timeLayout), statusEmoji(t.Status), t.Status, t.Room)
	if t.AdminResponse != nil {
		fmt.Fprintf(&b, "💬 Response:\n%s\n", *t.AdminResponse)
	}
	if t.Rating != nil {
		fmt.Fprintf(&b, "⭐ Your rating: %s\n", stars(*t.Rating))
		if t.Feedback != nil {
			fmt.Fprintf(&b, "📝 Feedback:\n%s\n", *t.Feedback)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func createdText(id uint64) string {
	return fmt.Sprintf("🟢 Your ticket #%d has been created!\n\n"+
		"Please wait until a technician takes it into work.\n"+
		"You will be notified when work on your ticket begins.", id)
}

func createdStaffDelayedText(id uint64) string {
	return fmt.Sprintf("✅ Your ticket #%d has been created!\n"+
		"⚠️ Note: staff notification may be delayed.", id)
}

func statsText(c *model.TicketCounts) string {
	return fmt.Sprintf("📊 Ticket statistics\n\n📈 Total: %d\n🟢 Open: %d\n🟡 In progress: %d\n🔴 Closed: %d\n📅 Today: %d",
		c.Total, c.Open, c.InProgress, c.Closed, c.Today)
}

func ratingStatsText(s *model.RatingStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⭐ Rating statistics\n\n📊 Average: %.1f/5\n📈 Total ratings: %d\n", s.Average, s.Total)
	for star := model.MaxRating; star >= model.MinRating; star-- {
		fmt.Fprintf(&b, "%s: %d\n", stars(star), s.ByStars[star])
	}
	fmt.Fprintf(&b, "\nLast %d ratings:", ratingsShown)
	return b.String()
}

func ratedCard(t *model.Ticket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⭐ Ticket #%d\n👤 %s | 🚪 %s\n🎯 Rating: %s (%d/5)\n👨‍💼 Technician: %s",
		t.ID, t.FullName, t.Room, stars(*t.Rating), *t.Rating, orUnknown(t.ClosedBy))
	if t.Feedback != nil {
		fmt.Fprintf(&b, "\n💬 Feedback:\n%s", truncate(*t.Feedback, 100))
	}
	return b.String()
}

func blockedCard(u *model.BlockedUser) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚫 Blocked user\n\n🆔 ID: %d\n", u.UserID)
	if u.Username != nil && *u.Username != "" {
		fmt.Fprintf(&b, "👤 @%s\n", *u.Username)
	}
	if name := fullName(u.FirstName, u.LastName); name != "" {
		fmt.Fprintf(&b, "👥 Name: %s\n", name)
	}
	fmt.Fprintf(&b, "⏰ Blocked: %s\n👨‍💼 Blocked by: %d", u.BlockedAt.Format(timeLayout), u.BlockedBy)
	if u.Reason != nil && *u.Reason != "" {
		fmt.Fprintf(&b, "\n📋 Reason: %s", *u.Reason)
	}
	return b.String()
}

func fullName(first, last *string) string {
	var parts []string
	for _, p := range []*string{first, last} {
		if p != nil && *p != "" {
			parts = append(parts, *p)
		}
	}
	return strings.Join(parts, " ")
}

func ratingStaffText(t *model.Ticket, rating int) string {
	return fmt.Sprintf("⭐ New rating for ticket #%d\n\n👤 User: %s\n🚪 Room: %s\n🎯 Rating: %s (%d/5)\n👨‍💼 Technician: %s\n📝 Problem:\n%s",
		t.ID, t.FullName, t.Room, stars(rating), rating, orUnknown(t.ClosedBy), truncate(t.Problem, 100))
}

func feedbackStaffText(t *model.Ticket, rating int, feedback string) string {
	return fmt.Sprintf("⭐ Full feedback for ticket #%d\n\n👤 User: %s\n🚪 Room: %s\n🎯 Rating: %s (%d/5)\n👨‍💼 Technician: %s\n\n💬 Feedback:\n%s\n\n📝 Problem was:\n%s",
		t.ID, t.FullName, t.Room, stars(rating), rating, orUnknown(t.ClosedBy), feedback, truncate(t.Problem, 100))
}

const textRatingPrompt = "⭐ Rate the technician's work:\n\nPlease rate the quality of service for your ticket."

func ratingPromptText(id uint64) string {
	return fmt.Sprintf("%s\n\n📋 Ticket #%d", textRatingPrompt, id)
}

func blockedNotice(reason string) string {
	return fmt.Sprintf("🚫 You have been blocked from the technical support desk\n\n📋 Reason: %s\n\n❌ You can no longer file new tickets.", reason)
}

func userLabel(p *model.UserProfile, id int64) string {
	if p != nil && p.Username != "" {
		return "@" + p.Username
	}
	return fmt.Sprintf("ID: %d", id)
}

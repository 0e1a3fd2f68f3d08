// Package notify delivers interview links to candidates.
package notify

import (
	"context"
	"fmt"
	"html"
	"net/mail"
	"strings"
)

const InvitationSubject = "Your AI Interview Link"

type Notifier interface {
	Send(ctx context.Context, email, link string) error
}

// Message is the rendered invitation, also the AMQP payload.
type Message struct {
	Email   string `json:"email"`
	Link    string `json:"link"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

func NewMessage(email, link string) Message {
	return Message{
		Email:   email,
		Link:    link,
		Subject: InvitationSubject,
		HTML:    RenderInvitation(link),
	}
}

func RenderInvitation(link string) string {
	l := html.EscapeString(link)
	return fmt.Sprintf(`<p>Hello Candidate,</p>
<p>Your AI interview is ready. Click the link below to start:</p>
<p><a href="%s">%s</a></p>
<p>Best wishes,<br>AI Hiring System</p>`, l, l)
}

// ValidAddress accepts a bare address, no display name.
func ValidAddress(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" || strings.ContainsAny(email, " <>") {
		return false
	}
	a, err := mail.ParseAddress(email)
	return err == nil && a.Address == email && strings.Contains(email[strings.LastIndex(email, "@"):], ".")
}

// Package notify delivers the side effects of lifecycle operations: in-app
// notifications, emails and Telegram messages. Delivery is best-effort.
package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"helpfinder/internal/models"
)

// Effect is one notice for one user. An empty Message skips the in-app
// notification; an empty Subject skips the email.
type Effect struct {
	UserID     string
	Message    string
	Type       models.NotificationType
	ResourceID string
	Subject    string
	HTML       string
}

// Notice builds an in-app notification.
func Notice(userID string, typ models.NotificationType, resourceID, message string) Effect {
	return Effect{UserID: userID, Type: typ, ResourceID: resourceID, Message: message}
}

// WithEmail adds an email copy to the effect.
func (e Effect) WithEmail(subject, body string) Effect {
	e.Subject = subject
	e.HTML = body
	return e
}

// EmailOnly builds an effect without an in-app notification.
func EmailOnly(userID, resourceID, subject, body string) Effect {
	return Effect{UserID: userID, ResourceID: resourceID, Subject: subject, HTML: body}
}

// HTML renders a minimal email body. Arguments are escaped.
func HTML(heading string, paragraphs ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>%s</h2>\n", html.EscapeString(heading))
	for _, p := range paragraphs {
		fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(p))
	}
	b.WriteString("<p>Best regards,<br>The HelpFinder Team</p>\n")
	return b.String()
}

// Dispatcher accepts effects after the transaction that produced them has
// committed. It never reports failure to the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, effects []Effect)
}

// Effects accumulates the effects of one operation.
type Effects []Effect

func (e *Effects) Add(effects ...Effect) {
	*e = append(*e, effects...)
}

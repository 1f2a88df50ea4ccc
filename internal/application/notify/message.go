// Package notify delivers mention notifications to Microsoft Teams.
package notify

import (
	"fmt"

	"github.com/plannerhq/planner/internal/ports"
)

type Fact struct {
	Name  string
	Value string
}

// Message is the channel-neutral notification body.
type Message struct {
	Title     string
	Subtitle  string
	Text      string
	Facts     []Fact
	ActionURL string
}

// MentionMessage renders the notification sent to a mentioned user.
func MentionMessage(n ports.MentionNotification) Message {
	return Message{
		Title:    "Te han mencionado en Planner",
		Subtitle: fmt.Sprintf("%s te mencionó en %q", n.MentionerName, n.CardTitle),
		Text:     n.Comment,
		Facts: []Fact{
			{Name: "Tablero", Value: n.BoardName},
			{Name: "Tarjeta", Value: n.CardTitle},
			{Name: "Mencionado por", Value: n.MentionerName},
		},
		ActionURL: n.CardURL,
	}
}

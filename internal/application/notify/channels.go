package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/plannerhq/planner/internal/adapters/botframework"
	"github.com/plannerhq/planner/internal/domain/entities"
)

// Channel is one way of reaching a user.
type Channel interface {
	Name() string
	// Applicable reports whether the user has configured this channel.
	Applicable(u *entities.User) bool
	Send(ctx context.Context, u *entities.User, msg Message) error
}

// ProactiveSender posts an activity into a stored conversation.
type ProactiveSender interface {
	Send(ctx context.Context, ref botframework.ConversationReference, act *botframework.Activity) error
}

// ProactiveBot messages the user's personal chat with the bot.
type ProactiveBot struct {
	sender ProactiveSender
}

func NewProactiveBot(sender ProactiveSender) *ProactiveBot {
	return &ProactiveBot{sender: sender}
}

func (b *ProactiveBot) Name() string { return "bot" }

func (b *ProactiveBot) Applicable(u *entities.User) bool {
	return b.sender != nil && u.HasBotLink()
}

func (b *ProactiveBot) Send(ctx context.Context, u *entities.User, msg Message) error {
	ref, err := botframework.DecodeReference(*u.TeamsConversationRef)
	if err != nil {
		return err
	}
	act := &botframework.Activity{
		Type: botframework.TypeMessage,
		Attachments: []botframework.Attachment{{
			ContentType: botframework.ContentTypeAdaptiveCard,
			Content:     adaptiveCard(msg),
		}},
	}
	return b.sender.Send(ctx, ref, act)
}

func adaptiveCard(msg Message) map[string]any {
	facts := make([]map[string]string, 0, len(msg.Facts))
	for _, f := range msg.Facts {
		facts = append(facts, map[string]string{"title": f.Name, "value": f.Value})
	}
	card := map[string]any{
		"$schema": "http://adaptivecards.io/schemas/adaptive-card.json",
		"type":    "AdaptiveCard",
		"version": "1.4",
		"body": []map[string]any{
			{"type": "TextBlock", "text": msg.Title, "weight": "Bolder", "size": "Medium", "color": "Accent"},
			{"type": "TextBlock", "text": msg.Subtitle, "isSubtle": true, "spacing": "None"},
			{"type": "TextBlock", "text": msg.Text, "wrap": true, "spacing": "Medium"},
			{"type": "FactSet", "facts": facts, "spacing": "Medium"},
		},
		"actions": []map[string]any{},
	}
	if msg.ActionURL != "" {
		card["actions"] = []map[string]any{
			{"type": "Action.OpenUrl", "title": "Ver en Planner", "url": msg.ActionURL},
		}
	}
	return card
}

// Webhook posts a MessageCard to the user's incoming webhook.
type Webhook struct {
	client *http.Client
}

func NewWebhook(client *http.Client) *Webhook {
	return &Webhook{client: client}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Applicable(u *entities.User) bool {
	return u.HasWebhook()
}

func (w *Webhook) Send(ctx context.Context, u *entities.User, msg Message) error {
	body, err := json.Marshal(messageCard(msg))
	if err != nil {
		return fmt.Errorf("encode message card: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, *u.TeamsWebhook, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}
	return nil
}

type cardFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type cardSection struct {
	ActivityTitle    string     `json:"activityTitle"`
	ActivitySubtitle string     `json:"activitySubtitle"`
	Facts            []cardFact `json:"facts"`
	Markdown         bool       `json:"markdown"`
	Text             string     `json:"text"`
}

type cardTarget struct {
	OS  string `json:"os"`
	URI string `json:"uri"`
}

type cardAction struct {
	Type    string       `json:"@type"`
	Name    string       `json:"name"`
	Targets []cardTarget `json:"targets"`
}

type messageCardPayload struct {
	Type            string        `json:"@type"`
	Context         string        `json:"@context"`
	ThemeColor      string        `json:"themeColor"`
	Summary         string        `json:"summary"`
	Sections        []cardSection `json:"sections"`
	PotentialAction []cardAction  `json:"potentialAction"`
}

func messageCard(msg Message) messageCardPayload {
	facts := make([]cardFact, 0, len(msg.Facts))
	for _, f := range msg.Facts {
		facts = append(facts, cardFact(f))
	}
	actions := []cardAction{}
	if msg.ActionURL != "" {
		actions = append(actions, cardAction{
			Type:    "OpenUri",
			Name:    "Ver en Planner",
			Targets: []cardTarget{{OS: "default", URI: msg.ActionURL}},
		})
	}
	return messageCardPayload{
		Type:       "MessageCard",
		Context:    "http://schema.org/extensions",
		ThemeColor: "0076D7",
		Summary:    msg.Title,
		Sections: []cardSection{{
			ActivityTitle:    msg.Title,
			ActivitySubtitle: msg.Subtitle,
			Facts:            facts,
			Markdown:         true,
			Text:             msg.Text,
		}},
		PotentialAction: actions,
	}
}

// Package botframework speaks the Bot Framework REST protocol used by
// Microsoft Teams: inbound activity authentication and outbound messages
// through the Bot Connector API.
package botframework

import (
	"encoding/json"
	"fmt"
)

// Activity types handled by the bot.
const (
	TypeMessage            = "message"
	TypeConversationUpdate = "conversationUpdate"
)

// Card content types.
const (
	ContentTypeAdaptiveCard = "application/vnd.microsoft.card.adaptive"
	ContentTypeHeroCard     = "application/vnd.microsoft.card.hero"
)

type ChannelAccount struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	AADObjectID string `json:"aadObjectId,omitempty"`
}

type ConversationAccount struct {
	ID               string `json:"id"`
	Name             string `json:"name,omitempty"`
	ConversationType string `json:"conversationType,omitempty"`
	TenantID         string `json:"tenantId,omitempty"`
	IsGroup          bool   `json:"isGroup,omitempty"`
}

type Attachment struct {
	ContentType string `json:"contentType"`
	Content     any    `json:"content"`
}

// Activity is the subset of the Bot Framework activity schema the bot uses.
type Activity struct {
	Type         string              `json:"type"`
	ID           string              `json:"id,omitempty"`
	ServiceURL   string              `json:"serviceUrl,omitempty"`
	ChannelID    string              `json:"channelId,omitempty"`
	From         ChannelAccount      `json:"from"`
	Conversation ConversationAccount `json:"conversation"`
	Recipient    ChannelAccount      `json:"recipient"`
	Text         string              `json:"text,omitempty"`
	TextFormat   string              `json:"textFormat,omitempty"`
	Value        json.RawMessage     `json:"value,omitempty"`
	ReplyToID    string              `json:"replyToId,omitempty"`
	MembersAdded []ChannelAccount    `json:"membersAdded,omitempty"`
	Attachments  []Attachment        `json:"attachments,omitempty"`
}

// ConversationReference identifies a conversation for proactive messages.
type ConversationReference struct {
	ActivityID   string              `json:"activityId,omitempty"`
	User         ChannelAccount      `json:"user"`
	Bot          ChannelAccount      `json:"bot"`
	Conversation ConversationAccount `json:"conversation"`
	ChannelID    string              `json:"channelId"`
	ServiceURL   string              `json:"serviceUrl"`
}

// Reference returns the reference needed to message the sender later.
func (a *Activity) Reference() ConversationReference {
	return ConversationReference{
		ActivityID:   a.ID,
		User:         a.From,
		Bot:          a.Recipient,
		Conversation: a.Conversation,
		ChannelID:    a.ChannelID,
		ServiceURL:   a.ServiceURL,
	}
}

// Reply builds a message addressed back to the sender of a.
func (a *Activity) Reply(text string) *Activity {
	return &Activity{
		Type:         TypeMessage,
		ChannelID:    a.ChannelID,
		ServiceURL:   a.ServiceURL,
		From:         a.Recipient,
		Recipient:    a.From,
		Conversation: a.Conversation,
		ReplyToID:    a.ID,
		Text:         text,
		TextFormat:   "markdown",
	}
}

// Encode serializes the reference for storage.
func (r ConversationReference) Encode() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode conversation reference: %w", err)
	}
	return string(data), nil
}

// DecodeReference parses a stored reference.
func DecodeReference(s string) (ConversationReference, error) {
	var ref ConversationReference
	if err := json.Unmarshal([]byte(s), &ref); err != nil {
		return ref, fmt.Errorf("decode conversation reference: %w", err)
	}
	if ref.ServiceURL == "" || ref.Conversation.ID == "" {
		return ref, fmt.Errorf("conversation reference is incomplete")
	}
	return ref, nil
}

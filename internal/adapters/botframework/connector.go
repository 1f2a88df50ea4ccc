package botframework

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/plannerhq/planner/internal/infrastructure/config"
)

const connectorScope = "https://api.botframework.com/.default"

// Connector posts activities to the Bot Connector service.
type Connector struct {
	client *http.Client
}

// NewConnector returns a connector authenticated with the app credentials.
// Without an app id it sends unauthenticated requests, which the Bot
// Framework Emulator accepts.
func NewConnector(ctx context.Context, cfg config.BotConfig) *Connector {
	if !cfg.Enabled() {
		return NewConnectorWithClient(&http.Client{Timeout: 15 * time.Second})
	}

	tokenURL := cfg.TokenURL
	if cfg.TenantID != "" {
		tokenURL = strings.Replace(tokenURL, "/botframework.com/", "/"+cfg.TenantID+"/", 1)
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.AppID,
		ClientSecret: cfg.AppPassword,
		TokenURL:     tokenURL,
		Scopes:       []string{connectorScope},
	}
	client := cc.Client(ctx)
	client.Timeout = 15 * time.Second
	return NewConnectorWithClient(client)
}

func NewConnectorWithClient(client *http.Client) *Connector {
	return &Connector{client: client}
}

// Send posts act into the referenced conversation.
func (c *Connector) Send(ctx context.Context, ref ConversationReference, act *Activity) error {
	if act.Conversation.ID == "" {
		act.Conversation = ref.Conversation
	}
	if act.From.ID == "" {
		act.From = ref.Bot
	}
	if act.Recipient.ID == "" {
		act.Recipient = ref.User
	}
	if act.ChannelID == "" {
		act.ChannelID = ref.ChannelID
	}
	if act.ServiceURL == "" {
		act.ServiceURL = ref.ServiceURL
	}
	return c.post(ctx, act)
}

// Reply posts act as a reply in its own conversation.
func (c *Connector) Reply(ctx context.Context, act *Activity) error {
	return c.post(ctx, act)
}

func (c *Connector) post(ctx context.Context, act *Activity) error {
	if act.ServiceURL == "" || act.Conversation.ID == "" {
		return fmt.Errorf("activity has no service url or conversation")
	}

	endpoint := strings.TrimRight(act.ServiceURL, "/") + "/v3/conversations/" + url.PathEscape(act.Conversation.ID) + "/activities"
	if act.ReplyToID != "" {
		endpoint += "/" + url.PathEscape(act.ReplyToID)
	}

	body, err := json.Marshal(act)
	if err != nil {
		return fmt.Errorf("encode activity: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build connector request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send activity: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("connector returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

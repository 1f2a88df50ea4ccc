package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plannerhq/planner/internal/adapters/botframework"
	"github.com/plannerhq/planner/internal/domain/entities"
	"github.com/plannerhq/planner/internal/infrastructure/logger"
	"github.com/plannerhq/planner/internal/infrastructure/metrics"
	"github.com/plannerhq/planner/internal/ports"
)

type fakeSender struct {
	mu   sync.Mutex
	err  error
	sent []*botframework.Activity
	refs []botframework.ConversationReference
}

func (f *fakeSender) Send(_ context.Context, ref botframework.ConversationReference, act *botframework.Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refs = append(f.refs, ref)
	f.sent = append(f.sent, act)
	return f.err
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func strPtr(s string) *string { return &s }

func linkedUser(t *testing.T) *entities.User {
	ref, err := botframework.ConversationReference{
		ServiceURL:   "https://smba.example.com",
		Conversation: botframework.ConversationAccount{ID: "a:1"},
		User:         botframework.ChannelAccount{ID: "29:ana"},
	}.Encode()
	require.NoError(t, err)
	return &entities.User{ID: uuid.New(), Name: "Ana", TeamsConversationRef: &ref}
}

func sampleNotification(u *entities.User) ports.MentionNotification {
	return ports.MentionNotification{
		Recipient:     u,
		MentionerName: "Luis",
		BoardName:     "Marketing",
		CardTitle:     "Campaña",
		Comment:       "@Ana revisa esto",
		CardURL:       "http://planner.local/board/b1?card=c1",
	}
}

func TestMentionMessage(t *testing.T) {
	msg := MentionMessage(sampleNotification(&entities.User{}))
	assert.Equal(t, "Te han mencionado en Planner", msg.Title)
	assert.Equal(t, "@Ana revisa esto", msg.Text)
	assert.Equal(t, []Fact{
		{Name: "Tablero", Value: "Marketing"},
		{Name: "Tarjeta", Value: "Campaña"},
		{Name: "Mencionado por", Value: "Luis"},
	}, msg.Facts)
	assert.Contains(t, msg.Subtitle, "Luis")
}

func TestWebhookPostsMessageCard(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	u := &entities.User{ID: uuid.New(), TeamsWebhook: strPtr(srv.URL)}
	wh := NewWebhook(srv.Client())
	require.True(t, wh.Applicable(u))
	require.NoError(t, wh.Send(context.Background(), u, MentionMessage(sampleNotification(u))))

	assert.Equal(t, "MessageCard", payload["@type"])
	assert.Equal(t, "0076D7", payload["themeColor"])
	assert.Equal(t, "Te han mencionado en Planner", payload["summary"])

	sections := payload["sections"].([]any)
	facts := sections[0].(map[string]any)["facts"].([]any)
	assert.Len(t, facts, 3)
	assert.Equal(t, "Tablero", facts[0].(map[string]any)["name"])

	action := payload["potentialAction"].([]any)[0].(map[string]any)
	assert.Equal(t, "OpenUri", action["@type"])
	assert.Equal(t, "Ver en Planner", action["name"])
}

func TestWebhookErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	u := &entities.User{TeamsWebhook: strPtr(srv.URL)}
	err := NewWebhook(srv.Client()).Send(context.Background(), u, Message{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "410")
}

func TestProactiveBotSendsAdaptiveCard(t *testing.T) {
	sender := &fakeSender{}
	bot := NewProactiveBot(sender)
	u := linkedUser(t)

	require.True(t, bot.Applicable(u))
	assert.False(t, bot.Applicable(&entities.User{}))
	assert.False(t, NewProactiveBot(nil).Applicable(u))

	require.NoError(t, bot.Send(context.Background(), u, MentionMessage(sampleNotification(u))))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "a:1", sender.refs[0].Conversation.ID)
	require.Len(t, sender.sent[0].Attachments, 1)
	assert.Equal(t, botframework.ContentTypeAdaptiveCard, sender.sent[0].Attachments[0].ContentType)

	u.TeamsConversationRef = strPtr("{broken")
	assert.Error(t, bot.Send(context.Background(), u, Message{}))
}

func TestDeliverPriority(t *testing.T) {
	var hooks int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hooks, 1)
	}))
	defer srv.Close()

	sender := &fakeSender{}
	m := metrics.New()
	d := NewDispatcher([]Channel{NewProactiveBot(sender), NewWebhook(srv.Client())}, 4, time.Second, logger.NewNop(), m)
	ctx := context.Background()

	both := linkedUser(t)
	both.TeamsWebhook = strPtr(srv.URL)
	ch, err := d.Deliver(ctx, both, Message{})
	require.NoError(t, err)
	assert.Equal(t, "bot", ch)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hooks))

	sender.err = errors.New("conversation gone")
	ch, err = d.Deliver(ctx, both, Message{})
	require.NoError(t, err)
	assert.Equal(t, "webhook", ch)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hooks))

	onlyBot := linkedUser(t)
	_, err = d.Deliver(ctx, onlyBot, Message{})
	assert.EqualError(t, err, "conversation gone")

	_, err = d.Deliver(ctx, &entities.User{ID: uuid.New()}, Message{})
	assert.ErrorIs(t, err, ErrNoChannel)

	series, err := testutil.GatherAndCount(m.Registry(), "planner_notifications_total")
	require.NoError(t, err)
	assert.Equal(t, 3, series)
}

func TestNotifyMentionRunsInBackground(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher([]Channel{NewProactiveBot(sender)}, 2, time.Second, logger.NewNop(), nil)

	for i := 0; i < 10; i++ {
		d.NotifyMention(sampleNotification(linkedUser(t)))
	}
	d.NotifyMention(ports.MentionNotification{})
	d.Wait()

	assert.Equal(t, 10, sender.count())
}

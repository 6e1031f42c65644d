package slack

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nxt-tipbot/errors"
)

type dispatchedCall struct {
	kind string
	args []string
}

// recordingDispatcher captures routed events for assertions.
type recordingDispatcher struct {
	calls []dispatchedCall
}

func (d *recordingDispatcher) HandleChannelMessage(_ context.Context, channelID, userID, text string) error {
	d.calls = append(d.calls, dispatchedCall{kind: "channel", args: []string{channelID, userID, text}})
	return nil
}

func (d *recordingDispatcher) HandleDirectMessage(_ context.Context, imID, userID, text string) error {
	d.calls = append(d.calls, dispatchedCall{kind: "direct", args: []string{imID, userID, text}})
	return nil
}

func (d *recordingDispatcher) HandleReaction(_ context.Context, channelID, userID, itemUserID, reaction string) error {
	d.calls = append(d.calls, dispatchedCall{kind: "reaction", args: []string{channelID, userID, itemUserID, reaction}})
	return nil
}

func testConnector(t *testing.T) (*Connector, *recordingDispatcher) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewConnector(log, "xoxb-test", NewRetryPolicy(time.Minute, true))
	c.self = User{ID: "UBOT", Name: "tipbot"}
	c.channels["C1"] = Channel{ID: "C1", Name: "general", IsMember: true}
	c.users["U1"] = User{ID: "U1", Name: "alice"}
	c.imByUser["U1"] = "D1"
	c.userByIM["D1"] = "U1"
	dispatcher := &recordingDispatcher{}
	c.Bind(dispatcher)
	return c, dispatcher
}

func Test_Route_Channel_Message_Addressed_To_Bot(t *testing.T) {
	req := require.New(t)
	c, dispatcher := testConnector(t)

	c.routeMessage(context.Background(), MessageEvent{Channel: "C1", User: "U1", Text: "<@UBOT> tip <@U2> 1"})
	req.Len(dispatcher.calls, 1)
	req.Equal("channel", dispatcher.calls[0].kind)
	req.Equal([]string{"C1", "U1", "<@UBOT> tip <@U2> 1"}, dispatcher.calls[0].args)
}

func Test_Route_Ignores_Unaddressed_And_Self(t *testing.T) {
	req := require.New(t)
	c, dispatcher := testConnector(t)
	ctx := context.Background()

	c.routeMessage(ctx, MessageEvent{Channel: "C1", User: "U1", Text: "morning everyone"})
	c.routeMessage(ctx, MessageEvent{Channel: "C1", User: "UBOT", Text: "<@UBOT> tip <@U2> 1"})
	c.routeMessage(ctx, MessageEvent{Channel: "C1", User: "", Text: "<@UBOT> help"})
	c.routeMessage(ctx, MessageEvent{Channel: "CUNKNOWN", User: "U1", Text: "<@UBOT> help"})
	req.Empty(dispatcher.calls)
}

func Test_Route_Direct_Message(t *testing.T) {
	req := require.New(t)
	c, dispatcher := testConnector(t)

	c.routeMessage(context.Background(), MessageEvent{Channel: "D1", User: "U1", Text: "balance"})
	req.Len(dispatcher.calls, 1)
	req.Equal("direct", dispatcher.calls[0].kind)
	req.Equal([]string{"D1", "U1", "balance"}, dispatcher.calls[0].args)
}

func Test_HandleFrame_Dispatches_Reactions_Except_Own(t *testing.T) {
	req := require.New(t)
	c, dispatcher := testConnector(t)
	ctx := context.Background()

	c.handleFrame(ctx, []byte(`{"type":"reaction_added","reaction":"dekitas","user":"U1","item_user":"U2","item":{"channel":"C1"}}`))
	c.handleFrame(ctx, []byte(`{"type":"reaction_added","reaction":"dekitas","user":"UBOT","item_user":"U2","item":{"channel":"C1"}}`))

	req.Len(dispatcher.calls, 1)
	req.Equal("reaction", dispatcher.calls[0].kind)
	req.Equal([]string{"C1", "U1", "U2", "dekitas"}, dispatcher.calls[0].args)
}

func Test_HandleFrame_Mutates_Caches(t *testing.T) {
	req := require.New(t)
	c, _ := testConnector(t)
	ctx := context.Background()

	c.handleFrame(ctx, []byte(`{"type":"im_created","user":"U7","channel":{"id":"D7"}}`))
	req.Equal("D7", c.imByUser["U7"])
	req.Equal("U7", c.userByIM["D7"])

	c.handleFrame(ctx, []byte(`{"type":"team_join","user":{"id":"U8","name":"dave"}}`))
	name, ok := c.UserName("U8")
	req.True(ok)
	req.Equal("dave", name)

	c.handleFrame(ctx, []byte(`{"type":"user_change","user":{"id":"U8","name":"david"}}`))
	name, _ = c.UserName("U8")
	req.Equal("david", name)

	c.handleFrame(ctx, []byte(`{"type":"channel_created","channel":{"id":"C2","name":"random"}}`))
	req.Equal(ChannelPublic, c.channels["C2"].Kind)

	// Joined groups carry their kind in the payload flags.
	c.handleFrame(ctx, []byte(`{"type":"group_joined","channel":{"id":"G9","name":"secret","is_group":true}}`))
	req.Equal(ChannelPrivate, c.channels["G9"].Kind)

	c.handleFrame(ctx, []byte(`{"type":"group_joined","channel":{"id":"G10","name":"huddle","is_group":true,"is_mpim":true}}`))
	req.Equal(ChannelMultiparty, c.channels["G10"].Kind)

	// Acks and unknown frames pass through without effect.
	c.handleFrame(ctx, []byte(`{"ok":true,"reply_to":1}`))
	c.handleFrame(ctx, []byte(`{"type":"goodbye"}`))
}

func Test_Handshake_Fills_Caches(t *testing.T) {
	req := require.New(t)
	c, _ := testConnector(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/rtm.start", r.URL.Path)
		req.Equal("xoxb-test", r.PostFormValue("token"))
		w.Write([]byte(`{
			"ok": true,
			"url": "wss://stream.example/websocket",
			"self": {"id": "UBOT", "name": "tipbot"},
			"channels": [{"id": "C1", "name": "general", "is_member": true}],
			"groups": [
				{"id": "G1", "name": "private", "is_member": true},
				{"id": "G2", "name": "huddle", "is_member": true, "is_mpim": true}
			],
			"mpims": [{"id": "G3", "name": "huddle2", "is_member": false}],
			"users": [{"id": "U1", "name": "alice"}],
			"ims": [{"id": "D1", "user": "U1"}]
		}`))
	}))
	defer server.Close()
	c.apiBaseURL = server.URL

	streamURL, err := c.handshake(context.Background())
	req.NoError(err)
	req.Equal("wss://stream.example/websocket", streamURL)
	req.Equal(User{ID: "UBOT", Name: "tipbot"}, c.self)
	req.Equal(ChannelPublic, c.channels["C1"].Kind)
	req.Equal(ChannelPrivate, c.channels["G1"].Kind)
	req.Equal(ChannelMultiparty, c.channels["G2"].Kind)
	req.Equal(ChannelMultiparty, c.channels["G3"].Kind)
	req.Equal("D1", c.imByUser["U1"])
	req.Equal("U1", c.userByIM["D1"])
}

func Test_SendMessage_Escapes_Parameter_Delimiter(t *testing.T) {
	req := require.New(t)
	c, _ := testConnector(t)

	var sent struct{ channel, text, asUser string }
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/chat.postMessage", r.URL.Path)
		sent.channel = r.PostFormValue("channel")
		sent.text = r.PostFormValue("text")
		sent.asUser = r.PostFormValue("as_user")
		w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()
	c.apiBaseURL = server.URL

	err := c.SendMessage(context.Background(), "C1", "fish & chips for <@U1>", false)
	req.NoError(err)
	req.Equal("C1", sent.channel)
	req.Equal("fish &amp; chips for <@U1>", sent.text)
	req.Equal("true", sent.asUser)
}

func Test_InstantMessageID_Opens_Once_Then_Caches(t *testing.T) {
	req := require.New(t)
	c, _ := testConnector(t)

	opens := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/im.open", r.URL.Path)
		req.Equal("U5", r.PostFormValue("user"))
		opens++
		w.Write([]byte(`{"ok": true, "channel": {"id": "D5"}}`))
	}))
	defer server.Close()
	c.apiBaseURL = server.URL
	ctx := context.Background()

	imID, err := c.InstantMessageID(ctx, "U5")
	req.NoError(err)
	req.Equal("D5", imID)

	imID, err = c.InstantMessageID(ctx, "U5")
	req.NoError(err)
	req.Equal("D5", imID)
	req.Equal(1, opens)

	// The pre-seeded session never hits the API.
	imID, err = c.InstantMessageID(ctx, "U1")
	req.NoError(err)
	req.Equal("D1", imID)

	_, err = c.InstantMessageID(ctx, "UBOT")
	req.ErrorIs(err, errors.ErrSelfInstantMessage)
}

func Test_CallAPI_Surfaces_Platform_Errors(t *testing.T) {
	req := require.New(t)
	c, _ := testConnector(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"ok": false, "error": "invalid_auth"}`))
	}))
	defer server.Close()
	c.apiBaseURL = server.URL

	err := c.SendMessage(context.Background(), "C1", "hi", false)
	req.ErrorContains(err, "invalid_auth")
}

// Package slack owns the realtime session: handshake, the receive loop
// with strict in-order event handling, outbound calls, and the local
// caches of channel, user and instant-message state. The receive loop is
// the single writer of every cache, so none of them is locked.
package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"nxt-tipbot/errors"
	"nxt-tipbot/parser"
)

// ChannelKind distinguishes the three group-session flavors merged into
// one cache.
type ChannelKind int

const (
	ChannelPublic ChannelKind = iota
	ChannelPrivate
	ChannelMultiparty
)

type Channel struct {
	ID       string
	Name     string
	IsMember bool
	Kind     ChannelKind
}

type User struct {
	ID   string
	Name string
}

// Dispatcher receives classified, routed events. The orchestrator
// implements it; handling is awaited before the next frame is read.
type Dispatcher interface {
	HandleChannelMessage(ctx context.Context, channelID, userID, text string) error
	HandleDirectMessage(ctx context.Context, imID, userID, text string) error
	HandleReaction(ctx context.Context, channelID, userID, itemUserID, reaction string) error
}

type Connector struct {
	log        *slog.Logger
	token      string
	apiBaseURL string
	httpClient *http.Client
	dialer     *websocket.Dialer
	retry      *RetryPolicy
	dispatcher Dispatcher

	self     User
	channels map[string]Channel
	users    map[string]User
	imByUser map[string]string
	userByIM map[string]string
}

const defaultAPIBaseURL = "https://slack.com/api"

func NewConnector(log *slog.Logger, token string, retry *RetryPolicy) *Connector {
	return &Connector{
		log:        log,
		token:      token,
		apiBaseURL: defaultAPIBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		dialer:     websocket.DefaultDialer,
		retry:      retry,
		channels:   make(map[string]Channel),
		users:      make(map[string]User),
		imByUser:   make(map[string]string),
		userByIM:   make(map[string]string),
	}
}

// Bind attaches the dispatcher. Separate from the constructor because the
// dispatcher (the orchestrator) needs the connector as its messenger.
func (c *Connector) Bind(dispatcher Dispatcher) {
	c.dispatcher = dispatcher
}

// Run establishes the session and processes events until the context is
// canceled. Stream faults and closures re-enter the reconnect policy.
func (c *Connector) Run(ctx context.Context) error {
	for {
		if err := c.retry.Acquire(ctx); err != nil {
			return err
		}
		err := c.connectOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("Session ended, applying reconnect policy", "error", err)
	}
}

func (c *Connector) connectOnce(ctx context.Context) error {
	streamURL, err := c.handshake(ctx)
	if err != nil {
		return err
	}

	conn, _, err := c.dialer.DialContext(ctx, streamURL, nil)
	if err != nil {
		return fmt.Errorf("%w: dial: %v", errors.ErrStreamFault, err)
	}
	defer conn.Close()
	c.log.Info("Connected", "self", c.self.Name,
		"channels", len(c.channels), "users", len(c.users), "ims", len(c.userByIM))

	asm := &assembler{}
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return fmt.Errorf("%w: stream closed", errors.ErrStreamFault)
			}
			return fmt.Errorf("%w: read: %v", errors.ErrStreamFault, err)
		}
		frame, complete := asm.Push(data)
		if !complete {
			continue
		}
		c.handleFrame(ctx, frame)
	}
}

// handshake authenticates, records self identity and fills the caches from
// the snapshot. It returns the stream endpoint to dial.
func (c *Connector) handshake(ctx context.Context) (string, error) {
	var snapshot struct {
		URL  string `json:"url"`
		Self struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"self"`
		Channels []channelInfo `json:"channels"`
		Groups   []channelInfo `json:"groups"`
		MPIMs    []channelInfo `json:"mpims"`
		Users    []userInfo    `json:"users"`
		IMs      []imInfo      `json:"ims"`
	}
	if err := c.callAPI(ctx, "rtm.start", url.Values{}, &snapshot); err != nil {
		return "", fmt.Errorf("%w: handshake: %v", errors.ErrStreamFault, err)
	}

	c.self = User{ID: snapshot.Self.ID, Name: snapshot.Self.Name}
	c.channels = make(map[string]Channel)
	for _, info := range snapshot.Channels {
		c.cacheChannel(info, ChannelPublic)
	}
	for _, info := range snapshot.Groups {
		kind := ChannelPrivate
		if info.IsMPIM {
			kind = ChannelMultiparty
		}
		c.cacheChannel(info, kind)
	}
	for _, info := range snapshot.MPIMs {
		c.cacheChannel(info, ChannelMultiparty)
	}
	member := lo.CountBy(lo.Values(c.channels), func(ch Channel) bool { return ch.IsMember })
	c.users = make(map[string]User, len(snapshot.Users))
	for _, info := range snapshot.Users {
		c.users[info.ID] = User(info)
	}
	c.imByUser = make(map[string]string, len(snapshot.IMs))
	c.userByIM = make(map[string]string, len(snapshot.IMs))
	for _, im := range snapshot.IMs {
		c.imByUser[im.UserID] = im.ID
		c.userByIM[im.ID] = im.UserID
	}
	c.log.Info("Handshake complete", "member_of", member)
	return snapshot.URL, nil
}

func (c *Connector) cacheChannel(info channelInfo, kind ChannelKind) {
	c.channels[info.ID] = Channel{ID: info.ID, Name: info.Name, IsMember: info.IsMember, Kind: kind}
}

// channelKind reads the kind off a channel payload's own flags, for frames
// where the list position does not disambiguate.
func channelKind(info channelInfo) ChannelKind {
	switch {
	case info.IsMPIM:
		return ChannelMultiparty
	case info.IsGroup:
		return ChannelPrivate
	default:
		return ChannelPublic
	}
}

// handleFrame classifies one assembled frame and either dispatches it
// (message, reaction) or mutates the caches synchronously. Dispatch is
// awaited: no two events are ever handled concurrently on one connection.
func (c *Connector) handleFrame(ctx context.Context, frame []byte) {
	event, err := Classify(frame)
	if err != nil {
		c.log.Warn("Dropping malformed frame", "error", err)
		return
	}

	switch ev := event.(type) {
	case MessageEvent:
		c.routeMessage(ctx, ev)
	case ReactionAddedEvent:
		if ev.User == c.self.ID {
			return
		}
		if err := c.dispatcher.HandleReaction(ctx, ev.Item.Channel, ev.User, ev.ItemUser, ev.Reaction); err != nil {
			c.log.Error("Reaction handling failed", "channel", ev.Item.Channel, "user", ev.User, "error", err)
		}
	case ChannelCreatedEvent:
		c.cacheChannel(ev.Channel, channelKind(ev.Channel))
	case IMCreatedEvent:
		c.imByUser[ev.User] = ev.Channel.ID
		c.userByIM[ev.Channel.ID] = ev.User
	case TeamJoinEvent:
		c.users[ev.User.ID] = User(ev.User)
	case UserChangeEvent:
		c.users[ev.User.ID] = User(ev.User)
	case AckEvent:
		// Reply acknowledgment of an outbound frame; nothing to do.
	case NoTypeEvent:
		c.log.Warn("Frame without discriminator", "frame", string(ev.Raw))
	case IgnoredEvent:
	case UnknownEvent:
		c.log.Debug("Unhandled frame type", "type", ev.Type)
	}
}

// routeMessage applies the routing rule: channel messages addressed to the
// bot take the tip path, messages in a known instant-message session take
// the direct path, everything else is ignored. The bot's own messages are
// always ignored.
func (c *Connector) routeMessage(ctx context.Context, ev MessageEvent) {
	if ev.User == "" || ev.User == c.self.ID {
		return
	}
	if _, ok := c.channels[ev.Channel]; ok {
		if _, addressed := parser.New(c.self.ID, c.self.Name).StripBotAddress(ev.Text); !addressed {
			return
		}
		if err := c.dispatcher.HandleChannelMessage(ctx, ev.Channel, ev.User, ev.Text); err != nil {
			c.log.Error("Channel command failed", "channel", ev.Channel, "user", ev.User, "error", err)
		}
		return
	}
	if _, ok := c.userByIM[ev.Channel]; ok {
		if err := c.dispatcher.HandleDirectMessage(ctx, ev.Channel, ev.User, ev.Text); err != nil {
			c.log.Error("Direct command failed", "im", ev.Channel, "user", ev.User, "error", err)
		}
	}
}

// SendMessage delivers an outbound message. The parameter delimiter and
// the platform's entity markers are escaped so free text cannot break the
// transport encoding.
func (c *Connector) SendMessage(ctx context.Context, targetID, text string, unfurl bool) error {
	params := url.Values{
		"channel":      {targetID},
		"text":         {escapeText(text)},
		"as_user":      {"true"},
		"unfurl_links": {fmt.Sprintf("%t", unfurl)},
	}
	return c.callAPI(ctx, "chat.postMessage", params, nil)
}

// InstantMessageID returns the instant-message session id for a user,
// opening and caching one when none exists. The bot cannot message itself.
func (c *Connector) InstantMessageID(ctx context.Context, userID string) (string, error) {
	if userID == c.self.ID {
		return "", errors.ErrSelfInstantMessage
	}
	if imID, ok := c.imByUser[userID]; ok {
		return imID, nil
	}

	var out struct {
		Channel struct {
			ID string `json:"id"`
		} `json:"channel"`
	}
	if err := c.callAPI(ctx, "im.open", url.Values{"user": {userID}}, &out); err != nil {
		return "", fmt.Errorf("im.open for %s: %w", userID, err)
	}
	c.imByUser[userID] = out.Channel.ID
	c.userByIM[out.Channel.ID] = userID
	return out.Channel.ID, nil
}

// User is a read-only cache lookup; the user may never have been observed.
func (c *Connector) User(userID string) (User, bool) {
	user, ok := c.users[userID]
	return user, ok
}

func (c *Connector) UserName(userID string) (string, bool) {
	user, ok := c.users[userID]
	return user.Name, ok
}

func (c *Connector) Self() (string, string) {
	return c.self.ID, c.self.Name
}

func (c *Connector) callAPI(ctx context.Context, method string, params url.Values, out any) error {
	params.Set("token", c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBaseURL+"/"+method, strings.NewReader(params.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	var envelope struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("%s: malformed response: %w", method, err)
	}
	if !envelope.OK {
		return fmt.Errorf("%s: %s", method, envelope.Error)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("%s: malformed response: %w", method, err)
		}
	}
	return nil
}

// escapeText escapes the outbound parameter delimiter. The angle-bracket
// entity markers are left alone so the mention markup carried by
// confirmations survives delivery.
func escapeText(text string) string {
	return strings.ReplaceAll(text, "&", "&amp;")
}

package slack

import (
	"encoding/json"
	"fmt"
)

// Stream frames are heterogeneous JSON objects keyed by a "type"
// discriminator. The tag is decoded first and the payload only once the
// shape is known; unknown tags become an explicit opaque variant instead of
// a decode failure.

type Event interface {
	EventType() string
}

type MessageEvent struct {
	Channel string `json:"channel"`
	User    string `json:"user"`
	Text    string `json:"text"`
}

func (MessageEvent) EventType() string { return "message" }

type ReactionAddedEvent struct {
	Reaction string `json:"reaction"`
	User     string `json:"user"`
	ItemUser string `json:"item_user"`
	Item     struct {
		Channel string `json:"channel"`
	} `json:"item"`
}

func (ReactionAddedEvent) EventType() string { return "reaction_added" }

type ChannelCreatedEvent struct {
	Channel channelInfo `json:"channel"`
}

func (ChannelCreatedEvent) EventType() string { return "channel_created" }

type IMCreatedEvent struct {
	User    string `json:"user"`
	Channel struct {
		ID string `json:"id"`
	} `json:"channel"`
}

func (IMCreatedEvent) EventType() string { return "im_created" }

type TeamJoinEvent struct {
	User userInfo `json:"user"`
}

func (TeamJoinEvent) EventType() string { return "team_join" }

type UserChangeEvent struct {
	User userInfo `json:"user"`
}

func (UserChangeEvent) EventType() string { return "user_change" }

// IgnoredEvent is a frame the connector knows about and deliberately drops.
type IgnoredEvent struct {
	Type string
}

func (e IgnoredEvent) EventType() string { return e.Type }

// AckEvent is the server's acknowledgment of an outbound frame: no type
// discriminator, but a reply_to counter.
type AckEvent struct {
	ReplyTo int  `json:"reply_to"`
	OK      bool `json:"ok"`
}

func (AckEvent) EventType() string { return "ack" }

// NoTypeEvent is a frame with neither discriminator nor reply_to; it is
// logged by the receiver.
type NoTypeEvent struct {
	Raw json.RawMessage
}

func (NoTypeEvent) EventType() string { return "" }

// UnknownEvent is the catch-all for discriminators the connector has no
// handling for; it is trace-logged and dropped.
type UnknownEvent struct {
	Type string
	Raw  json.RawMessage
}

func (e UnknownEvent) EventType() string { return e.Type }

// Low-value frame types the stream emits constantly: presence, typing and
// read-marker chatter plus the keepalive handshake frames.
var ignoredTypes = map[string]struct{}{
	"hello":           {},
	"pong":            {},
	"presence_change": {},
	"user_typing":     {},
	"channel_marked":  {},
	"group_marked":    {},
	"im_marked":       {},
	"mpim_marked":     {},
	"pref_change":     {},
	"reconnect_url":   {},
	"emoji_changed":   {},
	"dnd_updated":     {},
	"file_shared":     {},
	"file_public":     {},
}

type channelInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsMember bool   `json:"is_member"`
	IsGroup  bool   `json:"is_group"`
	IsMPIM   bool   `json:"is_mpim"`
}

type userInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type imInfo struct {
	ID     string `json:"id"`
	UserID string `json:"user"`
}

// Classify turns an assembled frame into one of the event variants above.
// Only a syntactically broken frame returns an error.
func Classify(data []byte) (Event, error) {
	var head struct {
		Type    string `json:"type"`
		ReplyTo *int   `json:"reply_to"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("frame decode: %w", err)
	}

	if head.Type == "" {
		if head.ReplyTo != nil {
			var ack AckEvent
			if err := json.Unmarshal(data, &ack); err != nil {
				return nil, fmt.Errorf("ack decode: %w", err)
			}
			return ack, nil
		}
		return NoTypeEvent{Raw: data}, nil
	}

	if _, ok := ignoredTypes[head.Type]; ok {
		return IgnoredEvent{Type: head.Type}, nil
	}

	switch head.Type {
	case "message":
		var ev MessageEvent
		return ev, decodePayload(data, head.Type, &ev)
	case "reaction_added":
		var ev ReactionAddedEvent
		return ev, decodePayload(data, head.Type, &ev)
	case "channel_created", "group_joined":
		var ev ChannelCreatedEvent
		return ev, decodePayload(data, head.Type, &ev)
	case "im_created":
		var ev IMCreatedEvent
		return ev, decodePayload(data, head.Type, &ev)
	case "team_join":
		var ev TeamJoinEvent
		return ev, decodePayload(data, head.Type, &ev)
	case "user_change":
		var ev UserChangeEvent
		return ev, decodePayload(data, head.Type, &ev)
	default:
		return UnknownEvent{Type: head.Type, Raw: data}, nil
	}
}

func decodePayload(data []byte, frameType string, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s decode: %w", frameType, err)
	}
	return nil
}

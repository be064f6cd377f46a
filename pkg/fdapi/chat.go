package fdapi

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

const (
	chatPath         = "/chat"
	chatRoomsPath    = "/chatrooms"
	chatOpenPath     = "/chat/rooms"
	chatMessagesPath = "/chatmessages"
)

type ChatStatus string

const (
	ChatStatusOnline  ChatStatus = "Online"
	ChatStatusClosed  ChatStatus = "Closed"
	ChatStatusBlocked ChatStatus = "Blocked"
)

type ChatAction string

const (
	ChatActionNudge  ChatAction = "Nudge"
	ChatActionTyping ChatAction = "Typing"
)

type ChatType string

const (
	ChatTypeUser2User ChatType = "User2User"
	ChatTypeUser2Mod  ChatType = "User2Mod"
)

type ChatRoom struct {
	ID          int64      `json:"id"`
	ChatType    ChatType   `json:"chattype"`
	Name        string     `json:"name"`
	Icon        string     `json:"icon"`
	User1       int64      `json:"user1"`
	User2       int64      `json:"user2"`
	GroupID     int64      `json:"groupid"`
	LastMsg     int64      `json:"lastmsg"`
	LastMsgSeen int64      `json:"lastmsgseen"`
	LastDate    time.Time  `json:"lastdate"`
	Unseen      int        `json:"unseen"`
	Snippet     string     `json:"snippet"`
	Status      ChatStatus `json:"status"`
}

type ChatMessage struct {
	ID            int64     `json:"id"`
	ChatID        int64     `json:"chatid"`
	UserID        int64     `json:"userid"`
	Type          string    `json:"type"`
	Message       string    `json:"message"`
	Date          time.Time `json:"date"`
	SeenByAll     bool      `json:"seenbyall"`
	ReplyExpected bool      `json:"replyexpected"`
	ReplyReceived bool      `json:"replyreceived"`
	RefMsgID      int64     `json:"refmsgid,omitempty"`
	ImageID       int64     `json:"imageid,omitempty"`
}

type ListChatsParams struct {
	Since  time.Time
	Search string
}

type OpenChatParams struct {
	ChatType ChatType `json:"chattype"`
	UserID   int64    `json:"userid,omitempty"`
	GroupID  int64    `json:"groupid,omitempty"`
}

type SendChatMessage struct {
	RoomID   int64  `json:"roomid"`
	Message  string `json:"message,omitempty"`
	RefMsgID int64  `json:"refmsgid,omitempty"`
	ImageID  int64  `json:"imageid,omitempty"`
	Modnote  bool   `json:"modnote,omitempty"`
}

type chatRoomUpdate struct {
	ID          int64      `json:"id"`
	LastMsgSeen int64      `json:"lastmsgseen,omitempty"`
	AllowBack   bool       `json:"allowback,omitempty"`
	Action      ChatAction `json:"action,omitempty"`
	Status      ChatStatus `json:"status,omitempty"`
}

type idEnvelope struct {
	Envelope
	ID int64 `json:"id"`
}

func (c *Client) FetchMessages(ctx context.Context, chatID int64) ([]*ChatMessage, error) {
	var messages []*ChatMessage
	err := c.get(ctx, chatPath+"/"+idParam(chatID)+"/message", nil, &messages, LogAlways)
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *Client) ListChats(ctx context.Context, params ListChatsParams, logErrors bool) ([]*ChatRoom, error) {
	values := url.Values{}
	if !params.Since.IsZero() {
		values.Set("since", params.Since.Format(time.RFC3339))
	}
	if params.Search != "" {
		values.Set("search", params.Search)
	}

	var chats []*ChatRoom
	if err := c.get(ctx, chatPath, values, &chats, LogIf(logErrors)); err != nil {
		return nil, err
	}
	return chats, nil
}

func (c *Client) FetchChat(ctx context.Context, chatID int64, logErrors bool) (*ChatRoom, error) {
	chat := &ChatRoom{}
	if err := c.get(ctx, chatPath+"/"+idParam(chatID), nil, chat, LogIf(logErrors)); err != nil {
		return nil, err
	}
	return chat, nil
}

// MarkRead moves the last-seen marker. allowBack permits moving it to an older message.
func (c *Client) MarkRead(ctx context.Context, chatID, lastMsg int64, allowBack bool) error {
	return c.send(ctx, http.MethodPost, chatRoomsPath, chatRoomUpdate{
		ID:          chatID,
		LastMsgSeen: lastMsg,
		AllowBack:   allowBack,
	}, nil, LogAlways)
}

// OpenChat opens (or returns the existing) chat room and yields its id.
func (c *Client) OpenChat(ctx context.Context, params OpenChatParams, logErrors bool) (int64, error) {
	res := &idEnvelope{}
	if err := c.send(ctx, http.MethodPut, chatOpenPath, params, res, LogIf(logErrors)); err != nil {
		return 0, err
	}
	return res.ID, nil
}

// Send posts a chat message. Banned users are not logged as failures, see IsBanned.
func (c *Client) Send(ctx context.Context, msg SendChatMessage) (int64, error) {
	res := &idEnvelope{}
	if err := c.send(ctx, http.MethodPost, chatMessagesPath, msg, res, logUnlessBanned); err != nil {
		return 0, err
	}
	return res.ID, nil
}

func (c *Client) Nudge(ctx context.Context, chatID int64) error {
	return c.send(ctx, http.MethodPost, chatRoomsPath, chatRoomUpdate{ID: chatID, Action: ChatActionNudge}, nil, LogAlways)
}

func (c *Client) HideChat(ctx context.Context, chatID int64) error {
	return c.send(ctx, http.MethodPost, chatRoomsPath, chatRoomUpdate{ID: chatID, Status: ChatStatusClosed}, nil, LogAlways)
}

func (c *Client) BlockChat(ctx context.Context, chatID int64) error {
	return c.send(ctx, http.MethodPost, chatRoomsPath, chatRoomUpdate{ID: chatID, Status: ChatStatusBlocked}, nil, LogAlways)
}

// RSVP records whether the sender expects a reply to message id.
func (c *Client) RSVP(ctx context.Context, id, chatID int64, value bool) error {
	body := struct {
		RoomID        int64 `json:"roomid"`
		ID            int64 `json:"id"`
		ReplyExpected bool  `json:"replyexpected"`
	}{chatID, id, value}

	return c.send(ctx, http.MethodPatch, chatMessagesPath, body, nil, LogAlways)
}

func (c *Client) Typing(ctx context.Context, chatID int64) error {
	return c.send(ctx, http.MethodPost, chatRoomsPath, chatRoomUpdate{ID: chatID, Action: ChatActionTyping}, nil, LogAlways)
}

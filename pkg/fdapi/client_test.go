package fdapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"freegle/pkg/fdapi"
)

type recorded struct {
	Method  string
	Path    string
	Query   string
	Body    map[string]any
	Headers http.Header
}

type backend struct {
	mu       sync.Mutex
	requests []recorded
	srv      *httptest.Server
}

func newBackend(t *testing.T, reply func(r *http.Request) (int, any)) *backend {
	t.Helper()

	b := &backend{}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		rec := recorded{
			Method:  r.Method,
			Path:    r.URL.Path,
			Query:   r.URL.RawQuery,
			Headers: r.Header.Clone(),
		}
		if len(raw) > 0 {
			require.NoError(t, json.Unmarshal(raw, &rec.Body))
		}

		b.mu.Lock()
		b.requests = append(b.requests, rec)
		b.mu.Unlock()

		status, body := reply(r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body) //nolint:errcheck
	}))
	t.Cleanup(b.srv.Close)

	return b
}

func (b *backend) last(t *testing.T) recorded {
	t.Helper()

	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.requests)
	return b.requests[len(b.requests)-1]
}

func newClient(t *testing.T, b *backend, logs *bytes.Buffer) *fdapi.Client {
	t.Helper()

	if logs == nil {
		logs = &bytes.Buffer{}
	}

	client, err := fdapi.NewClient(&fdapi.ClientConfig{
		APIv1:  b.srv.URL + "/api",
		APIv2:  b.srv.URL + "/apiv2/",
		Logger: slog.New(slog.NewTextHandler(logs, nil)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() }) //nolint:errcheck

	return client
}

func ok(_ *http.Request) (int, any) {
	return http.StatusOK, map[string]any{"ret": 0, "status": "Success", "id": 77}
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	_, err := fdapi.NewClient(&fdapi.ClientConfig{APIv1: "http://localhost/api"})
	require.ErrorIs(t, err, fdapi.ErrConfig)
}

func TestClient_Chat(t *testing.T) {
	t.Parallel()

	t.Run("fetch messages", func(t *testing.T) {
		t.Parallel()

		b := newBackend(t, func(_ *http.Request) (int, any) {
			return http.StatusOK, []map[string]any{
				{"id": 1, "chatid": 12, "message": "Is it still available?", "replyexpected": true},
				{"id": 2, "chatid": 12, "message": "Yes"},
			}
		})

		messages, err := newClient(t, b, nil).FetchMessages(context.Background(), 12)
		require.NoError(t, err)
		require.Len(t, messages, 2)
		require.True(t, messages[0].ReplyExpected)
		require.Equal(t, "Yes", messages[1].Message)

		req := b.last(t)
		require.Equal(t, http.MethodGet, req.Method)
		require.Equal(t, "/apiv2/chat/12/message", req.Path)
	})

	t.Run("list chats", func(t *testing.T) {
		t.Parallel()

		b := newBackend(t, func(_ *http.Request) (int, any) {
			return http.StatusOK, []map[string]any{{"id": 5, "chattype": "User2User", "unseen": 3}}
		})

		chats, err := newClient(t, b, nil).ListChats(context.Background(), fdapi.ListChatsParams{Search: "sofa"}, true)
		require.NoError(t, err)
		require.Len(t, chats, 1)
		require.Equal(t, 3, chats[0].Unseen)
		require.Equal(t, "search=sofa", b.last(t).Query)
	})

	t.Run("status and actions", func(t *testing.T) {
		t.Parallel()

		b := newBackend(t, ok)
		client := newClient(t, b, nil)
		ctx := context.Background()

		require.NoError(t, client.HideChat(ctx, 9))
		require.Equal(t, map[string]any{"id": float64(9), "status": "Closed"}, b.last(t).Body)

		require.NoError(t, client.BlockChat(ctx, 9))
		require.Equal(t, map[string]any{"id": float64(9), "status": "Blocked"}, b.last(t).Body)

		require.NoError(t, client.Nudge(ctx, 9))
		require.Equal(t, map[string]any{"id": float64(9), "action": "Nudge"}, b.last(t).Body)

		require.NoError(t, client.Typing(ctx, 9))
		require.Equal(t, "/api/chatrooms", b.last(t).Path)
		require.Equal(t, map[string]any{"id": float64(9), "action": "Typing"}, b.last(t).Body)

		require.NoError(t, client.MarkRead(ctx, 9, 120, true))
		require.Equal(t, map[string]any{"id": float64(9), "lastmsgseen": float64(120), "allowback": true}, b.last(t).Body)

		require.NoError(t, client.RSVP(ctx, 3, 9, false))
		req := b.last(t)
		require.Equal(t, http.MethodPatch, req.Method)
		require.Equal(t, "/api/chatmessages", req.Path)
		require.Equal(t, map[string]any{"roomid": float64(9), "id": float64(3), "replyexpected": false}, req.Body)
	})

	t.Run("open chat", func(t *testing.T) {
		t.Parallel()

		b := newBackend(t, ok)

		id, err := newClient(t, b, nil).OpenChat(context.Background(), fdapi.OpenChatParams{
			ChatType: fdapi.ChatTypeUser2User,
			UserID:   42,
		}, true)
		require.NoError(t, err)
		require.Equal(t, int64(77), id)

		req := b.last(t)
		require.Equal(t, http.MethodPut, req.Method)
		require.Equal(t, "/api/chat/rooms", req.Path)
	})
}

func TestClient_Errors(t *testing.T) {
	t.Parallel()

	t.Run("banned users are not logged", func(t *testing.T) {
		t.Parallel()

		b := newBackend(t, func(_ *http.Request) (int, any) {
			return http.StatusOK, map[string]any{"ret": fdapi.RetBanned, "status": "Banned"}
		})
		logs := &bytes.Buffer{}

		_, err := newClient(t, b, logs).Send(context.Background(), fdapi.SendChatMessage{RoomID: 1, Message: "hi"})
		require.Error(t, err)
		require.True(t, fdapi.IsBanned(err))
		require.ErrorIs(t, err, fdapi.ErrAPI)
		require.Empty(t, logs.String())
	})

	t.Run("other envelope failures are logged", func(t *testing.T) {
		t.Parallel()

		b := newBackend(t, func(_ *http.Request) (int, any) {
			return http.StatusOK, map[string]any{"ret": 2, "status": "Permission denied"}
		})
		logs := &bytes.Buffer{}

		_, err := newClient(t, b, logs).Send(context.Background(), fdapi.SendChatMessage{RoomID: 1, Message: "hi"})

		var apiErr *fdapi.APIError
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, 2, apiErr.Ret)
		require.False(t, fdapi.IsBanned(err))
		require.Contains(t, logs.String(), "api call failed")
	})

	t.Run("http status", func(t *testing.T) {
		t.Parallel()

		b := newBackend(t, func(_ *http.Request) (int, any) {
			return http.StatusNotFound, map[string]any{}
		})
		logs := &bytes.Buffer{}

		_, err := newClient(t, b, logs).FetchChat(context.Background(), 4, false)

		var apiErr *fdapi.APIError
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
		require.Empty(t, logs.String())
	})
}

func TestClient_News(t *testing.T) {
	t.Parallel()

	t.Run("fetch item with replies", func(t *testing.T) {
		t.Parallel()

		b := newBackend(t, func(_ *http.Request) (int, any) {
			return http.StatusOK, map[string]any{
				"id": 10, "userid": 1, "displayname": "Alice", "message": "Anyone need a ladder?",
				"replies": []map[string]any{
					{"id": 11, "userid": 2, "displayname": "Bob", "replyto": 10, "threadhead": 10},
				},
			}
		})

		item, err := newClient(t, b, nil).FetchNewsItem(context.Background(), 10, true, false)
		require.NoError(t, err)
		require.Equal(t, int64(10), item.ID)
		require.Len(t, item.Replies, 1)
		require.Equal(t, "Bob", item.Replies[0].DisplayName)

		req := b.last(t)
		require.Equal(t, "/apiv2/newsfeed/10", req.Path)
		require.Equal(t, "lovelist=true", req.Query)
	})

	t.Run("count", func(t *testing.T) {
		t.Parallel()

		b := newBackend(t, func(_ *http.Request) (int, any) {
			return http.StatusOK, map[string]any{"count": 6}
		})

		count, err := newClient(t, b, nil).NewsCount(context.Background(), true)
		require.NoError(t, err)
		require.Equal(t, 6, count)
		require.Equal(t, "/apiv2/newsfeedcount", b.last(t).Path)
	})

	t.Run("writes", func(t *testing.T) {
		t.Parallel()

		b := newBackend(t, ok)
		client := newClient(t, b, nil)
		ctx := context.Background()

		id, err := client.SendNews(ctx, fdapi.SendNews{Message: "Thanks!", ReplyTo: 10, ThreadHead: 10})
		require.NoError(t, err)
		require.Equal(t, int64(77), id)
		require.Equal(t, http.MethodPut, b.last(t).Method)

		require.NoError(t, client.ReferNewsTo(ctx, 10, fdapi.ReferToWanted))
		require.Equal(t, "ReferToWanted", b.last(t).Body["action"])

		require.NoError(t, client.ReportNews(ctx, 10, "spam"))
		require.Equal(t, map[string]any{"id": float64(10), "action": "Report", "reason": "spam"}, b.last(t).Body)

		require.NoError(t, client.NewsSeen(ctx, 11))
		require.Equal(t, "Seen", b.last(t).Body["action"])

		require.NoError(t, client.DeleteNews(ctx, 11))
		req := b.last(t)
		require.Equal(t, http.MethodDelete, req.Method)
		require.Equal(t, "id=11", req.Query)
	})
}

func TestClient_Auth(t *testing.T) {
	t.Parallel()

	b := newBackend(t, func(_ *http.Request) (int, any) {
		return http.StatusOK, map[string]any{"count": 0}
	})
	client := newClient(t, b, nil)

	client.SetJWT("abc.def")
	require.NoError(t, client.SetPersistent(&fdapi.Persistent{ID: 1, Series: 2, Token: "tok"}))

	_, err := client.NewsCount(context.Background(), true)
	require.NoError(t, err)

	req := b.last(t)
	require.Equal(t, "Iznik abc.def", req.Headers.Get("Authorization"))
	require.JSONEq(t, `{"id":1,"series":2,"token":"tok"}`, req.Headers.Get("Authorization2"))
}

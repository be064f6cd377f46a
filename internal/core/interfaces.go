package core

import (
	"context"
	"time"

	"freegle/pkg/fdapi"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/zhulik/pips"
	"gorm.io/gorm"
)

// NewsAPI is the part of the backend client used by the newsfeed store.
type NewsAPI interface {
	NewsCount(ctx context.Context, logErrors bool) (int, error)
	NewsSeen(ctx context.Context, id int64) error
	FetchNewsItem(ctx context.Context, id int64, lovelist, logErrors bool) (*fdapi.NewsItem, error)
	FetchNewsFeed(ctx context.Context, distance string) ([]*fdapi.NewsSummary, error)
	LoveNews(ctx context.Context, id int64) error
	UnloveNews(ctx context.Context, id int64) error
	UnfollowNews(ctx context.Context, id int64) error
	UnhideNews(ctx context.Context, id int64) error
	ReferNewsTo(ctx context.Context, id int64, target string) error
	ReportNews(ctx context.Context, id int64, reason string) error
	SendNews(ctx context.Context, news fdapi.SendNews) (int64, error)
	EditNews(ctx context.Context, id int64, message string) error
	DeleteNews(ctx context.Context, id int64) error
}

// MessageAPI is used by the site to build link previews.
type MessageAPI interface {
	FetchMessage(ctx context.Context, id int64, logErrors bool) (*fdapi.Message, error)
}

// ChatAPI is the chat part of the backend client. Chats are never cached locally.
type ChatAPI interface {
	FetchMessages(ctx context.Context, chatID int64) ([]*fdapi.ChatMessage, error)
	ListChats(ctx context.Context, params fdapi.ListChatsParams, logErrors bool) ([]*fdapi.ChatRoom, error)
	FetchChat(ctx context.Context, chatID int64, logErrors bool) (*fdapi.ChatRoom, error)
	MarkRead(ctx context.Context, chatID, lastMsg int64, allowBack bool) error
	OpenChat(ctx context.Context, params fdapi.OpenChatParams, logErrors bool) (int64, error)
	Send(ctx context.Context, msg fdapi.SendChatMessage) (int64, error)
	Nudge(ctx context.Context, chatID int64) error
	HideChat(ctx context.Context, chatID int64) error
	BlockChat(ctx context.Context, chatID int64) error
	Typing(ctx context.Context, chatID int64) error
	RSVP(ctx context.Context, id, chatID int64, value bool) error
}

type NewsfeedStore interface {
	FetchFeed(ctx context.Context, distance string) ([]*fdapi.NewsSummary, error)
	Fetch(ctx context.Context, id int64, force, lovelist bool) *fdapi.NewsItem
	FetchCount(ctx context.Context, logErrors bool) (int, error)

	Love(ctx context.Context, id, threadHead int64) error
	Unlove(ctx context.Context, id, threadHead int64) error
	Send(ctx context.Context, message string, replyTo, threadHead, imageID int64) (int64, error)
	Edit(ctx context.Context, id int64, message string, threadHead int64) error
	Delete(ctx context.Context, id, threadHead int64) error
	Unfollow(ctx context.Context, id int64) error
	Unhide(ctx context.Context, id int64) error
	ReferTo(ctx context.Context, id int64, target string) error
	Report(ctx context.Context, id int64, reason string) error

	ByID(id int64) *fdapi.NewsItem
	Feed() []*fdapi.NewsSummary
	TagUsers() []TagUser
	MaxSeen() int64
	Count() int
	Wait()
}

// TagUser is a candidate for @-mentions.
type TagUser struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"displayname"`
}

type NewsfeedWatcher interface{}

type MetricsServer interface{}

type SiteServer interface{}

type ReportsArchiver interface{}

type MetricsCollector interface{}

type MigrationRunner interface{}

// Page is a rendered document kept by a PageCache.
type Page struct {
	Body       []byte    `json:"body"`
	Mode       string    `json:"mode"`
	RenderedAt time.Time `json:"renderedAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// Expired reports whether the page must be rendered again. A zero ExpiresAt never expires.
func (p *Page) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && !now.Before(p.ExpiresAt)
}

type PageCache interface {
	Get(ctx context.Context, key string) (*Page, bool, error)
	Put(ctx context.Context, key string, page *Page) error
	Purge(ctx context.Context) error
}

type ReportPublisher interface {
	Publish(ctx context.Context, report *CSPReport) error
}

type ReportRepository interface {
	Insert(ctx context.Context, reports ...*CSPReportModel) error
	Migrate(ctx context.Context) error
}

type NATS interface {
	Publish(ctx context.Context, subject string, payload []byte, msgID string) error
	KV() jetstream.KeyValue
	Consume(ctx context.Context, consumer string) (<-chan pips.D[jetstream.Msg], error)
}

type DB interface {
	Conn(ctx context.Context) *gorm.DB
}

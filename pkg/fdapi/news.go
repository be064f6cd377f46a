package fdapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	newsfeedPath      = "/newsfeed"
	newsfeedCountPath = "/newsfeedcount"
)

type NewsAction string

const (
	NewsActionSeen     NewsAction = "Seen"
	NewsActionLove     NewsAction = "Love"
	NewsActionUnlove   NewsAction = "Unlove"
	NewsActionUnfollow NewsAction = "Unfollow"
	NewsActionUnhide   NewsAction = "Unhide"
	NewsActionReport   NewsAction = "Report"
	NewsActionReferTo  NewsAction = "ReferTo"
)

// ReferTo targets, appended to the ReferTo action.
const (
	ReferToWanted         = "Wanted"
	ReferToOffer          = "Offer"
	ReferToTaken          = "Taken"
	ReferToReceived       = "Received"
	ReferToCommunityEvent = "CommunityEvent"
)

type NewsImage struct {
	ID        int64  `json:"id"`
	Path      string `json:"path"`
	PathThumb string `json:"paththumb"`
}

type NewsItem struct {
	ID          int64       `json:"id"`
	UserID      int64       `json:"userid"`
	DisplayName string      `json:"displayname"`
	Type        string      `json:"type"`
	Message     string      `json:"message"`
	Timestamp   time.Time   `json:"timestamp"`
	ReplyTo     int64       `json:"replyto"`
	ThreadHead  int64       `json:"threadhead"`
	Image       *NewsImage  `json:"image,omitempty"`
	Loved       bool        `json:"loved"`
	Loves       int         `json:"loves"`
	LoveList    []int64     `json:"lovelist,omitempty"`
	Hidden      bool        `json:"hidden"`
	Replies     []*NewsItem `json:"replies,omitempty"`
}

// NewsSummary is an entry of the ordered feed, the full item is fetched separately.
type NewsSummary struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userid"`
	Timestamp time.Time `json:"timestamp"`
}

type SendNews struct {
	Message    string `json:"message"`
	ReplyTo    int64  `json:"replyto,omitempty"`
	ThreadHead int64  `json:"threadhead,omitempty"`
	ImageID    int64  `json:"imageid,omitempty"`
}

type newsUpdate struct {
	ID      int64      `json:"id"`
	Action  NewsAction `json:"action,omitempty"`
	Reason  string     `json:"reason,omitempty"`
	Message string     `json:"message,omitempty"`
}

func (c *Client) NewsCount(ctx context.Context, logErrors bool) (int, error) {
	res := struct {
		Count int `json:"count"`
	}{}
	if err := c.get(ctx, newsfeedCountPath, nil, &res, LogIf(logErrors)); err != nil {
		return 0, err
	}
	return res.Count, nil
}

// NewsSeen marks everything up to id as seen.
func (c *Client) NewsSeen(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodPost, newsfeedPath, newsUpdate{ID: id, Action: NewsActionSeen}, nil, LogAlways)
}

func (c *Client) FetchNewsItem(ctx context.Context, id int64, lovelist, logErrors bool) (*NewsItem, error) {
	values := url.Values{}
	if lovelist {
		values.Set("lovelist", "true")
	}

	item := &NewsItem{}
	if err := c.get(ctx, newsfeedPath+"/"+idParam(id), values, item, LogIf(logErrors)); err != nil {
		return nil, err
	}
	return item, nil
}

// FetchNewsFeed returns the ordered feed. distance is either a number of metres or "anywhere"/"nearby".
func (c *Client) FetchNewsFeed(ctx context.Context, distance string) ([]*NewsSummary, error) {
	values := url.Values{}
	if distance != "" {
		values.Set("distance", distance)
	}

	var feed []*NewsSummary
	if err := c.get(ctx, newsfeedPath, values, &feed, LogAlways); err != nil {
		return nil, err
	}
	return feed, nil
}

func (c *Client) LoveNews(ctx context.Context, id int64) error {
	return c.newsAction(ctx, id, NewsActionLove)
}

func (c *Client) UnloveNews(ctx context.Context, id int64) error {
	return c.newsAction(ctx, id, NewsActionUnlove)
}

func (c *Client) UnfollowNews(ctx context.Context, id int64) error {
	return c.newsAction(ctx, id, NewsActionUnfollow)
}

func (c *Client) UnhideNews(ctx context.Context, id int64) error {
	return c.newsAction(ctx, id, NewsActionUnhide)
}

func (c *Client) ReferNewsTo(ctx context.Context, id int64, target string) error {
	return c.newsAction(ctx, id, NewsActionReferTo+NewsAction(target))
}

func (c *Client) ReportNews(ctx context.Context, id int64, reason string) error {
	return c.send(ctx, http.MethodPost, newsfeedPath, newsUpdate{ID: id, Action: NewsActionReport, Reason: reason}, nil, LogAlways)
}

// SendNews creates a post or reply and returns its id.
func (c *Client) SendNews(ctx context.Context, news SendNews) (int64, error) {
	res := &idEnvelope{}
	if err := c.send(ctx, http.MethodPut, newsfeedPath, news, res, LogAlways); err != nil {
		return 0, err
	}
	return res.ID, nil
}

func (c *Client) EditNews(ctx context.Context, id int64, message string) error {
	return c.send(ctx, http.MethodPatch, newsfeedPath, newsUpdate{ID: id, Message: message}, nil, LogAlways)
}

func (c *Client) DeleteNews(ctx context.Context, id int64) error {
	return c.del(ctx, newsfeedPath, url.Values{"id": []string{strconv.FormatInt(id, 10)}}, LogAlways)
}

func (c *Client) newsAction(ctx context.Context, id int64, action NewsAction) error {
	return c.send(ctx, http.MethodPost, newsfeedPath, newsUpdate{ID: id, Action: action}, nil, LogAlways)
}

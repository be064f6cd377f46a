package fdapi

import (
	"context"
	"time"
)

const messagePath = "/message"

type MessageAttachment struct {
	ID        int64  `json:"id"`
	Path      string `json:"path"`
	PathThumb string `json:"paththumb"`
}

type MessageGroup struct {
	GroupID    int64     `json:"groupid"`
	Arrival    time.Time `json:"arrival"`
	Collection string    `json:"collection"`
}

// Message is an Offer or Wanted post.
type Message struct {
	ID          int64                `json:"id"`
	Type        string               `json:"type"`
	Subject     string               `json:"subject"`
	TextBody    string               `json:"textbody"`
	Arrival     time.Time            `json:"arrival"`
	Attachments []*MessageAttachment `json:"attachments"`
	Groups      []*MessageGroup      `json:"groups"`
}

func (c *Client) FetchMessage(ctx context.Context, id int64, logErrors bool) (*Message, error) {
	msg := &Message{}
	if err := c.get(ctx, messagePath+"/"+idParam(id), nil, msg, LogIf(logErrors)); err != nil {
		return nil, err
	}
	return msg, nil
}

package site

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"freegle/internal/core"
)

const descriptionLength = 300

// MessageResolver gives /message/{id} pages the preview of the message, so shared links show what is
// on offer.
func MessageResolver(api core.MessageAPI, userSite string) Resolver {
	return func(ctx context.Context, path string) (*Override, error) {
		rest, ok := strings.CutPrefix(normalizePath(path), "/message/")
		if !ok {
			return nil, nil
		}

		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || id <= 0 {
			return nil, nil
		}

		msg, err := api.FetchMessage(ctx, id, false)
		if err != nil {
			return nil, err
		}

		description := truncate(strings.TrimSpace(msg.TextBody), descriptionLength)
		if description == "" {
			description = msg.Subject
		}

		meta := []Meta{
			{HID: "og:title", Property: "og:title", Content: msg.Subject},
			{HID: "og:description", Property: "og:description", Content: description},
			{HID: "og:url", Property: "og:url", Content: userSite + "/message/" + rest},
			{HID: "description", Name: "description", Content: description},
			{HID: "twitter:title", Name: "twitter:title", Content: msg.Subject},
			{HID: "twitter:description", Name: "twitter:description", Content: description},
		}

		if len(msg.Attachments) > 0 && msg.Attachments[0] != nil && msg.Attachments[0].Path != "" {
			first := msg.Attachments[0]
			meta = append(meta,
				Meta{HID: "og:image", Property: "og:image", Content: first.Path},
				Meta{HID: "twitter:image", Name: "twitter:image", Content: first.Path},
			)
		}

		return &Override{Title: msg.Subject, Meta: meta}, nil
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

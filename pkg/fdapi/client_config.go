package fdapi

import (
	"log/slog"
	"time"

	"resty.dev/v3"
)

type ClientConfig struct {
	// APIv1 is the base URL of the envelope API, e.g. https://fdapilive.ilovefreegle.org/api.
	APIv1 string
	// APIv2 is the base URL of the read API, e.g. https://api.ilovefreegle.org/apiv2.
	APIv2 string

	Logger *slog.Logger

	TransportSettings *resty.TransportSettings

	ResponseMiddlewares []resty.ResponseMiddleware
	RequestMiddlewares  []resty.RequestMiddleware
}

var DefaultConfig = &ClientConfig{
	APIv1: "https://fdapilive.ilovefreegle.org/api",
	APIv2: "https://api.ilovefreegle.org/apiv2",
	TransportSettings: &resty.TransportSettings{
		DialerTimeout:         5 * time.Second,
		DialerKeepAlive:       30 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
	},
}

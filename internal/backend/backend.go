package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"resty.dev/v3"

	"freegle/internal/config"
	"freegle/pkg/fdapi"
)

var (
	apiLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "freegle_api_request_latency_seconds",
			Help:    "Histogram of backend API request latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "path", "status_code"},
	)

	numericSegment = regexp.MustCompile(`/\d+`)
)

// Backend is the API client configured from the process config.
type Backend struct {
	*fdapi.Client

	Logger *slog.Logger
	Config *config.Config
}

func (b *Backend) Init(_ context.Context) error {
	b.Logger = b.Logger.With("component", "backend.Backend")

	client, err := fdapi.NewClient(&fdapi.ClientConfig{
		APIv1:               b.Config.APIv1,
		APIv2:               b.Config.APIv2,
		Logger:              b.Logger,
		TransportSettings:   fdapi.DefaultConfig.TransportSettings,
		ResponseMiddlewares: []resty.ResponseMiddleware{metricMiddleware},
	})
	if err != nil {
		return err
	}

	client.SetJWT(b.Config.JWT)

	if b.Config.Persistent != "" {
		p := &fdapi.Persistent{}
		if err := json.Unmarshal([]byte(b.Config.Persistent), p); err != nil {
			return fmt.Errorf("%w: persistent token: %w", fdapi.ErrConfig, err)
		}
		if err := client.SetPersistent(p); err != nil {
			return err
		}
	}

	b.Client = client
	b.Logger.Debug("API client ready", "v1", b.Config.APIv1, "v2", b.Config.APIv2)

	return nil
}

func (b *Backend) Shutdown(_ context.Context) error {
	return b.Client.Close()
}

func metricMiddleware(_ *resty.Client, response *resty.Response) error {
	reqURL, err := url.Parse(response.Request.URL)
	if err != nil {
		return err
	}

	apiLatency.WithLabelValues(
		response.Request.Method,
		normalizePath(reqURL.Path),
		strconv.Itoa(response.StatusCode()),
	).Observe(response.Duration().Seconds())

	return nil
}

// normalizePath replaces ids in the path so every item shares one series.
func normalizePath(path string) string {
	return numericSegment.ReplaceAllString(path, "/:id")
}

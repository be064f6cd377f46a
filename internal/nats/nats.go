package nats

import (
	"context"
	"errors"
	"log/slog"
	"time"

	libnats "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/zhulik/pips"

	"freegle/internal/config"
	"freegle/internal/core"
)

const (
	appName = "freegle"

	// ReportsSubject carries CSP violation reports.
	ReportsSubject = appName + ".csp"
	// ArchiverConsumer is the durable consumer of the report archiver.
	ArchiverConsumer = "csp-archiver"

	pagesBucket = appName + "-pages"
	fetchBatch  = 100
)

var _ core.NATS = (*NATS)(nil)

type NATS struct {
	Logger *slog.Logger
	Config *config.Config

	js jetstream.JetStream
	kv jetstream.KeyValue
}

func (n *NATS) Init(ctx context.Context) error {
	n.Logger = n.Logger.With("component", "nats.NATS")

	nc, err := libnats.Connect(n.Config.NATSURL, libnats.Name(appName))
	if err != nil {
		return err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return err
	}

	n.js = js

	if n.Config.NATSInit {
		if err := n.initNATS(ctx); err != nil {
			return err
		}
	}

	kv, err := js.KeyValue(ctx, pagesBucket)
	if err != nil {
		return err
	}
	n.kv = kv

	return nil
}

func (n *NATS) HealthCheck(context.Context) error {
	_, err := n.js.Conn().RTT()
	return err
}

func (n *NATS) Shutdown(context.Context) error {
	return n.js.Conn().Drain()
}

func (n *NATS) KV() jetstream.KeyValue {
	return n.kv
}

// Publish publishes payload to the stream. msgID makes redeliveries of the same message idempotent.
func (n *NATS) Publish(ctx context.Context, subject string, payload []byte, msgID string) error {
	msg := &libnats.Msg{
		Subject: subject,
		Data:    payload,
		Header:  libnats.Header{},
	}
	if msgID != "" {
		msg.Header.Set(libnats.MsgIdHdr, msgID)
	}

	_, err := n.js.PublishMsg(ctx, msg)
	return err
}

// Consume streams the messages of a durable consumer until ctx is cancelled. Messages must be acked by
// the receiver.
func (n *NATS) Consume(ctx context.Context, consumer string) (<-chan pips.D[jetstream.Msg], error) {
	cons, err := n.js.Consumer(ctx, appName, consumer)
	if err != nil {
		return nil, err
	}

	ch := make(chan pips.D[jetstream.Msg])

	go func() {
		defer close(ch)

		for ctx.Err() == nil {
			batch, err := cons.Fetch(fetchBatch, jetstream.FetchMaxWait(time.Second))
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					n.Logger.Error("failed to fetch messages, retrying", "consumer", consumer, "error", err)
					time.Sleep(time.Second)
				}
				continue
			}

			for msg := range batch.Messages() {
				select {
				case ch <- pips.NewD(msg):
				case <-ctx.Done():
					return
				}
			}

			if err := batch.Error(); err != nil && !errors.Is(err, jetstream.ErrNoHeartbeat) {
				n.Logger.Debug("batch finished with error", "consumer", consumer, "error", err)
			}
		}
	}()

	return ch, nil
}

func (n *NATS) initNATS(ctx context.Context) error {
	n.Logger.Info("Initializing NATS")
	_, err := n.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       appName,
		Subjects:   []string{appName + ".*"},
		MaxAge:     7 * 24 * time.Hour,
		Duplicates: time.Hour,
	})
	if err != nil {
		return err
	}
	n.Logger.Info("Stream created or updated", "name", appName)

	_, err = n.js.CreateOrUpdateConsumer(ctx, appName, jetstream.ConsumerConfig{
		Durable:       ArchiverConsumer,
		FilterSubject: ReportsSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       time.Minute,
	})
	if err != nil {
		return err
	}
	n.Logger.Info("Consumer created or updated", "name", ArchiverConsumer)

	_, err = n.js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  pagesBucket,
		History: 1,
		TTL:     24 * time.Hour,
	})
	if err != nil {
		return err
	}
	n.Logger.Info("KeyValue created or updated", "name", pagesBucket)

	return nil
}

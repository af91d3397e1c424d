package kafka

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/niksmo/storefront/pkg/schema"
	"github.com/twmb/franz-go/pkg/kgo"
)

var _ port.CatalogChangesConsumer = (*CatalogChangesConsumer)(nil)

const slowDownTimeout = time.Second

type ConsumerOpt func(*consumerOpts) error

func ConsumerClientOpt(
	seedBrokers []string, topic, group string, tlsConfig *tls.Config,
) ConsumerOpt {
	return func(co *consumerOpts) error {
		kopts := append(ClientOpts(seedBrokers, tlsConfig),
			kgo.ConsumeTopics(topic),
			kgo.ConsumerGroup(group),
			kgo.DisableAutoCommit(),
		)
		cl, err := kgo.NewClient(kopts...)
		if err != nil {
			return err
		}
		co.cl = cl
		return nil
	}
}

// ConsumerWithClientOpt uses an already built client.
func ConsumerWithClientOpt(cl ConsumerClient) ConsumerOpt {
	return func(co *consumerOpts) error {
		if cl == nil {
			return errors.New("consumer client is nil")
		}
		co.cl = cl
		return nil
	}
}

func ConsumerDecoderOpt(decoder Decoder) ConsumerOpt {
	return func(co *consumerOpts) error {
		if decoder == nil {
			return errors.New("decoder is nil")
		}
		co.decoder = decoder
		return nil
	}
}

func ConsumerCatalogLoaderOpt(l port.CatalogLoader) ConsumerOpt {
	return func(co *consumerOpts) error {
		if l == nil {
			return errors.New("catalog loader is nil")
		}
		co.loader = l
		return nil
	}
}

type consumerOpts struct {
	cl      ConsumerClient
	decoder Decoder
	loader  port.CatalogLoader
}

func (co *consumerOpts) apply(opts ...ConsumerOpt) error {
	for _, opt := range opts {
		if err := opt(co); err != nil {
			return err
		}
	}
	return nil
}

type consumerParent interface {
	processFetches(context.Context, kgo.Fetches) error
}

// A consumer is used for composition.
//
// Fetching records from kafka broker and closing underlying [kgo.Client].
// Offsets are committed only after the parent processed the batch.
type consumer struct {
	opPrefix string
	parent   consumerParent
	cl       ConsumerClient
}

func (c consumer) run(ctx context.Context) {
	const op = "run"
	log := slog.With("op", makeOp(c.opPrefix, op))

	log.Info("running")

	for ctx.Err() == nil {
		err := c.consume(ctx)
		if err == nil || errors.Is(err, context.Canceled) {
			continue
		}
		log.Error("failed to consume", "err", err)
		c.slowDown(ctx)
	}
	log.Info("stopped")
}

func (c consumer) consume(ctx context.Context) error {
	const op = "consume"

	fetches, err := c.pollFetches(ctx)
	if err != nil {
		return opErr(err, c.opPrefix, op)
	}

	if fetches.Empty() {
		return nil
	}

	if err := c.parent.processFetches(ctx, fetches); err != nil {
		return opErr(err, c.opPrefix, op)
	}

	if err := c.commit(ctx); err != nil {
		return opErr(err, c.opPrefix, op)
	}
	return nil
}

func (c consumer) pollFetches(ctx context.Context) (kgo.Fetches, error) {
	const op = "pollFetches"

	fetches := c.cl.PollFetches(ctx)
	if err := fetches.Err0(); err != nil {
		return nil, opErr(err, c.opPrefix, op)
	}

	if err := c.handleFetchesErrs(fetches); err != nil {
		return nil, opErr(err, c.opPrefix, op)
	}

	return fetches, nil
}

func (c consumer) handleFetchesErrs(fetches kgo.Fetches) error {
	var errsMessages []string
	fetches.EachError(func(t string, p int32, err error) {
		errsMessages = append(errsMessages,
			fmt.Sprintf("topic %q partition %d: %q", t, p, err))
	})

	if len(errsMessages) != 0 {
		return errors.New(strings.Join(errsMessages, "; "))
	}
	return nil
}

func (c consumer) slowDown(ctx context.Context) {
	t := time.NewTimer(slowDownTimeout)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (c consumer) commit(ctx context.Context) error {
	const op = "commit"

	if err := ctx.Err(); err != nil {
		return opErr(err, c.opPrefix, op)
	}

	if err := c.cl.CommitUncommittedOffsets(ctx); err != nil {
		return opErr(err, c.opPrefix, op)
	}
	return nil
}

func (c consumer) close() {
	const op = "close"
	log := slog.With("op", makeOp(c.opPrefix, op))

	log.Info("closing consumer...")
	c.cl.Close()
	log.Info("consumer is closed")
}

// A CatalogChangesConsumer reloads the catalog when products were changed by
// any storefront instance. A batch of changes causes a single reload.
type CatalogChangesConsumer struct {
	opPrefix string
	consumer consumer
	decoder  Decoder
	loader   port.CatalogLoader
}

func NewCatalogChangesConsumer(opts ...ConsumerOpt) (*CatalogChangesConsumer, error) {
	const op = "NewCatalogChangesConsumer"

	var options consumerOpts
	if err := options.apply(opts...); err != nil {
		return nil, opErr(err, op)
	}
	if options.cl == nil || options.decoder == nil || options.loader == nil {
		return nil, opErr(ErrTooFewOpts, op)
	}

	c := &CatalogChangesConsumer{
		opPrefix: "CatalogChangesConsumer",
		decoder:  options.decoder,
		loader:   options.loader,
	}
	c.consumer = consumer{
		opPrefix: c.opPrefix,
		parent:   c,
		cl:       options.cl,
	}
	return c, nil
}

func (c *CatalogChangesConsumer) Run(ctx context.Context) {
	c.consumer.run(ctx)
}

func (c *CatalogChangesConsumer) Close() {
	c.consumer.close()
}

func (c *CatalogChangesConsumer) processFetches(
	ctx context.Context, fetches kgo.Fetches,
) error {
	const op = "processFetches"
	log := slog.With("op", makeOp(c.opPrefix, op))

	changes := c.toDomain(fetches)
	if len(changes) == 0 {
		return nil
	}

	if err := c.loader.LoadCatalog(ctx); err != nil {
		return opErr(err, c.opPrefix, op)
	}
	log.Info("catalog reloaded", "nChanges", len(changes))
	return nil
}

func (c *CatalogChangesConsumer) toDomain(fetches kgo.Fetches) (vs []domain.CatalogChange) {
	const op = "toDomain"
	log := slog.With("op", makeOp(c.opPrefix, op))

	fetches.EachRecord(func(r *kgo.Record) {
		var s schema.CatalogChangeV1
		if err := c.decoder.Decode(r.Value, &s); err != nil {
			log.Error("failed to decode record value",
				"offset", r.Offset, "err", err)
			return
		}
		vs = append(vs, domain.CatalogChange{ProductID: s.ProductID, Kind: s.Kind})
	})
	return vs
}

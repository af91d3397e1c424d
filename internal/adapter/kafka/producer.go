package kafka

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/twmb/franz-go/pkg/kgo"
)

var _ port.StockEventsPublisher = (*StockEventsProducer)(nil)
var _ port.CatalogChangesPublisher = (*CatalogChangesProducer)(nil)

type ProducerOpt func(*producerOpts) error

type producerOpts struct {
	cl      ProducerClient
	encoder Encoder
}

// ProducerClientOpt dials the brokers and pings them before use.
func ProducerClientOpt(
	ctx context.Context, seedBrokers []string, topic string, tlsConfig *tls.Config,
) ProducerOpt {
	return func(opts *producerOpts) error {
		kopts := append(ClientOpts(seedBrokers, tlsConfig),
			kgo.DefaultProduceTopicAlways(),
			kgo.DefaultProduceTopic(topic),
			kgo.RequiredAcks(kgo.AllISRAcks()),
		)
		cl, err := kgo.NewClient(kopts...)
		if err != nil {
			return err
		}

		if err := cl.Ping(ctx); err != nil {
			cl.Close()
			return err
		}
		opts.cl = cl
		return nil
	}
}

// ProducerWithClientOpt uses an already built client.
func ProducerWithClientOpt(cl ProducerClient) ProducerOpt {
	return func(opts *producerOpts) error {
		if cl == nil {
			return errors.New("producer client is nil")
		}
		opts.cl = cl
		return nil
	}
}

func ProducerEncoderOpt(encoder Encoder) ProducerOpt {
	return func(opts *producerOpts) error {
		if encoder == nil {
			return errors.New("encoder is nil")
		}
		opts.encoder = encoder
		return nil
	}
}

func (o *producerOpts) apply(opts []ProducerOpt) error {
	if len(opts) != 2 {
		return ErrTooFewOpts
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return err
		}
	}
	return nil
}

// A producer is used for composition.
//
// Producing records to kafka broker and closing underlying [kgo.Client].
type producer struct {
	opPrefix string
	cl       ProducerClient
	encoder  Encoder
}

func (p producer) close() {
	const op = "close"
	log := slog.With("op", makeOp(p.opPrefix, op))
	log.Info("closing producer...")
	p.cl.Close()
	log.Info("producer is closed")
}

func (p producer) record(key string, s any) (*kgo.Record, error) {
	const op = "record"

	b, err := p.encoder.Encode(s)
	if err != nil {
		return nil, opErr(err, p.opPrefix, op)
	}
	return &kgo.Record{Key: []byte(key), Value: b}, nil
}

func (p producer) produce(ctx context.Context, rs ...*kgo.Record) error {
	const op = "produce"

	res := p.cl.ProduceSync(ctx, rs...)
	if err := res.FirstErr(); err != nil {
		return opErr(err, p.opPrefix, op)
	}
	return nil
}

// A StockEventsProducer publishes stock moves keyed by product id, so events
// of one product keep their order.
type StockEventsProducer struct {
	producer producer
}

func NewStockEventsProducer(opts ...ProducerOpt) (StockEventsProducer, error) {
	const op = "NewStockEventsProducer"

	var options producerOpts
	if err := options.apply(opts); err != nil {
		return StockEventsProducer{}, opErr(err, op)
	}

	return StockEventsProducer{producer{
		opPrefix: "StockEventsProducer",
		cl:       options.cl,
		encoder:  options.encoder,
	}}, nil
}

func (p StockEventsProducer) Close() {
	p.producer.close()
}

func (p StockEventsProducer) PublishStockEvents(
	ctx context.Context, evts []domain.StockEvent,
) error {
	const op = "PublishStockEvents"

	if err := ctx.Err(); err != nil {
		return opErr(err, p.producer.opPrefix, op)
	}
	if len(evts) == 0 {
		return nil
	}

	rs := make([]*kgo.Record, 0, len(evts))
	for _, e := range evts {
		r, err := p.producer.record(e.ProductID, stockEventToSchemaV1(e))
		if err != nil {
			return opErr(err, p.producer.opPrefix, op)
		}
		rs = append(rs, r)
	}

	if err := p.producer.produce(ctx, rs...); err != nil {
		return opErr(err, p.producer.opPrefix, op)
	}
	return nil
}

type CatalogChangesProducer struct {
	producer producer
}

func NewCatalogChangesProducer(opts ...ProducerOpt) (CatalogChangesProducer, error) {
	const op = "NewCatalogChangesProducer"

	var options producerOpts
	if err := options.apply(opts); err != nil {
		return CatalogChangesProducer{}, opErr(err, op)
	}

	return CatalogChangesProducer{producer{
		opPrefix: "CatalogChangesProducer",
		cl:       options.cl,
		encoder:  options.encoder,
	}}, nil
}

func (p CatalogChangesProducer) Close() {
	p.producer.close()
}

func (p CatalogChangesProducer) PublishCatalogChange(
	ctx context.Context, c domain.CatalogChange,
) error {
	const op = "PublishCatalogChange"

	if err := ctx.Err(); err != nil {
		return opErr(err, p.producer.opPrefix, op)
	}

	r, err := p.producer.record(c.ProductID, catalogChangeToSchemaV1(c))
	if err != nil {
		return opErr(err, p.producer.opPrefix, op)
	}

	if err := p.producer.produce(ctx, r); err != nil {
		return opErr(err, p.producer.opPrefix, op)
	}
	return nil
}

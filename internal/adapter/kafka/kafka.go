package kafka

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/IBM/sarama"
	"github.com/lovoo/goka"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/pkg/schema"
	"github.com/twmb/franz-go/pkg/kgo"
)

var (
	ErrTooFewOpts       = errors.New("too few options")
	ErrInvalidValueType = errors.New("invalid value type")
)

type ProducerClient interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

type ConsumerClient interface {
	PollFetches(context.Context) kgo.Fetches
	CommitUncommittedOffsets(context.Context) error
	Close()
}

type Encoder interface {
	Encode(v any) ([]byte, error)
}

type Decoder interface {
	Decode(b []byte, v any) error
}

type Serde interface {
	Encoder
	Decoder
}

// ClientOpts are the franz-go options shared by producers and consumers.
func ClientOpts(seedBrokers []string, tlsConfig *tls.Config) []kgo.Opt {
	opts := []kgo.Opt{kgo.SeedBrokers(seedBrokers...)}
	if tlsConfig != nil {
		opts = append(opts, kgo.DialTLSConfig(tlsConfig))
	}
	return opts
}

// ConfigureGoka replaces the global sarama config used by goka processors
// and views. It must be called before any of them is created.
func ConfigureGoka(tlsConfig *tls.Config) {
	cfg := goka.DefaultConfig()
	cfg.Version = sarama.V2_8_0_0
	if tlsConfig != nil {
		cfg.Net.TLS.Enable = true
		cfg.Net.TLS.Config = tlsConfig
	}
	goka.ReplaceGlobalConfig(cfg)
}

func withNonlogProcOpt() goka.ProcessorOption {
	return goka.WithLogger(log.New(io.Discard, "", 0))
}

func withNonlogViewOpt() goka.ViewOption {
	return goka.WithViewLogger(log.New(io.Discard, "", 0))
}

func makeOp(s ...string) string {
	return strings.Join(s, ".")
}

func opErr(err error, op ...string) error {
	return fmt.Errorf("%s: %w", makeOp(op...), err)
}

func stockEventToSchemaV1(v domain.StockEvent) schema.StockEventV1 {
	return schema.StockEventV1{
		ProductID:  v.ProductID,
		Delta:      int64(v.Delta),
		Reason:     string(v.Reason),
		Available:  int64(v.Available),
		OccurredAt: v.OccurredAt,
	}
}

func catalogChangeToSchemaV1(v domain.CatalogChange) schema.CatalogChangeV1 {
	return schema.CatalogChangeV1{ProductID: v.ProductID, Kind: v.Kind}
}

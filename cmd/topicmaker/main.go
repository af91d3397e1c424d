package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lovoo/goka"
	"github.com/niksmo/storefront/config"
	"github.com/niksmo/storefront/internal/adapter"
	"github.com/niksmo/storefront/internal/adapter/kafka"
	"github.com/niksmo/storefront/pkg/sigctx"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
)

const (
	partitions        = 3
	replicationFactor = 3
	cleanupDelete     = "delete"
	cleanupCompact    = "compact"
)

type topicSet struct {
	cleanupPolicy string
	topics        []string
}

func main() {
	sigCtx, stop := sigctx.NotifyContext()
	defer stop()

	cfg := config.Load()

	cl, err := createClient(cfg)
	if err != nil {
		printFail(err)
		return
	}
	defer cl.Close()

	sets := []topicSet{
		{cleanupDelete, []string{
			cfg.Broker.Topics.StockEvents,
			cfg.Broker.Topics.CatalogChanges,
		}},
		{cleanupCompact, []string{
			groupTable(cfg.Broker.Consumers.ReservationLedgerGroup),
		}},
	}

	printStart(sets)
	defer printComplete(time.Now())

	for _, s := range sets {
		if err := makeTopics(sigCtx, cl, s); err != nil {
			printFail(err)
			return
		}
	}
}

func createClient(cfg config.Config) (*kadm.Client, error) {
	t := cfg.Broker.TLS
	tlsConfig, err := adapter.MakeTLSConfig(t.CA, t.Cert, t.Key)
	if err != nil {
		return nil, err
	}
	return kadm.NewOptClient(kafka.ClientOpts(cfg.Broker.SeedBrokers, tlsConfig)...)
}

func makeTopics(ctx context.Context, cl *kadm.Client, s topicSet) error {
	minISR := "2"
	cleanupPolicy := s.cleanupPolicy

	configs := map[string]*string{
		"cleanup.policy":      &cleanupPolicy,
		"min.insync.replicas": &minISR,
	}

	responses, err := cl.CreateTopics(
		ctx, partitions, replicationFactor, configs, s.topics...,
	)
	if err != nil {
		return err
	}

	var errs []error
	for _, res := range responses.Sorted() {
		switch {
		case errors.Is(res.Err, kerr.TopicAlreadyExists):
			fmt.Printf("topic: %q already exists\n", res.Topic)
		case res.Err != nil:
			errs = append(errs, fmt.Errorf("topic %q: %w", res.Topic, res.Err))
		default:
			fmt.Printf("topic: %q successfully created\n", res.Topic)
		}
	}
	return errors.Join(errs...)
}

func printStart(sets []topicSet) {
	fmt.Println("initializing topics...")
	for _, s := range sets {
		for _, t := range s.topics {
			fmt.Printf("\t- %q (%s)\n", t, s.cleanupPolicy)
		}
	}
	fmt.Println()
}

func printComplete(start time.Time) {
	fmt.Printf("\ncomplete in %s\n", time.Since(start))
}

func printFail(err error) {
	fmt.Printf("failed to create topics: \n%s\n", err)
}

// groupTable is the compacted topic goka keeps a group's table in.
func groupTable(group string) string {
	return string(goka.GroupTable(goka.Group(group)))
}

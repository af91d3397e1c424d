package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

type MockSerde struct {
	mock.Mock
}

func (m *MockSerde) Encode(v any) ([]byte, error) {
	args := m.Called(v)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *MockSerde) Decode(data []byte, v any) error {
	return m.Called(data, v).Error(0)
}

type MockProducerClient struct {
	mock.Mock
}

func (m *MockProducerClient) ProduceSync(
	ctx context.Context, rs ...*kgo.Record,
) kgo.ProduceResults {
	args := m.Called(ctx, rs)
	if err := args.Error(0); err != nil {
		return kgo.ProduceResults{{Err: err}}
	}
	res := make(kgo.ProduceResults, len(rs))
	for i, r := range rs {
		res[i].Record = r
	}
	return res
}

func (m *MockProducerClient) Close() {
	m.Called()
}

type MockConsumerClient struct {
	mock.Mock
}

func (m *MockConsumerClient) PollFetches(ctx context.Context) kgo.Fetches {
	return m.Called(ctx).Get(0).(kgo.Fetches)
}

func (m *MockConsumerClient) CommitUncommittedOffsets(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockConsumerClient) Close() {
	m.Called()
}

type MockCatalogLoader struct {
	mock.Mock
}

func (m *MockCatalogLoader) LoadCatalog(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func fetchesOf(values ...string) kgo.Fetches {
	rs := make([]*kgo.Record, len(values))
	for i, v := range values {
		rs[i] = &kgo.Record{Value: []byte(v), Offset: int64(i)}
	}
	return kgo.Fetches{{Topics: []kgo.FetchTopic{{
		Topic:      "catalog-changes",
		Partitions: []kgo.FetchPartition{{Records: rs}},
	}}}}
}

func TestStockEventsProducer(t *testing.T) {
	t.Run("TooFewOpts", func(t *testing.T) {
		_, err := NewStockEventsProducer(ProducerEncoderOpt(new(MockSerde)))
		require.ErrorIs(t, err, ErrTooFewOpts)
	})

	t.Run("Publish", func(t *testing.T) {
		cl := new(MockProducerClient)
		serde := new(MockSerde)
		p, err := NewStockEventsProducer(
			ProducerWithClientOpt(cl), ProducerEncoderOpt(serde),
		)
		require.NoError(t, err)

		at := time.Now()
		evts := []domain.StockEvent{
			{ProductID: "p1", Delta: -1, Reason: domain.StockReserve, Available: 2, OccurredAt: at},
			{ProductID: "p2", Delta: 3, Reason: domain.StockClear, Available: 3, OccurredAt: at},
		}
		serde.On("Encode", schema.StockEventV1{
			ProductID: "p1", Delta: -1, Reason: "reserve", Available: 2, OccurredAt: at,
		}).Return([]byte("e1"), nil)
		serde.On("Encode", schema.StockEventV1{
			ProductID: "p2", Delta: 3, Reason: "clear", Available: 3, OccurredAt: at,
		}).Return([]byte("e2"), nil)

		var produced []*kgo.Record
		cl.On("ProduceSync", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { produced = args.Get(1).([]*kgo.Record) }).
			Return(nil)

		require.NoError(t, p.PublishStockEvents(t.Context(), evts))
		require.Len(t, produced, 2)
		assert.Equal(t, "p1", string(produced[0].Key))
		assert.Equal(t, "e1", string(produced[0].Value))
		assert.Equal(t, "p2", string(produced[1].Key))
	})

	t.Run("NothingToPublish", func(t *testing.T) {
		cl := new(MockProducerClient)
		p, err := NewStockEventsProducer(
			ProducerWithClientOpt(cl), ProducerEncoderOpt(new(MockSerde)),
		)
		require.NoError(t, err)

		require.NoError(t, p.PublishStockEvents(t.Context(), nil))
		cl.AssertNotCalled(t, "ProduceSync", mock.Anything, mock.Anything)
	})

	t.Run("BrokerError", func(t *testing.T) {
		cl := new(MockProducerClient)
		serde := new(MockSerde)
		p, err := NewStockEventsProducer(
			ProducerWithClientOpt(cl), ProducerEncoderOpt(serde),
		)
		require.NoError(t, err)

		serde.On("Encode", mock.Anything).Return([]byte("e"), nil)
		cl.On("ProduceSync", mock.Anything, mock.Anything).Return(errors.New("not leader"))

		err = p.PublishStockEvents(t.Context(), []domain.StockEvent{{ProductID: "p1"}})
		require.ErrorContains(t, err, "not leader")
	})
}

func TestCatalogChangesProducer(t *testing.T) {
	cl := new(MockProducerClient)
	serde := new(MockSerde)
	p, err := NewCatalogChangesProducer(
		ProducerWithClientOpt(cl), ProducerEncoderOpt(serde),
	)
	require.NoError(t, err)

	serde.On("Encode", schema.CatalogChangeV1{ProductID: "p1", Kind: "deleted"}).
		Return(nil, errors.New("bad enum"))

	err = p.PublishCatalogChange(t.Context(), domain.CatalogChange{ProductID: "p1", Kind: "deleted"})
	require.ErrorContains(t, err, "bad enum")
	cl.AssertNotCalled(t, "ProduceSync", mock.Anything, mock.Anything)

	cl.On("Close").Return()
	p.Close()
	cl.AssertExpectations(t)
}

func newTestConsumer(
	t *testing.T,
) (*CatalogChangesConsumer, *MockConsumerClient, *MockSerde, *MockCatalogLoader) {
	t.Helper()
	cl := new(MockConsumerClient)
	serde := new(MockSerde)
	loader := new(MockCatalogLoader)
	c, err := NewCatalogChangesConsumer(
		ConsumerWithClientOpt(cl),
		ConsumerDecoderOpt(serde),
		ConsumerCatalogLoaderOpt(loader),
	)
	require.NoError(t, err)
	return c, cl, serde, loader
}

func TestCatalogChangesConsumer(t *testing.T) {
	t.Run("TooFewOpts", func(t *testing.T) {
		_, err := NewCatalogChangesConsumer(ConsumerDecoderOpt(new(MockSerde)))
		require.ErrorIs(t, err, ErrTooFewOpts)
	})

	t.Run("OneReloadPerBatch", func(t *testing.T) {
		c, cl, serde, loader := newTestConsumer(t)
		cl.On("PollFetches", mock.Anything).Return(fetchesOf("a", "b", "broken"))
		cl.On("CommitUncommittedOffsets", mock.Anything).Return(nil)
		serde.On("Decode", []byte("a"), mock.Anything).Return(nil)
		serde.On("Decode", []byte("b"), mock.Anything).Return(nil)
		serde.On("Decode", []byte("broken"), mock.Anything).Return(errors.New("bad magic"))
		loader.On("LoadCatalog", mock.Anything).Return(nil)

		require.NoError(t, c.consumer.consume(t.Context()))
		loader.AssertNumberOfCalls(t, "LoadCatalog", 1)
		cl.AssertCalled(t, "CommitUncommittedOffsets", mock.Anything)
	})

	t.Run("ReloadFailureSkipsCommit", func(t *testing.T) {
		c, cl, serde, loader := newTestConsumer(t)
		cl.On("PollFetches", mock.Anything).Return(fetchesOf("a"))
		serde.On("Decode", mock.Anything, mock.Anything).Return(nil)
		loader.On("LoadCatalog", mock.Anything).Return(domain.ErrDataSource)

		err := c.consumer.consume(t.Context())
		require.ErrorIs(t, err, domain.ErrDataSource)
		cl.AssertNotCalled(t, "CommitUncommittedOffsets", mock.Anything)
	})

	t.Run("EmptyFetches", func(t *testing.T) {
		c, cl, _, loader := newTestConsumer(t)
		cl.On("PollFetches", mock.Anything).Return(kgo.Fetches{})

		require.NoError(t, c.consumer.consume(t.Context()))
		loader.AssertNotCalled(t, "LoadCatalog", mock.Anything)
	})

	t.Run("RunStopsOnCancel", func(t *testing.T) {
		c, cl, _, _ := newTestConsumer(t)
		ctx, cancel := context.WithCancel(t.Context())
		cl.On("PollFetches", mock.Anything).
			Run(func(mock.Arguments) { cancel() }).
			Return(kgo.Fetches{})

		done := make(chan struct{})
		go func() {
			c.Run(ctx)
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("consumer did not stop")
		}
	})
}

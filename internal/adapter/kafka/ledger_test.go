package kafka

import (
	"testing"

	"github.com/niksmo/storefront/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyStockEvent(t *testing.T) {
	tests := []struct {
		name    string
		current reserved
		delta   int64
		want    reserved
		wantOK  bool
	}{
		{"Reserve", 0, -1, 1, true},
		{"ReserveMore", 2, -3, 5, true},
		{"Release", 5, 5, 0, true},
		{"PartialRelease", 5, 2, 3, true},
		{"OverRelease", 1, 3, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := applyStockEvent(tt.current, schema.StockEventV1{Delta: tt.delta})
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestApplyStockEventReloads(t *testing.T) {
	events := []schema.StockEventV1{
		{Delta: -1, Reason: "reserve"},
		{Delta: -1, Reason: "reserve"},
		{Delta: 2, Reason: "reapply"},
		{Delta: -2, Reason: "reapply"},
		{Delta: 2, Reason: "reapply"},
		{Delta: -1, Reason: "reapply"},
	}

	var current reserved
	for _, e := range events {
		next, ok := applyStockEvent(current, e)
		require.True(t, ok)
		current = next
	}
	assert.Equal(t, reserved(1), current)
}

func TestReservedCodec(t *testing.T) {
	var c reservedCodec

	data, err := c.Encode(reserved(42))
	require.NoError(t, err)
	assert.Equal(t, "42", string(data))

	v, err := c.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, reserved(42), v)

	_, err = c.Encode(42)
	require.ErrorIs(t, err, ErrInvalidValueType)

	_, err = c.Decode([]byte("x"))
	require.Error(t, err)
}

func TestStockEventCodec(t *testing.T) {
	serde := new(MockSerde)
	c := stockEventCodec{serde}

	_, err := c.Encode("not an event")
	require.ErrorIs(t, err, ErrInvalidValueType)

	ev := schema.StockEventV1{ProductID: "p1", Delta: -1}
	serde.On("Encode", ev).Return([]byte("bin"), nil)
	data, err := c.Encode(ev)
	require.NoError(t, err)
	assert.Equal(t, []byte("bin"), data)
}

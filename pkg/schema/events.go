package schema

import "time"

const StockEventSchemaTextV1 = `{
	"type": "record",
	"namespace": "storefront",
	"name": "stock_event",
	"fields": [
		{"name": "product_id", "type": "string"},
		{"name": "delta", "type": "long"},
		{"name": "reason", "type": "string"},
		{"name": "available", "type": "long"},
		{"name": "occurred_at", "type": {"type": "long", "logicalType": "timestamp-millis"}}
	]
}`

const CatalogChangeSchemaTextV1 = `{
	"type": "record",
	"namespace": "storefront",
	"name": "catalog_change",
	"fields": [
		{"name": "product_id", "type": "string"},
		{"name": "kind", "type": {"type": "enum", "name": "change_kind", "symbols": ["created", "updated", "deleted"]}}
	]
}`

// StockEventV1 records one stock move. Delta is negative when units were
// reserved by a cart.
type StockEventV1 struct {
	ProductID  string    `avro:"product_id"`
	Delta      int64     `avro:"delta"`
	Reason     string    `avro:"reason"`
	Available  int64     `avro:"available"`
	OccurredAt time.Time `avro:"occurred_at"`
}

type CatalogChangeV1 struct {
	ProductID string `avro:"product_id"`
	Kind      string `avro:"kind"`
}

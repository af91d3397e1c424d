package schema

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/sr"
)

// SchemaIdentifier resolves the registry id of a schema under subject.
type SchemaIdentifier interface {
	DetermineID(ctx context.Context, subject string, avroSchemaText string) (int, error)
}

// Registry registers schemas in a Confluent compatible schema registry.
type Registry struct {
	client *sr.Client
}

var _ SchemaIdentifier = (*Registry)(nil)

func NewRegistry(urls ...string) (*Registry, error) {
	const op = "schema.NewRegistry"

	client, err := sr.NewClient(sr.URLs(urls...))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Registry{client: client}, nil
}

// DetermineID registers the schema text and returns its id. The registry
// returns the existing id when the schema is already known.
func (r *Registry) DetermineID(
	ctx context.Context, subject string, avroSchemaText string,
) (int, error) {
	const op = "Registry.DetermineID"

	ss, err := r.client.CreateSchema(ctx, subject, sr.Schema{
		Schema: avroSchemaText,
		Type:   sr.TypeAvro,
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return ss.ID, nil
}

// ValueSubject is the subject name of a topic's value schema.
func ValueSubject(topic string) string {
	return topic + "-value"
}

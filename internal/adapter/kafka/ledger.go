package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/lovoo/goka"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/niksmo/storefront/pkg/schema"
)

var _ port.ReservationLedgerProcessor = (*ReservationLedgerProcessor)(nil)
var _ port.ReservationLedger = (*ReservationLedgerView)(nil)

var ErrLedgerNotReady = errors.New("ledger is recovering")

// A stockEventCodec used for serde [schema.StockEventV1]
type stockEventCodec struct {
	serde Serde
}

func (c stockEventCodec) Encode(v any) ([]byte, error) {
	const op = "stockEventCodec.Encode"
	if _, ok := v.(schema.StockEventV1); !ok {
		return nil, opErr(ErrInvalidValueType, op)
	}
	return c.serde.Encode(v)
}

func (c stockEventCodec) Decode(data []byte) (any, error) {
	const op = "stockEventCodec.Decode"
	var s schema.StockEventV1
	if err := c.serde.Decode(data, &s); err != nil {
		return nil, opErr(err, op)
	}
	return s, nil
}

// reserved is the number of units a product has in carts.
type reserved int64

// A reservedCodec used for serde [reserved]
type reservedCodec struct{}

func (reservedCodec) Encode(v any) ([]byte, error) {
	const op = "reservedCodec.Encode"
	n, ok := v.(reserved)
	if !ok {
		return nil, opErr(ErrInvalidValueType, op)
	}
	return strconv.AppendInt(nil, int64(n), 10), nil
}

func (reservedCodec) Decode(data []byte) (any, error) {
	const op = "reservedCodec.Decode"
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return nil, opErr(err, op)
	}
	return reserved(n), nil
}

// applyStockEvent returns the reserved units after e. A reservation takes
// units out of stock, so reserved grows by -Delta. The result never drops
// below zero; ok is false when it had to be clamped.
func applyStockEvent(current reserved, e schema.StockEventV1) (next reserved, ok bool) {
	next = current - reserved(e.Delta)
	if next < 0 {
		return 0, false
	}
	return next, true
}

// A ReservationLedgerProcessor keeps per product reserved units in a goka
// group table fed by the stock events stream.
type ReservationLedgerProcessor struct {
	opPrefix string
	gp       *goka.Processor
}

func NewReservationLedgerProcessor(
	seedBrokers []string, stockEventsTopic, group string, stockEventSerde Serde,
) (*ReservationLedgerProcessor, error) {
	const op = "NewReservationLedgerProcessor"

	p := &ReservationLedgerProcessor{opPrefix: "ReservationLedgerProcessor"}

	gg := goka.DefineGroup(goka.Group(group),
		goka.Input(
			goka.Stream(stockEventsTopic),
			stockEventCodec{stockEventSerde},
			p.processFn,
		),
		goka.Persist(reservedCodec{}),
	)

	gp, err := goka.NewProcessor(seedBrokers, gg, withNonlogProcOpt())
	if err != nil {
		return nil, opErr(err, op)
	}
	p.gp = gp
	return p, nil
}

// Run blocks until ctx is done or the processor fails.
func (p *ReservationLedgerProcessor) Run(ctx context.Context) {
	const op = "Run"
	log := slog.With("op", makeOp(p.opPrefix, op))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("preparing...")
		if err := p.gp.WaitForReadyContext(ctx); err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Error("fall down while preparing", "err", err)
			}
			return
		}
		log.Info("running")
	}()

	if err := p.gp.Run(ctx); err != nil {
		log.Error("stopped", "err", err)
	} else {
		log.Info("stopped")
	}
	wg.Wait()
}

func (p *ReservationLedgerProcessor) Close() {
	const op = "Close"
	log := slog.With("op", makeOp(p.opPrefix, op))

	log.Info("closing processor...")
	p.gp.Stop()
	log.Info("processor is closed")
}

func (p *ReservationLedgerProcessor) processFn(ctx goka.Context, msg any) {
	const op = "processFn"

	event, ok := msg.(schema.StockEventV1)
	if !ok {
		slog.Error("unexpected message type",
			"op", makeOp(p.opPrefix, op), "type", fmt.Sprintf("%T", msg))
		return
	}
	log := slog.With("op", makeOp(p.opPrefix, op), "productID", event.ProductID)

	current, _ := ctx.Value().(reserved)
	next, ok := applyStockEvent(current, event)
	if !ok {
		log.Warn("release exceeds recorded reservations",
			"reserved", current, "delta", event.Delta)
	}
	ctx.SetValue(next)
	log.Debug("reservation recorded",
		"reason", event.Reason, "delta", event.Delta, "reserved", next)
}

// A ReservationLedgerView serves reads of the ledger group table.
type ReservationLedgerView struct {
	opPrefix string
	gv       *goka.View
}

func NewReservationLedgerView(
	seedBrokers []string, group string,
) (*ReservationLedgerView, error) {
	const op = "NewReservationLedgerView"

	gv, err := goka.NewView(
		seedBrokers,
		goka.GroupTable(goka.Group(group)),
		reservedCodec{},
		withNonlogViewOpt(),
	)
	if err != nil {
		return nil, opErr(err, op)
	}
	return &ReservationLedgerView{opPrefix: "ReservationLedgerView", gv: gv}, nil
}

func (v *ReservationLedgerView) Run(ctx context.Context) {
	const op = "Run"
	log := slog.With("op", makeOp(v.opPrefix, op))

	log.Info("running")
	if err := v.gv.Run(ctx); err != nil {
		log.Error("unexpected fail on run", "err", err)
		return
	}
	log.Info("stopped")
}

// Reserved returns the units of productID held in carts. Unknown products
// have zero reserved units.
func (v *ReservationLedgerView) Reserved(ctx context.Context, productID string) (int, error) {
	const op = "Reserved"

	if err := ctx.Err(); err != nil {
		return 0, opErr(err, v.opPrefix, op)
	}
	if !v.gv.Recovered() {
		return 0, opErr(ErrLedgerNotReady, v.opPrefix, op)
	}

	val, err := v.gv.Get(productID)
	if err != nil {
		return 0, opErr(err, v.opPrefix, op)
	}
	if val == nil {
		return 0, nil
	}

	n, ok := val.(reserved)
	if !ok {
		return 0, opErr(fmt.Errorf("%w: %T", ErrInvalidValueType, val), v.opPrefix, op)
	}
	return int(n), nil
}

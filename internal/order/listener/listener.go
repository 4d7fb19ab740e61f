package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/order"
	"github.com/fekuna/omnipos-stock-service/internal/order/dto"
	orderUC "github.com/fekuna/omnipos-stock-service/internal/order/usecase"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/broker"
	"go.uber.org/zap"
)

// OrderListener consumes the POS event stream and drives the reservation
// engine. The POS side owns order/session identity; this side only reacts.
type OrderListener struct {
	consumer *broker.KafkaConsumer
	uc       order.UseCase
	logger   *zap.Logger
}

func NewOrderListener(consumer *broker.KafkaConsumer, uc order.UseCase, log *zap.Logger) *OrderListener {
	return &OrderListener{consumer: consumer, uc: uc, logger: log}
}

func (l *OrderListener) Start(ctx context.Context) {
	l.logger.Info("Starting POS event listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping POS event listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type posEvent struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

type orderCreatedPayload struct {
	OrderID   string `json:"order_id"`
	BranchID  string `json:"branch_id"`
	SessionID string `json:"session_id"`
	Items     []struct {
		LineID    string  `json:"line_id"`
		ProductID string  `json:"product_id"`
		VariantID *string `json:"variant_id"`
		Quantity  float64 `json:"quantity"`
	} `json:"items"`
}

type orderRefPayload struct {
	OrderID        string   `json:"order_id"`
	RemovedLineIDs []string `json:"removed_line_ids"`
}

type sessionPayload struct {
	SessionID string `json:"session_id"`
}

func (l *OrderListener) processMessage(ctx context.Context, value []byte) {
	var event posEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	var err error
	switch event.EventType {
	case "OrderCreated":
		err = l.handleOrderCreated(ctx, event.Payload)
	case "OrderCompleted":
		err = l.withOrderRef(ctx, event.Payload, func(p *orderRefPayload) error {
			return l.uc.CompleteOrder(ctx, p.OrderID, orderUC.SystemActor)
		})
	case "OrderCancelled":
		err = l.withOrderRef(ctx, event.Payload, func(p *orderRefPayload) error {
			return l.uc.CancelOrder(ctx, p.OrderID, orderUC.SystemActor)
		})
	case "OrderEdited":
		err = l.withOrderRef(ctx, event.Payload, func(p *orderRefPayload) error {
			return l.uc.EditOrder(ctx, &dto.EditOrderInput{
				OrderID:        p.OrderID,
				RemovedLineIDs: p.RemovedLineIDs,
				ActorID:        orderUC.SystemActor,
			})
		})
	case "SessionClosed":
		err = l.handleSessionClosed(ctx, event.Payload)
	default:
		return
	}

	if err != nil {
		l.logger.Error("Failed to process POS event",
			zap.String("event_id", event.EventID),
			zap.String("event_type", event.EventType),
			zap.Error(err),
		)
	}
}

func (l *OrderListener) handleOrderCreated(ctx context.Context, raw json.RawMessage) error {
	var p orderCreatedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}

	in := &dto.CreateOrderInput{
		OrderID:   p.OrderID,
		BranchID:  p.BranchID,
		SessionID: p.SessionID,
		ActorID:   orderUC.SystemActor,
	}
	for _, item := range p.Items {
		in.Lines = append(in.Lines, dto.OrderLineInput{
			LineID:    item.LineID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}

	l.logger.Info("Processing OrderCreated event", zap.String("order_id", p.OrderID))
	return l.uc.CreateOrderReservation(ctx, in)
}

func (l *OrderListener) withOrderRef(ctx context.Context, raw json.RawMessage, fn func(*orderRefPayload) error) error {
	var p orderRefPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	return fn(&p)
}

func (l *OrderListener) handleSessionClosed(ctx context.Context, raw json.RawMessage) error {
	var p sessionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	n, err := l.uc.CloseSession(ctx, p.SessionID)
	if err != nil {
		return err
	}
	if n > 0 {
		l.logger.Info("Session closure wasted pending decisions",
			zap.String("session_id", p.SessionID),
			zap.Int("entries", n),
		)
	}
	return nil
}

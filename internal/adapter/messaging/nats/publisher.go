package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/logger"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// SubjectPrefix namespaces every listing event, e.g. annonce.image.orphaned.
const SubjectPrefix = "annonce."

var tracer = otel.Tracer("annonce-service/events")

type msgPublisher interface {
	PublishMsg(msg *nats.Msg) error
}

// Publisher emits listing events as JSON with the trace context in the
// message headers. Events are fire-and-forget: nothing in this service
// consumes them.
type Publisher struct {
	conn   *nats.Conn
	pub    msgPublisher
	logger *logger.Logger
}

func NewPublisher(url string, log *logger.Logger, serviceName string) (*Publisher, error) {
	log = log.Named("EventPublisher")
	conn, err := nats.Connect(url,
		nats.Name(serviceName),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("Event bus disconnected, events are dropped until reconnect", zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect event bus %s: %w", url, err)
	}
	log.Info("Event bus connected", zap.String("url", conn.ConnectedUrl()))
	return &Publisher{conn: conn, pub: conn, logger: log}, nil
}

// Publish sends event under SubjectPrefix+subject.
func (p *Publisher) Publish(ctx context.Context, subject string, event interface{}) error {
	subject = SubjectPrefix + subject
	ctx, span := tracer.Start(ctx, "Publisher.Publish",
		oteltrace.WithSpanKind(oteltrace.SpanKindProducer),
		oteltrace.WithAttributes(attribute.String("messaging.destination", subject)))
	defer span.End()

	body, err := json.Marshal(event)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("encode %s event: %w", subject, err)
	}

	msg := nats.NewMsg(subject)
	msg.Data = body
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier(msg.Header))

	if err := p.pub.PublishMsg(msg); err != nil {
		span.RecordError(err)
		p.logger.Warn("Event not published", zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("publish %s event: %w", subject, err)
	}
	return nil
}

// headerCarrier lets the otel propagator write into nats headers.
type headerCarrier nats.Header

func (c headerCarrier) Get(key string) string { return nats.Header(c).Get(key) }

func (c headerCarrier) Set(key, value string) { nats.Header(c).Set(key, value) }

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// Close flushes pending events and closes the connection.
func (p *Publisher) Close() {
	if p.conn == nil || p.conn.IsClosed() {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("Event bus drain failed", zap.Error(err))
	}
}

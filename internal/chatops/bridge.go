package chatops

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/repscan/app-scanner/internal/scan"
)

// Queue names for the chat bridge.
const (
	RequestQueue = "chat.scan.requests"
	ReplyQueue   = "chat.scan.replies"
)

// URLScanner is the slice of the orchestrator the bridge needs. Defined
// here so the bridge can be tested with a fake scanner.
type URLScanner interface {
	ScanURL(ctx context.Context, rawurl string) (*scan.Result, error)
}

// Bridge consumes chat scan requests and publishes replies.
type Bridge struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	scanner URLScanner
	logger  *zap.Logger
}

// NewBridge connects to the broker and declares the request and reply
// queues.
func NewBridge(amqpURL string, scanner URLScanner, logger *zap.Logger) (*Bridge, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	for _, queue := range []string{RequestQueue, ReplyQueue} {
		if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			channel.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
		}
	}

	return &Bridge{
		conn:    conn,
		channel: channel,
		scanner: scanner,
		logger:  logger,
	}, nil
}

// Listen consumes scan requests until the context is cancelled. Each
// delivery is handled in its own goroutine; the consumer loop never waits
// for a scan to finish, so a slow provider cannot back up the queue.
func (b *Bridge) Listen(ctx context.Context) error {
	deliveries, err := b.channel.Consume(RequestQueue, "", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	b.logger.Info("Chat bridge listening", zap.String("queue", RequestQueue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			go b.handleDelivery(ctx, delivery.Body)
		}
	}
}

// handleDelivery runs one request end to end and publishes the reply. All
// failure paths end here; they are logged and never re-raised.
func (b *Bridge) handleDelivery(ctx context.Context, body []byte) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Chat scan handler panicked", zap.Any("panic", r))
		}
	}()

	reply, err := b.BuildReply(ctx, body)
	if err != nil {
		b.logger.Warn("Dropping chat scan request", zap.Error(err))
		return
	}

	if err := b.publish(reply); err != nil {
		b.logger.Error("Failed to publish chat scan reply",
			zap.String("request_id", reply.RequestID),
			zap.Error(err))
	}
}

// BuildReply parses a request payload, runs the scan and builds the reply
// message. It returns an error only for payloads that cannot be answered
// at all (malformed or invalid); scan failures become error replies so the
// channel hears back either way.
func (b *Bridge) BuildReply(ctx context.Context, body []byte) (*ScanReply, error) {
	var req ScanRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("malformed scan request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scan request: %w", err)
	}

	b.logger.Info("Chat scan request received",
		zap.String("request_id", req.RequestID),
		zap.String("channel_id", req.ChannelID),
		zap.String("url", req.URL))

	result, err := b.scanner.ScanURL(ctx, req.URL)
	if err != nil {
		return NewScanErrorReply(&req, err), nil
	}
	return NewScanReply(&req, result), nil
}

func (b *Bridge) publish(reply *ScanReply) error {
	data, err := reply.ToJSON()
	if err != nil {
		return err
	}
	return b.channel.Publish("", ReplyQueue, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        data,
	})
}

// Close closes the channel and connection.
func (b *Bridge) Close() error {
	if b.channel != nil {
		b.channel.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

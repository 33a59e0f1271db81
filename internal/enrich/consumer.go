package enrich

import (
	"context"
	"errors"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/wishlane/wishlane-backend/pkg/logger"
)

// Consumer drains enrichment jobs from the broker subscription and runs the
// pipeline for each.
type Consumer struct {
	pipeline     *Pipeline
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

// NewConsumer constructs a consumer watching the provided subscription.
func NewConsumer(pipeline *Pipeline, subscription *pubsub.Subscriber, logg *logger.Logger) (*Consumer, error) {
	if pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if subscription == nil {
		return nil, errors.New("enrich subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		pipeline:     pipeline,
		subscription: subscription,
		logg:         logg,
	}, nil
}

// Run processes messages until the context is canceled or the subscription
// errors.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	logCtx := c.logg.WithField(ctx, "message_id", msg.ID)

	job, err := DecodeJob(msg.Data)
	if err != nil {
		// Malformed payloads can never succeed on redelivery.
		c.logg.Error(logCtx, "dropping undecodable enrichment job", err)
		return processResult{ack: true}
	}

	logCtx = c.logg.WithItemID(logCtx, job.ItemID.String())
	if err := c.pipeline.Run(logCtx, job); err != nil {
		if isTransient(err) {
			c.logg.Warn(logCtx, "enrichment run hit a transient failure, requeueing: "+err.Error())
			return processResult{nack: true}
		}
		c.logg.Error(logCtx, "enrichment run could not start", err)
		return processResult{ack: true}
	}

	return processResult{ack: true}
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

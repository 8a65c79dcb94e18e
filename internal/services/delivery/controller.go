package delivery

import (
	"context"
	"errors"

	kafkax "github.com/NordCoder/Studiobell/internal/repository/kafka"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"
)

type Consumer interface {
	Consume(ctx context.Context, h kafkax.Handler) error
}

// Controller feeds the change stream into the hub.
type Controller struct {
	Log *zap.Logger
	Sub Consumer
	Hub *Hub
}

// Handler never fails: a message that cannot be decoded is logged and committed
// so it does not stall the partition.
func (c *Controller) Handler() kafkax.Handler {
	h := kafkax.ProtoHandler(
		func() *structpb.Struct { return &structpb.Struct{} },
		func(ctx context.Context, _ []byte, ev *structpb.Struct) error {
			n, err := kafkax.DecodeNotification(ev)
			if err != nil {
				return err
			}
			c.Hub.Publish(n)
			return nil
		},
	)
	return func(ctx context.Context, key, value []byte) error {
		if err := h(ctx, key, value); err != nil {
			mPoison.Inc()
			c.Log.Warn("notification event dropped",
				zap.ByteString("key", key),
				zap.Bool("malformed", errors.Is(err, kafkax.ErrMalformed)),
				zap.Error(err))
		}
		return nil
	}
}

func (c *Controller) Run(ctx context.Context) error {
	if err := c.Sub.Consume(ctx, c.Handler()); err != nil && !errors.Is(err, context.Canceled) {
		c.Log.Warn("kafka consume", zap.Error(err))
		return err
	}
	return ctx.Err()
}

package kafka

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
)

// ErrMalformed marks a message whose value cannot be decoded. Redelivering it
// will not help.
var ErrMalformed = errors.New("malformed message")

func ProtoHandler[M proto.Message](ctor func() M, handle func(context.Context, []byte, M) error) Handler {
	return func(ctx context.Context, key, value []byte) error {
		if len(value) == 0 {
			return fmt.Errorf("%w: empty value", ErrMalformed)
		}
		msg := ctor()
		if err := proto.Unmarshal(value, msg); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return handle(ctx, key, msg)
	}
}

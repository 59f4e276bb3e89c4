package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestHookChainOrder(t *testing.T) {
	var calls []string
	mk := func(name string) ConsumerHook {
		return HookFuncs{
			Before: func(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
				calls = append(calls, "before:"+name)
				return ctx, km, append(data, name...), nil
			},
			After: func(context.Context, string, kafka.Message, []byte, error) {
				calls = append(calls, "after:"+name)
			},
		}
	}
	chain := NewHookChain(mk("a"), nil, mk("b"))

	ctx, km, data, err := chain.BeforeHandle(context.Background(), "signals", kafka.Message{}, []byte("x"))
	assert.NoError(t, err)
	chain.AfterHandle(ctx, "signals", km, data, nil)

	assert.Equal(t, "xab", string(data))
	assert.Equal(t, []string{"before:a", "before:b", "after:b", "after:a"}, calls)
}

func TestHookChainRecoversPanic(t *testing.T) {
	chain := NewHookChain(HookFuncs{
		Before: func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
			panic("boom")
		},
	})

	_, _, _, err := chain.BeforeHandle(context.Background(), "signals", kafka.Message{}, nil)
	var hookErr *HookError
	assert.True(t, errors.As(err, &hookErr))
	assert.Equal(t, "ERR_PANIC", hookErr.Code)
}

func TestTracingHookExtractsTraceID(t *testing.T) {
	km := kafka.Message{Headers: []kafka.Header{{Key: "trace_id", Value: []byte("abc")}}}
	ctx, _, _, err := TracingHook().BeforeHandle(context.Background(), "signals", km, nil)
	assert.NoError(t, err)
	assert.Equal(t, "abc", TraceIDFrom(ctx))
}

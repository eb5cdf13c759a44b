package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestAndActorRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "01HZX")
	ctx = WithActor(ctx, "user", "user-1")

	assert.Equal(t, "01HZX", RequestIDFromContext(ctx))
	actorType, actorID := ActorFromContext(ctx)
	assert.Equal(t, "user", actorType)
	assert.Equal(t, "user-1", actorID)
}

func TestEmptyContext(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(context.Background()))
	actorType, actorID := ActorFromContext(context.Background())
	assert.Empty(t, actorType)
	assert.Empty(t, actorID)
}

package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "wmoned/pkg/platform/audit"
)

func TestInMemoryStore_ListBySubject(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	require.NoError(t, store.Append(ctx, audit.Event{Action: "a", SubjectIDHash: "one"}))
	require.NoError(t, store.Append(ctx, audit.Event{Action: "b", SubjectIDHash: "two"}))
	require.NoError(t, store.Append(ctx, audit.Event{Action: "c", SubjectIDHash: "one"}))

	events, err := store.ListBySubject(ctx, "one")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].Action)
	assert.Equal(t, "c", events[1].Action)

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	store.Clear()
	all, _ = store.ListAll(ctx)
	assert.Empty(t, all)
}

package rag

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationAppendAndHistory(t *testing.T) {
	store := NewConversationStore(10)

	store.Append("s1", "first question", "first answer")
	store.Append("s1", "second question", "second answer")

	history := store.History("s1")
	require.Len(t, history, 2)
	assert.Equal(t, "first question", history[0].Question)
	assert.Equal(t, "second answer", history[1].Answer)
	assert.False(t, history[0].Timestamp.IsZero())
}

func TestConversationHistoryBound(t *testing.T) {
	store := NewConversationStore(3)

	for i := 1; i <= 5; i++ {
		store.Append("s1", fmt.Sprintf("question %d", i), fmt.Sprintf("answer %d", i))
	}

	history := store.History("s1")
	require.Len(t, history, 3)
	// Oldest turns are evicted first.
	assert.Equal(t, "question 3", history[0].Question)
	assert.Equal(t, "question 5", history[2].Question)
}

func TestConversationSessionsAreIsolated(t *testing.T) {
	store := NewConversationStore(10)

	store.Append("alice", "question a", "answer a")
	store.Append("bob", "question b", "answer b")

	require.Len(t, store.History("alice"), 1)
	require.Len(t, store.History("bob"), 1)
	assert.Equal(t, "question a", store.History("alice")[0].Question)
}

func TestConversationUnknownSession(t *testing.T) {
	store := NewConversationStore(10)
	assert.Empty(t, store.History("missing"))
}

func TestConversationClear(t *testing.T) {
	store := NewConversationStore(10)

	store.Append("s1", "question", "answer")
	store.Clear("s1")
	assert.Empty(t, store.History("s1"))

	// Clearing an unknown session is a no-op.
	store.Clear("never-existed")
}

func TestConversationHistoryReturnsCopy(t *testing.T) {
	store := NewConversationStore(10)
	store.Append("s1", "question", "answer")

	history := store.History("s1")
	history[0].Answer = "mutated"

	assert.Equal(t, "answer", store.History("s1")[0].Answer)
}

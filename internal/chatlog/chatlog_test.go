package chatlog

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecentIsBoundedAndChronological(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < DefaultDepth+5; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		require.NoError(t, store.Append(ctx, Message{Identity: "a", Role: role, Text: fmt.Sprint(i)}))
	}
	_ = store.Append(ctx, Message{Identity: "b", Role: RoleUser, Text: "other"})

	recent, err := store.Recent(ctx, "a", DefaultDepth)
	require.NoError(t, err)
	require.Len(t, recent, DefaultDepth)
	assert.Equal(t, "5", recent[0].Text, "the window holds the newest messages oldest first")
	assert.Equal(t, fmt.Sprint(DefaultDepth+4), recent[len(recent)-1].Text)
}

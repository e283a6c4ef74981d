package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sentinela-gateway/internal/domain"
)

func mustConversationStore(t *testing.T, kv *fakeKV) *ConversationStore {
	t.Helper()
	c, err := NewConversationStore(kv, discardLogger())
	require.NoError(t, err)
	return c
}

func TestConversationRead_Missing(t *testing.T) {
	c := mustConversationStore(t, newFakeKV())
	msgs, err := c.Read(context.Background(), "abc")
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestConversationAppend_KeepsLastTen(t *testing.T) {
	kv := newFakeKV()
	c := mustConversationStore(t, kv)
	ctx := context.Background()

	for i := 1; i <= 11; i++ {
		err := c.Append(ctx, "abc", domain.ChatMessage{
			Role:      domain.RoleUser,
			Content:   fmt.Sprintf("m%d", i),
			Timestamp: "2026-03-01T12:00:00.000Z",
		})
		require.NoError(t, err)
	}

	msgs, err := c.Read(ctx, "abc")
	require.NoError(t, err)
	require.Len(t, msgs, 10)
	require.Equal(t, "m2", msgs[0].Content)
	require.Equal(t, "m11", msgs[9].Content)

	last := kv.setsFor("conversation:abc")
	require.Equal(t, 2*time.Hour, last[len(last)-1].ttl)
}

func TestConversationAppend_MultipleMessagesInOrder(t *testing.T) {
	kv := newFakeKV()
	c := mustConversationStore(t, kv)
	err := c.Append(context.Background(), "abc",
		domain.ChatMessage{Role: domain.RoleUser, Content: "pergunta"},
		domain.ChatMessage{Role: domain.RoleAssistant, Content: "resposta"},
	)
	require.NoError(t, err)

	var stored []domain.ChatMessage
	require.NoError(t, json.Unmarshal([]byte(kv.values["conversation:abc"]), &stored))
	require.Len(t, stored, 2)
	require.Equal(t, domain.RoleUser, stored[0].Role)
	require.Equal(t, domain.RoleAssistant, stored[1].Role)
	require.Len(t, kv.sets, 1)
}

func TestConversationRead_CorruptBlobIsEmpty(t *testing.T) {
	kv := newFakeKV()
	kv.values["conversation:abc"] = "{not json"
	c := mustConversationStore(t, kv)
	msgs, err := c.Read(context.Background(), "abc")
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestConversationRead_DropsInvalidMessages(t *testing.T) {
	kv := newFakeKV()
	kv.values["conversation:abc"] = `[{"role":"system","content":"x"},{"role":"user","content":"ok"},{"role":"assistant","content":""}]`
	c := mustConversationStore(t, kv)
	msgs, err := c.Read(context.Background(), "abc")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "ok", msgs[0].Content)
}

func TestConversation_StoreErrors(t *testing.T) {
	kv := newFakeKV()
	kv.getErr = errors.New("timeout")
	c := mustConversationStore(t, kv)
	_, err := c.Read(context.Background(), "abc")
	require.Error(t, err)
	require.Error(t, c.Append(context.Background(), "abc", domain.ChatMessage{Role: domain.RoleUser, Content: "x"}))

	kv = newFakeKV()
	kv.setErr = errors.New("READONLY")
	c = mustConversationStore(t, kv)
	err = c.Append(context.Background(), "abc", domain.ChatMessage{Role: domain.RoleUser, Content: "x"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "Append conversation")
}

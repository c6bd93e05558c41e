package bot_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wierdbytes/tellm/internal/bot"
	"github.com/wierdbytes/tellm/internal/telegram"
)

type fakeSource struct {
	mu      sync.Mutex
	batches [][]telegram.Update
	offsets []int64
}

func (f *fakeSource) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]telegram.Update, error) {
	f.mu.Lock()
	f.offsets = append(f.offsets, offset)
	var batch []telegram.Update
	if len(f.batches) > 0 {
		batch = f.batches[0]
		f.batches = f.batches[1:]
	}
	f.mu.Unlock()

	if batch != nil {
		return batch, nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeSource) seenOffsets() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.offsets...)
}

func TestPollerDispatchesAndAdvancesOffset(t *testing.T) {
	f := newFixture(t, "answer", nil)

	msgA := userMessage(100, 1, "@tellm_bot hi")
	msgB := userMessage(200, 1, "@tellm_bot yo")
	source := &fakeSource{batches: [][]telegram.Update{{
		{UpdateID: 7, Message: msgA},
		{UpdateID: 8, Message: msgB},
		{UpdateID: 9}, // update without a message is skipped
	}}}

	poller := bot.NewPoller(source, f.bot, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx) }()

	// Both chats get answered by their own workers.
	require.Eventually(t, func() bool {
		return len(f.sender.sentMessages()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop after cancellation")
	}

	offsets := source.seenOffsets()
	require.GreaterOrEqual(t, len(offsets), 2)
	assert.Equal(t, int64(0), offsets[0])
	assert.Equal(t, int64(10), offsets[1])

	chats := map[int64]bool{}
	for _, sent := range f.sender.sentMessages() {
		chats[sent.ChatID] = true
	}
	assert.True(t, chats[100])
	assert.True(t, chats[200])
}

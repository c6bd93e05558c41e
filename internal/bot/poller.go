package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/wierdbytes/tellm/internal/telegram"
)

const (
	retryDelay      = 5 * time.Second
	chatQueueLength = 64
)

// UpdateSource is the inbound slice of the Telegram client the poller
// depends on.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]telegram.Update, error)
}

// Poller long-polls for updates and fans them out to one worker goroutine
// per chat. Messages of the same chat are handled in arrival order; chats
// never block each other.
type Poller struct {
	source      UpdateSource
	bot         *Bot
	pollTimeout int

	// workers is only touched by the Run goroutine.
	workers map[int64]chan *telegram.Message
	wg      sync.WaitGroup
}

func NewPoller(source UpdateSource, bot *Bot, pollTimeoutSec int) *Poller {
	return &Poller{
		source:      source,
		bot:         bot,
		pollTimeout: pollTimeoutSec,
		workers:     make(map[int64]chan *telegram.Message),
	}
}

// Run polls until ctx is cancelled, then drains the per-chat workers.
func (p *Poller) Run(ctx context.Context) error {
	defer func() {
		for _, queue := range p.workers {
			close(queue)
		}
		p.wg.Wait()
	}()

	var offset int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := p.source.GetUpdates(ctx, offset, p.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("getUpdates failed", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			if update.Message == nil {
				continue
			}
			p.dispatch(ctx, update.Message)
		}
	}
}

func (p *Poller) dispatch(ctx context.Context, msg *telegram.Message) {
	queue, ok := p.workers[msg.Chat.ID]
	if !ok {
		queue = make(chan *telegram.Message, chatQueueLength)
		p.workers[msg.Chat.ID] = queue

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for m := range queue {
				p.bot.HandleMessage(ctx, m)
			}
		}()
	}

	select {
	case queue <- msg:
	case <-ctx.Done():
	}
}

package chat

import (
	"context"
	"errors"
	"fmt"
)

// MaxChainHops bounds the reply-chain walk. Reply graphs produced by the
// platform are trees, but the walk must terminate even if the stored links
// are corrupted into a cycle.
const MaxChainHops = 512

// ErrChainTooLong is returned by Reconstruct when the walk hits MaxChainHops
// or revisits a message id. The chain collected up to that point is still
// returned and is safe to use.
var ErrChainTooLong = errors.New("reply chain exceeds hop limit")

// ParentLookup resolves the reply-parent of a stored message. The second
// return value is false when the message is unknown or has no parent.
type ParentLookup interface {
	ParentID(ctx context.Context, chatID, messageID int64) (int64, bool, error)
}

// TurnLookup maps stored message ids to their role/content pairs. Ids with
// no stored record are simply absent from the result.
type TurnLookup interface {
	TurnsByIDs(ctx context.Context, chatID int64, messageIDs []int64) (map[int64]Turn, error)
}

// Store is the read surface the conversation core needs from the message log.
type Store interface {
	ParentLookup
	TurnLookup
}

// Reconstruct walks reply-parent links from startID up to the root of its
// chain and returns the visited ids in root-first order. An unknown startID
// yields a single-element chain; a dangling parent link ends the walk at the
// last known message.
func Reconstruct(ctx context.Context, lookup ParentLookup, chatID, startID int64) ([]int64, error) {
	chain := []int64{startID}
	seen := map[int64]struct{}{startID: {}}

	current := startID
	for {
		parent, ok, err := lookup.ParentID(ctx, chatID, current)
		if err != nil {
			return nil, fmt.Errorf("looking up parent of message %d in chat %d: %w", current, chatID, err)
		}
		if !ok {
			break
		}
		if _, visited := seen[parent]; visited {
			reverse(chain)
			return chain, ErrChainTooLong
		}
		if len(chain) >= MaxChainHops {
			reverse(chain)
			return chain, ErrChainTooLong
		}
		chain = append(chain, parent)
		seen[parent] = struct{}{}
		current = parent
	}

	reverse(chain)
	return chain, nil
}

func reverse(ids []int64) {
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
}

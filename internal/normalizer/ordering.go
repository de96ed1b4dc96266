package normalizer

import (
	"sort"

	"dlmm-viewer/internal/domain"
)

// SortEvents orders events by (block_time ASC, signature ASC, kind ASC).
// This provides deterministic ordering based on blockchain order; the
// signature and kind keys break ties between events in the same block.
func SortEvents(events []domain.PositionEvent) {
	sort.Slice(events, func(i, j int) bool {
		return compareEvents(&events[i], &events[j]) < 0
	})
}

// compareEvents returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
func compareEvents(a, b *domain.PositionEvent) int {
	if a.BlockTime != b.BlockTime {
		if a.BlockTime < b.BlockTime {
			return -1
		}
		return 1
	}
	if a.Signature != b.Signature {
		if a.Signature < b.Signature {
			return -1
		}
		return 1
	}
	if a.Kind != b.Kind {
		if a.Kind < b.Kind {
			return -1
		}
		return 1
	}
	return 0
}

// Merge combines chain-decoded and indexer-sourced events for the same
// position into one ordered stream. The chain log wins on overlap: an
// indexer record whose (signature, kind) already appears among the chain
// events is a duplicate observation of the same operation.
func Merge(chain, indexer []domain.PositionEvent) []domain.PositionEvent {
	type key struct {
		signature string
		kind      domain.OperationKind
	}

	seen := make(map[key]struct{}, len(chain))
	merged := make([]domain.PositionEvent, 0, len(chain)+len(indexer))

	for _, e := range chain {
		seen[key{e.Signature, e.Kind}] = struct{}{}
		merged = append(merged, e)
	}
	for _, e := range indexer {
		if _, dup := seen[key{e.Signature, e.Kind}]; dup {
			continue
		}
		merged = append(merged, e)
	}

	SortEvents(merged)
	return merged
}

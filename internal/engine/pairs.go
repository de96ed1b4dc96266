package engine

import (
	"context"
	"time"

	"dlmm-viewer/internal/dlmm"
	"dlmm-viewer/internal/solana"
)

// pairEntry caches a resolved pool so a wallet fan-out decodes each pool
// and its token metadata once. The active bin is the only mutable field;
// the WS refresher keeps it current.
type pairEntry struct {
	info *PairInfo
	pool *dlmm.LbPair
}

func (s *Service) cachedPair(address string) (*PairInfo, *dlmm.LbPair, bool) {
	s.pairsMu.RLock()
	defer s.pairsMu.RUnlock()

	e, ok := s.pairs[address]
	if !ok {
		return nil, nil, false
	}
	info := *e.info
	pool := *e.pool
	return &info, &pool, true
}

func (s *Service) storePair(info *PairInfo, pool *dlmm.LbPair) {
	s.pairsMu.Lock()
	defer s.pairsMu.Unlock()
	s.pairs[pool.Address] = &pairEntry{info: info, pool: pool}
}

func (s *Service) setActiveBin(address string, activeID int32) {
	s.pairsMu.Lock()
	defer s.pairsMu.Unlock()

	e, ok := s.pairs[address]
	if !ok {
		return
	}
	e.info.ActiveBinID = activeID
	e.pool.ActiveID = activeID
}

func (s *Service) cachedPairAddresses() []string {
	s.pairsMu.RLock()
	defer s.pairsMu.RUnlock()

	addresses := make([]string, 0, len(s.pairs))
	for address := range s.pairs {
		addresses = append(addresses, address)
	}
	return addresses
}

// watchPollInterval is how often the refresher looks for newly cached pools
// to subscribe to.
const watchPollInterval = 30 * time.Second

// WatchPairs keeps cached pools' active bins current via account
// subscriptions. It subscribes to every pool the service has resolved,
// picking up new ones as reconstructions cache them, and blocks until ctx
// is done.
func (s *Service) WatchPairs(ctx context.Context, ws solana.WSClient) {
	subscribed := make(map[string]bool)
	ticker := time.NewTicker(watchPollInterval)
	defer ticker.Stop()

	for {
		for _, address := range s.cachedPairAddresses() {
			if subscribed[address] {
				continue
			}
			ch, err := ws.SubscribeAccount(ctx, address)
			if err != nil {
				s.logger.Warn().Err(err).Str("pool", address).
					Msg("pool subscription failed, will retry")
				continue
			}
			subscribed[address] = true
			go s.consumePoolUpdates(address, ch)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Service) consumePoolUpdates(address string, ch <-chan solana.AccountNotification) {
	for notification := range ch {
		pool, err := dlmm.DecodeLbPair(address, notification.Data)
		if err != nil {
			s.logger.Warn().Err(err).Str("pool", address).
				Msg("undecodable pool update dropped")
			continue
		}
		s.setActiveBin(address, pool.ActiveID)
		s.logger.Debug().Str("pool", address).Int32("active_bin", pool.ActiveID).
			Msg("pool active bin refreshed")
	}
}

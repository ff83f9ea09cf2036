package app

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Spaces/internal/core"
	"github.com/dkeye/Spaces/internal/domain"
)

// Poller re-fetches the space record on a fixed period. Fetches are
// single-flighted: a tick arriving while one is outstanding is skipped,
// never queued.
type Poller struct {
	Repo    core.SpaceRepository
	SpaceID domain.SpaceID
	Period  time.Duration

	// OnFetch receives every successful fetch; changed reports whether
	// the snapshot differs structurally from the last accepted one.
	OnFetch   func(ctx context.Context, space *domain.Space, changed bool)
	OnMissing func()
	OnError   func(err error)

	inFlight atomic.Bool
	prev     *domain.Space
}

// Run polls until ctx is canceled. The first fetch happens immediately.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.Period)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.poller").Str("space", string(p.SpaceID)).Msg("poller stopped")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// RefreshNow runs one fetch outside the schedule, used by action
// handlers to reconcile immediately. Skipped if a fetch is in flight.
func (p *Poller) RefreshNow(ctx context.Context) {
	p.poll(ctx)
}

func (p *Poller) poll(ctx context.Context) {
	if !p.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer p.inFlight.Store(false)

	space, err := p.Repo.FetchSpaceByID(ctx, p.SpaceID)
	if ctx.Err() != nil {
		// Torn down while the fetch was in flight; discard the result.
		return
	}
	if err != nil {
		if errors.Is(err, core.ErrSpaceNotFound) {
			if p.OnMissing != nil {
				p.OnMissing()
			}
			return
		}
		log.Error().Err(err).Str("module", "app.poller").Str("space", string(p.SpaceID)).Msg("fetch failed")
		if p.OnError != nil {
			p.OnError(err)
		}
		return
	}
	if space == nil {
		if p.OnMissing != nil {
			p.OnMissing()
		}
		return
	}

	changed := !reflect.DeepEqual(p.prev, space)
	if changed {
		p.prev = space
	}
	p.OnFetch(ctx, space, changed)
}

package jobs

import (
	"context"
	"log"
	"time"

	"group-market/internal/services"
)

// GroupBuySweep periodically fails group buys that passed their deadline
// while still pending. The interval only bounds detection latency: joins
// re-check expiry themselves, and the underlying transition is a guarded
// status update, so overlapping runs cannot double-process a group.
type GroupBuySweep struct {
	groupBuys *services.GroupBuyService
	interval  time.Duration
	stopChan  chan struct{}
}

// NewGroupBuySweep creates a new expiry sweep job
func NewGroupBuySweep(groupBuys *services.GroupBuyService, interval time.Duration) *GroupBuySweep {
	return &GroupBuySweep{
		groupBuys: groupBuys,
		interval:  interval,
		stopChan:  make(chan struct{}),
	}
}

// Start begins the sweep loop
func (gs *GroupBuySweep) Start() {
	log.Printf("[GroupBuySweep] Starting expiry sweep (interval: %v)", gs.interval)

	ticker := time.NewTicker(gs.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			gs.RunOnce()
		case <-gs.stopChan:
			log.Println("[GroupBuySweep] Stopping expiry sweep")
			return
		}
	}
}

// Stop stops the sweep loop
func (gs *GroupBuySweep) Stop() {
	close(gs.stopChan)
}

// RunOnce performs a single sweep pass.
func (gs *GroupBuySweep) RunOnce() {
	ctx := context.Background()

	expired, err := gs.groupBuys.ListExpiredPending(ctx, 100)
	if err != nil {
		log.Printf("[GroupBuySweep] Error fetching expired group buys: %v", err)
		return
	}

	if len(expired) == 0 {
		return
	}

	log.Printf("[GroupBuySweep] Found %d expired group buys", len(expired))

	failedCount := 0
	for _, gb := range expired {
		transitioned, err := gs.groupBuys.ExpireIfDue(ctx, gb.ID)
		if err != nil {
			log.Printf("[GroupBuySweep] Error expiring group buy %s: %v", gb.ID, err)
			continue
		}
		if transitioned {
			failedCount++
		}
	}

	if failedCount > 0 {
		log.Printf("[GroupBuySweep] Failed %d expired group buys", failedCount)
	}
}

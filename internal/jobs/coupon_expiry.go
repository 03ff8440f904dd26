package jobs

import (
	"context"
	"log"
	"time"

	"group-market/internal/services"
)

// CouponExpiry periodically marks overdue active coupons as expired.
type CouponExpiry struct {
	coupons  *services.CouponService
	interval time.Duration
	stopChan chan struct{}
}

// NewCouponExpiry creates a new coupon expiry job
func NewCouponExpiry(coupons *services.CouponService, interval time.Duration) *CouponExpiry {
	return &CouponExpiry{
		coupons:  coupons,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the expiry loop
func (ce *CouponExpiry) Start() {
	log.Printf("[CouponExpiry] Starting coupon expiry job (interval: %v)", ce.interval)

	ticker := time.NewTicker(ce.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ce.RunOnce()
		case <-ce.stopChan:
			log.Println("[CouponExpiry] Stopping coupon expiry job")
			return
		}
	}
}

// Stop stops the expiry loop
func (ce *CouponExpiry) Stop() {
	close(ce.stopChan)
}

// RunOnce performs a single expiry pass.
func (ce *CouponExpiry) RunOnce() {
	expired, err := ce.coupons.ExpireOverdue(context.Background())
	if err != nil {
		log.Printf("[CouponExpiry] Error expiring coupons: %v", err)
		return
	}
	if expired > 0 {
		log.Printf("[CouponExpiry] Expired %d coupons", expired)
	}
}

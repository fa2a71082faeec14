package service

import (
	"context"
	"time"

	appErr "execjudge/pkg/errors"
)

func (s *Service) acquireSlot(ctx context.Context) error {
	timer := time.NewTimer(s.acquireTimeout)
	defer timer.Stop()
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return appErr.Wrapf(ctx.Err(), appErr.ServiceUnavailable, "request cancelled while waiting for a judge slot")
	case <-timer.C:
		return appErr.New(appErr.JudgeQueueFull).WithMessage("worker pool is full")
	}
}

func (s *Service) releaseSlot() {
	select {
	case <-s.sem:
	default:
	}
}

// InFlight reports how many submissions hold a slot.
func (s *Service) InFlight() int {
	return len(s.sem)
}

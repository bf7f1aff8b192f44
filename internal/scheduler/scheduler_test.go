package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakePinger struct {
	fail  atomic.Bool
	calls atomic.Int32
}

func (f *fakePinger) Ping(context.Context) error {
	f.calls.Add(1)
	if f.fail.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func TestProbeTracksTransitions(t *testing.T) {
	p := &fakePinger{}
	s := New(p, time.Minute, nil)

	if !s.Healthy() {
		t.Fatal("expected healthy before the first probe")
	}

	p.fail.Store(true)
	s.Probe()
	if s.Healthy() {
		t.Fatal("expected unhealthy after a failed probe")
	}
	s.Probe()
	if s.Healthy() {
		t.Fatal("expected to stay unhealthy")
	}

	p.fail.Store(false)
	s.Probe()
	if !s.Healthy() {
		t.Fatal("expected healthy after recovery")
	}
}

func TestStartRunsProbeImmediately(t *testing.T) {
	p := &fakePinger{}
	p.fail.Store(true)
	s := New(p, time.Hour, nil)

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for p.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if p.calls.Load() == 0 {
		t.Fatal("probe did not run")
	}
	for s.Healthy() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.Healthy() {
		t.Fatal("expected unhealthy after failing probe")
	}
}

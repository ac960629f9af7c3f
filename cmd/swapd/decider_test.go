package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comitswap/swapd/keyoracle"
)

func TestManualDeciderBlocksUntilResolved(t *testing.T) {
	d := newManualDecider(keyoracle.New([32]byte{1}))
	req := sampleRequest(t)

	type result struct {
		accept  bool
		decline bool
	}
	done := make(chan result, 1)
	go func() {
		accept, decline := d.Decide(context.Background(), req)
		done <- result{accept: accept != nil, decline: decline != nil}
	}()

	require.Eventually(t, func() bool {
		return d.Resolve(req.SwapId, true, nil) == nil
	}, time.Second, time.Millisecond)

	select {
	case r := <-done:
		require.True(t, r.accept)
		require.False(t, r.decline)
	case <-time.After(time.Second):
		t.Fatal("Decide did not return after Resolve")
	}
}

func TestManualDeciderDecline(t *testing.T) {
	d := newManualDecider(keyoracle.New([32]byte{2}))
	req := sampleRequest(t)

	done := make(chan struct {
		accept  bool
		decline bool
	}, 1)
	go func() {
		accept, decline := d.Decide(context.Background(), req)
		done <- struct {
			accept  bool
			decline bool
		}{accept != nil, decline != nil}
	}()

	require.Eventually(t, func() bool {
		reason := "not interested"
		return d.Resolve(req.SwapId, false, &reason) == nil
	}, time.Second, time.Millisecond)

	select {
	case r := <-done:
		require.False(t, r.accept)
		require.True(t, r.decline)
	case <-time.After(time.Second):
		t.Fatal("Decide did not return after Resolve")
	}
}

func TestManualDeciderResolveWithoutPendingErrors(t *testing.T) {
	d := newManualDecider(keyoracle.New([32]byte{3}))
	req := sampleRequest(t)
	require.Error(t, d.Resolve(req.SwapId, true, nil))
}

func TestManualDeciderCanceledContextDeclines(t *testing.T) {
	d := newManualDecider(keyoracle.New([32]byte{4}))
	req := sampleRequest(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	accept, decline := d.Decide(ctx, req)
	require.Nil(t, accept)
	require.NotNil(t, decline)
}

package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weddly/wedding-planner/internal/modules/notification/domain"
)

type finished struct {
	result domain.BroadcastResult
	err    error
}

func TestBroadcastWorker_RunsSubmittedJobs(t *testing.T) {
	f := newFixture(nil, 100)
	f.store.withMembers(250)

	w := NewBroadcastWorker(f.svc, 4, discard)
	done := make(chan finished, 1)
	w.OnFinish = func(r domain.BroadcastResult, err error) { done <- finished{r, err} }
	w.Start()
	defer w.Stop(context.Background())

	req, err := w.Submit(context.Background(), noticeRequest(""))
	require.NoError(t, err)
	assert.NotEmpty(t, req.Key)

	select {
	case got := <-done:
		require.NoError(t, got.err)
		assert.Equal(t, req.Key, got.result.Key)
		assert.Equal(t, 3, got.result.Pages)
		assert.Equal(t, 250, got.result.Dispatched)
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast did not finish")
	}
}

func TestBroadcastWorker_SubmitValidatesSynchronously(t *testing.T) {
	f := newFixture(nil, 100)
	w := NewBroadcastWorker(f.svc, 1, discard)

	req := noticeRequest("k")
	req.Type = domain.TypeContractCreated
	_, err := w.Submit(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrNotBroadcastable)

	_, err = w.Submit(context.Background(), noticeRequest("dup"))
	require.NoError(t, err)
	_, err = w.Submit(context.Background(), noticeRequest("dup"))
	assert.ErrorIs(t, err, domain.ErrDuplicateBroadcast)
}

func TestBroadcastWorker_QueueFullReleasesKey(t *testing.T) {
	f := newFixture(nil, 100)
	w := NewBroadcastWorker(f.svc, 1, discard) // not started

	_, err := w.Submit(context.Background(), noticeRequest("first"))
	require.NoError(t, err)
	_, err = w.Submit(context.Background(), noticeRequest("second"))
	assert.ErrorIs(t, err, ErrBroadcastQueueFull)
	assert.False(t, f.guard.isClaimed("second"))
	assert.True(t, f.guard.isClaimed("first"))
}

func TestBroadcastWorker_FailuresReported(t *testing.T) {
	f := newFixture(nil, 100)
	f.store.withMembers(3)
	f.store.pageErr = errors.New("replica lag")

	w := NewBroadcastWorker(f.svc, 1, discard)
	done := make(chan finished, 1)
	w.OnFinish = func(r domain.BroadcastResult, err error) { done <- finished{r, err} }
	w.Start()

	_, err := w.Submit(context.Background(), noticeRequest("k"))
	require.NoError(t, err)

	select {
	case got := <-done:
		require.Error(t, got.err)
		assert.Equal(t, 0, got.result.Created)
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast did not finish")
	}
	require.NoError(t, w.Stop(context.Background()))
	assert.False(t, f.guard.isClaimed("k"))
}

func TestBroadcastWorker_StopReleasesQueuedKeys(t *testing.T) {
	f := newFixture(nil, 100)
	f.store.withMembers(3)
	w := NewBroadcastWorker(f.svc, 4, discard) // not started

	for _, key := range []string{"a", "b"} {
		_, err := w.Submit(context.Background(), noticeRequest(key))
		require.NoError(t, err)
		assert.True(t, f.guard.isClaimed(key))
	}

	require.NoError(t, w.Stop(context.Background()))
	assert.False(t, f.guard.isClaimed("a"))
	assert.False(t, f.guard.isClaimed("b"))
	assert.Equal(t, 0, f.store.count())

	_, err := w.Submit(context.Background(), noticeRequest("c"))
	assert.ErrorIs(t, err, ErrBroadcastWorkerStopped)
	assert.False(t, f.guard.isClaimed("c"))

	// Released keys may be submitted again to a fresh worker.
	w2 := NewBroadcastWorker(f.svc, 4, discard)
	_, err = w2.Submit(context.Background(), noticeRequest("a"))
	require.NoError(t, err)
	require.NoError(t, w2.Stop(context.Background()))
}

package swipe

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/desertthunder/cur8/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type swipeCall struct {
	id     string
	action models.Action
}

// fakeSource serves queued tracks and records confirmations.
type fakeSource struct {
	queue     []*models.Track
	nextErr   error
	swipeErr  error
	nextCalls int
	swipes    []swipeCall
}

func (f *fakeSource) NextTrack(ctx context.Context) (*models.Track, error) {
	f.nextCalls++
	if f.nextErr != nil {
		return nil, f.nextErr
	}
	if len(f.queue) == 0 {
		return nil, nil
	}
	track := f.queue[0]
	f.queue = f.queue[1:]
	return track, nil
}

func (f *fakeSource) Swipe(ctx context.Context, spotifyTrackID string, action models.Action) error {
	f.swipes = append(f.swipes, swipeCall{spotifyTrackID, action})
	return f.swipeErr
}

func tracks(n int) []*models.Track {
	out := make([]*models.Track, n)
	for i := range out {
		out[i] = &models.Track{ID: fmt.Sprintf("t%d", i), SpotifyTrackID: fmt.Sprintf("sp%d", i), Name: fmt.Sprintf("Track %d", i)}
	}
	return out
}

// decideAndExit runs a decision through the render-driven steps up to the end of the exit animation.
func decideAndExit(t *testing.T, o *Orchestrator, action models.Action) {
	t.Helper()
	_, err := o.Decide(action)
	require.NoError(t, err)
	require.NoError(t, o.Detach())
}

func TestOrchestrator_LoadNext(t *testing.T) {
	ctx := context.Background()

	t.Run("shows the fetched track", func(t *testing.T) {
		src := &fakeSource{queue: tracks(1)}
		o := NewOrchestrator()

		require.NoError(t, o.LoadNext(ctx, src))
		assert.Equal(t, PhaseTrackShown, o.Phase())
		assert.Equal(t, "sp0", o.Track().SpotifyTrackID)
		assert.False(t, o.Loading())
		assert.False(t, o.Empty())
		assert.True(t, o.CanDecide())
	})

	t.Run("loading flag is held until finish", func(t *testing.T) {
		o := NewOrchestrator()
		gen, err := o.BeginLoad()
		require.NoError(t, err)
		assert.True(t, o.Loading())

		_, err = o.BeginLoad()
		assert.ErrorIs(t, err, ErrBusy)

		o.FinishLoad(gen, tracks(1)[0], nil)
		assert.False(t, o.Loading())
	})

	t.Run("empty queue stays empty until retry", func(t *testing.T) {
		src := &fakeSource{}
		o := NewOrchestrator()

		require.NoError(t, o.LoadNext(ctx, src))
		assert.True(t, o.Empty())
		assert.Nil(t, o.Track())
		assert.Equal(t, 1, src.nextCalls)

		_, err := o.Decide(models.ActionKeep)
		assert.ErrorIs(t, err, ErrNoTrack)
		assert.Equal(t, 1, src.nextCalls, "nothing fetches on its own")

		src.queue = tracks(1)
		gen, err := o.Retry()
		require.NoError(t, err)
		track, err := src.NextTrack(ctx)
		require.NoError(t, err)
		o.FinishLoad(gen, track, nil)
		assert.Equal(t, PhaseTrackShown, o.Phase())
	})

	t.Run("failure clears the track and records the error", func(t *testing.T) {
		boom := errors.New("backend down")
		src := &fakeSource{nextErr: boom}
		o := NewOrchestrator()

		err := o.LoadNext(ctx, src)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, PhaseError, o.Phase())
		assert.ErrorIs(t, o.Err(), boom)
		assert.Nil(t, o.Track())
		assert.False(t, o.Empty())

		src.nextErr = nil
		src.queue = tracks(1)
		gen, err := o.Retry()
		require.NoError(t, err)
		assert.NoError(t, o.Err(), "retry clears the error")
		track, _ := src.NextTrack(ctx)
		o.FinishLoad(gen, track, nil)
		assert.Equal(t, PhaseTrackShown, o.Phase())
	})
}

func TestOrchestrator_Decide(t *testing.T) {
	ctx := context.Background()

	t.Run("direction follows action", func(t *testing.T) {
		for action, want := range map[models.Action]Direction{
			models.ActionRemove: DirectionLeft,
			models.ActionKeep:   DirectionRight,
		} {
			o := NewOrchestrator()
			require.NoError(t, o.LoadNext(ctx, &fakeSource{queue: tracks(1)}))

			d, err := o.Decide(action)
			require.NoError(t, err)
			assert.Equal(t, want, d.Direction)
			assert.Equal(t, want, o.ExitDirection())
		}
	})

	t.Run("track stays displayed until detach", func(t *testing.T) {
		o := NewOrchestrator()
		require.NoError(t, o.LoadNext(ctx, &fakeSource{queue: tracks(1)}))

		_, err := o.Decide(models.ActionKeep)
		require.NoError(t, err)
		assert.Equal(t, PhaseDeciding, o.Phase())
		assert.NotNil(t, o.Track())

		require.NoError(t, o.Detach())
		assert.Equal(t, PhaseExiting, o.Phase())
		assert.Nil(t, o.Track())
		assert.Equal(t, "sp0", o.Decision().Track.SpotifyTrackID)

		assert.ErrorIs(t, o.Detach(), ErrNotDeciding)
	})

	t.Run("second decision is rejected", func(t *testing.T) {
		o := NewOrchestrator()
		require.NoError(t, o.LoadNext(ctx, &fakeSource{queue: tracks(1)}))

		_, err := o.Decide(models.ActionKeep)
		require.NoError(t, err)
		assert.False(t, o.CanDecide())

		_, err = o.Decide(models.ActionRemove)
		assert.ErrorIs(t, err, ErrDecisionInProgress)
		assert.Equal(t, models.ActionKeep, o.Decision().Action)

		require.NoError(t, o.Detach())
		_, err = o.Decide(models.ActionRemove)
		assert.ErrorIs(t, err, ErrDecisionInProgress)
	})

	t.Run("no fetch while a decision is pending", func(t *testing.T) {
		o := NewOrchestrator()
		require.NoError(t, o.LoadNext(ctx, &fakeSource{queue: tracks(2)}))
		decideAndExit(t, o, models.ActionKeep)

		_, err := o.BeginLoad()
		assert.ErrorIs(t, err, ErrBusy)
		_, err = o.Retry()
		assert.ErrorIs(t, err, ErrBusy)
	})
}

func TestOrchestrator_ExitComplete(t *testing.T) {
	ctx := context.Background()

	t.Run("drag past threshold keeps and loads next", func(t *testing.T) {
		src := &fakeSource{queue: tracks(2)}
		o := NewOrchestrator()
		require.NoError(t, o.LoadNext(ctx, src))

		card := NewCard()
		card.MoveTo(120)
		action, ok := card.Release()
		require.True(t, ok)

		d, err := o.Decide(action)
		require.NoError(t, err)
		assert.Equal(t, DirectionRight, d.Direction)
		require.NoError(t, o.Detach())

		require.NoError(t, o.ExitComplete(ctx, src))
		assert.Equal(t, []swipeCall{{"sp0", models.ActionKeep}}, src.swipes)
		assert.Equal(t, PhaseTrackShown, o.Phase())
		assert.Equal(t, "sp1", o.Track().SpotifyTrackID)
		assert.Nil(t, o.Decision())
		assert.Equal(t, 2, src.nextCalls)
	})

	t.Run("confirmation happens exactly once", func(t *testing.T) {
		src := &fakeSource{queue: tracks(2)}
		o := NewOrchestrator()
		require.NoError(t, o.LoadNext(ctx, src))
		decideAndExit(t, o, models.ActionRemove)

		d, gen, err := o.BeginConfirm()
		require.NoError(t, err)
		assert.Equal(t, models.ActionRemove, d.Action)

		_, _, err = o.BeginConfirm()
		assert.ErrorIs(t, err, ErrNotExiting)
		assert.ErrorIs(t, o.ExitComplete(ctx, src), ErrNotExiting)
		assert.Empty(t, src.swipes)

		assert.True(t, o.FinishConfirm(gen, nil))
		assert.False(t, o.FinishConfirm(gen, nil), "a duplicate result is ignored")
		assert.ErrorIs(t, o.ExitComplete(ctx, src), ErrNotExiting)
	})

	t.Run("rejected confirmation shows error without fetching", func(t *testing.T) {
		boom := errors.New("Track not pending")
		src := &fakeSource{queue: tracks(2), swipeErr: boom}
		o := NewOrchestrator()
		require.NoError(t, o.LoadNext(ctx, src))
		decideAndExit(t, o, models.ActionKeep)

		err := o.ExitComplete(ctx, src)
		assert.ErrorIs(t, err, boom)
		assert.Len(t, src.swipes, 1)
		assert.Equal(t, PhaseError, o.Phase())
		assert.ErrorIs(t, o.Err(), boom)
		assert.Nil(t, o.Decision())
		assert.Nil(t, o.Track())
		assert.Equal(t, 1, src.nextCalls, "no automatic fetch after failure")

		src.swipeErr = nil
		gen, err := o.Retry()
		require.NoError(t, err)
		track, _ := src.NextTrack(ctx)
		o.FinishLoad(gen, track, nil)
		assert.Equal(t, "sp1", o.Track().SpotifyTrackID)
	})

	t.Run("confirm before exit is refused", func(t *testing.T) {
		src := &fakeSource{queue: tracks(1)}
		o := NewOrchestrator()
		require.NoError(t, o.LoadNext(ctx, src))
		_, err := o.Decide(models.ActionKeep)
		require.NoError(t, err)

		assert.ErrorIs(t, o.ExitComplete(ctx, src), ErrNotExiting)
		assert.Empty(t, src.swipes)
	})
}

func TestOrchestrator_Close(t *testing.T) {
	t.Run("late load result is a no-op", func(t *testing.T) {
		o := NewOrchestrator()
		gen, err := o.BeginLoad()
		require.NoError(t, err)

		o.Close()
		o.FinishLoad(gen, tracks(1)[0], nil)

		assert.Nil(t, o.Track())
		assert.Equal(t, PhaseIdle, o.Phase())
		assert.True(t, o.Closed())
	})

	t.Run("late confirmation result is a no-op", func(t *testing.T) {
		ctx := context.Background()
		o := NewOrchestrator()
		require.NoError(t, o.LoadNext(ctx, &fakeSource{queue: tracks(1)}))
		decideAndExit(t, o, models.ActionKeep)

		_, gen, err := o.BeginConfirm()
		require.NoError(t, err)

		o.Close()
		assert.False(t, o.FinishConfirm(gen, nil))
		assert.NoError(t, o.Err())
	})

	t.Run("everything is refused after close", func(t *testing.T) {
		o := NewOrchestrator()
		o.Close()

		_, err := o.BeginLoad()
		assert.ErrorIs(t, err, ErrClosed)
		_, err = o.Decide(models.ActionKeep)
		assert.ErrorIs(t, err, ErrClosed)
		assert.ErrorIs(t, o.Detach(), ErrClosed)
		_, err = o.Retry()
		assert.ErrorIs(t, err, ErrClosed)
	})
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "track-shown", PhaseTrackShown.String())
	assert.Equal(t, "confirming", PhaseConfirming.String())
	assert.Equal(t, "left", DirectionLeft.String())
	assert.Equal(t, -1.0, DirectionLeft.Sign())
}

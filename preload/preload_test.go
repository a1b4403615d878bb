package preload

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedCounter int

func (c fixedCounter) Len() int { return int(c) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitDone(t *testing.T, p *Preloader) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("preload did not finish")
	}
}

func TestStartWarmsAllArtifacts(t *testing.T) {
	p := New(WithLogger(quietLogger()))

	var order []string
	for _, name := range []string{"face_model", "detector", "classifier"} {
		name := name
		p.Register(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	assert.False(t, p.Ready())
	p.Start(context.Background())
	waitDone(t, p)

	assert.True(t, p.Ready())
	// Artifacts warm sequentially in registration order.
	assert.Equal(t, []string{"face_model", "detector", "classifier"}, order)
	for _, name := range order {
		assert.True(t, p.Loaded(name))
	}
}

func TestFailedArtifactIsRecordedNotFatal(t *testing.T) {
	p := New(WithLogger(quietLogger()))
	p.Register("face_model", func(context.Context) error { return nil })
	p.Register("classifier", func(context.Context) error { return errors.New("weights missing") })

	p.Start(context.Background())
	waitDone(t, p)

	assert.False(t, p.Ready())
	assert.True(t, p.Loaded("face_model"))
	assert.False(t, p.Loaded("classifier"))

	st := p.Status()
	assert.True(t, st.Completed)
	assert.Contains(t, st.Errors["classifier"], "weights missing")
}

func TestStartIsIdempotent(t *testing.T) {
	p := New(WithLogger(quietLogger()))
	calls := 0
	p.Register("face_model", func(context.Context) error {
		calls++
		return nil
	})

	p.Start(context.Background())
	p.Start(context.Background())
	waitDone(t, p)

	assert.Equal(t, 1, calls)
}

func TestRegisterAfterStartIsIgnored(t *testing.T) {
	p := New(WithLogger(quietLogger()))
	p.Register("face_model", func(context.Context) error { return nil })
	p.Start(context.Background())
	waitDone(t, p)

	p.Register("late", func(context.Context) error { return nil })
	assert.False(t, p.Loaded("late"))
	assert.True(t, p.Ready())
}

func TestCancelledContextSkipsRemainingLoaders(t *testing.T) {
	p := New(WithLogger(quietLogger()))
	p.Register("face_model", func(context.Context) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Start(ctx)
	waitDone(t, p)

	assert.False(t, p.Ready())
	assert.False(t, p.Loaded("face_model"))
}

func TestStatusReportsMemoryEstimate(t *testing.T) {
	// 2048 encodings of 128 float32 components = 1 MiB.
	p := New(WithLogger(quietLogger()), WithModelCounter(fixedCounter(2048)))
	p.Register("face_model", func(context.Context) error { return nil })
	p.Start(context.Background())
	waitDone(t, p)

	st := p.Status()
	require.True(t, st.Completed)
	assert.Equal(t, 2048, st.SoldierCount)
	assert.InDelta(t, 1.0, st.EstimatedMemoryMB, 1e-9)
	assert.Equal(t, map[string]bool{"face_model": true}, st.Artifacts)
}

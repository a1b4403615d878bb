package roster

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func modeled(tokens ...string) Modeled {
	return ModeledFunc(func() ([]string, error) { return tokens, nil })
}

func TestCheckConsistent(t *testing.T) {
	res, err := Check(context.Background(), StaticRoster{"S-1", "S-2"}, modeled("S-2", "S-1"))
	require.NoError(t, err)

	assert.True(t, res.Consistent)
	assert.Empty(t, res.Issues)
	assert.Equal(t, 2, res.ModelCount)
	assert.Equal(t, 2, res.RosterCount)
}

func TestCheckReportsDivergence(t *testing.T) {
	res, err := Check(context.Background(),
		StaticRoster{"S-1", "S-2", "S-3"},
		modeled("S-1", "S-ghost"),
	)
	require.NoError(t, err)

	assert.False(t, res.Consistent)
	assert.Equal(t, []string{"S-ghost"}, res.OnlyInModel)
	assert.Equal(t, []string{"S-2", "S-3"}, res.OnlyInRoster)
	assert.Len(t, res.Issues, 2)
}

func TestCheckDeduplicatesTokens(t *testing.T) {
	res, err := Check(context.Background(),
		StaticRoster{"S-1", "S-1"},
		modeled("S-1", "S-1", "S-1"),
	)
	require.NoError(t, err)

	assert.True(t, res.Consistent)
	assert.Equal(t, 1, res.ModelCount)
	assert.Equal(t, 1, res.RosterCount)
}

func TestCheckPropagatesRosterError(t *testing.T) {
	boom := errors.New("ldap down")
	failing := rosterFunc(func(context.Context) ([]string, error) { return nil, boom })

	_, err := Check(context.Background(), failing, modeled("S-1"))
	assert.ErrorIs(t, err, boom)
}

type rosterFunc func(ctx context.Context) ([]string, error)

func (f rosterFunc) Enrolled(ctx context.Context) ([]string, error) { return f(ctx) }

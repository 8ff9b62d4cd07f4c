//go:build !windows

package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/shimkit/pkg/types"
)

func TestOpenLiveUnsupported(t *testing.T) {
	_, err := OpenLive()
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrUnsupported)

	var l LiveSource
	_, err = l.AppCompatCache(context.Background(), -1)
	assert.True(t, types.IsKind(err, types.ErrKindUnsupported))
}

package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFiletimeRoundTrip(t *testing.T) {
	want := time.Date(2019, 3, 14, 15, 9, 26, 535897900, time.UTC)
	got := FiletimeToTime(TimeToFiletime(want))
	assert.True(t, want.Equal(got), "got %v want %v", got, want)
}

func TestFiletimeEpochs(t *testing.T) {
	assert.Equal(t, time.Date(1601, 1, 1, 0, 0, 0, 0, time.UTC), FiletimeToTime(0))
	assert.Equal(t, time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), FiletimeToTime(116444736000000000))
	assert.Equal(t, time.Date(1602, 1, 1, 0, 0, 0, 0, time.UTC), FiletimeToTime(FiletimeYear1602))
	assert.Equal(t, 9999, FiletimeToTime(FiletimeMax).Year())
	assert.Equal(t, uint64(0), TimeToFiletime(time.Date(1500, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestFiletimeBeforeUnixEpoch(t *testing.T) {
	want := time.Date(1965, 7, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, want, FiletimeToTime(TimeToFiletime(want)))
}

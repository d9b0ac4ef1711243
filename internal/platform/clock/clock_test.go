package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDate(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*60*60)

	t.Run("uses the UTC calendar day", func(t *testing.T) {
		in := time.Date(2024, 3, 10, 23, 30, 0, 0, loc)
		assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), Date(in))
	})

	t.Run("same instant gives same day in any zone", func(t *testing.T) {
		in := time.Date(2024, 3, 10, 20, 0, 0, 0, loc)
		assert.Equal(t, Date(in.UTC()), Date(in))
		assert.Equal(t, time.Date(2024, 3, 10, 23, 0, 0, 0, time.UTC), in.UTC())
	})

	t.Run("midnight stays on the same day", func(t *testing.T) {
		in := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, in, Date(in))
	})
}

func TestToday(t *testing.T) {
	c := Fixed(time.Date(2024, 1, 31, 15, 4, 5, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), Today(c))
}

package availability

import (
	"context"
	"errors"
	"staybook/pkg/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2022, 8, d, 0, 0, 0, 0, time.UTC)
}

type stubFinder struct {
	reservations []*model.Reservation
	err          error
	gotExclude   string
}

func (s *stubFinder) FindOverlapping(ctx context.Context, checkIn, checkOut time.Time, excludeID string) ([]*model.Reservation, error) {
	s.gotExclude = excludeID
	return s.reservations, s.err
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name     string
		cIn      time.Time
		cOut     time.Time
		wantHits bool
	}{
		{"identical", day(5), day(10), true},
		{"candidate inside existing", day(6), day(8), true},
		{"existing inside candidate", day(1), day(20), true},
		{"starts on existing check_out", day(10), day(12), true},
		{"ends on existing check_in", day(1), day(5), true},
		{"one millisecond after check_out", day(10).Add(time.Millisecond), day(12), false},
		{"one millisecond before check_in", day(1), day(5).Add(-time.Millisecond), false},
		{"entirely before", day(1), day(3), false},
		{"entirely after", day(11), day(15), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Overlaps(day(5), day(10), tt.cIn, tt.cOut)
			assert.Equal(t, tt.wantHits, got)
			assert.Equal(t, got, Overlaps(tt.cIn, tt.cOut, day(5), day(10)), "overlap must be symmetric")
		})
	}
}

func TestFindConflicts(t *testing.T) {
	a := &model.Reservation{ID: "a", CheckIn: day(5), CheckOut: day(10)}
	b := &model.Reservation{ID: "b", CheckIn: day(20), CheckOut: day(25)}

	t.Run("touching boundary conflicts", func(t *testing.T) {
		finder := &stubFinder{reservations: []*model.Reservation{a}}
		conflicts, err := NewChecker(finder).FindConflicts(context.Background(), day(10), day(12), "")
		require.NoError(t, err)
		require.Len(t, conflicts, 1)
		assert.Equal(t, "a", conflicts[0].ID)
	})

	t.Run("over-returned rows are filtered", func(t *testing.T) {
		finder := &stubFinder{reservations: []*model.Reservation{a, b}}
		conflicts, err := NewChecker(finder).FindConflicts(context.Background(), day(10).Add(time.Millisecond), day(12), "")
		require.NoError(t, err)
		assert.Empty(t, conflicts)
	})

	t.Run("excluded id never conflicts", func(t *testing.T) {
		finder := &stubFinder{reservations: []*model.Reservation{a}}
		conflicts, err := NewChecker(finder).FindConflicts(context.Background(), day(5), day(10), "a")
		require.NoError(t, err)
		assert.Empty(t, conflicts)
		assert.Equal(t, "a", finder.gotExclude)
	})

	t.Run("storage error is returned", func(t *testing.T) {
		boom := errors.New("connection reset")
		finder := &stubFinder{err: boom}
		_, err := NewChecker(finder).FindConflicts(context.Background(), day(5), day(10), "")
		assert.ErrorIs(t, err, boom)
	})
}

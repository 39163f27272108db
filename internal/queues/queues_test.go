package queues

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spenser.io/synthpop/internal/model"
	"spenser.io/synthpop/internal/sampling"
)

func table(t *testing.T, rows []model.Person) *model.PersonTable {
	t.Helper()
	tbl, err := model.NewPersonTable(rows)
	require.NoError(t, err)
	return tbl
}

func TestNewAllUnmatched(t *testing.T) {
	tbl := table(t, []model.Person{
		{PID: 1, MSOA: "M1", Sex: 1, Age: 30, Eth: 2, HID: model.NoHID},
		{PID: 2, MSOA: "M1", Sex: 2, Age: 10, Eth: 2, HID: model.NoHID},
		{PID: 3, MSOA: "M2", Sex: 1, Age: 80, Eth: 3, HID: model.NoHID},
	})
	q := New(tbl, sampling.NewRand(0))

	assert.Len(t, q.Unmatched, 3)
	assert.Empty(t, q.Matched)
}

func TestSampleAdultExactMatch(t *testing.T) {
	tbl := table(t, []model.Person{
		{PID: 1, MSOA: "M1", Sex: 1, Age: 30, Eth: 2, HID: model.NoHID},
		{PID: 2, MSOA: "M1", Sex: 2, Age: 30, Eth: 2, HID: model.NoHID},
	})
	q := New(tbl, sampling.NewRand(0))

	pid, ok := q.SampleAdult("M1", 30, 1, 2)
	require.True(t, ok)
	assert.Equal(t, model.PID(1), pid)
	_, inMatched := q.Matched[pid]
	assert.True(t, inMatched)
	_, inUnmatched := q.Unmatched[pid]
	assert.False(t, inUnmatched)

	// The same person must never be sampled twice.
	pid2, ok := q.SampleAdult("M1", 30, 1, 2)
	require.True(t, ok)
	assert.Equal(t, model.PID(2), pid2)

	_, ok = q.SampleAdult("M1", 30, 1, 2)
	assert.False(t, ok)
}

func TestSampleAdultRelaxation(t *testing.T) {
	// No exact (age,sex,eth); no (sex,eth); falls through to (sex), then to
	// age-closest over all adults in the area.
	tbl := table(t, []model.Person{
		{PID: 1, MSOA: "M1", Sex: 2, Age: 60, Eth: 5, HID: model.NoHID},
		{PID: 2, MSOA: "M1", Sex: 2, Age: 33, Eth: 5, HID: model.NoHID},
	})
	q := New(tbl, sampling.NewRand(0))

	// Sex 2 exists with eth 5 but not eth 2: level 2 misses, level 3 hits.
	pid, ok := q.SampleAdult("M1", 30, 2, 2)
	require.True(t, ok)
	assert.Contains(t, []model.PID{1, 2}, pid)

	// Sex 1 has no queues at all: level 4 picks the age-closest adult.
	_, ok = q.SampleAdult("M1", 32, 1, 2)
	require.True(t, ok)
	// Exhausted after both are taken.
	_, ok = q.SampleAdult("M1", 32, 1, 2)
	assert.False(t, ok)
}

func TestSampleAdultAgeClosest(t *testing.T) {
	tbl := table(t, []model.Person{
		{PID: 1, MSOA: "M1", Sex: 1, Age: 70, Eth: 2, HID: model.NoHID},
		{PID: 2, MSOA: "M1", Sex: 1, Age: 31, Eth: 2, HID: model.NoHID},
	})
	q := New(tbl, sampling.NewRand(0))

	// Requested sex 2 never matches levels 1-3; the closest-age rule must
	// pick the 31-year-old for a request of 30.
	pid, ok := q.SampleAdult("M1", 30, 2, 9)
	require.True(t, ok)
	assert.Equal(t, model.PID(2), pid)
}

func TestSampleAdultNeverRelaxesArea(t *testing.T) {
	tbl := table(t, []model.Person{
		{PID: 1, MSOA: "M2", Sex: 1, Age: 30, Eth: 2, HID: model.NoHID},
	})
	q := New(tbl, sampling.NewRand(0))

	_, ok := q.SampleAdult("M1", 30, 1, 2)
	assert.False(t, ok)
}

func TestSampleChildNoAreaFallback(t *testing.T) {
	// An adult in the area must never satisfy a child request, and a child of
	// the wrong sex must not be reached (no fallback past the per-sex queue).
	tbl := table(t, []model.Person{
		{PID: 1, MSOA: "M1", Sex: 1, Age: 40, Eth: 2, HID: model.NoHID},
		{PID: 2, MSOA: "M1", Sex: 2, Age: 9, Eth: 2, HID: model.NoHID},
	})
	q := New(tbl, sampling.NewRand(0))

	_, ok := q.SampleChild("M1", 10, 1, 2)
	assert.False(t, ok)

	pid, ok := q.SampleChild("M1", 10, 2, 3)
	require.True(t, ok)
	assert.Equal(t, model.PID(2), pid)
}

func TestSampleChildAgeClosest(t *testing.T) {
	tbl := table(t, []model.Person{
		{PID: 1, MSOA: "M1", Sex: 1, Age: 3, Eth: 2, HID: model.NoHID},
		{PID: 2, MSOA: "M1", Sex: 1, Age: 15, Eth: 2, HID: model.NoHID},
	})
	q := New(tbl, sampling.NewRand(0))

	pid, ok := q.SampleChild("M1", 14, 1, 9)
	require.True(t, ok)
	assert.Equal(t, model.PID(2), pid)
}

func TestSampleAdultAny(t *testing.T) {
	tbl := table(t, []model.Person{
		{PID: 1, MSOA: "M1", Sex: 1, Age: 30, Eth: 2, HID: model.NoHID},
		{PID: 2, MSOA: "M1", Sex: 2, Age: 12, Eth: 2, HID: model.NoHID},
	})
	q := New(tbl, sampling.NewRand(0))

	pid, ok := q.SampleAdultAny("M1")
	require.True(t, ok)
	assert.Equal(t, model.PID(1), pid)

	// Only the adult is eligible.
	_, ok = q.SampleAdultAny("M1")
	assert.False(t, ok)
}

func TestBandMembership(t *testing.T) {
	tbl := table(t, []model.Person{
		{PID: 1, MSOA: "M1", Sex: 1, Age: 80, Eth: 2, HID: model.NoHID},
		{PID: 2, MSOA: "M1", Sex: 1, Age: 20, Eth: 2, HID: model.NoHID},
		{PID: 3, MSOA: "M1", Sex: 1, Age: 17, Eth: 2, HID: model.NoHID},
	})
	q := New(tbl, sampling.NewRand(0))

	pid, ok := q.SampleBand(BandOver75, "M1")
	require.True(t, ok)
	assert.Equal(t, model.PID(1), pid)
	_, ok = q.SampleBand(BandOver75, "M1")
	assert.False(t, ok)

	pid, ok = q.SampleBand(Band19To25, "M1")
	require.True(t, ok)
	assert.Equal(t, model.PID(2), pid)

	// Over-16 band includes every adult, but 1 and 2 are already matched.
	pid, ok = q.SampleBand(BandOver16, "M1")
	require.True(t, ok)
	assert.Equal(t, model.PID(3), pid)
}

func TestReturnToBandRestoresUnmatched(t *testing.T) {
	tbl := table(t, []model.Person{
		{PID: 1, MSOA: "M1", Sex: 1, Age: 80, Eth: 2, HID: model.NoHID},
		{PID: 2, MSOA: "M1", Sex: 2, Age: 81, Eth: 2, HID: model.NoHID},
	})
	q := New(tbl, sampling.NewRand(0))

	a, ok := q.SampleBand(BandOver75, "M1")
	require.True(t, ok)
	b, ok := q.SampleBand(BandOver75, "M1")
	require.True(t, ok)
	_, ok = q.SampleBand(BandOver75, "M1")
	require.False(t, ok)

	q.ReturnToBand(BandOver75, "M1", []model.PID{b, a})

	assert.Len(t, q.Unmatched, 2)
	assert.Empty(t, q.Matched)

	// Both must be poppable again.
	_, ok = q.SampleBand(BandOver75, "M1")
	assert.True(t, ok)
	_, ok = q.SampleBand(BandOver75, "M1")
	assert.True(t, ok)
}

func TestLazyDeletionSkipsStaleEntries(t *testing.T) {
	tbl := table(t, []model.Person{
		{PID: 1, MSOA: "M1", Sex: 1, Age: 30, Eth: 2, HID: model.NoHID},
	})
	q := New(tbl, sampling.NewRand(0))

	// Take through the exact index, then through a relaxed index holding a
	// stale entry for the same person.
	pid, ok := q.SampleAdult("M1", 30, 1, 2)
	require.True(t, ok)
	require.Equal(t, model.PID(1), pid)

	_, ok = q.SampleAdultAny("M1")
	assert.False(t, ok)
}

func TestMarkMatched(t *testing.T) {
	tbl := table(t, []model.Person{
		{PID: 1, MSOA: "M1", Sex: 1, Age: 30, Eth: 2, HID: model.NoHID},
	})
	q := New(tbl, sampling.NewRand(0))

	q.MarkMatched(1)
	assert.Len(t, q.Matched, 1)
	assert.Empty(t, q.Unmatched)

	_, ok := q.SampleAdultAny("M1")
	assert.False(t, ok)
}

func TestDeterministicConstruction(t *testing.T) {
	rows := make([]model.Person, 0, 40)
	for i := 0; i < 40; i++ {
		rows = append(rows, model.Person{
			PID: model.PID(i), MSOA: "M1", Sex: model.Sex(1 + i%2),
			Age: model.Age(5 + i), Eth: model.Eth(2 + i%3), HID: model.NoHID,
		})
	}
	a := New(table(t, rows), sampling.NewRand(17))
	b := New(table(t, rows), sampling.NewRand(17))

	for i := 0; i < 20; i++ {
		pa, oka := a.SampleAdultAny("M1")
		pb, okb := b.SampleAdultAny("M1")
		require.Equal(t, oka, okb)
		require.Equal(t, pa, pb)
	}
}

// Package queues implements the sampling-queue structure over the unmatched
// person population: a multi-key inverted index with lazy deletion supporting
// staged relaxed matching.
//
// Every queue is shuffled exactly once at construction using the shared
// seeded source and consumed from the tail. A person appears in several
// queues at once, so queues accumulate stale entries as people are matched
// elsewhere; the pop-and-skip filter on take enforces at-most-once
// assignment. The authoritative state is the matched/unmatched pair.
package queues

import (
	"math/rand"
	"sort"

	"spenser.io/synthpop/internal/model"
)

type aseKey struct {
	MSOA model.MSOA
	Age  model.Age
	Sex  model.Sex
	Eth  model.Eth
}

type seKey struct {
	MSOA model.MSOA
	Sex  model.Sex
	Eth  model.Eth
}

type sKey struct {
	MSOA model.MSOA
	Sex  model.Sex
}

// Band selects one of the age-band queues used for communal establishments.
type Band int

const (
	BandOver75 Band = iota
	Band19To25
	BandOver16
)

// Queues indexes unmatched persons by several keys. All queue contents are
// shuffled once at construction; maps are iterated through sorted key slices
// so the shuffle order is reproducible.
type Queues struct {
	Unmatched map[model.PID]struct{}
	Matched   map[model.PID]struct{}

	people *model.PersonTable

	peopleByAreaASE map[aseKey][]model.PID
	adultsByAreaSE  map[seKey][]model.PID
	adultsByAreaS   map[sKey][]model.PID
	adultsByArea    map[model.MSOA][]model.PID
	childrenByAreaSE map[seKey][]model.PID
	childrenByAreaS  map[sKey][]model.PID

	peopleByAreaOver75  map[model.MSOA][]model.PID
	peopleByArea19To25  map[model.MSOA][]model.PID
	peopleByAreaOver16  map[model.MSOA][]model.PID
}

// New builds the queue set over the person table and shuffles every queue
// with rng. Construction order and shuffle order are fully deterministic.
func New(people *model.PersonTable, rng *rand.Rand) *Queues {
	q := &Queues{
		Unmatched: make(map[model.PID]struct{}, people.Len()),
		Matched:   make(map[model.PID]struct{}),

		people: people,

		peopleByAreaASE:  make(map[aseKey][]model.PID),
		adultsByAreaSE:   make(map[seKey][]model.PID),
		adultsByAreaS:    make(map[sKey][]model.PID),
		adultsByArea:     make(map[model.MSOA][]model.PID),
		childrenByAreaSE: make(map[seKey][]model.PID),
		childrenByAreaS:  make(map[sKey][]model.PID),

		peopleByAreaOver75: make(map[model.MSOA][]model.PID),
		peopleByArea19To25: make(map[model.MSOA][]model.PID),
		peopleByAreaOver16: make(map[model.MSOA][]model.PID),
	}

	for i := range people.Rows {
		p := &people.Rows[i]
		q.Unmatched[p.PID] = struct{}{}
		area := p.MSOA
		q.peopleByAreaASE[aseKey{area, p.Age, p.Sex, p.Eth}] = append(
			q.peopleByAreaASE[aseKey{area, p.Age, p.Sex, p.Eth}], p.PID)
		if p.IsAdult() {
			q.adultsByAreaSE[seKey{area, p.Sex, p.Eth}] = append(
				q.adultsByAreaSE[seKey{area, p.Sex, p.Eth}], p.PID)
			q.adultsByAreaS[sKey{area, p.Sex}] = append(
				q.adultsByAreaS[sKey{area, p.Sex}], p.PID)
			q.adultsByArea[area] = append(q.adultsByArea[area], p.PID)
		} else {
			q.childrenByAreaSE[seKey{area, p.Sex, p.Eth}] = append(
				q.childrenByAreaSE[seKey{area, p.Sex, p.Eth}], p.PID)
			q.childrenByAreaS[sKey{area, p.Sex}] = append(
				q.childrenByAreaS[sKey{area, p.Sex}], p.PID)
		}
		if p.Age > 75 {
			q.peopleByAreaOver75[area] = append(q.peopleByAreaOver75[area], p.PID)
		}
		if p.Age > 18 && p.Age < 26 {
			q.peopleByArea19To25[area] = append(q.peopleByArea19To25[area], p.PID)
		}
		if p.Age > 16 {
			q.peopleByAreaOver16[area] = append(q.peopleByAreaOver16[area], p.PID)
		}
	}

	q.shuffleAll(rng)
	return q
}

func shuffleQueue(rng *rand.Rand, v []model.PID) {
	rng.Shuffle(len(v), func(i, j int) { v[i], v[j] = v[j], v[i] })
}

// shuffleAll shuffles every queue once, visiting maps in a fixed sequence and
// each map's queues in sorted key order.
func (q *Queues) shuffleAll(rng *rand.Rand) {
	aseKeys := make([]aseKey, 0, len(q.peopleByAreaASE))
	for k := range q.peopleByAreaASE {
		aseKeys = append(aseKeys, k)
	}
	sort.Slice(aseKeys, func(i, j int) bool {
		a, b := aseKeys[i], aseKeys[j]
		if a.MSOA != b.MSOA {
			return a.MSOA < b.MSOA
		}
		if a.Age != b.Age {
			return a.Age < b.Age
		}
		if a.Sex != b.Sex {
			return a.Sex < b.Sex
		}
		return a.Eth < b.Eth
	})
	for _, k := range aseKeys {
		shuffleQueue(rng, q.peopleByAreaASE[k])
	}

	for _, m := range []map[seKey][]model.PID{q.adultsByAreaSE, q.childrenByAreaSE} {
		keys := make([]seKey, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			a, b := keys[i], keys[j]
			if a.MSOA != b.MSOA {
				return a.MSOA < b.MSOA
			}
			if a.Sex != b.Sex {
				return a.Sex < b.Sex
			}
			return a.Eth < b.Eth
		})
		for _, k := range keys {
			shuffleQueue(rng, m[k])
		}
	}

	for _, m := range []map[sKey][]model.PID{q.adultsByAreaS, q.childrenByAreaS} {
		keys := make([]sKey, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			a, b := keys[i], keys[j]
			if a.MSOA != b.MSOA {
				return a.MSOA < b.MSOA
			}
			return a.Sex < b.Sex
		})
		for _, k := range keys {
			shuffleQueue(rng, m[k])
		}
	}

	for _, m := range []map[model.MSOA][]model.PID{
		q.adultsByArea, q.peopleByAreaOver75, q.peopleByArea19To25, q.peopleByAreaOver16,
	} {
		keys := make([]model.MSOA, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		for _, k := range keys {
			shuffleQueue(rng, m[k])
		}
	}
}

// take pops from the queue's tail until an unmatched person is found, moves
// it to matched and returns it. Stale (already matched) entries are dropped.
func (q *Queues) take(v *[]model.PID) (model.PID, bool) {
	queue := *v
	for len(queue) > 0 {
		pid := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if _, matched := q.Matched[pid]; matched {
			continue
		}
		delete(q.Unmatched, pid)
		q.Matched[pid] = struct{}{}
		*v = queue
		return pid, true
	}
	*v = queue
	return model.NoPID, false
}

// prune drops entries already matched, preserving encounter order.
func (q *Queues) prune(v []model.PID) []model.PID {
	kept := v[:0]
	for _, pid := range v {
		if _, matched := q.Matched[pid]; !matched {
			kept = append(kept, pid)
		}
	}
	return kept
}

// closest returns the position of the person whose age differs least from
// age, ties broken by encounter order. The queue must contain no matched
// entries.
func (q *Queues) closest(age model.Age, v []model.PID) (int, bool) {
	if len(v) == 0 {
		return 0, false
	}
	best := 0
	bestDiff := ageDiff(q.people.Get(v[0]).Age, age)
	for i := 1; i < len(v); i++ {
		if d := ageDiff(q.people.Get(v[i]).Age, age); d < bestDiff {
			best, bestDiff = i, d
		}
	}
	return best, true
}

func ageDiff(a, b model.Age) model.Age {
	if a > b {
		return a - b
	}
	return b - a
}

// SampleAdult finds an unmatched adult for the requested demographics,
// relaxing ethnicity, then sex, then age. Area is never relaxed.
func (q *Queues) SampleAdult(msoa model.MSOA, age model.Age, sex model.Sex, eth model.Eth) (model.PID, bool) {
	if pid, ok := takeKeyed(q, q.peopleByAreaASE, aseKey{msoa, age, sex, eth}); ok {
		return pid, true
	}
	if pid, ok := takeKeyed(q, q.adultsByAreaSE, seKey{msoa, sex, eth}); ok {
		return pid, true
	}
	if pid, ok := takeKeyed(q, q.adultsByAreaS, sKey{msoa, sex}); ok {
		return pid, true
	}
	if v, ok := q.adultsByArea[msoa]; ok {
		v = q.prune(v)
		if idx, ok := q.closest(age, v); ok {
			pid := v[idx]
			v = append(v[:idx], v[idx+1:]...)
			q.adultsByArea[msoa] = v
			delete(q.Unmatched, pid)
			q.Matched[pid] = struct{}{}
			return pid, true
		}
		q.adultsByArea[msoa] = v
	}
	return model.NoPID, false
}

// SampleChild finds an unmatched child for the requested demographics,
// relaxing ethnicity then age. There is no fallback past the per-sex queue.
func (q *Queues) SampleChild(msoa model.MSOA, age model.Age, sex model.Sex, eth model.Eth) (model.PID, bool) {
	if pid, ok := takeKeyed(q, q.peopleByAreaASE, aseKey{msoa, age, sex, eth}); ok {
		return pid, true
	}
	if pid, ok := takeKeyed(q, q.childrenByAreaSE, seKey{msoa, sex, eth}); ok {
		return pid, true
	}
	if v, ok := q.childrenByAreaS[sKey{msoa, sex}]; ok {
		v = q.prune(v)
		if idx, ok := q.closest(age, v); ok {
			pid := v[idx]
			v = append(v[:idx], v[idx+1:]...)
			q.childrenByAreaS[sKey{msoa, sex}] = v
			delete(q.Unmatched, pid)
			q.Matched[pid] = struct{}{}
			return pid, true
		}
		q.childrenByAreaS[sKey{msoa, sex}] = v
	}
	return model.NoPID, false
}

// SampleAdultAny takes any unmatched adult in the area.
func (q *Queues) SampleAdultAny(msoa model.MSOA) (model.PID, bool) {
	return takeKeyed(q, q.adultsByArea, msoa)
}

func (q *Queues) bandQueue(band Band) map[model.MSOA][]model.PID {
	switch band {
	case BandOver75:
		return q.peopleByAreaOver75
	case Band19To25:
		return q.peopleByArea19To25
	default:
		return q.peopleByAreaOver16
	}
}

// SampleBand takes an unmatched person from the area's age-band queue.
func (q *Queues) SampleBand(band Band, msoa model.MSOA) (model.PID, bool) {
	return takeKeyed(q, q.bandQueue(band), msoa)
}

// ReturnToBand pushes previously sampled persons back onto their band queue
// and restores them to the unmatched set.
func (q *Queues) ReturnToBand(band Band, msoa model.MSOA, pids []model.PID) {
	m := q.bandQueue(band)
	for _, pid := range pids {
		m[msoa] = append(m[msoa], pid)
		delete(q.Matched, pid)
		q.Unmatched[pid] = struct{}{}
	}
}

// MarkMatched moves a person from unmatched to matched without touching any
// queue; stale queue entries are skipped on later pops.
func (q *Queues) MarkMatched(pid model.PID) {
	delete(q.Unmatched, pid)
	q.Matched[pid] = struct{}{}
}

// takeKeyed is take over a map entry, writing the shrunk queue back.
func takeKeyed[K comparable](q *Queues, m map[K][]model.PID, key K) (model.PID, bool) {
	v, ok := m[key]
	if !ok {
		return model.NoPID, false
	}
	pid, found := q.take(&v)
	m[key] = v
	return pid, found
}

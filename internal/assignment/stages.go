package assignment

import (
	"fmt"

	"spenser.io/synthpop/internal/logging"
	"spenser.io/synthpop/internal/model"
	"spenser.io/synthpop/internal/queues"
	"spenser.io/synthpop/internal/sampling"
)

func contains(vs []int, v int) bool {
	for _, x := range vs {
		if x == v {
			return true
		}
	}
	return false
}

// sampleHRP assigns a reference person to every household in the OA set that
// lacks one, class by class in the fixed sgl, cpl, sp, mix order. Reference
// persons must always match; an exhausted area is fatal.
func (a *Assignment) sampleHRP(msoa model.MSOA, oas map[model.OA]struct{}) error {
	for _, class := range hrpClasses {
		dist := a.dists.HRP[class.kind]

		hRef := a.selectHouseholds(oas, func(h *model.Household) bool {
			return contains(class.comps, h.Composition) && h.HRPID == model.NoPID
		})
		if len(hRef) == 0 {
			continue
		}

		weights := make([]int, len(dist))
		for i := range dist {
			weights[i] = dist[i].N
		}
		wi, err := sampling.NewWeightedIndex(weights)
		if err != nil {
			return fmt.Errorf("HRP table %q: %w", class.kind, err)
		}

		// Draw the whole sample for the class up front, one row per
		// candidate household, then match pairwise. Keeps the draw order
		// independent of match outcomes.
		sample := make([]*model.HRPRow, len(hRef))
		for i := range hRef {
			sample[i] = &dist[wi.Sample(a.rng)]
		}

		for i, household := range hRef {
			row := sample[i]
			if row.Sex == model.SexUnknown {
				return fmt.Errorf("HRP table %q: sampled row (age %d, eth %d) has no sex", class.kind, row.Age, row.Eth)
			}
			pid, ok := a.Queues.SampleAdult(msoa, row.Age, row.Sex, row.Eth)
			if !ok {
				return fmt.Errorf("no match for reference person (age %d, sex %d, eth %d) in %s",
					row.Age, row.Sex, row.Eth, msoa)
			}
			household.HRPID = pid
			if err := a.assignPerson(pid, household.HID); err != nil {
				return err
			}
			if household.Composition == model.CompSingleOccupant {
				household.Filled = true
			}
		}
	}
	return nil
}

type ageEthKey struct {
	Age model.Age
	Eth model.Eth
}

// hrpOf resolves a household's reference person; by stage B every selected
// household must have one.
func (a *Assignment) hrpOf(h *model.Household) (*model.Person, error) {
	if h.HRPID == model.NoPID {
		return nil, fmt.Errorf("household %d has no reference person", h.HID)
	}
	p := a.People.Get(h.HRPID)
	if p == nil {
		return nil, fmt.Errorf("household %d references invalid person %d", h.HID, h.HRPID)
	}
	return p, nil
}

// samplePartner assigns a partner to couple households that are not yet
// filled. Partner misses are tolerated and logged.
func (a *Assignment) samplePartner(msoa model.MSOA, oas map[model.OA]struct{}) error {
	hRef := a.selectHouseholds(oas, func(h *model.Household) bool {
		return (h.Composition == model.CompCoupleNoDeps || h.Composition == model.CompCoupleDeps) && !h.Filled
	})
	if len(hRef) == 0 {
		return nil
	}

	// Subsampling views, materialized once per MSOA pass.
	byAgeEth := make(map[ageEthKey][]sampling.Weighted)
	byAge := make(map[model.Age][]sampling.Weighted)
	whole := make([]sampling.Weighted, 0, len(a.dists.Partner))
	for i := range a.dists.Partner {
		row := &a.dists.Partner[i]
		w := sampling.Weighted{Idx: i, N: row.N}
		k := ageEthKey{row.AgeHRP, row.Eth}
		byAgeEth[k] = append(byAgeEth[k], w)
		byAge[row.AgeHRP] = append(byAge[row.AgeHRP], w)
		whole = append(whole, w)
	}

	for _, household := range hRef {
		hrp, err := a.hrpOf(household)
		if err != nil {
			return err
		}

		dist, ok := byAgeEth[ageEthKey{hrp.Age, hrp.Eth}]
		if !ok {
			logging.Warn("Partner-HRP not sampled: %d, %d, %d - resample without eth",
				hrp.Age, hrp.Sex, hrp.Eth)
			dist, ok = byAge[hrp.Age]
			if !ok {
				logging.Warn("Partner-HRP not sampled: %d, %d, %d", hrp.Age, hrp.Sex, hrp.Eth)
				dist = whole
			}
		}

		idx, err := sampling.ChooseWeighted(a.rng, dist)
		if err != nil {
			return fmt.Errorf("partner distribution: %w", err)
		}
		row := &a.dists.Partner[idx]
		sex := hrp.Sex.Opposite()
		if row.SameSex {
			sex = hrp.Sex
		}

		pid, ok := a.Queues.SampleAdult(msoa, row.Age, sex, row.EthnicityEW)
		if !ok {
			logging.Error("No partner match for household %d", household.HID)
			continue
		}
		if err := a.assignPerson(pid, household.HID); err != nil {
			return err
		}
		if household.Size == 2 {
			household.Filled = true
		}
	}
	return nil
}

// sampleChild assigns one child to each household of the given size and
// parent kind. Single-parent households fall back through progressively
// coarser views; couple households only use the exact view and are skipped
// when it is absent. Child misses are tolerated and logged.
func (a *Assignment) sampleChild(msoa model.MSOA, oas map[model.OA]struct{}, size int, markFilled bool, parent parentKind) error {
	hRef := a.selectHouseholds(oas, func(h *model.Household) bool {
		if h.Size != size || h.Filled {
			return false
		}
		if parent == parentSingle {
			return h.Composition == model.CompSingleParent
		}
		return h.Composition == model.CompCoupleNoDeps || h.Composition == model.CompCoupleDeps
	})
	if len(hRef) == 0 {
		return nil
	}

	byAgeEth := make(map[ageEthKey][]sampling.Weighted)
	byAge := make(map[model.Age][]sampling.Weighted)
	byEth := make(map[model.Eth][]sampling.Weighted)
	whole := make([]sampling.Weighted, 0, len(a.dists.Child))
	for i := range a.dists.Child {
		row := &a.dists.Child[i]
		w := sampling.Weighted{Idx: i, N: row.N}
		k := ageEthKey{row.AgeHRP, row.Eth}
		byAgeEth[k] = append(byAgeEth[k], w)
		byAge[row.AgeHRP] = append(byAge[row.AgeHRP], w)
		byEth[row.Eth] = append(byEth[row.Eth], w)
		whole = append(whole, w)
	}

	for _, household := range hRef {
		hrp, err := a.hrpOf(household)
		if err != nil {
			return err
		}

		var dist []sampling.Weighted
		if d, ok := byAgeEth[ageEthKey{hrp.Age, hrp.Eth}]; ok {
			dist = d
		} else if parent == parentCouple {
			logging.Warn("child-HRP not sampled: %d, %d, %d", hrp.Age, hrp.Sex, hrp.Eth)
			continue
		} else if d, ok := byAge[hrp.Age]; ok {
			dist = d
		} else if d, ok := byEth[hrp.Eth]; ok {
			dist = d
		} else {
			dist = whole
		}

		idx, err := sampling.ChooseWeighted(a.rng, dist)
		if err != nil {
			return fmt.Errorf("child distribution: %w", err)
		}
		row := &a.dists.Child[idx]

		pid, ok := a.Queues.SampleChild(msoa, row.Age, row.Sex, row.Eth)
		if !ok {
			logging.Warn("child not found, age: %d, sex: %d, eth: %d", row.Age, row.Sex, row.Eth)
			continue
		}
		if err := a.assignPerson(pid, household.HID); err != nil {
			return err
		}
		if markFilled {
			household.Filled = true
		}
	}
	return nil
}

// fillMulti places one adult into each unfilled mixed household, marking a
// household filled when its size matches this call's size. Queue exhaustion
// logs the remaining demand and abandons the call.
func (a *Assignment) fillMulti(msoa model.MSOA, oas map[model.OA]struct{}, size int, markFilled bool) {
	hRef := a.selectHouseholds(oas, func(h *model.Household) bool {
		return h.Composition == model.CompMixed && !h.Filled
	})

	for i, household := range hRef {
		pid, ok := a.Queues.SampleAdultAny(msoa)
		if !ok {
			logging.Warn("Out of multi-people, need %d households for %d", len(hRef), i+1)
			break
		}
		// The table is the source of these PIDs; resolution cannot fail.
		_ = a.assignPerson(pid, household.HID)
		if markFilled && household.Size == size {
			household.Filled = true
		}
	}
}

func communalBand(ctype int) queues.Band {
	switch {
	case ctype < 22:
		return queues.BandOver75
	case ctype < 27:
		return queues.Band19To25
	default:
		return queues.BandOver16
	}
}

// fillCommunal draws each communal establishment's occupants from the age
// band matching its type. If the band runs dry the partial draw is pushed
// back; the establishment is marked filled either way.
func (a *Assignment) fillCommunal(msoa model.MSOA, oas map[model.OA]struct{}) {
	cRef := a.selectHouseholds(oas, func(h *model.Household) bool {
		return h.Communal()
	})

	for _, household := range cRef {
		band := communalBand(household.CommunalType)
		if n := household.CommunalSize; n > 0 {
			pids := make([]model.PID, 0, n)
			for len(pids) < n {
				pid, ok := a.Queues.SampleBand(band, msoa)
				if !ok {
					break
				}
				pids = append(pids, pid)
			}
			if len(pids) < n {
				logging.Warn("cannot assign to communal household %d (type %d, size %d): band exhausted after %d",
					household.HID, household.CommunalType, n, len(pids))
				a.Queues.ReturnToBand(band, msoa, pids)
			} else {
				for _, pid := range pids {
					_ = a.assignPerson(pid, household.HID)
				}
			}
		}
		household.Filled = true
	}
}

// assignSurplusAdults scatters leftover adults over the unfilled mixed
// households of the area, uniformly at random.
func (a *Assignment) assignSurplusAdults(msoa model.MSOA, oas map[model.OA]struct{}) {
	hCandidates := a.selectHouseholds(oas, func(h *model.Household) bool {
		return h.Composition == model.CompMixed && !h.Filled
	})
	if len(hCandidates) == 0 {
		return
	}

	for i := range a.People.Rows {
		p := &a.People.Rows[i]
		if p.MSOA != msoa || !p.IsAdult() || p.Assigned() {
			continue
		}
		household := hCandidates[a.rng.Intn(len(hCandidates))]
		p.HID = household.HID
		a.Queues.MarkMatched(p.PID)
		logging.Debug("Assigned person: %10d, matched: %6d, unmatched: %6d",
			p.PID, len(a.Queues.Matched), len(a.Queues.Unmatched))
	}
}

// assignSurplusChildren scatters leftover children over unfilled households
// of matching ethnicity, one ethnicity code at a time. Code 1 is excluded.
func (a *Assignment) assignSurplusChildren(msoa model.MSOA, oas map[model.OA]struct{}) {
	for eth := model.Eth(2); eth <= 8; eth++ {
		hCandidates := a.selectHouseholds(oas, func(h *model.Household) bool {
			return h.Eth == eth && !h.Filled &&
				contains([]int{2, 3, 4, 5}, h.Composition)
		})
		if len(hCandidates) == 0 {
			continue
		}

		for i := range a.People.Rows {
			p := &a.People.Rows[i]
			if p.MSOA != msoa || p.IsAdult() || p.Assigned() || p.Eth != eth {
				continue
			}
			household := hCandidates[a.rng.Intn(len(hCandidates))]
			p.HID = household.HID
			a.Queues.MarkMatched(p.PID)
		}
	}
}

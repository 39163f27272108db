package assignment

import (
	"spenser.io/synthpop/internal/logging"
	"spenser.io/synthpop/internal/model"
)

func (a *Assignment) countPeople(keep func(*model.Person) bool) int {
	n := 0
	for i := range a.People.Rows {
		if keep(&a.People.Rows[i]) {
			n++
		}
	}
	return n
}

func (a *Assignment) countHouseholds(keep func(*model.Household) bool) int {
	n := 0
	for i := range a.Households.Rows {
		if keep(&a.Households.Rows[i]) {
			n++
		}
	}
	return n
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(part) / float64(total)
}

// InfoStats logs a summary of assignment progress: assigned and remaining
// people, filled and remaining occupied households.
func (a *Assignment) InfoStats() {
	assignedPeople := a.countPeople(func(p *model.Person) bool { return p.Assigned() })
	totalPeople := a.People.Len()
	filled := a.countHouseholds(func(h *model.Household) bool { return h.Filled })
	occupied := a.countHouseholds(func(h *model.Household) bool { return h.Occupied() })

	logging.Info("%-25s: %6d (%3.2f%%)", "People", assignedPeople, percent(assignedPeople, totalPeople))
	logging.Info("%-25s: %6d", "Remaining people", totalPeople-assignedPeople)
	logging.Info("%-25s: %6d (%3.2f%%)", "Households", filled, percent(filled, occupied))
	logging.Info("%-25s: %6d (+%6d)", "Remaining households",
		a.countHouseholds(func(h *model.Household) bool { return !h.Filled && h.Occupied() }),
		a.countHouseholds(func(h *model.Household) bool { return h.Composition == -1 }))
}

// Check logs the final accounting: households left unfilled by category and
// people left unassigned.
func (a *Assignment) Check() {
	logging.Info("---")
	logging.Info("Checking...")
	logging.Info("---")

	logging.Info("Occupied households without HRP: %d",
		a.countHouseholds(func(h *model.Household) bool {
			return h.Occupied() && h.HRPID == model.NoPID
		}))
	logging.Info("Occupied households not filled: %d of: %d",
		a.countHouseholds(func(h *model.Household) bool { return h.Occupied() && !h.Filled }),
		a.countHouseholds(func(h *model.Household) bool { return h.Occupied() }))

	unfilled := func(comp, size int) int {
		return a.countHouseholds(func(h *model.Household) bool {
			return h.Composition == comp && h.Size == size && !h.Filled
		})
	}
	coupleUnfilled := func(size int) int {
		return a.countHouseholds(func(h *model.Household) bool {
			return (h.Composition == model.CompCoupleNoDeps || h.Composition == model.CompCoupleDeps) &&
				h.Size == size && !h.Filled
		})
	}

	logging.Info("Single-occupant households not filled: %d",
		a.countHouseholds(func(h *model.Household) bool {
			return h.Composition == model.CompSingleOccupant && !h.Filled
		}))
	logging.Info("Single-parent one-child households not filled: %d", unfilled(model.CompSingleParent, 2))
	logging.Info("Single-parent two-child households not filled: %d", unfilled(model.CompSingleParent, 3))
	logging.Info("Single-parent 3+ households not filled: %d", unfilled(model.CompSingleParent, 4))
	logging.Info("Couple households with no children not filled: %d", coupleUnfilled(2))
	logging.Info("Couple households with one child not filled: %d", coupleUnfilled(3))
	logging.Info("Couple households with 2+ children not filled: %d", coupleUnfilled(4))
	logging.Info("Mixed (2,3) households not filled: %d",
		a.countHouseholds(func(h *model.Household) bool {
			return h.Composition == model.CompMixed && h.Size < 4 && !h.Filled
		}))
	logging.Info("Mixed (4+) households not filled: %d",
		a.countHouseholds(func(h *model.Household) bool {
			return h.Composition == model.CompMixed && h.Size >= 4 && !h.Filled
		}))

	logging.Info("Adults not assigned %d of %d",
		a.countPeople(func(p *model.Person) bool { return p.IsAdult() && !p.Assigned() }),
		a.countPeople(func(p *model.Person) bool { return p.IsAdult() }))
	logging.Info("Children not assigned %d of %d",
		a.countPeople(func(p *model.Person) bool { return !p.IsAdult() && !p.Assigned() }),
		a.countPeople(func(p *model.Person) bool { return !p.IsAdult() }))
}

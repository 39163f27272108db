// Package assignment implements the multi-stage stochastic pipeline that
// places synthetic persons into synthetic households. Stages run per MSOA in
// a fixed order; all randomness flows through one seeded source, so a run is
// bit-identical given the same seed and inputs.
package assignment

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/schollz/progressbar/v3"

	"spenser.io/synthpop/internal/ethnicity"
	"spenser.io/synthpop/internal/logging"
	"spenser.io/synthpop/internal/model"
	"spenser.io/synthpop/internal/queues"
	"spenser.io/synthpop/internal/sampling"
)

// AreaLookup resolves an MSOA to its constituent output areas.
type AreaLookup interface {
	OAs(msoa model.MSOA) (map[model.OA]struct{}, error)
}

// Config carries the run parameters the engine needs.
type Config struct {
	Region   string
	Year     int
	Scotland bool
	Strict   bool
	Profile  bool
	Seed     uint64
}

// Distributions bundles the loaded empirical tables. HRP holds one table per
// household-composition kind: sgl, cpl, sp, mix.
type Distributions struct {
	HRP     map[string][]model.HRPRow
	Partner []model.PartnerRow
	Child   []model.ChildRow
}

// hrpClasses fixes the stage-A processing order and the composition classes
// each HRP table covers. The four index sets partition classes 1..5.
var hrpClasses = []struct {
	kind  string
	comps []int
}{
	{"sgl", []int{model.CompSingleOccupant}},
	{"cpl", []int{model.CompCoupleNoDeps, model.CompCoupleDeps}},
	{"sp", []int{model.CompSingleParent}},
	{"mix", []int{model.CompMixed}},
}

type parentKind int

const (
	parentSingle parentKind = iota
	parentCouple
)

// Assignment is the engine state: the mutable population tables, the sampling
// queues, the distribution tables and the shared random source.
type Assignment struct {
	cfg        Config
	People     *model.PersonTable
	Households *model.HouseholdTable
	dists      Distributions
	geog       AreaLookup
	Queues     *queues.Queues
	rng        *rand.Rand
}

// New remaps ethnicities in place, indexes the population and builds the
// shuffled sampling queues. people and households are owned by the engine
// from here on.
func New(cfg Config, people []model.Person, households []model.Household, dists Distributions, geog AreaLookup) (*Assignment, error) {
	if err := ethnicity.Remap(people, households, cfg.Scotland); err != nil {
		return nil, fmt.Errorf("remapping ethnicity: %w", err)
	}
	pTable, err := model.NewPersonTable(people)
	if err != nil {
		return nil, err
	}
	hTable, err := model.NewHouseholdTable(households)
	if err != nil {
		return nil, err
	}
	for _, class := range hrpClasses {
		if _, ok := dists.HRP[class.kind]; !ok {
			return nil, fmt.Errorf("missing HRP distribution table %q", class.kind)
		}
	}
	rng := sampling.NewRand(cfg.Seed)
	return &Assignment{
		cfg:        cfg,
		People:     pTable,
		Households: hTable,
		dists:      dists,
		geog:       geog,
		Queues:     queues.New(pTable, rng),
		rng:        rng,
	}, nil
}

// msoas returns the distinct middle areas of the person population in
// ascending lexical order.
func (a *Assignment) msoas() []model.MSOA {
	seen := make(map[model.MSOA]struct{})
	for i := range a.People.Rows {
		seen[a.People.Rows[i].MSOA] = struct{}{}
	}
	out := make([]model.MSOA, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// selectHouseholds returns, in table order, pointers to households in the OA
// set satisfying keep.
func (a *Assignment) selectHouseholds(oas map[model.OA]struct{}, keep func(*model.Household) bool) []*model.Household {
	var out []*model.Household
	for i := range a.Households.Rows {
		h := &a.Households.Rows[i]
		if _, ok := oas[h.OA]; !ok {
			continue
		}
		if keep(h) {
			out = append(out, h)
		}
	}
	return out
}

func (a *Assignment) assignPerson(pid model.PID, hid model.HID) error {
	p := a.People.Get(pid)
	if p == nil {
		return fmt.Errorf("queue returned invalid person identifier %d", pid)
	}
	p.HID = hid
	logging.Debug("Assigned person: %10d, matched: %6d, unmatched: %6d",
		pid, len(a.Queues.Matched), len(a.Queues.Unmatched))
	return nil
}

// Run executes the stage pipeline over every MSOA.
func (a *Assignment) Run() error {
	msoas := a.msoas()

	var bar *progressbar.ProgressBar
	if a.cfg.Profile {
		bar = progressbar.Default(int64(len(msoas)), "assigning")
	}

	for _, msoa := range msoas {
		oas, err := a.geog.OAs(msoa)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(oas))
		for oa := range oas {
			names = append(names, string(oa))
		}
		sort.Strings(names)
		logging.Info(">>> MSOA: %s", msoa)
		logging.Info(">>> OAs : %s", strings.Join(names, ", "))

		logging.Info(">>> Assigning HRPs")
		if err := a.sampleHRP(msoa, oas); err != nil {
			return err
		}
		a.InfoStats()

		logging.Info(">>> Assigning partners to HRPs where appropriate")
		if err := a.samplePartner(msoa, oas); err != nil {
			return err
		}
		a.InfoStats()

		logging.Info(">>> Assigning child 1 to single-parent households")
		if err := a.sampleChild(msoa, oas, 2, true, parentSingle); err != nil {
			return err
		}
		a.InfoStats()

		logging.Info(">>> Assigning child 2 to single-parent households")
		if err := a.sampleChild(msoa, oas, 3, true, parentSingle); err != nil {
			return err
		}
		a.InfoStats()

		logging.Info(">>> Assigning child 3 to single-parent households")
		if err := a.sampleChild(msoa, oas, 4, true, parentSingle); err != nil {
			return err
		}
		a.InfoStats()

		logging.Info(">>> Assigning child 1 to couple households")
		if err := a.sampleChild(msoa, oas, 3, true, parentCouple); err != nil {
			return err
		}
		a.InfoStats()

		logging.Info(">>> Assigning child 2 to couple households")
		if err := a.sampleChild(msoa, oas, 4, true, parentCouple); err != nil {
			return err
		}
		a.InfoStats()

		logging.Info(">>> Multi-person households")
		a.fillMulti(msoa, oas, 2, true)
		a.fillMulti(msoa, oas, 3, true)
		a.fillMulti(msoa, oas, 4, false)
		a.InfoStats()

		logging.Info(">>> Assigning people to communal establishments")
		a.fillCommunal(msoa, oas)
		a.InfoStats()

		logging.Info(">>> Assigning surplus adults")
		a.assignSurplusAdults(msoa, oas)
		a.InfoStats()

		logging.Info(">>> Assigning surplus children")
		a.assignSurplusChildren(msoa, oas)
		a.InfoStats()

		if bar != nil {
			bar.Add(1)
		}
	}
	return nil
}

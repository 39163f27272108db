// Package pipeline wires the load, assign, check and write steps into one
// run.
package pipeline

import (
	"fmt"
	"strings"

	"spenser.io/synthpop/internal/assignment"
	"spenser.io/synthpop/internal/census"
	"spenser.io/synthpop/internal/config"
	"spenser.io/synthpop/internal/geo"
	"spenser.io/synthpop/internal/logging"
	"spenser.io/synthpop/internal/model"
)

// Input defines all inputs required for the assignment pipeline. Everything
// else comes from the loaded configuration document.
type Input struct {
	Region string
	Seed   uint64
}

// Output reports where the results were written and the final counts.
type Output struct {
	PersonFile      string
	HouseholdFile   string
	AssignedPeople  int
	TotalPeople     int
	FilledHouseholds int
	TotalHouseholds  int
}

func loadDistributions() (assignment.Distributions, error) {
	dists := assignment.Distributions{HRP: make(map[string][]model.HRPRow)}
	for _, kind := range []string{"sgl", "cpl", "sp", "mix"} {
		rows, err := census.ReadHRPTable(census.HRPFile(kind))
		if err != nil {
			return dists, err
		}
		dists.HRP[kind] = rows
	}
	var err error
	if dists.Partner, err = census.ReadPartnerTable(census.PartnerFile()); err != nil {
		return dists, err
	}
	if dists.Child, err = census.ReadChildTable(census.ChildFile()); err != nil {
		return dists, err
	}
	return dists, nil
}

// Run executes the full assignment pipeline for one region.
func Run(input Input) (Output, error) {
	logging.Info("Pipeline started for region %s, seed %d", input.Region, input.Seed)

	if input.Region == "" {
		return Output{}, fmt.Errorf("missing region")
	}

	personRes := config.GetString(config.PersonResolutionKey)
	householdRes := config.GetString(config.HouseholdResolutionKey)
	projection := config.GetString(config.ProjectionKey)
	year := config.GetInt(config.YearKey)
	dataDir := config.GetString(config.DataDirKey)
	scotland := strings.HasPrefix(input.Region, "S")

	pPath := census.PersonFile(dataDir, input.Region, personRes, projection, year)
	hPath := census.HouseholdFile(dataDir, input.Region, householdRes, year)

	logging.Info("Loading persons from %s", pPath)
	people, err := census.ReadPersons(pPath)
	if err != nil {
		return Output{}, err
	}
	logging.Info("Loading households from %s", hPath)
	households, err := census.ReadHouseholds(hPath)
	if err != nil {
		return Output{}, err
	}
	logging.Info("Loaded %d persons, %d households", len(people), len(households))

	dists, err := loadDistributions()
	if err != nil {
		return Output{}, err
	}

	lookup, err := geo.Open(census.GeogLookupFile())
	if err != nil {
		return Output{}, err
	}
	defer lookup.Close()

	a, err := assignment.New(assignment.Config{
		Region:   input.Region,
		Year:     year,
		Scotland: scotland,
		Strict:   config.GetBool(config.StrictKey),
		Profile:  config.GetBool(config.ProfileKey),
		Seed:     input.Seed,
	}, people, households, dists, lookup)
	if err != nil {
		return Output{}, err
	}

	if err := a.Run(); err != nil {
		return Output{}, err
	}
	a.Check()

	out := Output{
		PersonFile:    census.OutputPersonFile(input.Region, personRes, year),
		HouseholdFile: census.OutputHouseholdFile(input.Region, householdRes, year),
		TotalPeople:   a.People.Len(),
		TotalHouseholds: a.Households.Len(),
	}
	for i := range a.People.Rows {
		if a.People.Rows[i].Assigned() {
			out.AssignedPeople++
		}
	}
	for i := range a.Households.Rows {
		if a.Households.Rows[i].Filled {
			out.FilledHouseholds++
		}
	}

	logging.Info("Writing %s", out.PersonFile)
	if err := census.WritePersons(out.PersonFile, a.People.Rows); err != nil {
		return Output{}, err
	}
	logging.Info("Writing %s", out.HouseholdFile)
	if err := census.WriteHouseholds(out.HouseholdFile, a.Households.Rows); err != nil {
		return Output{}, err
	}

	logging.Info("Pipeline complete: %d of %d persons assigned", out.AssignedPeople, out.TotalPeople)
	return out, nil
}

// Package ethnicity holds the fixed census ethnicity remappings applied once
// at load time. Non-Scottish regions remap persons onto the unified scheme;
// Scottish regions remap persons twice and households once.
package ethnicity

import (
	"fmt"

	"spenser.io/synthpop/internal/model"
)

// Mapping is a fixed raw-to-unified ethnicity code table. A code absent from
// the active mapping is a fatal input error.
type Mapping map[model.Eth]model.Eth

var englandWales = Mapping{
	-1: 1,
	2:  2,
	3:  3,
	4:  4,
	5:  4,
	7:  5,
	8:  5,
	9:  5,
	10: 5,
	12: 6,
	13: 6,
	14: 6,
	15: 6,
	16: 6,
	18: 7,
	19: 7,
	20: 7,
	22: 8,
	23: 8,
}

var scotland = Mapping{
	-1: 1,
	1:  1,
	8:  2,
	9:  3,
	15: 4,
	18: 5,
	22: 6,
}

// scotlandUnified folds the intermediate Scottish codes onto the unified
// scheme; applied to persons after the first pass and to households directly.
var scotlandUnified = Mapping{
	-1: 1,
	1:  2,
	2:  3,
	3:  4,
	4:  5,
	5:  6,
	6:  8,
}

func (m Mapping) apply(eth model.Eth) (model.Eth, error) {
	mapped, ok := m[eth]
	if !ok {
		return 0, fmt.Errorf("ethnicity code %d not present in mapping", eth)
	}
	return mapped, nil
}

func remapPersons(people []model.Person, m Mapping) error {
	for i := range people {
		mapped, err := m.apply(people[i].Eth)
		if err != nil {
			return fmt.Errorf("person %d: %w", people[i].PID, err)
		}
		people[i].Eth = mapped
	}
	return nil
}

func remapHouseholds(households []model.Household, m Mapping) error {
	for i := range households {
		mapped, err := m.apply(households[i].Eth)
		if err != nil {
			return fmt.Errorf("household %d: %w", households[i].HID, err)
		}
		households[i].Eth = mapped
	}
	return nil
}

// Remap rewrites the ethnicity fields of the loaded population in place.
// For non-Scottish regions only persons are touched; for Scottish regions
// persons go through two passes and households through the unified pass.
func Remap(people []model.Person, households []model.Household, scottish bool) error {
	if !scottish {
		return remapPersons(people, englandWales)
	}
	if err := remapPersons(people, scotland); err != nil {
		return err
	}
	if err := remapPersons(people, scotlandUnified); err != nil {
		return err
	}
	return remapHouseholds(households, scotlandUnified)
}

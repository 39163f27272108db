// Package census reads the synthetic population input files and writes the
// assignment output files. All files are plain CSV with a header row; the
// distribution tables live under persistent_data/.
package census

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"spenser.io/synthpop/internal/model"
)

// PersistentData is the directory holding the distribution tables and the
// geography lookup, resolved relative to the working directory.
const PersistentData = "persistent_data"

// PersonFile returns the person input path for a region/resolution/projection/
// year combination.
func PersonFile(dataDir, region, resolution, projection string, year int) string {
	return filepath.Join(dataDir, fmt.Sprintf("ssm_%s_%s_%s_%d.csv", region, resolution, projection, year))
}

// HouseholdFile returns the household input path.
func HouseholdFile(dataDir, region, resolution string, year int) string {
	return filepath.Join(dataDir, fmt.Sprintf("ssm_hh_%s_%s_%d.csv", region, resolution, year))
}

// HRPFile returns the path of one of the HRP distribution tables; kind is
// sgl, cpl or sp. The mixed table lives in hrp_dist.csv.
func HRPFile(kind string) string {
	if kind == "mix" {
		return filepath.Join(PersistentData, "hrp_dist.csv")
	}
	return filepath.Join(PersistentData, fmt.Sprintf("hrp_%s_dist.csv", kind))
}

// PartnerFile returns the partner distribution table path.
func PartnerFile() string {
	return filepath.Join(PersistentData, "partner_hrp_dist.csv")
}

// ChildFile returns the child distribution table path.
func ChildFile() string {
	return filepath.Join(PersistentData, "child_hrp_dist.csv")
}

// GeogLookupFile returns the gzipped geography lookup path.
func GeogLookupFile() string {
	return filepath.Join(PersistentData, "gb_geog_lookup.csv.gz")
}

// row is one CSV record with header-resolved column access.
type row struct {
	path   string
	line   int
	cols   map[string]int
	fields []string
}

func (r *row) get(col string) (string, error) {
	i, ok := r.cols[col]
	if !ok {
		return "", fmt.Errorf("%s: missing column %q", r.path, col)
	}
	if i >= len(r.fields) {
		return "", fmt.Errorf("%s:%d: short record", r.path, r.line)
	}
	return r.fields[i], nil
}

func (r *row) getInt(col string) (int, error) {
	s, err := r.get(col)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%s:%d: column %q: %w", r.path, r.line, col, err)
	}
	return v, nil
}

// getOptInt parses an integer column that may be empty; empty yields def.
func (r *row) getOptInt(col string, def int) (int, error) {
	s, err := r.get(col)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	return r.getInt(col)
}

func (r *row) getBoolLiteral(col string) (bool, error) {
	s, err := r.get(col)
	if err != nil {
		return false, err
	}
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRUE":
		return true, nil
	case "FALSE", "":
		return false, nil
	default:
		return false, fmt.Errorf("%s:%d: column %q: invalid boolean %q", r.path, r.line, col, s)
	}
}

// forEachRow streams records through fn with header-resolved access.
func forEachRow(path string, fn func(*row) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("reading header of %s: %w", path, err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}

	r := row{path: path, cols: cols}
	for line := 2; ; line++ {
		fields, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s:%d: %w", path, line, err)
		}
		r.line = line
		r.fields = fields
		if err := fn(&r); err != nil {
			return err
		}
	}
}

// ReadPersons loads the person file. The HID column may be empty or absent
// for an unassigned population.
func ReadPersons(path string) ([]model.Person, error) {
	var people []model.Person
	err := forEachRow(path, func(r *row) error {
		pid, err := r.getInt("PID")
		if err != nil {
			return err
		}
		area, err := r.get("Area")
		if err != nil {
			return err
		}
		sex, err := r.getInt("DC1117EW_C_SEX")
		if err != nil {
			return err
		}
		age, err := r.getInt("DC1117EW_C_AGE")
		if err != nil {
			return err
		}
		eth, err := r.getInt("DC2101EW_C_ETHPUK11")
		if err != nil {
			return err
		}
		hid := int(model.NoHID)
		if _, ok := r.cols["HID"]; ok {
			hid, err = r.getOptInt("HID", int(model.NoHID))
			if err != nil {
				return err
			}
		}
		people = append(people, model.Person{
			PID:  model.PID(pid),
			MSOA: model.MSOA(strings.TrimSpace(area)),
			Sex:  model.Sex(sex),
			Age:  model.Age(age),
			Eth:  model.Eth(eth),
			HID:  model.HID(hid),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return people, nil
}

// ReadHouseholds loads the household file. HRPID and FILLED may be empty.
func ReadHouseholds(path string) ([]model.Household, error) {
	var households []model.Household
	err := forEachRow(path, func(r *row) error {
		h := model.Household{HRPID: model.NoPID}
		var err error
		var v int
		if v, err = r.getInt("HID"); err != nil {
			return err
		}
		h.HID = model.HID(v)
		area, err := r.get("Area")
		if err != nil {
			return err
		}
		h.OA = model.OA(strings.TrimSpace(area))
		if h.Accom, err = r.getInt("LC4402_C_TYPACCOM"); err != nil {
			return err
		}
		if h.CommunalType, err = r.getInt("QS420_CELL"); err != nil {
			return err
		}
		if h.Tenure, err = r.getInt("LC4402_C_TENHUK11"); err != nil {
			return err
		}
		if h.Composition, err = r.getInt("LC4408_C_AHTHUK11"); err != nil {
			return err
		}
		if h.CommunalSize, err = r.getInt("CommunalSize"); err != nil {
			return err
		}
		if h.Size, err = r.getInt("LC4404_C_SIZHUK11"); err != nil {
			return err
		}
		if h.Rooms, err = r.getInt("LC4404_C_ROOMS"); err != nil {
			return err
		}
		if h.Bedrooms, err = r.getInt("LC4405EW_C_BEDROOMS"); err != nil {
			return err
		}
		if h.PPBedroom, err = r.getInt("LC4408EW_C_PPBROOMHEW11"); err != nil {
			return err
		}
		if h.CentralHeat, err = r.getInt("LC4402_C_CENHEATHUK11"); err != nil {
			return err
		}
		if h.NSSEC, err = r.getInt("LC4605_C_NSSEC"); err != nil {
			return err
		}
		if v, err = r.getInt("LC4202_C_ETHHUK11"); err != nil {
			return err
		}
		h.Eth = model.Eth(v)
		if h.Cars, err = r.getInt("LC4202_C_CARSNO"); err != nil {
			return err
		}
		if v, err = r.getOptInt("HRPID", int(model.NoPID)); err != nil {
			return err
		}
		h.HRPID = model.PID(v)
		if h.Filled, err = r.getBoolLiteral("FILLED"); err != nil {
			return err
		}
		households = append(households, h)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return households, nil
}

// ReadHRPTable loads one HRP distribution table. The sex column may be empty
// (single-occupant table); such rows carry SexUnknown and become a contract
// error only if drawn.
func ReadHRPTable(path string) ([]model.HRPRow, error) {
	var rows []model.HRPRow
	err := forEachRow(path, func(r *row) error {
		age, err := r.getInt("age")
		if err != nil {
			return err
		}
		sex, err := r.getOptInt("sex", int(model.SexUnknown))
		if err != nil {
			return err
		}
		eth, err := r.getInt("ethhuk11")
		if err != nil {
			return err
		}
		n, err := r.getInt("n")
		if err != nil {
			return err
		}
		rows = append(rows, model.HRPRow{
			Age: model.Age(age), Sex: model.Sex(sex), Eth: model.Eth(eth), N: n,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ReadPartnerTable loads partner_hrp_dist.csv.
func ReadPartnerTable(path string) ([]model.PartnerRow, error) {
	var rows []model.PartnerRow
	err := forEachRow(path, func(r *row) error {
		age, err := r.getInt("age")
		if err != nil {
			return err
		}
		agehrp, err := r.getInt("agehrp")
		if err != nil {
			return err
		}
		ethEW, err := r.getInt("ethnicityew")
		if err != nil {
			return err
		}
		eth, err := r.getInt("ethhuk11")
		if err != nil {
			return err
		}
		n, err := r.getInt("n")
		if err != nil {
			return err
		}
		samesex, err := r.getBoolLiteral("samesex")
		if err != nil {
			return err
		}
		rows = append(rows, model.PartnerRow{
			Age: model.Age(age), AgeHRP: model.Age(agehrp),
			EthnicityEW: model.Eth(ethEW), Eth: model.Eth(eth),
			N: n, SameSex: samesex,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ReadChildTable loads child_hrp_dist.csv.
func ReadChildTable(path string) ([]model.ChildRow, error) {
	var rows []model.ChildRow
	err := forEachRow(path, func(r *row) error {
		age, err := r.getInt("age")
		if err != nil {
			return err
		}
		sex, err := r.getInt("sex")
		if err != nil {
			return err
		}
		agehrp, err := r.getInt("agehrp")
		if err != nil {
			return err
		}
		ethEW, err := r.getInt("ethnicityew")
		if err != nil {
			return err
		}
		eth, err := r.getInt("ethhuk11")
		if err != nil {
			return err
		}
		n, err := r.getInt("n")
		if err != nil {
			return err
		}
		rows = append(rows, model.ChildRow{
			Age: model.Age(age), Sex: model.Sex(sex), AgeHRP: model.Age(agehrp),
			EthnicityEW: model.Eth(ethEW), Eth: model.Eth(eth), N: n,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

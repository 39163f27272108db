package census

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"spenser.io/synthpop/internal/model"
)

// OutputDir is where the assignment results are written.
const OutputDir = "outputs"

// OutputPersonFile returns the assigned-person output path.
func OutputPersonFile(region, resolution string, year int) string {
	return filepath.Join(OutputDir, fmt.Sprintf("rs_ass_%s_%s_%d.csv", region, resolution, year))
}

// OutputHouseholdFile returns the assigned-household output path.
func OutputHouseholdFile(region, resolution string, year int) string {
	return filepath.Join(OutputDir, fmt.Sprintf("rs_ass_hh_%s_%s_%d.csv", region, resolution, year))
}

var personHeader = []string{
	"PID", "Area", "DC1117EW_C_SEX", "DC1117EW_C_AGE", "DC2101EW_C_ETHPUK11", "HID",
}

var householdHeader = []string{
	"HID", "Area", "LC4402_C_TYPACCOM", "QS420_CELL", "LC4402_C_TENHUK11",
	"LC4408_C_AHTHUK11", "CommunalSize", "LC4404_C_SIZHUK11", "LC4404_C_ROOMS",
	"LC4405EW_C_BEDROOMS", "LC4408EW_C_PPBROOMHEW11", "LC4402_C_CENHEATHUK11",
	"LC4605_C_NSSEC", "LC4202_C_ETHHUK11", "LC4202_C_CARSNO", "HRPID", "FILLED",
}

func writeCSV(path string, header []string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// WritePersons serializes the person table with assigned HIDs. An unassigned
// person's HID field is left empty.
func WritePersons(path string, people []model.Person) error {
	records := make([][]string, 0, len(people))
	for i := range people {
		p := &people[i]
		hid := ""
		if p.Assigned() {
			hid = strconv.Itoa(int(p.HID))
		}
		records = append(records, []string{
			strconv.Itoa(int(p.PID)),
			string(p.MSOA),
			strconv.Itoa(int(p.Sex)),
			strconv.Itoa(int(p.Age)),
			strconv.Itoa(int(p.Eth)),
			hid,
		})
	}
	return writeCSV(path, personHeader, records)
}

// WriteHouseholds serializes the household table with HRPID and FILLED set.
// Unset HRPID and an unfilled FILLED flag are written as empty fields.
func WriteHouseholds(path string, households []model.Household) error {
	records := make([][]string, 0, len(households))
	for i := range households {
		h := &households[i]
		hrpid := ""
		if h.HRPID != model.NoPID {
			hrpid = strconv.Itoa(int(h.HRPID))
		}
		filled := ""
		if h.Filled {
			filled = "TRUE"
		}
		records = append(records, []string{
			strconv.Itoa(int(h.HID)),
			string(h.OA),
			strconv.Itoa(h.Accom),
			strconv.Itoa(h.CommunalType),
			strconv.Itoa(h.Tenure),
			strconv.Itoa(h.Composition),
			strconv.Itoa(h.CommunalSize),
			strconv.Itoa(h.Size),
			strconv.Itoa(h.Rooms),
			strconv.Itoa(h.Bedrooms),
			strconv.Itoa(h.PPBedroom),
			strconv.Itoa(h.CentralHeat),
			strconv.Itoa(h.NSSEC),
			strconv.Itoa(int(h.Eth)),
			strconv.Itoa(h.Cars),
			hrpid,
			filled,
		})
	}
	return writeCSV(path, householdHeader, records)
}

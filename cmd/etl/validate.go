package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
)

// measuredAtLayout is the source's MSRDATE format (yyyyMMddHHmm).
const measuredAtLayout = "200601021504"

var errValidationFailed = errors.New("snapshot validation failed")

// phase tracks pass/fail for a validation phase. Notes are informational
// and never fail a phase.
type phase struct {
	name   string
	errors []string
	notes  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func cmdValidate() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "validate <snapshot-file>",
		Short: "check a saved snapshot for field presence and classification",
		Args:  cobra.ExactArgs(1), // require path to a snapshot written by "etl run --output"
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var readings []domain.RawReading
			if err := json.Unmarshal(data, &readings); err != nil {
				return fmt.Errorf("decode snapshot %s: %w", args[0], err)
			}
			if !printReport(cmd.OutOrStdout(), validateSnapshot(readings)) {
				return errValidationFailed
			}
			return nil
		},
	}
	return cmd
}

func validateSnapshot(readings []domain.RawReading) []*phase {
	return []*phase{
		validateFields(readings),
		validateDistricts(readings),
		validateClassification(readings),
		validateKeys(readings),
	}
}

func validateFields(readings []domain.RawReading) *phase {
	p := &phase{name: "Field presence"}
	for i, r := range readings {
		if r.Station == "" {
			p.errorf("row %d: missing MSRSTENAME", i)
		}
		if r.DistrictCode == "" {
			p.errorf("row %d (%s): missing MSRADMCODE", i, r.Station)
		}
		if _, err := time.Parse(measuredAtLayout, r.MeasuredAt); err != nil {
			p.errorf("row %d (%s): MSRDATE %q is not yyyyMMddHHmm", i, r.Station, r.MeasuredAt)
		}
	}
	return p
}

func validateDistricts(readings []domain.RawReading) *phase {
	p := &phase{name: "District coverage"}
	seen := map[string]int{}
	for _, r := range readings {
		seen[r.DistrictCode]++
	}
	for code, n := range seen {
		if !slices.Contains(domain.DefaultDistricts, domain.DistrictID(code)) {
			p.notef("district %s (%d rows) is not a default district", code, n)
		}
	}
	missing := 0
	for _, d := range domain.DefaultDistricts {
		if seen[string(d)] == 0 {
			missing++
		}
	}
	if missing > 0 {
		p.notef("%d of %d default districts have no rows", missing, len(domain.DefaultDistricts))
	}
	return p
}

func validateClassification(readings []domain.RawReading) *phase {
	p := &phase{name: "Classification"}
	counts := map[domain.Pollutant]map[domain.Grade]int{
		domain.PollutantCO:   {},
		domain.PollutantPM10: {},
	}
	for i, r := range readings {
		doc, err := domain.ToDocument(r)
		if err != nil {
			p.errorf("row %d: %v", i, err)
			continue
		}
		counts[domain.PollutantCO][doc.COGrade]++
		counts[domain.PollutantPM10][doc.PM10Grade]++
	}
	for _, pol := range []domain.Pollutant{domain.PollutantCO, domain.PollutantPM10} {
		c := counts[pol]
		p.notef("%s: good=%d moderate=%d poor=%d unparseable=%d", pol,
			c[domain.GradeGood], c[domain.GradeModerate], c[domain.GradePoor], c[domain.GradeUnparseable])
	}
	return p
}

func validateKeys(readings []domain.RawReading) *phase {
	p := &phase{name: "Document keys"}
	seen := map[string]int{}
	for _, r := range readings {
		if r.Station != "" {
			seen[r.Station]++
		}
	}
	for station, n := range seen {
		if n > 1 {
			p.notef("station %q appears %d times; the last row wins", station, n)
		}
	}
	return p
}

// printReport writes each phase's outcome and reports whether all passed.
func printReport(w io.Writer, phases []*phase) bool {
	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = "FAIL"
			allPassed = false
		}
		fmt.Fprintf(w, "[%s] %s\n", status, p.name)
		for _, e := range p.errors {
			fmt.Fprintf(w, "  ERROR: %s\n", e)
		}
		for _, n := range p.notes {
			fmt.Fprintf(w, "  note: %s\n", n)
		}
	}
	return allPassed
}

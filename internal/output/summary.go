package output

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// SummarySink aggregates failures by category and listing venue and writes a
// human-readable report at the end of the run. Nothing is written when the
// run had no failures.
type SummarySink struct {
	dir string
	now func() time.Time

	mu       sync.Mutex
	units    int
	failures []UnitResult
}

func NewSummarySink(dir string) *SummarySink {
	return &SummarySink{dir: dir, now: time.Now}
}

// Path is the report location for the current day. It is deterministic so
// the run can reference it in the final tally before the sink closes.
func (s *SummarySink) Path() string {
	return filepath.Join(s.dir, fmt.Sprintf("failed_summary_%s.txt", s.now().Format("20060102")))
}

func (s *SummarySink) Write(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch e.Type {
	case "run.started":
		s.units = e.Units
	case "unit.finished":
		if e.UnitResult != nil && e.Status == StatusFailed {
			s.failures = append(s.failures, *e.UnitResult)
		}
	}
	return nil
}

func (s *SummarySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.failures) == 0 {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create summary directory: %w", err)
	}
	report := renderSummary(s.failures, s.units, s.now())
	if err := os.WriteFile(s.Path(), []byte(report), 0o644); err != nil {
		return fmt.Errorf("write failure summary: %w", err)
	}
	return nil
}

// CategorizeReason maps a failure reason onto the provider data category (or
// fault class) that produced it, for grouping in the summary report.
func CategorizeReason(reason string) string {
	switch {
	case strings.Contains(reason, "instrument lookup"):
		return "instrument lookup returned no data"
	case strings.Contains(reason, "daily prices (adjusted)"):
		return "daily prices (adjusted) unavailable"
	case strings.Contains(reason, "daily prices (unadjusted)"):
		return "daily prices (unadjusted) unavailable"
	case strings.Contains(reason, "capital flow"):
		return "capital flow unavailable"
	case strings.Contains(reason, "turnover rates"):
		return "turnover rates unavailable"
	case strings.Contains(reason, "fundamental factors"):
		return "fundamental factors unavailable"
	case strings.Contains(reason, "holder counts"):
		return "holder counts unavailable"
	case strings.Contains(reason, "trading calendar"):
		return "trading calendar unavailable"
	case strings.Contains(reason, "output write"):
		return "output write failure"
	case strings.Contains(reason, "panic"):
		return "unexpected fault"
	default:
		return "other"
	}
}

// Venue names the listing venue for a provider-format stock code.
func Venue(code string) string {
	switch {
	case strings.HasSuffix(code, ".XSHG"):
		return "Shanghai"
	case strings.HasSuffix(code, ".XSHE"):
		return "Shenzhen"
	case strings.HasSuffix(code, ".BJSE"):
		return "Beijing"
	default:
		return "Unknown"
	}
}

const rule = "===================================================================================================="
const thinRule = "----------------------------------------------------------------------------------------------------"

func renderSummary(failures []UnitResult, units int, at time.Time) string {
	byCategory := make(map[string][]UnitResult)
	byVenue := make(map[string][]UnitResult)
	for _, f := range failures {
		cat := CategorizeReason(f.Reason)
		byCategory[cat] = append(byCategory[cat], f)
		v := Venue(f.Unit)
		byVenue[v] = append(byVenue[v], f)
	}

	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line(rule)
	line("Failure Summary")
	line(rule)
	line("Generated: %s", at.Format("2006-01-02 15:04:05"))
	if units > 0 {
		line("Total stocks: %d", units)
		line("Succeeded: %d", units-len(failures))
		line("Failed: %d", len(failures))
		line("Failure rate: %s", percent(len(failures), units))
	} else {
		line("Failed: %d", len(failures))
	}
	line("")

	line(thinRule)
	line("[By failure category]")
	line(thinRule)
	for _, cat := range sortedKeys(byCategory) {
		group := byCategory[cat]
		line("")
		line("%s: %d", cat, len(group))

		venueCount := make(map[string]int)
		for _, f := range group {
			venueCount[Venue(f.Unit)]++
		}
		var parts []string
		for _, v := range sortedCountKeys(venueCount) {
			parts = append(parts, fmt.Sprintf("%s: %d", v, venueCount[v]))
		}
		line("  venues: %s", strings.Join(parts, ", "))

		var examples []string
		for _, f := range group[:min(5, len(group))] {
			examples = append(examples, fmt.Sprintf("%s(%s)", f.Unit, f.Name))
		}
		line("  examples: %s", strings.Join(examples, ", "))
		if len(group) > 5 {
			line("  ... and %d more", len(group)-5)
		}
	}

	line("")
	line(thinRule)
	line("[By listing venue]")
	line(thinRule)
	for _, venue := range []string{"Shanghai", "Shenzhen", "Beijing", "Unknown"} {
		group, ok := byVenue[venue]
		if !ok {
			continue
		}
		line("")
		line("%s: %d", venue, len(group))
		catCount := make(map[string]int)
		for _, f := range group {
			catCount[CategorizeReason(f.Reason)]++
		}
		for _, cat := range sortedCountKeys(catCount) {
			line("  - %s: %d", cat, catCount[cat])
		}
	}

	line("")
	line(rule)
	return b.String()
}

func sortedKeys(m map[string][]UnitResult) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sortedCountKeys orders by descending count, then name, for stable output.
func sortedCountKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

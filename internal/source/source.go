// Package source resolves the list of stocks to process, either from a scan
// of the seed CSV directory or from the persisted failure ledger (retry).
package source

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"factorpipe/internal/ledger"
)

// Label is the fixed artifact label both seed and enriched CSV file names
// carry: {code}-{name}-{label}-{date}.csv.
const Label = "daily-adjusted-factors"

// StockRef identifies one stock to process. Code is in provider format
// (e.g. 000001.XSHE), Name is the display name from the seed file name.
// It is an immutable value: stages read it, never mutate it.
type StockRef struct {
	Code string
	Name string
}

var seedNamePattern = regexp.MustCompile(`^([0-9]{6}\.[A-Z]{2})-(.+?)-` + Label + `-(\d{8})\.csv$`)

// ParseSeedName parses a seed file name into its exchange-format code,
// display name, and date. ok is false for names that do not match the
// convention.
func ParseSeedName(filename string) (code, name, date string, ok bool) {
	m := seedNamePattern.FindStringSubmatch(filename)
	if m == nil {
		return "", "", "", false
	}
	return m[1], m[2], m[3], true
}

// ConvertCode maps an exchange-suffixed code to provider format:
// .SZ -> .XSHE, .SH -> .XSHG, .BJ -> .BJSE. Unknown suffixes yield "".
func ConvertCode(original string) string {
	switch {
	case strings.HasSuffix(original, ".SZ"):
		return strings.TrimSuffix(original, ".SZ") + ".XSHE"
	case strings.HasSuffix(original, ".SH"):
		return strings.TrimSuffix(original, ".SH") + ".XSHG"
	case strings.HasSuffix(original, ".BJ"):
		return strings.TrimSuffix(original, ".BJ") + ".BJSE"
	default:
		return ""
	}
}

type Source struct {
	// Dir is the seed CSV directory.
	Dir string
}

func New(dir string) *Source {
	return &Source{Dir: dir}
}

// ListAll scans the seed directory and returns one StockRef per file whose
// name matches the convention and whose code converts to provider format.
// Non-matching names are skipped silently. Directory order is the sorted
// file-name order, so limit is a stable prefix-take. limit <= 0 means
// unlimited. An unreadable directory is a fatal setup error.
func (s *Source) ListAll(limit int) ([]StockRef, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("read seed directory %s: %w", s.Dir, err)
	}

	var refs []StockRef
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		original, name, _, ok := ParseSeedName(entry.Name())
		if !ok {
			continue
		}
		code := ConvertCode(original)
		if code == "" {
			continue
		}
		refs = append(refs, StockRef{Code: code, Name: name})
		if limit > 0 && len(refs) == limit {
			break
		}
	}
	return refs, nil
}

// ListFailed reconstructs StockRefs from the failure ledger. An absent or
// empty ledger yields an empty list, not an error.
func ListFailed(led *ledger.Ledger) ([]StockRef, error) {
	records, err := led.Read()
	if err != nil {
		return nil, err
	}
	refs := make([]StockRef, 0, len(records))
	for _, r := range records {
		refs = append(refs, StockRef{Code: r.Code, Name: r.Name})
	}
	return refs, nil
}

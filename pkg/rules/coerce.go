package rules

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/record"
)

// Coercion names.
const (
	CoerceUppercase           = "uppercase"
	CoerceLowercase           = "lowercase"
	CoerceInitialcase         = "initialcase"
	CoerceTitlecase           = "titlecase"
	CoerceYearMonthDate       = "year_month_date"
	CoerceCollapseMulti       = "collapse_multi"
	CoerceGCPPathIfNotNA      = "into_gcp_path_if_not_na"
	CoerceAlignedDNAFile      = "aligned_dna_short_read_file"
	CoerceAlignedDNAIndex     = "aligned_dna_short_read_index_file"
	CoerceAlignedNanoporeFile = "aligned_nanopore_file"
	CoerceAlignedNanoporeIdx  = "aligned_nanopore_index_file"
)

// dateLayouts are tried in order; the first that parses wins.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-1-2",
	"2006/1/2",
	"1-2-2006",
	"1/2/2006",
	"1-2-06",
	"1/2/06",
}

// fileDefault derives a missing file path from a sibling id.
type fileDefault struct {
	sibling string
	suffix  string
}

var fileDefaults = map[string]fileDefault{
	CoerceAlignedDNAFile:      {sibling: "aligned_dna_short_read_id", suffix: ".hgv.cram"},
	CoerceAlignedDNAIndex:     {sibling: "aligned_dna_short_read_id", suffix: ".hgv.cram.crai"},
	CoerceAlignedNanoporeFile: {sibling: "aligned_nanopore_id", suffix: ".bam"},
	CoerceAlignedNanoporeIdx:  {sibling: "aligned_nanopore_id", suffix: ".bam.bai"},
}

func registerCoercions(r *Registry) {
	r.RegisterCoercion(CoerceUppercase, func(v string, _ record.View, _ Env) string {
		return strings.ToUpper(v)
	})
	r.RegisterCoercion(CoerceLowercase, func(v string, _ record.View, _ Env) string {
		return strings.ToLower(v)
	})
	r.RegisterCoercion(CoerceInitialcase, func(v string, _ record.View, _ Env) string {
		return Initialcase(v)
	})
	r.RegisterCoercion(CoerceTitlecase, func(v string, _ record.View, _ Env) string {
		return Titlecase(v)
	})
	r.RegisterCoercion(CoerceYearMonthDate, func(v string, _ record.View, _ Env) string {
		return YearMonthDate(v)
	})
	r.RegisterCoercion(CoerceCollapseMulti, func(v string, _ record.View, _ Env) string {
		return CollapseMulti(v)
	})
	r.RegisterCoercion(CoerceGCPPathIfNotNA, func(v string, _ record.View, env Env) string {
		if strings.TrimSpace(v) == "" || IsNA(v) || strings.HasPrefix(v, "gs://") {
			return v
		}
		return GCPPath(env.Bucket, v)
	})
	for name, d := range fileDefaults {
		r.RegisterCoercion(name, func(v string, rec record.View, env Env) string {
			if strings.TrimSpace(v) != "" {
				return v
			}
			id := rec.Value(d.sibling)
			if id == "" {
				return v
			}
			return GCPPath(env.Bucket, id+d.suffix)
		})
	}
}

// GCPPath joins a bucket and an object name into a gs:// URI.
func GCPPath(bucket, object string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, object)
}

// IsNA reports whether v is the NA placeholder, ignoring case and
// surrounding space.
func IsNA(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "NA")
}

// Initialcase upper-cases the first rune and lower-cases the rest.
func Initialcase(v string) string {
	if v == "" {
		return v
	}
	runes := []rune(strings.ToLower(v))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// Titlecase capitalizes every whitespace-separated word and joins the words
// with single spaces.
func Titlecase(v string) string {
	words := strings.Fields(v)
	if len(words) == 0 {
		return v
	}
	for i, w := range words {
		words[i] = Initialcase(w)
	}
	return strings.Join(words, " ")
}

// YearMonthDate reformats a recognized date as YYYY-MM-DD. NA and values
// that match no known layout are returned unchanged.
func YearMonthDate(v string) string {
	s := strings.TrimSpace(v)
	if s == "" || IsNA(s) {
		return v
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return v
}

// CollapseMulti trims whitespace around every segment of a pipe-delimited
// value.
func CollapseMulti(v string) string {
	if !strings.Contains(v, "|") {
		return v
	}
	parts := strings.Split(v, "|")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return strings.Join(parts, "|")
}

// SplitMulti splits a pipe-delimited value into trimmed, non-empty segments.
func SplitMulti(v string) []string {
	var out []string
	for _, p := range strings.Split(v, "|") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package rules

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/record"
)

// Check names.
const (
	CheckParticipantID          = "participant_id"
	CheckMaternalID             = "maternal_id"
	CheckPaternalID             = "paternal_id"
	CheckTwinID                 = "twin_id"
	CheckAnalyteID              = "analyte_id"
	CheckAlignedDNAShortReadID  = "aligned_dna_short_read_id"
	CheckExperimentNanoporeID   = "experiment_nanopore_id"
	CheckAlignedNanoporeID      = "aligned_nanopore_id"
	CheckAnalyteReference       = "analyte_reference"
	CheckExperimentDNAShortRead = "experiment_dna_short_read_id"
	CheckExperimentSampleID     = "experiment_sample_id"
	CheckConditionallyRequired  = "conditionally_required"
	CheckGCPPath                = "gcp_path"
	CheckMultiVocabulary        = "multi_vocabulary"
	CheckIsNA                   = "is_na"
	CheckNumber                 = "number"
	CheckNumberOrNA             = "number_or_na"
	CheckDateOrNA               = "date_or_na"
	CheckStartsWithBCM          = "must_start_with_bcm"
	CheckStartsWithBCMFam       = "must_start_with_bcm_fam"
	CheckStartsWithOntology     = "must_start_with_ontology"
)

const subjectPrefix = "BCM_Subject_"

var trailingNumber = regexp.MustCompile(`_\d+$`)

// batchID describes an id built from a literal prefix, the value of a
// sibling id field, and a batch suffix.
type batchID struct {
	prefix  string
	sibling string
}

// head is the part of the id that must precede the batch suffix: the
// sibling value without its own batch suffix, carrying the literal prefix.
func (b batchID) head(sibling string, batch Batch) string {
	if base, ok := batch.TrimSuffix(sibling); ok {
		sibling = base
	}
	if !strings.HasPrefix(sibling, b.prefix) {
		sibling = b.prefix + sibling
	}
	return sibling
}

// matchesSibling reports whether id is exactly the head derived from sibling
// followed by a batch suffix. Without a recognizable suffix only the head is
// compared, leaving the suffix failure to the batch window rule.
func (b batchID) matchesSibling(id, sibling string, batch Batch) bool {
	if !strings.HasPrefix(id, b.prefix) {
		return false
	}
	if sibling == "" {
		return true
	}
	head := b.head(sibling, batch)
	if base, ok := batch.TrimSuffix(id); ok {
		return base == head
	}
	return strings.HasPrefix(id, head+"_")
}

var batchIDs = map[string]batchID{
	CheckAnalyteID:             {prefix: subjectPrefix, sibling: "participant_id"},
	CheckAlignedDNAShortReadID: {prefix: "BCM_", sibling: "experiment_dna_short_read_id"},
	CheckExperimentNanoporeID:  {prefix: "BCM_ONTWGS_", sibling: "experiment_sample_id"},
	CheckAlignedNanoporeID:     {prefix: "BCM_ONTWGS_", sibling: "experiment_nanopore_id"},
}

func registerChecks(r *Registry) {
	r.RegisterCheck(CheckParticipantID, checkParticipantID)
	r.RegisterCheck(CheckMaternalID, parentIDCheck("2"))
	r.RegisterCheck(CheckPaternalID, parentIDCheck("3"))
	r.RegisterCheck(CheckTwinID, checkTwinID)
	for name, b := range batchIDs {
		r.RegisterCheck(name, batchIDCheck(b))
	}
	r.RegisterCheck(CheckAnalyteReference, checkAnalyteReference)
	r.RegisterCheck(CheckExperimentDNAShortRead, checkExperimentDNAShortReadID)
	r.RegisterCheck(CheckExperimentSampleID, checkExperimentSampleID)
	r.registerBound(CheckConditionallyRequired, checkConditionallyRequired, true, func(field string) error {
		if _, ok := conditions[field]; !ok {
			return fmt.Errorf("field %q has no governing field", field)
		}
		return nil
	})
	r.RegisterCheck(CheckGCPPath, checkGCPPath)
	r.registerBound(CheckMultiVocabulary, checkMultiVocabulary, false, func(field string) error {
		if _, ok := Vocabulary(field); !ok {
			return fmt.Errorf("field %q has no vocabulary", field)
		}
		return nil
	})
	r.RegisterCheck(CheckIsNA, func(_, v string, _ record.View, _ Env) []string {
		if IsNA(v) {
			return nil
		}
		return []string{"Value must be NA"}
	})
	r.RegisterCheck(CheckNumber, func(_, v string, _ record.View, _ Env) []string {
		if isInt(v) {
			return nil
		}
		return []string{"Value requires an int"}
	})
	r.RegisterCheck(CheckNumberOrNA, func(_, v string, _ record.View, _ Env) []string {
		if IsNA(v) || isInt(v) {
			return nil
		}
		return []string{"Value must be NA or an int"}
	})
	r.RegisterCheck(CheckDateOrNA, func(_, v string, _ record.View, _ Env) []string {
		if IsNA(v) {
			return nil
		}
		if _, err := time.Parse("2006-01-02", v); err == nil {
			return nil
		}
		return []string{"Value must be NA or a date formatted as YYYY-MM-DD"}
	})
	r.RegisterCheck(CheckStartsWithBCM, prefixCheck("Value must start with BCM_", "BCM_"))
	r.RegisterCheck(CheckStartsWithBCMFam, prefixCheck("Value must start with BCM_Fam", "BCM_Fam"))
	r.RegisterCheck(CheckStartsWithOntology, prefixCheck("Value must start with HP: or MONDO:", "HP:", "MONDO:"))
}

func isInt(v string) bool {
	_, err := strconv.Atoi(strings.TrimSpace(v))
	return err == nil
}

func prefixCheck(msg string, prefixes ...string) Check {
	return func(_, v string, _ record.View, _ Env) []string {
		for _, p := range prefixes {
			if strings.HasPrefix(v, p) {
				return nil
			}
		}
		return []string{msg}
	}
}

func checkParticipantID(_, v string, _ record.View, _ Env) []string {
	if strings.HasPrefix(v, subjectPrefix) && trailingNumber.MatchString(v) {
		return nil
	}
	return []string{"Value must start with BCM_Subject_ and end with _{a number}"}
}

// parentIDCheck accepts "0" or the participant's own id with its trailing
// relationship number replaced by code.
func parentIDCheck(code string) Check {
	return func(_, v string, rec record.View, _ Env) []string {
		if v == "0" {
			return nil
		}
		pid := rec.Value("participant_id")
		if i := strings.LastIndex(pid, "_"); i > 0 && v == pid[:i+1]+code {
			return nil
		}
		return []string{fmt.Sprintf(
			"Value must be '0' or match the format of BCM_Subject_######_%s, and match the subject id in `participant_id`", code)}
	}
}

// checkTwinID only rejects a twin link pointing back at the record itself;
// the twin's own record carries the reciprocal link.
func checkTwinID(_, v string, rec record.View, _ Env) []string {
	if IsNA(v) {
		return nil
	}
	if pid := rec.Value("participant_id"); pid != "" && strings.Contains(v, pid) {
		return []string{"Value must not contain `participant_id`"}
	}
	return nil
}

// batchIDCheck reports the prefix/sibling match and the batch window as two
// separate failures.
func batchIDCheck(b batchID) Check {
	return func(_, v string, rec record.View, env Env) []string {
		var msgs []string
		if !b.matchesSibling(v, rec.Value(b.sibling), env.Batch) {
			msgs = append(msgs, fmt.Sprintf("Value must start with %s and match `%s`", b.prefix, b.sibling))
		}
		if !env.Batch.SuffixOK(v) {
			msgs = append(msgs, env.Batch.suffixMessage())
		}
		return msgs
	}
}

func checkAnalyteReference(_, v string, _ record.View, env Env) []string {
	var msgs []string
	base, ok := env.Batch.TrimSuffix(v)
	if !strings.HasPrefix(v, subjectPrefix) || (ok && !trailingNumber.MatchString(base)) {
		msgs = append(msgs, "Value must start with BCM_Subject_ and contain the participant number before the batch suffix")
	}
	if !env.Batch.SuffixOK(v) {
		msgs = append(msgs, env.Batch.suffixMessage())
	}
	return msgs
}

func checkExperimentDNAShortReadID(_, v string, rec record.View, env Env) []string {
	aligned := rec.Value("aligned_dna_short_read_id")
	if aligned == "" {
		return nil
	}
	base, ok := env.Batch.TrimSuffix(aligned)
	if !ok || v == base {
		return nil
	}
	return []string{fmt.Sprintf("Value must match `aligned_dna_short_read_id` without its batch suffix (%s)", base)}
}

func checkExperimentSampleID(_, v string, rec record.View, _ Env) []string {
	exp := rec.Value("experiment_dna_short_read_id")
	if exp == "" {
		return nil
	}
	want := strings.TrimPrefix(exp, "BCM_")
	if v == want {
		return nil
	}
	return []string{fmt.Sprintf("Value must match `experiment_dna_short_read_id` without the BCM_ prefix (%s)", want)}
}

func checkConditionallyRequired(field, v string, rec record.View, _ Env) []string {
	c := conditions[field]
	guard := slices.Contains(c.Values, rec.Value(c.Field))
	present := strings.TrimSpace(v) != "" && !IsNA(v)
	switch {
	case guard && !present:
		return []string{fmt.Sprintf("Value is required when `%s` is %s", c.Field, c.describe())}
	case !guard && present:
		return []string{fmt.Sprintf("Value must be empty unless `%s` is %s", c.Field, c.describe())}
	}
	return nil
}

func checkGCPPath(field, v string, _ record.View, _ Env) []string {
	if IsNA(v) {
		if CannotBeNA(field) {
			return []string{"Value must be a GCP path (gs://...)"}
		}
		return nil
	}
	if strings.Contains(v, "gs://") {
		return nil
	}
	if CannotBeNA(field) {
		return []string{"Value must be a GCP path (gs://...)"}
	}
	return []string{"Value must be NA or a GCP path (gs://...)"}
}

func checkMultiVocabulary(field, v string, _ record.View, _ Env) []string {
	vocab, _ := Vocabulary(field)
	var bad []string
	for _, seg := range SplitMulti(v) {
		if !slices.Contains(vocab, seg) && !slices.Contains(bad, seg) {
			bad = append(bad, seg)
		}
	}
	if len(bad) == 0 {
		return nil
	}
	return []string{fmt.Sprintf("Values (%s) are not accepted", strings.Join(bad, ", "))}
}

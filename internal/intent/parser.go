// Package intent turns short free-form commands into typed operations.
//
// Parsing is a fixed, ordered list of pattern rules, not a grammar. The rules
// overlap ("extract 2" is a prefix of "extract 2 to 5"), so evaluation order
// is load-bearing and must not change.
package intent

import (
	"regexp"
	"strconv"
	"strings"

	"voicepdf/internal/apperrors"
)

var (
	wordTokenPattern = regexp.MustCompile(`\b(?:word|docx)\b`)
	convertPattern   = regexp.MustCompile(`\bconvert\b`)

	extractSinglePattern = regexp.MustCompile(`\bextract\s+(?:pages?\s+)?(\d+)`)
	// A range connector directly after the captured number disqualifies the
	// single-page rule, whatever follows the connector.
	connectorPattern = regexp.MustCompile(`^\s*(?:to\b|through\b|-)`)

	extractRangePattern = regexp.MustCompile(`\bextract\s+(?:pages?\s+)?(\d+)\s*(?:to|through|-)\s*(\d+)\b`)
	removePattern       = regexp.MustCompile(`\bremove\s+(?:pages?\s+)?(\d+)\b`)
	mergeRangePattern   = regexp.MustCompile(`\bmerge\s+(?:pages?\s+)?(\d+)\s*(?:to|through|-)\s*(\d+)\b`)
)

// mergeSpanLimit guards pathological spans like "merge 1 to 999999999" from
// expanding into an enormous page list before dispatch can validate anything.
const mergeSpanLimit = 10000

type rule func(text string) (Command, bool)

var rules = []rule{
	matchConvertWhole,
	matchExtractSingle,
	matchExtractRange,
	matchRemove,
	matchMerge,
}

// Parse interprets free-form command text. It is pure and deterministic:
// rules are evaluated in fixed order, first match wins. Text matching no rule
// yields an UnrecognizedError carrying the original input.
func Parse(text string) (Command, error) {
	lowered := strings.ToLower(strings.TrimSpace(text))
	for _, match := range rules {
		if cmd, ok := match(lowered); ok {
			return cmd, nil
		}
	}
	return Command{}, &apperrors.UnrecognizedError{Text: strings.TrimSpace(text)}
}

func matchConvertWhole(text string) (Command, bool) {
	if !convertPattern.MatchString(text) || !wordTokenPattern.MatchString(text) {
		return Command{}, false
	}
	return convertWholeCommand(), true
}

func convertWholeCommand() Command {
	return Command{
		Intent:  ConvertWhole,
		Format:  FormatDOCX,
		Action:  string(ConvertWhole),
		Details: "Converting entire PDF to Word document",
	}
}

func matchExtractSingle(text string) (Command, bool) {
	loc := extractSinglePattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return Command{}, false
	}
	if connectorPattern.MatchString(text[loc[3]:]) {
		return Command{}, false
	}
	page, ok := parsePage(text[loc[2]:loc[3]])
	if !ok {
		return Command{}, false
	}
	format := FormatPDF
	details := describePages("Extracting", []int{page})
	if wordTokenPattern.MatchString(text) {
		format = FormatDOCX
		details += " as Word document"
	}
	return Command{
		Intent:  ExtractPages,
		Pages:   []int{page},
		Format:  format,
		Action:  string(ExtractPages),
		Details: details,
	}, true
}

func matchExtractRange(text string) (Command, bool) {
	m := extractRangePattern.FindStringSubmatch(text)
	if m == nil {
		return Command{}, false
	}
	start, okS := parsePage(m[1])
	end, okE := parsePage(m[2])
	if !okS || !okE || start > end {
		return Command{}, false
	}
	format := FormatPDF
	details := "Extracting pages " + m[1] + " to " + m[2]
	if wordTokenPattern.MatchString(text) {
		format = FormatDOCX
		details += " as Word document"
	}
	return Command{
		Intent:  ExtractRange,
		Start:   start,
		End:     end,
		Format:  format,
		Action:  string(ExtractRange),
		Details: details,
	}, true
}

func matchRemove(text string) (Command, bool) {
	m := removePattern.FindStringSubmatch(text)
	if m == nil {
		return Command{}, false
	}
	page, ok := parsePage(m[1])
	if !ok {
		return Command{}, false
	}
	return Command{
		Intent:  RemovePages,
		Pages:   []int{page},
		Format:  FormatPDF,
		Action:  string(RemovePages),
		Details: describePages("Removing", []int{page}),
	}, true
}

func matchMerge(text string) (Command, bool) {
	m := mergeRangePattern.FindStringSubmatch(text)
	if m == nil {
		return Command{}, false
	}
	start, okS := parsePage(m[1])
	end, okE := parsePage(m[2])
	if !okS || !okE || start > end || end-start+1 > mergeSpanLimit {
		return Command{}, false
	}
	return Command{
		Intent:  MergePages,
		Pages:   expandRange(start, end),
		Format:  FormatPDF,
		Action:  string(MergePages),
		Details: "Merging " + strconv.Itoa(end-start+1) + " pages into single document",
	}, true
}

// parsePage parses a captured group as a base-10 unsigned page number. A
// failed parse is a no-match for the rule, never an error.
func parsePage(raw string) (int, bool) {
	n, err := strconv.ParseUint(raw, 10, 31)
	if err != nil || n < 1 {
		return 0, false
	}
	return int(n), true
}

func expandRange(start, end int) []int {
	pages := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		pages = append(pages, p)
	}
	return pages
}

package intent

import (
	"fmt"
	"strings"
)

// Intent names the recognized operation. The values double as the wire names
// accepted by the process endpoint.
type Intent string

const (
	ConvertWhole Intent = "convert_to_word"
	ExtractPages Intent = "extract_pages"
	ExtractRange Intent = "extract_page_range"
	RemovePages  Intent = "remove_pages"
	MergePages   Intent = "merge_pages"
)

// Format is the requested output format of an operation.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// Command is a validated, typed operation produced by the parser and consumed
// once by the dispatcher. Pages are 1-based. Start/End are set only for
// ExtractRange; Pages is set for the page-list intents.
type Command struct {
	Intent Intent
	Pages  []int
	Start  int
	End    int
	Format Format

	// Action and Details are human-readable strings for confirmation display.
	// They are derived from the matched values, not semantic payload.
	Action  string
	Details string
}

func describePages(verb string, pages []int) string {
	noun := "page"
	if len(pages) > 1 {
		noun = "pages"
	}
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = fmt.Sprintf("%d", p)
	}
	return fmt.Sprintf("%s %s %s", verb, noun, strings.Join(parts, ", "))
}

package intent

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"voicepdf/internal/apperrors"
)

// FromRequest builds a Command from a structured {intent, parameters} payload,
// the shape non-voice callers (and the confirmation UI) submit to the process
// endpoint. Parameters are normalized and validated here; page bounds against
// the actual document are checked later at dispatch.
func FromRequest(intentName string, params map[string]any) (Command, error) {
	switch Intent(strings.ToLower(strings.TrimSpace(intentName))) {
	case ConvertWhole:
		return convertWholeCommand(), nil
	case ExtractPages:
		return extractPagesFromParams(params, false)
	case ExtractRange:
		return extractRangeFromParams(params, false)
	case RemovePages:
		return removePagesFromParams(params)
	case MergePages:
		return mergePagesFromParams(params)
	case "extract_to_word":
		// Extraction combined with Word conversion: accepts either a page
		// list or a start/end range.
		if _, ok := params["pages"]; ok {
			return extractPagesFromParams(params, true)
		}
		return extractRangeFromParams(params, true)
	default:
		return Command{}, &apperrors.UnrecognizedError{Text: intentName}
	}
}

func extractPagesFromParams(params map[string]any, forceDocx bool) (Command, error) {
	pages, err := pageList(params["pages"])
	if err != nil {
		return Command{}, err
	}
	format, err := outputFormat(params, forceDocx)
	if err != nil {
		return Command{}, err
	}
	details := describePages("Extracting", pages)
	if format == FormatDOCX {
		details += " as Word document"
	}
	return Command{
		Intent:  ExtractPages,
		Pages:   pages,
		Format:  format,
		Action:  string(ExtractPages),
		Details: details,
	}, nil
}

func extractRangeFromParams(params map[string]any, forceDocx bool) (Command, error) {
	start, end, err := pageRange(params)
	if err != nil {
		return Command{}, err
	}
	format, err := outputFormat(params, forceDocx)
	if err != nil {
		return Command{}, err
	}
	details := fmt.Sprintf("Extracting pages %d to %d", start, end)
	if format == FormatDOCX {
		details += " as Word document"
	}
	return Command{
		Intent:  ExtractRange,
		Start:   start,
		End:     end,
		Format:  format,
		Action:  string(ExtractRange),
		Details: details,
	}, nil
}

func removePagesFromParams(params map[string]any) (Command, error) {
	pages, err := pageList(params["pages"])
	if err != nil {
		return Command{}, err
	}
	return Command{
		Intent:  RemovePages,
		Pages:   pages,
		Format:  FormatPDF,
		Action:  string(RemovePages),
		Details: describePages("Removing", pages),
	}, nil
}

func mergePagesFromParams(params map[string]any) (Command, error) {
	var pages []int
	if raw, ok := params["pages"]; ok && raw != nil {
		list, err := pageList(raw)
		if err != nil {
			return Command{}, err
		}
		pages = list
	} else {
		start, end, err := pageRange(params)
		if err != nil {
			return Command{}, err
		}
		if end-start+1 > mergeSpanLimit {
			return Command{}, &apperrors.InvalidParametersError{
				Message: fmt.Sprintf("page range %d-%d is too large to merge", start, end),
			}
		}
		pages = expandRange(start, end)
	}
	return Command{
		Intent:  MergePages,
		Pages:   pages,
		Format:  FormatPDF,
		Action:  string(MergePages),
		Details: fmt.Sprintf("Merging %d pages into single document", len(pages)),
	}, nil
}

// pageList normalizes a scalar, string or list parameter into positive page
// numbers, preserving order.
func pageList(raw any) ([]int, error) {
	if raw == nil {
		return nil, &apperrors.InvalidParametersError{Message: "missing required parameter: pages"}
	}
	var values []any
	switch v := raw.(type) {
	case []any:
		values = v
	case []int:
		for _, p := range v {
			values = append(values, p)
		}
	default:
		values = []any{raw}
	}
	if len(values) == 0 {
		return nil, &apperrors.InvalidParametersError{Message: "pages list is empty"}
	}
	pages := make([]int, 0, len(values))
	for _, v := range values {
		p, err := toPositiveInt(v, "page number")
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, nil
}

func pageRange(params map[string]any) (int, int, error) {
	start, err := rangeBound(params, "startPage", "start_page", "start")
	if err != nil {
		return 0, 0, err
	}
	end, err := rangeBound(params, "endPage", "end_page", "end")
	if err != nil {
		return 0, 0, err
	}
	if start > end {
		return 0, 0, &apperrors.InvalidParametersError{
			Message: fmt.Sprintf("invalid range: start (%d) > end (%d)", start, end),
		}
	}
	return start, end, nil
}

func rangeBound(params map[string]any, keys ...string) (int, error) {
	for _, key := range keys {
		if raw, ok := params[key]; ok && raw != nil {
			return toPositiveInt(raw, key)
		}
	}
	return 0, &apperrors.InvalidParametersError{
		Message: "missing required parameters: startPage and endPage",
	}
}

func outputFormat(params map[string]any, forceDocx bool) (Format, error) {
	if forceDocx {
		return FormatDOCX, nil
	}
	raw, ok := params["format"]
	if !ok || raw == nil {
		return FormatPDF, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", &apperrors.InvalidParametersError{Message: fmt.Sprintf("invalid output format: %v", raw)}
	}
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatPDF:
		return FormatPDF, nil
	case FormatDOCX:
		return FormatDOCX, nil
	default:
		return "", &apperrors.InvalidParametersError{Message: fmt.Sprintf("invalid output format: %s", s)}
	}
}

func toPositiveInt(raw any, what string) (int, error) {
	var (
		n   int
		err error
	)
	switch v := raw.(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case float64:
		n = int(v)
		if float64(n) != v {
			err = fmt.Errorf("not an integer")
		}
	case json.Number:
		var i int64
		i, err = v.Int64()
		n = int(i)
	case string:
		n, err = strconv.Atoi(strings.TrimSpace(v))
	default:
		err = fmt.Errorf("unsupported type %T", raw)
	}
	if err != nil {
		return 0, &apperrors.InvalidParametersError{Message: fmt.Sprintf("invalid %s: %v", what, raw)}
	}
	if n < 1 {
		return 0, &apperrors.InvalidParametersError{Message: fmt.Sprintf("%s must be positive, got %d", what, n)}
	}
	return n, nil
}

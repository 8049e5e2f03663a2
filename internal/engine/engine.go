// Package engine performs the actual page-level document mutations. It wraps
// pdfcpu for PDF surgery and renders Word output from extracted page text.
package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"voicepdf/internal/intent"
)

// Result is the outcome of a document operation.
type Result struct {
	Bytes []byte
	// Ext is the result's file extension, ".pdf" or ".docx".
	Ext string
}

// Engine executes a structured command against a staged source document.
type Engine interface {
	Execute(ctx context.Context, sourcePath string, cmd intent.Command) (Result, error)
}

// PDFEngine is the pdfcpu-backed engine.
type PDFEngine struct {
	conf *model.Configuration
}

func NewPDFEngine() *PDFEngine {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFEngine{conf: conf}
}

// PageCount probes a PDF payload for its page count. It doubles as the
// store's registration-time format validation.
func (e *PDFEngine) PageCount(ctx context.Context, r io.ReadSeeker) (int, error) {
	count, err := api.PageCount(r, e.conf)
	if err != nil {
		return 0, fmt.Errorf("page count probe: %w", err)
	}
	return count, nil
}

func (e *PDFEngine) Execute(ctx context.Context, sourcePath string, cmd intent.Command) (Result, error) {
	workDir := filepath.Dir(sourcePath)
	outPath := filepath.Join(workDir, "result.pdf")

	switch cmd.Intent {
	case intent.ConvertWhole:
		return e.convertToDocx(sourcePath)

	case intent.ExtractPages:
		if err := api.TrimFile(sourcePath, outPath, pageSelection(cmd.Pages), e.conf); err != nil {
			return Result{}, fmt.Errorf("extract pages: %w", err)
		}
	case intent.ExtractRange:
		sel := []string{fmt.Sprintf("%d-%d", cmd.Start, cmd.End)}
		if err := api.TrimFile(sourcePath, outPath, sel, e.conf); err != nil {
			return Result{}, fmt.Errorf("extract page range: %w", err)
		}
	case intent.RemovePages:
		if err := api.RemovePagesFile(sourcePath, outPath, pageSelection(cmd.Pages), e.conf); err != nil {
			return Result{}, fmt.Errorf("remove pages: %w", err)
		}
	case intent.MergePages:
		// Collect keeps the requested order and allows duplicates, which is
		// what an explicit merge list means.
		if err := api.CollectFile(sourcePath, outPath, pageSelection(cmd.Pages), e.conf); err != nil {
			return Result{}, fmt.Errorf("merge pages: %w", err)
		}
	default:
		return Result{}, fmt.Errorf("unsupported intent: %s", cmd.Intent)
	}

	if cmd.Format == intent.FormatDOCX {
		return e.convertToDocx(outPath)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return Result{}, fmt.Errorf("read result: %w", err)
	}
	return Result{Bytes: data, Ext: ".pdf"}, nil
}

func (e *PDFEngine) convertToDocx(pdfPath string) (Result, error) {
	pages, err := extractPageTexts(pdfPath)
	if err != nil {
		return Result{}, fmt.Errorf("extract text: %w", err)
	}
	data, err := renderDocx(pages)
	if err != nil {
		return Result{}, fmt.Errorf("render docx: %w", err)
	}
	return Result{Bytes: data, Ext: ".docx"}, nil
}

func pageSelection(pages []int) []string {
	sel := make([]string, len(pages))
	for i, p := range pages {
		sel[i] = strconv.Itoa(p)
	}
	return sel
}

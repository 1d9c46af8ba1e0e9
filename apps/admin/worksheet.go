package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/chihwayi/ecd-materials-generator-sub003/core/worksheet"
)

var errCorrupt = errors.New("document is corrupt")

// readDocument loads path ("-" reads stdin). Corrupt elements are skipped and
// reported through the returned *worksheet.CorruptDocumentError.
func readDocument(cmd *cobra.Command, path string) (*worksheet.Document, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return worksheet.Decode(data, worksheet.SkipCorrupt())
}

func (cli *commandLine) writeJSON(w io.Writer, data []byte) error {
	if isTerminalFunc(w) {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return err
		}
		data = buf.Bytes()
	}
	_, err := fmt.Fprintln(w, string(data))
	return err
}

func (cli *commandLine) catalogCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the shapes, icons and text styles teachers can place",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "IDENTIFIER\tNAME\tCATEGORY")
			for _, e := range worksheet.DefaultRegistry().Entries() {
				if category != "" && string(e.Category) != category {
					continue
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Identifier, e.Name, e.Category)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "only list entries of this category (shape, icon, text)")
	return cmd
}

func (cli *commandLine) renderCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "render DOCUMENT",
		Short: "Render a worksheet document to SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd, args[0])
			if doc == nil {
				return err
			}
			if err != nil {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}
			svg := worksheet.RenderSVG(doc)
			if outPath == "" {
				_, err = cmd.OutOrStdout().Write(svg)
				return err
			}
			return errors.Wrapf(os.WriteFile(outPath, svg, 0o644), "writing %s", outPath)
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func (cli *commandLine) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate DOCUMENT",
		Short: "Check a worksheet document and list the elements that cannot be rebuilt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			doc, err := readDocument(cmd, args[0])
			if err == nil {
				_, _ = fmt.Fprintf(out, "ok: %d elements\n", doc.Len())
				return nil
			}
			var corrupt *worksheet.CorruptDocumentError
			if !errors.As(err, &corrupt) {
				return err
			}
			for _, p := range corrupt.Problems {
				_, _ = fmt.Fprintln(out, p.String())
			}
			if doc != nil {
				_, _ = fmt.Fprintf(out, "%d elements kept, %d skipped\n", doc.Len(), corrupt.Skipped())
			}
			return errCorrupt
		},
	}
}

// canonical re-encodes a document as indented JSON so equal documents compare equal line by line.
func canonical(doc *worksheet.Document) ([]string, error) {
	data, err := worksheet.Encode(doc)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err = json.Indent(&buf, data, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteString("\n")
	return difflib.SplitLines(buf.String()), nil
}

func (cli *commandLine) diffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff DOCUMENT_A DOCUMENT_B",
		Short: "Show a unified diff of two worksheet documents",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines := make([][]string, 2)
			for i, path := range args {
				doc, err := readDocument(cmd, path)
				if doc == nil {
					return err
				}
				if lines[i], err = canonical(doc); err != nil {
					return errors.Wrapf(err, "encoding %s", path)
				}
			}
			diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
				A:        lines[0],
				B:        lines[1],
				FromFile: args[0],
				ToFile:   args[1],
				Context:  3,
			})
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), diff)
			return err
		},
	}
}

func (cli *commandLine) newCmd() *cobra.Command {
	ws := cli.conf.Worksheet
	canvas := worksheet.Canvas{Width: ws.Width, Height: ws.Height, Background: ws.Background}
	outline := ws.Outline

	cmd := &cobra.Command{
		Use:   "new [IDENTIFIER...]",
		Short: "Print a new worksheet document holding the given catalog entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := worksheet.New(canvas)
			doc.Outline = outline
			reg := worksheet.DefaultRegistry()
			for i, identifier := range args {
				_, err := doc.Place(reg, identifier, gridPosition(canvas, i))
				if worksheet.IsRegistryMiss(err) {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v; placeholder added\n", err)
				}
			}
			data, err := worksheet.Encode(doc)
			if err != nil {
				return err
			}
			return cli.writeJSON(cmd.OutOrStdout(), data)
		},
	}
	cmd.Flags().Float64Var(&canvas.Width, "width", canvas.Width, "canvas width")
	cmd.Flags().Float64Var(&canvas.Height, "height", canvas.Height, "canvas height")
	cmd.Flags().StringVar(&canvas.Background, "background", canvas.Background, "canvas background colour")
	cmd.Flags().BoolVar(&outline, "outline", outline, "outline every placed element")
	return cmd
}

// gridPosition lays elements out left to right in 150px cells.
func gridPosition(c worksheet.Canvas, i int) worksheet.Point {
	const cell, margin = 150.0, 50.0
	perRow := int((c.Width - 2*margin) / cell)
	if perRow < 1 {
		perRow = 1
	}
	return worksheet.Point{
		X: margin + float64(i%perRow)*cell,
		Y: margin + float64(i/perRow)*cell,
	}
}

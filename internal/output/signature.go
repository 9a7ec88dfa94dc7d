// Package output provides tab-delimited writers for calculated signatures
// and scored protein reports.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/seqsig/internal/aagroup"
	"github.com/inodb/seqsig/internal/signature"
)

// SignatureWriter writes a calculated signature in tab-delimited format,
// one row per aligned position.
type SignatureWriter struct {
	w      *bufio.Writer
	groups *aagroup.Catalogue
}

// NewSignatureWriter creates a new signature writer using the default
// amino-acid group catalogue.
func NewSignatureWriter(w io.Writer) *SignatureWriter {
	return &SignatureWriter{w: bufio.NewWriter(w), groups: aagroup.Default}
}

// Write writes the summary comment lines, the header and one row per
// position. Group columns hold the difference value with the positive and
// negative frequencies, e.g. "50 (100 - 50)".
func (sw *SignatureWriter) Write(d signature.DisplayData) error {
	if _, err := fmt.Fprintf(sw.w, "## positions=%d\n## positive sequences=%d columns=%d\n## negative sequences=%d columns=%d\n",
		d.NumResidueColumns,
		d.NumSequencesPositive, d.NumResidueColumnsPositive,
		d.NumSequencesNegative, d.NumResidueColumnsNegative); err != nil {
		return err
	}

	header := []string{"#segment", "label"}
	for _, s := range d.Schemes {
		header = append(header, s.Slug)
	}
	header = append(header,
		"signature", "signature_value",
		"positive", "positive_value",
		"negative", "negative_value")
	for g := range d.Features {
		header = append(header, sw.groups.Group(g).Code)
	}
	if _, err := sw.w.WriteString(strings.Join(header, "\t") + "\n"); err != nil {
		return err
	}

	for si, seg := range d.Segments {
		for c, label := range seg.Positions {
			values := []string{seg.Name, label}
			for _, s := range d.Schemes {
				display := label
				if ps := d.Positions[s.Slug][seg.Name]; c < len(ps) {
					display = ps[c].Display
				}
				values = append(values, display)
			}
			for _, calls := range [][]signature.FeatureCall{
				d.Signature[seg.Name], d.ConsensusPositive[seg.Name], d.ConsensusNegative[seg.Name],
			} {
				if c < len(calls) {
					values = append(values, calls[c].Code, strconv.Itoa(calls[c].Value))
				} else {
					values = append(values, "-", "-")
				}
			}
			for g := range d.Features {
				cell := d.Features[g][si][c]
				values = append(values, fmt.Sprintf("%d (%s)", cell.Value, cell.Tooltip))
			}
			if _, err := sw.w.WriteString(strings.Join(values, "\t") + "\n"); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush flushes any buffered data to the underlying writer.
func (sw *SignatureWriter) Flush() error {
	return sw.w.Flush()
}

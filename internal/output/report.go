package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/seqsig/internal/gn"
	"github.com/inodb/seqsig/internal/signature"
)

// ReportSource is the scored state of a signature matcher.
type ReportSource interface {
	Cutoff() int
	Schemes() []gn.Scheme
	RelevantSegments() []signature.RelevantSegment
	RelevantPositions() signature.Positions
	Consensus() map[string][]signature.FeatureCall
	ProteinReport() []*signature.ScoredProtein
}

// ReportWriter writes a scored protein family in tab-delimited format.
//
// A "## cutoff=N" line comes first. The first four columns hold the entry
// name, family, score and normalized score; every relevant position follows
// in its own column. Above the protein rows come the segment names, three
// rows per numbering scheme with the split display label (tm, bw, gpcrdb),
// and the consensus signature with its values.
type ReportWriter struct {
	w *bufio.Writer
}

// NewReportWriter creates a new report writer.
func NewReportWriter(w io.Writer) *ReportWriter {
	return &ReportWriter{w: bufio.NewWriter(w)}
}

func (rw *ReportWriter) line(fixed [4]string, cells []string) error {
	_, err := rw.w.WriteString(strings.Join(append(fixed[:], cells...), "\t") + "\n")
	return err
}

// Write writes the full report.
func (rw *ReportWriter) Write(src ReportSource) error {
	if _, err := fmt.Fprintf(rw.w, "## cutoff=%d\n", src.Cutoff()); err != nil {
		return err
	}

	segments := src.RelevantSegments()

	var names, labels []string
	for _, rs := range segments {
		for _, l := range rs.Labels {
			names = append(names, rs.Name)
			labels = append(labels, l)
		}
	}

	if err := rw.line([4]string{"#entry_name", "family", "score", "normalized_score"}, labels); err != nil {
		return err
	}
	if err := rw.line([4]string{"#segment"}, names); err != nil {
		return err
	}

	positions := src.RelevantPositions()
	for _, s := range src.Schemes() {
		var tm, bw, ref []string
		for _, rs := range segments {
			for _, p := range positions[s.Slug][rs.Name] {
				a, b, c := gn.Split(p.Display)
				tm = append(tm, a)
				bw = append(bw, b)
				ref = append(ref, c)
			}
		}
		name := s.Name
		if name == "" {
			name = s.Slug
		}
		for _, row := range []struct {
			part  string
			cells []string
		}{{"tm", tm}, {"bw", bw}, {"gpcrdb", ref}} {
			if err := rw.line([4]string{"#" + name + " " + row.part}, row.cells); err != nil {
				return err
			}
		}
	}

	consensus := src.Consensus()
	var codes, values []string
	for _, rs := range segments {
		for _, fc := range consensus[rs.Name] {
			codes = append(codes, fc.Code)
			values = append(values, strconv.Itoa(fc.Value))
		}
	}
	if err := rw.line([4]string{"#CONSENSUS"}, codes); err != nil {
		return err
	}
	if err := rw.line([4]string{"#CONSENSUS value"}, values); err != nil {
		return err
	}

	for _, sp := range src.ProteinReport() {
		if err := rw.WriteProtein(sp); err != nil {
			return err
		}
	}
	return nil
}

// WriteProtein writes the row of a single scored protein. Each position cell
// holds the observed residue and its match colour, e.g. "R:green".
func (rw *ReportWriter) WriteProtein(sp *signature.ScoredProtein) error {
	family := sp.Protein.FamilySlug
	if sp.Protein.FamilyName != "" {
		family = sp.Protein.FamilyName
	}
	var cells []string
	for _, sm := range sp.Matches {
		for _, pm := range sm.Positions {
			cells = append(cells, pm.Residue+":"+string(pm.Colour))
		}
	}
	return rw.line([4]string{
		sp.Protein.EntryName,
		family,
		fmt.Sprintf("%.2f", sp.Score),
		fmt.Sprintf("%.1f", sp.Normalized),
	}, cells)
}

// Flush flushes any buffered data to the underlying writer.
func (rw *ReportWriter) Flush() error {
	return rw.w.Flush()
}

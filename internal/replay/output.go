package replay

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/tphakala/motionsync-go/internal/conf"
	"github.com/tphakala/motionsync-go/internal/errors"
)

// Frame is one emitted row.
type Frame struct {
	Index     int                `json:"frame"`
	Time      float64            `json:"time"`
	Processed int                `json:"processed"`
	Values    map[string]float64 `json:"values"`
}

// FrameWriter receives the parameter values of every frame.
type FrameWriter interface {
	WriteHeader(ids []string) error
	WriteFrame(f Frame) error
	Flush() error
}

// NewFrameWriter returns a writer for format.
func NewFrameWriter(format string, w io.Writer) (FrameWriter, error) {
	switch strings.ToLower(format) {
	case conf.OutputTable, "":
		return &tableWriter{tw: tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)}, nil
	case conf.OutputJSONL:
		return &jsonlWriter{enc: json.NewEncoder(w)}, nil
	default:
		return nil, errors.Newf("unsupported output format %q", format).
			Component(ComponentReplay).
			Category(errors.CategoryValidation).
			Build()
	}
}

type tableWriter struct {
	tw  *tabwriter.Writer
	ids []string
}

func (t *tableWriter) WriteHeader(ids []string) error {
	t.ids = ids
	_, err := fmt.Fprintf(t.tw, "frame\ttime\tprocessed\t%s\t\n", strings.Join(ids, "\t"))
	return err
}

func (t *tableWriter) WriteFrame(f Frame) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d\t%.3f\t%d\t", f.Index, f.Time, f.Processed)
	for _, id := range t.ids {
		fmt.Fprintf(&sb, "%.3f\t", f.Values[id])
	}
	sb.WriteByte('\n')
	_, err := io.WriteString(t.tw, sb.String())
	return err
}

func (t *tableWriter) Flush() error { return t.tw.Flush() }

type jsonlWriter struct {
	enc *json.Encoder
}

func (j *jsonlWriter) WriteHeader([]string) error { return nil }

func (j *jsonlWriter) WriteFrame(f Frame) error { return j.enc.Encode(f) }

func (j *jsonlWriter) Flush() error { return nil }

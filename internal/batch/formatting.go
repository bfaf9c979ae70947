package batch

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// fileSummary is the serializable view of one file result.
type fileSummary struct {
	Input      string  `json:"input" yaml:"input"`
	Output     string  `json:"output,omitempty" yaml:"output,omitempty"`
	RunID      string  `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	RowSpacing float64 `json:"row_spacing" yaml:"row_spacing"`
	ColSpacing float64 `json:"col_spacing" yaml:"col_spacing"`
	Theta      float64 `json:"theta" yaml:"theta"`
	Y0         float64 `json:"y0" yaml:"y0"`
	X0         float64 `json:"x0" yaml:"x0"`
	Matched    int     `json:"matched" yaml:"matched"`
	Warning    string  `json:"warning,omitempty" yaml:"warning,omitempty"`
	Error      string  `json:"error,omitempty" yaml:"error,omitempty"`
	DurationMS int64   `json:"duration_ms" yaml:"duration_ms"`
}

type batchSummary struct {
	Files      []fileSummary `json:"files" yaml:"files"`
	Workers    int           `json:"workers" yaml:"workers"`
	DurationMS int64         `json:"duration_ms" yaml:"duration_ms"`
	Failed     int           `json:"failed" yaml:"failed"`
}

func summarize(r *Result) batchSummary {
	s := batchSummary{
		Workers:    r.WorkerCount,
		DurationMS: r.Duration.Milliseconds(),
		Failed:     r.NumFailed(),
	}
	for _, f := range r.Files {
		fs := fileSummary{
			Input:      f.Input,
			Output:     f.Output,
			RunID:      f.RunID,
			RowSpacing: f.Params.RowSpacing,
			ColSpacing: f.Params.ColSpacing,
			Theta:      f.Params.Theta,
			Y0:         f.Params.Y0,
			X0:         f.Params.X0,
			Matched:    f.Matched,
			Warning:    f.Warning,
			DurationMS: f.Duration.Milliseconds(),
		}
		if f.Err != nil {
			fs.Error = f.Err.Error()
		}
		s.Files = append(s.Files, fs)
	}
	return s
}

// FormatResults renders a batch summary in the requested format: text
// (default), json, or yaml.
func (r *Result) FormatResults(format string) (string, error) {
	switch format {
	case "json":
		bts, err := json.MarshalIndent(summarize(r), "", "  ")
		if err != nil {
			return "", fmt.Errorf("format results as json: %w", err)
		}
		return string(bts) + "\n", nil
	case "yaml":
		bts, err := yaml.Marshal(summarize(r))
		if err != nil {
			return "", fmt.Errorf("format results as yaml: %w", err)
		}
		return string(bts), nil
	default:
		return r.formatText(), nil
	}
}

func (r *Result) formatText() string {
	var b strings.Builder
	for _, f := range r.Files {
		switch {
		case f.Err != nil:
			fmt.Fprintf(&b, "%s: FAILED: %v\n", f.Input, f.Err)
		default:
			fmt.Fprintf(&b, "%s: spacing=(%.3f, %.3f) theta=%.5f origin=(%.2f, %.2f) matched=%d -> %s\n",
				f.Input, f.Params.RowSpacing, f.Params.ColSpacing, f.Params.Theta,
				f.Params.Y0, f.Params.X0, f.Matched, f.Output)
			if f.Warning != "" {
				fmt.Fprintf(&b, "  warning: %s\n", f.Warning)
			}
		}
	}
	fmt.Fprintf(&b, "%d files, %d failed, %d workers, %v\n",
		len(r.Files), r.NumFailed(), r.WorkerCount, r.Duration.Round(time.Millisecond))
	return b.String()
}

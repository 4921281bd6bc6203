// File: internal/report/emitter.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package report

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/momentics/hioload-placement/api"
)

// Format selects the report encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Separator ends the header of the text report.
const Separator = "--- --- --- --- ---"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", api.Wrap(api.ErrCodeConfig, api.ErrInvalidArgument, "unknown report format").
			WithContext("format", s)
	}
}

// Emitter writes reports to an output stream.
type Emitter struct {
	w      io.Writer
	format Format
}

// NewEmitter returns an emitter for w. An empty format means text.
func NewEmitter(w io.Writer, format Format) *Emitter {
	if format == "" {
		format = FormatText
	}
	return &Emitter{w: w, format: format}
}

// Emit writes r in the emitter's format.
func (e *Emitter) Emit(r *Report) error {
	var err error
	switch e.format {
	case FormatText:
		err = e.text(r)
	case FormatJSON:
		enc := json.NewEncoder(e.w)
		enc.SetIndent("", "  ")
		err = enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(e.w)
		enc.SetIndent(2)
		if err = enc.Encode(r); err == nil {
			err = enc.Close()
		}
	default:
		return api.Wrap(api.ErrCodeConfig, api.ErrInvalidArgument, "unknown report format").
			WithContext("format", string(e.format))
	}
	if err != nil {
		return api.Wrap(api.ErrCodeInternal, err, "cannot write report")
	}
	return nil
}

func (e *Emitter) text(r *Report) error {
	bw := bufio.NewWriter(e.w)
	bw.WriteString("Total threads: " + strconv.Itoa(r.Total) + "\n")
	for _, s := range r.Ranks {
		bw.WriteString("  Rank " + strconv.Itoa(s.Rank) + " has " + strconv.Itoa(s.Threads) + " threads\n")
	}
	bw.WriteString(Separator + "\n")
	for _, rec := range r.Records {
		bw.WriteString(rec.Line)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

package expertise

import (
	"context"
	"errors"
	"strings"
)

// DefaultCode is used for consultants whose specialization is unknown or unmapped.
const DefaultCode = "MC"

// ErrUnknownConsultant is returned by a Directory that has no record of the consultant.
var ErrUnknownConsultant = errors.New("unknown consultant")

// Directory resolves a consultant's declared specialization, e.g. "Geology".
type Directory interface {
	Specialization(ctx context.Context, consultantID string) (string, error)
}

var specializationCodes = map[string]string{
	"mining engineering":        "ME",
	"geology":                   "GE",
	"metallurgy":                "MT",
	"environmental":             "EN",
	"environmental engineering": "EN",
	"safety":                    "SF",
	"health and safety":         "SF",
	"hydrogeology":              "HG",
	"geotechnical":              "GT",
	"geotechnical engineering":  "GT",
	"mineral processing":        "PR",
	"processing":                "PR",
	"surveying":                 "SV",
	"ventilation":               "VE",
	"mine planning":             "MP",
	"rehabilitation":            "RH",
}

// Code maps a specialization to its two-letter expertise code, falling back to DefaultCode.
func Code(specialization string) string {
	if code, ok := specializationCodes[strings.ToLower(strings.TrimSpace(specialization))]; ok {
		return code
	}
	return DefaultCode
}

// StaticDirectory is an in-memory consultant → specialization table.
type StaticDirectory map[string]string

// Specialization returns the recorded specialization or ErrUnknownConsultant.
func (d StaticDirectory) Specialization(_ context.Context, consultantID string) (string, error) {
	spec, ok := d[consultantID]
	if !ok {
		return "", ErrUnknownConsultant
	}
	return spec, nil
}

// FoldedDirectory is a StaticDirectory whose consultant IDs match case-insensitively.
// Configuration loaders such as viper lower-case map keys, so tables read from
// config files are folded on both sides.
type FoldedDirectory map[string]string

// NewFoldedDirectory copies table with lower-cased keys.
func NewFoldedDirectory(table map[string]string) FoldedDirectory {
	d := make(FoldedDirectory, len(table))
	for id, spec := range table {
		d[strings.ToLower(id)] = spec
	}
	return d
}

// Specialization looks up the lower-cased consultant ID.
func (d FoldedDirectory) Specialization(_ context.Context, consultantID string) (string, error) {
	spec, ok := d[strings.ToLower(consultantID)]
	if !ok {
		return "", ErrUnknownConsultant
	}
	return spec, nil
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/belt"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/roster"
)

// DojoConfig is the club setup built from the dojo file: belt ladder,
// points policy and the locations with their classes.
type DojoConfig struct {
	Ledger    *belt.Ledger
	Policy    belt.PointsPolicy
	Directory roster.Directory
}

// DojoFile mirrors the YAML dojo file.
//
//	belts:
//	  - {id: white, name: White, color: "#ffffff"}
//	  - {id: yellow, name: Yellow}
//	points_per_stripe: 100
//	stripes_per_belt: 4
//	overrides:
//	  black: {points_per_stripe: 200, stripes_per_belt: 6}
//	locations:
//	  - name: Downtown
//	    classes: [Juniors, Adults]
//	features:
//	  textgen.session_feedback: false
type DojoFile struct {
	Belts           []BeltEntry             `yaml:"belts"`
	PointsPerStripe int                     `yaml:"points_per_stripe"`
	StripesPerBelt  int                     `yaml:"stripes_per_belt"`
	Overrides       map[string]BeltOverride `yaml:"overrides"`
	Locations       []LocationEntry         `yaml:"locations"`
	Features        map[string]bool         `yaml:"features"`
}

// BeltEntry is one rung of the belt ladder. Order follows list position.
type BeltEntry struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

// BeltOverride replaces the policy for a single belt.
type BeltOverride struct {
	PointsPerStripe int `yaml:"points_per_stripe"`
	StripesPerBelt  int `yaml:"stripes_per_belt"`
}

// LocationEntry is a club location and its classes.
type LocationEntry struct {
	Name    string   `yaml:"name"`
	Classes []string `yaml:"classes"`
}

// LoadDojoFile reads path. An empty path yields an empty file, which builds
// the default ladder and policy with no locations.
func LoadDojoFile(path string) (*DojoFile, error) {
	if path == "" {
		return &DojoFile{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ParseDojoFile(data)
}

// ParseDojoFile decodes YAML; unknown keys are rejected.
func ParseDojoFile(data []byte) (*DojoFile, error) {
	var f DojoFile
	if len(data) == 0 {
		return &f, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse dojo file: %w", err)
	}
	return &f, nil
}

// Build converts the file into domain values and validates them.
func (f *DojoFile) Build() (DojoConfig, error) {
	ledger := belt.DefaultLedger()
	if len(f.Belts) > 0 {
		belts := make([]belt.Belt, 0, len(f.Belts))
		for i, b := range f.Belts {
			belts = append(belts, belt.Belt{ID: b.ID, Name: b.Name, Order: i + 1, Color: b.Color})
		}
		l, err := belt.NewLedger(belts)
		if err != nil {
			return DojoConfig{}, fmt.Errorf("belts: %w", err)
		}
		ledger = l
	}

	policy := belt.DefaultPointsPolicy()
	if f.PointsPerStripe != 0 {
		policy.PointsPerStripe = f.PointsPerStripe
	}
	if f.StripesPerBelt != 0 {
		policy.StripesPerBelt = f.StripesPerBelt
	}
	if err := policy.Validate(); err != nil {
		return DojoConfig{}, err
	}
	for id, o := range f.Overrides {
		if _, ok := ledger.ByID(id); !ok {
			return DojoConfig{}, fmt.Errorf("overrides: unknown belt %q", id)
		}
		if o.PointsPerStripe < 0 || o.StripesPerBelt < 0 {
			return DojoConfig{}, fmt.Errorf("overrides: negative value for belt %q", id)
		}
		if o.PointsPerStripe > 0 {
			if policy.BeltPoints == nil {
				policy.BeltPoints = make(map[string]int)
			}
			policy.BeltPoints[id] = o.PointsPerStripe
		}
		if o.StripesPerBelt > 0 {
			if policy.BeltStripes == nil {
				policy.BeltStripes = make(map[string]int)
			}
			policy.BeltStripes[id] = o.StripesPerBelt
		}
	}

	locations := make([]roster.Location, 0, len(f.Locations))
	for _, l := range f.Locations {
		locations = append(locations, roster.Location{Name: l.Name, Classes: l.Classes})
	}

	return DojoConfig{
		Ledger:    ledger,
		Policy:    policy,
		Directory: roster.NewDirectory(locations),
	}, nil
}

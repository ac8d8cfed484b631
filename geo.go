package proximity

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// Projection pairs transform of input coordinates into planar metric space and transform back for output
type Projection struct {
	Name    string
	Forward orb.Projection
	Inverse orb.Projection
}

// NO_PROJECTION keeps coordinates as is: input is already planar and output stays planar
var NO_PROJECTION = Projection{Name: "none"}

// MERCATOR_PROJECTION treats input as WGS84 lon/lat and works in Web Mercator metres
var MERCATOR_PROJECTION = Projection{
	Name:    "mercator",
	Forward: project.WGS84.ToMercator,
	Inverse: project.Mercator.ToWGS84,
}

// ParseProjection returns projection by its name
func ParseProjection(name string) (Projection, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return NO_PROJECTION, nil
	case "mercator", "epsg:3857":
		return MERCATOR_PROJECTION, nil
	default:
		return Projection{}, fmt.Errorf("Unknown projection '%s'", name)
	}
}

// ToPlanar converts input point into planar coordinates
func (p Projection) ToPlanar(pt orb.Point) orb.Point {
	if p.Forward == nil {
		return pt
	}
	return p.Forward(pt)
}

// ToGeographic converts planar point back to output coordinates
func (p Projection) ToGeographic(pt orb.Point) orb.Point {
	if p.Inverse == nil {
		return pt
	}
	return p.Inverse(pt)
}

// PlanarGeometry converts geometry into planar coordinates
func (p Projection) PlanarGeometry(g orb.Geometry) orb.Geometry {
	if p.Forward == nil {
		return g
	}
	return project.Geometry(orb.Clone(g), p.Forward)
}

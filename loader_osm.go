package proximity

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type OSMScanner interface {
	Scan() bool
	Close() error
	Err() error
	Object() osm.Object
}

// TagPattern matches OSM tag: 'key=value' or 'key=*' (any value)
type TagPattern struct {
	Key   string
	Value string
}

// ParseTagPattern parses 'key=value' or 'key=*'. Bare 'key' means 'key=*'.
func ParseTagPattern(s string) (TagPattern, error) {
	s = strings.TrimSpace(s)
	key, value, found := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if key == "" {
		return TagPattern{}, fmt.Errorf("Bad tag pattern '%s'", s)
	}
	value = strings.TrimSpace(value)
	if !found || value == "" {
		value = "*"
	}
	return TagPattern{Key: key, Value: value}, nil
}

// Match reports whether tags satisfy pattern
func (pattern TagPattern) Match(tags osm.Tags) bool {
	v := tags.Find(pattern.Key)
	if v == "" {
		return false
	}
	return pattern.Value == "*" || pattern.Value == v
}

// AmenityTags maps category to tag patterns
type AmenityTags map[string][]TagPattern

// ParseAmenityTags parses category -> []"key=value" table
func ParseAmenityTags(raw map[string][]string) (AmenityTags, error) {
	out := make(AmenityTags, len(raw))
	for category, patterns := range raw {
		for _, p := range patterns {
			pattern, err := ParseTagPattern(p)
			if err != nil {
				return nil, errors.Wrapf(err, "Category '%s'", category)
			}
			out[category] = append(out[category], pattern)
		}
	}
	return out, nil
}

// categories returns every category matched by tags, sorted
func (amenityTags AmenityTags) categories(tags osm.Tags) []string {
	if len(tags) == 0 {
		return nil
	}
	matched := make([]string, 0)
	for category, patterns := range amenityTags {
		for _, pattern := range patterns {
			if pattern.Match(tags) {
				matched = append(matched, category)
				break
			}
		}
	}
	sort.Strings(matched)
	return matched
}

func newOSMScanner(ctx context.Context, filename string, file *os.File) (OSMScanner, error) {
	ext := filepath.Ext(filename)
	switch ext {
	case ".osm", ".xml":
		return osmxml.New(ctx, file), nil
	case ".pbf":
		return osmpbf.New(ctx, file, 4), nil
	default:
		return nil, fmt.Errorf("File extension '%s' for file '%s' is not handled yet", ext, filename)
	}
}

// LoadAmenitiesOSM extracts amenities from OSM XML or PBF file.
// Tagged nodes are positioned at themselves, tagged ways at their first node.
func LoadAmenitiesOSM(ctx context.Context, filename string, amenityTags AmenityTags, projection Projection) ([]Amenity, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open OSM file")
	}
	defer file.Close()

	/* Process ways */
	st := time.Now()
	wayAnchors := make(map[osm.NodeID][]string)
	waysNum := 0
	{
		scannerWays, err := newOSMScanner(ctx, filename, file)
		if err != nil {
			return nil, err
		}
		defer scannerWays.Close()
		for scannerWays.Scan() {
			obj := scannerWays.Object()
			if obj.ObjectID().Type() != "way" {
				continue
			}
			way := obj.(*osm.Way)
			if len(way.Nodes) == 0 {
				continue
			}
			matched := amenityTags.categories(way.Tags)
			if len(matched) == 0 {
				continue
			}
			first := way.Nodes[0].ID
			wayAnchors[first] = append(wayAnchors[first], matched...)
			waysNum++
		}
		err = scannerWays.Err()
		if err != nil {
			return nil, errors.Wrap(err, "Can't scan ways")
		}
	}
	zap.L().Debug("OSM ways scanned", zap.Int("amenity_ways", waysNum), zap.Duration("took", time.Since(st)))

	// Seek file to start
	_, err = file.Seek(0, io.SeekStart)
	if err != nil {
		return nil, errors.Wrap(err, "Can't repeat seeking after ways scanning")
	}

	/* Process nodes */
	st = time.Now()
	amenities := make([]Amenity, 0)
	{
		scannerNodes, err := newOSMScanner(ctx, filename, file)
		if err != nil {
			return nil, err
		}
		defer scannerNodes.Close()
		for scannerNodes.Scan() {
			obj := scannerNodes.Object()
			if obj.ObjectID().Type() != "node" {
				continue
			}
			node := obj.(*osm.Node)
			pt := projection.ToPlanar(orb.Point{node.Lon, node.Lat})
			for _, category := range amenityTags.categories(node.Tags) {
				amenities = append(amenities, Amenity{Category: category, Point: pt})
			}
			if categories, ok := wayAnchors[node.ID]; ok {
				for _, category := range categories {
					amenities = append(amenities, Amenity{Category: category, Point: pt})
				}
				delete(wayAnchors, node.ID)
			}
		}
		err = scannerNodes.Err()
		if err != nil {
			return nil, errors.Wrap(err, "Can't scan nodes")
		}
	}
	if len(wayAnchors) > 0 {
		zap.L().Debug("OSM ways without known first node", zap.Int("ways", len(wayAnchors)))
	}
	zap.L().Info("OSM amenities extracted", zap.Int("amenities", len(amenities)), zap.Duration("took", time.Since(st)))
	return amenities, nil
}

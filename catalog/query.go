package catalog

import (
	"math"
	"sort"
	"strings"

	"github.com/stellarworks/universe-simulator/model"
)

// Box is an axis-aligned bounding box in the catalog's Cartesian frame,
// used for viewport position queries.
type Box struct {
	MinX, MinY, MinZ float64
	MaxX, MaxY, MaxZ float64
}

// Contains reports whether a position lies inside the box, bounds
// inclusive.
func (b Box) Contains(p model.Position) bool {
	return p.X >= b.MinX && p.X <= b.MaxX &&
		p.Y >= b.MinY && p.Y <= b.MaxY &&
		p.Z >= b.MinZ && p.Z <= b.MaxZ
}

// Search returns objects whose name contains q case-insensitively,
// optionally restricted to one type. limit <= 0 means no limit. Results
// are ordered by name, then ID.
func (c *Catalog) Search(q string, objType model.ObjectType, limit int) []model.CelestialObject {
	needle := strings.ToLower(q)

	c.mu.RLock()
	res := make([]model.CelestialObject, 0)
	for _, obj := range c.objects {
		if objType != "" && obj.Type != objType {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(obj.Name), needle) {
			continue
		}
		res = append(res, *obj)
	}
	c.mu.RUnlock()

	sort.Slice(res, func(i, j int) bool {
		if res[i].Name != res[j].Name {
			return res[i].Name < res[j].Name
		}
		return res[i].ID < res[j].ID
	})
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res
}

// QueryPositions returns objects inside the box no fainter than
// maxMagnitude (pass +Inf for no magnitude cut), ordered brightest
// first. offset and limit page through the result; limit <= 0 means no
// limit.
func (c *Catalog) QueryPositions(box Box, maxMagnitude float64, limit, offset int) []model.CelestialObject {
	c.mu.RLock()
	res := make([]model.CelestialObject, 0)
	for _, obj := range c.objects {
		if !box.Contains(obj.Position) {
			continue
		}
		if obj.Magnitude > maxMagnitude {
			continue
		}
		res = append(res, *obj)
	}
	c.mu.RUnlock()

	sort.Slice(res, func(i, j int) bool {
		if res[i].Magnitude != res[j].Magnitude {
			return res[i].Magnitude < res[j].Magnitude
		}
		return res[i].ID < res[j].ID
	})

	if offset > 0 {
		if offset >= len(res) {
			return nil
		}
		res = res[offset:]
	}
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res
}

// TypeCounts returns the number of objects per type.
func (c *Catalog) TypeCounts() map[model.ObjectType]int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	counts := make(map[model.ObjectType]int)
	for _, obj := range c.objects {
		counts[obj.Type]++
	}
	return counts
}

// Stats summarizes the catalog for the stats endpoint.
type Stats struct {
	Total        int
	ByType       map[model.ObjectType]int
	BySource     map[string]int
	Orbiting     int
	BrightestMag float64
	FaintestMag  float64
}

// Summarize computes catalog statistics in one pass.
func (c *Catalog) Summarize() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{
		ByType:       make(map[model.ObjectType]int),
		BySource:     make(map[string]int),
		BrightestMag: math.Inf(1),
		FaintestMag:  math.Inf(-1),
	}
	for _, obj := range c.objects {
		s.Total++
		s.ByType[obj.Type]++
		if obj.Source != "" {
			s.BySource[obj.Source]++
		}
		if obj.Orbits() {
			s.Orbiting++
		}
		if obj.Magnitude < s.BrightestMag {
			s.BrightestMag = obj.Magnitude
		}
		if obj.Magnitude > s.FaintestMag {
			s.FaintestMag = obj.Magnitude
		}
	}
	if s.Total == 0 {
		s.BrightestMag = 0
		s.FaintestMag = 0
	}
	return s
}

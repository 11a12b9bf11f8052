package services

import (
	"context"
	"fmt"
	"math"
	"pickup-dispatch-service/internal/domain"
	"pickup-dispatch-service/internal/ports"
	"sync"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// centerPoint is a center projected onto the unit sphere. Squared chord
// length between unit vectors grows monotonically with great-circle distance,
// so euclidean nearest-neighbour search in 3D finds the closest center.
type centerPoint struct {
	vec    [3]float64
	center domain.Center
}

func (p centerPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.vec[d] - c.(centerPoint).vec[d]
}

func (p centerPoint) Dims() int { return 3 }

func (p centerPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(centerPoint)
	var sum float64
	for i := range p.vec {
		d := p.vec[i] - q.vec[i]
		sum += d * d
	}
	return sum
}

type centerPoints []centerPoint

func (p centerPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p centerPoints) Len() int                              { return len(p) }
func (p centerPoints) Pivot(d kdtree.Dim) int                { return centerPlane{Dim: d, centerPoints: p}.Pivot() }
func (p centerPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

type centerPlane struct {
	kdtree.Dim
	centerPoints
}

func (p centerPlane) Less(i, j int) bool {
	return p.centerPoints[i].vec[p.Dim] < p.centerPoints[j].vec[p.Dim]
}
func (p centerPlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p centerPlane) Slice(start, end int) kdtree.SortSlicer {
	p.centerPoints = p.centerPoints[start:end]
	return p
}
func (p centerPlane) Swap(i, j int) {
	p.centerPoints[i], p.centerPoints[j] = p.centerPoints[j], p.centerPoints[i]
}

// GeoIndex answers nearest-center queries. It is safe for concurrent use;
// writes rebuild the tree since centers change rarely.
type GeoIndex struct {
	mu     sync.RWMutex
	points map[uuid.UUID]centerPoint
	tree   *kdtree.Tree
}

func NewGeoIndex(centers []domain.Center) *GeoIndex {
	g := &GeoIndex{points: make(map[uuid.UUID]centerPoint, len(centers))}
	for _, c := range centers {
		g.points[c.ID] = centerPoint{vec: c.Location.UnitVector(), center: c}
	}
	g.rebuild()
	return g
}

// LoadGeoIndex builds an index over every stored center.
func LoadGeoIndex(ctx context.Context, repo ports.CenterRepository) (*GeoIndex, error) {
	centers, err := repo.ListCenters(ctx)
	if err != nil {
		return nil, fmt.Errorf("load geo index: list centers: %w", err)
	}
	return NewGeoIndex(centers), nil
}

func (g *GeoIndex) rebuild() {
	pts := make(centerPoints, 0, len(g.points))
	for _, p := range g.points {
		pts = append(pts, p)
	}
	g.tree = kdtree.New(pts, false)
}

// Upsert adds c or replaces the entry with the same id.
func (g *GeoIndex) Upsert(c domain.Center) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.points[c.ID] = centerPoint{vec: c.Location.UnitVector(), center: c}
	g.rebuild()
}

func (g *GeoIndex) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.points)
}

// Nearest returns the closest center to p no further than maxDistanceMeters
// along the great circle, or domain.ErrNoCenterAvailable.
func (g *GeoIndex) Nearest(p domain.Coordinates, maxDistanceMeters float64) (domain.Center, float64, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	got, _ := g.tree.Nearest(centerPoint{vec: p.UnitVector()})
	if got == nil {
		return domain.Center{}, 0, domain.ErrNoCenterAvailable
	}
	c := got.(centerPoint).center
	dist := p.DistanceMeters(c.Location)
	if dist > maxDistanceMeters || math.IsNaN(dist) {
		return domain.Center{}, 0, fmt.Errorf("%w: nearest center is %.0fm away", domain.ErrNoCenterAvailable, dist)
	}
	return c, dist, nil
}

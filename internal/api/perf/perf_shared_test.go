//go:build perf || perf_large

package perf

import (
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stellarworks/universe-simulator/catalog"
	"github.com/stellarworks/universe-simulator/internal/api"
	"github.com/stellarworks/universe-simulator/internal/sim"
	"github.com/stellarworks/universe-simulator/model"
	"github.com/stellarworks/universe-simulator/timectrl"
)

type perfConfig struct {
	Objects      int
	Propagations int
	Queries      int
}

func benchmarkCatalogAdd(b *testing.B, cfg perfConfig) {
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		cat := catalog.New()

		b.ResetTimer()
		for j := 0; j < cfg.Objects; j++ {
			if err := cat.Add(syntheticStar(i, j)); err != nil {
				b.Fatalf("Add(star %d-%d): %v", i, j, err)
			}
		}
		b.StopTimer()
	}
}

func benchmarkPropagation(b *testing.B, cfg perfConfig) {
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		cat := catalog.New()
		registry := sim.NewRegistry(
			sim.WithPositionUpdater(cat),
			sim.WithWorkers(4),
		)
		for j := 0; j < cfg.Objects; j++ {
			obj := syntheticPlanet(i, j)
			if err := cat.Add(obj); err != nil {
				b.Fatalf("Add(planet %d-%d): %v", i, j, err)
			}
			if err := registry.AddObject(obj); err != nil {
				b.Fatalf("AddObject(%s): %v", obj.ID, err)
			}
		}

		b.ResetTimer()
		for j := 0; j < cfg.Propagations; j++ {
			simTime := timectrl.J2000.Add(time.Duration(j) * 24 * time.Hour)
			if err := registry.UpdatePositions(simTime); err != nil {
				b.Fatalf("UpdatePositions(%d): %v", j, err)
			}
		}
		b.StopTimer()
	}
}

func benchmarkPositionsQuery(b *testing.B, cfg perfConfig) {
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		cat := seedCatalog(b, i, cfg.Objects)
		box := catalog.Box{
			MinX: 0, MinY: 0, MinZ: 0,
			MaxX: 50, MaxY: 50, MaxZ: 10,
		}

		b.ResetTimer()
		for j := 0; j < cfg.Queries; j++ {
			if res := cat.QueryPositions(box, 10, 100, 0); len(res) == 0 {
				b.Fatalf("query %d matched nothing", j)
			}
		}
		b.StopTimer()
	}
}

func benchmarkListEndpoint(b *testing.B, cfg perfConfig) {
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		cat := seedCatalog(b, i, cfg.Objects)
		clock, err := timectrl.New(timectrl.DefaultConfig())
		if err != nil {
			b.Fatalf("new clock: %v", err)
		}
		server, err := api.NewServer(cat, clock, nil, nil, nil, api.ServerConfig{}, nil, nil)
		if err != nil {
			b.Fatalf("new server: %v", err)
		}
		routes := server.Routes()

		b.ResetTimer()
		for j := 0; j < cfg.Queries; j++ {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/objects?limit=100", nil)
			rec := httptest.NewRecorder()
			routes.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				b.Fatalf("list request %d: status %d", j, rec.Code)
			}
		}
		b.StopTimer()
	}
}

func seedCatalog(b *testing.B, run, objects int) *catalog.Catalog {
	cat := catalog.New()
	for j := 0; j < objects; j++ {
		if err := cat.Add(syntheticStar(run, j)); err != nil {
			b.Fatalf("seed Add(%d): %v", j, err)
		}
	}
	return cat
}

// syntheticStar spreads static objects over a 100x100x10 position grid
// with magnitudes cycling 0..14.
func syntheticStar(run, j int) *model.CelestialObject {
	return &model.CelestialObject{
		ID:           fmt.Sprintf("star-%d-%d", run, j),
		Name:         fmt.Sprintf("Star %d-%d", run, j),
		Type:         model.TypeStar,
		MotionSource: model.MotionStatic,
		Magnitude:    float64(j % 15),
		Position: model.Position{
			X: float64(j % 100),
			Y: float64((j / 100) % 100),
			Z: float64(j % 10),
		},
		DistancePc: math.Sqrt(float64(j%100 + 1)),
	}
}

// syntheticPlanet varies orbit size and phase so propagation work is not
// uniform across the set.
func syntheticPlanet(run, j int) *model.CelestialObject {
	a := 0.4 + float64(j%40)*0.25
	return &model.CelestialObject{
		ID:           fmt.Sprintf("planet-%d-%d", run, j),
		Name:         fmt.Sprintf("Planet %d-%d", run, j),
		Type:         model.TypePlanet,
		MotionSource: model.MotionKeplerian,
		Elements: &model.OrbitalElements{
			SemiMajorAxisAU:       a,
			Eccentricity:          float64(j%9) * 0.05,
			InclinationRad:        float64(j%7) * 0.05,
			MeanAnomalyAtEpochRad: float64(j%360) * math.Pi / 180,
			PeriodDays:            model.PeriodFromSemiMajorAxis(a),
		},
	}
}

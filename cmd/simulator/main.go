// Command simulator runs the positioning engine headless: it seeds the
// built-in catalog, steps simulated time on a wall-clock ticker, and
// prints an ephemeris table for every orbiting object on each tick.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"text/tabwriter"
	"time"

	sexa "github.com/soniakeys/sexagesimal"
	"github.com/soniakeys/unit"

	"github.com/stellarworks/universe-simulator/astro"
	"github.com/stellarworks/universe-simulator/catalog"
	"github.com/stellarworks/universe-simulator/ingest"
	"github.com/stellarworks/universe-simulator/internal/sim"
	"github.com/stellarworks/universe-simulator/model"
	"github.com/stellarworks/universe-simulator/timectrl"
)

func main() {
	duration := flag.Duration("duration", 30*time.Second, "total wall-clock run time")
	tick := flag.Duration("tick", 1*time.Second, "wall-clock tick interval")
	step := flag.Float64("step", 5.0, "simulated days advanced per tick")
	scenarioPath := flag.String("scenario", "", "optional JSON scenario loaded after the built-in seed")
	flag.Parse()

	cat := catalog.New()

	sum, err := ingest.SeedAll(cat)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Catalog seeded: %d solar system bodies, %d stars, %d satellites\n",
		sum.SolarSystem, sum.Stars, sum.Satellites)

	if *scenarioPath != "" {
		f, err := os.Open(*scenarioPath)
		if err != nil {
			panic(fmt.Errorf("failed to open scenario %q: %w", *scenarioPath, err))
		}
		scn, err := ingest.LoadScenario(cat, f)
		f.Close()
		if err != nil {
			panic(fmt.Errorf("failed to load scenario: %w", err))
		}
		fmt.Printf("Loaded scenario: %d objects, %d orbiting\n",
			len(scn.ObjectIDs), len(scn.OrbitingIDs))
	}

	// A day-granularity wrapping clock: with scale 1 each Advance second
	// moves the sky one day.
	clock, err := timectrl.New(timectrl.DayWrapConfig())
	if err != nil {
		panic(err)
	}
	clock.Toggle()

	registry := sim.NewRegistry(
		sim.WithPositionUpdater(cat),
		sim.WithWorkers(4),
		sim.WithGeocentricOrigin(earthOrigin(cat)),
	)
	for _, obj := range cat.List() {
		if !obj.Orbits() {
			continue
		}
		o := obj
		if err := registry.AddObject(&o); err != nil {
			panic(err)
		}
	}

	fmt.Printf("Starting simulation: duration=%s, tick=%s, step=%.1f days\n",
		*duration, *tick, *step)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	ticker := time.NewTicker(*tick)
	defer ticker.Stop()

	if err := registry.UpdatePositions(clock.Now()); err != nil {
		fmt.Fprintf(os.Stderr, "warning: position update: %v\n", err)
	}
	printEphemeris(cat, clock)

	for {
		select {
		case <-ctx.Done():
			fmt.Println("Simulation complete.")
			return
		case <-ticker.C:
			clock.Advance(*step)
			if err := registry.UpdatePositions(clock.Now()); err != nil {
				fmt.Fprintf(os.Stderr, "warning: position update: %v\n", err)
			}
			printEphemeris(cat, clock)
		}
	}
}

// printEphemeris writes one table row per orbiting object: heliocentric
// position in AU plus the apparent equatorial direction from the origin.
func printEphemeris(cat *catalog.Catalog, clock *timectrl.Clock) {
	fmt.Printf("[day %.1f, JD %.2f]\n", clock.OffsetDays(), clock.JulianDate())

	w := tabwriter.NewWriter(os.Stdout, 1, 8, 1, ' ', 0)
	fmt.Fprintf(w, "ID\tTYPE\tX(AU)\tY(AU)\tZ(AU)\tR(AU)\tRA\tDEC\t\n")
	for _, obj := range cat.List() {
		if !obj.Orbits() {
			continue
		}
		p := obj.Position
		r := math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
		raDeg, decDeg := apparentEquatorial(p)

		fmt.Fprintf(w, "%s\t%s\t%+.3f\t%+.3f\t%+.3f\t%.3f\t%0.1j\t%0.1j\t\n",
			obj.ID, obj.Type,
			p.X, p.Y, p.Z, r,
			sexa.FmtRA(unit.RAFromDeg(raDeg)),
			sexa.FmtAngle(unit.AngleFromDeg(decDeg)),
		)
	}
	w.Flush()
}

// apparentEquatorial converts a Cartesian position into the right
// ascension and declination of its direction from the origin, both in
// degrees. The origin itself maps to (0, 0).
func apparentEquatorial(p model.Position) (raDeg, decDeg float64) {
	r := math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
	if r == 0 {
		return 0, 0
	}
	ra := math.Atan2(p.Y, p.X) * 180 / math.Pi
	if ra < 0 {
		ra += 360
	}
	dec := math.Asin(p.Z/r) * 180 / math.Pi
	return ra, dec
}

// earthOrigin rebases geocentric satellite output onto Earth's
// heliocentric orbit, matching what the server engine does.
func earthOrigin(cat *catalog.Catalog) func(time.Time) model.Position {
	return func(simTime time.Time) model.Position {
		obj, err := cat.Get("earth")
		if err != nil || obj.Elements == nil {
			return model.Position{}
		}
		days := simTime.Sub(timectrl.J2000).Hours() / 24
		pos, err := astro.Propagate(*obj.Elements, days)
		if err != nil {
			return model.Position{}
		}
		return model.Position{X: pos.X, Y: pos.Y, Z: pos.Z}
	}
}

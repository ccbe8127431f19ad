// fieldviz loads a world, plans routes and renders the resulting
// integration and flow fields as ASCII grids on stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/flowtiles/internal/config"
	"github.com/udisondev/flowtiles/internal/field"
	"github.com/udisondev/flowtiles/internal/nav"
	"github.com/udisondev/flowtiles/internal/store"
)

const DefaultConfigPath = "config/fieldviz.yaml"

// routeSpec is one "-route" flag value in the form
// "srcCol,srcRow:cellCol,cellRow->goalCol,goalRow:cellCol,cellRow".
type routeSpec struct {
	srcSector, goalSector field.SectorID
	srcCell, goalCell     field.FieldCell
}

type routeList []routeSpec

func (l *routeList) String() string {
	return fmt.Sprintf("%d routes", len(*l))
}

func (l *routeList) Set(value string) error {
	var s routeSpec
	_, err := fmt.Sscanf(value, "%d,%d:%d,%d->%d,%d:%d,%d",
		&s.srcSector.Column, &s.srcSector.Row, &s.srcCell.Column, &s.srcCell.Row,
		&s.goalSector.Column, &s.goalSector.Row, &s.goalCell.Column, &s.goalCell.Row)
	if err != nil {
		return fmt.Errorf("route %q: want srcCol,srcRow:cellCol,cellRow->goalCol,goalRow:cellCol,cellRow", value)
	}
	*l = append(*l, s)
	return nil
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var (
		configPath  = flag.String("config", DefaultConfigPath, "engine config file")
		columns     = flag.Uint("cols", 2, "world width in sectors")
		rows        = flag.Uint("rows", 1, "world height in sectors")
		integration = flag.Bool("integration", false, "also render the goal sector's integration field")
		routes      routeList
	)
	flag.Var(&routes, "route", "route to plan, repeatable")
	flag.Parse()

	cfgPath := *configPath
	if p := os.Getenv("FLOWTILES_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadEngine(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))

	world, err := nav.New(uint32(*columns), uint32(*rows), cfg)
	if err != nil {
		return fmt.Errorf("creating world: %w", err)
	}

	switch {
	case cfg.Database.Enabled():
		if err := loadFromStore(ctx, world, cfg); err != nil {
			return err
		}
	case cfg.CostFieldDir != "":
		if err := world.LoadCostFieldDir(cfg.CostFieldDir); err != nil {
			return fmt.Errorf("loading cost fields: %w", err)
		}
	}

	if len(routes) == 0 {
		// Demo route across the whole world.
		routes = append(routes, routeSpec{
			srcSector:  field.SectorID{Column: 0, Row: 0},
			srcCell:    field.FieldCell{Column: 0, Row: 0},
			goalSector: field.SectorID{Column: uint32(*columns) - 1, Row: uint32(*rows) - 1},
			goalCell:   field.FieldCell{Column: 9, Row: 9},
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.RouteWorkers)

	results := make([]*nav.Route, len(routes))
	for i, spec := range routes {
		g.Go(func() error {
			handle, err := world.RequestRoute(gctx, spec.srcSector, spec.srcCell, spec.goalSector, spec.goalCell)
			if err != nil {
				return fmt.Errorf("requesting route %v: %w", spec, err)
			}
			route, err := handle.Route()
			if err != nil {
				return fmt.Errorf("building route %v: %w", spec, err)
			}
			results[i] = route
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, route := range results {
		spec := routes[i]
		fmt.Printf("route %d,%d:%d,%d -> %d,%d:%d,%d\n",
			spec.srcSector.Column, spec.srcSector.Row, spec.srcCell.Column, spec.srcCell.Row,
			spec.goalSector.Column, spec.goalSector.Row, spec.goalCell.Column, spec.goalCell.Row)

		if *integration {
			costs, err := world.CostFieldCopy(spec.goalSector)
			if err != nil {
				return err
			}
			integ := field.NewIntegrationField()
			integ.Calculate([]field.FieldCell{spec.goalCell}, &costs)
			fmt.Printf("integration field, sector (%d,%d):\n%s\n",
				spec.goalSector.Column, spec.goalSector.Row, renderIntegration(integ))
		}

		for _, sf := range route.Chain {
			fmt.Printf("flow field, sector (%d,%d):\n%s\n", sf.Sector.Column, sf.Sector.Row, renderFlow(sf.Flow))
		}
	}

	return nil
}

func loadFromStore(ctx context.Context, world *nav.World, cfg config.Engine) error {
	dsn := cfg.Database.DSN()
	if err := store.RunMigrations(ctx, dsn); err != nil {
		return fmt.Errorf("migrating cost field store: %w", err)
	}

	st, err := store.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("opening cost field store: %w", err)
	}
	defer st.Close()

	fields, err := st.LoadCostFields(ctx)
	if err != nil {
		return fmt.Errorf("loading cost fields from store: %w", err)
	}
	if err := world.LoadCostFieldsBulk(fields); err != nil {
		return fmt.Errorf("applying stored cost fields: %w", err)
	}
	slog.Info("cost fields loaded from store", "sectors", len(fields))
	return nil
}

var flowGlyphs = map[field.Ordinal]rune{
	field.North:     '↑',
	field.East:      '→',
	field.South:     '↓',
	field.West:      '←',
	field.NorthEast: '↗',
	field.SouthEast: '↘',
	field.SouthWest: '↙',
	field.NorthWest: '↖',
}

// renderFlow draws a flow field row by row: arrows for directions, G for
// the goal cell, P for portal-goal cells, # for impassable cells.
func renderFlow(f *field.FlowField) string {
	var b strings.Builder
	for row := 0; row < field.Resolution; row++ {
		for col := 0; col < field.Resolution; col++ {
			c := field.FieldCell{Column: col, Row: row}
			flags := f.Flags(c)
			switch {
			case flags&field.FlagGoal != 0:
				b.WriteRune('G')
			case flags&field.FlagPortalGoal != 0:
				b.WriteRune('P')
			case flags&field.FlagPathable == 0:
				b.WriteRune('#')
			default:
				if o, ok := f.Direction(c); ok {
					b.WriteRune(flowGlyphs[o])
				} else {
					b.WriteRune('.')
				}
			}
			b.WriteByte(' ')
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// renderIntegration draws an integration field row by row with "____"
// for unvisited cells.
func renderIntegration(f *field.IntegrationField) string {
	var b strings.Builder
	for row := 0; row < field.Resolution; row++ {
		for col := 0; col < field.Resolution; col++ {
			v := f.Get(field.FieldCell{Column: col, Row: row})
			if v == field.Unvisited {
				b.WriteString("____ ")
			} else {
				fmt.Fprintf(&b, "%4d ", v)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

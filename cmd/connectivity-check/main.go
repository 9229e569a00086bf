package main

import (
	"context"
	"flag"
	"runtime"

	"github.com/lintang-b-s/laneconnectivity/pkg"
	"github.com/lintang-b-s/laneconnectivity/pkg/logger"
	"github.com/lintang-b-s/laneconnectivity/pkg/osmstore"
	"github.com/lintang-b-s/laneconnectivity/pkg/roadgraph"
	"github.com/lintang-b-s/laneconnectivity/pkg/turns"
	"github.com/lintang-b-s/laneconnectivity/pkg/util"
	"github.com/lintang-b-s/laneconnectivity/pkg/validation"
	"github.com/paulmach/osm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	file       = flag.String("file", "./data/map.osm.pbf", "osm file (.osm.pbf, .osm or .osm.bz2)")
	configPath = flag.String("config", "", "directory containing config.{yaml,json,toml}")
	workers    = flag.Int("workers", runtime.NumCPU(), "number of relations checked in parallel")
	resolve    = flag.Bool("resolve", false, "also resolve the turns of every connectivity relation")
)

func main() {
	flag.Parse()
	if *configPath != "" {
		if err := util.ReadConfig(*configPath); err != nil {
			panic(err)
		}
	}
	log, err := logger.New()
	if err != nil {
		panic(err)
	}
	cfg, err := util.LoadConfig()
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	ds, err := osmstore.LoadFile(ctx, *file, log)
	if err != nil {
		panic(err)
	}

	relations := make([]*osm.Relation, 0)
	for _, r := range ds.Relations() {
		switch r.Tags.Find(pkg.KEY_TYPE) {
		case pkg.TYPE_CONNECTIVITY, pkg.TYPE_LENGTHS:
			relations = append(relations, r)
		}
	}
	log.Info("checking relations", zap.Int("relations", len(relations)), zap.Int("workers", *workers))

	findings := make([][]validation.Finding, len(relations))
	turnCounts := make([]int, len(relations))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*workers)
	for i, r := range relations {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			findings[i] = validation.Check(ds, cfg, r)
			if *resolve && r.Tags.Find(pkg.KEY_TYPE) == pkg.TYPE_CONNECTIVITY && len(findings[i]) == 0 {
				turnCounts[i] = resolveTurns(ds, cfg, r, log)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		panic(err)
	}

	total, resolved := 0, 0
	for i, fs := range findings {
		for _, f := range fs {
			log.Warn(f.Message,
				zap.Int64("relation", int64(f.Relation)),
				zap.Int("code", int(f.Code)),
				zap.String("check", f.Code.String()),
			)
		}
		total += len(fs)
		resolved += turnCounts[i]
	}
	log.Info("connectivity check completed", zap.Int("findings", total), zap.Int("turns", resolved))
}

// resolveTurns builds a graph around the members of r and returns the number of
// turns it resolves to.
func resolveTurns(ds *osmstore.DataSet, cfg util.Config, r *osm.Relation, log *zap.Logger) int {
	nodes := make([]osm.NodeID, 0)
	ways := make([]osm.WayID, 0)
	for _, m := range r.Members {
		if m.Role != pkg.ROLE_VIA {
			continue
		}
		switch m.Type {
		case osm.TypeNode:
			nodes = append(nodes, osm.NodeID(m.Ref))
		case osm.TypeWay:
			ways = append(ways, osm.WayID(m.Ref))
		}
	}

	graph, err := roadgraph.NewGraph(ds, nodes, ways, cfg, zap.NewNop())
	if err != nil {
		log.Warn("cannot build road graph", zap.Int64("relation", int64(r.ID)), zap.Error(err))
		return 0
	}
	ts, err := turns.Load(graph, r)
	if err != nil {
		log.Warn("cannot resolve turns", zap.Int64("relation", int64(r.ID)), zap.Error(err))
		return 0
	}
	return len(ts)
}

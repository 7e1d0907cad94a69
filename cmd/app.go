package cmd

import (
	"context"
	"fmt"

	"eve-hauler/internal/config"
	"eve-hauler/internal/db"
	"eve-hauler/internal/engine"
	"eve-hauler/internal/logger"
	"eve-hauler/internal/marketdata"

	"go.uber.org/zap"
)

// app bundles the shared dependencies of every command.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	db       *db.DB
	provider *marketdata.Provider
}

func newApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	path := cfg.DBPath()
	if path == "" {
		path = db.DefaultPath()
	}
	store, err := db.Open(path)
	if err != nil {
		log.Error("failed to open database", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	log.Info("database ready", zap.String("path", path))

	return &app{
		cfg:      cfg,
		log:      log,
		db:       store,
		provider: marketdata.New(store, cfg.Cache.TTL),
	}, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.log != nil {
		a.log.Sync()
	}
}

// RunAllBatchesAndPersist runs the harness over all matching strategies and
// stores every produced batch before returning the ranking.
func RunAllBatchesAndPersist(ctx context.Context, a *app, strategies []engine.Strategy, nameFilter string, uni engine.MarketUniverse, params engine.WalkForwardParams) (*engine.AllStrategiesBatch, error) {
	out, err := engine.RunAllBatches(ctx, strategies, nameFilter, uni, params, a.provider)
	if err != nil {
		return nil, err
	}
	for i := range out.Batches {
		batch := out.Batches[i].Batch
		if err := a.db.SaveBatch(&batch); err != nil {
			return nil, err
		}
		a.log.Info("batch stored",
			zap.String("batch_id", batch.ID),
			zap.String("strategy", out.Batches[i].StrategyName),
			zap.Int("runs", batch.Aggregates.Runs),
			zap.Int("completed", batch.Aggregates.Completed))
	}
	return out, nil
}

// universe assembles the configured markets with the stored item catalog.
func (a *app) universe() (engine.MarketUniverse, error) {
	uni := a.cfg.MarketUniverse()
	if uni.SourceStationID == 0 {
		return uni, fmt.Errorf("universe.source_station_id is not configured")
	}
	if len(uni.DestinationStationIDs) == 0 {
		return uni, fmt.Errorf("universe.destination_station_ids is not configured")
	}

	items, err := a.db.ListItemTypes()
	if err != nil {
		return uni, err
	}
	if len(items) == 0 {
		return uni, fmt.Errorf("item catalog is empty, run 'eve-hauler import items' first")
	}
	uni.Items = items
	return uni, nil
}

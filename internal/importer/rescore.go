package importer

import (
	"context"
	"fmt"

	"github.com/dubai-invest/dubai-invest/internal/scoring"
	"go.uber.org/zap"
)

// ScoreRepository is the storage Rescore reads district data from and saves
// opportunities to.
type ScoreRepository interface {
	DistrictInputs(ctx context.Context) ([]scoring.DistrictInput, error)
	SaveOpportunities(ctx context.Context, year int, ranked []scoring.Ranked) error
}

// Rescore ranks every district on its statistics for year and stores the
// result as that year's investment opportunities.
func Rescore(ctx context.Context, repo ScoreRepository, year int, logger *zap.Logger) ([]scoring.Ranked, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	inputs, err := repo.DistrictInputs(ctx)
	if err != nil {
		return nil, fmt.Errorf("importer.Rescore: %w", err)
	}

	ranked := scoring.Rank(scoring.ForYear(inputs, year))
	if err := repo.SaveOpportunities(ctx, year, ranked); err != nil {
		return nil, fmt.Errorf("importer.Rescore: %w", err)
	}

	logger.Info("opportunities rescored",
		zap.String("op", "importer.Rescore"),
		zap.Int("year", year),
		zap.Int("districts", len(ranked)),
	)
	return ranked, nil
}

// Package importer loads district market data from JSON files into storage.
// Imports are idempotent: statistics already stored for a district and
// period are skipped, never overwritten.
package importer

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dubai-invest/dubai-invest/internal/market"
	"github.com/dubai-invest/dubai-invest/internal/storage"
	"github.com/dubai-invest/dubai-invest/pkg/constants"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

//go:embed seed/dubai.json
var seedData []byte

// Defaults for districts created from items that omit them.
const (
	DefaultCategory     = "Residential"
	DefaultMarketStatus = "Stable"
	DefaultStatusLabel  = "Stable"
	DefaultSource       = "Dubai Land Department"
)

// Item is one record of an import file: a district's statistics for a
// period plus, optionally, its supply pipeline for the year.
type Item struct {
	DistrictName     string   `json:"districtName" validate:"required"`
	NameAr           string   `json:"nameAr,omitempty"`
	Category         string   `json:"category,omitempty"`
	Description      string   `json:"description,omitempty"`
	Latitude         *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude        *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
	DominantTypology string   `json:"dominantTypology,omitempty"`
	MarketStatus     string   `json:"marketStatus,omitempty"`
	StatusLabel      string   `json:"statusLabel,omitempty"`

	Year               int      `json:"year" validate:"gte=1990,lte=2100"`
	Quarter            string   `json:"quarter,omitempty"`
	AvgPricePerSqm     *float64 `json:"avgPricePerSqm,omitempty"`
	PriceChangePercent *float64 `json:"priceChangePercent,omitempty"`
	AvgRentNew         *float64 `json:"avgRentNew,omitempty"`
	AvgRentRenewed     *float64 `json:"avgRentRenewed,omitempty"`
	GrossYield         *float64 `json:"grossYield,omitempty"`
	NetYield           *float64 `json:"netYield,omitempty"`
	TransactionVolume  *int64   `json:"transactionVolume,omitempty" validate:"omitempty,gte=0"`
	TransactionValue   *float64 `json:"transactionValue,omitempty"`
	AvgPriceApartment  *float64 `json:"avgPriceApartment,omitempty"`
	AvgPriceVilla      *float64 `json:"avgPriceVilla,omitempty"`
	OffPlanShare       *float64 `json:"offPlanShare,omitempty"`
	ReadyShare         *float64 `json:"readyShare,omitempty"`
	Source             string   `json:"source,omitempty"`

	SupplyRiskLevel string   `json:"supplyRiskLevel,omitempty"`
	UnitsPlanned    *int64   `json:"unitsPlanned,omitempty" validate:"omitempty,gte=0"`
	UnitsDelivered  *int64   `json:"unitsDelivered,omitempty" validate:"omitempty,gte=0"`
	MajorProjects   []string `json:"majorProjects,omitempty"`
}

func (it Item) quarter() string {
	if q := strings.TrimSpace(it.Quarter); q != "" {
		return q
	}
	return constants.DefaultQuarter
}

func (it Item) district() market.District {
	d := market.District{
		Name:             strings.TrimSpace(it.DistrictName),
		NameAr:           it.NameAr,
		Category:         it.Category,
		Description:      it.Description,
		Latitude:         it.Latitude,
		Longitude:        it.Longitude,
		DominantTypology: it.DominantTypology,
		MarketStatus:     it.MarketStatus,
		StatusLabel:      it.StatusLabel,
	}
	if d.Category == "" {
		d.Category = DefaultCategory
	}
	if d.MarketStatus == "" {
		d.MarketStatus = DefaultMarketStatus
	}
	if d.StatusLabel == "" {
		d.StatusLabel = DefaultStatusLabel
	}
	return d
}

func (it Item) snapshot(districtID int64) market.Snapshot {
	return market.Snapshot{
		DistrictID:         districtID,
		Year:               it.Year,
		Quarter:            it.quarter(),
		AvgPricePerSqm:     it.AvgPricePerSqm,
		PriceChangePercent: it.PriceChangePercent,
		AvgRentNew:         it.AvgRentNew,
		AvgRentRenewed:     it.AvgRentRenewed,
		GrossYield:         it.GrossYield,
		NetYield:           it.NetYield,
		TransactionVolume:  it.TransactionVolume,
		TransactionValue:   it.TransactionValue,
		AvgPriceApartment:  it.AvgPriceApartment,
		AvgPriceVilla:      it.AvgPriceVilla,
		OffPlanShare:       it.OffPlanShare,
		ReadyShare:         it.ReadyShare,
	}
}

func (it Item) hasSupply() bool {
	return strings.TrimSpace(it.SupplyRiskLevel) != "" || it.UnitsPlanned != nil ||
		it.UnitsDelivered != nil || len(it.MajorProjects) > 0
}

// Repository is the storage the importer writes to.
type Repository interface {
	Districts(ctx context.Context) ([]market.District, error)
	DistrictByName(ctx context.Context, name string) (market.District, error)
	CreateDistrict(ctx context.Context, d market.District) (market.District, error)
	InsertStat(ctx context.Context, s market.Snapshot, source string) (bool, error)
	UpsertSupply(ctx context.Context, r market.SupplyRecord) error
}

// Result counts what an import did.
type Result struct {
	Success  int   `json:"success"`
	Skipped  int   `json:"skipped"`
	Errors   int   `json:"errors"`
	Warnings int   `json:"warnings"`
	Years    []int `json:"years"`
}

func (r *Result) addYear(year int) {
	for _, y := range r.Years {
		if y == year {
			return
		}
	}
	r.Years = append(r.Years, year)
	sort.Ints(r.Years)
}

// Importer writes import items to a Repository.
type Importer struct {
	repo     Repository
	validate *validator.Validate
	logger   *zap.Logger
}

// New creates an Importer. A nil logger is replaced by a no-op logger.
func New(repo Repository, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{repo: repo, validate: validator.New(), logger: logger}
}

// ImportFile imports the JSON array stored at path.
func (im *Importer) ImportFile(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("importer.ImportFile: %w", err)
	}
	defer f.Close()

	im.logger.Info("starting import", zap.String("op", "importer.ImportFile"), zap.String("path", path))
	return im.Import(ctx, f)
}

// Import decodes a JSON array of items from r and imports them.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Result, error) {
	var items []Item
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return Result{}, fmt.Errorf("importer.Import: decode items: %w", err)
	}
	return im.ImportItems(ctx, items), nil
}

// ImportItems imports items one by one. A failing item is logged and
// counted; it does not stop the import.
func (im *Importer) ImportItems(ctx context.Context, items []Item) Result {
	var result Result
	for i, item := range items {
		inserted, warnings, err := im.importItem(ctx, item)
		result.Warnings += warnings
		switch {
		case err != nil:
			result.Errors++
			im.logger.Error("failed to import item",
				zap.String("op", "importer.ImportItems"),
				zap.Int("index", i),
				zap.String("district", item.DistrictName),
				zap.Int("year", item.Year),
				zap.Error(err),
			)
			continue
		case inserted:
			result.Success++
		default:
			result.Skipped++
		}
		result.addYear(item.Year)
	}

	im.logger.Info("import complete",
		zap.String("op", "importer.ImportItems"),
		zap.Int("success", result.Success),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", result.Errors),
		zap.Int("warnings", result.Warnings),
	)
	return result
}

func (im *Importer) importItem(ctx context.Context, item Item) (inserted bool, warnings int, err error) {
	if err := ctx.Err(); err != nil {
		return false, 0, err
	}
	if err := im.validate.Struct(item); err != nil {
		return false, 0, fmt.Errorf("invalid item: %w", err)
	}

	district, err := im.ensureDistrict(ctx, item)
	if err != nil {
		return false, 0, err
	}

	snap := item.snapshot(district.ID)
	if msgs := snap.Warnings(); len(msgs) > 0 {
		warnings = len(msgs)
		im.logger.Warn("validation warnings",
			zap.String("op", "importer.importItem"),
			zap.String("district", district.Name),
			zap.Int("year", item.Year),
			zap.Strings("warnings", msgs),
		)
	}

	source := item.Source
	if source == "" {
		source = DefaultSource
	}
	inserted, err = im.repo.InsertStat(ctx, snap, source)
	if err != nil {
		return false, warnings, err
	}

	if item.hasSupply() {
		risk, ok := market.ParseSupplyRisk(item.SupplyRiskLevel)
		if !ok && strings.TrimSpace(item.SupplyRiskLevel) != "" {
			warnings++
			im.logger.Warn("unknown supply risk level, treating as low",
				zap.String("op", "importer.importItem"),
				zap.String("district", district.Name),
				zap.String("supplyRiskLevel", item.SupplyRiskLevel),
			)
		}
		if err := im.repo.UpsertSupply(ctx, market.SupplyRecord{
			DistrictID:     district.ID,
			Year:           item.Year,
			UnitsPlanned:   item.UnitsPlanned,
			UnitsDelivered: item.UnitsDelivered,
			MajorProjects:  item.MajorProjects,
			RiskLevel:      risk,
		}); err != nil {
			return inserted, warnings, err
		}
	}
	return inserted, warnings, nil
}

func (im *Importer) ensureDistrict(ctx context.Context, item Item) (market.District, error) {
	d := item.district()
	existing, err := im.repo.DistrictByName(ctx, d.Name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return market.District{}, err
	}

	im.logger.Info("creating new district", zap.String("op", "importer.ensureDistrict"), zap.String("district", d.Name))
	return im.repo.CreateDistrict(ctx, d)
}

// Seed imports the bundled Dubai dataset unless districts already exist.
// seeded reports whether anything was imported.
func (im *Importer) Seed(ctx context.Context) (result Result, seeded bool, err error) {
	existing, err := im.repo.Districts(ctx)
	if err != nil {
		return Result{}, false, fmt.Errorf("importer.Seed: %w", err)
	}
	if len(existing) > 0 {
		im.logger.Info("database already seeded, skipping", zap.String("op", "importer.Seed"))
		return Result{}, false, nil
	}

	result, err = im.Import(ctx, strings.NewReader(string(seedData)))
	if err != nil {
		return Result{}, false, fmt.Errorf("importer.Seed: %w", err)
	}
	return result, true, nil
}

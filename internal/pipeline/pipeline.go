package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/terrabiota/plotclim/internal/domain"
	"github.com/terrabiota/plotclim/internal/observability"
	"github.com/terrabiota/plotclim/internal/raster"
)

// SpeciesSource lists the species recorded in the study plots.
type SpeciesSource interface {
	Species(ctx context.Context) ([]domain.Species, error)
}

// RedListSource loads the Red List category lookup.
type RedListSource interface {
	RedList(ctx context.Context) (domain.RedList, error)
}

// OccurrenceSource reads the georeferenced occurrence records.
type OccurrenceSource interface {
	Occurrences(ctx context.Context) ([]domain.Occurrence, error)
}

// ClimateSource makes the monthly temperature and precipitation stacks
// available, fetching and caching them as needed.
type ClimateSource interface {
	Stacks(ctx context.Context) (temperature, precipitation *raster.Stack, err error)
}

// ResultWriter persists the per-species occurrence files and the summary.
type ResultWriter interface {
	WriteSpeciesFile(ctx context.Context, sp domain.Species, occurrences []domain.Occurrence) error
	WriteSummary(ctx context.Context, rows []domain.SpeciesSummary) error
}

// Pipeline orchestrates one batch run: load inputs, fetch climate, sample
// every occurrence, process species one by one, write the summary.
type Pipeline struct {
	species     SpeciesSource
	redList     RedListSource
	occurrences OccurrenceSource
	climate     ClimateSource
	writer      ResultWriter
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// New creates a Pipeline with the given sources, sink, and observability.
func New(species SpeciesSource, redList RedListSource, occurrences OccurrenceSource, climate ClimateSource, writer ResultWriter, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		species:     species,
		redList:     redList,
		occurrences: occurrences,
		climate:     climate,
		writer:      writer,
		logger:      logger,
		metrics:     metrics,
	}
}

// Run executes the batch end to end. Any stage error aborts the run; partial
// output files from earlier stages are left in place.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started")
	p.metrics.RunSuccess.Set(0)

	species, redList, occurrences, err := p.loadInputs(ctx)
	if err != nil {
		return err
	}
	domain.SortSpecies(species)

	temperature, precipitation, err := p.fetchClimate(ctx)
	if err != nil {
		return err
	}

	p.sampleClimate(occurrences, temperature, precipitation)

	rows, err := p.processSpecies(ctx, species, occurrences)
	if err != nil {
		return err
	}

	if err := p.writeSummary(ctx, rows, redList); err != nil {
		return err
	}

	p.metrics.RunSuccess.Set(1)
	p.logger.Info("pipeline finished", "species", len(species), "occurrences", len(occurrences))
	return nil
}

// loadInputs reads the three input files. Each is required; the first failure
// aborts the run.
func (p *Pipeline) loadInputs(ctx context.Context) ([]domain.Species, domain.RedList, []domain.Occurrence, error) {
	defer p.timeStage("load_inputs")()

	species, err := p.species.Species(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load species: %w", err)
	}
	redList, err := p.redList.RedList(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load red list: %w", err)
	}
	occurrences, err := p.occurrences.Occurrences(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load occurrences: %w", err)
	}
	p.metrics.OccurrencesLoaded.Add(float64(len(occurrences)))
	p.logger.Info("inputs loaded",
		"species", len(species),
		"red_list_entries", len(redList),
		"occurrences", len(occurrences),
	)
	return species, redList, occurrences, nil
}

func (p *Pipeline) fetchClimate(ctx context.Context) (*raster.Stack, *raster.Stack, error) {
	defer p.timeStage("fetch_climate")()

	temperature, precipitation, err := p.climate.Stacks(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch climate: %w", err)
	}
	return temperature, precipitation, nil
}

// sampleClimate georeferences each occurrence, samples the twelve monthly
// layers of both variables at its cell, and collapses them to annual means.
// Occurrences outside coverage keep missing values rather than failing the
// run.
func (p *Pipeline) sampleClimate(occurrences []domain.Occurrence, temperature, precipitation *raster.Stack) {
	defer p.timeStage("sample_climate")()

	for i := range occurrences {
		occ := domain.Georeference(occurrences[i])
		occ.MonthlyTemperature = temperature.SampleMonths(occ.Longitude, occ.Latitude)
		occ.MonthlyPrecipitation = precipitation.SampleMonths(occ.Longitude, occ.Latitude)
		occ = domain.Annualize(occ)
		occurrences[i] = occ

		if occ.AnnualMeanTemperature == nil {
			p.metrics.SamplesMissing.WithLabelValues(temperature.Variable).Inc()
		}
		if occ.AnnualMeanPrecipitation == nil {
			p.metrics.SamplesMissing.WithLabelValues(precipitation.Variable).Inc()
		}
	}
	p.logger.Info("occurrences sampled", "count", len(occurrences))
}

// processSpecies walks the species list in name order, writing each species
// file and collecting its summary row.
func (p *Pipeline) processSpecies(ctx context.Context, species []domain.Species, occurrences []domain.Occurrence) ([]domain.SpeciesSummary, error) {
	defer p.timeStage("process_species")()

	rows := make([]domain.SpeciesSummary, 0, len(species))
	for _, sp := range species {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		matches := domain.FilterBySpecies(occurrences, sp.Name)
		if len(matches) == 0 {
			p.metrics.SpeciesWithoutOccurrences.Inc()
			p.logger.Warn("species has no occurrences", "species", sp.Name)
		}
		if err := p.writer.WriteSpeciesFile(ctx, sp, matches); err != nil {
			return nil, fmt.Errorf("write species file for %s: %w", sp.Name, err)
		}
		rows = append(rows, domain.Summarize(sp, matches))
		p.metrics.SpeciesProcessed.Inc()
		p.logger.Debug("species processed", "species", sp.Name, "occurrences", len(matches))
	}
	return rows, nil
}

// writeSummary joins the Red List categories onto the summary rows and
// writes the final table.
func (p *Pipeline) writeSummary(ctx context.Context, rows []domain.SpeciesSummary, redList domain.RedList) error {
	defer p.timeStage("write_summary")()

	rows = domain.JoinCategories(rows, redList)
	for i := range rows {
		result := "match"
		if rows[i].Category == nil {
			result = "miss"
		}
		p.metrics.RedListLookups.WithLabelValues(result).Inc()
	}

	if err := p.writer.WriteSummary(ctx, rows); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// timeStage records the wall time of one stage on the returned close.
func (p *Pipeline) timeStage(stage string) func() {
	start := clock.Now()
	return func() {
		p.metrics.StageDuration.WithLabelValues(stage).Observe(clock.Since(start).Seconds())
	}
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/bpx-import-service/internal/core/bpx"
	"github.com/kirillkom/bpx-import-service/internal/core/domain"
	"github.com/kirillkom/bpx-import-service/internal/core/ports"
)

const (
	importSourceBPX      = "bpx"
	importedFromBluebeam = "bluebeam"
)

type ImportOptions struct {
	Policy             domain.ReimportPolicy
	ExcludedToolsets   []string
	ToolWorkers        int
	RawDecodedMaxBytes int
}

type ImportBPXUseCase struct {
	blobs      ports.BlobStore
	repo       ports.ImportRepository
	classifier *bpx.Classifier
	opts       ImportOptions
	excluded   map[string]struct{}
	now        func() time.Time
}

func NewImportBPXUseCase(
	blobs ports.BlobStore,
	repo ports.ImportRepository,
	classifier *bpx.Classifier,
	opts ImportOptions,
) *ImportBPXUseCase {
	if classifier == nil {
		classifier = bpx.NewClassifier()
	}
	if opts.Policy == "" {
		opts.Policy = domain.PolicyVersion
	}
	if opts.ToolWorkers <= 0 {
		opts.ToolWorkers = 1
	}
	excluded := make(map[string]struct{}, len(opts.ExcludedToolsets))
	for _, title := range opts.ExcludedToolsets {
		excluded[title] = struct{}{}
	}
	return &ImportBPXUseCase{
		blobs:      blobs,
		repo:       repo,
		classifier: classifier,
		opts:       opts,
		excluded:   excluded,
		now:        time.Now,
	}
}

// importRun is the per-request state of one import.
type importRun struct {
	job     domain.ImportJob
	profile *domain.Profile
	summary domain.ImportSummary
}

func (r *importRun) warn(message string) {
	slog.Warn("import_warning", "job_id", r.job.ID, "project_id", r.job.ProjectID, "warning", message)
	r.summary.Warnings = append(r.summary.Warnings, message)
}

// Import runs a full BPX import. Only download, parse, profile and toolset
// failures abort the run; item-level failures end up in the summary warnings.
func (uc *ImportBPXUseCase) Import(ctx context.Context, job domain.ImportJob) (*domain.ImportSummary, error) {
	job, err := normalizeJob(job)
	if err != nil {
		return nil, err
	}
	run := &importRun{
		job:     job,
		summary: domain.ImportSummary{Warnings: []string{}},
	}

	doc, err := uc.loadDocument(ctx, job)
	if err != nil {
		return nil, err
	}

	uc.clearPriorImport(ctx, run)

	if err := uc.createProfile(ctx, run); err != nil {
		return nil, err
	}

	for tsIdx, element := range doc.Toolsets {
		if err := uc.importToolset(ctx, run, tsIdx, element); err != nil {
			return nil, err
		}
	}

	slog.Info("import_completed",
		"job_id", job.ID,
		"project_id", job.ProjectID,
		"profile_id", run.summary.ProfileID,
		"toolsets", run.summary.ToolsetCount,
		"tools", run.summary.ToolCount,
		"presets", run.summary.PresetCount,
		"warnings", len(run.summary.Warnings),
	)
	return &run.summary, nil
}

func (uc *ImportBPXUseCase) loadDocument(ctx context.Context, job domain.ImportJob) (*bpx.Document, error) {
	text, err := uc.blobs.Fetch(ctx, job.StorageBucket, job.StoragePath)
	if err != nil {
		return nil, domain.WrapError(domain.ErrDownload, "download bpx", err)
	}
	doc, err := bpx.ParseDocument(text)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (uc *ImportBPXUseCase) clearPriorImport(ctx context.Context, run *importRun) {
	if uc.opts.Policy != domain.PolicyReplace || run.job.PriorProfileID == "" {
		return
	}
	if err := uc.repo.DeleteProfileImports(ctx, run.job.PriorProfileID); err != nil {
		run.warn(fmt.Sprintf("Failed clearing previous import of profile %s: %v", run.job.PriorProfileID, err))
	}
}

func (uc *ImportBPXUseCase) createProfile(ctx context.Context, run *importRun) error {
	profile := &domain.Profile{
		ProjectID:      run.job.ProjectID,
		SourceFilename: path.Base(run.job.StoragePath),
		CreatedBy:      run.job.CreatedBy,
		CreatedAt:      uc.now().UTC(),
	}
	if err := uc.repo.CreateProfile(ctx, profile); err != nil {
		return domain.WrapError(domain.ErrRecordCreate, "create profile", err)
	}
	run.profile = profile
	run.summary.ProfileID = profile.ID
	return nil
}

func (uc *ImportBPXUseCase) importToolset(ctx context.Context, run *importRun, tsIdx int, element bpx.ToolsetElement) error {
	title := uc.resolveTitle(run, tsIdx, element.TitleHex)
	if _, skip := uc.excluded[title]; skip {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("import aborted before toolset %q: %w", title, err)
	}

	toolset := &domain.Toolset{
		ProfileID: run.profile.ID,
		Title:     title,
		SortIndex: run.summary.ToolsetCount,
	}
	if err := uc.repo.CreateToolset(ctx, toolset); err != nil {
		return domain.WrapError(domain.ErrRecordCreate, fmt.Sprintf("create toolset %q", title), err)
	}
	run.summary.ToolsetCount++

	outcomes, pending := uc.prepareTools(toolset, element.Items)
	if err := uc.writeTools(ctx, run, toolset, pending, outcomes); err != nil {
		return err
	}

	for _, outcome := range outcomes {
		if outcome.toolCreated {
			run.summary.ToolCount++
		}
		if outcome.presetCreated {
			run.summary.PresetCount++
		}
		for _, w := range outcome.warnings {
			run.warn(w)
		}
	}
	return nil
}

func (uc *ImportBPXUseCase) resolveTitle(run *importRun, tsIdx int, titleHex string) string {
	fallback := fmt.Sprintf("Toolset %d", tsIdx+1)
	title, err := bpx.Decode(titleHex)
	if err != nil {
		run.warn(fmt.Sprintf("Failed decoding toolset title at index %d: %v", tsIdx, err))
		return fallback
	}
	if strings.TrimSpace(title) == "" {
		return fallback
	}
	return title
}

// toolOutcome is the result slot of one tool item, indexed by document position.
type toolOutcome struct {
	toolCreated   bool
	presetCreated bool
	warnings      []string
}

type pendingTool struct {
	itemIndex int
	tool      domain.Tool
}

// prepareTools decodes and classifies items in document order. Sort indexes are
// fixed here, before any write is dispatched.
func (uc *ImportBPXUseCase) prepareTools(toolset *domain.Toolset, items []bpx.ToolItemElement) ([]toolOutcome, []pendingTool) {
	outcomes := make([]toolOutcome, len(items))
	pending := make([]pendingTool, 0, len(items))

	position := 0
	for i, item := range items {
		if strings.TrimSpace(item.RawHex) == "" {
			continue
		}
		sortIndex := position
		position++

		raw, err := bpx.Decode(item.RawHex)
		if err != nil {
			outcomes[i].warnings = append(outcomes[i].warnings,
				fmt.Sprintf("Failed decoding tool raw in toolset '%s', item %d: %v", toolset.Title, i, err))
			continue
		}

		fields := bpx.Extract(raw)
		kind := uc.classifier.Classify(fields.TypeToken)
		if kind == domain.KindSkip {
			continue
		}

		name := fmt.Sprintf("Tool %d", i+1)
		if fields.Subject != nil && strings.TrimSpace(*fields.Subject) != "" {
			name = *fields.Subject
		}
		mapping := domain.ToolMapping{Source: importSourceBPX, Toolset: toolset.Title}
		if fields.TypeToken != nil {
			mapping.TypeToken = *fields.TypeToken
		}

		pending = append(pending, pendingTool{
			itemIndex: i,
			tool: domain.Tool{
				ToolsetID:  toolset.ID,
				Name:       name,
				Kind:       kind,
				SortIndex:  sortIndex,
				RawDecoded: truncateUTF8(raw, uc.opts.RawDecodedMaxBytes),
				Style:      fields.Style,
				Mapping:    mapping,
			},
		})
	}
	return outcomes, pending
}

// writeTools creates tools and presets on a bounded pool. Each goroutine owns
// exactly one outcome slot.
func (uc *ImportBPXUseCase) writeTools(
	ctx context.Context,
	run *importRun,
	toolset *domain.Toolset,
	pending []pendingTool,
	outcomes []toolOutcome,
) error {
	var g errgroup.Group
	g.SetLimit(uc.opts.ToolWorkers)

	for _, p := range pending {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			uc.writeTool(ctx, run, toolset, p, &outcomes[p.itemIndex])
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("import aborted in toolset %q: %w", toolset.Title, err)
	}
	return nil
}

func (uc *ImportBPXUseCase) writeTool(
	ctx context.Context,
	run *importRun,
	toolset *domain.Toolset,
	p pendingTool,
	out *toolOutcome,
) {
	if ctx.Err() != nil {
		return
	}
	tool := p.tool
	if err := uc.repo.CreateTool(ctx, &tool); err != nil {
		out.warnings = append(out.warnings,
			fmt.Sprintf("Failed creating tool in toolset '%s', item %d: %v", toolset.Title, p.itemIndex, err))
		return
	}
	out.toolCreated = true

	if ctx.Err() != nil {
		return
	}
	preset := &domain.Preset{
		ProjectID: run.job.ProjectID,
		ProfileID: run.profile.ID,
		ToolID:    tool.ID,
		Name:      tool.Name,
		Kind:      tool.Kind,
		Category:  toolset.Title,
		Style: domain.PresetStyle{
			Style:        tool.Style,
			ImportedFrom: importedFromBluebeam,
		},
		DefaultTags: domain.PresetTags{
			ImportedFrom: importSourceBPX,
			Toolset:      toolset.Title,
		},
		SortIndex: domain.PresetSortIndex(toolset.SortIndex, tool.SortIndex),
	}
	if err := uc.repo.CreatePreset(ctx, preset); err != nil {
		out.warnings = append(out.warnings,
			fmt.Sprintf("Failed creating preset for tool '%s' in toolset '%s', item %d: %v", tool.Name, toolset.Title, p.itemIndex, err))
		return
	}
	out.presetCreated = true
}

func truncateUTF8(s string, maxBytes int) string {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"TrendPipeline/internal/content"
	"TrendPipeline/internal/domain"
	"TrendPipeline/internal/metrics"
	"TrendPipeline/internal/ports"
	"TrendPipeline/internal/profile"
	"TrendPipeline/internal/quality"
	"TrendPipeline/internal/risk"
)

// ProfileProvider resolves the positioning profile of an account.
type ProfileProvider interface {
	GetOrCreate(ctx context.Context, accountID string) (domain.AccountProfile, error)
}

// DraftDeps wires draft generation to its collaborators.
type DraftDeps struct {
	Opportunities ports.OpportunityRepository
	Clusters      ports.ClusterRepository
	Accounts      ports.AccountStore
	Drafts        ports.DraftRepository
	Profiles      ProfileProvider
	Generator     ports.TextGenerator
	Evaluator     *risk.Evaluator
	Policy        domain.RiskPolicy
	Metrics       *metrics.Recorder
	Logger        *slog.Logger
}

// DraftService generates, regenerates and enriches drafts.
type DraftService struct {
	opportunities ports.OpportunityRepository
	clusters      ports.ClusterRepository
	accounts      ports.AccountStore
	drafts        ports.DraftRepository
	profiles      ProfileProvider
	generator     ports.TextGenerator
	evaluator     *risk.Evaluator
	policy        domain.RiskPolicy
	metrics       *metrics.Recorder
	logger        *slog.Logger
}

// NewDraftService constructs the draft use case.
func NewDraftService(deps DraftDeps) *DraftService {
	evaluator := deps.Evaluator
	if evaluator == nil {
		evaluator = risk.NewEvaluator()
	}
	policy := deps.Policy
	if policy == "" {
		policy = domain.PolicyBalanced
	}
	return &DraftService{
		opportunities: deps.Opportunities,
		clusters:      deps.Clusters,
		accounts:      deps.Accounts,
		drafts:        deps.Drafts,
		profiles:      deps.Profiles,
		generator:     deps.Generator,
		evaluator:     evaluator,
		policy:        policy,
		metrics:       deps.Metrics,
		logger:        componentLogger(deps.Logger, "drafts"),
	}
}

// GenerateOptions adjusts a single generation call.
type GenerateOptions struct {
	ProfileOverride       *domain.ProfileOverride
	RegenerateFromDraftID string
}

// Generate produces a new draft for an opportunity, screens it for risk and
// quality, stores it and marks the opportunity SELECTED.
func (s *DraftService) Generate(ctx context.Context, opportunityID string, opts GenerateOptions) (domain.DraftGenerationResult, error) {
	opp, err := s.opportunities.GetOpportunity(ctx, opportunityID)
	if err != nil {
		return domain.DraftGenerationResult{}, fmt.Errorf("get opportunity: %w", err)
	}
	cluster, err := s.clusters.GetCluster(ctx, opp.TopicClusterID)
	if err != nil {
		return domain.DraftGenerationResult{}, fmt.Errorf("get cluster: %w", err)
	}
	account, err := s.accounts.GetAccount(ctx, opp.AccountID)
	if err != nil {
		return domain.DraftGenerationResult{}, fmt.Errorf("get account: %w", err)
	}

	var parent *domain.Draft
	if opts.RegenerateFromDraftID != "" {
		p, err := s.drafts.GetDraft(ctx, opts.RegenerateFromDraftID)
		if err != nil {
			return domain.DraftGenerationResult{}, fmt.Errorf("get parent draft: %w", err)
		}
		parent = &p
	}

	base, err := s.profiles.GetOrCreate(ctx, opp.AccountID)
	if err != nil {
		return domain.DraftGenerationResult{}, fmt.Errorf("load profile: %w", err)
	}
	prof := profile.Merge(base, opts.ProfileOverride)

	evidence := cluster.Evidence
	if len(evidence) > content.MaxPromptEvidence {
		evidence = evidence[:content.MaxPromptEvidence]
	}

	in := content.PromptInput{
		AccountName:    account.Name,
		Categories:     account.CategoryNames(),
		TopicTitle:     cluster.Title,
		ResonanceCount: cluster.ResonanceCount,
		GrowthScore:    cluster.GrowthScore,
		Keywords:       cluster.Keywords,
		Evidence:       evidence,
		Profile:        prof,
	}
	if parent != nil {
		in.Previous = &content.PreviousDraft{Title: parent.Title, Outline: parent.Outline}
	}
	prompt := content.BuildDraftPrompt(in)

	generated, err := s.generator.Generate(ctx, domain.GenerationRequest{
		SystemPrompt: prompt.SystemPrompt,
		UserPrompt:   prompt.UserPrompt,
		TopicTitle:   cluster.Title,
		AccountName:  account.Name,
	})
	if err != nil {
		return domain.DraftGenerationResult{}, fmt.Errorf("generate draft: %w", err)
	}

	verdict := s.evaluator.Evaluate(generated.Title, generated.Content, s.policy)
	pack := content.BuildContentPack(cluster.Title, account.Name, prof, generated.Outline)
	report := quality.Score(quality.Input{
		Title:         generated.Title,
		Content:       generated.Content,
		Profile:       prof,
		EvidenceCount: len(evidence),
		OutlineCount:  len(generated.Outline),
	})
	trace := content.BuildGenerationTrace(opp.Score, prof, generated.Content, report.Score)
	images := content.BuildImagePlaceholders(generated.Title, cluster.Title, pack, content.DefaultImageCount, content.DefaultStyle)
	status := quality.Gate(verdict.SuggestedStatus, report.Score)

	draft := domain.Draft{
		ID:              uuid.NewString(),
		OpportunityID:   opp.ID,
		AccountID:       opp.AccountID,
		Title:           generated.Title,
		Outline:         generated.Outline,
		Content:         generated.Content,
		TemplateVersion: prompt.TemplateVersion,
		Model:           generated.Model,
		RiskLevel:       verdict.Level,
		RiskScore:       verdict.Score,
		Status:          status,
		Metadata: domain.DraftMetadata{
			RiskReasons:       verdict.Reasons,
			PromptVersion:     prompt.TemplateVersion,
			QualityReport:     &report,
			ContentPack:       &pack,
			ImagePlaceholders: images,
			GenerationTrace:   &trace,
			ProfileSnapshot:   &prof,
		},
	}
	if parent != nil {
		draft.ParentDraftID = parent.ID
		draft.RegenerationIndex = parent.RegenerationIndex + 1
		draft.Metadata.Regeneration = &domain.RegenerationInfo{
			ParentDraftID:     parent.ID,
			RegenerationIndex: draft.RegenerationIndex,
			DiversityChecks:   append([]string(nil), content.DiversityChecks...),
		}
	}

	if err := s.drafts.CreateDraft(ctx, draft); err != nil {
		return domain.DraftGenerationResult{}, fmt.Errorf("store draft: %w", err)
	}
	if err := s.opportunities.UpdateOpportunityStatus(ctx, opp.ID, domain.OpportunitySelected); err != nil {
		return domain.DraftGenerationResult{}, fmt.Errorf("select opportunity: %w", err)
	}

	s.metrics.ObserveDraft(status)
	s.logger.Info("draft generated",
		"draft_id", draft.ID,
		"opportunity_id", opp.ID,
		"status", status,
		"risk", verdict.Level,
		"quality", report.Score,
		"model", generated.Model,
	)

	return domain.DraftGenerationResult{
		DraftID:         draft.ID,
		Title:           draft.Title,
		Status:          draft.Status,
		RiskLevel:       draft.RiskLevel,
		RiskScore:       draft.RiskScore,
		Model:           draft.Model,
		QualityReport:   report,
		ContentPack:     pack,
		GenerationTrace: trace,
	}, nil
}

// Regenerate produces a new draft diverging from draftID; the parent is left untouched.
func (s *DraftService) Regenerate(ctx context.Context, draftID string) (domain.DraftGenerationResult, error) {
	parent, err := s.drafts.GetDraft(ctx, draftID)
	if err != nil {
		return domain.DraftGenerationResult{}, fmt.Errorf("get draft: %w", err)
	}
	return s.Generate(ctx, parent.OpportunityID, GenerateOptions{RegenerateFromDraftID: parent.ID})
}

// PlanAssets plans illustration slots for a draft and stores them in its metadata.
func (s *DraftService) PlanAssets(ctx context.Context, draftID string, imageCount int, style string) (domain.AssetPlan, error) {
	draft, err := s.drafts.GetDraft(ctx, draftID)
	if err != nil {
		return domain.AssetPlan{}, fmt.Errorf("get draft: %w", err)
	}
	opp, err := s.opportunities.GetOpportunity(ctx, draft.OpportunityID)
	if err != nil {
		return domain.AssetPlan{}, fmt.Errorf("get opportunity: %w", err)
	}
	cluster, err := s.clusters.GetCluster(ctx, opp.TopicClusterID)
	if err != nil {
		return domain.AssetPlan{}, fmt.Errorf("get cluster: %w", err)
	}

	var pack domain.ContentPack
	if draft.Metadata.ContentPack != nil && len(draft.Metadata.ContentPack.Sections) > 0 {
		pack = *draft.Metadata.ContentPack
	} else {
		pack = content.BuildContentPack(cluster.Title, "账号", content.AssetFallbackProfile, draft.Outline)
	}

	plan := content.BuildImagePlaceholders(draft.Title, cluster.Title, pack, imageCount, strings.TrimSpace(style))
	metadata := draft.Metadata
	metadata.ImagePlaceholders = plan
	if err := s.drafts.UpdateDraftMetadata(ctx, draft.ID, metadata); err != nil {
		return domain.AssetPlan{}, fmt.Errorf("store asset plan: %w", err)
	}

	return domain.AssetPlan{ImagePlan: plan, Status: "planned"}, nil
}

// GetDraft returns a stored draft.
func (s *DraftService) GetDraft(ctx context.Context, id string) (domain.Draft, error) {
	d, err := s.drafts.GetDraft(ctx, id)
	if err != nil {
		return domain.Draft{}, fmt.Errorf("get draft: %w", err)
	}
	return d, nil
}

package domain

import (
	"fmt"
	"strings"
	"time"
)

// DraftStatus is the approval state of a generated draft.
type DraftStatus string

const (
	DraftStatusDraft     DraftStatus = "DRAFT"
	DraftStatusReview    DraftStatus = "REVIEW"
	DraftStatusBlocked   DraftStatus = "BLOCKED"
	DraftStatusReady     DraftStatus = "READY"
	DraftStatusSubmitted DraftStatus = "SUBMITTED"
	DraftStatusPublished DraftStatus = "PUBLISHED"
)

// RiskLevel classifies a draft's policy risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// RiskPolicy controls how aggressively medium-risk signals escalate a draft.
type RiskPolicy string

const (
	PolicyBalanced RiskPolicy = "balanced"
	PolicyStrict   RiskPolicy = "strict"
	PolicyGrowth   RiskPolicy = "growth"
)

// ParseRiskPolicy returns the named policy; unknown names are rejected.
func ParseRiskPolicy(raw string) (RiskPolicy, error) {
	switch p := RiskPolicy(strings.ToLower(strings.TrimSpace(raw))); p {
	case PolicyBalanced, PolicyStrict, PolicyGrowth:
		return p, nil
	case "":
		return PolicyBalanced, nil
	default:
		return "", fmt.Errorf("risk policy %q: %w", raw, ErrInvalidInput)
	}
}

// Draft is one generated article. Regenerations create new drafts linked by ParentDraftID.
type Draft struct {
	ID                string        `json:"id"`
	OpportunityID     string        `json:"opportunityId"`
	AccountID         string        `json:"accountId"`
	ParentDraftID     string        `json:"parentDraftId,omitempty"`
	RegenerationIndex int           `json:"regenerationIndex"`
	Title             string        `json:"title"`
	Outline           []string      `json:"outline"`
	Content           string        `json:"content"`
	TemplateVersion   string        `json:"templateVersion"`
	Model             string        `json:"model"`
	RiskLevel         RiskLevel     `json:"riskLevel"`
	RiskScore         float64       `json:"riskScore"`
	Status            DraftStatus   `json:"status"`
	Metadata          DraftMetadata `json:"metadata"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

// DraftMetadata is the JSON document stored next to a draft.
type DraftMetadata struct {
	RiskReasons       []string           `json:"riskReasons"`
	PromptVersion     string             `json:"promptVersion"`
	QualityReport     *QualityReport     `json:"qualityReport,omitempty"`
	ContentPack       *ContentPack       `json:"contentPack,omitempty"`
	ImagePlaceholders []ImagePlaceholder `json:"imagePlaceholders,omitempty"`
	GenerationTrace   *GenerationTrace   `json:"generationTrace,omitempty"`
	ProfileSnapshot   *AccountProfile    `json:"profileSnapshot,omitempty"`
	Regeneration      *RegenerationInfo  `json:"regeneration,omitempty"`
}

// RegenerationInfo links a regenerated draft to its parent.
type RegenerationInfo struct {
	ParentDraftID     string   `json:"parentDraftId"`
	RegenerationIndex int      `json:"regenerationIndex"`
	DiversityChecks   []string `json:"diversityChecks"`
}

// QualityDimensions are the 0-100 sub-scores of a quality report.
type QualityDimensions struct {
	Relevance       int `json:"relevance"`
	Evidence        int `json:"evidence"`
	Readability     int `json:"readability"`
	GrowthPotential int `json:"growthPotential"`
	AccountFit      int `json:"accountFit"`
}

// QualityReport is the multi-dimension content quality verdict.
type QualityReport struct {
	Score      int               `json:"score"`
	Dimensions QualityDimensions `json:"dimensions"`
	Warnings   []string          `json:"warnings"`
}

// ContentSection is one planned section of an article.
type ContentSection struct {
	Title string `json:"title"`
	Goal  string `json:"goal"`
}

// ContentPack is the editorial plan delivered with a draft.
type ContentPack struct {
	CoreAngle     string           `json:"coreAngle"`
	TargetReader  string           `json:"targetReader"`
	Hook          string           `json:"hook"`
	Sections      []ContentSection `json:"sections"`
	CTA           string           `json:"cta"`
	FollowupIdeas []string         `json:"followupIdeas"`
}

// ImagePlaceholder is one planned illustration slot.
type ImagePlaceholder struct {
	Slot            int    `json:"slot"`
	Purpose         string `json:"purpose"`
	Prompt          string `json:"prompt"`
	PlacementAnchor string `json:"placementAnchor"`
	AltText         string `json:"altText"`
}

// GenerationTrace records how topic and model scores were fused.
type GenerationTrace struct {
	TopicScore  int `json:"topicScore"`
	AccountFit  int `json:"accountFit"`
	ModelScore  int `json:"modelScore"`
	FusionScore int `json:"fusionScore"`
}

// DraftGenerationResult is returned by draft generation and regeneration.
type DraftGenerationResult struct {
	DraftID         string          `json:"draftId"`
	Title           string          `json:"title"`
	Status          DraftStatus     `json:"status"`
	RiskLevel       RiskLevel       `json:"riskLevel"`
	RiskScore       float64         `json:"riskScore"`
	Model           string          `json:"model"`
	QualityReport   QualityReport   `json:"qualityReport"`
	ContentPack     ContentPack     `json:"contentPack"`
	GenerationTrace GenerationTrace `json:"generationTrace"`
}

// AssetPlan is the result of planning draft illustrations.
type AssetPlan struct {
	ImagePlan []ImagePlaceholder `json:"imagePlan"`
	Status    string             `json:"status"`
}

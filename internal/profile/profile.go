// Package profile manages account positioning profiles used to steer drafts.
package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"TrendPipeline/internal/domain"
	"TrendPipeline/internal/ports"
)

const (
	MinPreferredLength = 800
	MaxPreferredLength = 3000

	maxAudience        = 160
	maxTone            = 80
	maxGrowthGoal      = 40
	maxContentPromise  = 300
	maxCTAStyle        = 120
	maxPainPoints      = 8
	maxForbiddenTopics = 10
)

// Default returns the baseline profile.
func Default() domain.AccountProfile {
	return domain.AccountProfile{
		Audience:        "关注实时热点、希望快速理解事件影响的中文读者",
		Tone:            "专业但通俗",
		GrowthGoal:      "read",
		PainPoints:      []string{"信息太碎片化", "不知道如何判断热点真伪", "缺少可执行建议"},
		ContentPromise:  "3分钟看懂热点的来龙去脉，并获得可执行建议",
		ForbiddenTopics: []string{"违法违规", "仇恨言论", "明显未经证实的谣言"},
		CTAStyle:        "评论区提问+下篇预告",
		PreferredLength: 1800,
	}
}

// ForAccount derives a starting profile from the account name and categories.
func ForAccount(account domain.Account) domain.AccountProfile {
	categoryText := strings.Join(account.CategoryNames(), " / ")
	if categoryText == "" {
		categoryText = "通用热点"
	}

	p := Default()
	p.AccountID = account.ID
	p.Audience = fmt.Sprintf("关注%s并希望快速获取决策信息的读者", categoryText)
	p.ContentPromise = fmt.Sprintf("%s 提供结构化热点分析、可执行建议与后续跟进视角", account.Name)
	return p
}

// Sanitize trims and bounds every field, falling back to the defaults for empty text.
func Sanitize(p domain.AccountProfile) domain.AccountProfile {
	def := Default()
	return domain.AccountProfile{
		AccountID:       p.AccountID,
		Audience:        text(p.Audience, def.Audience, maxAudience),
		Tone:            text(p.Tone, def.Tone, maxTone),
		GrowthGoal:      text(p.GrowthGoal, def.GrowthGoal, maxGrowthGoal),
		PainPoints:      uniqueStrings(p.PainPoints, maxPainPoints),
		ContentPromise:  text(p.ContentPromise, def.ContentPromise, maxContentPromise),
		ForbiddenTopics: uniqueStrings(p.ForbiddenTopics, maxForbiddenTopics),
		CTAStyle:        text(p.CTAStyle, def.CTAStyle, maxCTAStyle),
		PreferredLength: length(p.PreferredLength, def.PreferredLength),
	}
}

// Merge overlays a partial override on base and re-sanitizes the result.
func Merge(base domain.AccountProfile, override *domain.ProfileOverride) domain.AccountProfile {
	if override == nil {
		return base
	}

	merged := base
	setText(&merged.Audience, override.Audience)
	setText(&merged.Tone, override.Tone)
	setText(&merged.GrowthGoal, override.GrowthGoal)
	setText(&merged.ContentPromise, override.ContentPromise)
	setText(&merged.CTAStyle, override.CTAStyle)
	if override.PainPoints != nil {
		merged.PainPoints = override.PainPoints
	}
	if override.ForbiddenTopics != nil {
		merged.ForbiddenTopics = override.ForbiddenTopics
	}
	if override.PreferredLength != nil {
		merged.PreferredLength = *override.PreferredLength
	}
	return Sanitize(merged)
}

func setText(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func text(v, fallback string, maxRunes int) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	if utf8.RuneCountInString(v) > maxRunes {
		return string([]rune(v)[:maxRunes])
	}
	return v
}

func uniqueStrings(values []string, limit int) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, min(len(values), limit))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
		if len(out) == limit {
			break
		}
	}
	return out
}

func length(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return min(MaxPreferredLength, max(MinPreferredLength, v))
}

// Service loads profiles, creating a default one on first use.
type Service struct {
	accounts ports.AccountStore
	profiles ports.ProfileRepository
	logger   *slog.Logger
}

func NewService(accounts ports.AccountStore, profiles ports.ProfileRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{accounts: accounts, profiles: profiles, logger: logger.With("component", "profile")}
}

// GetOrCreate returns the stored profile for accountID or persists a derived default.
func (s *Service) GetOrCreate(ctx context.Context, accountID string) (domain.AccountProfile, error) {
	p, err := s.profiles.GetProfile(ctx, accountID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.AccountProfile{}, fmt.Errorf("get profile: %w", err)
	}

	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return domain.AccountProfile{}, fmt.Errorf("get account %s: %w", accountID, err)
	}

	p = ForAccount(account)
	if err := s.profiles.SaveProfile(ctx, p); err != nil {
		return domain.AccountProfile{}, fmt.Errorf("save profile: %w", err)
	}
	s.logger.Info("default profile created", "account_id", accountID)
	return p, nil
}

package profile

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendPipeline/internal/domain"
)

type stubAccounts struct {
	accounts map[string]domain.Account
}

func (s stubAccounts) ListActiveAccounts(context.Context) ([]domain.Account, error) {
	return nil, nil
}

func (s stubAccounts) GetAccount(_ context.Context, id string) (domain.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return a, nil
}

type stubProfiles struct {
	saved   map[string]domain.AccountProfile
	saveErr error
}

func (s *stubProfiles) GetProfile(_ context.Context, accountID string) (domain.AccountProfile, error) {
	p, ok := s.saved[accountID]
	if !ok {
		return domain.AccountProfile{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *stubProfiles) SaveProfile(_ context.Context, p domain.AccountProfile) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved[p.AccountID] = p
	return nil
}

func TestSanitize(t *testing.T) {
	t.Parallel()

	got := Sanitize(domain.AccountProfile{
		Audience:        "  " + strings.Repeat("读", 200) + " ",
		Tone:            "   ",
		PainPoints:      []string{"a", " a ", "", "b", "c", "d", "e", "f", "g", "h", "i"},
		PreferredLength: 99999,
	})

	assert.Equal(t, 160, len([]rune(got.Audience)))
	assert.Equal(t, Default().Tone, got.Tone)
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f", "g", "h"}, got.PainPoints)
	assert.Equal(t, []string{}, got.ForbiddenTopics)
	assert.Equal(t, MaxPreferredLength, got.PreferredLength)

	assert.Equal(t, MinPreferredLength, Sanitize(domain.AccountProfile{PreferredLength: 10}).PreferredLength)
	assert.Equal(t, 1800, Sanitize(domain.AccountProfile{}).PreferredLength)
}

func TestMerge(t *testing.T) {
	t.Parallel()

	base := Default()
	assert.Equal(t, base, Merge(base, nil))

	tone := "犀利"
	n := 500
	merged := Merge(base, &domain.ProfileOverride{Tone: &tone, PreferredLength: &n, PainPoints: []string{"x"}})
	assert.Equal(t, "犀利", merged.Tone)
	assert.Equal(t, MinPreferredLength, merged.PreferredLength)
	assert.Equal(t, []string{"x"}, merged.PainPoints)
	assert.Equal(t, base.ForbiddenTopics, merged.ForbiddenTopics)
	assert.Equal(t, base.Audience, merged.Audience)
}

func TestGetOrCreate(t *testing.T) {
	t.Parallel()

	accounts := stubAccounts{accounts: map[string]domain.Account{
		"acc-1": {ID: "acc-1", Name: "硬核科技", Categories: []domain.Category{{Name: "科技"}, {Name: "财经"}}},
	}}
	profiles := &stubProfiles{saved: map[string]domain.AccountProfile{}}
	svc := NewService(accounts, profiles, nil)

	p, err := svc.GetOrCreate(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "关注科技 / 财经并希望快速获取决策信息的读者", p.Audience)
	assert.Equal(t, "硬核科技 提供结构化热点分析、可执行建议与后续跟进视角", p.ContentPromise)
	assert.Contains(t, profiles.saved, "acc-1")

	profiles.saved["acc-1"] = domain.AccountProfile{AccountID: "acc-1", Audience: "stored"}
	p, err = svc.GetOrCreate(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "stored", p.Audience)

	_, err = svc.GetOrCreate(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetOrCreateSaveFailure(t *testing.T) {
	t.Parallel()

	accounts := stubAccounts{accounts: map[string]domain.Account{"acc-1": {ID: "acc-1", Name: "n"}}}
	profiles := &stubProfiles{saved: map[string]domain.AccountProfile{}, saveErr: errors.New("disk full")}

	_, err := NewService(accounts, profiles, nil).GetOrCreate(context.Background(), "acc-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

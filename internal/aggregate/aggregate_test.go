package aggregate

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/VoCIntel/internal/store"
)

var testNow = time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)

func rec(id, tier, category string) store.FeedbackRecord {
	return store.FeedbackRecord{
		ID:             id,
		Timestamp:      testNow,
		ARRTier:        tier,
		CustomerHealth: store.HealthHealthy,
		Category:       category,
		Sentiment:      store.SentimentNeutral,
		Urgency:        store.UrgencyMedium,
	}
}

func TestARRTotals(t *testing.T) {
	records := []store.FeedbackRecord{
		rec("1", store.TierEnterprise, store.CategoryChurnSignal),
		rec("2", store.TierSMB, store.CategoryPraise),
		rec("3", store.TierEnterprise, store.CategoryBug),
	}

	assert.Equal(t, 215000.0, TotalARR(records))
	assert.Equal(t, 100000.0, AtRiskARR(records))
}

func TestAtRiskCountsEachRecordOnce(t *testing.T) {
	r := rec("1", store.TierMidMarket, store.CategoryChurnSignal)
	r.CustomerHealth = store.HealthAtRisk

	assert.Equal(t, 50000.0, AtRiskARR([]store.FeedbackRecord{r}))
}

func TestTierValueUnknown(t *testing.T) {
	assert.Equal(t, 0.0, TierValue("galactic"))
	assert.Equal(t, 0.0, TierValue(""))
}

func TestARRIsOrderIndependent(t *testing.T) {
	tiers := []string{store.TierEnterprise, store.TierMidMarket, store.TierSMB, "other"}
	cats := []string{store.CategoryChurnSignal, store.CategoryBug, store.CategoryPraise}
	rng := rand.New(rand.NewSource(7))

	var records []store.FeedbackRecord
	for i := 0; i < 40; i++ {
		r := rec(string(rune('a'+i)), tiers[rng.Intn(len(tiers))], cats[rng.Intn(len(cats))])
		if rng.Intn(3) == 0 {
			r.CustomerHealth = store.HealthAtRisk
		}
		records = append(records, r)
	}

	total, atRisk := TotalARR(records), AtRiskARR(records)
	require.LessOrEqual(t, atRisk, total)

	for i := 0; i < 5; i++ {
		shuffled := append([]store.FeedbackRecord(nil), records...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, total, TotalARR(shuffled))
		assert.Equal(t, atRisk, AtRiskARR(shuffled))
	}
}

func TestCountByStableDescending(t *testing.T) {
	records := []store.FeedbackRecord{
		rec("1", store.TierSMB, store.CategoryBug),
		rec("2", store.TierSMB, store.CategoryPraise),
		rec("3", store.TierSMB, store.CategoryPricing),
		rec("4", store.TierSMB, store.CategoryPraise),
	}

	want := []Count{
		{Key: store.CategoryPraise, Count: 2},
		{Key: store.CategoryBug, Count: 1},
		{Key: store.CategoryPricing, Count: 1},
	}
	if diff := cmp.Diff(want, CategoryCounts(records)); diff != "" {
		t.Errorf("CategoryCounts mismatch (-want +got):\n%s", diff)
	}

	assert.Empty(t, TierCounts(nil))
}

func TestFeatureClustersCaseInsensitive(t *testing.T) {
	a := rec("1", store.TierEnterprise, store.CategoryFeatureRequest)
	a.FeaturesMentioned = []string{"SSO"}
	a.Sentiment = store.SentimentFrustrated
	b := rec("2", store.TierSMB, store.CategoryFeatureRequest)
	b.FeaturesMentioned = []string{"sso", "Dark mode"}

	clusters := FeatureClusters([]store.FeedbackRecord{a, b})
	require.Len(t, clusters, 2)

	sso := clusters[0]
	assert.Equal(t, "SSO", sso.Feature)
	assert.Equal(t, 2, sso.Count)
	assert.Equal(t, 115000.0, sso.TotalARR)
	assert.Equal(t, 1, sso.Sentiments[store.SentimentFrustrated])
	assert.Equal(t, 1, sso.Sentiments[store.SentimentNeutral])
	assert.Equal(t, []string{"1", "2"}, sso.ItemIDs)

	assert.Equal(t, "Dark mode", clusters[1].Feature)
}

func TestFeatureClustersTopTen(t *testing.T) {
	var records []store.FeedbackRecord
	for i := 0; i < 12; i++ {
		r := rec(string(rune('a'+i)), store.TierSMB, store.CategoryFeatureRequest)
		r.FeaturesMentioned = []string{string(rune('A' + i))}
		records = append(records, r)
	}
	records[11].ARRTier = store.TierEnterprise

	clusters := FeatureClusters(records)
	require.Len(t, clusters, 10)
	assert.Equal(t, "L", clusters[0].Feature)
	assert.Equal(t, "A", clusters[1].Feature)
}

func TestCompetitorMentions(t *testing.T) {
	fb := rec("1", store.TierSMB, store.CategoryCompetitive)
	fb.CompetitorsMentioned = []string{"OpenAI", "Cohere"}
	sig := store.WebSignalRecord{ID: "s1", Source: store.SourceWeb, WebSource: "Reddit", CompetitorsMentioned: []string{"openai"}}

	mentions := CompetitorMentions([]store.FeedbackRecord{fb}, []store.WebSignalRecord{sig})
	want := []CompetitorMention{
		{Name: "OpenAI", Count: 2, Internal: 1, External: 1},
		{Name: "Cohere", Count: 1, Internal: 1},
	}
	if diff := cmp.Diff(want, mentions); diff != "" {
		t.Errorf("CompetitorMentions mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterIsIntersection(t *testing.T) {
	old := rec("old", store.TierEnterprise, store.CategoryBug)
	old.Timestamp = testNow.Add(-10 * 24 * time.Hour)
	recent := rec("recent", store.TierEnterprise, store.CategoryBug)
	recent.Timestamp = testNow.Add(-2 * 24 * time.Hour)
	smb := rec("smb", store.TierSMB, store.CategoryBug)
	praise := rec("praise", store.TierEnterprise, store.CategoryPraise)
	records := []store.FeedbackRecord{old, recent, smb, praise}

	byDate := Filter{DateRange: Range7d}
	byTier := Filter{Tiers: []string{store.TierEnterprise}}
	byCat := Filter{Categories: []string{store.CategoryBug}}
	all := Filter{
		DateRange:  Range7d,
		Tiers:      []string{store.TierEnterprise},
		Categories: []string{store.CategoryBug},
	}

	want := intersect(ids(byDate.Apply(records, testNow)), ids(byTier.Apply(records, testNow)), ids(byCat.Apply(records, testNow)))
	assert.Equal(t, want, ids(all.Apply(records, testNow)))
	assert.Equal(t, []string{"recent"}, ids(all.Apply(records, testNow)))
}

func TestFilterAllMatchesEverything(t *testing.T) {
	r := rec("1", "", "")
	r.Timestamp = testNow.Add(-400 * 24 * time.Hour)

	assert.True(t, Filter{}.Matches(r, testNow))
	assert.True(t, Filter{DateRange: RangeAll, Tiers: []string{RangeAll}}.Matches(r, testNow))
	assert.True(t, Filter{DateRange: RangeAll}.IsEmpty())
	assert.False(t, Filter{DateRange: Range30d}.IsEmpty())

	all := []store.FeedbackRecord{r, rec("2", store.TierSMB, store.CategoryBug)}
	got := Filter{Categories: []string{RangeAll}}.Apply(all, testNow)
	assert.Equal(t, []string{"1", "2"}, ids(got))
	got[0].ID = "changed"
	assert.Equal(t, "1", all[0].ID)
	assert.Empty(t, Filter{}.Apply(nil, testNow))
	assert.NotNil(t, Filter{}.Apply(nil, testNow))
}

func TestFilterWholeDays(t *testing.T) {
	r := rec("1", store.TierSMB, store.CategoryBug)
	r.Timestamp = testNow.Add(-(7*24 + 20) * time.Hour)
	assert.True(t, Filter{DateRange: Range7d}.Matches(r, testNow))

	r.Timestamp = testNow.Add(-8 * 24 * time.Hour)
	assert.False(t, Filter{DateRange: Range7d}.Matches(r, testNow))
}

func TestFilterValidate(t *testing.T) {
	assert.NoError(t, Filter{DateRange: Range90d}.Validate())
	assert.Error(t, Filter{DateRange: "1y"}.Validate())
}

func TestPresets(t *testing.T) {
	churn := rec("churn", store.TierEnterprise, store.CategoryChurnSignal)
	bug := rec("bug", store.TierSMB, store.CategoryBug)
	bug.Urgency = store.UrgencyCritical
	lowBug := rec("lowbug", store.TierSMB, store.CategoryBug)
	lowBug.Urgency = store.UrgencyLow
	angry := rec("angry", store.TierMidMarket, store.CategoryPricing)
	angry.Sentiment = store.SentimentFrustrated
	records := []store.FeedbackRecord{churn, bug, lowBug, angry}

	presets := Presets()
	require.Len(t, presets, 6)

	counts := map[string]int{}
	for _, pc := range PresetCounts(records) {
		counts[pc.ID] = pc.Count
	}
	assert.Equal(t, map[string]int{
		"enterprise_churn":   1,
		"feature_requests":   0,
		"competitive_intel":  0,
		"enterprise_all":     1,
		"bugs_urgent":        1,
		"negative_sentiment": 1,
	}, counts)

	p, ok := PresetByID("bugs_urgent")
	require.True(t, ok)
	assert.Equal(t, []string{"bug"}, p.Select(records))

	_, ok = PresetByID("nope")
	assert.False(t, ok)
}

func TestDashboard(t *testing.T) {
	var records []store.FeedbackRecord
	for i := 0; i < 12; i++ {
		records = append(records, rec(string(rune('a'+i)), store.TierSMB, store.CategoryBug))
	}
	records = append(records, rec("x", store.TierEnterprise, store.CategoryPraise))

	view := Dashboard(records, nil, Filter{Categories: []string{store.CategoryBug}}, testNow)
	assert.Equal(t, 13, view.TotalItems)
	assert.Equal(t, 12, view.FilteredItems)
	assert.Len(t, view.Preview, PreviewSize)
	assert.Equal(t, 12*15000.0+100000, view.TotalARR)
	assert.Equal(t, "a", view.Preview[0].ID)
}

func TestDashboardStatsIgnoreFilter(t *testing.T) {
	churn := rec("1", store.TierEnterprise, store.CategoryChurnSignal)
	churn.FeaturesMentioned = []string{"SSO"}
	churn.CompetitorsMentioned = []string{"OpenAI"}
	praise := rec("2", store.TierSMB, store.CategoryPraise)
	praise.FeaturesMentioned = []string{"latency"}

	view := Dashboard([]store.FeedbackRecord{churn, praise}, nil, Filter{Categories: []string{store.CategoryPraise}}, testNow)

	assert.Equal(t, 1, view.FilteredItems)
	require.Len(t, view.Preview, 1)
	assert.Equal(t, "2", view.Preview[0].ID)

	assert.Equal(t, 115000.0, view.TotalARR)
	assert.Equal(t, 100000.0, view.AtRiskARR)
	assert.Len(t, view.FeatureClusters, 2)
	assert.Len(t, view.Competitors, 1)
	assert.Len(t, view.Categories, 2)
}

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1200000, "$1.2M"},
		{215000, "$215K"},
		{1000, "$1K"},
		{900, "$900"},
		{0, "$0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCurrency(tt.in), "FormatCurrency(%v)", tt.in)
	}
}

func TestCategoryLabel(t *testing.T) {
	assert.Equal(t, "Pricing/Packaging", CategoryLabel(store.CategoryPricing))
	assert.Equal(t, "other", CategoryLabel("other"))
}

func ids(records []store.FeedbackRecord) []string {
	out := []string{}
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func intersect(lists ...[]string) []string {
	out := []string{}
	for _, id := range lists[0] {
		inAll := true
		for _, l := range lists[1:] {
			found := false
			for _, x := range l {
				if x == id {
					found = true
				}
			}
			inAll = inAll && found
		}
		if inAll {
			out = append(out, id)
		}
	}
	return out
}

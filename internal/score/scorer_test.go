package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/fieldscout/internal/domain"
	"github.com/ppiankov/fieldscout/internal/knowledge"
	"github.com/ppiankov/fieldscout/internal/model"
)

func realEstateDocs() []model.Document {
	return []model.Document{
		{
			ID:       "doc1",
			Content:  "John Smith, the grantor and seller, agrees to transfer property",
			Metadata: map[string]string{"type": "real_estate_agreement", "section": "parties"},
		},
		{
			ID:       "doc2",
			Content:  "This is a medical record for patient John Smith",
			Metadata: map[string]string{"type": "medical_record"},
		},
	}
}

func TestScorer_SellerNameRanksAgreementFirst(t *testing.T) {
	s := NewScorer(domain.ProfileFor(domain.RealEstate), knowledge.For(domain.RealEstate))
	field := model.Field{Name: "Seller Name"}
	docs := realEstateDocs()

	doc1 := s.Score(field, docs[0])
	doc2 := s.Score(field, docs[1])

	// (0.25*1/11 + 0.25*2/6 + 0.25*1/2 + 0.15*0) / 0.9
	assert.InDelta(t, 0.2567, doc1, 1e-3)
	assert.Equal(t, 0.0, doc2)

	ranked := s.Rank(field, docs, 3)
	require.Len(t, ranked, 1)
	assert.Equal(t, "doc1", ranked[0].Document.ID)
}

func TestScorer_Explain(t *testing.T) {
	s := NewScorer(domain.ProfileFor(domain.RealEstate), nil)
	b := s.Explain(model.Field{Name: "Seller Name"}, realEstateDocs()[0])

	require.Len(t, b.Factors, 4)
	assert.Equal(t, FactorTokenOverlap, b.Factors[0].Name)
	assert.InDelta(t, 0.5, b.Factors[2].Value, 1e-9)
	assert.Contains(t, b.Reason(), "category_match=0.33")
}

func TestScorer_KnowledgeBaseFactor(t *testing.T) {
	s := NewScorer(domain.ProfileFor(domain.RealEstate), knowledge.For(domain.RealEstate))
	doc := model.Document{ID: "d", Content: "The Grantor shall deliver the deed"}

	b := s.Explain(model.Field{Name: "seller"}, doc)
	require.Len(t, b.Factors, 5)
	assert.Equal(t, FactorKnowledgeBase, b.Factors[4].Name)
	assert.Equal(t, 0.8, b.Factors[4].Value)

	b = s.Explain(model.Field{Name: "seller"}, model.Document{ID: "d", Content: "the conveyor signs"})
	assert.Equal(t, 0.5, b.Factors[4].Value)
}

func TestScorer_UnknownTermMatchesNoKnowledgeBase(t *testing.T) {
	profile := domain.ProfileFor(domain.RealEstate)
	with := NewScorer(profile, knowledge.For(domain.RealEstate))
	without := NewScorer(profile, nil)

	fields := []model.Field{{Name: "Seller Name"}, {Name: "Widget Count"}, {Name: ""}}
	for _, f := range fields {
		for _, d := range realEstateDocs() {
			assert.Equal(t, without.Score(f, d), with.Score(f, d), f.Name)
		}
	}
}

func TestScorer_Bounded(t *testing.T) {
	docs := append(realEstateDocs(),
		model.Document{ID: "empty"},
		model.Document{
			ID:       "saturated",
			Content:  "seller buyer grantor grantee owner name",
			Metadata: map[string]string{"type": "party", "section": "seller name seller name seller name"},
		},
	)
	fields := []model.Field{
		{Name: "Seller Name", Context: "seller name seller name seller name"},
		{Name: "Grantor"},
		{Name: ""},
	}

	for _, kb := range []*knowledge.Base{nil, knowledge.For(domain.RealEstate)} {
		s := NewScorer(domain.ProfileFor(domain.RealEstate), kb)
		for _, f := range fields {
			for _, d := range docs {
				sc := s.Score(f, d)
				assert.GreaterOrEqual(t, sc, 0.0)
				assert.LessOrEqual(t, sc, 1.0)
			}
		}
	}
}

func TestScorer_UnknownDomainDegrades(t *testing.T) {
	s := NewScorer(domain.ProfileFor(domain.Generic), nil)
	b := s.Explain(model.Field{Name: "Seller Name"}, realEstateDocs()[0])

	assert.Equal(t, 0.0, b.Factors[1].Value)
	assert.Equal(t, 0.0, b.Factors[2].Value)
	assert.Greater(t, b.Total, 0.0)
}

func TestRank_TopKAndOrder(t *testing.T) {
	s := NewScorer(domain.ProfileFor(domain.RealEstate), nil)
	field := model.Field{Name: "Purchase Price"}
	docs := []model.Document{
		{ID: "a", Content: "weather report"},
		{ID: "b", Content: "the purchase price is stated below"},
		{ID: "c", Content: "nothing relevant"},
		{ID: "d", Content: "price, consideration, amount, cost and payment terms"},
		{ID: "e", Content: "lorem ipsum"},
	}

	ranked := s.Rank(field, docs, 2)
	require.Len(t, ranked, 2)
	assert.Equal(t, "d", ranked[0].Document.ID)
	assert.Equal(t, "b", ranked[1].Document.ID)
	assert.GreaterOrEqual(t, ranked[0].Score, ranked[1].Score)

	all := s.Rank(field, docs, 10)
	assert.Len(t, all, 2)
	for _, r := range all {
		assert.Greater(t, r.Score, 0.0)
	}
}

func TestRank_TiesKeepInputOrder(t *testing.T) {
	s := NewScorer(domain.ProfileFor(domain.RealEstate), nil)
	docs := []model.Document{
		{ID: "first", Content: "sale price"},
		{ID: "second", Content: "sale price"},
	}

	ranked := s.Rank(model.Field{Name: "Price"}, docs, 5)
	require.Len(t, ranked, 2)
	assert.Equal(t, "first", ranked[0].Document.ID)
	assert.Equal(t, "second", ranked[1].Document.ID)
}

func TestRank_DefaultTopK(t *testing.T) {
	s := NewScorer(domain.ProfileFor(domain.RealEstate), nil)
	docs := make([]model.Document, 5)
	for i := range docs {
		docs[i] = model.Document{ID: string(rune('a' + i)), Content: "price"}
	}
	assert.Len(t, s.Rank(model.Field{Name: "Price"}, docs, 0), DefaultTopK)
	assert.Empty(t, s.Rank(model.Field{Name: "Price"}, nil, 2))
}

func TestDisambiguate(t *testing.T) {
	tests := []struct {
		name       string
		field      string
		candidates []string
		want       string
		ok         bool
	}{
		{"no overlap", "Seller", []string{"Grantor", "Patient Name", "Vendor"}, "", false},
		{"best overlap", "Seller Name", []string{"Grantor", "Patient Name", "Seller Name"}, "Seller Name", true},
		{"first maximizer wins", "Name", []string{"Patient Name", "Seller Name"}, "Patient Name", true},
		{"empty candidates", "Seller", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Disambiguate(tt.field, tt.candidates)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

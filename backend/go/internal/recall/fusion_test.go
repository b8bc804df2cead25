package recall

import "testing"

func TestFuseRRFCombinesScoresAcrossStrategies(t *testing.T) {
	outputs := []StrategyOutput{
		{Name: StrategySemantic, List: CandidateList{{FactID: "a", Rank: 1}, {FactID: "b", Rank: 2}}},
		{Name: StrategyLexical, List: CandidateList{{FactID: "a", Rank: 3}}},
	}
	fused := FuseRRF(outputs, 60, 100)
	if len(fused) != 2 {
		t.Fatalf("expected 2 fused results, got %d", len(fused))
	}
	if fused[0].FactID != "a" {
		t.Fatalf("expected fact a (contributes to both strategies) ranked first, got %s", fused[0].FactID)
	}
	wantScore := 1.0/61 + 1.0/63
	if diff := fused[0].RRFScore - wantScore; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected rrf_score %v, got %v", wantScore, fused[0].RRFScore)
	}
	if fused[0].SourceRanks[StrategySemantic] != 1 || fused[0].SourceRanks[StrategyLexical] != 3 {
		t.Errorf("expected source ranks to be recorded per strategy, got %v", fused[0].SourceRanks)
	}
}

func TestFuseRRFTiesBreakByMinRankThenFactID(t *testing.T) {
	outputs := []StrategyOutput{
		{Name: StrategySemantic, List: CandidateList{{FactID: "z", Rank: 1}}},
		{Name: StrategyLexical, List: CandidateList{{FactID: "y", Rank: 1}}},
	}
	fused := FuseRRF(outputs, 60, 100)
	if len(fused) != 2 {
		t.Fatalf("expected 2 results, got %d", len(fused))
	}
	if fused[0].RRFScore != fused[1].RRFScore {
		t.Fatalf("expected a genuine tie for this test to be meaningful")
	}
	if fused[0].FactID != "y" {
		t.Errorf("expected the tie to break by lowest fact_id, got %s first", fused[0].FactID)
	}
}

func TestFuseRRFTruncatesToKFuse(t *testing.T) {
	outputs := []StrategyOutput{
		{Name: StrategySemantic, List: CandidateList{{FactID: "a", Rank: 1}, {FactID: "b", Rank: 2}, {FactID: "c", Rank: 3}}},
	}
	fused := FuseRRF(outputs, 60, 2)
	if len(fused) != 2 {
		t.Fatalf("expected kFuse to cap the merged list at 2, got %d", len(fused))
	}
	for i, r := range fused {
		if r.FinalRank != i+1 {
			t.Errorf("expected dense final_rank %d at index %d, got %d", i+1, i, r.FinalRank)
		}
	}
}

func TestFuseRRFEmptyInputYieldsEmptyOutput(t *testing.T) {
	fused := FuseRRF(nil, 60, 100)
	if len(fused) != 0 {
		t.Errorf("expected no fused results for empty input, got %v", fused)
	}
}

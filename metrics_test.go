package ccdavalidator

import (
	"sync"
	"testing"
	"time"
)

func TestMetrics_Basic(t *testing.T) {
	m := NewMetrics()

	if m.ValidationsTotal() != 0 {
		t.Errorf("ValidationsTotal() = %d; want 0", m.ValidationsTotal())
	}

	m.RecordValidation(100*time.Millisecond, true)

	if m.ValidationsTotal() != 1 {
		t.Errorf("ValidationsTotal() = %d; want 1", m.ValidationsTotal())
	}
	if m.ValidationsClean() != 1 {
		t.Errorf("ValidationsClean() = %d; want 1", m.ValidationsClean())
	}
}

func TestMetrics_CleanRate(t *testing.T) {
	m := NewMetrics()

	if rate := m.CleanRate(); rate != 0 {
		t.Errorf("CleanRate() = %f; want 0", rate)
	}

	m.RecordValidation(100*time.Millisecond, true)
	m.RecordValidation(100*time.Millisecond, true)
	m.RecordValidation(100*time.Millisecond, false)

	rate := m.CleanRate()
	expected := 2.0 / 3.0
	if rate < expected-0.01 || rate > expected+0.01 {
		t.Errorf("CleanRate() = %f; want ~%f", rate, expected)
	}
}

func TestMetrics_ValidationTime(t *testing.T) {
	m := NewMetrics()

	if avg := m.AverageValidationTime(); avg != 0 {
		t.Errorf("AverageValidationTime() = %v; want 0", avg)
	}
	if min := m.MinValidationTime(); min != 0 {
		t.Errorf("MinValidationTime() = %v; want 0", min)
	}

	m.RecordValidation(100*time.Millisecond, true)
	m.RecordValidation(200*time.Millisecond, true)
	m.RecordValidation(300*time.Millisecond, true)

	if avg := m.AverageValidationTime(); avg != 200*time.Millisecond {
		t.Errorf("AverageValidationTime() = %v; want %v", avg, 200*time.Millisecond)
	}
	if min := m.MinValidationTime(); min != 100*time.Millisecond {
		t.Errorf("MinValidationTime() = %v; want %v", min, 100*time.Millisecond)
	}
	if max := m.MaxValidationTime(); max != 300*time.Millisecond {
		t.Errorf("MaxValidationTime() = %v; want %v", max, 300*time.Millisecond)
	}
}

func TestMetrics_ServiceErrors(t *testing.T) {
	m := NewMetrics()

	m.RecordServiceError(KindIO)
	m.RecordServiceError(KindParse)
	m.RecordServiceError(KindParse)
	m.RecordServiceError(ErrorKind(42)) // out of range counts as unclassified

	if got := m.ServiceErrors(KindIO); got != 1 {
		t.Errorf("ServiceErrors(io) = %d; want 1", got)
	}
	if got := m.ServiceErrors(KindParse); got != 2 {
		t.Errorf("ServiceErrors(parse) = %d; want 2", got)
	}
	if got := m.ServiceErrors(KindUnclassified); got != 1 {
		t.Errorf("ServiceErrors(unclassified) = %d; want 1", got)
	}
	if got := m.ServiceErrors(ErrorKind(-1)); got != 0 {
		t.Errorf("ServiceErrors(-1) = %d; want 0", got)
	}
	if got := m.ServiceErrorsTotal(); got != 4 {
		t.Errorf("ServiceErrorsTotal() = %d; want 4", got)
	}
}

func TestMetrics_RecordFinding(t *testing.T) {
	m := NewMetrics()

	m.RecordFinding(Finding{Type: FindingConformanceError})
	m.RecordFinding(Finding{Type: FindingVocabularyError})
	m.RecordFinding(Finding{Type: FindingContentWarning})
	m.RecordFinding(Finding{Type: FindingConformanceInfo})
	m.RecordFinding(Finding{Type: "custom"})

	if m.ErrorsTotal() != 2 {
		t.Errorf("ErrorsTotal() = %d; want 2", m.ErrorsTotal())
	}
	if m.WarningsTotal() != 1 {
		t.Errorf("WarningsTotal() = %d; want 1", m.WarningsTotal())
	}
	if m.InfosTotal() != 2 {
		t.Errorf("InfosTotal() = %d; want 2", m.InfosTotal())
	}
}

func TestMetrics_Stage(t *testing.T) {
	m := NewMetrics()

	m.RecordStage(StageStructural, 100*time.Millisecond, 2)
	m.RecordStage(StageStructural, 200*time.Millisecond, 3)
	m.RecordStageSkip(StageVocabulary)
	m.RecordStageFailure(StageContent, 50*time.Millisecond)

	stats, ok := m.StageStats(StageStructural)
	if !ok {
		t.Fatal("StageStats(structural) not found")
	}
	if stats.Invocations != 2 {
		t.Errorf("Invocations = %d; want 2", stats.Invocations)
	}
	if stats.TotalTime != 300*time.Millisecond {
		t.Errorf("TotalTime = %v; want %v", stats.TotalTime, 300*time.Millisecond)
	}
	if stats.AvgTime != 150*time.Millisecond {
		t.Errorf("AvgTime = %v; want %v", stats.AvgTime, 150*time.Millisecond)
	}
	if stats.FindingsFound != 5 {
		t.Errorf("FindingsFound = %d; want 5", stats.FindingsFound)
	}

	vocab, _ := m.StageStats(StageVocabulary)
	if vocab.Skips != 1 || vocab.Invocations != 0 {
		t.Errorf("vocabulary Skips = %d, Invocations = %d; want 1, 0", vocab.Skips, vocab.Invocations)
	}

	content, _ := m.StageStats(StageContent)
	if content.Failures != 1 || content.Invocations != 1 {
		t.Errorf("content Failures = %d, Invocations = %d; want 1, 1", content.Failures, content.Invocations)
	}

	if _, ok := m.StageStats("nonexistent"); ok {
		t.Error("StageStats should return false for a stage never recorded")
	}
	if got := len(m.AllStageStats()); got != 3 {
		t.Errorf("len(AllStageStats()) = %d; want 3", got)
	}
}

func TestMetrics_Snapshot(t *testing.T) {
	m := NewMetrics()

	m.RecordValidation(100*time.Millisecond, true)
	m.RecordValidation(300*time.Millisecond, false)
	m.RecordServiceError(KindTypeMismatch)
	m.RecordFinding(Finding{Type: FindingConformanceError})
	m.RecordStage(StageStructural, 10*time.Millisecond, 1)

	snap := m.Snapshot()

	if snap.ValidationsTotal != 2 {
		t.Errorf("ValidationsTotal = %d; want 2", snap.ValidationsTotal)
	}
	if snap.ValidationsClean != 1 {
		t.Errorf("ValidationsClean = %d; want 1", snap.ValidationsClean)
	}
	if snap.AvgValidationTimeNs != uint64(200*time.Millisecond) {
		t.Errorf("AvgValidationTimeNs = %d; want %d", snap.AvgValidationTimeNs, uint64(200*time.Millisecond))
	}
	if snap.ServiceErrors["type-mismatch"] != 1 {
		t.Errorf("ServiceErrors[type-mismatch] = %d; want 1", snap.ServiceErrors["type-mismatch"])
	}
	if len(snap.ServiceErrors) != 4 {
		t.Errorf("len(ServiceErrors) = %d; want 4", len(snap.ServiceErrors))
	}
	if snap.ErrorsTotal != 1 {
		t.Errorf("ErrorsTotal = %d; want 1", snap.ErrorsTotal)
	}
	if len(snap.Stages) != 1 {
		t.Errorf("len(Stages) = %d; want 1", len(snap.Stages))
	}
	if snap.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := NewMetrics()

	m.RecordValidation(100*time.Millisecond, true)
	m.RecordServiceError(KindIO)
	m.RecordFinding(Finding{Type: FindingVocabularyWarning})
	m.RecordStage(StageVocabulary, 10*time.Millisecond, 1)

	m.Reset()

	if m.ValidationsTotal() != 0 {
		t.Errorf("ValidationsTotal() = %d; want 0", m.ValidationsTotal())
	}
	if m.MinValidationTime() != 0 {
		t.Errorf("MinValidationTime() = %v; want 0", m.MinValidationTime())
	}
	if m.ServiceErrorsTotal() != 0 {
		t.Errorf("ServiceErrorsTotal() = %d; want 0", m.ServiceErrorsTotal())
	}
	if m.WarningsTotal() != 0 {
		t.Errorf("WarningsTotal() = %d; want 0", m.WarningsTotal())
	}
	if len(m.AllStageStats()) != 0 {
		t.Errorf("len(AllStageStats()) = %d; want 0", len(m.AllStageStats()))
	}
}

func TestMetrics_Concurrent(t *testing.T) {
	m := NewMetrics()
	var wg sync.WaitGroup

	const goroutines = 100
	const iterations = 100

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				m.RecordValidation(time.Millisecond, j%2 == 0)
				m.RecordStage(StageStructural, time.Millisecond, 1)
				m.RecordServiceError(KindParse)
			}
		}()
	}

	wg.Wait()

	expected := uint64(goroutines * iterations)
	if m.ValidationsTotal() != expected {
		t.Errorf("ValidationsTotal() = %d; want %d", m.ValidationsTotal(), expected)
	}
	if m.ServiceErrors(KindParse) != expected {
		t.Errorf("ServiceErrors(parse) = %d; want %d", m.ServiceErrors(KindParse), expected)
	}
	stats, _ := m.StageStats(StageStructural)
	if stats.Invocations != expected {
		t.Errorf("Invocations = %d; want %d", stats.Invocations, expected)
	}
}

package search

import (
	"context"
	"testing"
)

func TestPersonFilterQuotesIDs(t *testing.T) {
	filter := personFilter([]string{"per-1", "per-2"})
	want := `personId IN ["per-1", "per-2"]`
	if filter != want {
		t.Errorf("filter = %q, want %q", filter, want)
	}
}

func TestIndexByTypeCoversAllRecordTypes(t *testing.T) {
	for _, recordType := range []string{"TODO", "HEALTH", "NOTE", "FINANCE"} {
		if _, ok := indexByType[recordType]; !ok {
			t.Errorf("no index configured for %s", recordType)
		}
	}
}

func TestFirstNonBlank(t *testing.T) {
	if got := firstNonBlank("", "  ", "value", "other"); got != "value" {
		t.Errorf("firstNonBlank = %q", got)
	}
	if got := firstNonBlank("", " "); got != "" {
		t.Errorf("firstNonBlank = %q, want empty", got)
	}
}

func TestServiceSearchEmptyQuery(t *testing.T) {
	service := NewService(nil, NewPgFTS(nil))

	response := service.Search(context.Background(), Query{Text: "", PersonIDs: []string{"per-1"}})
	if len(response.Results) != 0 || response.Total != 0 {
		t.Errorf("response = %+v, want empty", response)
	}
}

func TestServiceSearchEmptyScope(t *testing.T) {
	service := NewService(nil, NewPgFTS(nil))

	response := service.Search(context.Background(), Query{Text: "prescription"})
	if len(response.Results) != 0 {
		t.Errorf("results = %v, want none without a person scope", response.Results)
	}
}

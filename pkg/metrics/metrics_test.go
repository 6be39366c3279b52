package metrics_test

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goliatone/go-formbind/pkg/builder"
	"github.com/goliatone/go-formbind/pkg/dataaccess/memory"
	"github.com/goliatone/go-formbind/pkg/metrics"
	"github.com/goliatone/go-formbind/pkg/model"
	"github.com/goliatone/go-formbind/pkg/orchestrator"
)

func counterValue(t *testing.T, c *metrics.Collector, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := c.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			matched := 0
			for _, pair := range metric.GetLabel() {
				if want, ok := labels[pair.GetName()]; ok && want == pair.GetValue() {
					matched++
				}
			}
			if matched == len(labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestCollector_ObservesOrchestrator(t *testing.T) {
	collector := metrics.NewCollector("")
	store := memory.New()
	store.Seed("users", "1", model.Entity{"id": "1", "name": "Ada"})
	store.SetDictionary("roles", []model.Option{{Value: "a", Label: "A"}})

	b := builder.New()
	b.FieldFor("name").Required()
	b.FieldFor("role").SelectWithRemoteSource("roles")

	o := orchestrator.New("users", b.MustBuild(), store, orchestrator.WithObserver(collector))
	defer o.Close()

	ctx := context.Background()
	if err := o.Initialize(ctx, orchestrator.Target{ID: "1"}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := o.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
	o.Validate(nil)
	store.Fail(memory.OpUpdateEntity, errors.New("down"))
	if _, err := o.Save(ctx, nil); err == nil {
		t.Fatalf("expected save failure")
	}

	checks := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"formbind_entity_loads_total", map[string]string{"resource": "users", "result": "ok"}, 1},
		{"formbind_dictionary_resolutions_total", map[string]string{"source": "roles", "result": "ok"}, 1},
		{"formbind_validation_runs_total", map[string]string{"resource": "users", "result": "valid"}, 1},
		{"formbind_mutation_total", map[string]string{"resource": "users", "op": "update", "result": "error"}, 1},
		{"formbind_form_transitions_total", map[string]string{"resource": "users", "to": "error"}, 1},
	}
	for _, check := range checks {
		if got := counterValue(t, collector, check.name, check.labels); got != check.want {
			t.Fatalf("%s%v = %v, want %v", check.name, check.labels, got, check.want)
		}
	}
}

func TestCollector_Handler(t *testing.T) {
	collector := metrics.NewCollector("forms")
	collector.ObserveDictionary("tags", true, nil, 0)

	server := httptest.NewServer(collector.Handler())
	defer server.Close()

	resp, err := server.Client().Get(server.URL)
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `forms_dictionary_resolutions_total{result="cached",source="tags"} 1`) {
		t.Fatalf("metrics output missing cached dictionary counter:\n%s", body)
	}
}

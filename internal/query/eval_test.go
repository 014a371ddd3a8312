package query

import (
	"reflect"
	"testing"
	"time"
)

// rec is a map-backed Record; a key mapped to nil reads as absent.
type rec map[string]any

func (r rec) Field(name string) (any, bool) {
	v, ok := r[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func records(rs ...rec) []Record {
	out := make([]Record, len(rs))
	for i, r := range rs {
		out[i] = r
	}
	return out
}

var t0 = time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)

func TestMatch(t *testing.T) {
	r := rec{FieldService: "a", FieldHealthy: false, FieldTimestamp: t0, FieldResponseTime: 12.5, FieldError: ""}

	cases := []struct {
		name string
		f    Filter
		want bool
	}{
		{"empty filter", nil, true},
		{"eq string", Filter{Eq(FieldService, "a")}, true},
		{"eq string miss", Filter{Eq(FieldService, "b")}, false},
		{"eq bool", Filter{Eq(FieldHealthy, false)}, true},
		{"gte boundary", Filter{Gte(FieldTimestamp, t0)}, true},
		{"lte boundary", Filter{Lte(FieldTimestamp, t0)}, true},
		{"after end", Filter{Lte(FieldTimestamp, t0.Add(-time.Nanosecond))}, false},
		{"between", Between(FieldTimestamp, t0.Add(-time.Hour), t0), true},
		{"number vs int", Filter{Gte(FieldResponseTime, 12)}, true},
		{"present", Filter{Present(FieldService)}, true},
		{"present empty string", Filter{Present(FieldError)}, false},
		{"absent field eq", Filter{Eq(FieldStatusCode, 200)}, false},
		{"mismatched types", Filter{Eq(FieldService, 1)}, false},
	}
	for _, tc := range cases {
		if got := Match(r, tc.f); got != tc.want {
			t.Fatalf("%s: Match = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestEvaluate_AvgIgnoresAbsent(t *testing.T) {
	rows := Evaluate(records(
		rec{FieldService: "a", FieldResponseTime: 100.0},
		rec{FieldService: "a"},
		rec{FieldService: "a", FieldResponseTime: 200.0},
		rec{FieldService: "b"},
	), Pipeline{
		GroupBy:      []Key{ByField(FieldService)},
		Accumulators: []Accumulator{Avg("avg", FieldResponseTime), Max("max", FieldResponseTime), Count("n")},
	})

	if len(rows) != 2 {
		t.Fatalf("want 2 groups, got %d", len(rows))
	}
	if rows[0].Values["avg"] != 150.0 || rows[0].Values["max"] != 200.0 || rows[0].Values["n"] != int64(3) {
		t.Fatalf("group a: %+v", rows[0].Values)
	}
	if rows[1].Values["avg"] != nil || rows[1].Values["max"] != nil {
		t.Fatalf("group b with no latency should report nil, got %+v", rows[1].Values)
	}
}

func TestEvaluate_RatioHavingAndNilLast(t *testing.T) {
	rows := Evaluate(records(
		rec{FieldService: "a", FieldHealthy: true},
		rec{FieldService: "a", FieldHealthy: true},
		rec{FieldService: "a", FieldHealthy: false},
		rec{FieldService: "b", FieldHealthy: true},
		rec{FieldService: "c"},
	), Pipeline{
		GroupBy: []Key{ByField(FieldService)},
		Accumulators: []Accumulator{
			Count("total"),
			CountTrue("healthy", FieldHealthy),
			CountFalse("failures", FieldHealthy),
		},
		Ratios: []Ratio{{Name: "pct", Numerator: "healthy", Denominator: "total", Scale: 100, Places: 2}},
		Sort:   []SortKey{Desc("pct")},
	})

	got := make([]any, 0, len(rows))
	for _, r := range rows {
		got = append(got, r.Keys[FieldService], r.Values["pct"])
	}
	want := []any{"b", 100.0, "a", 66.67, "c", 0.0}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if rows[2].Values["failures"] != int64(1) {
		t.Fatalf("absent boolean should count as a failure, got %v", rows[2].Values["failures"])
	}

	having := Evaluate(records(
		rec{FieldService: "a"}, rec{FieldService: "a"}, rec{FieldService: "b"},
	), Pipeline{
		GroupBy:      []Key{ByField(FieldService)},
		Accumulators: []Accumulator{Count("n")},
		Having:       &Having{Name: "n", Min: 2},
	})
	if len(having) != 1 || having[0].Keys[FieldService] != "a" {
		t.Fatalf("having: %+v", having)
	}
}

func TestEvaluate_SortTiesKeepFirstAppearanceAndLimit(t *testing.T) {
	p := Pipeline{
		GroupBy:      []Key{ByField(FieldService)},
		Accumulators: []Accumulator{Count("n")},
		Sort:         []SortKey{Desc("n")},
	}
	in := records(
		rec{FieldService: "x"}, rec{FieldService: "y"}, rec{FieldService: "y"},
		rec{FieldService: "x"}, rec{FieldService: "z"},
	)

	rows := Evaluate(in, p)
	if rows[0].Keys[FieldService] != "x" || rows[1].Keys[FieldService] != "y" {
		t.Fatalf("tie should keep first appearance, got %v then %v", rows[0].Keys, rows[1].Keys)
	}

	p.Limit = 1
	if rows := Evaluate(in, p); len(rows) != 1 || rows[0].Keys[FieldService] != "x" {
		t.Fatalf("limit 1: %+v", rows)
	}
}

func TestEvaluate_TimeKeysAreUTC(t *testing.T) {
	zone := time.FixedZone("UTC-5", -5*60*60)
	rows := Evaluate(records(
		rec{FieldService: "a", FieldTimestamp: time.Date(2025, 8, 18, 22, 59, 30, 0, zone)},
		rec{FieldService: "b", FieldTimestamp: time.Date(2025, 8, 19, 3, 59, 0, 0, time.UTC)},
	), Pipeline{
		GroupBy:      []Key{ByHour("hour", FieldTimestamp), ByMinute("minute", FieldTimestamp)},
		Accumulators: []Accumulator{Distinct("services", FieldService)},
	})

	if len(rows) != 1 {
		t.Fatalf("want both records in one UTC minute, got %d rows", len(rows))
	}
	if rows[0].Keys["hour"] != 3 || rows[0].Keys["minute"] != "2025-08-19 03:59" {
		t.Fatalf("keys: %+v", rows[0].Keys)
	}
	if !reflect.DeepEqual(rows[0].Values["services"], []string{"a", "b"}) {
		t.Fatalf("services: %v", rows[0].Values["services"])
	}
}

func TestEvaluate_AvgMinutesBetween(t *testing.T) {
	end1, end2 := t0.Add(10*time.Minute), t0.Add(20*time.Minute)
	rows := Evaluate(records(
		rec{FieldService: "a", FieldStartedAt: t0, FieldResolvedAt: end1},
		rec{FieldService: "a", FieldStartedAt: t0, FieldResolvedAt: end2},
		rec{FieldService: "a", FieldStartedAt: t0},
	), Pipeline{
		GroupBy:      []Key{ByField(FieldService)},
		Accumulators: []Accumulator{AvgMinutesBetween("mins", FieldStartedAt, FieldResolvedAt)},
	})
	if rows[0].Values["mins"] != 15.0 {
		t.Fatalf("mins: %v", rows[0].Values["mins"])
	}
}

func TestRound_HalfAwayFromZero(t *testing.T) {
	if got := Round(0.125, 2); got != 0.13 {
		t.Fatalf("Round(0.125, 2) = %v", got)
	}
	if got := Round(-0.125, 2); got != -0.13 {
		t.Fatalf("Round(-0.125, 2) = %v", got)
	}
	if got := Round(200.0/3.0, 2); got != 66.67 {
		t.Fatalf("Round(66.666.., 2) = %v", got)
	}
}

package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/alexrabarts/ceo-agent/internal/apperr"
	"github.com/alexrabarts/ceo-agent/internal/sheets"
)

// 2024-03-20 is in ISO week 12
var now = time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)

func seededStore() *sheets.MemoryStore {
	store := sheets.NewMemoryStore()
	store.Seed("CompanyProfile",
		[]string{"key", "value"},
		[]string{"mission", "Делать хорошо"},
		[]string{"", "orphan"},
		[]string{"market", "B2B"},
	)
	store.Seed("StrategyPlan",
		[]string{"week", "focus", "goal", "tasks", "done_summary"},
		[]string{"W11", "Продажи", "10 встреч", "звонки", "8 встреч"},
		[]string{"w 12", "Найм", "2 инженера", "интервью", "1 оффер"},
		[]string{"W13", "Продукт", "релиз", "", ""},
	)
	return store
}

func TestProfileKeepsOrder(t *testing.T) {
	repo := NewRepository(seededStore(), "CompanyProfile", "StrategyPlan")

	profile, err := repo.Profile(context.Background())
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	want := Profile{{Key: "mission", Value: "Делать хорошо"}, {Key: "market", Value: "B2B"}}
	if !reflect.DeepEqual(profile, want) {
		t.Errorf("Profile() = %v, want %v", profile, want)
	}
}

func TestCurrentWeek(t *testing.T) {
	repo := NewRepository(seededStore(), "CompanyProfile", "StrategyPlan")

	week, err := repo.CurrentWeek(context.Background(), now)
	if err != nil {
		t.Fatalf("CurrentWeek() error = %v", err)
	}
	if week.Focus != "Найм" || week.Row != 3 {
		t.Errorf("CurrentWeek() = %+v", week)
	}

	_, err = repo.CurrentWeek(context.Background(), now.AddDate(0, 0, 21))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("CurrentWeek() for missing week error = %v, want ErrNotFound", err)
	}
}

func TestUpdateGoalChangesOnlyGoal(t *testing.T) {
	store := seededStore()
	repo := NewRepository(store, "CompanyProfile", "StrategyPlan")

	if _, err := repo.UpdateGoal(context.Background(), now, "3 инженера"); err != nil {
		t.Fatalf("UpdateGoal() error = %v", err)
	}

	rows := store.Rows("StrategyPlan")
	want := []string{"w 12", "Найм", "3 инженера", "интервью", "1 оффер"}
	if !reflect.DeepEqual(rows[2], want) {
		t.Errorf("updated row = %v, want %v", rows[2], want)
	}
	if rows[1][2] != "10 встреч" || rows[3][2] != "релиз" {
		t.Errorf("other rows changed: %v", rows)
	}
}

func TestUpdateGoalMissingWeekLeavesRowsUntouched(t *testing.T) {
	store := seededStore()
	before := store.Rows("StrategyPlan")
	repo := NewRepository(store, "CompanyProfile", "StrategyPlan")

	_, err := repo.UpdateGoal(context.Background(), now.AddDate(0, 1, 0), "новая цель")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("UpdateGoal() error = %v, want ErrNotFound", err)
	}
	if !reflect.DeepEqual(store.Rows("StrategyPlan"), before) {
		t.Error("rows changed after failed update")
	}
}

func TestUpdateGoalReadFailure(t *testing.T) {
	store := seededStore()
	store.FailReads["StrategyPlan"] = errors.New("quota")
	repo := NewRepository(store, "CompanyProfile", "StrategyPlan")

	_, err := repo.UpdateGoal(context.Background(), now, "x")
	if !errors.Is(err, apperr.ErrUpstreamUnavailable) {
		t.Fatalf("UpdateGoal() error = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestUpdateGoalOverSheetsAPI(t *testing.T) {
	plan := [][]interface{}{
		{"W11", "Продажи", "10 встреч", "звонки", "8 встреч"},
		{"w 12", "Найм", "2 инженера", "интервью", "1 оффер"},
	}

	var requested []string
	var written []interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, r.Method+" "+r.URL.Path)

		var values [][]interface{}
		switch r.Method + " " + r.URL.Path {
		case "GET /v4/spreadsheets/sheet-id/values/StrategyPlan!A2:E":
			values = plan
		case "GET /v4/spreadsheets/sheet-id/values/StrategyPlan!A3:E3":
			values = plan[1:]
		case "PUT /v4/spreadsheets/sheet-id/values/StrategyPlan!A3:E3":
			var body sheetsapi.ValueRange
			if err := json.NewDecoder(r.Body).Decode(&body); err == nil && len(body.Values) == 1 {
				written = body.Values[0]
			}
			w.Write([]byte(`{"updatedRange":"StrategyPlan!A3:E3","updatedCells":5}`))
			return
		default:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"code":400,"message":"Unable to parse range","status":"INVALID_ARGUMENT"}}`))
			return
		}
		json.NewEncoder(w).Encode(sheetsapi.ValueRange{Values: values})
	}))
	defer srv.Close()

	service, err := sheetsapi.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	repo := NewRepository(sheets.NewClient(service, "sheet-id"), "CompanyProfile", "StrategyPlan")

	week, err := repo.UpdateGoal(context.Background(), now, "3 инженера")
	if err != nil {
		t.Fatalf("UpdateGoal() error = %v (requests %v)", err, requested)
	}
	if week.Goal != "3 инженера" {
		t.Errorf("UpdateGoal() = %+v", week)
	}
	want := []interface{}{"w 12", "Найм", "3 инженера", "интервью", "1 оффер"}
	if !reflect.DeepEqual(written, want) {
		t.Errorf("written row = %v, want %v", written, want)
	}
}

func TestMatchesWeek(t *testing.T) {
	tests := []struct {
		label string
		week  int
		want  bool
	}{
		{"W12", 12, true},
		{"w12", 12, true},
		{"W 12", 12, true},
		{"W07", 7, true},
		{" W7 ", 7, true},
		{"W12", 13, false},
		{"12", 12, false},
		{"Week 12", 12, false},
		{"", 1, false},
	}
	for _, tt := range tests {
		if got := MatchesWeek(tt.label, tt.week); got != tt.want {
			t.Errorf("MatchesWeek(%q, %d) = %v, want %v", tt.label, tt.week, got, tt.want)
		}
	}
}

func TestWeekLabel(t *testing.T) {
	if got := WeekLabel(now); got != "W12" {
		t.Errorf("WeekLabel() = %q, want W12", got)
	}
	// 2021-01-01 belongs to ISO week 53 of 2020
	if got := WeekLabel(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)); got != "W53" {
		t.Errorf("WeekLabel() = %q, want W53", got)
	}
}

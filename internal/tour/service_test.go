package tour

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"testing"

	"github.com/hitoshi/tourbase/internal/model"
	"github.com/hitoshi/tourbase/internal/query"
	"github.com/hitoshi/tourbase/internal/repository"
)

type mockTourRepo struct {
	findByIDFunc func(ctx context.Context, id string) (*model.Tour, error)
	createFunc   func(ctx context.Context, tour *model.Tour) error
	updateFunc   func(ctx context.Context, id string, params repository.UpdateTourParams) (*model.Tour, error)
	deleteFunc   func(ctx context.Context, id string) (bool, error)
	listFunc     func(ctx context.Context, refined *query.Refined) ([]*model.Tour, error)
	statsFunc    func(ctx context.Context) ([]model.TourStats, error)
}

func (m *mockTourRepo) FindByID(ctx context.Context, id string) (*model.Tour, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockTourRepo) Create(ctx context.Context, tour *model.Tour) error {
	return m.createFunc(ctx, tour)
}

func (m *mockTourRepo) Update(ctx context.Context, id string, params repository.UpdateTourParams) (*model.Tour, error) {
	return m.updateFunc(ctx, id, params)
}

func (m *mockTourRepo) Delete(ctx context.Context, id string) (bool, error) {
	return m.deleteFunc(ctx, id)
}

func (m *mockTourRepo) List(ctx context.Context, refined *query.Refined) ([]*model.Tour, error) {
	return m.listFunc(ctx, refined)
}

func (m *mockTourRepo) Stats(ctx context.Context) ([]model.TourStats, error) {
	return m.statsFunc(ctx)
}

func newTestService(repo *mockTourRepo) *Service {
	return NewService(repo, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func validCreateParams() CreateParams {
	return CreateParams{
		Name:         "The Forest Hiker",
		Duration:     5,
		MaxGroupSize: 25,
		Difficulty:   model.DifficultyEasy,
		Price:        397,
		Summary:      "Breathtaking hike through the Canadian Banff National Park",
	}
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeValidation {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeValidation)
	}
}

func TestList_TranslatesQueryString(t *testing.T) {
	var captured *query.Refined
	repo := &mockTourRepo{
		listFunc: func(ctx context.Context, refined *query.Refined) ([]*model.Tour, error) {
			captured = refined
			return []*model.Tour{{ID: "tour-1"}}, nil
		},
	}
	svc := newTestService(repo)

	values := url.Values{
		"difficulty": []string{"easy"},
		"price[lte]": []string{"500"},
		"sort":       []string{"-price"},
		"limit":      []string{"10"},
	}

	tours, err := svc.List(context.Background(), values)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(tours) != 1 {
		t.Errorf("len(tours) = %d, want 1", len(tours))
	}

	if len(captured.Conditions) != 2 {
		t.Fatalf("len(conditions) = %d, want 2", len(captured.Conditions))
	}
	if captured.Limit != 10 {
		t.Errorf("limit = %d, want 10", captured.Limit)
	}
}

func TestList_UnknownFieldRejected(t *testing.T) {
	repo := &mockTourRepo{
		listFunc: func(ctx context.Context, refined *query.Refined) ([]*model.Tour, error) {
			t.Fatal("repository must not be called on invalid query")
			return nil, nil
		},
	}
	svc := newTestService(repo)

	_, err := svc.List(context.Background(), url.Values{"secretTour": []string{"true"}})
	assertValidationError(t, err)
}

func TestListTopRated_UsesFixedPreset(t *testing.T) {
	var captured *query.Refined
	repo := &mockTourRepo{
		listFunc: func(ctx context.Context, refined *query.Refined) ([]*model.Tour, error) {
			captured = refined
			return nil, nil
		},
	}
	svc := newTestService(repo)

	if _, err := svc.ListTopRated(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if captured.Limit != 5 {
		t.Errorf("limit = %d, want 5", captured.Limit)
	}
	if len(captured.Sort) != 2 || captured.Sort[0].Field != "ratingsAverage" || !captured.Sort[0].Desc {
		t.Errorf("sort = %v, want ratingsAverage DESC first", captured.Sort)
	}
	if len(captured.Fields) != 6 {
		t.Errorf("fields = %v, want 6 projected fields", captured.Fields)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo := &mockTourRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Tour, error) {
			return nil, nil
		},
	}
	svc := newTestService(repo)

	_, err := svc.Get(context.Background(), "missing")
	apiErr, ok := err.(*model.APIError)
	if !ok || apiErr.Code != model.ErrCodeTourNotFound {
		t.Errorf("expected TOUR_NOT_FOUND, got %v", err)
	}
}

func TestCreate_GeneratesSlugAndID(t *testing.T) {
	var created *model.Tour
	repo := &mockTourRepo{
		createFunc: func(ctx context.Context, tour *model.Tour) error {
			created = tour
			return nil
		},
	}
	svc := newTestService(repo)

	tour, err := svc.Create(context.Background(), validCreateParams())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if created == nil {
		t.Fatal("expected tour to be persisted")
	}
	if tour.ID == "" {
		t.Error("expected generated ID")
	}
	if tour.Slug != "the-forest-hiker" {
		t.Errorf("slug = %q, want the-forest-hiker", tour.Slug)
	}
	if tour.RatingsAverage != 4.5 {
		t.Errorf("ratingsAverage = %v, want default 4.5", tour.RatingsAverage)
	}
}

func TestCreate_ValidationErrors(t *testing.T) {
	repo := &mockTourRepo{
		createFunc: func(ctx context.Context, tour *model.Tour) error { return nil },
	}
	svc := newTestService(repo)

	cases := []struct {
		name   string
		modify func(p *CreateParams)
	}{
		{"name too short", func(p *CreateParams) { p.Name = "Short" }},
		{"name too long", func(p *CreateParams) { p.Name = "This tour name is way way way too long to be accepted" }},
		{"zero duration", func(p *CreateParams) { p.Duration = 0 }},
		{"invalid difficulty", func(p *CreateParams) { p.Difficulty = "extreme" }},
		{"zero price", func(p *CreateParams) { p.Price = 0 }},
		{"discount above price", func(p *CreateParams) { p.PriceDiscount = 500 }},
		{"missing summary", func(p *CreateParams) { p.Summary = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := validCreateParams()
			tc.modify(&params)
			_, err := svc.Create(context.Background(), params)
			assertValidationError(t, err)
		})
	}
}

func TestCreate_DuplicateName(t *testing.T) {
	repo := &mockTourRepo{
		createFunc: func(ctx context.Context, tour *model.Tour) error {
			return repository.ErrDuplicateName
		},
	}
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), validCreateParams())
	assertValidationError(t, err)
}

func TestUpdate_NotFound(t *testing.T) {
	repo := &mockTourRepo{
		updateFunc: func(ctx context.Context, id string, params repository.UpdateTourParams) (*model.Tour, error) {
			return nil, nil
		},
	}
	svc := newTestService(repo)

	price := 500.0
	_, err := svc.Update(context.Background(), "missing", UpdateParams{Price: &price})
	apiErr, ok := err.(*model.APIError)
	if !ok || apiErr.Code != model.ErrCodeTourNotFound {
		t.Errorf("expected TOUR_NOT_FOUND, got %v", err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo := &mockTourRepo{
		deleteFunc: func(ctx context.Context, id string) (bool, error) {
			return false, nil
		},
	}
	svc := newTestService(repo)

	err := svc.Delete(context.Background(), "missing")
	apiErr, ok := err.(*model.APIError)
	if !ok || apiErr.Code != model.ErrCodeTourNotFound {
		t.Errorf("expected TOUR_NOT_FOUND, got %v", err)
	}
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"The Forest Hiker", "the-forest-hiker"},
		{"The Sea Explorer!", "the-sea-explorer"},
		{"Tour  2024  Special", "tour-2024-special"},
	}

	for _, tc := range cases {
		if got := slugify(tc.input); got != tc.want {
			t.Errorf("slugify(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

var _ repository.TourRepository = (*mockTourRepo)(nil)

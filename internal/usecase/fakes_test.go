package usecase

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/fadilmartias/interview-coach/internal/apperror"
	"github.com/fadilmartias/interview-coach/internal/evaluation"
	"github.com/fadilmartias/interview-coach/internal/llm"
	"github.com/fadilmartias/interview-coach/internal/model"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

var testTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// memSessionStore keeps sessions as JSON so that callers never share memory
// with the store, the way a database round-trip behaves.
type memSessionStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID][]byte

	// beforeSave runs outside the lock before every Save.
	beforeSave func(s *model.InterviewSession)
	saves      int
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{rows: map[uuid.UUID][]byte{}}
}

func (m *memSessionStore) Create(_ context.Context, s *model.InterviewSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = testTime
	s.UpdatedAt = testTime
	return m.put(s)
}

func (m *memSessionStore) FindByID(_ context.Context, id uuid.UUID) (*model.InterviewSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(id)
}

func (m *memSessionStore) Save(_ context.Context, s *model.InterviewSession) error {
	if m.beforeSave != nil {
		m.beforeSave(s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	stored, err := m.get(s.ID)
	if err != nil {
		return err
	}
	if stored.Version != s.Version {
		return &apperror.StateConflictError{Reason: apperror.ErrVersionConflict}
	}
	next := *s
	next.Version++
	if err := m.put(&next); err != nil {
		return err
	}
	s.Version = next.Version
	return nil
}

func (m *memSessionStore) List(_ context.Context, offset, limit int) ([]model.InterviewSession, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.InterviewSession
	for id := range m.rows {
		s, _ := m.get(id)
		all = append(all, *s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID.String() < all[j].ID.String() })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], total, nil
}

// mutate changes the stored row directly, bumping its version.
func (m *memSessionStore) mutate(id uuid.UUID, fn func(s *model.InterviewSession)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.get(id)
	if err != nil {
		panic(err)
	}
	fn(s)
	s.Version++
	if err := m.put(s); err != nil {
		panic(err)
	}
}

func (m *memSessionStore) get(id uuid.UUID) (*model.InterviewSession, error) {
	raw, ok := m.rows[id]
	if !ok {
		return nil, &apperror.NotFoundError{Resource: "session", ID: id.String()}
	}
	var s model.InterviewSession
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *memSessionStore) put(s *model.InterviewSession) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.rows[s.ID] = raw
	return nil
}

type memProblemStore struct {
	mu       sync.Mutex
	problems map[uuid.UUID]model.Problem
	order    []uuid.UUID
}

func newMemProblemStore(problems ...model.Problem) *memProblemStore {
	m := &memProblemStore{problems: map[uuid.UUID]model.Problem{}}
	for _, p := range problems {
		_ = m.Create(context.Background(), &p)
	}
	return m
}

func (m *memProblemStore) Create(_ context.Context, p *model.Problem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.problems[p.ID] = *p
	m.order = append(m.order, p.ID)
	return nil
}

func (m *memProblemStore) FindByID(_ context.Context, id uuid.UUID) (*model.Problem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.problems[id]
	if !ok {
		return nil, &apperror.NotFoundError{Resource: "problem", ID: id.String()}
	}
	return &p, nil
}

func (m *memProblemStore) FindByTitle(_ context.Context, title string) (*model.Problem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		if p := m.problems[id]; p.Title == title {
			return &p, nil
		}
	}
	return nil, nil
}

// SearchSimilar orders by squared L2 distance like the pgvector operator.
func (m *memProblemStore) SearchSimilar(_ context.Context, embedding pgvector.Vector, exclude uuid.UUID, k int) ([]model.Problem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	target := embedding.Slice()
	var out []model.Problem
	for _, id := range m.order {
		p := m.problems[id]
		if id == exclude || p.Embedding == nil {
			continue
		}
		out = append(out, p)
	}
	dist := func(p model.Problem) float32 {
		var d float32
		for i, v := range p.Embedding.Slice() {
			diff := v - target[i]
			d += diff * diff
		}
		return d
	}
	sort.SliceStable(out, func(i, j int) bool { return dist(out[i]) < dist(out[j]) })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (m *memProblemStore) ListWithoutEmbedding(_ context.Context, limit int) ([]model.Problem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Problem
	for _, id := range m.order {
		if p := m.problems[id]; p.Embedding == nil && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProblemStore) UpdateEmbedding(_ context.Context, id uuid.UUID, embedding pgvector.Vector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.problems[id]
	if !ok {
		return &apperror.NotFoundError{Resource: "problem", ID: id.String()}
	}
	p.Embedding = &embedding
	m.problems[id] = p
	return nil
}

type fakeChat struct {
	mu       sync.Mutex
	requests []llm.ChatRequest
	replies  []*llm.ChatResponse
	err      error
}

func (f *fakeChat) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.replies) == 0 {
		return &llm.ChatResponse{Text: "Go on."}, nil
	}
	resp := f.replies[0]
	f.replies = f.replies[1:]
	return resp, nil
}

func (f *fakeChat) Provider() string { return "fake" }

type fakeEvaluator struct {
	EvaluateFunc func(ctx context.Context, in evaluation.Input) (*model.FinalEvaluation, error)

	mu    sync.Mutex
	calls int
	infos []llm.CallInfo
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, in evaluation.Input) (*model.FinalEvaluation, error) {
	f.mu.Lock()
	f.calls++
	f.infos = append(f.infos, llm.CallInfoFrom(ctx))
	f.mu.Unlock()
	return f.EvaluateFunc(ctx, in)
}

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 0}, nil
}

func (f *fakeEmbedder) Provider() string { return "fake" }

func sampleProblem() model.Problem {
	return model.Problem{
		Title:       "URL shortener",
		Description: "Design a service that turns long URLs into short links.",
		Requirements: model.Requirements{
			Functional:    []string{"Shorten a URL", "Redirect a short link"},
			NonFunctional: []string{"Redirect p99 under 50ms"},
		},
	}
}

func sampleEvaluation() *model.FinalEvaluation {
	return &model.FinalEvaluation{
		JudgeEvaluation: model.JudgeEvaluation{
			OverallScore: 72,
			Summary:      "Solid requirements work and a clear high-level design.",
			Technical:    model.CategoryAssessment{Score: 50, Max: 70, Percentage: 71, Pros: []string{"Good storage choice"}, Cons: []string{}},
			Communication: model.CategoryAssessment{
				Score: 22, Max: 30, Percentage: 73, Pros: []string{"Clear"}, Cons: []string{},
			},
		},
		JudgeScores: []int{70, 74},
	}
}

package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/fadilmartias/interview-coach/internal/apperror"
	"github.com/fadilmartias/interview-coach/internal/llm"
	"github.com/fadilmartias/interview-coach/internal/model"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const defaultSimilarLimit = 5

type ProblemStore interface {
	ProblemReader
	Create(ctx context.Context, p *model.Problem) error
	FindByTitle(ctx context.Context, title string) (*model.Problem, error)
	SearchSimilar(ctx context.Context, embedding pgvector.Vector, exclude uuid.UUID, k int) ([]model.Problem, error)
	ListWithoutEmbedding(ctx context.Context, limit int) ([]model.Problem, error)
	UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding pgvector.Vector) error
}

// ProblemSeed is one entry of a problem seed file.
type ProblemSeed struct {
	Title              string             `yaml:"title"`
	Description        string             `yaml:"description"`
	Requirements       model.Requirements `yaml:"requirements"`
	EvaluationCriteria []string           `yaml:"evaluation_criteria"`
}

type SeedResult struct {
	Created []string
	Skipped []string
}

type ProblemUsecase struct {
	problems ProblemStore
	embedder llm.Embedder
	logger   *zap.Logger
}

// NewProblemUsecase builds the problem catalog use case. embedder may be nil,
// in which case problems are stored without an embedding.
func NewProblemUsecase(problems ProblemStore, embedder llm.Embedder, log *zap.Logger) *ProblemUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProblemUsecase{problems: problems, embedder: embedder, logger: log.Named("problem")}
}

// Create stores the problem and indexes it. A failed embedding is logged and
// left for IndexEmbeddings.
func (uc *ProblemUsecase) Create(ctx context.Context, p *model.Problem) error {
	if strings.TrimSpace(p.Title) == "" {
		return &apperror.ValidationError{Field: "title", Message: "is required"}
	}
	if strings.TrimSpace(p.Description) == "" {
		return &apperror.ValidationError{Field: "description", Message: "is required"}
	}
	if err := uc.problems.Create(ctx, p); err != nil {
		return err
	}
	if uc.embedder == nil {
		return nil
	}
	if err := uc.index(ctx, p); err != nil {
		uc.logger.Warn("problem stored without embedding", zap.String("problem_id", p.ID.String()), zap.Error(err))
	}
	return nil
}

func (uc *ProblemUsecase) Get(ctx context.Context, id uuid.UUID) (*model.Problem, error) {
	return uc.problems.FindByID(ctx, id)
}

// Similar returns up to k problems closest to the given one.
func (uc *ProblemUsecase) Similar(ctx context.Context, id uuid.UUID, k int) ([]model.Problem, error) {
	if k <= 0 {
		k = defaultSimilarLimit
	}
	p, err := uc.problems.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Embedding == nil {
		return nil, &apperror.ValidationError{Field: "problem", Message: "problem has not been indexed"}
	}
	return uc.problems.SearchSimilar(ctx, *p.Embedding, p.ID, k)
}

// IndexEmbeddings embeds up to batch problems that have no embedding yet and
// returns how many were indexed.
func (uc *ProblemUsecase) IndexEmbeddings(ctx context.Context, batch int) (int, error) {
	if uc.embedder == nil {
		return 0, fmt.Errorf("no embedder configured")
	}
	problems, err := uc.problems.ListWithoutEmbedding(ctx, batch)
	if err != nil {
		return 0, err
	}
	indexed := 0
	for i := range problems {
		if err := uc.index(ctx, &problems[i]); err != nil {
			return indexed, err
		}
		indexed++
	}
	return indexed, nil
}

// Seed creates the problems of a YAML seed file, skipping titles that
// already exist.
func (uc *ProblemUsecase) Seed(ctx context.Context, data []byte) (*SeedResult, error) {
	var seeds []ProblemSeed
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return nil, &apperror.ValidationError{Field: "seed", Message: err.Error()}
	}

	result := &SeedResult{}
	for _, seed := range seeds {
		existing, err := uc.problems.FindByTitle(ctx, seed.Title)
		if err != nil {
			return result, err
		}
		if existing != nil {
			result.Skipped = append(result.Skipped, seed.Title)
			continue
		}
		p := &model.Problem{
			Title:              seed.Title,
			Description:        seed.Description,
			Requirements:       seed.Requirements,
			EvaluationCriteria: seed.EvaluationCriteria,
		}
		if err := uc.Create(ctx, p); err != nil {
			return result, fmt.Errorf("seed %q: %w", seed.Title, err)
		}
		result.Created = append(result.Created, seed.Title)
	}
	uc.logger.Info("problems seeded", zap.Int("created", len(result.Created)), zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

func (uc *ProblemUsecase) index(ctx context.Context, p *model.Problem) error {
	ctx = llm.WithCallInfo(ctx, llm.CallInfo{Operation: "embed"})
	values, err := uc.embedder.Embed(ctx, p.EmbeddingText())
	if err != nil {
		return err
	}
	vec := pgvector.NewVector(values)
	if err := uc.problems.UpdateEmbedding(ctx, p.ID, vec); err != nil {
		return err
	}
	p.Embedding = &vec
	return nil
}

package evaluation

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/fadilmartias/interview-coach/internal/apperror"
	"github.com/fadilmartias/interview-coach/internal/llm"
	"github.com/fadilmartias/interview-coach/internal/model"
	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
)

// Fixed category scales. Judge output using any other scale is rejected.
const (
	TechnicalMax     = 70
	CommunicationMax = 30
)

//go:embed schema/judge_evaluation.json
var judgeSchemaJSON string

var (
	judgeSchema     *gojsonschema.Schema
	judgeSchemaErr  error
	judgeSchemaOnce sync.Once

	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func compiledJudgeSchema() (*gojsonschema.Schema, error) {
	judgeSchemaOnce.Do(func() {
		judgeSchema, judgeSchemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(judgeSchemaJSON))
	})
	return judgeSchema, judgeSchemaErr
}

// ParseJudgeEvaluation validates raw model output and decodes it. The output
// must match the judge schema structurally and the model constraints
// semantically; nothing is coerced.
func ParseJudgeEvaluation(source, raw string) (*model.JudgeEvaluation, error) {
	doc := llm.CleanJSONBlock(raw)

	schema, err := compiledJudgeSchema()
	if err != nil {
		return nil, fmt.Errorf("load judge schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return nil, &apperror.SchemaValidationError{Source: source, Cause: err}
	}
	if !result.Valid() {
		fieldErrs := make([]apperror.FieldError, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			field := desc.Field()
			if field == "" {
				field = "(root)"
			}
			fieldErrs = append(fieldErrs, apperror.FieldError{Field: field, Message: desc.Description()})
		}
		return nil, &apperror.SchemaValidationError{Source: source, Errors: fieldErrs}
	}

	var je model.JudgeEvaluation
	if err := json.Unmarshal([]byte(doc), &je); err != nil {
		return nil, &apperror.SchemaValidationError{Source: source, Cause: err}
	}
	if err := checkJudgeEvaluation(&je); err != nil {
		return nil, &apperror.SchemaValidationError{Source: source, Errors: err}
	}
	return &je, nil
}

func checkJudgeEvaluation(je *model.JudgeEvaluation) []apperror.FieldError {
	var fieldErrs []apperror.FieldError
	if err := validate.Struct(je); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return []apperror.FieldError{{Field: "(root)", Message: err.Error()}}
		}
		for _, fe := range verrs {
			field := fe.Namespace()
			if i := strings.Index(field, "."); i >= 0 {
				field = field[i+1:]
			}
			fieldErrs = append(fieldErrs, apperror.FieldError{Field: field, Message: describe(fe)})
		}
	}
	if je.Technical.Max != TechnicalMax {
		fieldErrs = append(fieldErrs, apperror.FieldError{
			Field:   "technical.max",
			Message: fmt.Sprintf("must be %d", TechnicalMax),
		})
	}
	if je.Communication.Max != CommunicationMax {
		fieldErrs = append(fieldErrs, apperror.FieldError{
			Field:   "communication.max",
			Message: fmt.Sprintf("must be %d", CommunicationMax),
		})
	}
	return fieldErrs
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "ltefield":
		return fmt.Sprintf("must not exceed %s", strings.ToLower(fe.Param()))
	case "required":
		return "is required"
	default:
		return fmt.Sprintf("failed %s %s", fe.Tag(), fe.Param())
	}
}

package service

import (
	"strings"

	"github.com/fadilmartias/interview-coach/internal/llm"
	"github.com/fadilmartias/interview-coach/internal/model"
	"google.golang.org/genai"
)

// toGeminiContents maps the stored conversation to Gemini contents. Tool
// results are sent back with the user role; system turns are local markers
// and are not replayed.
func toGeminiContents(turns []model.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		var parts []*genai.Part
		for _, p := range t.Parts {
			switch {
			case p.ToolCall != nil:
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   p.ToolCall.ID,
					Name: p.ToolCall.Name,
					Args: p.ToolCall.Args,
				}})
			case p.ToolResult != nil:
				parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
					ID:       p.ToolResult.ID,
					Name:     p.ToolResult.Name,
					Response: p.ToolResult.Response,
				}})
			case strings.TrimSpace(p.Text) != "":
				parts = append(parts, genai.NewPartFromText(p.Text))
			}
		}
		if len(parts) == 0 {
			continue
		}

		switch t.Role {
		case model.RoleUser, model.RoleTool:
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
		case model.RoleModel:
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
		}
	}
	return contents
}

func toGeminiTools(decls []llm.ToolDeclaration) []*genai.Tool {
	if len(decls) == 0 {
		return nil
	}
	fns := make([]*genai.FunctionDeclaration, 0, len(decls))
	for _, d := range decls {
		fns = append(fns, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  toGeminiSchema(d.Parameters),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: fns}}
}

func toGeminiSchema(s *llm.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        genai.Type(strings.ToUpper(s.Type)),
		Description: s.Description,
		Required:    s.Required,
		Enum:        s.Enum,
		Items:       toGeminiSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGeminiSchema(&prop)
		}
	}
	return out
}

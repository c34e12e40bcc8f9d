package gemini

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeModels struct {
	resp *genai.GenerateContentResponse
	err  error

	calls   int
	model   string
	config  *genai.GenerateContentConfig
	prompts []string
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.model = model
	f.config = config
	for _, content := range contents {
		for _, part := range content.Parts {
			f.prompts = append(f.prompts, part.Text)
		}
	}
	return f.resp, f.err
}

func textResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: parts},
		}},
	}
}

func TestGeneratorUsesDeterministicJSONConfig(t *testing.T) {
	models := &fakeModels{resp: textResponse(&genai.Part{Text: `{"recipient_id": "r1"}`})}
	g := newGenerator(models, "gemini-pro", zap.NewNop())

	output, err := g.GenerateContent(context.Background(), "  pick one  ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if output != `{"recipient_id": "r1"}` {
		t.Fatalf("unexpected output: %q", output)
	}

	if models.model != "gemini-pro" {
		t.Fatalf("unexpected model: %q", models.model)
	}

	if models.config == nil || models.config.Temperature == nil || *models.config.Temperature != 0 {
		t.Fatalf("expected temperature 0, got %+v", models.config)
	}

	if models.config.ResponseMIMEType != jsonMIMEType {
		t.Fatalf("unexpected response mime type: %q", models.config.ResponseMIMEType)
	}

	if len(models.prompts) != 1 || models.prompts[0] != "pick one" {
		t.Fatalf("unexpected prompts: %+v", models.prompts)
	}
}

func TestGeneratorSkipsThoughtsAndJoinsParts(t *testing.T) {
	models := &fakeModels{resp: textResponse(
		&genai.Part{Text: "thinking...", Thought: true},
		&genai.Part{Text: "{\"a\": 1,"},
		&genai.Part{Text: "  "},
		&genai.Part{Text: "\"b\": 2}"},
	)}
	g := newGenerator(models, "", nil)

	output, err := g.GenerateContent(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if output != "{\"a\": 1,\n\"b\": 2}" {
		t.Fatalf("unexpected output: %q", output)
	}

	if g.Model() != defaultModel {
		t.Fatalf("expected default model, got %q", g.Model())
	}
}

func TestGeneratorWrapsAPIErrors(t *testing.T) {
	apiErr := genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"}
	models := &fakeModels{err: apiErr}
	g := newGenerator(models, "gemini-pro", zap.NewNop())

	_, err := g.GenerateContent(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error")
	}

	var got genai.APIError
	if !errors.As(err, &got) || got.Code != http.StatusTooManyRequests {
		t.Fatalf("expected wrapped api error, got %v", err)
	}

	if models.calls != 1 {
		t.Fatalf("expected a single call without retries, got %d", models.calls)
	}
}

func TestGeneratorRejectsEmptyResponsesAndPrompts(t *testing.T) {
	models := &fakeModels{resp: &genai.GenerateContentResponse{}}
	g := newGenerator(models, "gemini-pro", zap.NewNop())

	if _, err := g.GenerateContent(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error for empty response")
	}

	if _, err := g.GenerateContent(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty prompt")
	}

	if models.calls != 1 {
		t.Fatalf("expected empty prompt to skip the api call, got %d calls", models.calls)
	}

	var nilGenerator *Generator
	if _, err := nilGenerator.GenerateContent(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error for nil generator")
	}
}

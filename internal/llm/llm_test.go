package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	reply    string
	err      error
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(f.reply, genai.RoleModel)}},
	}, nil
}

func TestResolve(t *testing.T) {
	t.Parallel()

	models := DefaultModels()
	require.Equal(t, "gemini-2.5-flash", Resolve(models, "planner", "").Name)
	require.InDelta(t, 0.2, Resolve(models, "planner", "").Temperature, 1e-6)
	require.Equal(t, "gemini-custom", Resolve(models, "gemini-custom", "").Name)
	require.Equal(t, DefaultModel, Resolve(models, "", "").Name)
	require.Equal(t, "override", Resolve(models, "", "override").Name)
}

func TestGemini_GenerateAppliesAliasAndRequest(t *testing.T) {
	t.Parallel()

	fake := &fakeModels{reply: `{"ok": true}`}
	gen := newGemini(fake, GeminiOptions{})

	out, err := gen.Generate(context.Background(), Request{
		Model:     "planner",
		System:    "be brief",
		Prompt:    "plan this",
		MaxTokens: 100,
		JSON:      true,
	})
	require.NoError(t, err)
	require.Equal(t, `{"ok": true}`, out)

	require.Equal(t, "gemini-2.5-flash", fake.model)
	require.Len(t, fake.contents, 1)
	require.Equal(t, "plan this", fake.contents[0].Parts[0].Text)
	require.Equal(t, "application/json", fake.config.ResponseMIMEType)
	require.Equal(t, int32(100), fake.config.MaxOutputTokens)
	require.NotNil(t, fake.config.Temperature)
	require.InDelta(t, 0.2, *fake.config.Temperature, 1e-6)
	require.Equal(t, "be brief", fake.config.SystemInstruction.Parts[0].Text)
}

func TestGemini_GenerateErrors(t *testing.T) {
	t.Parallel()

	gen := newGemini(&fakeModels{err: errors.New("quota")}, GeminiOptions{})
	_, err := gen.Generate(context.Background(), Request{Prompt: "x"})
	require.ErrorContains(t, err, "quota")

	gen = newGemini(&fakeModels{reply: "  "}, GeminiOptions{DefaultModel: "gemini-x"})
	_, err = gen.Generate(context.Background(), Request{Prompt: "x"})
	require.ErrorContains(t, err, "gemini-x: empty response")
}

func TestNewGemini_RequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewGemini(context.Background(), GeminiOptions{})
	require.Error(t, err)
}

func TestGeneratorFunc(t *testing.T) {
	t.Parallel()

	var gen Generator = GeneratorFunc(func(_ context.Context, req Request) (string, error) {
		return "echo " + req.Prompt, nil
	})
	out, err := gen.Generate(context.Background(), Request{Prompt: "hi"})
	require.NoError(t, err)
	require.Equal(t, "echo hi", out)
}

func TestStripFences(t *testing.T) {
	t.Parallel()

	require.Equal(t, `{"a":1}`, StripFences("```json\n{\"a\":1}\n```"))
	require.Equal(t, `{"a":1}`, StripFences("```{\"a\":1}```"))
	require.Equal(t, `{"a":1}`, StripFences("  {\"a\":1} "))
	require.Equal(t, "# Title\n\nBody.", StripFences("```markdown\n# Title\n\nBody.\n```"))
}

func TestWithTimeout(t *testing.T) {
	t.Parallel()

	slow := GeneratorFunc(func(ctx context.Context, _ Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	_, err := WithTimeout(slow, 10*time.Millisecond).Generate(context.Background(), Request{})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.Nil(t, WithTimeout(nil, time.Second))
	fast := GeneratorFunc(func(context.Context, Request) (string, error) { return "ok", nil })
	out, err := WithTimeout(fast, 0).Generate(context.Background(), Request{})
	require.NoError(t, err)
	require.Equal(t, "ok", out)
}

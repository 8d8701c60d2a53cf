//go:build integration

package openai

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/everstacklabs/taskrelay/internal/task"
)

func TestOpenAIAPIIntegration(t *testing.T) {
	if os.Getenv(APIKeyName) == "" {
		t.Skip("OPENAI_API_KEY not set")
	}

	p := New()
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	models, err := p.Catalog().List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(models) == 0 {
		t.Fatal("expected at least some models from OpenAI API")
	}

	for i, m := range models {
		if isExcluded(m.model) {
			t.Errorf("excluded model %q listed", m.model)
		}
		if i > 0 && models[i-1].model > m.model {
			t.Errorf("models not sorted: %q before %q", models[i-1].model, m.model)
		}
		if m.ContextLength() == 0 {
			t.Errorf("model %q has zero context length", m.model)
		}
	}

	tk := &task.Task{
		Kind:     task.KindMessageGeneration,
		Messages: []task.Message{{Role: task.RoleUser, Parts: []task.Part{task.Text("Repeat the word 'hello' once.")}}},
	}
	out, err := p.Model("gpt-4o-mini-2024-07-18").PerformTask(ctx, tk)
	if err != nil {
		t.Fatalf("PerformTask failed: %v", err)
	}
	if !strings.Contains(strings.ToLower(out.Content), "hello") {
		t.Errorf("unexpected output %q", out.Content)
	}
}

func TestOpenAIAttachmentIntegration(t *testing.T) {
	if os.Getenv(APIKeyName) == "" {
		t.Skip("OPENAI_API_KEY not set")
	}

	pdf := "JVBERi0xLjQKMSAwIG9iago8PC9UeXBlL0NhdGFsb2cvUGFnZXMgMiAwIFI+PgplbmRvYmoKdHJhaWxlcgo8PC9Sb290IDEgMCBSPj4KJSVFT0YK"
	tk := &task.Task{
		Kind:     task.KindMessageGeneration,
		Messages: []task.Message{{Role: task.RoleUser, Parts: []task.Part{task.Text("Describe the attached file in one sentence.")}}},
		Attachments: []task.Attachment{{
			Alias: "doc",
			File:  task.File{Name: "doc.pdf", MediaType: "application/pdf", Content: &pdf, TransferEncoding: "base64"},
		}},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	out, err := New().Model("gpt-5-mini").PerformTask(ctx, tk)
	if err != nil {
		t.Fatalf("PerformTask failed: %v", err)
	}
	if out.IsEmpty() {
		t.Error("expected output text")
	}
}

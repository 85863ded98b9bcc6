package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"

	"github.com/ryosukesatoh/daily-brief/internal/config"
)

// searchBackend answers every search form with two results named after the query.
func searchBackend(t *testing.T, queries *[]string, mu *sync.Mutex) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("Failed to parse form: %v", err)
		}
		q := r.PostForm.Get("q")
		mu.Lock()
		*queries = append(*queries, q)
		mu.Unlock()

		if strings.Contains(q, "Sports") {
			fmt.Fprint(w, `<html><body><div class="results"></div></body></html>`)
			return
		}
		fmt.Fprintf(w, `<html><body><div class="results">
<div class="result"><h2 class="result__title"><a class="result__a" href="https://news.example.com/1">%s one</a></h2></div>
<div class="result"><h2 class="result__title"><a class="result__a" href="https://news.example.com/2">%s two</a></h2></div>
</div></body></html>`, q, q)
	}))
}

// completionBackend echoes the prompt's first headline back as the summary.
func completionBackend(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-integration" {
			t.Errorf("Expected bearer credential, got %q", got)
		}
		raw, _ := io.ReadAll(r.Body)
		var body struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.Unmarshal(raw, &body)

		summary := "no prompt"
		if len(body.Messages) == 1 {
			for _, line := range strings.Split(body.Messages[0].Content, "\n") {
				if strings.HasSuffix(line, "https://news.example.com/1") {
					summary = "Summary: " + strings.TrimSuffix(line, " - https://news.example.com/1")
					break
				}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-int",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": summary},
			}},
		})
	}))
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create temp config: %v", err)
	}
	return path
}

func TestRunCommandIntegration(t *testing.T) {
	var queries []string
	var mu sync.Mutex
	search := searchBackend(t, &queries, &mu)
	defer search.Close()
	llm := completionBackend(t)
	defer llm.Close()

	configPath := writeTempConfig(t, fmt.Sprintf(`
timezone: UTC
search:
  backend: duckduckgo
  base_url: %s
summarizer:
  provider: openai
  base_url: %s/
log:
  level: error
`, search.URL, llm.URL))

	outDir := t.TempDir()
	var stdout, stderr bytes.Buffer

	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{
		"run",
		"--config", configPath,
		"--topics", "Technology,Sports,Science",
		"--articles", "3",
		"--date", "2024-02-29",
		"--api-key", "sk-integration",
		"--out", outDir,
	})

	if err := root.Execute(); err != nil {
		t.Fatalf("run failed: %v\nstderr: %s", err, stderr.String())
	}

	output := stdout.String()
	for _, want := range []string{
		"Daily News Summary - February 29, 2024",
		"Summary: latest Technology news one",
		"Summary: latest Science news one",
		"! No news found for Sports",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, output)
		}
	}

	if len(queries) != 3 {
		t.Errorf("Expected one search per topic, got %v", queries)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "news_summary_2024-02-29.pdf"))
	if err != nil {
		t.Fatalf("Expected PDF to be written: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Error("Expected PDF header")
	}
}

func TestRunCommandInterrupted(t *testing.T) {
	search := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// run has installed its signal handler before the first search goes out.
		syscall.Kill(os.Getpid(), syscall.SIGINT)
		<-r.Context().Done()
	}))
	defer search.Close()

	configPath := writeTempConfig(t, fmt.Sprintf(`
search:
  base_url: %s
log:
  level: error
`, search.URL))

	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{"run", "--config", configPath, "--topics", "World", "--api-key", "sk-test"})

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "context canceled") {
		t.Errorf("Expected interrupted run to fail with a context error, got %v", err)
	}
	if strings.Contains(stdout.String(), "No news found") {
		t.Errorf("Expected no report after interrupt, got:\n%s", stdout.String())
	}
}

func TestRunCommandMissingCredential(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	configPath := writeTempConfig(t, "log:\n  level: error\n")

	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{"run", "--config", configPath})

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "missing API key") {
		t.Errorf("Expected missing credential error, got %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	var stdout bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetArgs([]string{"version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "daily-brief dev") {
		t.Errorf("Unexpected version output %q", stdout.String())
	}
}

func TestSchedulePublishers(t *testing.T) {
	configPath := writeTempConfig(t, `
schedule:
  cron: "0 7 * * *"
  api_key: sk-scheduled
  topics: [World]
  output_dir: /tmp/briefs
  discord:
    webhook_url: https://discord.example.com/webhook
`)
	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	a, err := newApp(cfg)
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}

	pubs := schedulePublishers(a, nil)
	if len(pubs) != 3 {
		t.Errorf("Expected latest, file and discord publishers, got %d", len(pubs))
	}

	req := scheduledRequest(cfg)
	if req.APIKey != "sk-scheduled" || req.MaxResults != 7 || len(req.Topics) != 1 {
		t.Errorf("Unexpected scheduled request %+v", req)
	}
}

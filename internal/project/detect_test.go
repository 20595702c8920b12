package project

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDetectGoProject(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "my-service")
	writeFile(t, dir, "go.mod", "module example.com/my-service\n")
	writeFile(t, dir, "Makefile", "all:\n")

	p := Detect(dir)

	if p.Name != "my-service" {
		t.Errorf("Name = %q, want my-service", p.Name)
	}
	if p.Language != "Go" {
		t.Errorf("Language = %q, want Go", p.Language)
	}
	found := false
	for _, tool := range p.Tools {
		if tool == "make" {
			found = true
		}
	}
	if !found {
		t.Errorf("Tools = %v, want make", p.Tools)
	}
	// Two marker hits on top of the base confidence.
	if p.Confidence != 0.6 {
		t.Errorf("Confidence = %v, want 0.6", p.Confidence)
	}
}

func TestDetectFirstLanguageWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "go.mod", "module x\n")
	writeFile(t, dir, "package.json", "{}\n")

	p := Detect(dir)
	if p.Language != "Go" {
		t.Errorf("Language = %q, want Go (marker order)", p.Language)
	}
}

func TestDetectEmptyDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bare")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}

	p := Detect(dir)
	if p.Name != "bare" {
		t.Errorf("Name = %q, want bare", p.Name)
	}
	if p.Language != "" || len(p.Tools) != 0 {
		t.Errorf("empty dir produced %+v", p)
	}
	if p.Confidence != 0.3 {
		t.Errorf("Confidence = %v, want 0.3", p.Confidence)
	}
}

func TestDetectMissingDir(t *testing.T) {
	p := Detect("/definitely/not/a/real/path/widget")
	if p.Name != "widget" {
		t.Errorf("Name = %q, want widget", p.Name)
	}
	if p.Confidence != 0.3 {
		t.Errorf("Confidence = %v, want 0.3", p.Confidence)
	}
}

func TestDetectGit(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".git/HEAD", "ref: refs/heads/main\n")
	writeFile(t, dir, ".git/refs/heads/main", "abc123\n")

	p := Detect(dir)
	if p.Git == nil {
		t.Fatal("Git = nil, want detected")
	}
	if p.Git.Branch != "main" {
		t.Errorf("Branch = %q, want main", p.Git.Branch)
	}
	if p.Git.LastCommitAt.IsZero() {
		t.Error("LastCommitAt is zero")
	}
	foundGit := false
	for _, tool := range p.Tools {
		if tool == "git" {
			foundGit = true
		}
	}
	if !foundGit {
		t.Errorf("Tools = %v, want git", p.Tools)
	}
}

func TestContextTerms(t *testing.T) {
	p := Profile{
		Name:       "My-Service",
		Language:   "Go",
		Frameworks: []string{"Chi"},
		Tools:      []string{"docker", ""},
	}
	terms := p.ContextTerms()

	want := []string{"my-service", "go", "chi", "docker"}
	if len(terms) != len(want) {
		t.Fatalf("terms = %v, want %v", terms, want)
	}
	for i := range want {
		if terms[i] != want[i] {
			t.Errorf("terms[%d] = %q, want %q", i, terms[i], want[i])
		}
	}
}

package project

import (
	"os"
	"path/filepath"
	"strings"
)

// marker maps a filename in the project root to the language and tooling it
// implies. Treated as data so new ecosystems are one-line additions.
type marker struct {
	file       string
	language   string
	frameworks []string
	tools      []string
}

var markers = []marker{
	{file: "go.mod", language: "Go"},
	{file: "package.json", language: "JavaScript", tools: []string{"npm"}},
	{file: "tsconfig.json", language: "TypeScript"},
	{file: "requirements.txt", language: "Python", tools: []string{"pip"}},
	{file: "pyproject.toml", language: "Python"},
	{file: "Cargo.toml", language: "Rust", tools: []string{"cargo"}},
	{file: "Gemfile", language: "Ruby"},
	{file: "pom.xml", language: "Java"},
	{file: "Dockerfile", tools: []string{"docker"}},
	{file: "docker-compose.yml", tools: []string{"docker"}},
	{file: "Makefile", tools: []string{"make"}},
}

// Detect builds a Profile from the contents of dir. It is a pure read of the
// filesystem: no state, no side effects, and it never fails. An unreadable
// directory just yields a low-confidence profile named after the basename.
func Detect(dir string) Profile {
	p := Profile{
		Name:       filepath.Base(filepath.Clean(dir)),
		Confidence: 0.3,
	}

	hits := 0
	seenTool := make(map[string]bool)
	for _, m := range markers {
		if _, err := os.Stat(filepath.Join(dir, m.file)); err != nil {
			continue
		}
		hits++
		if p.Language == "" && m.language != "" {
			p.Language = m.language
		}
		p.Frameworks = append(p.Frameworks, m.frameworks...)
		for _, t := range m.tools {
			if !seenTool[t] {
				seenTool[t] = true
				p.Tools = append(p.Tools, t)
			}
		}
	}

	if git := detectGit(dir); git != nil {
		p.Git = git
		if !seenTool["git"] {
			p.Tools = append(p.Tools, "git")
		}
		hits++
	}

	p.Confidence += 0.15 * float64(hits)
	if p.Confidence > 1.0 {
		p.Confidence = 1.0
	}
	return p
}

// detectGit reads branch and last-commit time without shelling out. Branch
// comes from .git/HEAD; commit recency from the mtime of the ref file, which
// is close enough for scoring adjustments.
func detectGit(dir string) *GitInfo {
	gitDir := filepath.Join(dir, ".git")
	head, err := os.ReadFile(filepath.Join(gitDir, "HEAD"))
	if err != nil {
		return nil
	}

	info := &GitInfo{}
	ref := strings.TrimSpace(string(head))
	if rest, ok := strings.CutPrefix(ref, "ref: "); ok {
		info.Branch = filepath.Base(rest)
		if st, err := os.Stat(filepath.Join(gitDir, filepath.FromSlash(rest))); err == nil {
			info.LastCommitAt = st.ModTime()
		}
	}
	if info.LastCommitAt.IsZero() {
		if st, err := os.Stat(gitDir); err == nil {
			info.LastCommitAt = st.ModTime()
		}
	}
	return info
}

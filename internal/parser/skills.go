package parser

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/altoslab447/openclaw-dashboard/internal/domain"
)

var skillDescription = regexp.MustCompile(`(?m)description:\s*["']?(.+?)["']?\s*$`)

type skillFrontMatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Version     string `yaml:"version"`
}

// Skills lists entries of the workspace skills directory. Directories are
// inspected for _meta.json, SKILL.md and package.json; plain files are link
// stubs whose content names the target.
func (r *Reader) Skills() []domain.Skill {
	dir := r.workspacePath("skills")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return []domain.Skill{}
	}
	skills := make([]domain.Skill, 0, len(entries))
	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		info, err := os.Stat(full)
		if err != nil {
			continue
		}
		skill := domain.Skill{Name: entry.Name(), Type: "symlink", Path: full}
		if info.IsDir() {
			skill.Type = "directory"
			readSkillDir(full, &skill)
		} else if content, ok := readFile(full); ok {
			skill.Target = strings.TrimSpace(content)
		}
		skills = append(skills, skill)
	}
	return skills
}

func readSkillDir(dir string, skill *domain.Skill) {
	if meta, ok := readFile(filepath.Join(dir, "_meta.json")); ok {
		normalized := jsoncNormalize(meta)
		if json.Valid(normalized) {
			skill.Meta = json.RawMessage(normalized)
		}
	}
	if doc, ok := readFile(filepath.Join(dir, "SKILL.md")); ok {
		skill.HasSkillMD = true
		if fm, ok := frontMatter(doc); ok && fm.Description != "" {
			skill.Description = fm.Description
			if skill.Version == "" {
				skill.Version = fm.Version
			}
		} else if v, ok := firstGroup(skillDescription, doc); ok {
			skill.Description = v
		}
	}
	if pkg, ok := readFile(filepath.Join(dir, "package.json")); ok {
		var manifest struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		}
		if err := decodeJSON([]byte(pkg), &manifest); err == nil {
			if manifest.Version != "" {
				skill.Version = manifest.Version
			}
			skill.PackageName = manifest.Name
		}
	}
}

// frontMatter decodes a leading "---" YAML block.
func frontMatter(doc string) (skillFrontMatter, bool) {
	var fm skillFrontMatter
	doc = strings.TrimPrefix(doc, "\ufeff")
	if !strings.HasPrefix(doc, "---") {
		return fm, false
	}
	rest := strings.TrimLeft(strings.TrimPrefix(doc, "---"), "\r")
	if !strings.HasPrefix(rest, "\n") {
		return fm, false
	}
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return fm, false
	}
	if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil {
		return fm, false
	}
	return fm, true
}

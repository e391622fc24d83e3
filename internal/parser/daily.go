package parser

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/altoslab447/openclaw-dashboard/internal/domain"
)

var datedNote = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})`)

// DailyLogs returns the newest maxDays dated notes from the workspace
// memory directory and its archive.
func (r *Reader) DailyLogs(maxDays int) []domain.DailyLog {
	memoryDir := r.workspacePath("memory")
	logs := scanDailyLogs(memoryDir, false)
	logs = append(logs, scanDailyLogs(filepath.Join(memoryDir, "archive"), true)...)
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].Date > logs[j].Date
	})
	if maxDays >= 0 && len(logs) > maxDays {
		logs = logs[:maxDays]
	}
	return logs
}

func scanDailyLogs(dir string, archive bool) []domain.DailyLog {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var logs []domain.DailyLog
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".md") {
			continue
		}
		date, ok := firstGroup(datedNote, name)
		if !ok {
			continue
		}
		path := filepath.Join(dir, name)
		raw, ok := readFile(path)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		title, ok := firstGroup(docTitle, raw)
		if ok {
			title = strings.TrimSpace(title)
		} else {
			title = strings.Replace(name, ".md", "", 1)
		}
		logs = append(logs, domain.DailyLog{
			Date:       date,
			Filename:   name,
			Title:      title,
			Sections:   splitSections(raw, "## "),
			ModifiedAt: info.ModTime().UTC().Format(isoMillis),
			IsArchive:  archive,
		})
	}
	return logs
}

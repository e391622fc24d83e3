package parser

import (
	"regexp"
	"strings"

	"github.com/altoslab447/openclaw-dashboard/internal/domain"
)

var (
	kanbanActive    = regexp.MustCompile(`(?i)進行中|active`)
	kanbanBacklog   = regexp.MustCompile(`(?i)規劃中|backlog`)
	kanbanCompleted = regexp.MustCompile(`(?i)已完成|completed|done`)
	kanbanItem      = regexp.MustCompile(`^- (\[.\] )?`)
	kanbanChecked   = regexp.MustCompile(`(?i)^\[x\]`)
	lastUpdated     = regexp.MustCompile(`最後更新[：:]\s*(.+)`)

	numberedTask = regexp.MustCompile(`\d+\.\s+(.+)`)

	identityName  = regexp.MustCompile(`Name:\*?\*?\s*(.+)`)
	identityRole  = regexp.MustCompile(`Role:\*?\*?\s*(.+)`)
	identityVibe  = regexp.MustCompile(`Vibe:\*?\*?\s*(.+)`)
	identitySkill = regexp.MustCompile(`Core Skill:\*?\*?\s*(.+)`)
	identityEmoji = regexp.MustCompile(`Emoji:\*?\*?\s*(.+)`)
	coreTruth     = regexp.MustCompile(`\*\*(.+?)\*\*\.?\s*(.+)`)

	docTitle = regexp.MustCompile(`(?m)^# (.+)`)
	planGoal = regexp.MustCompile(`\*\*終極目標\*\*[：:]\s*(.+)`)
)

// Kanban parses KANBAN.md into active, backlog and completed columns.
func (r *Reader) Kanban() domain.Kanban {
	board := domain.Kanban{
		Active:    []domain.KanbanItem{},
		Backlog:   []domain.KanbanItem{},
		Completed: []domain.KanbanItem{},
	}
	raw, ok := readFile(r.workspacePath("KANBAN.md"))
	if !ok || raw == "" {
		return board
	}
	board.Raw = raw

	var column *[]domain.KanbanItem
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		heading := strings.HasPrefix(trimmed, "##")
		switch {
		case heading && kanbanActive.MatchString(trimmed):
			column = &board.Active
		case heading && kanbanBacklog.MatchString(trimmed):
			column = &board.Backlog
		case heading && kanbanCompleted.MatchString(trimmed):
			column = &board.Completed
		case column != nil && strings.HasPrefix(trimmed, "- "):
			text := strings.TrimSpace(kanbanItem.ReplaceAllString(trimmed, ""))
			if text == "" {
				continue
			}
			done := kanbanChecked.MatchString(strings.Replace(trimmed, "- ", "", 1))
			*column = append(*column, domain.KanbanItem{Text: text, Done: done, Raw: trimmed})
		}
	}
	if v, ok := firstGroup(lastUpdated, raw); ok {
		board.LastUpdated = strPtr(strings.TrimSpace(v))
	}
	return board
}

// SessionState parses the bold "**Field**: value" lines of SESSION-STATE.md.
func (r *Reader) SessionState() domain.SessionState {
	raw, ok := readFile(r.workspacePath("SESSION-STATE.md"))
	if !ok || raw == "" {
		return domain.SessionState{}
	}
	state := domain.SessionState{
		Raw:           raw,
		AgentIdentity: boldField(raw, "Agent Identity"),
		WalletAddress: boldField(raw, "Wallet Address"),
		ACPStatus:     boldField(raw, "ACP Service Status"),
		ServiceItem:   boldField(raw, "服務項目"),
		Runtime:       boldField(raw, "Runtime"),
		Role:          boldField(raw, "角色"),
	}
	for _, m := range numberedTask.FindAllStringSubmatch(raw, -1) {
		state.CoreTasks = append(state.CoreTasks, strings.TrimSpace(m[1]))
	}
	return state
}

func boldField(raw, name string) *string {
	re := regexp.MustCompile(`(?i)\*\*` + regexp.QuoteMeta(name) + `\*\*[：:]\s*(.+)`)
	v, ok := firstGroup(re, raw)
	if !ok {
		return nil
	}
	v = strings.TrimSpace(strings.NewReplacer("`", "", "**", "").Replace(v))
	if v == "" {
		return nil
	}
	return &v
}

// Identity merges IDENTITY.md fields with the core truths of SOUL.md.
func (r *Reader) Identity() domain.Identity {
	var id domain.Identity
	if identity, ok := readFile(r.workspacePath("IDENTITY.md")); ok {
		id.Name = identityField(identityName, identity)
		id.Role = identityField(identityRole, identity)
		id.Vibe = identityField(identityVibe, identity)
		id.CoreSkill = identityField(identitySkill, identity)
		id.Emoji = identityField(identityEmoji, identity)
		if identity != "" {
			id.IdentityRaw = strPtr(identity)
		}
	}
	if soul, ok := readFile(r.workspacePath("SOUL.md")); ok && soul != "" {
		id.CoreTruths = []domain.CoreTruth{}
		for _, m := range coreTruth.FindAllStringSubmatch(soul, -1) {
			id.CoreTruths = append(id.CoreTruths, domain.CoreTruth{
				Key:   strings.TrimSpace(m[1]),
				Value: strings.TrimSpace(m[2]),
			})
		}
		id.SoulRaw = strPtr(soul)
	}
	return id
}

func identityField(re *regexp.Regexp, text string) *string {
	v, ok := firstGroup(re, text)
	if !ok {
		return nil
	}
	v = strings.TrimSpace(strings.ReplaceAll(v, "**", ""))
	return &v
}

// Agent combines identity and session state.
func (r *Reader) Agent() domain.Agent {
	return domain.Agent{Identity: r.Identity(), Session: r.SessionState()}
}

// Memory parses MEMORY.md sections and the SOVEREIGN_PLAN.md outline.
func (r *Reader) Memory() domain.Memory {
	mem := domain.Memory{Entries: []domain.Section{}}
	if raw, ok := readFile(r.workspacePath("MEMORY.md")); ok && raw != "" {
		mem.Entries = splitSections(raw, "## ")
		mem.MemoryRaw = strPtr(raw)
	}
	if raw, ok := readFile(r.workspacePath("SOVEREIGN_PLAN.md")); ok && raw != "" {
		title, _ := firstGroup(docTitle, raw)
		goal, _ := firstGroup(planGoal, raw)
		mem.Plan = &domain.Plan{
			Title:    strings.TrimSpace(title),
			Goal:     strings.TrimSpace(goal),
			Sections: splitSections(raw, "### "),
		}
		mem.PlanRaw = strPtr(raw)
	}
	return mem
}

// Stability parses STABILITY.md sections.
func (r *Reader) Stability() domain.Stability {
	raw, ok := readFile(r.workspacePath("STABILITY.md"))
	if !ok || raw == "" {
		return domain.Stability{Sections: []domain.Section{}}
	}
	return domain.Stability{Sections: splitSections(raw, "## "), Raw: raw}
}

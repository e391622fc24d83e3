package domain

import "encoding/json"

// Section is a markdown "## title" block with its bullet items.
type Section struct {
	Title string   `json:"title"`
	Items []string `json:"items"`
}

// KanbanItem is one bullet on the kanban board.
type KanbanItem struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
	Raw  string `json:"raw"`
}

// Kanban groups board items by column.
type Kanban struct {
	Active      []KanbanItem `json:"active"`
	Backlog     []KanbanItem `json:"backlog"`
	Completed   []KanbanItem `json:"completed"`
	LastUpdated *string      `json:"lastUpdated"`
	Raw         string       `json:"raw"`
}

// SessionState holds the bold fields scraped from SESSION-STATE.md.
type SessionState struct {
	Raw           string   `json:"raw,omitempty"`
	AgentIdentity *string  `json:"agentIdentity,omitempty"`
	WalletAddress *string  `json:"walletAddress,omitempty"`
	ACPStatus     *string  `json:"acpStatus,omitempty"`
	ServiceItem   *string  `json:"serviceItem,omitempty"`
	Runtime       *string  `json:"runtime,omitempty"`
	Role          *string  `json:"role,omitempty"`
	CoreTasks     []string `json:"coreTasks,omitempty"`
}

// CoreTruth is a "**key** value" pair from SOUL.md.
type CoreTruth struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Identity merges IDENTITY.md and SOUL.md.
type Identity struct {
	Name        *string     `json:"name,omitempty"`
	Role        *string     `json:"role,omitempty"`
	Vibe        *string     `json:"vibe,omitempty"`
	CoreSkill   *string     `json:"coreSkill,omitempty"`
	Emoji       *string     `json:"emoji,omitempty"`
	CoreTruths  []CoreTruth `json:"coreTruths,omitempty"`
	SoulRaw     *string     `json:"soulRaw,omitempty"`
	IdentityRaw *string     `json:"identityRaw"`
}

// Agent is the combined identity and session view.
type Agent struct {
	Identity Identity     `json:"identity"`
	Session  SessionState `json:"session"`
}

// Plan is the parsed SOVEREIGN_PLAN.md.
type Plan struct {
	Title    string    `json:"title"`
	Goal     string    `json:"goal"`
	Sections []Section `json:"sections"`
}

// Memory is the parsed long-term memory plus the plan document.
type Memory struct {
	Entries   []Section `json:"entries"`
	Plan      *Plan     `json:"plan"`
	MemoryRaw *string   `json:"memoryRaw,omitempty"`
	PlanRaw   *string   `json:"planRaw,omitempty"`
}

// Skill describes one installed skill directory or link file.
type Skill struct {
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Path        string          `json:"path"`
	Meta        json.RawMessage `json:"meta,omitempty"`
	Description string          `json:"description,omitempty"`
	HasSkillMD  bool            `json:"hasSkillMd,omitempty"`
	Version     string          `json:"version,omitempty"`
	PackageName string          `json:"packageName,omitempty"`
	Target      string          `json:"target,omitempty"`
}

// CronState is the last-run bookkeeping of a cron job.
type CronState struct {
	LastStatus        string  `json:"lastStatus"`
	LastRunAt         *string `json:"lastRunAt"`
	NextRunAt         *string `json:"nextRunAt"`
	LastDuration      *int64  `json:"lastDuration,omitempty"`
	LastError         *string `json:"lastError"`
	ConsecutiveErrors int     `json:"consecutiveErrors"`
}

// CronJob is one scheduled job from cron/jobs.json.
type CronJob struct {
	ID            string          `json:"id,omitempty"`
	Name          string          `json:"name,omitempty"`
	Enabled       *bool           `json:"enabled,omitempty"`
	Schedule      json.RawMessage `json:"schedule,omitempty"`
	SessionTarget string          `json:"sessionTarget,omitempty"`
	Payload       string          `json:"payload"`
	State         CronState       `json:"state"`
}

// ModelInfo is one model offered by a configured provider.
type ModelInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name,omitempty"`
	Reasoning     *bool  `json:"reasoning,omitempty"`
	ContextWindow *int64 `json:"contextWindow,omitempty"`
	MaxTokens     *int64 `json:"maxTokens,omitempty"`
}

// Gateway is the gateway block of openclaw.json.
type Gateway struct {
	Port      *int   `json:"port,omitempty"`
	Mode      string `json:"mode,omitempty"`
	Bind      string `json:"bind,omitempty"`
	Tailscale string `json:"tailscale,omitempty"`
}

// Channel is the enabled/stream mode of one messaging channel.
type Channel struct {
	Enabled    *bool  `json:"enabled,omitempty"`
	StreamMode string `json:"streamMode,omitempty"`
}

// Plugin is the enabled flag of one plugin.
type Plugin struct {
	Enabled *bool `json:"enabled,omitempty"`
}

// ConfigSummary is the dashboard-relevant subset of openclaw.json.
// An absent or malformed file yields the zero value, which encodes as {}.
type ConfigSummary struct {
	Version               string             `json:"version,omitempty"`
	LastTouched           string             `json:"lastTouched,omitempty"`
	PrimaryModel          string             `json:"primaryModel,omitempty"`
	ActiveModels          []string           `json:"activeModels,omitempty"`
	Models                []ModelInfo        `json:"models,omitempty"`
	Gateway               *Gateway           `json:"gateway,omitempty"`
	Channels              map[string]Channel `json:"channels,omitempty"`
	Plugins               map[string]Plugin  `json:"plugins,omitempty"`
	MaxConcurrent         *int               `json:"maxConcurrent,omitempty"`
	SubagentModel         string             `json:"subagentModel,omitempty"`
	SubagentMaxConcurrent *int               `json:"subagentMaxConcurrent,omitempty"`
}

// Stability is the parsed STABILITY.md.
type Stability struct {
	Sections []Section `json:"sections"`
	Raw      string    `json:"raw"`
}

// DailyLog is one dated memory note.
type DailyLog struct {
	Date       string    `json:"date"`
	Filename   string    `json:"filename"`
	Title      string    `json:"title"`
	Sections   []Section `json:"sections"`
	ModifiedAt string    `json:"modifiedAt"`
	IsArchive  bool      `json:"isArchive"`
}

// Session is one entry of the agent's session index.
type Session struct {
	Key           string `json:"key"`
	SessionID     string `json:"sessionId"`
	Type          string `json:"type"`
	Icon          string `json:"icon"`
	Channel       string `json:"channel"`
	Model         string `json:"model"`
	ModelProvider string `json:"modelProvider"`
	TotalTokens   int64  `json:"totalTokens"`
	InputTokens   int64  `json:"inputTokens"`
	OutputTokens  int64  `json:"outputTokens"`
	ChatType      string `json:"chatType"`
	Origin        string `json:"origin"`
	UpdatedAt     string `json:"updatedAt"`
	UpdatedAtMS   int64  `json:"updatedAtMs"`
}

// SessionMessage is a recent user message within a session transcript.
type SessionMessage struct {
	Text      string `json:"text"`
	Timestamp any    `json:"timestamp"`
}

// SessionSummary lists the latest user messages of one session.
type SessionSummary struct {
	Key       string           `json:"key"`
	Origin    string           `json:"origin"`
	UpdatedAt string           `json:"updatedAt"`
	Messages  []SessionMessage `json:"messages"`
}

// TokenDay aggregates token usage for one UTC day.
type TokenDay struct {
	Date         string `json:"date"`
	TotalTokens  int64  `json:"totalTokens"`
	InputTokens  int64  `json:"inputTokens"`
	OutputTokens int64  `json:"outputTokens"`
	Sessions     int    `json:"sessions"`
}

// Snapshot is the aggregate of every parsed state file at one moment.
type Snapshot struct {
	Agent     Agent         `json:"agent"`
	Kanban    Kanban        `json:"kanban"`
	Skills    []Skill       `json:"skills"`
	Cron      []CronJob     `json:"cron"`
	Memory    Memory        `json:"memory"`
	Config    ConfigSummary `json:"config"`
	Stability Stability     `json:"stability"`
	DailyLogs []DailyLog    `json:"dailyLogs"`
	Timestamp string        `json:"timestamp"`
}

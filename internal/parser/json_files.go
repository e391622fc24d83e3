package parser

import (
	"encoding/json"
	"sort"

	"github.com/tidwall/jsonc"

	"github.com/altoslab447/openclaw-dashboard/internal/domain"
)

const cronPayloadLimit = 200

func jsoncNormalize(s string) []byte {
	return jsonc.ToJSON([]byte(s))
}

type cronFile struct {
	Jobs []struct {
		ID            string          `json:"id"`
		Name          string          `json:"name"`
		Enabled       *bool           `json:"enabled"`
		Schedule      json.RawMessage `json:"schedule"`
		SessionTarget string          `json:"sessionTarget"`
		Payload       struct {
			Message string `json:"message"`
		} `json:"payload"`
		State struct {
			LastStatus        string   `json:"lastStatus"`
			LastRunAtMS       float64  `json:"lastRunAtMs"`
			NextRunAtMS       float64  `json:"nextRunAtMs"`
			LastDurationMS    *float64 `json:"lastDurationMs"`
			LastError         string   `json:"lastError"`
			ConsecutiveErrors int      `json:"consecutiveErrors"`
		} `json:"state"`
	} `json:"jobs"`
}

// Cron lists the scheduled jobs of cron/jobs.json.
func (r *Reader) Cron() []domain.CronJob {
	raw, ok := readFile(r.homePath("cron", "jobs.json"))
	if !ok {
		return []domain.CronJob{}
	}
	var file cronFile
	if err := decodeJSON([]byte(raw), &file); err != nil {
		return []domain.CronJob{}
	}
	jobs := make([]domain.CronJob, 0, len(file.Jobs))
	for _, j := range file.Jobs {
		payload, cut := truncateRunes(j.Payload.Message, cronPayloadLimit)
		if cut {
			payload += "..."
		}
		job := domain.CronJob{
			ID:            j.ID,
			Name:          j.Name,
			Enabled:       j.Enabled,
			Schedule:      j.Schedule,
			SessionTarget: j.SessionTarget,
			Payload:       payload,
			State: domain.CronState{
				LastStatus:        j.State.LastStatus,
				ConsecutiveErrors: j.State.ConsecutiveErrors,
			},
		}
		if job.State.LastStatus == "" {
			job.State.LastStatus = "unknown"
		}
		if j.State.LastRunAtMS > 0 {
			job.State.LastRunAt = strPtr(formatMillis(int64(j.State.LastRunAtMS)))
		}
		if j.State.NextRunAtMS > 0 {
			job.State.NextRunAt = strPtr(formatMillis(int64(j.State.NextRunAtMS)))
		}
		if j.State.LastDurationMS != nil {
			d := int64(*j.State.LastDurationMS)
			job.State.LastDuration = &d
		}
		if j.State.LastError != "" {
			job.State.LastError = strPtr(j.State.LastError)
		}
		jobs = append(jobs, job)
	}
	return jobs
}

// openclawFile is the subset of openclaw.json the dashboard reads.
type openclawFile struct {
	Meta struct {
		LastTouchedVersion string `json:"lastTouchedVersion"`
		LastTouchedAt      string `json:"lastTouchedAt"`
	} `json:"meta"`
	Models struct {
		Providers map[string]struct {
			Models []struct {
				ID            string `json:"id"`
				Name          string `json:"name"`
				Reasoning     *bool  `json:"reasoning"`
				ContextWindow *int64 `json:"contextWindow"`
				MaxTokens     *int64 `json:"maxTokens"`
			} `json:"models"`
		} `json:"providers"`
	} `json:"models"`
	Agents struct {
		Defaults struct {
			Models map[string]json.RawMessage `json:"models"`
			Model  struct {
				Primary string `json:"primary"`
			} `json:"model"`
			MaxConcurrent *int `json:"maxConcurrent"`
			Subagents     struct {
				Model         string `json:"model"`
				MaxConcurrent *int   `json:"maxConcurrent"`
			} `json:"subagents"`
		} `json:"defaults"`
	} `json:"agents"`
	Gateway *struct {
		Port      *int   `json:"port"`
		Mode      string `json:"mode"`
		Bind      string `json:"bind"`
		Tailscale struct {
			Mode string `json:"mode"`
		} `json:"tailscale"`
	} `json:"gateway"`
	Channels map[string]struct {
		Enabled    *bool  `json:"enabled"`
		StreamMode string `json:"streamMode"`
	} `json:"channels"`
	Plugins struct {
		Entries map[string]struct {
			Enabled *bool `json:"enabled"`
		} `json:"entries"`
	} `json:"plugins"`
}

// Config summarises openclaw.json.
func (r *Reader) Config() domain.ConfigSummary {
	raw, ok := readFile(r.homePath("openclaw.json"))
	if !ok {
		return domain.ConfigSummary{}
	}
	var cfg openclawFile
	if err := decodeJSON([]byte(raw), &cfg); err != nil {
		return domain.ConfigSummary{}
	}

	summary := domain.ConfigSummary{
		Version:               cfg.Meta.LastTouchedVersion,
		LastTouched:           cfg.Meta.LastTouchedAt,
		PrimaryModel:          cfg.Agents.Defaults.Model.Primary,
		ActiveModels:          sortedKeys(cfg.Agents.Defaults.Models),
		Models:                []domain.ModelInfo{},
		Gateway:               &domain.Gateway{},
		Channels:              map[string]domain.Channel{},
		Plugins:               map[string]domain.Plugin{},
		MaxConcurrent:         cfg.Agents.Defaults.MaxConcurrent,
		SubagentModel:         cfg.Agents.Defaults.Subagents.Model,
		SubagentMaxConcurrent: cfg.Agents.Defaults.Subagents.MaxConcurrent,
	}
	if summary.PrimaryModel == "" {
		summary.PrimaryModel = "unknown"
	}
	for _, provider := range sortedKeys(cfg.Models.Providers) {
		for _, m := range cfg.Models.Providers[provider].Models {
			summary.Models = append(summary.Models, domain.ModelInfo{
				ID:            provider + "/" + m.ID,
				Name:          m.Name,
				Reasoning:     m.Reasoning,
				ContextWindow: m.ContextWindow,
				MaxTokens:     m.MaxTokens,
			})
		}
	}
	if gw := cfg.Gateway; gw != nil {
		summary.Gateway = &domain.Gateway{Port: gw.Port, Mode: gw.Mode, Bind: gw.Bind, Tailscale: gw.Tailscale.Mode}
	}
	for name, ch := range cfg.Channels {
		summary.Channels[name] = domain.Channel{Enabled: ch.Enabled, StreamMode: ch.StreamMode}
	}
	for name, pl := range cfg.Plugins.Entries {
		summary.Plugins[name] = domain.Plugin{Enabled: pl.Enabled}
	}
	return summary
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

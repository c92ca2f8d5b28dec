package signature

import "github.com/tuai/tuaid/pkg/model"

// Defaults returns the nine built-in agent signatures shipped with the
// binary. Detection rules are grounded in the agents commonly used for AI
// coding assistance: Claude Code, Cursor, Aider, Windsurf, Continue.dev,
// GitHub Copilot, and the three local-model servers Ollama, LM Studio, and
// LocalAI.
func Defaults() []model.AgentSignature {
	return []model.AgentSignature{
		{
			Name:        "claude_code",
			DisplayName: "Claude Code",
			Icon:        "claude.svg",
			Detection: model.DetectionRules{
				ProcessNames: []string{"claude", "claude-cli"},
				CommandPatterns: []model.CommandPattern{
					{Regex: `(^|/)claude(\s|$)`},
					{Regex: `claude\s+`},
					{Regex: `npx\s+.*claude`},
					{Regex: `\.claude/`},
				},
			},
			ChildProcessTracking: true,
			NetworkEndpoints: model.NetworkEndpoints{
				Expected: []string{"api.anthropic.com:443", "statsig.anthropic.com:443"},
			},
		},
		{
			Name:        "cursor",
			DisplayName: "Cursor",
			Icon:        "cursor.svg",
			Detection: model.DetectionRules{
				ProcessNames: []string{"cursor"},
				CommandPatterns: []model.CommandPattern{
					{Regex: `(^|/)cursor(\s|$)`},
				},
				ExePatterns: []model.CommandPattern{
					{Regex: `cursor\.appimage`},
					{Regex: `/cursor/`},
				},
			},
			ChildProcessTracking: true,
			NetworkEndpoints: model.NetworkEndpoints{
				Expected: []string{"api.cursor.sh:443"},
			},
		},
		{
			Name:        "aider",
			DisplayName: "Aider",
			Icon:        "aider.svg",
			Detection: model.DetectionRules{
				ProcessNames: []string{"aider"},
				CommandPatterns: []model.CommandPattern{
					{Regex: `(^|/)aider(\s|$)`},
					{Regex: `python[0-9.]*\s+.*aider`},
				},
			},
			ChildProcessTracking: true,
		},
		{
			Name:        "windsurf",
			DisplayName: "Windsurf",
			Icon:        "windsurf.svg",
			Detection: model.DetectionRules{
				ProcessNames: []string{"windsurf"},
				ExePatterns: []model.CommandPattern{
					{Regex: `/windsurf/`},
				},
			},
			ChildProcessTracking: true,
		},
		{
			Name:        "continue_dev",
			DisplayName: "Continue.dev",
			Icon:        "continue.svg",
			Detection: model.DetectionRules{
				CommandPatterns: []model.CommandPattern{
					{Regex: `continue[-_]?dev`},
				},
				ParentHints: []string{"code", "code-insiders"},
			},
			ChildProcessTracking: true,
		},
		{
			Name:        "copilot",
			DisplayName: "GitHub Copilot",
			Icon:        "copilot.svg",
			Detection: model.DetectionRules{
				ProcessNames: []string{"copilot", "github-copilot"},
				CommandPatterns: []model.CommandPattern{
					{Regex: `copilot[-_]?(agent|language-server)`},
				},
				ParentHints: []string{"code", "code-insiders"},
			},
			ChildProcessTracking: true,
			NetworkEndpoints: model.NetworkEndpoints{
				Expected: []string{"api.github.com:443", "copilot-proxy.githubusercontent.com:443"},
			},
		},
		{
			Name:        "ollama",
			DisplayName: "Ollama",
			Icon:        "ollama.svg",
			Detection: model.DetectionRules{
				ProcessNames: []string{"ollama"},
				ExePatterns: []model.CommandPattern{
					{Regex: `/ollama$`},
				},
			},
			NetworkEndpoints: model.NetworkEndpoints{
				Expected: []string{"127.0.0.1:11434", "localhost:11434"},
			},
		},
		{
			Name:        "lm_studio",
			DisplayName: "LM Studio",
			Icon:        "lmstudio.svg",
			Detection: model.DetectionRules{
				ProcessNames: []string{"lm-studio", "lmstudio"},
			},
			NetworkEndpoints: model.NetworkEndpoints{
				Expected: []string{"127.0.0.1:1234", "localhost:1234"},
			},
		},
		{
			Name:        "localai",
			DisplayName: "LocalAI",
			Icon:        "localai.svg",
			Detection: model.DetectionRules{
				ProcessNames: []string{"local-ai", "localai"},
			},
			NetworkEndpoints: model.NetworkEndpoints{
				Expected: []string{"127.0.0.1:8080", "localhost:8080"},
			},
		},
	}
}

package llm

import (
	"sort"
	"strings"

	"github.com/tickerpulse/tickerpulse/internal/models"
)

// DefaultRoster lists the OpenRouter free-tier models the orchestrator
// rotates through, preferred model first. All carry 100K+ contexts so a full
// batch fits any of them.
func DefaultRoster() []models.ModelDescriptor {
	ids := []struct {
		id     string
		window int
	}{
		{"deepseek/deepseek-chat-v3.1:free", 163000},
		{"alibaba/tongyi-deepresearch-30b-a3b:free", 131000},
		{"meituan/longcat-flash-chat:free", 131000},
		{"nvidia/nemotron-nano-9b-v2:free", 128000},
		{"openai/gpt-oss-20b:free", 131000},
		{"z-ai/glm-4.5-air:free", 131000},
		{"meta-llama/llama-3.3-8b-instruct:free", 128000},
		{"qwen/qwen3-235b-a22b:free", 131000},
		{"mistralai/mistral-small-3.2-24b-instruct:free", 128000},
		{"google/gemini-2.0-flash-exp:free", 1000000},
	}

	roster := make([]models.ModelDescriptor, 0, len(ids))
	for i, m := range ids {
		roster = append(roster, models.ModelDescriptor{
			ID:            m.id,
			DisplayName:   displayName(m.id),
			ContextWindow: m.window,
			Priority:      i + 1,
		})
	}
	return roster
}

// displayName strips the provider prefix and the :free suffix.
func displayName(id string) string {
	name := id
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, ":free")
}

// SortByPriority returns a copy of the roster ordered preferred-first.
func SortByPriority(roster []models.ModelDescriptor) []models.ModelDescriptor {
	sorted := append([]models.ModelDescriptor(nil), roster...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	return sorted
}

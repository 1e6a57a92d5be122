package llm

import (
	"regexp"
	"strings"
)

// Модели не всегда соблюдают запрет на Markdown и заворачивают ответ
// в тройные кавычки, иногда с меткой языка.
var fencedBlockRe = regexp.MustCompile(`(?s)^\s*` + "```" + `[a-zA-Z0-9_\-]*\s*\n(.*?)\s*\n?` + "```" + `\s*$`)

// StripCodeFences снимает обрамляющий fenced-блок с текста ответа.
// Тотальна и идемпотентна: текст без ограждения возвращается
// обрезанным без изменений, неполные ограждения не трогаются.
func StripCodeFences(input string) string {
	trimmed := strings.TrimSpace(input)

	if match := fencedBlockRe.FindStringSubmatch(trimmed); match != nil {
		return strings.TrimSpace(match[1])
	}

	// Однострочный случай: ```...``` без переводов строки
	if strings.HasPrefix(trimmed, "```") && strings.HasSuffix(trimmed, "```") && len(trimmed) >= 6 {
		inner := strings.TrimSuffix(strings.TrimPrefix(trimmed, "```"), "```")
		return strings.TrimSpace(inner)
	}

	return trimmed
}

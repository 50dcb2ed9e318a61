package usecase

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"paperqa/internal/domain"
)

// UnknownAnswer is the exact reply the model must give when the excerpts
// do not contain the answer.
const UnknownAnswer = "I don't know."

//go:embed templates/*.txt
var promptTemplates embed.FS

var (
	systemPrompt = mustRead("templates/system_prompt.txt")
	userTemplate = template.Must(template.New("user").Parse(mustRead("templates/user_prompt.txt")))
)

func mustRead(name string) string {
	data, err := promptTemplates.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return strings.TrimSpace(string(data))
}

type PromptData struct {
	Context  string
	Question string
	Unknown  string
}

// BuildPrompt renders chunks, in the order given, as page-tagged excerpts
// followed by the question and the grounding rules.
func BuildPrompt(chunks []domain.RetrievedChunk, question string) domain.Prompt {
	var sb strings.Builder
	for i, c := range chunks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, ">>> Page %d\n%s", c.PageNum, strings.TrimSpace(c.Excerpt()))
	}

	var user strings.Builder
	data := PromptData{
		Context:  sb.String(),
		Question: strings.TrimSpace(question),
		Unknown:  UnknownAnswer,
	}
	if err := userTemplate.Execute(&user, data); err != nil {
		// Only reachable if the embedded template is broken.
		panic(err)
	}

	return domain.Prompt{
		System: systemPrompt,
		User:   user.String(),
	}
}

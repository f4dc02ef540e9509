package textgen

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROMPTS
// ══════════════════════════════════════════════════════════════════════════════

const systemInstruction = `You write short, warm messages for a martial arts club.
Address parents and students respectfully. Never invent scores or belts that are not in the request.
Answer with the message text only, no greeting line placeholders, at most 80 words.`

var prompts = map[student.TextKind]*template.Template{
	student.TextParentFeedback: template.Must(template.New("parent_feedback").Option("missingkey=zero").Parse(
		`Write a feedback note to the parent of {{.name}} after today's class.
Belt: {{.belt}}. Stripes: {{.stripes}}. Points earned today: {{.session_points}}.
{{- if .skills}}
Skill scores (0-2): {{.skills}}.{{end}}
{{- if .coach_note}}
Coach note: {{.coach_note}}{{end}}`)),

	student.TextPromotionMessage: template.Must(template.New("promotion_message").Option("missingkey=zero").Parse(
		`Write a congratulation message for {{.name}}, who was just promoted from the {{.from_belt}} belt to the {{.to_belt}} belt{{if .location}} at our {{.location}} dojo{{end}}.`)),

	student.TextWelcomeEmail: template.Must(template.New("welcome_email").Option("missingkey=zero").Parse(
		`Write a welcome email for {{.name}}, a new student joining the {{.class}} class{{if .location}} at {{.location}}{{end}}, starting at the {{.belt}} belt.`)),
}

// RenderPrompt renders the user prompt for kind with vars.
func RenderPrompt(kind student.TextKind, vars map[string]string) (string, error) {
	tmpl, ok := prompts[kind]
	if !ok {
		return "", fmt.Errorf("unknown text kind %q", kind)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, vars); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", kind, err)
	}
	return strings.TrimSpace(sb.String()), nil
}

package service

import (
	"strings"
	"text/template"

	"guia-turismo-go/internal/model"
)

var (
	descriptionPrompt = template.Must(template.New("description").Parse(
		`Você é um especialista em turismo brasileiro com amplo conhecimento sobre destinos, gastronomia e cultura. Utilize as informações fornecidas abaixo para escrever uma descrição turística concisa e direta.

{{.Context}}

Instruções:
- Mantenha a descrição em português.
- Destaque as principais atrações turísticas, pontos de interesse, aspectos culturais e opções gastronômicas.
- Seja claro, objetivo e evite jargões técnicos.
- Limite a descrição a um texto curto e objetivo, sem perder a riqueza das informações.

Resposta:`))

	answerPrompt = template.Must(template.New("answer").Parse(
		`Você é um especialista em turismo brasileiro com profundo conhecimento sobre destinos, gastronomia e cultura. Utilize o contexto fornecido para responder de forma detalhada, precisa e envolvente às perguntas dos usuários.

Contexto:
{{.Context}}

Pergunta:
{{.Question}}

Resposta:`))

	condensePrompt = template.Must(template.New("condense").Parse(
		`Dada a conversa a seguir e uma pergunta de acompanhamento, reescreva a pergunta de acompanhamento como uma pergunta independente, no idioma original.

Histórico da conversa:
{{range .History}}Usuário: {{.Question}}
Assistente: {{.Answer}}
{{end}}Pergunta de acompanhamento: {{.Question}}
Pergunta independente:`))
)

type promptData struct {
	Context  string
	Question string
	History  []model.Turn
}

func render(t *template.Template, data promptData) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

package enhancer

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var jsonObjectPattern = regexp.MustCompile(`\{[\s\S]*\}`)

const promptTemplate = `Eres un experto en redacción de catálogos de productos para e-commerce.

DATOS DEL PRODUCTO:
- Título original: %s
- Descripción original: %s
- Contexto: %s

TAREA:
1. Genera un TÍTULO optimizado para e-commerce (máximo 80 caracteres)
2. Genera una DESCRIPCIÓN detallada y atractiva (máximo 500 caracteres)

REQUISITOS:
- El título debe ser claro, profesional y optimizado para SEO
- La descripción debe destacar beneficios, características y casos de uso
- Usa un tono profesional pero cercano
- Si faltan datos, sé creativo pero realista basándote en el contexto

FORMATO DE RESPUESTA (JSON):
{
  "title": "Título optimizado aquí",
  "description": "Descripción detallada aquí"
}

Responde SOLO con el JSON, sin texto adicional.`

// BuildPrompt renders the rewrite instruction for one product
func BuildPrompt(rawTitle, rawDescription, contextHint string) string {
	return fmt.Sprintf(promptTemplate,
		strings.TrimSpace(rawTitle),
		strings.TrimSpace(rawDescription),
		strings.TrimSpace(contextHint))
}

type rewrite struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ParseResponse pulls the first JSON object out of a model reply.
// Replies often wrap the object in prose or code fences.
func ParseResponse(text string) (title, description string, err error) {
	raw := jsonObjectPattern.FindString(text)
	if raw == "" {
		return "", "", errors.New("no JSON object in response")
	}

	var r rewrite
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return "", "", fmt.Errorf("failed to decode response: %w", err)
	}

	title = strings.TrimSpace(r.Title)
	if title == "" {
		return "", "", errors.New("response has no title")
	}
	return title, strings.TrimSpace(r.Description), nil
}

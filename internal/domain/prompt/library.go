package prompt

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	apperrors "github.com/yanqian/product-support-bot/pkg/errors"
)

// ProductBot is the name of the customer-support template.
const ProductBot = "product_bot"

const productBotTemplate = `You are an expert EcommerceBot specialized in product recommendations and handling customer queries.
Analyze the provided product titles, ratings, and reviews to provide accurate, helpful responses.
Stay relevant to the context, and keep your answers concise and informative.

IMPORTANT: If the context is empty or contains no relevant product information, politely explain that you don't have access to product data and suggest the user try a different search term or contact support.

CONTEXT:
{context}

QUESTION: {question}

YOUR ANSWER:
`

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Library holds named templates with {placeholder} slots. It is read-only after construction.
type Library struct {
	templates map[string]string
}

// NewLibrary copies the given templates into a new library.
func NewLibrary(templates map[string]string) *Library {
	copied := make(map[string]string, len(templates))
	for name, body := range templates {
		copied[name] = body
	}
	return &Library{templates: copied}
}

// DefaultLibrary returns the built-in templates.
func DefaultLibrary() *Library {
	return NewLibrary(map[string]string{ProductBot: productBotTemplate})
}

// Names lists the registered templates.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.templates))
	for name := range l.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Placeholders returns the distinct placeholders of a template in order of first use.
func (l *Library) Placeholders(name string) ([]string, error) {
	body, ok := l.templates[name]
	if !ok {
		return nil, apperrors.Wrap(apperrors.CodeTemplate, fmt.Sprintf("unknown template %q", name), nil)
	}
	seen := make(map[string]bool)
	var out []string
	for _, match := range placeholderPattern.FindAllStringSubmatch(body, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			out = append(out, match[1])
		}
	}
	return out, nil
}

// Render substitutes every placeholder. Values are inserted verbatim and are not re-scanned.
func (l *Library) Render(name string, vars map[string]string) (string, error) {
	placeholders, err := l.Placeholders(name)
	if err != nil {
		return "", err
	}
	var missing []string
	for _, key := range placeholders {
		if _, ok := vars[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return "", apperrors.Wrap(apperrors.CodeTemplate, fmt.Sprintf("template %q missing values for: %s", name, strings.Join(missing, ", ")), nil)
	}
	return placeholderPattern.ReplaceAllStringFunc(l.templates[name], func(token string) string {
		return vars[token[1:len(token)-1]]
	}), nil
}

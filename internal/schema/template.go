package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"text/template"
)

// variablePattern matches Go template variable references like {{.VarName}} or {{ .VarName }}
var variablePattern = regexp.MustCompile(`\{\{\s*\.([a-zA-Z_][a-zA-Z0-9_.]*)\s*\}\}`)

type promptData struct {
	Text string
}

// ExtractVariables returns the distinct template variable names referenced in text,
// sorted. "Read {{.Text}} for {{.Field}}" returns ["Field", "Text"].
func ExtractVariables(text string) []string {
	matches := variablePattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]bool)
	var vars []string

	for _, match := range matches {
		if len(match) > 1 && !seen[match[1]] {
			seen[match[1]] = true
			vars = append(vars, match[1])
		}
	}

	sort.Strings(vars)
	return vars
}

// HashText returns a SHA256 hash of the text. Used to identify prompts in call
// records without storing the document.
func HashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// compileTemplate parses a prompt and checks that it substitutes the document
// exactly once and references nothing else.
func compileTemplate(name, text string) (*template.Template, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("template is empty")
	}

	refs := variablePattern.FindAllStringSubmatch(text, -1)
	if len(refs) != 1 || refs[0][1] != DocumentVar {
		return nil, fmt.Errorf("template must reference {{.%s}} exactly once, found %v",
			DocumentVar, ExtractVariables(text))
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	// Catches references hidden in other actions, e.g. {{if .Other}}.
	if err := tmpl.Execute(io.Discard, promptData{}); err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	return tmpl, nil
}

func render(tmpl *template.Template, text string) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, promptData{Text: text}); err != nil {
		return "", fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}
	return sb.String(), nil
}

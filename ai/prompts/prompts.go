// Package prompts holds the LLM prompt templates.
// Defaults are embedded; a directory containing prompts.yaml overrides them field by field.
package prompts

import (
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/hrygo/gridiron/ai/configloader"
)

const fileName = "prompts.yaml"

//go:embed prompts.yaml
var defaultFS embed.FS

// Pair is a system prompt plus a user message template.
type Pair struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// Prompts is the full prompt set.
type Prompts struct {
	Relevance    Pair `yaml:"relevance"`
	SQLAgent     Pair `yaml:"sql_agent"`
	WebSynthesis Pair `yaml:"web_synthesis"`
	Judge        Pair `yaml:"judge"`

	mu    sync.Mutex
	cache map[string]*template.Template
}

// Load reads the embedded defaults and applies overrideDir/prompts.yaml when present.
func Load(overrideDir string) (*Prompts, error) {
	var p Prompts
	if err := configloader.NewLoader(overrideDir, defaultFS).Load(fileName, &p); err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

var defaultPrompts = sync.OnceValue(func() *Prompts {
	p, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("embedded prompts are invalid: %v", err))
	}
	return p
})

// Default returns the embedded prompt set.
func Default() *Prompts {
	return defaultPrompts()
}

func (p *Prompts) validate() error {
	for name, tmpl := range p.templates() {
		if strings.TrimSpace(tmpl) == "" {
			return fmt.Errorf("prompt %s is empty", name)
		}
		if _, err := template.New(name).Option("missingkey=error").Parse(tmpl); err != nil {
			return fmt.Errorf("prompt %s: %w", name, err)
		}
	}
	return nil
}

func (p *Prompts) templates() map[string]string {
	return map[string]string{
		"relevance.system":     p.Relevance.System,
		"relevance.user":       p.Relevance.User,
		"sql_agent.system":     p.SQLAgent.System,
		"web_synthesis.system": p.WebSynthesis.System,
		"web_synthesis.user":   p.WebSynthesis.User,
		"judge.system":         p.Judge.System,
		"judge.user":           p.Judge.User,
	}
}

// Render executes the named template ("judge.user", ...) with data.
func (p *Prompts) Render(name string, data any) (string, error) {
	p.mu.Lock()
	if p.cache == nil {
		p.cache = make(map[string]*template.Template)
	}
	t, ok := p.cache[name]
	if !ok {
		src, exists := p.templates()[name]
		if !exists {
			p.mu.Unlock()
			return "", fmt.Errorf("unknown prompt %q", name)
		}
		var err error
		t, err = template.New(name).Option("missingkey=error").Parse(src)
		if err != nil {
			p.mu.Unlock()
			return "", fmt.Errorf("parse prompt %s: %w", name, err)
		}
		p.cache[name] = t
	}
	p.mu.Unlock()

	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return strings.TrimSpace(sb.String()), nil
}

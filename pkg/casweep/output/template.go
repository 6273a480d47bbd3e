package output

import (
	"bytes"
	"sync"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/casweep/pkg/casweep/report"
	"github.com/jamesainslie/casweep/pkg/casweep/types"
)

// TemplateFormatter formats output using a custom Go text/template.
type TemplateFormatter struct {
	templateStr string
	template    *template.Template
	mu          sync.Mutex
}

// templateData is the data passed to the template.
type templateData struct {
	*types.Table
	report.Summary
}

// NewTemplateFormatter creates a new template formatter with the given template string.
func NewTemplateFormatter(templateStr string) *TemplateFormatter {
	return &TemplateFormatter{
		templateStr: templateStr,
	}
}

// SetTemplate sets or updates the template string.
func (f *TemplateFormatter) SetTemplate(templateStr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.templateStr = templateStr
	f.template = nil
}

// templateFuncs returns the custom template functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		// cell renders a column of a row, NaN for null outputs.
		// Usage: {{cell . "k_inf"}}
		"cell": func(r types.Row, col string) string {
			return cell(&r, col, NullText)
		},

		// num formats a number with at most the given decimals.
		// Usage: {{num 1.234567 4}}
		"num": func(v float64, digits int) string {
			return humanize.FtoaWithDigits(v, digits)
		},

		// duration rounds a duration for display.
		// Usage: {{duration .Duration}}
		"duration": func(d time.Duration) string {
			return d.Round(time.Millisecond).String()
		},
	}
}

// Format writes the formatted output to the buffer.
func (f *TemplateFormatter) Format(w *bytes.Buffer, t *types.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.template == nil {
		tmpl, err := template.New("output").Funcs(templateFuncs()).Parse(f.templateStr)
		if err != nil {
			return err
		}
		f.template = tmpl
	}

	if t == nil {
		t = &types.Table{}
	}
	return f.template.Execute(w, templateData{Table: t, Summary: report.Summarize(t)})
}

// defaultTemplate is the template used when no custom template is provided.
const defaultTemplate = `{{range .Rows}}{{.Case}}	{{.Status}}
{{end}}`

func init() {
	Register("template", func() Formatter {
		return NewTemplateFormatter(defaultTemplate)
	})
}

// Ensure TemplateFormatter implements Formatter.
var _ Formatter = (*TemplateFormatter)(nil)

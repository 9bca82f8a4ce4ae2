package reminders

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/jimdaga/habit-tracker/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplates []byte

// CatalogSource is the parsed templates.yaml document.
type CatalogSource struct {
	Version         string `yaml:"version"`
	Reminder        string `yaml:"reminder"`
	Moment          string `yaml:"moment"`
	MomentWithTitle string `yaml:"moment_with_title"`
}

// Catalog renders reminder texts from a habit.
type Catalog struct {
	reminder        *template.Template
	moment          *template.Template
	momentWithTitle *template.Template
}

type momentView struct {
	Title string
	Time  string
}

type reminderView struct {
	Action string
	Place  string
	Moment string
}

// DefaultCatalog returns the catalog embedded in the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultTemplates)
}

// LoadCatalog reads a catalog from path, or the embedded default when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reminder templates: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a templates document. Unknown keys are rejected and
// all three templates are required.
func ParseCatalog(data []byte) (*Catalog, error) {
	var src CatalogSource
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&src); err != nil {
		return nil, fmt.Errorf("failed to parse reminder templates: %w", err)
	}

	if src.Version == "" {
		src.Version = "v1"
	}
	if src.Version != "v1" {
		return nil, fmt.Errorf("unsupported reminder templates version %q", src.Version)
	}

	c := &Catalog{}
	var err error
	if c.reminder, err = compile("reminder", src.Reminder); err != nil {
		return nil, err
	}
	if c.moment, err = compile("moment", src.Moment); err != nil {
		return nil, err
	}
	if c.momentWithTitle, err = compile("moment_with_title", src.MomentWithTitle); err != nil {
		return nil, err
	}
	return c, nil
}

func compile(name, text string) (*template.Template, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("reminder templates missing required field: %s", name)
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid %s template: %w", name, err)
	}
	return tmpl, nil
}

// Render builds the reminder text for habit from its action, place and moment.
func (c *Catalog) Render(habit *models.Habit) (string, error) {
	mv := momentView{Time: habit.Moment.Time.String()}
	momentTmpl := c.moment
	if habit.Moment.Title != nil && *habit.Moment.Title != "" {
		mv.Title = *habit.Moment.Title
		momentTmpl = c.momentWithTitle
	}

	moment, err := execute(momentTmpl, mv)
	if err != nil {
		return "", err
	}

	rv := reminderView{Action: habit.Action, Moment: moment}
	if habit.Place != nil {
		rv.Place = *habit.Place
	}
	return execute(c.reminder, rv)
}

func execute(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// Package resume holds the structured resume returned by the extraction
// model and turns its raw text reply into either a parsed resume or a
// displayable failure.
package resume

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ParsedResume mirrors the JSON object the extraction prompt asks for.
//
// Decoding is lenient: numbers where text is expected, a single string where
// a list is expected and sections of the wrong kind are tolerated. Validate
// reports those deviations.
type ParsedResume struct {
	Skills         Skills           `json:"Skills"`
	Certifications []Certification  `json:"Certifications"`
	Projects       []Project        `json:"Projects"`
	WorkExperience []WorkExperience `json:"Work Experience"`
}

type Skills struct {
	Languages    []string `json:"Languages"`
	Technologies []string `json:"Technologies"`
	Core         []string `json:"Core"`
}

type Project struct {
	Title   string   `json:"title"`
	Date    string   `json:"date"`
	Details []string `json:"details"`
}

type WorkExperience struct {
	Role             string   `json:"role"`
	Organization     string   `json:"organization"`
	Location         *string  `json:"location"`
	Date             string   `json:"date"`
	Responsibilities []string `json:"responsibilities"`
}

func (r *ParsedResume) UnmarshalJSON(data []byte) error {
	var sections map[string]json.RawMessage
	if err := json.Unmarshal(data, &sections); err != nil {
		return err
	}

	// a section of the wrong kind is left empty
	_ = json.Unmarshal(section(sections, "Skills"), &r.Skills)
	r.Certifications = listOf[Certification](section(sections, "Certifications"))
	r.Projects = listOf[Project](section(sections, "Projects"))
	r.WorkExperience = listOf[WorkExperience](section(sections, "Work Experience"))
	return nil
}

// section looks a key up exactly first, then case-insensitively.
func section(sections map[string]json.RawMessage, name string) json.RawMessage {
	if raw, ok := sections[name]; ok {
		return raw
	}
	for key, raw := range sections {
		if strings.EqualFold(key, name) {
			return raw
		}
	}
	return nil
}

// listOf decodes an array element by element, dropping elements that do not
// decode. A lone value counts as a one-element list.
func listOf[T any](raw json.RawMessage) []T {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	elems := []json.RawMessage{raw}
	if raw[0] == '[' {
		elems = nil
		if err := json.Unmarshal(raw, &elems); err != nil {
			return nil
		}
	}

	out := make([]T, 0, len(elems))
	for _, elem := range elems {
		var v T
		if err := json.Unmarshal(elem, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

func (s *Skills) UnmarshalJSON(data []byte) error {
	var aux struct {
		Languages    textList `json:"Languages"`
		Technologies textList `json:"Technologies"`
		Core         textList `json:"Core"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = Skills{
		Languages:    aux.Languages,
		Technologies: aux.Technologies,
		Core:         aux.Core,
	}
	return nil
}

func (p *Project) UnmarshalJSON(data []byte) error {
	var aux struct {
		Title   text     `json:"title"`
		Date    text     `json:"date"`
		Details textList `json:"details"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = Project{
		Title:   string(aux.Title),
		Date:    string(aux.Date),
		Details: aux.Details,
	}
	return nil
}

func (w *WorkExperience) UnmarshalJSON(data []byte) error {
	var aux struct {
		Role             text     `json:"role"`
		Organization     text     `json:"organization"`
		Location         *text    `json:"location"`
		Date             text     `json:"date"`
		Responsibilities textList `json:"responsibilities"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*w = WorkExperience{
		Role:             string(aux.Role),
		Organization:     string(aux.Organization),
		Date:             string(aux.Date),
		Responsibilities: aux.Responsibilities,
	}
	if aux.Location != nil {
		loc := string(*aux.Location)
		w.Location = &loc
	}
	return nil
}

// Certification is a plain string in the prompt contract. Models sometimes
// answer with an object instead, so a name or title field is accepted too.
type Certification string

func (c *Certification) UnmarshalJSON(data []byte) error {
	var t text
	if err := t.UnmarshalJSON(data); err != nil {
		return err
	}
	*c = Certification(t)
	return nil
}

// Blank reports whether the value carries no text.
func (c Certification) Blank() bool {
	return strings.TrimSpace(string(c)) == ""
}

// text accepts any JSON value where a string is expected. Numbers and
// booleans keep their literal form, null is empty, lists are joined and
// objects contribute their name or title.
type text string

func (t *text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	switch data[0] {
	case 'n':
		*t = ""
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = text(s)
	case '[':
		var items textList
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*t = text(strings.Join(items, ", "))
	case '{':
		var obj struct {
			Name  string `json:"name"`
			Title string `json:"title"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		if obj.Name != "" {
			*t = text(obj.Name)
		} else {
			*t = text(obj.Title)
		}
	default:
		*t = text(data)
	}
	return nil
}

// textList accepts a list of loose values or a single value.
type textList []string

func (l *textList) UnmarshalJSON(data []byte) error {
	items := listOf[text](data)
	if items == nil {
		*l = nil
		return nil
	}
	out := make(textList, 0, len(items))
	for _, item := range items {
		out = append(out, string(item))
	}
	*l = out
	return nil
}

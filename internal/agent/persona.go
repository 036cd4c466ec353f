package agent

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Persona is an agent's immutable identity, loaded once from a template
// file and read-only afterwards.
type Persona struct {
	FirstName     string
	LastName      string
	Name          string
	Age           int
	Occupation    string
	Backstory     string
	Hobbies       string
	Traits        string
	Motivations   string
	Relationships map[string]string
}

// LoadPersona parses a flat "Key: value" text file into a Persona. Absent
// fields stay empty. Relationship lines use "Relationship: Name = text" and
// may repeat.
func LoadPersona(path string) (*Persona, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open persona %s: %w", path, err)
	}
	defer f.Close()

	p := &Persona{Relationships: make(map[string]string)}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "First Name":
			p.FirstName = value
		case "Last Name":
			p.LastName = value
		case "Name":
			p.Name = value
		case "Age":
			if age, err := strconv.Atoi(value); err == nil {
				p.Age = age
			}
		case "Occupation":
			p.Occupation = value
		case "Backstory":
			p.Backstory = value
		case "Hobbies":
			p.Hobbies = value
		case "Traits":
			p.Traits = value
		case "Motivations":
			p.Motivations = value
		case "Relationship":
			if name, text, ok := strings.Cut(value, "="); ok {
				p.Relationships[strings.TrimSpace(name)] = strings.TrimSpace(text)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read persona %s: %w", path, err)
	}

	if p.Name == "" {
		p.Name = strings.TrimSpace(p.FirstName + " " + p.LastName)
	}
	if p.Name == "" {
		return nil, fmt.Errorf("persona %s has no name", path)
	}
	return p, nil
}

// Summary renders the persona as the common context block fed to prompts.
func (p *Persona) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Name: %s\n", p.Name)
	fmt.Fprintf(&sb, "Age: %d\n", p.Age)
	fmt.Fprintf(&sb, "Occupation: %s\n", p.Occupation)
	fmt.Fprintf(&sb, "Backstory: %s\n", p.Backstory)
	fmt.Fprintf(&sb, "Innate traits: %s\n", p.Traits)
	fmt.Fprintf(&sb, "Motivations: %s\n", p.Motivations)
	for name, rel := range p.Relationships {
		fmt.Fprintf(&sb, "Relationship with %s: %s\n", name, rel)
	}
	return sb.String()
}

// Package menu holds the fixed choice tables of the harmonizer and the
// console prompts that select from them.
package menu

import (
	"errors"
	"fmt"
)

// DefaultTone is used whenever the tone input cannot be resolved.
const DefaultTone = "neutral"

// fallbackLanguage is returned for unknown language keys.
var fallbackLanguage = Language{Name: "English", Code: "en"}

// Language is a selectable target language.
type Language struct {
	Key  string `yaml:"key" toml:"key"`
	Name string `yaml:"name" toml:"name"`
	Code string `yaml:"code" toml:"code"`
}

// Voice is a selectable synthesis voice.
type Voice struct {
	Key         string `yaml:"key" toml:"key"`
	Description string `yaml:"description" toml:"description"`
	ID          string `yaml:"id" toml:"id"`
}

// Catalog is the set of lookup tables the menus offer. Order is display
// order; tones are numbered from 1.
type Catalog struct {
	Languages []Language `yaml:"languages" toml:"languages"`
	Tones     []string   `yaml:"tones" toml:"tones"`
	Voices    []Voice    `yaml:"voices" toml:"voices"`
}

// Selection is the outcome of one round of menus.
type Selection struct {
	Language Language
	Tone     string
	Voice    Voice
}

// DefaultCatalog returns the built-in tables.
func DefaultCatalog() Catalog {
	return Catalog{
		Languages: []Language{
			{Key: "1", Name: "English", Code: "en"},
			{Key: "2", Name: "Spanish", Code: "es"},
			{Key: "3", Name: "French", Code: "fr"},
			{Key: "4", Name: "Hindi", Code: "hi"},
			{Key: "5", Name: "Japanese", Code: "ja"},
		},
		Tones: []string{"formal", "casual", "neutral"},
		Voices: []Voice{
			{Key: "1", Description: "US English (Male)", ID: "EXAVITQu4vr4xnSDxMaL"},
			{Key: "2", Description: "British English (Female)", ID: "21m00Tcm4TlvDq8ikWAM"},
			{Key: "3", Description: "Australian English (Female)", ID: "AZnzlk1XvdvUeBnXmlld"},
			{Key: "4", Description: "Spanish (Female)", ID: "pNInz6obpgDQGcFmaJgB"},
			{Key: "5", Description: "French (Female)", ID: "EXAVITQu4vr4xnSDxMaL"},
			{Key: "6", Description: "Indian English (Male)", ID: "m5qndnI7u4OAdXhH0Mr5"},
			{Key: "7", Description: "Japanese Male (Otani)", ID: "3JDquces8E8bkmvbh6Bc"},
			{Key: "8", Description: "Indian Female (Anika)", ID: "RXe6OFmxoC0nlSWpuCDy"},
		},
	}
}

// Language returns the language registered under key, or English ("en") when
// the key is unknown.
func (c Catalog) Language(key string) Language {
	for _, l := range c.Languages {
		if l.Key == key {
			return l
		}
	}
	return fallbackLanguage
}

// Tone resolves a 1-based tone number. Input that is not made of ASCII
// digits only, or that falls outside 1..len(Tones), yields DefaultTone.
func (c Catalog) Tone(input string) string {
	if input == "" {
		return DefaultTone
	}
	n := 0
	for _, r := range input {
		if r < '0' || r > '9' {
			return DefaultTone
		}
		n = n*10 + int(r-'0')
		if n > len(c.Tones) {
			return DefaultTone
		}
	}
	if n < 1 {
		return DefaultTone
	}
	return c.Tones[n-1]
}

// Voice returns the voice registered under key, or the first voice of the
// catalog when the key is unknown.
func (c Catalog) Voice(key string) Voice {
	for _, v := range c.Voices {
		if v.Key == key {
			return v
		}
	}
	if len(c.Voices) == 0 {
		return Voice{}
	}
	return c.Voices[0]
}

// Validate checks that every table is populated and that keys are unique.
func (c Catalog) Validate() error {
	var errs []error

	if len(c.Languages) == 0 {
		errs = append(errs, errors.New("catalog.languages must not be empty"))
	}
	langSeen := make(map[string]int, len(c.Languages))
	for i, l := range c.Languages {
		prefix := fmt.Sprintf("catalog.languages[%d]", i)
		if l.Key == "" {
			errs = append(errs, fmt.Errorf("%s.key is required", prefix))
		} else if prev, ok := langSeen[l.Key]; ok {
			errs = append(errs, fmt.Errorf("%s.key %q is a duplicate of catalog.languages[%d]", prefix, l.Key, prev))
		} else {
			langSeen[l.Key] = i
		}
		if l.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		}
		if l.Code == "" {
			errs = append(errs, fmt.Errorf("%s.code is required", prefix))
		}
	}

	if len(c.Tones) == 0 {
		errs = append(errs, errors.New("catalog.tones must not be empty"))
	}
	for i, t := range c.Tones {
		if t == "" {
			errs = append(errs, fmt.Errorf("catalog.tones[%d] must not be empty", i))
		}
	}

	if len(c.Voices) == 0 {
		errs = append(errs, errors.New("catalog.voices must not be empty"))
	}
	voiceSeen := make(map[string]int, len(c.Voices))
	for i, v := range c.Voices {
		prefix := fmt.Sprintf("catalog.voices[%d]", i)
		if v.Key == "" {
			errs = append(errs, fmt.Errorf("%s.key is required", prefix))
		} else if prev, ok := voiceSeen[v.Key]; ok {
			errs = append(errs, fmt.Errorf("%s.key %q is a duplicate of catalog.voices[%d]", prefix, v.Key, prev))
		} else {
			voiceSeen[v.Key] = i
		}
		if v.ID == "" {
			errs = append(errs, fmt.Errorf("%s.id is required", prefix))
		}
	}

	return errors.Join(errs...)
}

package menu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoInput is returned when the input stream ends before a choice is read.
var ErrNoInput = errors.New("menu: no input")

const choicePrompt = "Enter choice number: "

// Preset carries choices made ahead of time (e.g., from command-line
// flags). A non-empty field skips the corresponding menu and is resolved
// with the same fallback rules as typed input.
type Preset struct {
	Language string
	Tone     string
	Voice    string
}

// Prompter prints numbered menus to out and reads one line per menu from in.
// It is not safe for concurrent use.
type Prompter struct {
	in      *bufio.Reader
	out     io.Writer
	catalog Catalog
}

// NewPrompter returns a Prompter reading from in and writing to out.
func NewPrompter(in io.Reader, out io.Writer, catalog Catalog) *Prompter {
	return &Prompter{
		in:      bufio.NewReader(in),
		out:     out,
		catalog: catalog,
	}
}

// Select runs the language, tone and voice menus in that order, skipping
// any choice supplied through preset.
func (p *Prompter) Select(preset Preset) (Selection, error) {
	var (
		sel Selection
		err error
	)

	if preset.Language != "" {
		sel.Language = p.catalog.Language(strings.TrimSpace(preset.Language))
	} else if sel.Language, err = p.ChooseLanguage(); err != nil {
		return Selection{}, err
	}

	if preset.Tone != "" {
		sel.Tone = p.catalog.Tone(strings.TrimSpace(preset.Tone))
	} else if sel.Tone, err = p.ChooseTone(); err != nil {
		return Selection{}, err
	}

	if preset.Voice != "" {
		sel.Voice = p.catalog.Voice(strings.TrimSpace(preset.Voice))
	} else if sel.Voice, err = p.ChooseVoice(); err != nil {
		return Selection{}, err
	}

	return sel, nil
}

// ChooseLanguage prints the language menu and resolves the answer.
func (p *Prompter) ChooseLanguage() (Language, error) {
	fmt.Fprintln(p.out, "\nChoose target language:")
	for _, l := range p.catalog.Languages {
		fmt.Fprintf(p.out, "%s. %s\n", l.Key, l.Name)
	}
	answer, err := p.ask(choicePrompt)
	if err != nil {
		return Language{}, err
	}
	return p.catalog.Language(answer), nil
}

// ChooseTone prints the tone menu and resolves the answer.
func (p *Prompter) ChooseTone() (string, error) {
	fmt.Fprintln(p.out, "\nChoose tone:")
	for i, t := range p.catalog.Tones {
		fmt.Fprintf(p.out, "%d. %s\n", i+1, t)
	}
	answer, err := p.ask(choicePrompt)
	if err != nil {
		return "", err
	}
	return p.catalog.Tone(answer), nil
}

// ChooseVoice prints the voice menu and resolves the answer.
func (p *Prompter) ChooseVoice() (Voice, error) {
	fmt.Fprintln(p.out, "\nChoose voice option:")
	for _, v := range p.catalog.Voices {
		fmt.Fprintf(p.out, "%s. %s\n", v.Key, v.Description)
	}
	answer, err := p.ask(choicePrompt)
	if err != nil {
		return Voice{}, err
	}
	return p.catalog.Voice(answer), nil
}

// Confirm asks a yes/no question. Only "y" and "yes" (any case) count as yes.
func (p *Prompter) Confirm(question string) (bool, error) {
	answer, err := p.ask("\n" + question + " ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// ask prints prompt and returns the next trimmed line. A final line without
// a trailing newline is still returned; a bare EOF yields ErrNoInput.
func (p *Prompter) ask(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrNoInput
		}
		return "", fmt.Errorf("menu: read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

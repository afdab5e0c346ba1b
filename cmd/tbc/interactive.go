package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/wippyai/tickcodec/codec"
	"github.com/wippyai/tickcodec/expr"
	"github.com/wippyai/tickcodec/schema"
)

type interactiveModel struct {
	err      error
	set      *schema.Set
	compiler *codec.Compiler
	filename string
	result   string
	classes  []classInfo
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type classInfo struct {
	class  *schema.RecordClass
	codec  *codec.Codec
	fields []*schema.Field
}

type modelState int

const (
	stateSelectClass modelState = iota
	stateInputFields
	stateShowResult
)

func newInteractiveModel(set *schema.Set, filename string) *interactiveModel {
	return &interactiveModel{
		set:      set,
		filename: filename,
		state:    stateSelectClass,
	}
}

type loadedMsg struct {
	err      error
	compiler *codec.Compiler
	classes  []classInfo
}

type encodeResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.compileClasses
}

// compileClasses compiles every concrete class up front so that layout
// problems show before any input is typed.
func (m *interactiveModel) compileClasses() tea.Msg {
	cc := codec.NewCompiler(codec.WithSet(m.set))
	var classes []classInfo
	for _, c := range m.set.Classes() {
		if c.Abstract {
			continue
		}
		cdc, err := cc.Compile(c)
		if err != nil {
			return loadedMsg{err: err}
		}
		ci := classInfo{class: c, codec: cdc}
		for _, f := range c.AllFields() {
			if !f.Static {
				ci.fields = append(ci.fields, f)
			}
		}
		classes = append(classes, ci)
	}
	if len(classes) == 0 {
		return loadedMsg{err: fmt.Errorf("no concrete classes in %s", m.filename)}
	}
	return loadedMsg{compiler: cc, classes: classes}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateInputFields {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectClass && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectClass && m.selected < len(m.classes)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectClass:
				if len(m.classes) == 0 {
					return m, nil
				}
				m.prepareInputs()
				m.state = stateInputFields
				return m, nil

			case stateInputFields:
				return m, m.encodeRecord

			case stateShowResult:
				m.state = stateInputFields
				m.result = ""
				m.err = nil
			}

		case "tab", "shift+tab":
			if m.state == stateInputFields && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				step := 1
				if msg.String() == "shift+tab" {
					step = len(m.inputs) - 1
				}
				m.focusIdx = (m.focusIdx + step) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputFields:
				m.state = stateSelectClass
				m.inputs = nil
			case stateShowResult:
				m.state = stateInputFields
				m.result = ""
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.classes = msg.classes
		m.compiler = msg.compiler

	case encodeResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputFields {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

// prepareInputs makes one input per wire field plus a trailing one for
// an expression.
func (m *interactiveModel) prepareInputs() {
	ci := m.classes[m.selected]
	m.inputs = make([]textinput.Model, len(ci.fields)+1)
	for i, f := range ci.fields {
		ti := textinput.New()
		ti.Placeholder = "null"
		if f.Default != nil {
			ti.Placeholder = f.Default.Text
		}
		ti.Prompt = f.Name + ": "
		ti.Width = 40
		m.inputs[i] = ti
	}
	ti := textinput.New()
	ti.Placeholder = "optional"
	ti.Prompt = "expr: "
	ti.Width = 60
	m.inputs[len(ci.fields)] = ti
	m.inputs[0].Focus()
	m.focusIdx = 0
}

// encodeRecord folds each input as a literal of its field type, so the
// inputs follow the same text rules as schema defaults. Empty inputs keep
// the default.
func (m *interactiveModel) encodeRecord() tea.Msg {
	ci := m.classes[m.selected]
	rec := ci.codec.NewRecord()
	for i, f := range ci.fields {
		text := strings.TrimSpace(m.inputs[i].Value())
		if text == "" {
			continue
		}
		v, err := codec.Fold(f.Type, schema.Literal{Text: text})
		if err != nil {
			return encodeResultMsg{err: err}
		}
		if err := rec.Set(f.Name, v); err != nil {
			return encodeResultMsg{err: err}
		}
	}

	data, err := ci.codec.Encode(rec)
	if err != nil {
		return encodeResultMsg{err: err}
	}
	back, err := ci.codec.Decode(data)
	if err != nil {
		return encodeResultMsg{err: err}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", hex.EncodeToString(data), humanize.Bytes(uint64(len(data))))
	fmt.Fprintf(&b, "%s\n", back)

	src := strings.TrimSpace(m.inputs[len(ci.fields)].Value())
	if src != "" {
		prog, err := expr.Compile(src, ci.class, expr.WithSet(m.set), expr.WithCompiler(m.compiler))
		if err != nil {
			return encodeResultMsg{err: err}
		}
		v, err := prog.NewInstance().EvaluateBytes(data)
		if err != nil {
			return encodeResultMsg{err: err}
		}
		fmt.Fprintf(&b, "\n%s = %s : %s", src, codec.FormatValue(v), typeName(prog.ResultType()))
	}
	return encodeResultMsg{result: b.String()}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if len(m.classes) == 0 {
		return "Compiling classes..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Record Codec"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectClass:
		b.WriteString("Select a class to encode:\n\n")
		for i, ci := range m.classes {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + m.formatClass(ci)))
			} else {
				b.WriteString("  " + m.formatClass(ci))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter edit • q quit"))

	case stateInputFields:
		ci := m.classes[m.selected]
		b.WriteString(fmt.Sprintf("New %s\n\n", classStyle.Render(ci.class.Name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			if i < len(ci.fields) {
				b.WriteString(" ")
				b.WriteString(typeStyle.Render(typeName(ci.fields[i].Type)))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter encode • esc back"))

	case stateShowResult:
		ci := m.classes[m.selected]
		b.WriteString(fmt.Sprintf("Encoded %s:\n\n", classStyle.Render(ci.class.Name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter edit again • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatClass(ci classInfo) string {
	var fields []string
	for _, f := range ci.fields {
		fields = append(fields, f.Name+": "+typeStyle.Render(typeName(f.Type)))
	}
	size := "var"
	if n, fixed := ci.codec.FixedSize(); fixed {
		size = humanize.Bytes(uint64(n))
	}
	return classStyle.Render(ci.class.Name) + "(" + strings.Join(fields, ", ") + ") " + helpStyle.Render(size)
}

func runInteractive(set *schema.Set, filename string) error {
	p := tea.NewProgram(newInteractiveModel(set, filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

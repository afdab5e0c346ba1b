package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"

	"github.com/wippyai/tickcodec/codec"
	"github.com/wippyai/tickcodec/schema"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	classStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// styles holds the output styles, plain when stdout is not a terminal.
type styles struct {
	class, typ, expr, value, result, label, header lipgloss.Style
}

func newStyles(f *os.File) styles {
	if !term.IsTerminal(int(f.Fd())) || os.Getenv("NO_COLOR") != "" {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain, plain}
	}
	return styles{
		class:  classStyle,
		typ:    typeStyle,
		expr:   classStyle,
		value:  lipgloss.NewStyle(),
		result: resultStyle,
		label:  helpStyle,
		header: lipgloss.NewStyle().Bold(true),
	}
}

func renderClasses(st styles, set *schema.Set) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("CLASS", "PARENT", "FIELDS", "FINGERPRINT", "GUID").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return st.header
			}
			if col == 0 {
				return st.class
			}
			return lipgloss.NewStyle()
		})
	for _, c := range set.Classes() {
		name := c.Name
		if c.Abstract {
			name += " (abstract)"
		}
		parent := "-"
		if c.Parent != nil {
			parent = c.Parent.Name
		}
		t.Row(name, parent, strconv.Itoa(len(c.AllFields())), fmt.Sprintf("%016x", c.Fingerprint()), c.GUID())
	}
	return t.String()
}

func renderLayout(st styles, cdc *codec.Codec) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("FIELD", "TYPE", "OFFSET", "WIDTH").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return st.header
			case col == 1:
				return st.typ
			}
			return lipgloss.NewStyle()
		})
	for _, fl := range cdc.Layout() {
		offset, width := "-", "var"
		switch {
		case fl.Static:
			offset, width = "static", "0"
		case fl.Offset >= 0:
			offset = strconv.Itoa(fl.Offset)
		}
		if fl.Width > 0 {
			width = strconv.Itoa(fl.Width)
		}
		t.Row(fl.Name, typeName(fl.Type), offset, width)
	}

	size := "variable"
	if n, fixed := cdc.FixedSize(); fixed {
		size = strconv.Itoa(n) + " bytes"
	}
	return fmt.Sprintf("%s %s, %s\n%s",
		st.class.Render(cdc.Class().Name),
		st.label.Render(fmt.Sprintf("fingerprint %016x", cdc.Fingerprint())),
		size, t.String())
}

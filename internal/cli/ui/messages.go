// Package ui renders CLI messages and tables.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Level is the severity of a message
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

// Message describes a problem and what to do about it
type Message struct {
	Level       Level
	Context     string
	Problem     string
	Detail      string
	Suggestions []string
	Hints       []string
	NoColor     bool
}

// Format renders m. Example output:
//
//	✗ UNKNOWN KEY STYLE: snak
//	   Did you mean: snake?
//
//	   → List styles: serialkit styles
func Format(m Message) string {
	var b strings.Builder

	var header, body *color.Color
	var symbol string
	switch m.Level {
	case LevelWarning:
		header = color.New(color.FgYellow, color.Bold)
		body = color.New(color.FgYellow)
		symbol = "!"
	case LevelInfo:
		header = color.New(color.FgCyan, color.Bold)
		body = color.New(color.FgCyan)
		symbol = "i"
	default:
		header = color.New(color.FgRed, color.Bold)
		body = color.New(color.FgRed)
		symbol = "✗"
	}
	if m.NoColor {
		header.DisableColor()
		body.DisableColor()
	}

	if m.Context != "" {
		header.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(m.Context), m.Problem)
	} else {
		header.Fprintf(&b, "%s %s\n", symbol, m.Problem)
	}

	if m.Detail != "" {
		body.Fprintf(&b, "   %s\n", m.Detail)
	}

	if len(m.Suggestions) > 0 {
		yellow := color.New(color.FgYellow)
		if m.NoColor {
			yellow.DisableColor()
		}
		yellow.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(m.Suggestions, ", "))
	}

	if len(m.Hints) > 0 {
		b.WriteString("\n")
		cyan := color.New(color.FgCyan)
		if m.NoColor {
			cyan.DisableColor()
		}
		for _, hint := range m.Hints {
			cyan.Fprintf(&b, "   → %s\n", hint)
		}
	}

	return b.String()
}

// Write writes a formatted message to w
func Write(w io.Writer, m Message) {
	fmt.Fprint(w, Format(m))
}

// Success formats a success line
func Success(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// UnknownStyleError reports a key style name that could not be parsed
func UnknownStyleError(name string, known []string, noColor bool) string {
	return Format(Message{
		Level:       LevelError,
		Context:     "unknown key style",
		Problem:     name,
		Suggestions: Suggest(name, known),
		Hints:       []string{"List styles: serialkit styles"},
		NoColor:     noColor,
	})
}

// ConfigError reports an unusable configuration file
func ConfigError(err error, noColor bool) string {
	return Format(Message{
		Level:   LevelError,
		Context: "configuration error",
		Problem: err.Error(),
		Hints: []string{
			"Create a config file: serialkit init",
			"Get help: serialkit --help",
		},
		NoColor: noColor,
	})
}

// InputError reports a document that is not valid JSON
func InputError(source string, err error, noColor bool) string {
	return Format(Message{
		Level:   LevelError,
		Context: "invalid input",
		Problem: source,
		Detail:  err.Error(),
		NoColor: noColor,
	})
}

// Warning formats a warning
func Warning(message string, noColor bool) string {
	return Format(Message{Level: LevelWarning, Problem: message, NoColor: noColor})
}

// Package neoconsole speaks the NeoConsole line protocol: a persistent
// telnet-style listener inside a Pharo image that reads commands and
// answers free-form text terminated by its prompt.
package neoconsole

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed reports reply bytes with no recognizable delimiter.
var ErrMalformed = errors.New("neoconsole: reply has no prompt or farewell marker")

// Prompt delimits the end of every console reply.
const Prompt = "pharo>"

// Command is one logical console request before wire framing.
type Command struct {
	// Keyword selects the console verb: eval, get, describe, history, quit.
	Keyword string
	// Argument is passed through verbatim; for eval it is the raw
	// Smalltalk expression, never parsed or escaped here.
	Argument string
}

// Encode frames the command for the console. The eval verb needs a blank
// line to trigger execution; other verbs run on end of line.
func (c Command) Encode() []byte {
	kw := c.Keyword
	if kw == "" {
		kw = "eval"
	}
	arg := c.Argument
	if kw == "eval" {
		return []byte(kw + " " + arg + "\n\n")
	}
	if strings.TrimSpace(arg) == "" {
		return []byte(kw + "\n")
	}
	return []byte(kw + " " + arg + "\n")
}

// Line returns the command as a single log-friendly line.
func (c Command) Line() string {
	if strings.TrimSpace(c.Argument) == "" {
		return c.Keyword
	}
	return c.Keyword + " " + strings.ReplaceAll(c.Argument, "\n", " ")
}

// EvalError is a runtime error reported by the Pharo side, carried
// verbatim.
type EvalError struct {
	Message string
}

func (e *EvalError) Error() string { return e.Message }

// errorMarkers identify console output describing a failed evaluation.
// Only the first payload line is inspected so method source containing
// these words is not misclassified.
var errorMarkers = []string{
	"Error:",
	"Error class:",
	"doesNotUnderstand:",
	"MessageNotUnderstood",
	"ZeroDivide",
	"SyntaxErrorNotification",
}

// Decode extracts the payload from raw console output captured up to a
// prompt. It strips the greeting, the echo of this command, and prompt
// markers, then classifies error reports.
func (c Command) Decode(raw string) (string, error) {
	// A complete reply is delimited by the prompt or the session
	// farewell; anything else is not console output we can interpret.
	if raw != "" && !strings.Contains(raw, Prompt) && !strings.Contains(raw, "Bye!") {
		return "", ErrMalformed
	}
	echo := strings.TrimSpace(c.Line())
	var kept []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)

		// Greeting and VM banner lines.
		if strings.HasPrefix(trimmed, "NeoConsole") ||
			strings.Contains(trimmed, "SNAPSHOT.build") ||
			strings.Contains(trimmed, "Bit)") {
			continue
		}
		if trimmed == "quit" || trimmed == "Bye!" {
			break
		}
		// Prompt lines carry either the echo of our input or, when the
		// reply shares a line with the next prompt, the result itself.
		if strings.HasPrefix(trimmed, Prompt) {
			rest := strings.TrimSpace(strings.TrimPrefix(trimmed, Prompt))
			if rest == "" || (echo != "" && strings.Contains(rest, echo)) {
				continue
			}
			kept = append(kept, rest)
			continue
		}
		if echo != "" && trimmed == echo {
			continue
		}
		if trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	payload := strings.Join(kept, "\n")
	first := payload
	if i := strings.IndexByte(payload, '\n'); i >= 0 {
		first = payload[:i]
	}
	for _, marker := range errorMarkers {
		if strings.Contains(first, marker) {
			return "", &EvalError{Message: payload}
		}
	}
	return payload, nil
}

// EvalCommand wraps a raw Smalltalk expression in the eval verb.
func EvalCommand(expression string) Command {
	return Command{Keyword: "eval", Argument: expression}
}

// MetricCommand asks the console for a runtime metric such as
// memory.free or system.status.
func MetricCommand(metric string) Command {
	return Command{Keyword: "get", Argument: metric}
}

// CommentOf builds the expression returning a class comment.
func CommentOf(class string) Command {
	return EvalCommand(fmt.Sprintf("%s comment", class))
}

// DefinitionOf builds the expression returning a class definition.
func DefinitionOf(class string) Command {
	return EvalCommand(fmt.Sprintf("%s definitionString", class))
}

// SelectorsOf builds the expression listing a class's method selectors.
func SelectorsOf(class string) Command {
	return EvalCommand(fmt.Sprintf("%s selectors", class))
}

// SourceOf builds the expression returning one method's source.
func SourceOf(class, selector string) Command {
	return EvalCommand(fmt.Sprintf("%s sourceCodeAt: #%s", class, selector))
}

// MetacelloLoad builds the expression installing a package by baseline.
func MetacelloLoad(baseline, repository string) Command {
	return EvalCommand(fmt.Sprintf("Metacello new\n  baseline: '%s';\n  repository: '%s';\n  load.", baseline, repository))
}

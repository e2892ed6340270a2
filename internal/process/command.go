package process

import (
	"errors"
	"strings"
	"unicode"
)

var errUnterminated = errors.New("unterminated quote or escape in command")

// parseCommand splits a command line into arguments with shell-like quoting:
// single quotes are literal, double quotes allow backslash escapes, and an
// unquoted backslash escapes the next character. No expansion is done.
func parseCommand(command string) ([]string, error) {
	var (
		args    []string
		arg     strings.Builder
		inArg   bool
		quote   rune
		escaped bool
	)

	for _, r := range command {
		switch {
		case escaped:
			arg.WriteRune(r)
			escaped = false
		case quote == '\'':
			if r == '\'' {
				quote = 0
			} else {
				arg.WriteRune(r)
			}
		case r == '\\':
			escaped, inArg = true, true
		case quote == '"':
			if r == '"' {
				quote = 0
			} else {
				arg.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote, inArg = r, true
		case unicode.IsSpace(r):
			if inArg {
				args = append(args, arg.String())
				arg.Reset()
				inArg = false
			}
		default:
			arg.WriteRune(r)
			inArg = true
		}
	}

	if quote != 0 || escaped {
		return nil, errUnterminated
	}
	if inArg {
		args = append(args, arg.String())
	}
	return args, nil
}

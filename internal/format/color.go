package format

import (
	"io"
	"os"
	"strconv"
	"strings"

	"agentwatch/internal/model"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

const (
	ansiReset      = "\x1b[0m"
	ansiTimestamp  = "\x1b[36m"
	ansiExec       = "\x1b[33m"
	ansiThinking   = "\x1b[32m"
	ansiWebSearch  = "\x1b[35m"
	ansiWebFetch   = "\x1b[34m"
	ansiFile       = "\x1b[94m"
	ansiOther      = "\x1b[37m"
	defaultColumns = 80
)

func colorize(enabled bool, code string, text string) string {
	if !enabled {
		return text
	}
	return code + text + ansiReset
}

func kindColor(kind model.Kind) string {
	switch kind {
	case model.KindExec:
		return ansiExec
	case model.KindThinking:
		return ansiThinking
	case model.KindWebSearch:
		return ansiWebSearch
	case model.KindWebFetch:
		return ansiWebFetch
	case model.KindFile:
		return ansiFile
	default:
		return ansiOther
	}
}

// ResolveColor decides whether output to out is colorized. choice is one of
// "always", "never" or "auto"; auto honours NO_COLOR and enables color only
// when out is a terminal.
func ResolveColor(choice string, out io.Writer) bool {
	switch strings.ToLower(choice) {
	case "always":
		return true
	case "never":
		return false
	}
	return shouldUseColorAuto(out)
}

func shouldUseColorAuto(out io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// TerminalWidth reports the column count of out, falling back to $COLUMNS
// and then 80.
func TerminalWidth(out io.Writer) int {
	if file, ok := out.(*os.File); ok {
		if w, _, err := term.GetSize(int(file.Fd())); err == nil && w > 0 {
			return w
		}
	}
	if colsStr := os.Getenv("COLUMNS"); colsStr != "" {
		if v, err := strconv.Atoi(colsStr); err == nil && v > 0 {
			return v
		}
	}
	return defaultColumns
}

// Package console renders human-facing CLI output: colored status lines and
// simple tables, degrading to plain text when stdout is not a terminal.
package console

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/nyxreleaseng/nyx/pkg/logger"
	"github.com/nyxreleaseng/nyx/pkg/styles"
	"github.com/nyxreleaseng/nyx/pkg/tty"
)

var consoleLog = logger.New("console")

// isTTY checks if stdout is a terminal.
func isTTY() bool {
	return tty.IsStdoutTerminal()
}

// applyStyle conditionally applies styling based on TTY status.
func applyStyle(style lipgloss.Style, text string) string {
	if isTTY() {
		return style.Render(text)
	}
	return text
}

// FormatSuccessMessage formats a success message with styling.
func FormatSuccessMessage(message string) string {
	return applyStyle(styles.Success, "✓ ") + message
}

// FormatInfoMessage formats an informational message.
func FormatInfoMessage(message string) string {
	return applyStyle(styles.Info, "ℹ ") + message
}

// FormatWarningMessage formats a warning message.
func FormatWarningMessage(message string) string {
	return applyStyle(styles.Warning, "⚠ ") + message
}

// FormatErrorMessage formats an error message for stderr output.
func FormatErrorMessage(message string) string {
	return applyStyle(styles.Error, "✗ ") + message
}

// FormatVerboseMessage formats verbose/debug output.
func FormatVerboseMessage(message string) string {
	return applyStyle(styles.Verbose, "… ") + message
}

// FormatCommandMessage formats a shell/network command being invoked.
func FormatCommandMessage(command string) string {
	return applyStyle(styles.Command, "$ ") + command
}

// FormatLocationMessage formats a file or directory location message.
func FormatLocationMessage(message string) string {
	return applyStyle(styles.Location, "→ ") + message
}

// FormatListItem formats an item in a list.
func FormatListItem(item string) string {
	return applyStyle(styles.ListItem, "  • "+item)
}

// FormatListHeader formats a section header for a list.
func FormatListHeader(header string) string {
	return applyStyle(styles.ListHeader, header)
}

// TableConfig configures a rendered table.
type TableConfig struct {
	Headers []string
	Rows    [][]string
	Title   string
}

// RenderTable renders a formatted table, e.g. the list of release types or
// changelog sections under consideration.
func RenderTable(config TableConfig) string {
	if len(config.Headers) == 0 {
		consoleLog.Print("no headers provided for table rendering")
		return ""
	}

	consoleLog.Printf("rendering table: title=%s columns=%d rows=%d", config.Title, len(config.Headers), len(config.Rows))

	var output strings.Builder
	if config.Title != "" {
		output.WriteString(applyStyle(styles.TableTitle, config.Title))
		output.WriteString("\n")
	}

	styleFunc := func(row, col int) lipgloss.Style {
		if !isTTY() {
			return lipgloss.NewStyle()
		}
		if row == table.HeaderRow {
			return styles.TableHeader
		}
		return styles.TableCell
	}

	t := table.New().
		Headers(config.Headers...).
		Rows(config.Rows...).
		Border(styles.ASCIIBorder).
		BorderStyle(styles.TableBorder).
		StyleFunc(styleFunc)

	output.WriteString(t.String())
	output.WriteString("\n")
	return output.String()
}

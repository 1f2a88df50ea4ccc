// Package bot interprets chat commands sent to the Planner bot.
package bot

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Kind identifies a parsed command.
type Kind int

const (
	KindUnknown Kind = iota
	KindLink
	KindHelp
	KindStatus
	KindBoards
	KindCreateCard
)

func (k Kind) String() string {
	switch k {
	case KindLink:
		return "link"
	case KindHelp:
		return "help"
	case KindStatus:
		return "status"
	case KindBoards:
		return "boards"
	case KindCreateCard:
		return "create_card"
	default:
		return "unknown"
	}
}

var keywords = map[string]Kind{
	"conectar": KindLink,
	"vincular": KindLink,
	"link":     KindLink,
	"ayuda":    KindHelp,
	"help":     KindHelp,
	"estado":   KindStatus,
	"status":   KindStatus,
	"tableros": KindBoards,
	"boards":   KindBoards,
	"/tarea":   KindCreateCard,
	"tarea":    KindCreateCard,
	"/card":    KindCreateCard,
	"card":     KindCreateCard,
}

// CardIntent holds the fields of a create-card request. Empty means absent.
type CardIntent struct {
	Board       string
	Title       string
	Column      string
	Description string
	Priority    string
	Due         string
}

// Complete reports whether the intent names a board and a title.
func (c CardIntent) Complete() bool {
	return c.Board != "" && c.Title != ""
}

// Command is one parsed chat message.
type Command struct {
	Kind Kind
	Text string
	Card CardIntent
}

var (
	atTag    = regexp.MustCompile(`(?s)<at>.*?</at>`)
	argValue = regexp.MustCompile(`([\p{L}_]+)\s*=\s*(?:"([^"]*)"|“([^”]*)”|(\S+))`)
)

// Parse reads a chat line. Keywords are case-insensitive; mentions of the
// bot itself are ignored.
func Parse(text string) Command {
	cleaned := strings.TrimSpace(atTag.ReplaceAllString(text, ""))
	cmd := Command{Text: cleaned}

	fields := strings.Fields(cleaned)
	if len(fields) == 0 {
		return cmd
	}
	kind, ok := keywords[strings.ToLower(fields[0])]
	if !ok {
		return cmd
	}
	if kind != KindCreateCard {
		if len(fields) == 1 {
			cmd.Kind = kind
		}
		return cmd
	}

	cmd.Kind = KindCreateCard
	rest := strings.TrimSpace(cleaned[len(fields[0]):])
	for _, m := range argValue.FindAllStringSubmatch(rest, -1) {
		value := m[2] + m[3] + m[4]
		cmd.Card.set(m[1], value)
	}
	return cmd
}

// set assigns value to the field named by key, in Spanish or English.
// Unknown keys are ignored.
func (c *CardIntent) set(key, value string) {
	value = strings.TrimSpace(value)
	switch strings.ToLower(key) {
	case "tablero", "board":
		c.Board = value
	case "titulo", "título", "title":
		c.Title = value
	case "columna", "column":
		c.Column = value
	case "descripcion", "descripción", "description":
		c.Description = value
	case "prioridad", "priority":
		c.Priority = value
	case "fecha", "due":
		c.Due = value
	}
}

// parseSubmission reads the value of an adaptive-card form submission.
func parseSubmission(raw json.RawMessage) (CardIntent, bool) {
	var values map[string]any
	if len(raw) == 0 || json.Unmarshal(raw, &values) != nil {
		return CardIntent{}, false
	}
	if action, _ := values["action"].(string); action != submitAction {
		return CardIntent{}, false
	}

	var intent CardIntent
	for key, v := range values {
		if s, ok := v.(string); ok {
			intent.set(key, s)
		}
	}
	return intent, true
}

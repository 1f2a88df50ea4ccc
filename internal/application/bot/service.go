package bot

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/plannerhq/planner/internal/adapters/botframework"
	"github.com/plannerhq/planner/internal/domain/entities"
	"github.com/plannerhq/planner/internal/infrastructure/logger"
	"github.com/plannerhq/planner/internal/infrastructure/metrics"
	"github.com/plannerhq/planner/internal/ports"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
)

// Channels that render adaptive-card forms.
var formChannels = map[string]bool{
	"msteams":  true,
	"webchat":  true,
	"emulator": true,
}

const (
	helpText = "**Comandos disponibles:**\n\n" +
		"- **conectar** - Vincula tu cuenta de Planner para recibir notificaciones\n" +
		"- **estado** - Verifica si tu cuenta está vinculada\n" +
		"- **tableros** - Lista tus tableros\n" +
		"- **/tarea** tablero=\"...\" titulo=\"...\" - Crea una tarjeta\n" +
		"- **ayuda** - Muestra este mensaje\n\n" +
		"Una vez vinculado, recibirás un mensaje personal cuando alguien te mencione en un comentario."
	usageText = "Uso: **/tarea** tablero=\"Marketing\" titulo=\"Revisar campaña\" " +
		"[columna=\"En progreso\"] [descripcion=\"...\"] [prioridad=alta] [fecha=2024-05-01]"
	notLinkedText = "Primero vincula tu cuenta de Planner: escribe **conectar**."
	failureText   = "Algo salió mal. Inténtalo de nuevo más tarde."
)

// Service answers inbound bot activities.
type Service struct {
	users     ports.UserRepository
	boards    ports.BoardService
	cards     ports.CardService
	links     ports.LinkStore
	codeTTL   time.Duration
	publicURL string
	now       func() time.Time
	metrics   *metrics.Metrics
	logger    *logger.Logger
}

func NewService(
	users ports.UserRepository,
	boards ports.BoardService,
	cards ports.CardService,
	links ports.LinkStore,
	codeTTL time.Duration,
	publicURL string,
	m *metrics.Metrics,
	log *logger.Logger,
) *Service {
	if codeTTL <= 0 {
		codeTTL = 10 * time.Minute
	}
	return &Service{
		users:     users,
		boards:    boards,
		cards:     cards,
		links:     links,
		codeTTL:   codeTTL,
		publicURL: strings.TrimRight(publicURL, "/"),
		now:       time.Now,
		metrics:   m,
		logger:    log.WithComponent("bot"),
	}
}

// Handle returns the replies for act. Unsupported activity types get none.
func (s *Service) Handle(ctx context.Context, act *botframework.Activity) ([]*botframework.Activity, error) {
	if act.From.ID == "" {
		return nil, entities.Invalid("activity has no sender")
	}

	switch act.Type {
	case botframework.TypeConversationUpdate:
		return s.welcome(act), nil
	case botframework.TypeMessage:
	default:
		return nil, nil
	}

	if intent, ok := parseSubmission(act.Value); ok {
		s.metrics.BotActivity("form_submit")
		return s.createCard(ctx, act, intent), nil
	}

	cmd := Parse(act.Text)
	s.metrics.BotActivity(cmd.Kind.String())

	switch cmd.Kind {
	case KindLink:
		return s.link(ctx, act), nil
	case KindHelp:
		return reply(act, helpText), nil
	case KindStatus:
		return s.status(ctx, act), nil
	case KindBoards:
		return s.listBoards(ctx, act), nil
	case KindCreateCard:
		return s.createCard(ctx, act, cmd.Card), nil
	default:
		return reply(act, fmt.Sprintf("No entendí \"%s\". Escribe **ayuda** para ver los comandos disponibles.", cmd.Text)), nil
	}
}

func reply(act *botframework.Activity, text string, attachments ...botframework.Attachment) []*botframework.Activity {
	r := act.Reply(text)
	r.Attachments = attachments
	return []*botframework.Activity{r}
}

func (s *Service) welcome(act *botframework.Activity) []*botframework.Activity {
	for _, m := range act.MembersAdded {
		if m.ID != act.Recipient.ID {
			s.metrics.BotActivity("welcome")
			return reply(act, "", welcomeCard())
		}
	}
	return nil
}

// fail logs an unexpected error and tells the user something went wrong.
func (s *Service) fail(act *botframework.Activity, what string, err error) []*botframework.Activity {
	s.logger.Errorw("Bot command failed", "command", what, "teams_user", act.From.ID, "error", err)
	return reply(act, failureText)
}

// linkedUser returns the Planner account bound to the sender, or nil.
func (s *Service) linkedUser(ctx context.Context, act *botframework.Activity) (*entities.User, error) {
	u, err := s.users.GetByTeamsUserID(ctx, act.From.ID)
	if errors.Is(err, entities.ErrNotFound) {
		return nil, nil
	}
	return u, err
}

func (s *Service) link(ctx context.Context, act *botframework.Activity) []*botframework.Activity {
	existing, err := s.linkedUser(ctx, act)
	if err != nil {
		return s.fail(act, "link", err)
	}
	if existing != nil {
		return reply(act, fmt.Sprintf("Ya estás vinculado a la cuenta **%s** (%s).", existing.Name, existing.Email))
	}

	ref, err := act.Reference().Encode()
	if err != nil {
		return s.fail(act, "link", err)
	}
	code, err := newLinkCode()
	if err != nil {
		return s.fail(act, "link", err)
	}
	err = s.links.Put(ctx, code, ports.PendingLink{
		TeamsUserID:     act.From.ID,
		TeamsUserName:   act.From.Name,
		ConversationRef: ref,
		ExpiresAt:       s.now().Add(s.codeTTL),
	})
	if err != nil {
		return s.fail(act, "link", err)
	}

	s.logger.Infow("Link code issued", "teams_user", act.From.ID)
	return reply(act, "", linkCodeCard(code, int(s.codeTTL.Minutes())))
}

func (s *Service) status(ctx context.Context, act *botframework.Activity) []*botframework.Activity {
	u, err := s.linkedUser(ctx, act)
	if err != nil {
		return s.fail(act, "status", err)
	}
	if u == nil {
		return reply(act, "Tu cuenta de Teams no está vinculada a ninguna cuenta de Planner. Escribe **conectar** para vincularla.")
	}
	return reply(act, fmt.Sprintf("Tu cuenta de Teams está vinculada a **%s** (%s).", u.Name, u.Email))
}

func (s *Service) listBoards(ctx context.Context, act *botframework.Activity) []*botframework.Activity {
	u, err := s.linkedUser(ctx, act)
	if err != nil {
		return s.fail(act, "boards", err)
	}
	if u == nil {
		return reply(act, notLinkedText)
	}

	boards, err := s.boards.List(ctx, u.ID)
	if err != nil {
		return s.fail(act, "boards", err)
	}
	if len(boards) == 0 {
		return reply(act, "No tienes tableros todavía.")
	}
	var b strings.Builder
	b.WriteString("**Tus tableros:**\n\n")
	for _, board := range boards {
		fmt.Fprintf(&b, "- %s\n", board.Name)
	}
	return reply(act, b.String())
}

func (s *Service) createCard(ctx context.Context, act *botframework.Activity, intent CardIntent) []*botframework.Activity {
	u, err := s.linkedUser(ctx, act)
	if err != nil {
		return s.fail(act, "create_card", err)
	}
	if u == nil {
		return reply(act, notLinkedText)
	}

	if !intent.Complete() {
		if formChannels[strings.ToLower(act.ChannelID)] {
			return reply(act, "", cardForm(intent))
		}
		return reply(act, usageText)
	}

	boards, err := s.boards.List(ctx, u.ID)
	if err != nil {
		return s.fail(act, "create_card", err)
	}
	board, ok := matchName(boards, func(b *entities.Board) string { return b.Name }, intent.Board)
	if !ok {
		return reply(act, fmt.Sprintf("No encontré ningún tablero que coincida con \"%s\".", intent.Board))
	}

	detail, err := s.boards.Get(ctx, u.ID, board.ID)
	if err != nil {
		return s.fail(act, "create_card", err)
	}
	if len(detail.Columns) == 0 {
		return reply(act, fmt.Sprintf("El tablero \"%s\" no tiene columnas. Crea una columna antes de añadir tarjetas.", board.Name))
	}
	column := detail.Columns[0]
	if intent.Column != "" {
		column, ok = matchName(detail.Columns, func(c *entities.Column) string { return c.Name }, intent.Column)
		if !ok {
			return reply(act, fmt.Sprintf("El tablero \"%s\" no tiene ninguna columna que coincida con \"%s\".", board.Name, intent.Column))
		}
	}

	req := ports.CreateCardRequest{Title: intent.Title}
	if intent.Description != "" {
		req.Description = &intent.Description
	}
	if intent.Priority != "" {
		req.Priority = &intent.Priority
	}
	if intent.Due != "" {
		req.DueDate = &intent.Due
	}
	card, err := s.cards.Create(ctx, u.ID, column.ID, req)
	switch {
	case errors.Is(err, entities.ErrInvalidInput):
		msg := strings.TrimPrefix(err.Error(), entities.ErrInvalidInput.Error()+": ")
		return reply(act, "No pude crear la tarjeta: "+msg)
	case errors.Is(err, entities.ErrForbidden):
		return reply(act, "No tienes acceso a ese tablero.")
	case err != nil:
		return s.fail(act, "create_card", err)
	}

	s.logger.LogUserAction(u.ID.String(), "bot_create_card", map[string]interface{}{"card_id": card.ID, "board_id": board.ID})
	url := fmt.Sprintf("%s/board/%s?card=%s", s.publicURL, board.ID, card.ID)
	return reply(act, fmt.Sprintf("Tarjeta **%s** creada en **%s** › **%s**.\n\n[Ver en Planner](%s)",
		card.Title, board.Name, column.Name, url))
}

// matchName finds the item whose name equals query, ignoring case, or
// failing that the first one whose name contains it.
func matchName[T any](items []T, name func(T) string, query string) (T, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	var zero T
	if q == "" {
		return zero, false
	}
	for _, it := range items {
		if strings.ToLower(name(it)) == q {
			return it, true
		}
	}
	for _, it := range items {
		if strings.Contains(strings.ToLower(name(it)), q) {
			return it, true
		}
	}
	return zero, false
}

func newLinkCode() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	code := make([]byte, codeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate link code: %w", err)
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code), nil
}

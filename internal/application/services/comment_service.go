package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/plannerhq/planner/internal/domain/entities"
	"github.com/plannerhq/planner/internal/infrastructure/logger"
	"github.com/plannerhq/planner/internal/ports"
)

// CommentService stores comments and fans out mention notifications.
type CommentService struct {
	comments  ports.CommentRepository
	cards     ports.CardRepository
	users     ports.UserRepository
	access    boardAccess
	notifier  ports.Notifier
	publicURL string
	logger    *logger.Logger
}

// NewCommentService links notifications to publicURL, the web client base.
func NewCommentService(
	comments ports.CommentRepository,
	cards ports.CardRepository,
	boards ports.BoardRepository,
	users ports.UserRepository,
	notifier ports.Notifier,
	publicURL string,
	log *logger.Logger,
) *CommentService {
	return &CommentService{
		comments:  comments,
		cards:     cards,
		users:     users,
		access:    boardAccess{boards: boards, users: users},
		notifier:  notifier,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    log.WithComponent("comments"),
	}
}

func (s *CommentService) List(ctx context.Context, actorID, cardID uuid.UUID) ([]*entities.Comment, error) {
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.access.check(ctx, actorID, card.BoardID); err != nil {
		return nil, err
	}
	return s.comments.ListByCard(ctx, cardID)
}

// Create stores the comment with one mention per distinct resolved user,
// then notifies each mentioned user other than the author.
func (s *CommentService) Create(ctx context.Context, actorID, cardID uuid.UUID, req ports.CreateCommentRequest) (*entities.Comment, error) {
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	board, actor, err := s.access.check(ctx, actorID, card.BoardID)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, entities.Invalid("comment cannot be empty")
	}

	mentioned, err := s.resolveMentions(ctx, content)
	if err != nil {
		return nil, err
	}
	mentions := make([]*entities.Mention, 0, len(mentioned))
	for _, u := range mentioned {
		mentions = append(mentions, &entities.Mention{UserID: u.ID})
	}

	comment := &entities.Comment{CardID: cardID, UserID: actorID, Content: content}
	if err := s.comments.Create(ctx, comment, mentions); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/board/%s?card=%s", s.publicURL, board.ID, card.ID)
	for _, u := range mentioned {
		if u.ID == actorID || s.notifier == nil {
			continue
		}
		s.notifier.NotifyMention(ports.MentionNotification{
			Recipient:     u,
			MentionerName: actor.Name,
			BoardName:     board.Name,
			CardTitle:     card.Title,
			Comment:       content,
			CardURL:       url,
		})
	}

	if len(mentioned) > 0 {
		s.logger.Debugw("Comment mentions resolved", "comment_id", comment.ID, "mentions", len(mentioned))
	}
	return comment, nil
}

// resolveMentions maps each token to at most one active user and drops
// duplicates, keeping first-appearance order.
func (s *CommentService) resolveMentions(ctx context.Context, content string) ([]*entities.User, error) {
	var resolved []*entities.User
	seen := make(map[uuid.UUID]bool)
	for _, token := range mentionTokens(content) {
		candidates, err := s.users.FindMentionable(ctx, token)
		if err != nil {
			return nil, err
		}
		u := bestMention(token, candidates)
		if u == nil || seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		resolved = append(resolved, u)
	}
	return resolved, nil
}

// Delete removes a comment. Only its author or an admin may do so.
func (s *CommentService) Delete(ctx context.Context, actorID, commentID uuid.UUID) error {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	actor, err := s.access.actor(ctx, actorID)
	if err != nil {
		return err
	}
	if comment.UserID != actorID && !actor.IsAdmin() {
		return entities.ErrForbidden
	}
	return s.comments.Delete(ctx, commentID)
}

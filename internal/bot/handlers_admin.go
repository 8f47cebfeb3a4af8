package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"velorent/internal/domain"
)

func (b *Bot) isStaffAction(action UserAction, user *domain.User) bool {
	if user != nil && user.IsStaff() {
		return true
	}
	return b.isAdmin(action.TelegramID())
}

// handleAdminPanel lists clients whose documents await review.
func (b *Bot) handleAdminPanel(ctx context.Context, msg *TextMessage, user *domain.User) error {
	lang, _ := b.identify(ctx, msg)
	if !b.isStaffAction(msg, user) {
		return msg.Respond(b.tr.T(lang, "errors.staff_only"), nil)
	}

	pending, err := b.review.PendingUsers(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return msg.Respond(b.tr.T(lang, "admin.no_pending"), nil)
	}
	return msg.Respond(
		b.tr.T(lang, "admin.pending_users", len(pending)),
		pendingUsersKeyboard(pending),
	)
}

// handleReviewUser shows one applicant's card and their documents, each with
// review buttons.
func (b *Bot) handleReviewUser(ctx context.Context, press *ButtonPress, reviewer *domain.User, data string) error {
	lang, _ := b.identify(ctx, press)
	if !b.isStaffAction(press, reviewer) {
		return press.Respond(b.tr.T(lang, "errors.staff_only"), nil)
	}

	userID, err := strconv.ParseInt(strings.TrimPrefix(data, cbUser), 10, 64)
	if err != nil {
		return nil
	}

	applicant, err := b.users.ByID(ctx, userID)
	if err != nil {
		return err
	}
	docs, err := b.review.UserDocuments(ctx, userID)
	if err != nil {
		return err
	}

	card := b.tr.T(lang, "admin.user_card",
		applicant.FullName, applicant.Phone, applicant.Username,
		domain.UserStatusLabels[applicant.Status])
	if err := press.Respond(card, nil); err != nil {
		return err
	}

	for _, doc := range docs {
		caption := fmt.Sprintf("%s — %s",
			domain.DocumentTypeLabels[doc.Type], domain.DocumentStatusLabels[doc.Status])
		if err := press.Respond(caption, reviewKeyboard(b.tr, lang, doc.ID)); err != nil {
			return err
		}
	}
	return nil
}

// handleReviewDecision applies one approve/reject/revision button press.
func (b *Bot) handleReviewDecision(ctx context.Context, press *ButtonPress, reviewer *domain.User, data string) error {
	lang, _ := b.identify(ctx, press)
	if !b.isStaffAction(press, reviewer) {
		return press.Respond(b.tr.T(lang, "errors.staff_only"), nil)
	}

	parts := strings.SplitN(strings.TrimPrefix(data, cbReview), ":", 2)
	if len(parts) != 2 {
		return nil
	}
	docID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil
	}
	status := domain.DocumentStatus(parts[1])

	var reviewerID int64
	if reviewer != nil {
		reviewerID = reviewer.ID
	}
	decision, err := b.review.ReviewDocument(ctx, docID, status, reviewerID, "")
	if err != nil {
		return err
	}

	return press.Respond(
		b.tr.T(lang, "admin.review_done", domain.DocumentStatusLabels[decision.Document.Status]),
		nil,
	)
}

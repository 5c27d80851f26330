package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fitconnect/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultStoreTimeout = 5 * time.Second

// MembershipService owns every mutation of the relationship tables: event
// membership, chat membership, follow edges and post likes. Each operation
// is an idempotent state transition that fails fast with a typed error on
// precondition violation.
//
// Check-then-act pairs (the capacity-checked join, the cascade delete of an
// empty chat) run inside a transaction AND under a per-key lock, so two
// concurrent joins against the same event serialize before either reads the
// member count. Unique indexes on all pair keys backstop duplicate inserts.
type MembershipService struct {
	DB           *gorm.DB
	storeTimeout time.Duration
	locks        *keyedMutex
}

func NewMembershipService(db *gorm.DB) *MembershipService {
	return &MembershipService{
		DB:           db,
		storeTimeout: defaultStoreTimeout,
		locks:        newKeyedMutex(),
	}
}

// SetStoreTimeout overrides the per-operation deadline. Zero disables it.
func (s *MembershipService) SetStoreTimeout(d time.Duration) {
	s.storeTimeout = d
}

func (s *MembershipService) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

// JoinEvent admits userID to the event unless the event is full or the user
// already attends. The count check and the insert run under the event's key
// lock so concurrent joins cannot both pass the capacity check.
func (s *MembershipService) JoinEvent(ctx context.Context, eventID, userID uuid.UUID) (*models.EventMembership, error) {
	unlock := s.locks.Lock(eventID)
	defer unlock()

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	membership := models.EventMembership{EventID: eventID, UserID: userID}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event models.Event
		if err := tx.First(&event, "id = ?", eventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var existing models.EventMembership
		err := tx.First(&existing, "event_id = ? AND user_id = ?", eventID, userID).Error
		if err == nil {
			return ErrAlreadyMember
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if event.MaxParticipants != nil {
			var count int64
			if err := tx.Model(&models.EventMembership{}).Where("event_id = ?", eventID).Count(&count).Error; err != nil {
				return err
			}
			if count >= int64(*event.MaxParticipants) {
				return ErrCapacityExceeded
			}
		}

		return tx.Create(&membership).Error
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	return &membership, nil
}

// LeaveEvent is idempotent: removing an absent membership is a no-op.
func (s *MembershipService) LeaveEvent(ctx context.Context, eventID, userID uuid.UUID) error {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	var event models.Event
	if err := s.DB.WithContext(ctx).First(&event, "id = ?", eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return asServiceError(err)
	}

	err := s.DB.WithContext(ctx).
		Delete(&models.EventMembership{}, "event_id = ? AND user_id = ?", eventID, userID).Error
	return asServiceError(err)
}

// CreatePrivateChat returns the existing private chat between the two users
// when one exists, so a retried call never creates a duplicate conversation.
func (s *MembershipService) CreatePrivateChat(ctx context.Context, callerID, otherID uuid.UUID) (*models.Chat, error) {
	if callerID == otherID {
		return nil, ErrInvalidInput
	}

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	var other models.User
	if err := s.DB.WithContext(ctx).First(&other, "id = ?", otherID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, asServiceError(err)
	}

	var existing models.Chat
	err := s.DB.WithContext(ctx).
		Joins("JOIN chat_members a ON a.chat_id = chats.id AND a.user_id = ?", callerID).
		Joins("JOIN chat_members b ON b.chat_id = chats.id AND b.user_id = ?", otherID).
		Where("chats.is_group = ?", false).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, asServiceError(err)
	}

	chat := models.Chat{IsGroup: false}
	now := time.Now().UTC()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&chat).Error; err != nil {
			return err
		}
		for _, memberID := range []uuid.UUID{callerID, otherID} {
			membership := models.ChatMembership{
				ChatID:   chat.ID,
				UserID:   memberID,
				State:    models.ChatMemberActive,
				JoinedAt: &now,
			}
			if err := tx.Create(&membership).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	return &chat, nil
}

// CreateGroupChat creates the chat and immediately-active memberships for
// the creator plus every listed member. Initial members skip the pending
// phase; only later invitations go through it.
func (s *MembershipService) CreateGroupChat(ctx context.Context, creatorID uuid.UUID, name string, memberIDs []uuid.UUID) (*models.Chat, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(memberIDs) == 0 {
		return nil, ErrInvalidInput
	}

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	seen := map[uuid.UUID]bool{creatorID: true}
	members := []uuid.UUID{creatorID}
	for _, id := range memberIDs {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		members = append(members, id)
	}

	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).Where("id IN ?", members).Count(&count).Error; err != nil {
		return nil, asServiceError(err)
	}
	if count != int64(len(members)) {
		return nil, ErrNotFound
	}

	chat := models.Chat{IsGroup: true, Name: name}
	now := time.Now().UTC()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&chat).Error; err != nil {
			return err
		}
		for _, memberID := range members {
			membership := models.ChatMembership{
				ChatID:   chat.ID,
				UserID:   memberID,
				State:    models.ChatMemberActive,
				JoinedAt: &now,
			}
			if err := tx.Create(&membership).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	return &chat, nil
}

// InviteToGroup creates a pending membership for the invitee. Only active
// members of a group chat may invite.
func (s *MembershipService) InviteToGroup(ctx context.Context, chatID, inviterID, inviteeID uuid.UUID) (*models.ChatMembership, error) {
	unlock := s.locks.Lock(chatID)
	defer unlock()

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	membership := models.ChatMembership{
		ChatID: chatID,
		UserID: inviteeID,
		State:  models.ChatMemberPending,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chat models.Chat
		if err := tx.First(&chat, "id = ?", chatID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !chat.IsGroup {
			return ErrNotAGroupChat
		}

		var inviter models.ChatMembership
		err := tx.First(&inviter, "chat_id = ? AND user_id = ?", chatID, inviterID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !inviter.IsActive()) {
			return ErrInviterNotMember
		}
		if err != nil {
			return err
		}

		var invitee models.User
		if err := tx.First(&invitee, "id = ?", inviteeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var existing models.ChatMembership
		err = tx.First(&existing, "chat_id = ? AND user_id = ?", chatID, inviteeID).Error
		if err == nil {
			return ErrAlreadyInvitedOrMember
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		return tx.Create(&membership).Error
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	return &membership, nil
}

// AcceptInvitation flips a pending membership to active and stamps
// JoinedAt. This is the only in-place mutation in the relationship model.
func (s *MembershipService) AcceptInvitation(ctx context.Context, chatID, userID uuid.UUID) (*models.Chat, error) {
	unlock := s.locks.Lock(chatID)
	defer unlock()

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	var chat models.Chat

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var membership models.ChatMembership
		err := tx.First(&membership, "chat_id = ? AND user_id = ? AND state = ?", chatID, userID, models.ChatMemberPending).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoPendingInvitation
		}
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := tx.Model(&models.ChatMembership{}).
			Where("id = ?", membership.ID).
			Updates(map[string]interface{}{"state": models.ChatMemberActive, "joined_at": now}).Error; err != nil {
			return err
		}

		return tx.First(&chat, "id = ?", chatID).Error
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	return &chat, nil
}

// RejectInvitation deletes the pending row outright.
func (s *MembershipService) RejectInvitation(ctx context.Context, chatID, userID uuid.UUID) error {
	unlock := s.locks.Lock(chatID)
	defer unlock()

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	result := s.DB.WithContext(ctx).
		Where("chat_id = ? AND user_id = ? AND state = ?", chatID, userID, models.ChatMemberPending).
		Delete(&models.ChatMembership{})
	if result.Error != nil {
		return asServiceError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNoPendingInvitation
	}
	return nil
}

// LeaveGroup removes the caller's membership. A chat with zero remaining
// membership rows is garbage and deleted along with its messages; the count
// and the delete run under the chat's key lock so a concurrent invite
// cannot make the count stale.
func (s *MembershipService) LeaveGroup(ctx context.Context, chatID, userID uuid.UUID) error {
	unlock := s.locks.Lock(chatID)
	defer unlock()

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chat models.Chat
		if err := tx.First(&chat, "id = ?", chatID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := tx.Delete(&models.ChatMembership{}, "chat_id = ? AND user_id = ?", chatID, userID).Error; err != nil {
			return err
		}

		var remaining int64
		if err := tx.Model(&models.ChatMembership{}).Where("chat_id = ?", chatID).Count(&remaining).Error; err != nil {
			return err
		}
		if remaining > 0 {
			return nil
		}

		if err := tx.Delete(&models.Message{}, "chat_id = ?", chatID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Chat{}, "id = ?", chatID).Error
	})
	return asServiceError(err)
}

// Follow is deliberately strict: following an already-followed user is an
// error rather than a silent no-op, matching the Unfollow side. The check and
// the insert run under the follower's key lock so a doubled-up request gets
// ErrAlreadyFollowing instead of tripping the unique index.
func (s *MembershipService) Follow(ctx context.Context, userID, targetID uuid.UUID) (*models.FollowEdge, error) {
	if userID == targetID {
		return nil, ErrSelfFollowForbidden
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	var edge models.FollowEdge
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target models.User
		if err := tx.First(&target, "id = ?", targetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var existing models.FollowEdge
		err := tx.First(&existing, "user_id = ? AND following_id = ?", userID, targetID).Error
		if err == nil {
			return ErrAlreadyFollowing
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		edge = models.FollowEdge{UserID: userID, FollowingID: targetID}
		return tx.Create(&edge).Error
	})
	if err != nil {
		return nil, asServiceError(err)
	}
	return &edge, nil
}

func (s *MembershipService) Unfollow(ctx context.Context, userID, targetID uuid.UUID) error {
	if userID == targetID {
		return ErrSelfFollowForbidden
	}

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	result := s.DB.WithContext(ctx).
		Delete(&models.FollowEdge{}, "user_id = ? AND following_id = ?", userID, targetID)
	if result.Error != nil {
		return asServiceError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFollowing
	}
	return nil
}

type LikeAction string

const (
	LikeActionLiked    LikeAction = "liked"
	LikeActionDisliked LikeAction = "disliked"
)

// ToggleLike is a pure toggle: repeated calls alternate between liked and
// disliked with no error path for a double like.
func (s *MembershipService) ToggleLike(ctx context.Context, postID, userID uuid.UUID) (LikeAction, error) {
	unlock := s.locks.Lock(postID)
	defer unlock()

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	var action LikeAction

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, "id = ?", postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		result := tx.Delete(&models.PostLike{}, "post_id = ? AND user_id = ?", postID, userID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			action = LikeActionDisliked
			return nil
		}

		action = LikeActionLiked
		like := models.PostLike{PostID: postID, UserID: userID}
		return tx.Create(&like).Error
	})
	if err != nil {
		return "", asServiceError(err)
	}

	return action, nil
}

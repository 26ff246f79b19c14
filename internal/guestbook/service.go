package guestbook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"portfolio/internal/events"
	"portfolio/internal/logging"
	"portfolio/internal/models"
	"portfolio/internal/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// MaxRoots is the number of root threads returned by ListEntries.
	MaxRoots = 50
	// PageKey is the page cache key revalidated after every mutation.
	PageKey = "/guestbook"

	listTTL = time.Minute
)

// Notifier is told about replies to another user's entry.
type Notifier interface {
	GuestbookReply(recipient *models.User, reply *models.GuestbookEntry)
}

type Service struct {
	db       *gorm.DB
	bus      *events.Bus
	cache    *utils.PageCache
	notifier Notifier
}

// NewService wires the guestbook to its store, event bus and page cache.
// notifier may be nil.
func NewService(db *gorm.DB, bus *events.Bus, cache *utils.PageCache, notifier Notifier) *Service {
	return &Service{db: db, bus: bus, cache: cache, notifier: notifier}
}

// AddEntryInput describes a new root entry (ParentID empty) or reply.
type AddEntryInput struct {
	Message  string
	AuthorID string
	ParentID string
	// MentionedUserID is the parent author's id captured when the reply was
	// composed. It wins over ParentAuthorName.
	MentionedUserID  string
	ParentAuthorName string
}

// ResolveUser maps the session email to a user.
func (s *Service) ResolveUser(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, ErrUserNotFound
	}
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return &user, nil
}

// AddEntry stores a root entry or reply and announces it on the bus.
func (s *Service) AddEntry(ctx context.Context, in AddEntryInput) (*models.GuestbookEntry, error) {
	message := SanitizeMessage(in.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	entry := models.GuestbookEntry{
		Message:  message,
		AuthorID: in.AuthorID,
	}

	var parent *models.GuestbookEntry
	if in.ParentID != "" {
		var p models.GuestbookEntry
		err := s.db.WithContext(ctx).Preload("User").Where("id = ?", in.ParentID).Take(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("lookup parent: %w", err)
		}
		parent = &p

		parentID := p.ID
		rootID := ResolveRoot(ctx, s.db, parentID)
		entry.ParentID = &parentID
		entry.RootID = &rootID
	}

	if mentionID := s.resolveMention(ctx, in); mentionID != "" {
		entry.MentionedUserID = &mentionID
	}

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}

	created, err := s.loadEntry(ctx, entry.ID)
	if err != nil {
		return nil, err
	}

	// 先失效缓存再广播，订阅者收到事件后读到的列表必须包含本条
	s.cache.Revalidate(PageKey)

	logger := logging.Ctx(ctx)
	if parent == nil {
		s.bus.Emit(events.NewEntry(created))
		logger.Info().Str(logging.FieldEntryID, created.ID).Msg("guestbook entry created")
	} else {
		s.bus.Emit(events.NewReply(parent.ID, created))
		logger.Info().Str(logging.FieldEntryID, created.ID).Str("root_id", *created.RootID).Msg("guestbook reply created")

		if s.notifier != nil && parent.AuthorID != created.AuthorID {
			s.notifier.GuestbookReply(&parent.User, created)
		}
	}

	return created, nil
}

// resolveMention never fails: an unknown id or name yields no mention.
func (s *Service) resolveMention(ctx context.Context, in AddEntryInput) string {
	db := s.db.WithContext(ctx)

	if in.MentionedUserID != "" {
		var user models.User
		if err := db.Select("id").Where("id = ?", in.MentionedUserID).Take(&user).Error; err == nil {
			return user.ID
		}
	}

	if in.ParentAuthorName != "" {
		// Names are not unique; the oldest account wins.
		var user models.User
		if err := db.Select("id").Where("name = ?", in.ParentAuthorName).Order("created_at ASC").Take(&user).Error; err == nil {
			return user.ID
		}
	}
	return ""
}

// ToggleLike removes the user's like on entryID if present, otherwise adds
// it. It returns the action that was applied.
func (s *Service) ToggleLike(ctx context.Context, entryID string, user *models.User) (string, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.GuestbookEntry{}).Where("id = ?", entryID).Count(&count).Error; err != nil {
		return "", fmt.Errorf("lookup entry: %w", err)
	}
	if count == 0 {
		return "", ErrEntryNotFound
	}

	var action string
	var existing models.Like
	err := db.Where("user_id = ? AND guestbook_id = ?", user.ID, entryID).Take(&existing).Error
	switch {
	case err == nil:
		if err := db.Delete(&existing).Error; err != nil {
			return "", fmt.Errorf("delete like: %w", err)
		}
		action = events.ActionUnlike
	case errors.Is(err, gorm.ErrRecordNotFound):
		like := models.Like{UserID: user.ID, GuestbookID: entryID}
		// A concurrent toggle may have inserted the same row already; the
		// unique index turns that into a no-op.
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
			return "", fmt.Errorf("create like: %w", err)
		}
		action = events.ActionLike
	default:
		return "", fmt.Errorf("lookup like: %w", err)
	}

	s.cache.Revalidate(PageKey)
	s.bus.Emit(events.NewLike(entryID, user.Email, action))

	return action, nil
}

// ListEntries returns up to MaxRoots root entries, newest first, each with
// its replies oldest first.
func (s *Service) ListEntries(ctx context.Context) ([]models.GuestbookEntry, error) {
	v, err := s.cache.Fetch(PageKey, listTTL, func() (interface{}, error) {
		// the fill is shared by every concurrent caller; one of them going away must not fail the rest
		return s.loadEntries(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.GuestbookEntry), nil
}

func (s *Service) loadEntries(ctx context.Context) ([]models.GuestbookEntry, error) {
	roots := []models.GuestbookEntry{}
	err := s.withRelations(ctx).
		Where("parent_id IS NULL").
		Order("created_at DESC").
		Limit(MaxRoots).
		Find(&roots).Error
	if err != nil {
		return nil, fmt.Errorf("list roots: %w", err)
	}
	if len(roots) == 0 {
		return roots, nil
	}

	rootIDs := make([]string, len(roots))
	for i, r := range roots {
		rootIDs[i] = r.ID
	}

	var replies []models.GuestbookEntry
	err = s.withRelations(ctx).
		Where("root_id IN ?", rootIDs).
		Order("created_at ASC").
		Find(&replies).Error
	if err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}

	byRoot := make(map[string][]models.GuestbookEntry, len(roots))
	for _, r := range replies {
		normalize(&r)
		byRoot[*r.RootID] = append(byRoot[*r.RootID], r)
	}
	for i := range roots {
		roots[i].Replies = byRoot[roots[i].ID]
		normalize(&roots[i])
	}
	return roots, nil
}

// DeleteEntry removes an entry together with its replies and likes.
func (s *Service) DeleteEntry(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.GuestbookEntry{})
	if res.Error != nil {
		return fmt.Errorf("delete entry: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	s.cache.Revalidate(PageKey)

	logger := logging.Ctx(ctx)
	logger.Info().Str(logging.FieldEntryID, id).Msg("guestbook entry deleted")
	return nil
}

func (s *Service) loadEntry(ctx context.Context, id string) (*models.GuestbookEntry, error) {
	var entry models.GuestbookEntry
	if err := s.withRelations(ctx).Where("id = ?", id).Take(&entry).Error; err != nil {
		return nil, fmt.Errorf("reload entry: %w", err)
	}
	normalize(&entry)
	return &entry, nil
}

func (s *Service) withRelations(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("User.Accounts").
		Preload("Likes", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Likes.User").
		Preload("MentionedUser")
}

// normalize keeps Likes and Replies JSON arrays rather than null.
func normalize(e *models.GuestbookEntry) {
	if e.Likes == nil {
		e.Likes = []models.Like{}
	}
	if e.Replies == nil {
		e.Replies = []models.GuestbookEntry{}
	}
}

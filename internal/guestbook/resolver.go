package guestbook

import (
	"context"

	"portfolio/internal/logging"
	"portfolio/internal/models"

	"gorm.io/gorm"
)

// MaxThreadDepth bounds the parent walk in ResolveRoot.
const MaxThreadDepth = 64

// ResolveRoot returns the thread root for a new reply whose parent is
// parentID. A missing parent, a dangling link in the chain or a chain longer
// than MaxThreadDepth all resolve to parentID itself.
func ResolveRoot(ctx context.Context, db *gorm.DB, parentID string) string {
	logger := logging.Ctx(ctx)
	id := parentID

	for depth := 0; depth <= MaxThreadDepth; depth++ {
		var entry models.GuestbookEntry
		err := db.WithContext(ctx).
			Select("id", "parent_id", "root_id").
			Where("id = ?", id).
			Take(&entry).Error
		if err != nil {
			if depth > 0 {
				logger.Warn().Str(logging.FieldEntryID, parentID).Str("missing", id).Msg("dangling parent in guestbook thread")
			}
			return parentID
		}

		if entry.ParentID == nil {
			return entry.ID
		}
		if entry.RootID != nil && *entry.RootID != "" {
			return *entry.RootID
		}
		id = *entry.ParentID
	}

	logger.Warn().Str(logging.FieldEntryID, parentID).Int("max_depth", MaxThreadDepth).Msg("guestbook thread too deep, using parent as root")
	return parentID
}

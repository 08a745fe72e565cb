package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/bluele/gcache"
	"gorm.io/gorm"

	"campus_bus/internal/access"
	"campus_bus/internal/models"
)

// IdentityCache memoises the gate's view of an account. Every write to an
// account must call Invalidate so role or flag changes apply immediately.
type IdentityCache struct {
	db    *gorm.DB
	cache gcache.Cache
}

func NewIdentityCache(db *gorm.DB, size int, ttl time.Duration) *IdentityCache {
	return &IdentityCache{
		db: db,
		cache: gcache.New(size).
			LRU().
			Expiration(ttl).
			Build(),
	}
}

// Lookup returns the identity of an active account. Unknown or disabled
// accounts yield ErrNotFound.
func (c *IdentityCache) Lookup(ctx context.Context, userID uint) (access.Identity, error) {
	if cached, err := c.cache.Get(userID); err == nil {
		if id, ok := cached.(access.Identity); ok {
			return id, nil
		}
	}

	var user models.User
	err := c.db.WithContext(ctx).Select("id", "username", "role", "is_superuser", "is_active").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return access.Anonymous(), ErrNotFound
	}
	if err != nil {
		return access.Anonymous(), err
	}
	if !user.IsActive {
		return access.Anonymous(), ErrNotFound
	}

	id := IdentityOf(user)
	_ = c.cache.Set(userID, id)
	return id, nil
}

func (c *IdentityCache) Invalidate(userID uint) {
	c.cache.Remove(userID)
}

func (c *IdentityCache) Purge() {
	c.cache.Purge()
}

func IdentityOf(user models.User) access.Identity {
	return access.Identity{
		UserID:        user.ID,
		Username:      user.Username,
		Role:          user.Role,
		IsSuperuser:   user.IsSuperuser,
		Authenticated: true,
	}
}

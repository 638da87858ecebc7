package store

import "gorm.io/gorm"

type Options func(*gorm.DB) *gorm.DB

func WithNameLike(name string) Options {
	return func(tx *gorm.DB) *gorm.DB {
		if len(name) == 0 {
			return tx
		}
		return tx.Where("name like ?", "%"+name+"%")
	}
}

func WithOrderByPosition() Options {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position").Order("id")
	}
}

func WithOrderByCreatedDesc() Options {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Order("created_at DESC").Order("id DESC")
	}
}

func WithOffset(offset int) Options {
	return func(tx *gorm.DB) *gorm.DB {
		if offset > 0 {
			tx = tx.Offset(offset)
		}
		return tx
	}
}

func WithLimit(limit int) Options {
	return func(tx *gorm.DB) *gorm.DB {
		if limit > 0 {
			tx = tx.Limit(limit)
		}
		return tx
	}
}

func apply(tx *gorm.DB, opts []Options) *gorm.DB {
	for _, opt := range opts {
		tx = opt(tx)
	}
	return tx
}

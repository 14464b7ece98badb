// Package gormstore persists drinks in PostgreSQL through gorm.
package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ggoodman/coffee-shop-go/drinks"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// drinkModel is the row layout of the drinks table. The recipe is kept as a
// JSON encoded ingredient array.
type drinkModel struct {
	ID     int64  `gorm:"primaryKey;autoIncrement"`
	Title  string `gorm:"size:80;uniqueIndex;not null"`
	Recipe string `gorm:"type:text;not null"`
}

func (drinkModel) TableName() string { return "drinks" }

// Store implements drinks.Store on a gorm connection.
type Store struct {
	db  *gorm.DB
	log *slog.Logger
}

var _ drinks.Store = (*Store)(nil)

// Open connects to the database at dsn and migrates the schema.
func Open(ctx context.Context, dsn string, log *slog.Logger) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("gormstore: dsn is required")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return New(ctx, gdb, log)
}

// New wraps an existing connection and migrates the schema.
func New(ctx context.Context, gdb *gorm.DB, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if err := gdb.WithContext(ctx).AutoMigrate(&drinkModel{}); err != nil {
		return nil, fmt.Errorf("migrate drinks: %w", err)
	}
	return &Store{db: gdb, log: log}, nil
}

// Reset drops and recreates the drinks table, then seeds it with a single
// "water" drink.
func (s *Store) Reset(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.Migrator().DropTable(&drinkModel{}); err != nil {
		return fmt.Errorf("drop drinks: %w", err)
	}
	if err := db.AutoMigrate(&drinkModel{}); err != nil {
		return fmt.Errorf("migrate drinks: %w", err)
	}
	seed := drinks.Drink{
		Title:  "water",
		Recipe: drinks.Recipe{{Name: "water", Color: "blue", Parts: 1}},
	}
	if _, err := s.Create(ctx, seed); err != nil {
		return fmt.Errorf("seed drinks: %w", err)
	}
	s.log.InfoContext(ctx, "drinks.store.reset")
	return nil
}

func (s *Store) List(ctx context.Context) ([]drinks.Drink, error) {
	var models []drinkModel
	if err := s.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list drinks: %w", err)
	}
	out := make([]drinks.Drink, 0, len(models))
	for _, m := range models {
		d, err := m.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id int64) (drinks.Drink, error) {
	var m drinkModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return drinks.Drink{}, drinks.ErrNotFound
		}
		return drinks.Drink{}, fmt.Errorf("get drink %d: %w", id, err)
	}
	return m.toDomain()
}

func (s *Store) Create(ctx context.Context, d drinks.Drink) (drinks.Drink, error) {
	if err := d.Validate(); err != nil {
		return drinks.Drink{}, err
	}
	m, err := fromDomain(d)
	if err != nil {
		return drinks.Drink{}, err
	}
	m.ID = 0
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return drinks.Drink{}, translate(err, "create drink")
	}
	return m.toDomain()
}

func (s *Store) Update(ctx context.Context, id int64, p drinks.Patch) (drinks.Drink, error) {
	var out drinks.Drink
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m drinkModel
		if err := tx.First(&m, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return drinks.ErrNotFound
			}
			return err
		}
		cur, err := m.toDomain()
		if err != nil {
			return err
		}
		next := p.Apply(cur)
		if err := next.Validate(); err != nil {
			return err
		}
		nm, err := fromDomain(next)
		if err != nil {
			return err
		}
		if err := tx.Save(&nm).Error; err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		if errors.Is(err, drinks.ErrNotFound) || errors.Is(err, drinks.ErrInvalid) {
			return drinks.Drink{}, err
		}
		return drinks.Drink{}, translate(err, fmt.Sprintf("update drink %d", id))
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&drinkModel{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete drink %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return drinks.ErrNotFound
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func translate(err error, op string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return drinks.ErrDuplicateTitle
	}
	return fmt.Errorf("%s: %w", op, err)
}

func fromDomain(d drinks.Drink) (drinkModel, error) {
	recipe, err := json.Marshal([]drinks.Ingredient(d.Recipe))
	if err != nil {
		return drinkModel{}, fmt.Errorf("encode recipe: %w", err)
	}
	return drinkModel{ID: d.ID, Title: d.Title, Recipe: string(recipe)}, nil
}

func (m drinkModel) toDomain() (drinks.Drink, error) {
	var recipe drinks.Recipe
	if err := json.Unmarshal([]byte(m.Recipe), &recipe); err != nil {
		return drinks.Drink{}, fmt.Errorf("decode recipe of drink %d: %w", m.ID, err)
	}
	return drinks.Drink{ID: m.ID, Title: m.Title, Recipe: recipe}, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	customerrors "github.com/axellelanca/shortlinks/internal/errors"
	"github.com/axellelanca/shortlinks/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// LinkRepository est une interface qui définit les méthodes d'accès aux données.
// Toutes les implémentations garantissent l'unicité du code à l'insertion et
// renvoient des copies : un appelant ne partage jamais l'état interne du store.
type LinkRepository interface {
	// FindByCode returns customerrors.ErrShortCodeNotFound when no record has this code.
	FindByCode(ctx context.Context, code string) (*models.Link, error)
	// Insert fails with customerrors.ErrDuplicateCode when the code is taken and with
	// customerrors.ErrDuplicateID when only the id is.
	Insert(ctx context.Context, link *models.Link) error
	// Update reads the record of code, passes it to apply and writes back the analytics
	// fields, atomically with respect to every other Update of that code, across
	// processes sharing the store. apply may run more than once and must only depend on
	// the record it is given.
	Update(ctx context.Context, code string, apply func(*models.Link)) error
	// ListAll returns every record in insertion order.
	ListAll(ctx context.Context) ([]models.Link, error)
	Close() error
}

// analyticsColumns are the only columns Update may write; code and destination are immutable.
var analyticsColumns = []string{"clicks", "clicks_by_day", "referrers", "user_agents", "clicks_log"}

// mutateAnalytics runs apply on a copy of link and keeps only its analytics fields.
func mutateAnalytics(link *models.Link, apply func(*models.Link)) {
	next := link.Clone()
	apply(next)
	link.Clicks = next.Clicks
	link.ClicksByDay = next.ClicksByDay
	link.Referrers = next.Referrers
	link.UserAgents = next.UserAgents
	link.ClicksLog = next.ClicksLog
}

// GormLinkRepository est l'implémentation de LinkRepository utilisant GORM.
type GormLinkRepository struct {
	db *gorm.DB
}

// NewLinkRepository crée et retourne une nouvelle instance de GormLinkRepository.
func NewLinkRepository(db *gorm.DB) *GormLinkRepository {
	return &GormLinkRepository{db: db}
}

// OpenSQLite opens (or creates) the SQLite database at name and runs migrations.
// ":memory:" is accepted for tests.
func OpenSQLite(name string) (*GormLinkRepository, error) {
	db, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, customerrors.StoreFailure("open sqlite", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, customerrors.StoreFailure("open sqlite", err)
	}
	// SQLite has a single writer; an in-memory database also only lives on its one connection.
	sqlDB.SetMaxOpenConns(1)
	if err := db.Exec("PRAGMA busy_timeout = 5000").Error; err != nil {
		_ = sqlDB.Close()
		return nil, customerrors.StoreFailure("configure sqlite", err)
	}

	repo := NewLinkRepository(db)
	if err := repo.Migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return repo, nil
}

// Migrate crée ou met à jour la table des liens.
func (r *GormLinkRepository) Migrate() error {
	if err := r.db.AutoMigrate(&models.Link{}); err != nil {
		return customerrors.StoreFailure("migrate", err)
	}
	return nil
}

// Insert insère un nouveau lien dans la base de données.
// Parameters:
//   - link: the record to persist; its code and id must both be unused
//
// Returns:
//   - error: customerrors.ErrDuplicateCode, customerrors.ErrDuplicateID or a store failure
func (r *GormLinkRepository) Insert(ctx context.Context, link *models.Link) error {
	db := r.db.WithContext(ctx)
	if err := db.Create(link).Error; err != nil {
		if !isUniqueViolation(err) {
			return customerrors.StoreFailure("insert link", err)
		}
		// Both the primary key and the code index are unique; find out which one failed.
		var n int64
		if err := db.Model(&models.Link{}).Where("code = ?", link.Code).Count(&n).Error; err != nil {
			return customerrors.StoreFailure("insert link", err)
		}
		if n > 0 {
			return fmt.Errorf("insert %q: %w", link.Code, customerrors.ErrDuplicateCode)
		}
		return fmt.Errorf("insert %q (id %s): %w", link.Code, link.ID, customerrors.ErrDuplicateID)
	}
	return nil
}

// FindByCode récupère un lien de la base de données en utilisant son code.
func (r *GormLinkRepository) FindByCode(ctx context.Context, code string) (*models.Link, error) {
	var link models.Link
	if err := r.db.WithContext(ctx).Where("code = ?", code).Take(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, customerrors.ErrShortCodeNotFound
		}
		return nil, customerrors.StoreFailure("find link", err)
	}
	return &link, nil
}

// Update applique une modification des champs analytiques dans une transaction.
// The row is read inside the transaction, so apply always sees the latest committed counters.
func (r *GormLinkRepository) Update(ctx context.Context, code string, apply func(*models.Link)) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var link models.Link
		if err := tx.Where("code = ?", code).Take(&link).Error; err != nil {
			return err
		}
		mutateAnalytics(&link, apply)
		res := tx.Model(&link).Select(analyticsColumns).Updates(&link)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return customerrors.ErrShortCodeNotFound
		}
		return customerrors.StoreFailure("update link", err)
	}
	return nil
}

// ListAll récupère tous les liens dans l'ordre d'insertion.
func (r *GormLinkRepository) ListAll(ctx context.Context) ([]models.Link, error) {
	var links []models.Link
	if err := r.db.WithContext(ctx).Order("rowid").Find(&links).Error; err != nil {
		return nil, customerrors.StoreFailure("list links", err)
	}
	return links, nil
}

// Close ferme la connexion sous-jacente.
func (r *GormLinkRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ LinkRepository = (*GormLinkRepository)(nil)

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/claimlink/claimlink-go"
)

// createdLinkModel is the SQLite row for a created-link record. Decimal
// amounts are stored as strings to keep full precision.
type createdLinkModel struct {
	ID            string `gorm:"primaryKey"`
	Address       string `gorm:"index;not null"`
	Link          string `gorm:"not null"`
	DepositDate   time.Time
	TokenPriceUSD string
	Points        int
	TxHash        string
	Message       string
	AttachmentURL string
	ChainID       string
	TokenAddress  string
	TokenType     string
	TokenDecimals int
	TokenAmount   string
	CreatedAt     time.Time
}

func (createdLinkModel) TableName() string { return "created_links" }

// tokenPreferenceModel is a single-row table holding the last-used token.
type tokenPreferenceModel struct {
	ID           uint `gorm:"primaryKey"`
	ChainID      string
	TokenAddress string
	Decimals     int
	UpdatedAt    time.Time
}

func (tokenPreferenceModel) TableName() string { return "token_preferences" }

// SQLiteStore is a claimlink.LinkStore backed by a local SQLite database.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (and migrates) the database at path. Use ":memory:"
// for an ephemeral database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.AutoMigrate(&createdLinkModel{}, &tokenPreferenceModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// AppendCreatedLink inserts a record into the address's created-links list.
func (s *SQLiteStore) AppendCreatedLink(ctx context.Context, record claimlink.CreatedLink) error {
	model := createdLinkModel{
		ID:            record.ID,
		Address:       record.Address,
		Link:          record.Link,
		DepositDate:   record.DepositDate,
		TokenPriceUSD: record.TokenPriceUSD.String(),
		Points:        record.Points,
		TxHash:        record.TxHash,
		Message:       record.Message,
		AttachmentURL: record.AttachmentURL,
		ChainID:       string(record.ChainID),
		TokenAddress:  record.TokenAddress,
		TokenType:     string(record.TokenType),
		TokenDecimals: record.TokenDecimals,
		TokenAmount:   record.TokenAmount.String(),
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to insert created link: %w", err)
	}
	return nil
}

// CreatedLinks returns the records for an address, oldest first.
func (s *SQLiteStore) CreatedLinks(ctx context.Context, address string) ([]claimlink.CreatedLink, error) {
	var models []createdLinkModel
	err := s.db.WithContext(ctx).
		Where("address = ?", address).
		Order("deposit_date asc").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query created links: %w", err)
	}

	records := make([]claimlink.CreatedLink, 0, len(models))
	for _, m := range models {
		record, err := m.toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (m createdLinkModel) toRecord() (claimlink.CreatedLink, error) {
	price, err := decimal.NewFromString(m.TokenPriceUSD)
	if err != nil {
		return claimlink.CreatedLink{}, fmt.Errorf("corrupt token price for link %s: %w", m.ID, err)
	}
	amount, err := decimal.NewFromString(m.TokenAmount)
	if err != nil {
		return claimlink.CreatedLink{}, fmt.Errorf("corrupt token amount for link %s: %w", m.ID, err)
	}
	return claimlink.CreatedLink{
		ID:            m.ID,
		Address:       m.Address,
		Link:          m.Link,
		DepositDate:   m.DepositDate,
		TokenPriceUSD: price,
		Points:        m.Points,
		TxHash:        m.TxHash,
		Message:       m.Message,
		AttachmentURL: m.AttachmentURL,
		ChainID:       claimlink.ChainID(m.ChainID),
		TokenAddress:  m.TokenAddress,
		TokenType:     claimlink.TokenType(m.TokenType),
		TokenDecimals: m.TokenDecimals,
		TokenAmount:   amount,
	}, nil
}

// SaveTokenPreference upserts the single last-used-token row.
func (s *SQLiteStore) SaveTokenPreference(ctx context.Context, pref claimlink.TokenPreference) error {
	model := tokenPreferenceModel{
		ID:           1,
		ChainID:      string(pref.ChainID),
		TokenAddress: pref.TokenAddress,
		Decimals:     pref.Decimals,
	}
	if err := s.db.WithContext(ctx).Save(&model).Error; err != nil {
		return fmt.Errorf("failed to save token preference: %w", err)
	}
	return nil
}

// TokenPreference returns the saved preference, or nil if none was saved.
func (s *SQLiteStore) TokenPreference(ctx context.Context) (*claimlink.TokenPreference, error) {
	var model tokenPreferenceModel
	err := s.db.WithContext(ctx).First(&model, 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load token preference: %w", err)
	}
	return &claimlink.TokenPreference{
		ChainID:      claimlink.ChainID(model.ChainID),
		TokenAddress: model.TokenAddress,
		Decimals:     model.Decimals,
	}, nil
}

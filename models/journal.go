package models

import (
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Journal is one balanced double-entry record. Journals are append-only:
// correcting a posted invoice means appending a reversal journal, never
// editing the original.
type Journal struct {
	ID                  int                  `gorm:"primary_key" json:"id"`
	JournalDate         time.Time            `gorm:"not null;index" json:"journal_date"`
	Description         string               `gorm:"size:255" json:"description"`
	ReferenceType       JournalReferenceType `gorm:"size:5;not null;index:idx_journal_reference" json:"reference_type"`
	ReferenceId         int                  `gorm:"not null;index:idx_journal_reference" json:"reference_id"`
	IsReversal          *bool                `gorm:"not null;default:false" json:"is_reversal"`
	ReversesJournalId   *int                 `gorm:"index" json:"reverses_journal_id"`
	ReversedByJournalId *int                 `gorm:"index" json:"reversed_by_journal_id"`
	ReversalReason      *string              `gorm:"size:255" json:"reversal_reason"`
	ReversedAt          *time.Time           `json:"reversed_at"`
	CreatedBy           int                  `gorm:"not null" json:"created_by"`
	LineItems           []JournalLineItem    `gorm:"foreignKey:JournalId;constraint:OnDelete:CASCADE" json:"line_items"`
	CreatedAt           time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

type JournalLineItem struct {
	ID            int                  `gorm:"primary_key" json:"id"`
	JournalId     int                  `gorm:"index;not null" json:"journal_id"`
	CategoryId    int                  `gorm:"index;not null" json:"category_id"`
	Debit         decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"debit"`
	Credit        decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"credit"`
	ReferenceType JournalReferenceType `gorm:"size:5;not null" json:"reference_type"`
	ReferenceId   int                  `gorm:"not null" json:"reference_id"`
	ExchangeRate  decimal.Decimal      `gorm:"type:decimal(20,4);default:1" json:"exchange_rate"`
	CreatedBy     int                  `gorm:"not null" json:"created_by"`
	CreatedAt     time.Time            `gorm:"autoCreateTime" json:"created_at"`
}

// A line carries value on exactly one side.
func (line *JournalLineItem) BeforeSave(tx *gorm.DB) error {
	if !line.Debit.IsZero() && !line.Credit.IsZero() {
		return utils.NewDataIntegrityError(nil,
			"journal line %d has both debit and credit", line.ID)
	}
	return nil
}

func (j *Journal) Reversal() bool {
	return j.IsReversal != nil && *j.IsReversal
}

func (j *Journal) TotalDebit() decimal.Decimal {
	total := decimal.Zero
	for _, line := range j.LineItems {
		total = total.Add(line.Debit)
	}
	return total
}

func (j *Journal) TotalCredit() decimal.Decimal {
	total := decimal.Zero
	for _, line := range j.LineItems {
		total = total.Add(line.Credit)
	}
	return total
}

func CreateJournal(tx *gorm.DB, journal *Journal) error {
	return tx.Create(journal).Error
}

func GetJournalWithLineItems(tx *gorm.DB, id int) (*Journal, error) {
	var journal Journal
	err := tx.Preload("LineItems").Where("id = ?", id).First(&journal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &journal, nil
}

// GetActiveJournalByReference finds the live forward journal for a
// reference, skipping reversals and journals already reversed.
func GetActiveJournalByReference(tx *gorm.DB, referenceType JournalReferenceType, referenceId int) (*Journal, error) {
	var journal Journal
	err := tx.Preload("LineItems").
		Where("reference_type = ? AND reference_id = ? AND is_reversal = ? AND reversed_by_journal_id IS NULL",
			referenceType, referenceId, false).
		Order("id").First(&journal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &journal, nil
}

func MarkJournalReversed(tx *gorm.DB, id int, reversalJournalId int, reason string) error {
	now := time.Now()
	return tx.Model(&Journal{}).Where("id = ?", id).Updates(map[string]interface{}{
		"reversed_by_journal_id": reversalJournalId,
		"reversal_reason":        reason,
		"reversed_at":            now,
	}).Error
}

package services

import (
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"backend_telearenda/models"
)

// AssociationStore инкапсулирует доступ к таблице привязок.
// Движок работает с хранилищем только через этот контракт:
// выборка по фильтру, вставка, обновление по набору ID,
// мягкое удаление, смена статуса актива.
type AssociationStore struct {
	DB *gorm.DB
}

// NewAssociationStore создает новый экземпляр AssociationStore
func NewAssociationStore(db *gorm.DB) *AssociationStore {
	return &AssociationStore{DB: db}
}

// WithTx возвращает хранилище, привязанное к открытой транзакции
func (s *AssociationStore) WithTx(tx *gorm.DB) *AssociationStore {
	return &AssociationStore{DB: tx}
}

// AssociationFilter параметры выборки привязок. Условия конъюнктивны
type AssociationFilter struct {
	ClientID *uint
	AssetID  *uint
	Page     int
	PageSize int
	Search   string // Поиск по денормализованным полям отображения
}

// ListAssociations возвращает страницу привязок и общее количество.
// Мягко удаленные строки исключаются из всех выборок
func (s *AssociationStore) ListAssociations(filter AssociationFilter) ([]models.Association, int64, error) {
	query := s.DB.Model(&models.Association{})

	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.AssetID != nil {
		query = query.Where("asset_id = ?", *filter.AssetID)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where(
			"LOWER(client_name) LIKE LOWER(?) OR LOWER(asset_label) LIKE LOWER(?) OR LOWER(asset_kind_name) LIKE LOWER(?)",
			pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, NewStoreError(err, "ошибка подсчета привязок")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 50
	}

	var rows []models.Association
	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC, id ASC").Offset(offset).Limit(pageSize).Find(&rows).Error; err != nil {
		return nil, 0, NewStoreError(err, "ошибка получения привязок")
	}

	return rows, total, nil
}

// GetAssociation возвращает привязку по ID
func (s *AssociationStore) GetAssociation(id uint) (*models.Association, error) {
	var assoc models.Association
	if err := s.DB.First(&assoc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("привязка %d не найдена", id)
		}
		return nil, NewStoreError(err, "ошибка поиска привязки %d", id)
	}
	return &assoc, nil
}

// GetAssociationsByIDs возвращает привязки по набору ID
// в порядке перечисления идентификаторов
func (s *AssociationStore) GetAssociationsByIDs(ids []uint) ([]models.Association, error) {
	var rows []models.Association
	if err := s.DB.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, NewStoreError(err, "ошибка выборки привязок по ID")
	}

	byID := make(map[uint]models.Association, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	ordered := make([]models.Association, 0, len(rows))
	for _, id := range ids {
		if row, exists := byID[id]; exists {
			ordered = append(ordered, row)
		}
	}
	return ordered, nil
}

// GetActiveAssociationByAsset возвращает активную привязку актива, если
// она существует. Привязка активна, пока дата выхода не заполнена или
// лежит в будущем: такие привязки еще можно завершить досрочно
func (s *AssociationStore) GetActiveAssociationByAsset(assetID uint) (*models.Association, error) {
	var assoc models.Association
	err := s.DB.Where("asset_id = ? AND (exit_date IS NULL OR exit_date > ?)", assetID, models.Today()).First(&assoc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, NewStoreError(err, "ошибка поиска активной привязки актива %d", assetID)
	}
	return &assoc, nil
}

// GetGroupAssociations возвращает привязки группы компании внутри
// партии: точное совпадение времени создания и один клиент
func (s *AssociationStore) GetGroupAssociations(createdAt time.Time, clientID uint) ([]models.Association, error) {
	var rows []models.Association
	if err := s.DB.Where("created_at = ? AND client_id = ?", createdAt, clientID).
		Order("id ASC").Find(&rows).Error; err != nil {
		return nil, NewStoreError(err, "ошибка выборки группы привязок")
	}
	return rows, nil
}

// InsertAssociation сохраняет новую привязку
func (s *AssociationStore) InsertAssociation(assoc *models.Association) error {
	if err := s.DB.Create(assoc).Error; err != nil {
		return NewStoreError(err, "ошибка создания привязки")
	}
	return nil
}

// UpdateAssociations применяет один и тот же набор изменений ко всем
// перечисленным привязкам и возвращает число обновленных строк
func (s *AssociationStore) UpdateAssociations(ids []uint, patch map[string]interface{}) (int64, error) {
	result := s.DB.Model(&models.Association{}).Where("id IN ?", ids).Updates(patch)
	if result.Error != nil {
		return 0, NewStoreError(result.Error, "ошибка обновления привязок")
	}
	return result.RowsAffected, nil
}

// SoftDeleteAssociations проставляет отметку удаления всем перечисленным
// привязкам и возвращает число удаленных строк
func (s *AssociationStore) SoftDeleteAssociations(ids []uint) (int64, error) {
	result := s.DB.Where("id IN ?", ids).Delete(&models.Association{})
	if result.Error != nil {
		return 0, NewStoreError(result.Error, "ошибка мягкого удаления привязок")
	}
	return result.RowsAffected, nil
}

// UpdateAssetStatus обновляет статус актива и ссылку на текущего клиента
func (s *AssociationStore) UpdateAssetStatus(assetID uint, status string, clientID *uint) error {
	result := s.DB.Model(&models.Asset{}).Where("id = ?", assetID).
		Updates(map[string]interface{}{"status": status, "client_id": clientID})
	if result.Error != nil {
		return NewStoreError(result.Error, "ошибка обновления статуса актива %d", assetID)
	}
	if result.RowsAffected == 0 {
		return NewNotFoundError("актив %d не найден", assetID)
	}
	return nil
}

// isUniqueViolation распознает нарушение уникального индекса: из двух
// конкурентных выдач одного актива проигравшая получает его от базы
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 23505") || strings.Contains(msg, "UNIQUE constraint failed")
}

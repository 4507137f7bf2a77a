package services

import (
	"sort"
	"time"

	"backend_telearenda/models"
)

// Движок группировки превращает плоский список привязок в двухуровневую
// иерархию: партия (точное время создания) -> клиент -> строки.
// Представление полностью производное: пересчитывается при каждой
// выборке и никогда не сохраняется.

// CompanyGroup подмножество партии, принадлежащее одному клиенту
type CompanyGroup struct {
	ClientID   uint   `json:"client_id"`
	ClientName string `json:"client_name"`

	Records []models.Association `json:"records"`

	// Производная статистика
	TotalAssets           int            `json:"total_assets"`
	AssetTypeDistribution map[string]int `json:"asset_type_distribution"`
	// Истинно, если хотя бы одна привязка группы активна или имеет
	// дату выхода в будущем
	CanEndGroup bool `json:"can_end_group"`
}

// TimestampGroup партия привязок, созданных одной отправкой формы
// (с точно совпадающим временем создания)
type TimestampGroup struct {
	CreatedAt time.Time      `json:"created_at"`
	Companies []CompanyGroup `json:"companies"`
}

// GroupedAssociationsView страница сгруппированного представления
type GroupedAssociationsView struct {
	Groups     []TimestampGroup `json:"groups"`
	TotalCount int64            `json:"total_count"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
}

// GroupingService строит сгруппированное представление привязок
type GroupingService struct {
	Store *AssociationStore
	Cache *CacheService
}

// NewGroupingService создает новый экземпляр GroupingService
func NewGroupingService(store *AssociationStore, cache *CacheService) *GroupingService {
	return &GroupingService{Store: store, Cache: cache}
}

// BuildTimestampGroups группирует строки привязок по времени создания
// и клиенту. Время создания сравнивается на точное равенство, без
// округления: строки одной партии записаны с одним timestamp.
// Ключ группировки по клиенту - идентификатор, а не отображаемое имя:
// денормализованное имя может разойтись с настоящим клиентом
func BuildTimestampGroups(rows []models.Association, today models.CalendarDate) []TimestampGroup {
	// Разбиваем по партиям, сохраняя порядок первого появления
	batchOrder := make([]int64, 0)
	batchRows := make(map[int64][]models.Association)
	for _, row := range rows {
		batch := row.CreatedAt.UnixNano()
		if _, exists := batchRows[batch]; !exists {
			batchOrder = append(batchOrder, batch)
		}
		batchRows[batch] = append(batchRows[batch], row)
	}

	groups := make([]TimestampGroup, 0, len(batchOrder))
	for _, batch := range batchOrder {
		members := batchRows[batch]

		// Внутри партии разбиваем по клиенту, сохраняя исходный
		// порядок строк
		clientOrder := make([]uint, 0)
		clientRows := make(map[uint][]models.Association)
		for _, row := range members {
			if _, exists := clientRows[row.ClientID]; !exists {
				clientOrder = append(clientOrder, row.ClientID)
			}
			clientRows[row.ClientID] = append(clientRows[row.ClientID], row)
		}

		companies := make([]CompanyGroup, 0, len(clientOrder))
		for _, clientID := range clientOrder {
			companies = append(companies, buildCompanyGroup(clientID, clientRows[clientID], today))
		}

		// Компании внутри партии сортируются по имени клиента
		sort.SliceStable(companies, func(i, j int) bool {
			return companies[i].ClientName < companies[j].ClientName
		})

		groups = append(groups, TimestampGroup{
			CreatedAt: members[0].CreatedAt,
			Companies: companies,
		})
	}

	// Партии сортируются от новых к старым
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].CreatedAt.After(groups[j].CreatedAt)
	})

	return groups
}

// buildCompanyGroup собирает группу клиента с производной статистикой
func buildCompanyGroup(clientID uint, rows []models.Association, today models.CalendarDate) CompanyGroup {
	group := CompanyGroup{
		ClientID:              clientID,
		Records:               rows,
		TotalAssets:           len(rows),
		AssetTypeDistribution: make(map[string]int),
	}

	for _, row := range rows {
		label := row.AssetKindName
		if label == "" {
			label = "Не указан"
		}
		group.AssetTypeDistribution[label]++

		// Сравнение дат строковое (YYYY-MM-DD), чтобы исключить
		// сдвиг дня из-за часовых поясов
		if row.CanBeEnded(today) {
			group.CanEndGroup = true
		}

		if group.ClientName == "" {
			group.ClientName = row.GroupClientName()
		}
	}

	if group.ClientName == "" {
		group.ClientName = models.ClientFallbackName(clientID)
	}

	return group
}

// GetGroupedView возвращает страницу сгруппированного представления,
// используя кэш (cache-aside). Поисковая строка влияет только на выборку
// строк, не на саму группировку
func (gs *GroupingService) GetGroupedView(filter AssociationFilter) (*GroupedAssociationsView, error) {
	if gs.Cache != nil {
		var cached GroupedAssociationsView
		if err := gs.Cache.GetCachedAssociationsView(filter.Page, filter.PageSize, filter.Search, &cached); err == nil {
			return &cached, nil
		}
	}

	rows, total, err := gs.Store.ListAssociations(filter)
	if err != nil {
		return nil, err
	}

	view := &GroupedAssociationsView{
		Groups:     BuildTimestampGroups(rows, models.Today()),
		TotalCount: total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
	}

	if gs.Cache != nil {
		if err := gs.Cache.CacheAssociationsView(filter.Page, filter.PageSize, filter.Search, view); err != nil {
			// Ошибка кэширования не мешает отдать представление
			return view, nil
		}
	}

	return view, nil
}

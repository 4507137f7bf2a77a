package services

import (
	"backend_telearenda/models"
)

// Политика статусов активов: чистая таблица переходов без побочных
// эффектов. Вынесена отдельно, чтобы менеджер привязок и тесты могли
// рассуждать о переходах без обращения к хранилищу.

// События жизненного цикла актива
const (
	AssetEventAssigned = "assigned" // Выдан клиенту
	AssetEventReleased = "released" // Возвращен на склад
)

// StatusAfterAssign возвращает статус актива после выдачи клиенту
// по указанному типу привязки
func StatusAfterAssign(associationKind string) string {
	switch associationKind {
	case models.AssociationKindSubscription:
		return models.AssetStatusSubscribed
	case models.AssociationKindLoan:
		return models.AssetStatusLoaned
	default:
		return models.AssetStatusLeased
	}
}

// StatusAfterRelease возвращает статус актива после возврата на склад
func StatusAfterRelease() string {
	return models.AssetStatusAvailable
}

// RequiresPasswordRotation определяет, требуется ли смена Wi-Fi пароля.
// Пароль оборудования считается скомпрометированным после возврата:
// клиент знал реквизиты доступа
func RequiresPasswordRotation(assetKind string, event string) bool {
	return assetKind == models.AssetKindEquipment && event == AssetEventReleased
}

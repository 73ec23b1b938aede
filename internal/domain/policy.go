package domain

// Role описывает роль актора, от имени которого выполняется операция.
type Role string

const (
	// RoleAdmin — полный доступ ко всем клиентам и складу.
	RoleAdmin Role = "admin"
	// RoleSales — менеджер продаж: заказы для любых клиентов, склад.
	RoleSales Role = "sales"
	// RoleClient — обычный пользователь: только собственные заказы.
	RoleClient Role = "client"
)

// Actor идентифицирует инициатора операции. Аутентификация выполняется
// внешним слоем; сюда приходит уже проверенная личность.
type Actor struct {
	ID   string
	Role Role
}

// Action перечисляет операции, для которых действует политика доступа.
type Action string

const (
	ActionCreateOrder Action = "order.create"
	ActionMutateOrder Action = "order.mutate"
	ActionAdjustStock Action = "stock.adjust"
)

// Allowed — единая точка принятия решений по авторизации.
// Привилегированные роли (admin, sales) действуют от имени любого клиента;
// остальные — только от собственного имени. Ручные корректировки стока
// доступны только привилегированным ролям.
func Allowed(actor Actor, action Action, targetClientID string) bool {
	privileged := actor.Role == RoleAdmin || actor.Role == RoleSales

	switch action {
	case ActionCreateOrder, ActionMutateOrder:
		if privileged {
			return true
		}
		return actor.ID != "" && actor.ID == targetClientID
	case ActionAdjustStock:
		return privileged
	default:
		return false
	}
}

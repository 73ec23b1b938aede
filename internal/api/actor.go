package api

import (
	"net/http"

	"github.com/vladislavdragonenkov/inventpro/internal/domain"
)

// Заголовки, через которые вышестоящий слой аутентификации передаёт актора.
const (
	headerActorID   = "X-Actor-Id"
	headerActorRole = "X-Actor-Role"
)

// actorFromRequest извлекает актора из заголовков запроса. Неизвестная или
// пустая роль трактуется как обычный клиент: политика доступа тогда разрешает
// операции только над собственными заказами.
func actorFromRequest(r *http.Request) domain.Actor {
	role := domain.Role(r.Header.Get(headerActorRole))
	switch role {
	case domain.RoleAdmin, domain.RoleSales, domain.RoleClient:
	default:
		role = domain.RoleClient
	}

	return domain.Actor{
		ID:   r.Header.Get(headerActorID),
		Role: role,
	}
}

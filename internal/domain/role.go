package domain

// UserRole identifica o papel do operador autenticado que chama a API.
// A gestão de contas em si vive fora deste serviço; aqui a role só é usada
// pelo middleware de autorização para proteger as rotas de mutação.
type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleOperator UserRole = "operator"
)

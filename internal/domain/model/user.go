package model

import "time"

// Papéis de usuário
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
	RoleOwner = "owner"
)

// Estados do ciclo de vida da conta. Status é o estado da conta
// (pendente de ativação, ativa, bloqueada) e é independente do papel.
const (
	StatusPending = "pending"
	StatusActive  = "active"
	StatusBlocked = "blocked"
)

// User representa um usuário do sistema, sem campos sensíveis
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CPF       string    `json:"cpf"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Phone     string    `json:"phone"`
	Photo     string    `json:"photo,omitempty"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedBy string    `json:"createdBy,omitempty"`
	UpdatedBy string    `json:"updatedBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserEntity é a representação de banco de dados de um usuário.
// Email e CPF carregam índices únicos: a unicidade é garantida pela
// camada de armazenamento, não apenas pela aplicação.
type UserEntity struct {
	ID        string    `gorm:"primaryKey;type:uuid"`
	Email     string    `gorm:"uniqueIndex;not null;size:100"`
	CPF       string    `gorm:"uniqueIndex;not null;size:14;column:cpf"`
	Password  string    `gorm:"not null"`
	FirstName string    `gorm:"not null;size:50"`
	LastName  string    `gorm:"not null;size:50"`
	Phone     string    `gorm:"not null;size:20"`
	Photo     string    `gorm:"size:255"`
	Role      string    `gorm:"default:user;size:20"`
	Status    string    `gorm:"default:pending;size:20"`
	CreatedBy string    `gorm:"size:36"`
	UpdatedBy string    `gorm:"size:36"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName define o nome da tabela
func (UserEntity) TableName() string {
	return "users"
}

// ToUser converte a entidade para o modelo exposto pela API.
// A senha (hash) nunca sai da camada de persistência.
func (e *UserEntity) ToUser() *User {
	return &User{
		ID:        e.ID,
		Email:     e.Email,
		CPF:       e.CPF,
		FirstName: e.FirstName,
		LastName:  e.LastName,
		Phone:     e.Phone,
		Photo:     e.Photo,
		Role:      e.Role,
		Status:    e.Status,
		CreatedBy: e.CreatedBy,
		UpdatedBy: e.UpdatedBy,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

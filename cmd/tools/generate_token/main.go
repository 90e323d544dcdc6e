package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rfmoraes/accounts-api-go/pkg/security"
	"go.uber.org/zap"
)

func main() {
	var (
		userID   string
		email    string
		role     string
		duration time.Duration
	)

	flag.StringVar(&userID, "user_id", "", "ID do usuário")
	flag.StringVar(&email, "email", "", "Email do usuário")
	flag.StringVar(&role, "role", "admin", "Papel do usuário (user, admin, owner)")
	flag.DurationVar(&duration, "duration", 24*time.Hour, "Validade do token")
	flag.Parse()

	if userID == "" {
		fmt.Println("Erro: O ID do usuário não pode ser vazio.")
		fmt.Println("Uso: go run ./cmd/tools/generate_token -user_id=<ID> -email=<email> -role=<papel>")
		os.Exit(1)
	}

	secretKey := security.GetJWTSecret()
	if len(secretKey) == 0 {
		fmt.Println("AVISO: Nenhum segredo JWT configurado.")
		fmt.Println("Configure JWT_SECRET_KEY ou ACC_AUTH_JWTSECRET ou defina auth.jwtsecret no config.yaml")
		os.Exit(1)
	}

	keyManager, err := security.NewKeyManager(secretKey, zap.NewNop())
	if err != nil {
		fmt.Printf("Erro ao inicializar gerenciador de chaves: %v\n", err)
		os.Exit(1)
	}

	tokenString, err := keyManager.GenerateToken(userID, email, role, duration)
	if err != nil {
		fmt.Printf("Erro ao gerar token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nToken JWT gerado:")
	fmt.Println("------------------------------------------")
	fmt.Println(tokenString)
	fmt.Println("------------------------------------------")
	fmt.Printf("\nDetalhes do token:\n")
	fmt.Printf("ID do usuário: %s\n", userID)
	fmt.Printf("Papel: %s\n", role)
	fmt.Printf("Expira em: %s\n", time.Now().Add(duration).Format(time.RFC3339))
	fmt.Println("\nUse este token no cabeçalho Authorization:")
	fmt.Printf("Authorization: Bearer %s\n", tokenString)
}

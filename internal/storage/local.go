package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// PhotoStorage armazena fotos de perfil no sistema de arquivos local.
// Cada usuário tem no máximo uma foto, em uploads/<userID>/profile.jpg.
type PhotoStorage struct {
	baseDir string
}

// NewPhotoStorage cria o armazenamento local de fotos
func NewPhotoStorage(baseDir string) (*PhotoStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}

	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("falha ao criar diretório de uploads: %w", err)
	}

	return &PhotoStorage{baseDir: baseDir}, nil
}

// Save grava a foto de perfil do usuário, substituindo a anterior
func (s *PhotoStorage) Save(userID string, reader io.Reader) (string, error) {
	dir := filepath.Join(s.baseDir, userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("falha ao criar diretório do usuário: %w", err)
	}

	path := filepath.Join(dir, "profile.jpg")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("falha ao criar arquivo: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return "", fmt.Errorf("falha ao gravar arquivo: %w", err)
	}

	return path, nil
}

// Remove apaga a foto de perfil do usuário, se existir
func (s *PhotoStorage) Remove(userID string) error {
	path := filepath.Join(s.baseDir, userID, "profile.jpg")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("falha ao remover foto: %w", err)
	}
	return nil
}

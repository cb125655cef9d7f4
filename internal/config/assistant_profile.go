package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jarvishq/jarvis-server/internal/infrastructure/logger"
)

const DefaultAssistantProfileFile = "config/assistant.yml"

// CategorySeed describes a category created for every user during setup.
type CategorySeed struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// AssistantProfile carries the bootstrap data the assistant needs beyond env:
// the category set seeded for new users and the fallback category used when
// an expense does not match any of them.
type AssistantProfile struct {
	DefaultCategories []CategorySeed `yaml:"default_categories"`
	FallbackCategory  string         `yaml:"fallback_category"`
}

// builtinProfile mirrors the seed data shipped with the assistant, used when
// no profile file is present.
func builtinProfile() *AssistantProfile {
	return &AssistantProfile{
		FallbackCategory: "Geral",
		DefaultCategories: []CategorySeed{
			{Name: "Alimentação", Description: "Supermercado, restaurantes e refeições"},
			{Name: "Delivery", Description: "Pedidos de comida por aplicativo"},
			{Name: "Transporte", Description: "Combustível, transporte público e corridas"},
			{Name: "Moradia", Description: "Aluguel, contas da casa e manutenção"},
			{Name: "Lazer", Description: "Entretenimento, passeios e hobbies"},
			{Name: "Farmácia", Description: "Medicamentos e itens de saúde"},
			{Name: "Assinaturas", Description: "Serviços recorrentes e streaming"},
			{Name: "Investimento", Description: "Aportes e aplicações"},
			{Name: "Viagem", Description: "Passagens, hospedagem e gastos em viagem"},
		},
	}
}

// LoadAssistantProfile parses the yaml file at the provided path. A missing
// file falls back to the built-in profile so local runs need no config dir.
func LoadAssistantProfile(path string) (*AssistantProfile, error) {
	if strings.TrimSpace(path) == "" {
		return builtinProfile(), nil
	}

	log := logger.GetLogger()
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Info().Str("path", cleanPath).Msg("assistant profile file not found, using built-in defaults")
			return builtinProfile(), nil
		}
		return nil, fmt.Errorf("read assistant profile %q: %w", cleanPath, err)
	}
	log.Info().Str("path", cleanPath).Msg("loading assistant profile file")

	var profile AssistantProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse assistant profile %q: %w", cleanPath, err)
	}

	normalized, err := normalizeProfile(&profile)
	if err != nil {
		return nil, fmt.Errorf("assistant profile %q: %w", cleanPath, err)
	}
	return normalized, nil
}

func normalizeProfile(profile *AssistantProfile) (*AssistantProfile, error) {
	out := &AssistantProfile{
		FallbackCategory: strings.TrimSpace(profile.FallbackCategory),
	}
	if out.FallbackCategory == "" {
		out.FallbackCategory = builtinProfile().FallbackCategory
	}

	seen := make(map[string]bool)
	for idx, seed := range profile.DefaultCategories {
		name := strings.TrimSpace(seed.Name)
		if name == "" {
			return nil, fmt.Errorf("default_categories[%d]: name is required", idx)
		}
		key := strings.ToLower(name)
		if seen[key] {
			return nil, fmt.Errorf("default_categories[%d]: duplicate category %q", idx, name)
		}
		seen[key] = true
		out.DefaultCategories = append(out.DefaultCategories, CategorySeed{
			Name:        name,
			Description: strings.TrimSpace(seed.Description),
		})
	}

	if len(out.DefaultCategories) == 0 {
		out.DefaultCategories = builtinProfile().DefaultCategories
	}

	return out, nil
}

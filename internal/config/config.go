package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации приложения
type Config struct {
	World    WorldConfig    `yaml:"world"`
	EventBus EventBusConfig `yaml:"eventbus"`
	Storage  StorageConfig  `yaml:"storage"`
}

// WorldConfig - параметры мира и тик-цикла
type WorldConfig struct {
	Width        int   `yaml:"width"`
	Height       int   `yaml:"height"`
	SeaLevel     int   `yaml:"sea_level"`
	Seed         int64 `yaml:"seed"`
	TicksPerSec  int   `yaml:"ticks_per_second"`
	AutosaveMins int   `yaml:"autosave_minutes"`
}

// EventBusConfig - параметры шины событий репликации
type EventBusConfig struct {
	URL     string `yaml:"url"`     // URL NATS; пусто - in-memory шина
	Subject string `yaml:"subject"` // Базовый subject для сообщений мира
}

// StorageConfig - параметры хранилища мира
type StorageConfig struct {
	DataPath string `yaml:"data_path"`
}

// GetWidth возвращает ширину мира с fallback значением
func (w *WorldConfig) GetWidth() int {
	return intWithEnvFallback(w.Width, "ORE_WORLD_WIDTH", 1000)
}

// GetHeight возвращает высоту мира с fallback значением
func (w *WorldConfig) GetHeight() int {
	return intWithEnvFallback(w.Height, "ORE_WORLD_HEIGHT", 1000)
}

// GetSeaLevel возвращает уровень моря с fallback значением
func (w *WorldConfig) GetSeaLevel() int {
	return intWithEnvFallback(w.SeaLevel, "ORE_WORLD_SEA_LEVEL", 50)
}

// GetTicksPerSec возвращает частоту тиков с fallback значением
func (w *WorldConfig) GetTicksPerSec() int {
	return intWithEnvFallback(w.TicksPerSec, "ORE_WORLD_TPS", 25)
}

// GetAutosaveMins возвращает интервал автосохранения в минутах
func (w *WorldConfig) GetAutosaveMins() int {
	return intWithEnvFallback(w.AutosaveMins, "ORE_WORLD_AUTOSAVE_MINS", 5)
}

// GetDataPath возвращает путь к данным мира с fallback значением
func (s *StorageConfig) GetDataPath() string {
	if s.DataPath != "" {
		return s.DataPath
	}
	if env := os.Getenv("ORE_WORLD_DATA"); env != "" {
		return env
	}
	return "data"
}

// GetSubject возвращает базовый subject шины с fallback значением
func (e *EventBusConfig) GetSubject() string {
	if e.Subject != "" {
		return e.Subject
	}
	return "oreworld.replication"
}

// intWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func intWithEnvFallback(configValue int, envVar string, defaultValue int) int {
	if configValue > 0 {
		return configValue
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if value, err := strconv.Atoi(envVal); err == nil && value > 0 {
			return value
		}
	}

	return defaultValue
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV ORE_WORLD_CONFIG или
// возвращает nil, nil - использовать дефолты.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("ORE_WORLD_CONFIG")
		if path == "" {
			return nil, nil // конфиг не задан — использовать дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации %s: %w", path, err)
	}

	return &cfg, nil
}

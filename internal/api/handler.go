package api

import (
	"log/slog"

	"github.com/shaiso/Questionary/internal/catalog"
	"github.com/shaiso/Questionary/internal/questionary"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	catalog       *catalog.Service
	questionaries *questionary.Service
	logger        *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Catalog       *catalog.Service
	Questionaries *questionary.Service
	Logger        *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	h := &Handler{
		catalog:       cfg.Catalog,
		questionaries: cfg.Questionaries,
		logger:        cfg.Logger,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

package repository

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/models"
)

// LoadSettings reads application settings, falling back to defaults when
// nothing is stored yet.
func (r *Repository) LoadSettings() (models.AppSettings, error) {
	data, err := r.store.Get(SettingsKey)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.DefaultSettings(), nil
		}
		return models.AppSettings{}, apperr.StorageRead(SettingsKey, err)
	}
	var s models.AppSettings
	if err := json.Unmarshal(data, &s); err != nil {
		return models.AppSettings{}, apperr.StorageRead(SettingsKey, err)
	}
	return s, nil
}

// SaveSettings persists application settings.
func (r *Repository) SaveSettings(s models.AppSettings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return apperr.StorageWrite(SettingsKey, err)
	}
	if err := r.store.Set(SettingsKey, data); err != nil {
		return apperr.StorageWrite(SettingsKey, err)
	}
	return nil
}

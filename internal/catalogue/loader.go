package catalogue

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"
)

//go:embed default_catalogue.toml
var bundledCatalogue []byte

// fileFormat is the on-disk shape of the catalogue definition.
type fileFormat struct {
	Version    int            `toml:"version"`
	Categories []categoryFile `toml:"categories"`
}

type categoryFile struct {
	ID          string     `toml:"id"`
	DisplayName string     `toml:"displayName"`
	Description string     `toml:"description"`
	Icon        string     `toml:"icon"`
	Slot        int        `toml:"slot"`
	Enabled     *bool      `toml:"enabled"`
	Goods       []goodFile `toml:"goods"`
}

type goodFile struct {
	ID          string  `toml:"id"`
	DisplayName string  `toml:"displayName"`
	BasePrice   float64 `toml:"basePrice"`
}

// Load reads the catalogue at path. The bundled default is written first
// when the file is missing or carries an older version marker.
func Load(path string) (*Catalogue, error) {
	logger := log.With().Str("service", "catalogue").Str("path", path).Logger()

	if err := ensureUpToDate(path); err != nil {
		logger.Warn().Err(err).Msg("failed to refresh catalogue from bundled default")
	}

	var file fileFormat
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("decode catalogue: %w", err)
	}

	cat := build(file)
	logger.Info().
		Int("version", cat.Version).
		Int("categories", len(cat.Categories())).
		Int("goods", len(cat.Goods())).
		Msg("catalogue loaded")
	return cat, nil
}

// Parse builds a catalogue from TOML bytes without touching disk.
func Parse(data []byte) (*Catalogue, error) {
	var file fileFormat
	if _, err := toml.Decode(string(data), &file); err != nil {
		return nil, fmt.Errorf("decode catalogue: %w", err)
	}
	return build(file), nil
}

// Bundled returns the catalogue shipped with the binary.
func Bundled() (*Catalogue, error) {
	return Parse(bundledCatalogue)
}

func build(file fileFormat) *Catalogue {
	logger := log.With().Str("service", "catalogue").Logger()

	categories := make([]*Category, 0, len(file.Categories))
	for _, cf := range file.Categories {
		if cf.ID == "" {
			logger.Warn().Msg("category without id, skipping")
			continue
		}
		if cf.Enabled != nil && !*cf.Enabled {
			logger.Info().Str("category", cf.ID).Msg("category disabled, skipping")
			continue
		}

		cat := &Category{
			Key:         cf.ID,
			DisplayName: orDefault(cf.DisplayName, cf.ID),
			Description: cf.Description,
			Icon:        orDefault(cf.Icon, "CHEST"),
			Slot:        cf.Slot,
		}
		for _, gf := range cf.Goods {
			if gf.ID == "" || gf.BasePrice <= 0 {
				logger.Warn().
					Str("category", cf.ID).
					Str("good", gf.ID).
					Float64("base_price", gf.BasePrice).
					Msg("invalid good definition, skipping")
				continue
			}
			cat.Goods = append(cat.Goods, NewGood(gf.ID, cf.ID, orDefault(gf.DisplayName, gf.ID), gf.BasePrice))
		}
		categories = append(categories, cat)
	}
	return New(file.Version, categories)
}

func ensureUpToDate(path string) error {
	bundled, err := versionOf(bundledCatalogue)
	if err != nil {
		return err
	}

	disk := -1
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return err
	default:
		if v, err := versionOf(data); err == nil {
			disk = v
		}
	}

	if disk >= bundled {
		return nil
	}

	log.Info().
		Str("service", "catalogue").
		Int("disk_version", disk).
		Int("bundled_version", bundled).
		Msg("writing bundled catalogue")

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, bundledCatalogue, 0o644)
}

func versionOf(data []byte) (int, error) {
	var head struct {
		Version int `toml:"version"`
	}
	if _, err := toml.Decode(string(data), &head); err != nil {
		return 0, err
	}
	return head.Version, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

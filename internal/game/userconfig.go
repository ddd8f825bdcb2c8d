package game

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/beevik/etree"
)

// UserConfig holds the game settings ghostkeeper cares about.
type UserConfig struct {
	MultiGhost bool
}

// ReadUserConfig reads the game's settings XML. A missing file yields the
// zero config.
func ReadUserConfig(path string) (UserConfig, error) {
	var cfg UserConfig
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read user config: %w", err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return cfg, fmt.Errorf("parse user config: %w", err)
	}
	if el := doc.FindElement("//MultiGhost"); el != nil {
		cfg.MultiGhost = strings.EqualFold(strings.TrimSpace(el.Text()), "true")
	}
	return cfg, nil
}
